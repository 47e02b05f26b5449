package llm

import (
	_ "embed"
	"strings"
)

//go:embed prompts/generate_v1.txt
var generatePromptV1 string

// DefaultResumeChars bounds how much extracted resume text is embedded in the prompt.
const DefaultResumeChars = 10000

// PromptInput holds everything embedded in a generation prompt.
type PromptInput struct {
	JobDescription string
	ResumeText     string
	FileName       string
	// MaxResumeChars caps ResumeText in runes; zero means DefaultResumeChars.
	MaxResumeChars int
}

// BuildPrompt renders the generation prompt. The output depends only on the input.
func BuildPrompt(in PromptInput) string {
	limit := in.MaxResumeChars
	if limit <= 0 {
		limit = DefaultResumeChars
	}
	replacer := strings.NewReplacer(
		"{{JOB_DESCRIPTION}}", in.JobDescription,
		"{{RESUME_TEXT}}", truncateRunes(in.ResumeText, limit),
		"{{FILE_NAME}}", in.FileName,
	)
	return replacer.Replace(generatePromptV1)
}

func truncateRunes(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	n := 0
	for i := range s {
		if n == limit {
			return s[:i]
		}
		n++
	}
	return s
}

package llm

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// Analysis is the model's answer after validation.
type Analysis struct {
	MatchScore                 int               `json:"matchScore"`
	ResumeSummary              string            `json:"resumeSummary"`
	MissingKeywords            []string          `json:"missingKeywords"`
	InsightsAndRecommendations []string          `json:"insightsAndRecommendations"`
	Replacements               map[string]string `json:"replacements"`
}

// ErrInvalidAnswer wraps every parse or validation failure of a model answer.
var ErrInvalidAnswer = errors.New("invalid AI answer")

const analysisSchema = `{
  "type": "object",
  "properties": {
    "matchScore": {"type": ["number", "string", "null"]},
    "resumeSummary": {"type": ["string", "null"]},
    "missingKeywords": {"type": ["array", "null"], "items": {"type": "string"}},
    "insightsAndRecommendations": {"type": ["array", "null"], "items": {"type": "string"}},
    "replacements": {"type": ["object", "null"]}
  }
}`

var compiledSchema = mustSchema(analysisSchema)

func mustSchema(raw string) *gojsonschema.Schema {
	s, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(raw))
	if err != nil {
		panic(fmt.Sprintf("llm: compile analysis schema: %v", err))
	}
	return s
}

var fence = regexp.MustCompile("```(?:json)?")

// CleanJSON strips markdown code fences some models wrap around JSON answers.
func CleanJSON(raw string) string {
	return strings.TrimSpace(fence.ReplaceAllString(raw, ""))
}

// ParseAnalysis cleans, decodes and validates a raw model answer.
func ParseAnalysis(raw string) (Analysis, error) {
	cleaned := CleanJSON(raw)
	if cleaned == "" {
		return Analysis{}, fmt.Errorf("%w: empty answer", ErrInvalidAnswer)
	}
	var doc map[string]any
	if err := json.Unmarshal([]byte(cleaned), &doc); err != nil {
		return Analysis{}, fmt.Errorf("%w: %v", ErrInvalidAnswer, err)
	}
	res, err := compiledSchema.Validate(gojsonschema.NewGoLoader(doc))
	if err != nil {
		return Analysis{}, fmt.Errorf("%w: %v", ErrInvalidAnswer, err)
	}
	if !res.Valid() {
		msgs := make([]string, 0, len(res.Errors()))
		for _, e := range res.Errors() {
			msgs = append(msgs, e.String())
		}
		return Analysis{}, fmt.Errorf("%w: schema validation failed: %s", ErrInvalidAnswer, strings.Join(msgs, "; "))
	}

	out := Analysis{
		MatchScore:                 scoreFrom(doc["matchScore"]),
		ResumeSummary:              stringFrom(doc["resumeSummary"]),
		MissingKeywords:            stringsFrom(doc["missingKeywords"]),
		InsightsAndRecommendations: stringsFrom(doc["insightsAndRecommendations"]),
		Replacements:               map[string]string{},
	}
	if repl, ok := doc["replacements"].(map[string]any); ok {
		for k, v := range repl {
			out.Replacements[k] = stringFrom(v)
		}
	}
	return out, nil
}

func scoreFrom(v any) int {
	var f float64
	switch t := v.(type) {
	case float64:
		f = t
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSuffix(strings.TrimSpace(t), "%"), 64)
		if err != nil {
			return 0
		}
		f = parsed
	default:
		return 0
	}
	if math.IsNaN(f) {
		return 0
	}
	return int(math.Max(0, math.Min(100, math.Round(f))))
}

func stringFrom(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	case []any:
		parts := make([]string, 0, len(t))
		for _, item := range t {
			parts = append(parts, stringFrom(item))
		}
		return strings.Join(parts, "\n")
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return ""
		}
		return string(b)
	}
}

func stringsFrom(v any) []string {
	items, ok := v.([]any)
	if !ok {
		return []string{}
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		out = append(out, stringFrom(item))
	}
	return out
}

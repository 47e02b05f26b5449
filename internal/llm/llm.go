package llm

import (
	"context"
	"errors"
)

// Generator sends one prompt to one model and returns the model's raw text answer.
// Implementations must use deterministic sampling (see Sampling).
type Generator interface {
	Generate(ctx context.Context, model, prompt string) (string, error)
}

// Sampling pins generation to the most likely token so identical inputs tend to
// produce identical answers.
var Sampling = struct {
	Temperature float32
	TopP        float32
	TopK        int32
	MIMEType    string
}{
	Temperature: 0,
	TopP:        1,
	TopK:        1,
	MIMEType:    "application/json",
}

// DefaultModels is the fallback order used when none is configured.
var DefaultModels = []string{
	"gemini-2.5-flash-lite",
	"gemini-flash-lite-latest",
	"gemini-2.0-flash-lite",
	"gemini-2.5-flash",
	"gemini-flash-latest",
	"gemini-2.0-flash",
}

var (
	// ErrEmptyResponse is returned when a provider answers without any candidate text.
	ErrEmptyResponse = errors.New("no candidates returned")
	// ErrNoModels is returned when the fallback list is empty.
	ErrNoModels = errors.New("no AI models configured")
)

// GeneratorFunc adapts a function to Generator.
type GeneratorFunc func(ctx context.Context, model, prompt string) (string, error)

// Generate calls f.
func (f GeneratorFunc) Generate(ctx context.Context, model, prompt string) (string, error) {
	return f(ctx, model, prompt)
}

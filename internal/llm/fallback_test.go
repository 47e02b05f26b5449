package llm

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"
)

type scripted struct {
	mu      sync.Mutex
	answers map[string]string
	errs    map[string]error
	calls   []string
}

func (s *scripted) Generate(ctx context.Context, model, prompt string) (string, error) {
	s.mu.Lock()
	s.calls = append(s.calls, model)
	s.mu.Unlock()
	if err := s.errs[model]; err != nil {
		return "", err
	}
	return s.answers[model], nil
}

func TestFallbackStopsAtFirstSuccess(t *testing.T) {
	gen := &scripted{
		errs:    map[string]error{"a": errors.New("HTTP 503: unavailable")},
		answers: map[string]string{"b": `{"matchScore":55}`, "c": `{"matchScore":99}`},
	}
	f := &Fallback{Generator: gen, Models: []string{"a", "b", "c"}}

	res, err := f.Run(context.Background(), "prompt")
	require.NoError(t, err)
	assert.Equal(t, "b", res.Model)
	assert.Equal(t, 2, res.Attempts)
	assert.Equal(t, 55, res.Analysis.MatchScore)
	assert.Equal(t, []string{"a", "b"}, gen.calls)
}

func TestFallbackTreatsUnparseableAnswerAsFailure(t *testing.T) {
	gen := &scripted{answers: map[string]string{"a": "not json", "b": "```json\n{\"matchScore\":10}\n```"}}
	f := &Fallback{Generator: gen, Models: []string{"a", "b"}}

	res, err := f.Run(context.Background(), "prompt")
	require.NoError(t, err)
	assert.Equal(t, "b", res.Model)
}

func TestFallbackExhaustedSurfacesLastError(t *testing.T) {
	gen := &scripted{errs: map[string]error{
		"a": errors.New("HTTP 503: first"),
		"b": errors.New("HTTP 503: second"),
	}}
	f := &Fallback{Generator: gen, Models: []string{"a", "b"}}

	_, err := f.Run(context.Background(), "prompt")
	var exhausted *ExhaustedError
	require.ErrorAs(t, err, &exhausted)
	assert.True(t, strings.Contains(exhausted.Error(), "second"))
	assert.Len(t, multierr.Errors(exhausted.All), 2)
}

func TestFallbackBudgetSkipsRemainingModels(t *testing.T) {
	gen := GeneratorFunc(func(ctx context.Context, model, prompt string) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	})
	f := &Fallback{
		Generator:      gen,
		Models:         []string{"a", "b", "c"},
		RequestTimeout: time.Second,
		Budget:         20 * time.Millisecond,
	}

	start := time.Now()
	_, err := f.Run(context.Background(), "prompt")
	require.Error(t, err)
	assert.Less(t, time.Since(start), 500*time.Millisecond)
	assert.Contains(t, err.Error(), "budget exhausted")
}

func TestFallbackRequiresModels(t *testing.T) {
	_, err := (&Fallback{Generator: &scripted{}}).Run(context.Background(), "p")
	assert.ErrorIs(t, err, ErrNoModels)
}

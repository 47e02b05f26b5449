package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/multierr"

	"jobfit-backend/internal/shared/metrics"
	"jobfit-backend/internal/shared/telemetry"
)

const (
	DefaultRequestTimeout = 60 * time.Second
	DefaultTotalBudget    = 120 * time.Second
)

// Fallback tries each model in order until one returns a parseable answer.
type Fallback struct {
	Generator Generator
	Models    []string
	// RequestTimeout bounds a single model call.
	RequestTimeout time.Duration
	// Budget bounds the whole loop; remaining models are skipped once it is spent.
	Budget time.Duration
}

// Result is the first successful answer.
type Result struct {
	Model    string
	Analysis Analysis
	Attempts int
}

// ExhaustedError is returned when every model failed.
type ExhaustedError struct {
	// Last is the error of the final attempt, surfaced to callers for diagnostics.
	Last error
	// All aggregates every attempt's error.
	All error
}

func (e *ExhaustedError) Error() string {
	if e.Last == nil {
		return "all AI models failed"
	}
	return e.Last.Error()
}

func (e *ExhaustedError) Unwrap() error { return e.All }

// Run executes the fallback loop.
func (f *Fallback) Run(ctx context.Context, prompt string) (Result, error) {
	models := f.Models
	if len(models) == 0 {
		return Result{}, ErrNoModels
	}
	perCall := f.RequestTimeout
	if perCall <= 0 {
		perCall = DefaultRequestTimeout
	}
	budget := f.Budget
	if budget <= 0 {
		budget = DefaultTotalBudget
	}
	loopCtx, cancel := context.WithTimeout(ctx, budget)
	defer cancel()

	var (
		all  error
		last error
	)
	for i, model := range models {
		if err := loopCtx.Err(); err != nil {
			last = fmt.Errorf("budget exhausted before %s: %w", model, err)
			all = multierr.Append(all, last)
			telemetry.Warn("ai.budget_exhausted", map[string]any{
				"skipped_models": len(models) - i,
				"budget_ms":      budget.Milliseconds(),
			})
			break
		}
		started := time.Now()
		analysis, err := f.attempt(loopCtx, perCall, model, prompt)
		if err == nil {
			metrics.IncAIAttempt(model, "ok")
			telemetry.Info("ai.attempt", map[string]any{
				"model":       model,
				"attempt":     i + 1,
				"outcome":     "ok",
				"duration_ms": time.Since(started).Milliseconds(),
			})
			return Result{Model: model, Analysis: analysis, Attempts: i + 1}, nil
		}
		outcome := "error"
		if errors.Is(err, ErrInvalidAnswer) {
			outcome = "invalid_answer"
		}
		metrics.IncAIAttempt(model, outcome)
		telemetry.Warn("ai.attempt", map[string]any{
			"model":       model,
			"attempt":     i + 1,
			"outcome":     outcome,
			"duration_ms": time.Since(started).Milliseconds(),
			"error":       err.Error(),
		})
		last = fmt.Errorf("%s: %w", model, err)
		all = multierr.Append(all, last)
	}
	telemetry.Error("ai.exhausted", map[string]any{
		"models": len(models),
		"errors": len(multierr.Errors(all)),
		"last":   errString(last),
	})
	return Result{}, &ExhaustedError{Last: last, All: all}
}

func (f *Fallback) attempt(ctx context.Context, timeout time.Duration, model, prompt string) (Analysis, error) {
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	raw, err := f.Generator.Generate(callCtx, model, prompt)
	if err != nil {
		return Analysis{}, err
	}
	return ParseAnalysis(raw)
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

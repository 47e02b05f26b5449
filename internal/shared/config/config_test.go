package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("JOBFIT_CONFIG", "")
	t.Setenv("GEMINI_MODELS", "")
	t.Setenv("DAILY_LIMIT_DEFAULT", "")

	cfg := Load()

	assert.Equal(t, DefaultGeminiModels, cfg.GeminiModels)
	assert.Equal(t, 70, cfg.DailyLimitDefault)
	assert.Equal(t, 5, cfg.PlanLimitFree)
	assert.Equal(t, 999999, cfg.PlanLimitPro)
	assert.Equal(t, 5, cfg.RetentionMonths)
	assert.Equal(t, 10000, cfg.PromptResumeChars)
	assert.Equal(t, 60*time.Second, cfg.AIRequestTimeout)
	assert.Equal(t, "gemini", cfg.AIProvider)
}

func TestLoadYAMLThenEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "jobfit.yaml")
	err := os.WriteFile(path, []byte(`
ai:
  provider: gemini-sdk
  models: [m-one, m-two]
  total_budget: 45s
quota:
  timezone: UTC
  daily_limit_default: 50
  plan_limit_free: 7
`), 0o600)
	require.NoError(t, err)

	t.Setenv("JOBFIT_CONFIG", path)
	t.Setenv("GEMINI_MODELS", "")
	t.Setenv("AI_PROVIDER", "")
	t.Setenv("AI_TOTAL_BUDGET", "")
	t.Setenv("DAILY_LIMIT_DEFAULT", "")
	t.Setenv("PLAN_LIMIT_FREE", "9")
	t.Setenv("QUOTA_TIMEZONE", "")

	cfg := Load()

	assert.Equal(t, []string{"m-one", "m-two"}, cfg.GeminiModels)
	assert.Equal(t, "gemini-sdk", cfg.AIProvider)
	assert.Equal(t, 45*time.Second, cfg.AITotalBudget)
	assert.Equal(t, 50, cfg.DailyLimitDefault)
	assert.Equal(t, 9, cfg.PlanLimitFree)
	assert.Equal(t, time.UTC, cfg.Location())
}

func TestSplitAndTrim(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, splitAndTrim(" a, ,b ,"))
	assert.Nil(t, splitAndTrim(""))
}

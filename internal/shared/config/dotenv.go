package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// loadEnvFiles loads KEY=VALUE pairs from the given files if they exist.
// Variables already present in the environment win.
func loadEnvFiles(paths ...string) {
	for _, path := range paths {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		_ = godotenv.Load(path)
	}
}

// fileConfig mirrors the optional YAML config file. Env vars override every field.
type fileConfig struct {
	Database struct {
		URL string `yaml:"url"`
	} `yaml:"database"`
	AI struct {
		Provider          string        `yaml:"provider"`
		Models            []string      `yaml:"models"`
		RequestTimeout    time.Duration `yaml:"request_timeout"`
		TotalBudget       time.Duration `yaml:"total_budget"`
		PromptResumeChars int           `yaml:"prompt_resume_chars"`
	} `yaml:"ai"`
	Quota struct {
		Timezone          string `yaml:"timezone"`
		DailyLimitDefault int    `yaml:"daily_limit_default"`
		PlanLimitFree     int    `yaml:"plan_limit_free"`
		PlanLimitPro      int    `yaml:"plan_limit_pro"`
		RetentionMonths   int    `yaml:"retention_months"`
	} `yaml:"quota"`
}

func loadFile(path string) (fileConfig, error) {
	var cfg fileConfig
	path = strings.TrimSpace(path)
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, fmt.Errorf("config file not found: %s", path)
		}
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return fileConfig{}, fmt.Errorf("parse config file: %w", err)
	}
	return cfg, nil
}

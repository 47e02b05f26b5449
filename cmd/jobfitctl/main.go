package main

// Operator commands for a jobfit deployment:
//   go run ./cmd/jobfitctl migrate
//   go run ./cmd/jobfitctl grant-plan <userId> PRO

import (
	"os"

	"jobfit-backend/internal/shared/config"
	"jobfit-backend/internal/shared/telemetry"
)

func main() {
	cfg := config.Load()
	telemetry.Configure(os.Stderr, cfg.LogLevel)
	defer telemetry.Sync()

	if err := newRootCommand(cfg).Execute(); err != nil {
		os.Exit(1)
	}
}

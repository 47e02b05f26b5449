package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"jobfit-backend/internal/bootstrap"
	"jobfit-backend/internal/shared/config"
	"jobfit-backend/internal/shared/storage/db"
	"jobfit-backend/internal/users"
)

var errNoDatabase = errors.New("DATABASE_URL is required")

func newRootCommand(cfg config.Config) *cobra.Command {
	root := &cobra.Command{
		Use:          "jobfitctl",
		Short:        "Administer a jobfit backend deployment",
		SilenceUsage: true,
	}
	root.AddCommand(
		newMigrateCommand(cfg),
		newPruneCommand(cfg),
		newGrantPlanCommand(cfg),
		newBackfillAccessCommand(cfg),
	)
	return root
}

func newMigrateCommand(cfg config.Config) *cobra.Command {
	var down, status bool
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply embedded schema migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			sqlDB, err := connect(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer sqlDB.Close()

			if down {
				if err := db.RollbackMigration(cmd.Context(), sqlDB); err != nil {
					return fmt.Errorf("rollback: %w", err)
				}
			} else if !status {
				if err := db.RunMigrations(cmd.Context(), sqlDB); err != nil {
					return fmt.Errorf("migrate: %w", err)
				}
			}
			version, err := db.MigrationVersion(cmd.Context(), sqlDB)
			if err != nil {
				return err
			}
			cmd.Printf("schema version %d\n", version)
			return nil
		},
	}
	cmd.Flags().BoolVar(&down, "down", false, "roll back the most recent migration")
	cmd.Flags().BoolVar(&status, "status", false, "only print the current schema version")
	return cmd
}

func newPruneCommand(cfg config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "prune",
		Short: "Delete generation records older than the retention window",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := buildApp(cfg)
			if err != nil {
				return err
			}
			defer app.Close()
			n, err := app.RecordsService.Prune(cmd.Context())
			if err != nil {
				return err
			}
			cmd.Printf("pruned %d records older than %d months\n", n, app.RecordsService.RetentionMonths)
			return nil
		},
	}
}

func newGrantPlanCommand(cfg config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "grant-plan <userId> <FREE|PRO>",
		Short: "Grant a plan with full access and reset the user's counters",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			plan, ok := users.ParsePlan(strings.ToUpper(strings.TrimSpace(args[1])))
			if !ok {
				return errors.New("invalid plan. Must be FREE or PRO")
			}
			app, err := buildApp(cfg)
			if err != nil {
				return err
			}
			defer app.Close()
			u, err := app.AdminService.GrantPlan(cmd.Context(), args[0], string(plan))
			if err != nil {
				return err
			}
			cmd.Printf("%s plan access granted to %s\n", u.Plan, u.Email)
			return nil
		},
	}
}

func newBackfillAccessCommand(cfg config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "backfill-access",
		Short: "Restrict accounts created before plans existed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := buildApp(cfg)
			if err != nil {
				return err
			}
			defer app.Close()
			n, err := app.Ledger.BackfillAccess(cmd.Context())
			if err != nil {
				return err
			}
			cmd.Printf("updated %d users\n", n)
			return nil
		},
	}
}

func connect(ctx context.Context, cfg config.Config) (*sql.DB, error) {
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		return nil, errNoDatabase
	}
	return db.Connect(ctx, cfg.DatabaseURL, db.PoolFor(db.ProfileCLI).WithEnv())
}

// buildApp refuses to run against in-memory repositories, where changes would be lost.
func buildApp(cfg config.Config) (*bootstrap.App, error) {
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		return nil, errNoDatabase
	}
	cfg.Env = "production"
	if cfg.JWTSecret == "" {
		// Operator commands never issue tokens.
		cfg.JWTSecret = "jobfitctl"
	}
	return bootstrap.Build(cfg)
}

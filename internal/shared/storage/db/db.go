package db

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as database/sql driver

	"jobfit-backend/internal/shared/metrics"
	"jobfit-backend/internal/shared/telemetry"
)

// Profile names the kind of process holding the pool.
type Profile string

const (
	ProfileServer Profile = "server"
	ProfileLambda Profile = "lambda"
	ProfileCLI    Profile = "cli"
)

// Pool holds connection pool limits.
type Pool struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	PingTimeout     time.Duration
}

var (
	openDB = sql.Open

	sharedMu sync.Mutex
	sharedDB *sql.DB
)

// IsLambdaRuntime reports whether the current process is running in AWS Lambda.
func IsLambdaRuntime() bool {
	return strings.TrimSpace(os.Getenv("AWS_LAMBDA_FUNCTION_NAME")) != ""
}

// PoolFor returns the pool limits for p. Lambda keeps the pool tiny since
// every concurrent invocation is its own process.
func PoolFor(p Profile) Pool {
	switch p {
	case ProfileLambda:
		return Pool{MaxOpenConns: 2, MaxIdleConns: 1, ConnMaxIdleTime: 30 * time.Second, ConnMaxLifetime: 15 * time.Minute, PingTimeout: 3 * time.Second}
	case ProfileCLI:
		return Pool{MaxOpenConns: 1, MaxIdleConns: 1, ConnMaxIdleTime: 2 * time.Minute, ConnMaxLifetime: time.Hour, PingTimeout: 5 * time.Second}
	default:
		return Pool{MaxOpenConns: 10, MaxIdleConns: 5, ConnMaxIdleTime: 2 * time.Minute, ConnMaxLifetime: time.Hour, PingTimeout: 5 * time.Second}
	}
}

// WithEnv applies DB_* overrides from the environment. Invalid values are
// logged and skipped.
func (p Pool) WithEnv() Pool {
	ints := map[string]*int{
		"DB_MAX_OPEN_CONNS": &p.MaxOpenConns,
		"DB_MAX_IDLE_CONNS": &p.MaxIdleConns,
	}
	for key, dst := range ints {
		raw := strings.TrimSpace(os.Getenv(key))
		if raw == "" {
			continue
		}
		v, err := strconv.Atoi(raw)
		if err != nil {
			telemetry.Warn("db.env_invalid", map[string]any{"key": key, "error": err})
			continue
		}
		*dst = v
	}

	durations := map[string]*time.Duration{
		"DB_CONN_MAX_LIFETIME":  &p.ConnMaxLifetime,
		"DB_CONN_MAX_IDLE_TIME": &p.ConnMaxIdleTime,
		"DB_PING_TIMEOUT":       &p.PingTimeout,
	}
	for key, dst := range durations {
		raw := strings.TrimSpace(os.Getenv(key))
		if raw == "" {
			continue
		}
		v, err := time.ParseDuration(raw)
		if err != nil {
			telemetry.Warn("db.env_invalid", map[string]any{"key": key, "error": err})
			continue
		}
		*dst = v
	}
	return p
}

// Open connects for a long-running API process. Inside Lambda the pool is
// shared across warm invocations.
func Open(ctx context.Context, databaseURL string) (*sql.DB, error) {
	if IsLambdaRuntime() {
		return Shared(ctx, databaseURL, PoolFor(ProfileLambda).WithEnv())
	}
	return Connect(ctx, databaseURL, PoolFor(ProfileServer).WithEnv())
}

// Connect opens a pgx-backed *sql.DB and pings it.
func Connect(ctx context.Context, databaseURL string, pool Pool) (*sql.DB, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return nil, fmt.Errorf("DATABASE_URL is empty")
	}

	database, err := openDB("pgx", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	pool = pool.normalized()
	database.SetMaxOpenConns(pool.MaxOpenConns)
	database.SetMaxIdleConns(pool.MaxIdleConns)
	database.SetConnMaxLifetime(pool.ConnMaxLifetime)
	if pool.ConnMaxIdleTime > 0 {
		database.SetConnMaxIdleTime(pool.ConnMaxIdleTime)
	}

	pingCtx, cancel := context.WithTimeout(ctx, pool.PingTimeout)
	defer cancel()
	if err := database.PingContext(pingCtx); err != nil {
		database.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	metrics.RegisterDB(database)
	telemetry.Info("db.connected", map[string]any{
		"max_open": pool.MaxOpenConns,
		"max_idle": pool.MaxIdleConns,
		"lifetime": pool.ConnMaxLifetime.String(),
	})
	return database, nil
}

// Shared returns the process-wide pool, connecting on first use. A failed
// connect is not cached, so the next call retries.
func Shared(ctx context.Context, databaseURL string, pool Pool) (*sql.DB, error) {
	sharedMu.Lock()
	defer sharedMu.Unlock()
	if sharedDB != nil {
		return sharedDB, nil
	}
	database, err := Connect(ctx, databaseURL, pool)
	if err != nil {
		return nil, err
	}
	sharedDB = database
	return sharedDB, nil
}

func (p Pool) normalized() Pool {
	if p.MaxOpenConns <= 0 {
		p.MaxOpenConns = 10
	}
	if p.MaxIdleConns <= 0 {
		p.MaxIdleConns = 5
	}
	if p.ConnMaxLifetime <= 0 {
		p.ConnMaxLifetime = time.Hour
	}
	if p.PingTimeout <= 0 {
		p.PingTimeout = 5 * time.Second
	}
	return p
}

// WithTx runs fn inside a transaction, rolling back when fn returns an error.
func WithTx(ctx context.Context, database *sql.DB, fn func(tx *sql.Tx) error) error {
	tx, err := database.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

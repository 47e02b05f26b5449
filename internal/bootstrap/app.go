package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/benbjohnson/clock"
	"github.com/gin-gonic/gin"

	"jobfit-backend/internal/account"
	"jobfit-backend/internal/admin"
	googleauth "jobfit-backend/internal/auth"
	"jobfit-backend/internal/generatedresumes"
	"jobfit-backend/internal/generation"
	"jobfit-backend/internal/llm"
	"jobfit-backend/internal/llm/gemini"
	"jobfit-backend/internal/llm/genaisdk"
	"jobfit-backend/internal/services/health"
	"jobfit-backend/internal/shared/auth"
	"jobfit-backend/internal/shared/config"
	"jobfit-backend/internal/shared/server"
	"jobfit-backend/internal/shared/server/middleware"
	"jobfit-backend/internal/shared/storage/db"
	"jobfit-backend/internal/shared/storage/object"
	localstore "jobfit-backend/internal/shared/storage/object/local"
	s3store "jobfit-backend/internal/shared/storage/object/s3"
	"jobfit-backend/internal/shared/telemetry"
	"jobfit-backend/internal/usage"
	"jobfit-backend/internal/users"
)

// App holds shared dependencies and the wired router.
type App struct {
	Config config.Config
	Router *gin.Engine
	DB     *sql.DB
	Store  object.Store
	Clock  clock.Clock
	Signer *auth.Signer

	UsersRepo   users.Repo
	RecordsRepo generatedresumes.Repo

	Gate              *usage.Gate
	Ledger            *usage.Ledger
	UsersService      *users.Service
	RecordsService    *generatedresumes.Service
	GenerationService *generation.Service
	AccountService    *account.Service
	AdminService      *admin.Service

	closers []func() error
}

// Build prepares every dependency and the router.
func Build(cfg config.Config) (*App, error) {
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = "dev"
	}
	ctx := context.Background()

	sqlDB, err := buildDB(ctx, cfg)
	if err != nil {
		return nil, err
	}

	store, err := buildStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	signer, err := auth.NewSigner(cfg.JWTSecret, cfg.SessionTTL, cfg.Env)
	if err != nil {
		return nil, err
	}

	app := &App{
		Config: cfg,
		DB:     sqlDB,
		Store:  store,
		Clock:  clock.New(),
		Signer: signer,
	}
	if sqlDB != nil {
		app.closers = append(app.closers, sqlDB.Close)
	}

	ai, err := buildGenerator(ctx, app)
	if err != nil {
		return nil, err
	}

	buildServices(app, ai)
	app.Router = server.NewRouter(buildRouterDeps(app))
	return app, nil
}

// Close releases the database pool and AI client.
func (a *App) Close() error {
	var firstErr error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Limits maps the configured ceilings onto the gate's limits.
func Limits(cfg config.Config) usage.Limits {
	limits := usage.DefaultLimits()
	if cfg.PlanLimitFree > 0 {
		limits.Free = cfg.PlanLimitFree
	}
	if cfg.PlanLimitPro > 0 {
		limits.Pro = cfg.PlanLimitPro
	}
	if cfg.DailyLimitDefault > 0 {
		limits.DailyDefault = cfg.DailyLimitDefault
	}
	return limits
}

func buildDB(ctx context.Context, cfg config.Config) (*sql.DB, error) {
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		if cfg.IsDevLike() {
			telemetry.Warn("bootstrap.memory_repositories", map[string]any{"reason": "DATABASE_URL empty"})
			return nil, nil
		}
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	sqlDB, err := db.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		if cfg.IsDevLike() {
			telemetry.Warn("bootstrap.memory_repositories", map[string]any{"reason": "database connect failed", "error": err})
			return nil, nil
		}
		return nil, err
	}

	// Production schemas are migrated with jobfitctl; dev databases are kept current here.
	if cfg.IsDevLike() {
		if err := db.RunMigrations(ctx, sqlDB); err != nil {
			return nil, fmt.Errorf("run migrations: %w", err)
		}
	}
	return sqlDB, nil
}

func buildStore(ctx context.Context, cfg config.Config) (object.Store, error) {
	switch cfg.ObjectStoreType {
	case "s3":
		if strings.TrimSpace(cfg.S3Bucket) == "" {
			return nil, fmt.Errorf("OBJECT_STORE=s3 requires S3_BUCKET")
		}
		store, err := s3store.New(ctx, cfg.AWSRegion, cfg.S3Bucket, cfg.S3Prefix, cfg.SSEKMSKeyID)
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return localstore.New(cfg.LocalStoreDir), nil
	}
}

// buildGenerator picks the AI transport. A missing key is not fatal: every
// generation then fails through the normal AI error path.
func buildGenerator(ctx context.Context, app *App) (llm.Generator, error) {
	key := strings.TrimSpace(app.Config.GeminiAPIKey)
	if key == "" {
		telemetry.Warn("bootstrap.ai_not_configured", map[string]any{"provider": app.Config.AIProvider})
		return llm.GeneratorFunc(func(context.Context, string, string) (string, error) {
			return "", fmt.Errorf("GEMINI_API_KEY is not configured")
		}), nil
	}
	switch app.Config.AIProvider {
	case "gemini-sdk":
		client, err := genaisdk.NewClient(ctx, key)
		if err != nil {
			return nil, err
		}
		app.closers = append(app.closers, client.Close)
		return client, nil
	default:
		client, err := gemini.NewClient(key)
		if err != nil {
			return nil, err
		}
		return client, nil
	}
}

func buildServices(app *App, ai llm.Generator) {
	cfg := app.Config
	var usageStore usage.Store
	if app.DB != nil {
		app.UsersRepo = &users.PGRepo{DB: app.DB}
		app.RecordsRepo = &generatedresumes.PGRepo{DB: app.DB}
		usageStore = usage.NewPGStore(app.DB)
	} else {
		memUsers := users.NewMemoryRepo()
		app.UsersRepo = memUsers
		app.RecordsRepo = generatedresumes.NewMemoryRepo()
		usageStore = usage.NewMemoryStore(memUsers)
	}

	app.Gate = usage.NewGate(app.Clock, cfg.Location(), Limits(cfg))
	app.Ledger = usage.NewLedger(usageStore, app.Gate)
	app.UsersService = users.NewService(app.UsersRepo)
	app.RecordsService = generatedresumes.NewService(app.RecordsRepo, app.Store, cfg.RetentionMonths)
	app.RecordsService.Clock = app.Clock

	app.GenerationService = &generation.Service{
		Users:   app.UsersRepo,
		Gate:    app.Gate,
		Ledger:  app.Ledger,
		Records: app.RecordsService,
		AI: &llm.Fallback{
			Generator:      ai,
			Models:         cfg.GeminiModels,
			RequestTimeout: cfg.AIRequestTimeout,
			Budget:         cfg.AITotalBudget,
		},
		Clock:          app.Clock,
		MaxResumeChars: cfg.PromptResumeChars,
	}
	app.AccountService = account.NewService(app.UsersRepo, app.RecordsService, app.Gate)
	app.AccountService.Clock = app.Clock
	app.AdminService = &admin.Service{
		Password: cfg.AdminPassword,
		Users:    app.UsersService,
		Records:  app.RecordsService,
		Ledger:   app.Ledger,
	}
}

func buildRouterDeps(app *App) server.RouterDeps {
	cfg := app.Config
	limiter := middleware.NewRateLimiter(middleware.RateLimitRule{
		PerHour: cfg.AnonGeneratePerHour,
		Burst:   cfg.AnonGenerateBurst,
	}, app.Clock.Now)

	return server.RouterDeps{
		Config:            cfg,
		Signer:            app.Signer,
		Health:            health.NewService(app.DB, cfg.ObjectStoreType, cfg.AIProvider),
		UserHandler:       users.NewHandler(app.UsersService, app.Signer),
		GoogleAuth:        googleauth.NewGoogleService(googleauth.GoogleConfig{ClientID: cfg.GoogleClientID, ClientSecret: cfg.GoogleClientSecret, RedirectURL: cfg.GoogleRedirectURL, UIRedirect: cfg.UIRedirectURL}, app.UsersService, app.Signer),
		AccountHandler:    account.NewHandler(app.AccountService),
		AdminHandler:      admin.NewHandler(app.AdminService, app.Signer),
		GenerationHandler: generation.NewHandler(app.GenerationService, cfg.MaxUploadBytes, middleware.AnonymousRateLimit(limiter)),
		ResumesHandler:    generatedresumes.NewHandler(app.RecordsService),
		UsageHandler:      usage.NewHandler(app.Gate, app.UsersRepo, app.RecordsRepo),
	}
}

package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"jobfit-backend/internal/shared/telemetry"
)

// Config holds application configuration.
type Config struct {
	Port            string
	Env             string
	LogLevel        string
	CORSAllowOrigin []string
	DatabaseURL     string

	ObjectStoreType string
	LocalStoreDir   string
	AWSRegion       string
	S3Bucket        string
	S3Prefix        string
	SSEKMSKeyID     string

	AIProvider        string
	GeminiAPIKey      string
	GeminiModels      []string
	AIRequestTimeout  time.Duration
	AITotalBudget     time.Duration
	PromptResumeChars int

	QuotaTimezone     string
	DailyLimitDefault int
	PlanLimitFree     int
	PlanLimitPro      int
	RetentionMonths   int

	AdminPassword string
	JWTSecret     string
	SessionTTL    time.Duration

	AnonGeneratePerHour int
	AnonGenerateBurst   int
	MaxUploadBytes      int64

	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURL  string
	UIRedirectURL      string
}

// DefaultGeminiModels is the fallback order used when GEMINI_MODELS is unset.
var DefaultGeminiModels = []string{
	"gemini-2.5-flash-lite",
	"gemini-flash-lite-latest",
	"gemini-2.0-flash-lite",
	"gemini-2.5-flash",
	"gemini-flash-latest",
	"gemini-2.0-flash",
}

// Load reads configuration from defaults, an optional YAML file, .env files and the environment.
func Load() Config {
	// Best-effort load of local env files for dev convenience.
	loadEnvFiles(".env", "cmd/.env")

	file, err := loadFile(os.Getenv("JOBFIT_CONFIG"))
	if err != nil {
		telemetry.Warn("config.file_ignored", map[string]any{"path": os.Getenv("JOBFIT_CONFIG"), "err": err})
	}

	env := normalizeEnv(getEnv("ENV", "dev"))
	dbURL := getEnv("DATABASE_URL", file.Database.URL)
	if env == "production" && dbURL == "" {
		telemetry.Warn("config.database_url_missing", map[string]any{"env": env})
	}

	models := file.AI.Models
	if raw := strings.TrimSpace(os.Getenv("GEMINI_MODELS")); raw != "" {
		models = splitAndTrim(raw)
	}
	if len(models) == 0 {
		models = append([]string(nil), DefaultGeminiModels...)
	}

	return Config{
		Port:            getEnv("PORT", "8080"),
		Env:             env,
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		CORSAllowOrigin: splitAndTrim(getEnv("CORS_ALLOW_ORIGINS", "http://localhost:3000")),
		DatabaseURL:     dbURL,

		ObjectStoreType: normalizeStoreType(getEnv("OBJECT_STORE", "local")),
		LocalStoreDir:   getEnv("LOCAL_STORE_DIR", "./data"),
		AWSRegion:       getEnv("AWS_REGION", ""),
		S3Bucket:        getEnv("S3_BUCKET", ""),
		S3Prefix:        getEnv("S3_PREFIX", ""),
		SSEKMSKeyID:     getEnv("SSE_KMS_KEY_ID", ""),

		AIProvider:        normalizeProvider(getEnv("AI_PROVIDER", file.AI.Provider)),
		GeminiAPIKey:      getEnv("GEMINI_API_KEY", ""),
		GeminiModels:      models,
		AIRequestTimeout:  getDuration("AI_REQUEST_TIMEOUT", orDuration(file.AI.RequestTimeout, 60*time.Second)),
		AITotalBudget:     getDuration("AI_TOTAL_BUDGET", orDuration(file.AI.TotalBudget, 120*time.Second)),
		PromptResumeChars: getInt("PROMPT_RESUME_CHARS", orInt(file.AI.PromptResumeChars, 10000)),

		QuotaTimezone:     getEnv("QUOTA_TIMEZONE", orString(file.Quota.Timezone, "Local")),
		DailyLimitDefault: getInt("DAILY_LIMIT_DEFAULT", orInt(file.Quota.DailyLimitDefault, 70)),
		PlanLimitFree:     getInt("PLAN_LIMIT_FREE", orInt(file.Quota.PlanLimitFree, 5)),
		PlanLimitPro:      getInt("PLAN_LIMIT_PRO", orInt(file.Quota.PlanLimitPro, 999999)),
		RetentionMonths:   getInt("RETENTION_MONTHS", orInt(file.Quota.RetentionMonths, 5)),

		AdminPassword: getEnv("ADMIN_PASSWORD", ""),
		JWTSecret:     getEnv("JWT_SECRET", ""),
		SessionTTL:    getDuration("SESSION_TTL", 24*time.Hour),

		AnonGeneratePerHour: getInt("ANON_GENERATE_PER_HOUR", 10),
		AnonGenerateBurst:   getInt("ANON_GENERATE_BURST", 3),
		MaxUploadBytes:      int64(getInt("MAX_UPLOAD_BYTES", 10<<20)),

		GoogleClientID:     getEnv("GOOGLE_CLIENT_ID", ""),
		GoogleClientSecret: getEnv("GOOGLE_CLIENT_SECRET", ""),
		GoogleRedirectURL:  getEnv("GOOGLE_REDIRECT_URL", ""),
		UIRedirectURL:      getEnv("UI_REDIRECT_URL", ""),
	}
}

// Location resolves QuotaTimezone, falling back to the server's local zone.
func (c Config) Location() *time.Location {
	name := strings.TrimSpace(c.QuotaTimezone)
	if name == "" || strings.EqualFold(name, "local") {
		return time.Local
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		telemetry.Warn("config.timezone_invalid", map[string]any{"timezone": name, "err": err})
		return time.Local
	}
	return loc
}

// IsDevLike reports whether in-memory fallbacks are acceptable.
func (c Config) IsDevLike() bool {
	return c.Env == "dev" || c.Env == "local"
}

func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

func getInt(key string, def int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	val, err := strconv.Atoi(raw)
	if err != nil {
		telemetry.Warn("config.invalid_int", map[string]any{"key": key, "err": err})
		return def
	}
	return val
}

func getDuration(key string, def time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	val, err := time.ParseDuration(raw)
	if err != nil {
		telemetry.Warn("config.invalid_duration", map[string]any{"key": key, "err": err})
		return def
	}
	return val
}

func orString(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}

func orInt(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

func orDuration(v, def time.Duration) time.Duration {
	if v <= 0 {
		return def
	}
	return v
}

func splitAndTrim(raw string) []string {
	parts := strings.Split(raw, ",")
	var out []string
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func normalizeEnv(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "production", "prod":
		return "production"
	case "staging":
		return "staging"
	case "local":
		return "local"
	case "development", "dev":
		return "dev"
	default:
		return "dev"
	}
}

func normalizeStoreType(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "s3":
		return "s3"
	default:
		return "local"
	}
}

func normalizeProvider(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "gemini-sdk", "genai":
		return "gemini-sdk"
	default:
		return "gemini"
	}
}

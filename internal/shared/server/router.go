package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"jobfit-backend/internal/account"
	"jobfit-backend/internal/admin"
	googleauth "jobfit-backend/internal/auth"
	"jobfit-backend/internal/generatedresumes"
	"jobfit-backend/internal/generation"
	"jobfit-backend/internal/services/health"
	"jobfit-backend/internal/shared/auth"
	"jobfit-backend/internal/shared/config"
	"jobfit-backend/internal/shared/metrics"
	"jobfit-backend/internal/shared/server/middleware"
	"jobfit-backend/internal/shared/server/respond"
	"jobfit-backend/internal/usage"
	"jobfit-backend/internal/users"
)

// RouterDeps carries the handlers mounted by NewRouter. Nil handlers are skipped.
type RouterDeps struct {
	Config            config.Config
	Signer            *auth.Signer
	Health            *health.Service
	UserHandler       *users.Handler
	GoogleAuth        *googleauth.GoogleService
	AccountHandler    *account.Handler
	AdminHandler      *admin.Handler
	GenerationHandler *generation.Handler
	ResumesHandler    *generatedresumes.Handler
	UsageHandler      *usage.Handler
}

// NewRouter constructs the Gin engine with middleware and routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	if deps.Config.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()

	r.Use(
		middleware.RequestID(),
		middleware.Logging(),
		middleware.Recovery(),
		middleware.CORS(deps.Config.CORSAllowOrigin),
	)
	r.GET("/metrics", metrics.Handler())

	api := r.Group("/api")
	api.GET("/health", func(c *gin.Context) {
		if deps.Health == nil {
			respond.JSON(c, http.StatusOK, gin.H{"ok": true})
			return
		}
		report := deps.Health.Status(c.Request.Context())
		status := http.StatusOK
		if !report.OK {
			status = http.StatusServiceUnavailable
		}
		respond.JSON(c, status, report)
	})

	if deps.AdminHandler != nil {
		deps.AdminHandler.RegisterRoutes(api.Group("/admin"))
	}

	authed := api.Group("", middleware.Auth(deps.Signer))
	authGroup := authed.Group("/auth")
	if deps.UserHandler != nil {
		deps.UserHandler.RegisterAuthRoutes(authGroup)
	}
	if deps.GoogleAuth != nil {
		deps.GoogleAuth.RegisterRoutes(authGroup)
	}

	userGroup := authed.Group("/user", middleware.RequireUser())
	if deps.UserHandler != nil {
		deps.UserHandler.RegisterProfileRoutes(userGroup)
	}
	if deps.AccountHandler != nil {
		deps.AccountHandler.RegisterRoutes(userGroup)
	}

	if deps.GenerationHandler != nil {
		deps.GenerationHandler.RegisterRoutes(authed)
	}
	if deps.ResumesHandler != nil {
		deps.ResumesHandler.RegisterRoutes(authed)
	}
	if deps.UsageHandler != nil {
		deps.UsageHandler.RegisterRoutes(authed)
	}

	return r
}

// Addr normalizes the listen address.
func Addr(port string) string {
	if port == "" {
		return ":8080"
	}
	if port[0] == ':' {
		return port
	}
	return ":" + port
}

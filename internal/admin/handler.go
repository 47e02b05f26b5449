package admin

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"jobfit-backend/internal/shared/auth"
	"jobfit-backend/internal/shared/server/middleware"
	"jobfit-backend/internal/shared/server/respond"
	"jobfit-backend/internal/users"
)

type Handler struct {
	Svc    *Service
	Signer *auth.Signer
}

func NewHandler(svc *Service, signer *auth.Signer) *Handler {
	return &Handler{Svc: svc, Signer: signer}
}

// RegisterRoutes attaches the admin console under rg. Everything except
// login and logout requires the admin cookie.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/login", h.login)
	rg.POST("/logout", h.logout)

	protected := rg.Group("", middleware.RequireAdmin(h.Signer))
	protected.GET("/dashboard", h.dashboard)
	protected.POST("/grant-plan", h.grantPlan)
	protected.POST("/approve-user", h.approveUser)
}

type loginRequest struct {
	Password string `json:"password"`
}

func (h *Handler) login(c *gin.Context) {
	var req loginRequest
	_ = c.ShouldBindJSON(&req)
	if err := h.Svc.Authenticate(req.Password); err != nil {
		if errors.Is(err, ErrNotConfigured) {
			respond.Error(c, http.StatusInternalServerError, "admin_not_configured", "Admin login is not configured", nil)
			return
		}
		respond.Error(c, http.StatusUnauthorized, "unauthorized", "Invalid password", nil)
		return
	}
	token, err := h.Signer.Sign("admin", auth.RoleAdmin, "", "")
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "Failed to issue token", nil)
		return
	}
	middleware.SetCookie(c, middleware.AdminCookie, token, h.Signer.TTL())
	respond.OK(c, gin.H{"success": true})
}

func (h *Handler) logout(c *gin.Context) {
	middleware.ClearCookie(c, middleware.AdminCookie)
	respond.OK(c, gin.H{"success": true})
}

func (h *Handler) dashboard(c *gin.Context) {
	d, err := h.Svc.Dashboard(c.Request.Context())
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "Failed to load dashboard", nil)
		return
	}
	respond.OK(c, gin.H{"success": true, "dashboard": d})
}

type grantPlanRequest struct {
	UserID string `json:"userId"`
	Plan   string `json:"plan"`
}

func (h *Handler) grantPlan(c *gin.Context) {
	var req grantPlanRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.UserID) == "" || strings.TrimSpace(req.Plan) == "" {
		respond.Error(c, http.StatusBadRequest, "invalid_request", "User ID and plan are required", nil)
		return
	}
	u, err := h.Svc.GrantPlan(c.Request.Context(), req.UserID, req.Plan)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidPlan):
			respond.Error(c, http.StatusBadRequest, "invalid_plan", "Invalid plan. Must be FREE or PRO", nil)
		case errors.Is(err, users.ErrNotFound):
			respond.Error(c, http.StatusNotFound, "not_found", "User not found", nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "Failed to grant plan access", nil)
		}
		return
	}
	respond.OK(c, gin.H{
		"success": true,
		"message": string(u.Plan) + " plan access granted successfully",
		"user": gin.H{
			"id":            u.ID,
			"email":         u.Email,
			"plan":          u.Plan,
			"hasFullAccess": u.HasFullAccess,
		},
	})
}

type approveRequest struct {
	UserID string `json:"userId"`
	Action string `json:"action"`
}

func (h *Handler) approveUser(c *gin.Context) {
	var req approveRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.UserID) == "" {
		respond.Error(c, http.StatusBadRequest, "invalid_request", "User ID and action are required", nil)
		return
	}
	status, err := h.Svc.ReviewUser(c.Request.Context(), req.UserID, req.Action)
	if err != nil {
		switch {
		case errors.Is(err, users.ErrMissingFields):
			respond.Error(c, http.StatusBadRequest, "invalid_request", "Action must be APPROVE or REJECT", nil)
		case errors.Is(err, users.ErrNotFound):
			respond.Error(c, http.StatusNotFound, "not_found", "User not found", nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "Failed to update user", nil)
		}
		return
	}
	respond.OK(c, gin.H{"success": true, "status": status})
}

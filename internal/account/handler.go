package account

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"jobfit-backend/internal/shared/server/middleware"
	"jobfit-backend/internal/shared/server/respond"
	"jobfit-backend/internal/users"
)

type Handler struct {
	Svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches the /user account routes; rg must require a user.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/me", h.me)
	rg.GET("/export-data", h.exportData)
	rg.DELETE("/delete-account", h.deleteAccount)
}

func (h *Handler) me(c *gin.Context) {
	profile, err := h.Svc.Me(c.Request.Context(), middleware.UserIDFromContext(c))
	if err != nil {
		h.writeLookupError(c, err, "Failed to load profile")
		return
	}
	respond.OK(c, gin.H{"success": true, "user": profile.User, "usage": profile.Usage})
}

func (h *Handler) exportData(c *gin.Context) {
	export, err := h.Svc.Export(c.Request.Context(), middleware.UserIDFromContext(c))
	if err != nil {
		h.writeLookupError(c, err, "Failed to export data")
		return
	}
	body, err := json.MarshalIndent(export, "", "  ")
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "Failed to export data", nil)
		return
	}
	name := "jobfit-pro-data-" + export.ExportDate.Format("2006-01-02") + ".json"
	respond.Attachment(c, name, "application/json")
	c.Data(http.StatusOK, "application/json", body)
}

func (h *Handler) deleteAccount(c *gin.Context) {
	result, err := h.Svc.DeleteAccount(c.Request.Context(), middleware.UserIDFromContext(c))
	if err != nil {
		h.writeLookupError(c, err, "Failed to delete account")
		return
	}
	middleware.ClearCookie(c, middleware.SessionCookie)
	respond.OK(c, gin.H{
		"success":        true,
		"message":        "Account deleted successfully",
		"deletedResumes": result.DeletedResumes,
	})
}

func (h *Handler) writeLookupError(c *gin.Context, err error, message string) {
	if errors.Is(err, users.ErrNotFound) {
		respond.Error(c, http.StatusNotFound, "not_found", "User not found", nil)
		return
	}
	respond.Error(c, http.StatusInternalServerError, "internal_error", message, nil)
}

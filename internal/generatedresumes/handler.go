package generatedresumes

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"jobfit-backend/internal/shared/server/middleware"
	"jobfit-backend/internal/shared/server/respond"
	"jobfit-backend/internal/shared/storage/object"
	"jobfit-backend/internal/shared/telemetry"
)

type Handler struct {
	Svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches /resumes and /resumes/download.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/resumes", h.list)
	rg.GET("/resumes/download", h.download)
}

func (h *Handler) list(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	if userID == "" {
		respond.Error(c, http.StatusUnauthorized, "unauthorized", "Unauthorized", nil)
		return
	}
	recs, err := h.Svc.History(c.Request.Context(), userID)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "Failed to fetch resumes", nil)
		return
	}
	if recs == nil {
		recs = []Record{}
	}
	respond.OK(c, gin.H{"success": true, "resumes": recs})
}

func (h *Handler) download(c *gin.Context) {
	id := strings.TrimSpace(c.Query("id"))
	if id == "" {
		respond.Error(c, http.StatusBadRequest, "validation_error", "Resume ID is required", nil)
		return
	}
	userID := middleware.UserIDFromContext(c)
	if userID == "" {
		respond.Error(c, http.StatusUnauthorized, "unauthorized", "Unauthorized", nil)
		return
	}

	rec, reader, err := h.Svc.Open(c.Request.Context(), userID, id)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			respond.Error(c, http.StatusNotFound, "not_found", "Resume not found", nil)
		case errors.Is(err, ErrForbidden):
			respond.Error(c, http.StatusForbidden, "forbidden", "Unauthorized - This resume doesn't belong to you", nil)
		case errors.Is(err, ErrNoDocument):
			respond.Error(c, http.StatusNotFound, "not_found", "Resume file data not found", nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "Failed to download resume", nil)
		}
		return
	}
	defer reader.Close()

	filename := strings.TrimSpace(c.Query("filename"))
	if filename == "" {
		filename = "resume.docx"
	}

	mimeType := rec.MimeType
	if mimeType == "" {
		mimeType = object.DocxMIME
	}
	respond.Attachment(c, filename, mimeType)
	if rec.SizeBytes > 0 {
		c.Header("Content-Length", strconv.FormatInt(rec.SizeBytes, 10))
	}
	c.Status(http.StatusOK)
	if _, err := io.Copy(c.Writer, reader); err != nil {
		telemetry.Warn("generatedresumes.download_copy_failed", map[string]any{"id": rec.ID, "error": err})
	}
}

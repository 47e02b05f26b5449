package generation

import (
	"encoding/base64"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"jobfit-backend/internal/llm"
	"jobfit-backend/internal/shared/server/middleware"
	"jobfit-backend/internal/shared/server/respond"
	"jobfit-backend/internal/usage"
)

const (
	DefaultMaxUploadBytes = 10 << 20

	aiSuggestion = "Please check your Google Gemini API Quota (likely exceeded) or Region availability."
)

// Handler exposes the generation endpoint.
type Handler struct {
	Svc            *Service
	MaxUploadBytes int64
	// Limit throttles anonymous callers; nil disables it.
	Limit gin.HandlerFunc
}

func NewHandler(svc *Service, maxUploadBytes int64, limit gin.HandlerFunc) *Handler {
	if maxUploadBytes <= 0 {
		maxUploadBytes = DefaultMaxUploadBytes
	}
	return &Handler{Svc: svc, MaxUploadBytes: maxUploadBytes, Limit: limit}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	handlers := []gin.HandlerFunc{}
	if h.Limit != nil {
		handlers = append(handlers, h.Limit)
	}
	handlers = append(handlers, h.generate)
	rg.POST("/generate-resume", handlers...)
}

type generateResponse struct {
	Success  bool         `json:"success"`
	Analysis llm.Analysis `json:"analysis"`
	FileData string       `json:"fileData"`
	FileName string       `json:"fileName"`
	ResumeID string       `json:"resumeId,omitempty"`
	Model    string       `json:"model"`
	Warnings []string     `json:"warnings"`
}

func (h *Handler) generate(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.MaxUploadBytes)

	// Parse the multipart body first so an oversized upload is reported as such.
	file, err := c.FormFile("resume")
	req := Request{
		ID:             uuid.NewString(),
		UserID:         middleware.UserIDFromContext(c),
		CompanyName:    c.PostForm("companyName"),
		JobTitle:       c.PostForm("jobTitle"),
		JobDescription: c.PostForm("jobDescription"),
	}
	c.Set(middleware.GenerationIDKey, req.ID)

	switch {
	case isTooLarge(err):
		respond.Fail(c, http.StatusRequestEntityTooLarge, gin.H{
			"error":   "File too large",
			"message": "The uploaded resume exceeds the maximum allowed size.",
		})
		return
	case err == nil:
		data, name, mimeType, readErr := readUpload(file)
		if readErr != nil {
			if isTooLarge(readErr) {
				respond.Fail(c, http.StatusRequestEntityTooLarge, gin.H{"error": "File too large"})
				return
			}
			respond.Fail(c, http.StatusBadRequest, gin.H{"error": "Could not read resume file", "message": readErr.Error()})
			return
		}
		req.File, req.FileName, req.FileMIME = data, name, mimeType
	}

	out, err := h.Svc.Generate(c.Request.Context(), req)
	if err != nil {
		var (
			denial *usage.Denial
			aiErr  *AIError
		)
		switch {
		case errors.Is(err, ErrMissingInput):
			respond.Fail(c, http.StatusBadRequest, gin.H{"error": "Missing job description or resume file"})
		case errors.Is(err, ErrUnknownAccount):
			respond.Fail(c, http.StatusUnauthorized, gin.H{"error": "Account not found", "message": "Please sign in again."})
		case errors.As(err, &denial):
			respond.Fail(c, http.StatusForbidden, gin.H{
				"error":   denial.Title,
				"message": denial.Message,
				"reason":  denial.Reason,
			})
		case errors.As(err, &aiErr):
			last := aiErr.Err.Error()
			respond.Fail(c, http.StatusInternalServerError, gin.H{
				"error":      "AI Error: " + last + ". Check console for details.",
				"details":    "Failed to generate content. " + last,
				"suggestion": aiSuggestion,
			})
		default:
			respond.Fail(c, http.StatusInternalServerError, gin.H{
				"error":   "Failed to generate resume",
				"message": err.Error(),
			})
		}
		return
	}

	c.JSON(http.StatusOK, generateResponse{
		Success:  true,
		Analysis: out.Analysis,
		FileData: base64.StdEncoding.EncodeToString(out.Document),
		FileName: out.FileName,
		ResumeID: out.RecordID,
		Model:    out.Model,
		Warnings: out.Warnings,
	})
}

func readUpload(fh *multipart.FileHeader) ([]byte, string, string, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, "", "", err
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, "", "", err
	}
	return data, strings.TrimSpace(fh.Filename), fh.Header.Get("Content-Type"), nil
}

func isTooLarge(err error) bool {
	var maxErr *http.MaxBytesError
	return errors.As(err, &maxErr)
}

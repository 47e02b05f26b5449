package respond

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"jobfit-backend/internal/shared/telemetry"
)

// ErrorBody defines the standardized error object.
type ErrorBody struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

// ErrorResponse wraps the error body.
type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

// Error sends a standardized error response.
func Error(c *gin.Context, status int, code, message string, details interface{}) {
	logError(c, status, map[string]any{"code": code, "message": message})
	c.AbortWithStatusJSON(status, ErrorResponse{
		Error: ErrorBody{
			Code:    code,
			Message: message,
			Details: details,
		},
	})
}

// Fail sends a flat error body such as {"error": "...", "message": "..."}.
// The generation and stats endpoints use this shape for front-end compatibility.
func Fail(c *gin.Context, status int, body gin.H) {
	logError(c, status, map[string]any{"message": body["error"]})
	c.AbortWithStatusJSON(status, body)
}

// logError records every error response as http.error. Client errors log at
// warn so that 5xx stay easy to alert on.
func logError(c *gin.Context, status int, fields map[string]any) {
	fields["status"] = status
	fields["path"] = c.Request.URL.Path
	fields["method"] = c.Request.Method
	fields["request_id"] = c.GetString("requestId")
	if userID := c.GetString("userId"); userID != "" {
		fields["user_id"] = userID
	}
	if anon, ok := c.Get("isAnonymous"); ok {
		fields["is_anonymous"] = anon
	}
	if genID := c.GetString("generationId"); genID != "" {
		fields["generation_id"] = genID
	}
	if status >= http.StatusInternalServerError {
		telemetry.Error("http.error", fields)
		return
	}
	telemetry.Warn("http.error", fields)
}

package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"jobfit-backend/internal/shared/metrics"
	"jobfit-backend/internal/shared/telemetry"
)

// GenerationIDKey is set by handlers that create a generation record.
const GenerationIDKey = "generationId"

// Logging writes one request.complete line per request and feeds the latency
// histogram. Server errors log at error, client errors at warn.
func Logging() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()
		elapsed := time.Since(start)
		status := c.Writer.Status()
		metrics.ObserveHTTP(c.Request.Method, c.FullPath(), status, elapsed)

		fields := []zap.Field{
			zap.String("request_id", RequestIDFromContext(c)),
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", status),
			zap.Float64("duration_ms", float64(elapsed.Microseconds())/1000.0),
			zap.String("user_id", UserIDFromContext(c)),
			zap.Bool("is_anonymous", c.GetBool(isAnonymousKey)),
			zap.String("generation_id", c.GetString(GenerationIDKey)),
			zap.String("client_ip", c.ClientIP()),
			zap.String("user_agent", c.Request.UserAgent()),
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.String("errors", c.Errors.String()))
		}

		log := telemetry.L()
		switch {
		case status >= http.StatusInternalServerError:
			log.Error("request.complete", fields...)
		case status >= http.StatusBadRequest:
			log.Warn("request.complete", fields...)
		default:
			log.Info("request.complete", fields...)
		}
	}
}

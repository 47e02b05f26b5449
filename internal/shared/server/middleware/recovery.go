package middleware

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"jobfit-backend/internal/shared/metrics"
	"jobfit-backend/internal/shared/server/respond"
	"jobfit-backend/internal/shared/telemetry"
)

// Recovery turns a handler panic into a 500 and logs it with a stack trace.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}
			metrics.IncPanic()
			telemetry.L().Error("panic",
				zap.String("request_id", RequestIDFromContext(c)),
				zap.String("user_id", UserIDFromContext(c)),
				zap.String("generation_id", c.GetString(GenerationIDKey)),
				zap.String("path", c.Request.URL.Path),
				zap.String("method", c.Request.Method),
				zap.String("error", fmt.Sprint(rec)),
				zap.StackSkip("stack", 2),
			)
			if c.Writer.Written() {
				c.Abort()
				return
			}
			respond.Error(c, http.StatusInternalServerError, "internal", "Unexpected server error", nil)
		}()
		c.Next()
	}
}

package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

const (
	SessionCookie = "user_session"
	AdminCookie   = "admin_auth"
)

// SetCookie writes an HttpOnly, SameSite=Lax cookie for the whole site.
func SetCookie(c *gin.Context, name, value string, ttl time.Duration) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(name, value, int(ttl/time.Second), "/", "", isSecure(c), true)
}

// ClearCookie expires a cookie set by SetCookie.
func ClearCookie(c *gin.Context, name string) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(name, "", -1, "/", "", isSecure(c), true)
}

func isSecure(c *gin.Context) bool {
	return c.Request.TLS != nil || c.GetHeader("X-Forwarded-Proto") == "https"
}

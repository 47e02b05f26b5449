package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"jobfit-backend/internal/shared/auth"
	"jobfit-backend/internal/shared/server/respond"
)

const (
	userIDKey      = "userId"
	userEmailKey   = "userEmail"
	userNameKey    = "userName"
	isAnonymousKey = "isAnonymous"
)

// Auth resolves the caller from a Bearer token or the session cookie.
// Callers without credentials continue as anonymous; an invalid Bearer token
// is rejected, while a stale cookie is cleared and treated as anonymous.
func Auth(signer *auth.Signer) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions {
			c.Next()
			return
		}

		authHeader := strings.TrimSpace(c.GetHeader("Authorization"))
		if authHeader != "" {
			if !strings.HasPrefix(authHeader, "Bearer ") {
				respond.Error(c, http.StatusUnauthorized, "unauthorized", "missing or invalid token", nil)
				return
			}
			token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer"))
			claims, err := signer.Verify(token)
			if err != nil || claims.Role != auth.RoleUser {
				respond.Error(c, http.StatusUnauthorized, "unauthorized", "missing or invalid token", nil)
				return
			}
			setIdentity(c, claims)
			c.Next()
			return
		}

		if cookie, err := c.Cookie(SessionCookie); err == nil && cookie != "" {
			claims, err := signer.Verify(cookie)
			if err == nil && claims.Role == auth.RoleUser {
				setIdentity(c, claims)
				c.Next()
				return
			}
			ClearCookie(c, SessionCookie)
		}

		c.Set(isAnonymousKey, true)
		c.Next()
	}
}

// RequireUser rejects anonymous callers.
func RequireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		if UserIDFromContext(c) == "" {
			respond.Error(c, http.StatusUnauthorized, "unauthorized", "login required", nil)
			return
		}
		c.Next()
	}
}

// RequireAdmin accepts only a valid admin_auth cookie.
func RequireAdmin(signer *auth.Signer) gin.HandlerFunc {
	return func(c *gin.Context) {
		cookie, err := c.Cookie(AdminCookie)
		if err != nil || cookie == "" {
			respond.Error(c, http.StatusUnauthorized, "unauthorized", "Unauthorized", nil)
			return
		}
		claims, err := signer.Verify(cookie)
		if err != nil || claims.Role != auth.RoleAdmin {
			respond.Error(c, http.StatusUnauthorized, "unauthorized", "Unauthorized", nil)
			return
		}
		c.Next()
	}
}

func setIdentity(c *gin.Context, claims auth.Claims) {
	c.Set(userIDKey, claims.Subject)
	if claims.Email != "" {
		c.Set(userEmailKey, claims.Email)
	}
	if claims.Name != "" {
		c.Set(userNameKey, claims.Name)
	}
	c.Set(isAnonymousKey, false)
}

// UserIDFromContext fetches the user ID set by the auth middleware.
func UserIDFromContext(c *gin.Context) string {
	if c == nil {
		return ""
	}
	return c.GetString(userIDKey)
}

// UserEmailFromContext fetches the user email set by the auth middleware.
func UserEmailFromContext(c *gin.Context) string {
	if c == nil {
		return ""
	}
	return c.GetString(userEmailKey)
}

// UserNameFromContext fetches the user name set by the auth middleware.
func UserNameFromContext(c *gin.Context) string {
	if c == nil {
		return ""
	}
	return c.GetString(userNameKey)
}

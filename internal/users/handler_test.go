package users_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jobfit-backend/internal/shared/auth"
	"jobfit-backend/internal/shared/server/middleware"
	"jobfit-backend/internal/users"
)

func newRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	signer, err := auth.NewSigner("secret", time.Hour, "dev")
	require.NoError(t, err)
	h := users.NewHandler(users.NewService(users.NewMemoryRepo()), signer)

	r := gin.New()
	r.Use(middleware.Auth(signer))
	api := r.Group("/api")
	h.RegisterAuthRoutes(api.Group("/auth"))
	h.RegisterProfileRoutes(api.Group("/user", middleware.RequireUser()))
	return r
}

func postJSON(r *gin.Engine, path string, body any, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	raw, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	for _, c := range cookies {
		req.AddCookie(c)
	}
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	return resp
}

func TestSignupLoginAndUpdateProfile(t *testing.T) {
	r := newRouter(t)

	resp := postJSON(r, "/api/auth/signup", map[string]string{"name": "Ada", "email": "ada@example.com", "phone": "555", "password": "pw"})
	require.Equal(t, http.StatusCreated, resp.Code)
	assert.NotContains(t, resp.Body.String(), "passwordHash")

	resp = postJSON(r, "/api/auth/signup", map[string]string{"name": "Ada", "email": "ada@example.com", "phone": "555", "password": "pw"})
	assert.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Contains(t, resp.Body.String(), "User already exists")

	resp = postJSON(r, "/api/auth/login", map[string]string{"email": "ada@example.com", "password": "bad"})
	assert.Equal(t, http.StatusUnauthorized, resp.Code)

	resp = postJSON(r, "/api/auth/login", map[string]string{"email": "ada@example.com", "password": "pw"})
	require.Equal(t, http.StatusOK, resp.Code)
	var session *http.Cookie
	for _, c := range resp.Result().Cookies() {
		if c.Name == middleware.SessionCookie {
			session = c
		}
	}
	require.NotNil(t, session)
	assert.True(t, session.HttpOnly)

	resp = postJSON(r, "/api/user/update-profile", map[string]string{"name": "Ada L", "email": "ada@example.com", "phone": "1"})
	assert.Equal(t, http.StatusUnauthorized, resp.Code)

	resp = postJSON(r, "/api/user/update-profile", map[string]string{"name": "Ada L", "email": "ada@example.com", "phone": "1"}, session)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), "Ada L")
}

func TestLogoutClearsCookie(t *testing.T) {
	r := newRouter(t)
	resp := postJSON(r, "/api/auth/logout", map[string]string{})
	require.Equal(t, http.StatusOK, resp.Code)
	assert.True(t, strings.HasPrefix(resp.Header().Get("Set-Cookie"), middleware.SessionCookie+"=;"))
}

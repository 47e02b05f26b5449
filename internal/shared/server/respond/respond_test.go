package respond

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jobfit-backend/internal/shared/telemetry"
)

func newContext(t *testing.T) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	resp := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(resp)
	c.Request = httptest.NewRequest(http.MethodGet, "/api/x", nil)
	return c, resp
}

func TestErrorWritesEnvelopeAndLogs(t *testing.T) {
	var logs bytes.Buffer
	telemetry.SetOutput(&logs)
	t.Cleanup(func() { telemetry.SetOutput(os.Stdout) })

	c, resp := newContext(t)
	c.Set("userId", "user-1")
	Error(c, http.StatusNotFound, "not_found", "User not found", nil)

	require.Equal(t, http.StatusNotFound, resp.Code)
	var body ErrorResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	assert.Equal(t, "not_found", body.Error.Code)
	assert.True(t, c.IsAborted())
	assert.Contains(t, logs.String(), `"msg":"http.error"`)
	assert.Contains(t, logs.String(), `"level":"warn"`)
	assert.Contains(t, logs.String(), `"user_id":"user-1"`)
}

func TestFailKeepsFlatBody(t *testing.T) {
	var logs bytes.Buffer
	telemetry.SetOutput(&logs)
	t.Cleanup(func() { telemetry.SetOutput(os.Stdout) })

	c, resp := newContext(t)
	Fail(c, http.StatusInternalServerError, gin.H{"error": "AI Error: x", "details": "d"})

	assert.JSONEq(t, `{"error":"AI Error: x","details":"d"}`, resp.Body.String())
	assert.Contains(t, logs.String(), `"level":"error"`)
}

func TestAttachmentStripsQuotes(t *testing.T) {
	c, resp := newContext(t)
	Attachment(c, "a\"b\r\n.json", "application/json")
	assert.Equal(t, `attachment; filename="ab.json"`, resp.Header().Get("Content-Disposition"))
}

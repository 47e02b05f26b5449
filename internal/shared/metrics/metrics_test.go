package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCountersIncrement(t *testing.T) {
	before := testutil.ToFloat64(gateDenialsTotal.WithLabelValues("daily_limit"))
	IncGateDenial("daily_limit")
	after := testutil.ToFloat64(gateDenialsTotal.WithLabelValues("daily_limit"))
	if after != before+1 {
		t.Fatalf("expected denial counter to increase by 1, got %v -> %v", before, after)
	}
}

func TestHandlerRendersPrometheusText(t *testing.T) {
	gin.SetMode(gin.TestMode)
	IncGeneration("success")
	IncAIAttempt("gemini-2.5-flash-lite", "ok")

	r := gin.New()
	r.GET("/metrics", Handler())

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	body := resp.Body.String()
	for _, name := range []string{"jobfit_generations_total", "jobfit_ai_attempts_total"} {
		if !strings.Contains(body, name) {
			t.Fatalf("expected %s in output", name)
		}
	}
}

package metrics

import (
	"database/sql"
	"errors"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds every collector exported by the service.
var Registry = prometheus.NewRegistry()

var (
	generationsTotal = promauto.With(Registry).NewCounterVec(prometheus.CounterOpts{
		Name: "jobfit_generations_total",
		Help: "Resume generation attempts by outcome.",
	}, []string{"outcome"})

	aiAttemptsTotal = promauto.With(Registry).NewCounterVec(prometheus.CounterOpts{
		Name: "jobfit_ai_attempts_total",
		Help: "AI model calls by model and outcome.",
	}, []string{"model", "outcome"})

	gateDenialsTotal = promauto.With(Registry).NewCounterVec(prometheus.CounterOpts{
		Name: "jobfit_gate_denials_total",
		Help: "Access gate denials by reason.",
	}, []string{"reason"})

	degradationsTotal = promauto.With(Registry).NewCounterVec(prometheus.CounterOpts{
		Name: "jobfit_degradations_total",
		Help: "Best-effort steps that fell back instead of failing.",
	}, []string{"stage"})

	panicsTotal = promauto.With(Registry).NewCounter(prometheus.CounterOpts{
		Name: "jobfit_http_panics_total",
		Help: "Handler panics recovered by the HTTP middleware.",
	})

	httpDuration = promauto.With(Registry).NewHistogramVec(prometheus.HistogramOpts{
		Name:    "jobfit_http_request_duration_seconds",
		Help:    "HTTP request latency by route and status class.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route", "code"})

	generationDuration = promauto.With(Registry).NewHistogram(prometheus.HistogramOpts{
		Name:    "jobfit_generation_duration_seconds",
		Help:    "End-to-end generation duration.",
		Buckets: []float64{0.5, 1, 2, 5, 10, 20, 30, 60, 120},
	})
)

func init() {
	Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
}

// IncGeneration counts a finished generation with outcome success, denied, invalid or ai_error.
func IncGeneration(outcome string) {
	generationsTotal.WithLabelValues(outcome).Inc()
}

// IncAIAttempt counts one model call.
func IncAIAttempt(model, outcome string) {
	aiAttemptsTotal.WithLabelValues(model, outcome).Inc()
}

// IncGateDenial counts an access gate denial.
func IncGateDenial(reason string) {
	gateDenialsTotal.WithLabelValues(reason).Inc()
}

// IncDegradation counts a best-effort fallback.
func IncDegradation(stage string) {
	degradationsTotal.WithLabelValues(stage).Inc()
}

// IncPanic counts a recovered handler panic.
func IncPanic() {
	panicsTotal.Inc()
}

// ObserveHTTP records one finished request. route is the matched route
// template, or "unmatched".
func ObserveHTTP(method, route string, status int, d time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	httpDuration.WithLabelValues(method, route, strconv.Itoa(status/100)+"xx").Observe(d.Seconds())
}

// ObserveGenerationDuration records the wall time of one generation.
func ObserveGenerationDuration(d time.Duration) {
	if d < 0 {
		d = 0
	}
	generationDuration.Observe(d.Seconds())
}

// RegisterDB exports pool stats for database. Only the first pool in the
// process is tracked.
func RegisterDB(database *sql.DB) {
	err := Registry.Register(collectors.NewDBStatsCollector(database, "jobfit"))
	var already prometheus.AlreadyRegisteredError
	if err != nil && !errors.As(err, &already) {
		panic(err)
	}
}

// Handler exposes metrics in Prometheus text format.
func Handler() gin.HandlerFunc {
	h := promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
	return gin.WrapH(h)
}

package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "bulwark_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
	loginAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bulwark_login_attempts_total",
			Help: "Login attempts by outcome",
		},
		[]string{"outcome"},
	)
	lockouts = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "bulwark_lockouts_total",
			Help: "Accounts locked after reaching the failure threshold",
		},
	)
	stepUpDecisions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bulwark_stepup_decisions_total",
			Help: "Step-up authorization decisions by code",
		},
		[]string{"code"},
	)
)

// PrometheusMiddleware records request duration.
func PrometheusMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		duration := time.Since(start).Seconds()
		status := strconv.Itoa(ww.Status())
		path := r.URL.Path
		if path == "" {
			path = "/"
		}
		httpRequestDuration.WithLabelValues(r.Method, path, status).Observe(duration)
	})
}

// RecordLoginAttempt counts one login attempt by outcome
// (success, failure, locked).
func RecordLoginAttempt(outcome string) {
	loginAttempts.WithLabelValues(outcome).Inc()
}

// RecordLockout counts one account crossing the failure threshold.
func RecordLockout() {
	lockouts.Inc()
}

// RecordStepUpDecision counts one step-up decision ("allowed" or the denial
// code).
func RecordStepUpDecision(code string) {
	stepUpDecisions.WithLabelValues(code).Inc()
}

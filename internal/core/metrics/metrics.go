package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	AuthzDecisions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "authz_decisions_total",
			Help: "Authorization decisions taken by the enforcement layer.",
		},
		[]string{"permission", "outcome"},
	)

	AuditEntries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "audit_entries_total",
			Help: "Audit entries persisted.",
		},
		[]string{"security_event"},
	)

	AuditWriteFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "audit_write_failures_total",
		Help: "Audit entries that could not be persisted.",
	})

	RateLimitRejections = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ratelimit_rejections_total",
		Help: "Requests rejected by the rate limiter.",
	})

	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "route", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)
)

const (
	OutcomeAllow = "allow"
	OutcomeDeny  = "deny"
	OutcomeError = "error"
)

func Handler() http.Handler {
	return promhttp.Handler()
}

// Instrument records request count and latency labelled by the chi route
// pattern, so company and user ids do not explode label cardinality.
func Instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, code: http.StatusOK}
		next.ServeHTTP(sw, r)

		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}
		status := strconv.Itoa(sw.code)

		httpRequestDuration.WithLabelValues(r.Method, route, status).Observe(time.Since(start).Seconds())
		httpRequestsTotal.WithLabelValues(r.Method, route, status).Inc()
	})
}

type statusWriter struct {
	http.ResponseWriter
	code int
}

func (w *statusWriter) WriteHeader(code int) {
	w.code = code
	w.ResponseWriter.WriteHeader(code)
}

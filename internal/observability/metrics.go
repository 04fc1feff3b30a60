package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics collects Prometheus metrics for the application.
type Metrics struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	refreshRuns     *prometheus.CounterVec
	refreshDuration prometheus.Histogram
}

// NewMetrics initialises the registry and base metrics.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cantiere_http_requests_total",
		Help: "HTTP request count by route and status.",
	}, []string{"route", "code"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "cantiere_http_request_duration_seconds",
		Help:    "HTTP request duration per route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})
	refreshRuns := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cantiere_plan_refresh_runs_total",
		Help: "Plan refresh runs by outcome (synced, skipped, failed).",
	}, []string{"outcome"})
	refreshDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cantiere_plan_refresh_duration_seconds",
		Help:    "Duration of the full reconciliation pipeline.",
		Buckets: prometheus.DefBuckets,
	})
	registry.MustRegister(requests, duration, refreshRuns, refreshDuration)
	return &Metrics{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestsTotal:   requests,
		requestDuration: duration,
		refreshRuns:     refreshRuns,
		refreshDuration: refreshDuration,
	}
}

// Handler exposes the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return m.handler
}

// ObserveRefresh records one reconciliation run.
func (m *Metrics) ObserveRefresh(outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.refreshRuns.WithLabelValues(outcome).Inc()
	m.refreshDuration.Observe(elapsed.Seconds())
}

// Middleware records request counters and durations keyed by chi route pattern.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		m.requestsTotal.WithLabelValues(route, strconv.Itoa(rec.status)).Inc()
		m.requestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

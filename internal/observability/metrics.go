package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the API's Prometheus collectors on a private registry.
type Metrics struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	reportBuilds    *prometheus.CounterVec
	reconcileRows   *prometheus.CounterVec
	feedFailures    *prometheus.CounterVec
}

// NewMetrics builds the registry with the HTTP, report and reconciliation collectors.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "bookreports_http_requests_total",
		Help: "HTTP requests by route pattern and status code.",
	}, []string{"route", "code"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "bookreports_http_request_duration_seconds",
		Help:    "HTTP request latency by route pattern.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})
	builds := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "bookreports_report_builds_total",
		Help: "Reports served, by kind and whether they came from the cache or a fresh build.",
	}, []string{"report", "source"})
	rows := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "bookreports_reconcile_rows_total",
		Help: "Reconciliation rows by outcome status.",
	}, []string{"status"})
	failures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "bookreports_source_feed_failures_total",
		Help: "Source feeds that failed and were replaced by an empty dataset.",
	}, []string{"feed"})
	registry.MustRegister(requests, duration, builds, rows, failures)
	return &Metrics{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestsTotal:   requests,
		requestDuration: duration,
		reportBuilds:    builds,
		reconcileRows:   rows,
		feedFailures:    failures,
	}
}

// ObserveReport counts one report served from the cache or built.
func (m *Metrics) ObserveReport(report string, cached bool) {
	if m == nil {
		return
	}
	source := "build"
	if cached {
		source = "cache"
	}
	m.reportBuilds.WithLabelValues(report, source).Inc()
}

// ObserveReconcile adds row counts keyed by status. Zero counts are skipped.
func (m *Metrics) ObserveReconcile(counts map[string]int) {
	if m == nil {
		return
	}
	for status, n := range counts {
		if n > 0 {
			m.reconcileRows.WithLabelValues(status).Add(float64(n))
		}
	}
}

// ObserveFeedFailures counts each failed feed once.
func (m *Metrics) ObserveFeedFailures(feeds []string) {
	if m == nil {
		return
	}
	for _, feed := range feeds {
		m.feedFailures.WithLabelValues(feed).Inc()
	}
}

// Handler serves the registry. A nil Metrics answers 503.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// Middleware records count and latency per chi route pattern, so path parameters do not
// explode label cardinality.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(&recorder, r)
		route := routePattern(r)
		m.requestsTotal.WithLabelValues(route, strconv.Itoa(recorder.status)).Inc()
		m.requestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}

// Registerer exposes the registry so job metrics can share the /metrics endpoint.
func (m *Metrics) Registerer() prometheus.Registerer {
	if m == nil {
		return prometheus.DefaultRegisterer
	}
	return m.registry
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func routePattern(r *http.Request) string {
	if routeCtx := chi.RouteContext(r.Context()); routeCtx != nil {
		if pattern := routeCtx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "unknown"
}

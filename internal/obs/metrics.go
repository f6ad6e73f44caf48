// Package obs wires Prometheus metrics for the HTTP surface.
package obs

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the HTTP instrumentation collectors. Registered on a
// private registry so tests can create instances freely.
type Metrics struct {
	registry *prometheus.Registry

	inFlight  prometheus.Gauge
	requests  *prometheus.CounterVec
	durations *prometheus.HistogramVec

	enrollments   *prometheus.CounterVec
	tokenFailures prometheus.Counter
}

// New creates and registers the collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		inFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "http_in_flight_requests",
			Help: "In-flight HTTP requests.",
		}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		}, []string{"method", "path", "status"}),
		durations: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path", "status"}),
		enrollments: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "enrollments_total",
			Help: "Enrollment outcomes by result.",
		}, []string{"result"}),
		tokenFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "token_verification_failures_total",
			Help: "Rejected identity tokens.",
		}),
	}
	m.registry.MustRegister(m.inFlight, m.requests, m.durations, m.enrollments, m.tokenFailures)
	return m
}

// Handler serves the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveEnrollment counts an enrollment outcome ("created", "duplicate",
// "rate_limited", "rejected", "error").
func (m *Metrics) ObserveEnrollment(result string) {
	m.enrollments.WithLabelValues(result).Inc()
}

// ObserveTokenFailure counts a rejected bearer token.
func (m *Metrics) ObserveTokenFailure() {
	m.tokenFailures.Inc()
}

// Instrument wraps an HTTP handler with in-flight, count, and latency
// collection. The route pattern should be used as path where available to
// keep cardinality bounded.
func (m *Metrics) Instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m.inFlight.Inc()
		defer m.inFlight.Dec()

		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, code: http.StatusOK}
		next.ServeHTTP(sw, r)

		status := strconv.Itoa(sw.code)
		m.requests.WithLabelValues(r.Method, r.URL.Path, status).Inc()
		m.durations.WithLabelValues(r.Method, r.URL.Path, status).Observe(time.Since(start).Seconds())
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

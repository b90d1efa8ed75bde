package middleware

import (
	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "oppscore"

// Metric names as exported to Prometheus.
const (
	MetricHTTPRequestsTotal     = "oppscore_http_requests_total"
	MetricHTTPRequestDuration   = "oppscore_http_request_duration_seconds"
	MetricHTTPRequestSizeBytes  = "oppscore_http_request_size_bytes"
	MetricHTTPResponseSizeBytes = "oppscore_http_response_size_bytes"
	MetricRateLimitChecks       = "oppscore_ratelimit_checks_total"
	MetricRateLimitBlocked      = "oppscore_ratelimit_blocked_total"
	MetricRateLimitStoreErrors  = "oppscore_ratelimit_store_errors_total"
)

var (
	httpLabels      = []string{"method", "path", "status"}
	rateLimitLabels = []string{"endpoint", "key_type", "scope"}

	// Batch scoring with delegated providers can run for tens of seconds.
	durationBuckets = []float64{0.005, 0.025, 0.1, 0.25, 1, 2.5, 10, 30, 60}
	// 256 B up to 16 MiB, the largest batch body the API accepts.
	sizeBuckets = prometheus.ExponentialBuckets(256, 4, 9)
)

// Metrics holds the collectors for the HTTP layer and the rate limiter.
// Safe for concurrent use.
type Metrics struct {
	requests     *prometheus.CounterVec
	duration     *prometheus.HistogramVec
	requestSize  *prometheus.HistogramVec
	responseSize *prometheus.HistogramVec

	limitChecks  *prometheus.CounterVec
	limitBlocked *prometheus.CounterVec
	storeErrors  prometheus.Counter
}

// NewMetrics builds unregistered collectors; see Register.
func NewMetrics() *Metrics {
	return &Metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace, Subsystem: "http", Name: "requests_total",
			Help: "HTTP requests served, by route template and status.",
		}, httpLabels),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace, Subsystem: "http", Name: "request_duration_seconds",
			Help:    "Time to serve an HTTP request.",
			Buckets: durationBuckets,
		}, httpLabels),
		requestSize: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace, Subsystem: "http", Name: "request_size_bytes",
			Help:    "Declared request body size.",
			Buckets: sizeBuckets,
		}, httpLabels),
		responseSize: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace, Subsystem: "http", Name: "response_size_bytes",
			Help:    "Bytes written in the response body.",
			Buckets: sizeBuckets,
		}, httpLabels),
		limitChecks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace, Subsystem: "ratelimit", Name: "checks_total",
			Help: "Requests checked against a rate limit.",
		}, rateLimitLabels),
		limitBlocked: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace, Subsystem: "ratelimit", Name: "blocked_total",
			Help: "Requests rejected with 429 by a rate limit.",
		}, rateLimitLabels),
		storeErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace, Subsystem: "ratelimit", Name: "store_errors_total",
			Help: "Rate limit store failures; the request was let through.",
		}),
	}
}

// Register adds every collector to reg, stopping at the first failure.
func (m *Metrics) Register(reg prometheus.Registerer) error {
	for _, c := range m.Collectors() {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// ObserveRateLimit counts one limiter decision. scope is "global" for the
// API-wide limit or the name given to ScopedKeyFunc.
func (m *Metrics) ObserveRateLimit(endpoint, keyType, scope string, allowed bool) {
	m.limitChecks.WithLabelValues(endpoint, keyType, scope).Inc()
	if !allowed {
		m.limitBlocked.WithLabelValues(endpoint, keyType, scope).Inc()
	}
}

// IncRateLimitStoreErrors counts a fail-open decision.
func (m *Metrics) IncRateLimitStoreErrors() {
	m.storeErrors.Inc()
}

// ObserveHTTPRequest records one served request. path must already be a
// route template.
func (m *Metrics) ObserveHTTPRequest(method, path, status string, seconds float64, requestSize, responseSize int64) {
	m.requests.WithLabelValues(method, path, status).Inc()
	m.duration.WithLabelValues(method, path, status).Observe(seconds)
	m.requestSize.WithLabelValues(method, path, status).Observe(float64(requestSize))
	m.responseSize.WithLabelValues(method, path, status).Observe(float64(responseSize))
}

// Collectors lists the collectors in registration order.
func (m *Metrics) Collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.requests, m.duration, m.requestSize, m.responseSize,
		m.limitChecks, m.limitBlocked, m.storeErrors,
	}
}

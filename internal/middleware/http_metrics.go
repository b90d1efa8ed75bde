// Package middleware provides HTTP middleware components for the API server.
package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"
)

// staticRoutes are the exact paths served by the API.
var staticRoutes = map[string]bool{
	"/":               true,
	"/v1/rank":        true,
	"/v1/rank/batch":  true,
	"/v1/score":       true,
	"/v1/score/batch": true,
	"/v1/models":      true,
	"/health":         true,
	"/ready":          true,
	"/metrics":        true,
}

// unmatchedRoute is the label used for any path the API does not serve.
const unmatchedRoute = "/{unmatched}"

// normalizePath converts paths with dynamic segments to route patterns to prevent
// cardinality explosion in metrics. This maps paths like /v1/models/default to /v1/models/{id}.
// Unknown paths collapse to a single label so scanners cannot mint new series.
func normalizePath(path string) string {
	if len(path) > 1 {
		path = strings.TrimSuffix(path, "/")
	}
	if staticRoutes[path] {
		return path
	}

	// /v1/models/{id}
	if rest, ok := strings.CutPrefix(path, "/v1/models/"); ok && rest != "" && !strings.Contains(rest, "/") {
		return "/v1/models/{id}"
	}

	return unmatchedRoute
}

// metricsResponseWriter wraps http.ResponseWriter to capture status code and response size.
type metricsResponseWriter struct {
	http.ResponseWriter
	statusCode  int
	size        int64
	wroteHeader bool
}

// WriteHeader captures the status code before writing it.
func (mrw *metricsResponseWriter) WriteHeader(code int) {
	if mrw.wroteHeader {
		return
	}
	mrw.statusCode = code
	mrw.wroteHeader = true
	mrw.ResponseWriter.WriteHeader(code)
}

// Write captures the response size and writes the data.
func (mrw *metricsResponseWriter) Write(b []byte) (int, error) {
	n, err := mrw.ResponseWriter.Write(b)
	mrw.size += int64(n)
	return n, err
}

// Unwrap returns the underlying ResponseWriter.
func (mrw *metricsResponseWriter) Unwrap() http.ResponseWriter {
	return mrw.ResponseWriter
}

// newMetricsResponseWriter creates a new metricsResponseWriter with default 200 status.
func newMetricsResponseWriter(w http.ResponseWriter) *metricsResponseWriter {
	return &metricsResponseWriter{
		ResponseWriter: w,
		statusCode:     http.StatusOK,
	}
}

// HTTPMetrics records count, latency and body sizes for every request,
// labelled by route template. /health and /ready are polled too often to be
// worth a series.
func HTTPMetrics(metrics *Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/health" || r.URL.Path == "/ready" {
				next.ServeHTTP(w, r)
				return
			}

			start := time.Now()
			mrw := newMetricsResponseWriter(w)
			next.ServeHTTP(mrw, r)

			metrics.ObserveHTTPRequest(
				r.Method,
				normalizePath(r.URL.Path),
				strconv.Itoa(mrw.statusCode),
				time.Since(start).Seconds(),
				max(r.ContentLength, 0),
				mrw.size,
			)
		})
	}
}

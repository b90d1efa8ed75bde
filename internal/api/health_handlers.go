package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/onnwee/oppscore/internal/health"
)

// HealthHandlers serves the liveness and readiness endpoints.
type HealthHandlers struct {
	checks  map[string]health.Checker
	timeout time.Duration
}

// HealthHandlersConfig configures the health check handlers.
type HealthHandlersConfig struct {
	// Checks maps a dependency name (redis, insight, narrative) to its checker.
	// A nil checker is reported as not configured.
	Checks map[string]health.Checker
	// Timeout bounds a readiness run. Zero uses health.DefaultTimeout.
	Timeout time.Duration
}

// NewHealthHandlers creates a new health check handler.
func NewHealthHandlers(config HealthHandlersConfig) *HealthHandlers {
	checks := make(map[string]health.Checker, len(config.Checks))
	for name, c := range config.Checks {
		checks[name] = c
	}
	return &HealthHandlers{
		checks:  checks,
		timeout: config.Timeout,
	}
}

// HealthResponse represents the JSON response for health checks.
type HealthResponse struct {
	Status    string            `json:"status"`
	Checks    map[string]string `json:"checks"`
	Timestamp string            `json:"timestamp"`
}

// Health handles GET /health: liveness.
// Returns 200 if the application is running and can serve requests.
func (h *HealthHandlers) Health(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}

	response := HealthResponse{
		Status:    "healthy",
		Checks:    map[string]string{"runtime": health.StatusOK},
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
	writeHealth(w, r, http.StatusOK, response)
}

// Ready handles GET /ready: readiness.
// Checks external dependencies and returns 503 if any configured one is unavailable.
func (h *HealthHandlers) Ready(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}

	results, healthy := health.Run(r.Context(), h.checks, h.timeout)
	checks := make(map[string]string, len(results)+1)
	for _, res := range results {
		checks[res.Name] = res.Status
		if res.Status == health.StatusError {
			slog.WarnContext(r.Context(), "dependency health check failed",
				"dependency", res.Name,
				"latency_ms", res.LatencyMs,
				"error", res.Error)
		}
	}
	// Metrics are always available (Prometheus registry is always initialized)
	checks["metrics"] = health.StatusOK

	status := "healthy"
	statusCode := http.StatusOK
	if !healthy {
		status = "unhealthy"
		statusCode = http.StatusServiceUnavailable
	}

	writeHealth(w, r, statusCode, HealthResponse{
		Status:    status,
		Checks:    checks,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

func writeHealth(w http.ResponseWriter, r *http.Request, status int, response HealthResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(response); err != nil {
		slog.ErrorContext(r.Context(), "failed to encode health response", "error", err)
	}
}

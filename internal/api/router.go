package api

import (
	"net/http"
)

// ServiceName is reported by the root endpoint.
const ServiceName = "oppscore-api"

// RouterConfig wires handlers into a mux.
type RouterConfig struct {
	Handlers *Handlers
	Health   *HealthHandlers
	// Metrics serves /metrics when set.
	Metrics http.Handler
	// Version is reported by the root endpoint.
	Version string
	// BatchLimiter wraps the batch endpoints when set.
	BatchLimiter func(http.Handler) http.Handler
}

// NewRouter registers every API route on a new ServeMux.
func NewRouter(config RouterConfig) *http.ServeMux {
	mux := http.NewServeMux()
	h := config.Handlers

	batchLimit := config.BatchLimiter
	if batchLimit == nil {
		batchLimit = func(next http.Handler) http.Handler { return next }
	}

	mux.HandleFunc("/v1/rank", h.Rank)
	mux.Handle("/v1/rank/batch", batchLimit(http.HandlerFunc(h.RankBatch)))
	mux.HandleFunc("/v1/score", h.Score)
	mux.Handle("/v1/score/batch", batchLimit(http.HandlerFunc(h.ScoreBatch)))
	mux.HandleFunc("/v1/models", h.ListModels)
	mux.HandleFunc("/v1/models/", h.GetModel)

	if config.Health != nil {
		mux.HandleFunc("/health", config.Health.Health)
		mux.HandleFunc("/ready", config.Health.Ready)
	}
	if config.Metrics != nil {
		mux.Handle("/metrics", config.Metrics)
	}

	version := config.Version
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		// Only handle exact root path, everything else returns 404
		if r.URL.Path != "/" {
			writeErr(w, r, ErrCodeNotFound, "The requested resource was not found")
			return
		}
		writeResponse(w, r, http.StatusOK, map[string]string{
			"service": ServiceName,
			"version": version,
		})
	})

	return mux
}

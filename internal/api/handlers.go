package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/onnwee/oppscore/internal/batch"
	"github.com/onnwee/oppscore/internal/explain"
	"github.com/onnwee/oppscore/internal/ranking"
	"github.com/onnwee/oppscore/internal/record"
	"github.com/onnwee/oppscore/internal/scoring"
	"github.com/onnwee/oppscore/internal/vectorize"
)

// DefaultMaxBatchRecords caps the records, targets or candidates in one request.
const DefaultMaxBatchRecords = 10000

// Config holds the dependencies of Handlers.
type Config struct {
	// Scorer scores single records. Usually a *scoring.Engine.
	Scorer batch.Scorer
	// Registry resolves model ids.
	Registry *scoring.Registry
	// Calibration for ranking; nil uses the defaults.
	Calibration *ranking.Calibration
	// Vectorizer options for ranking corpora.
	Vectorizer vectorize.Options
	// Composer adds narrative reasons when a rank request asks for them. Optional.
	Composer *explain.Composer
	// Runner executes batch requests.
	Runner *batch.Runner
	// MaxBatchRecords caps request sizes. Zero uses DefaultMaxBatchRecords.
	MaxBatchRecords int
	Logger          *slog.Logger
}

// Handlers serves the ranking, scoring and model endpoints.
type Handlers struct {
	scorer      batch.Scorer
	registry    *scoring.Registry
	calibration *ranking.Calibration
	vectorizer  vectorize.Options
	composer    *explain.Composer
	runner      *batch.Runner
	maxRecords  int
	logger      *slog.Logger
}

// NewHandlers creates Handlers from config.
func NewHandlers(config Config) *Handlers {
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	if config.MaxBatchRecords <= 0 {
		config.MaxBatchRecords = DefaultMaxBatchRecords
	}
	if config.Calibration == nil {
		config.Calibration = ranking.DefaultCalibration()
	}
	if config.Runner == nil && config.Scorer != nil {
		config.Runner = batch.NewRunner(batch.Config{Logger: config.Logger}, config.Scorer)
	}
	return &Handlers{
		scorer:      config.Scorer,
		registry:    config.Registry,
		calibration: config.Calibration,
		vectorizer:  config.Vectorizer,
		composer:    config.Composer,
		runner:      config.Runner,
		maxRecords:  config.MaxBatchRecords,
		logger:      config.Logger,
	}
}

// rankOptions builds ranking options from per-request overrides.
func (h *Handlers) rankOptions(threshold *float64, limit int) ranking.Options {
	return ranking.Options{
		Threshold:   threshold,
		Limit:       limit,
		Calibration: h.calibration,
		Vectorizer:  h.vectorizer,
	}
}

// model resolves a model id, writing the error response on failure.
func (h *Handlers) model(w http.ResponseWriter, r *http.Request, id string) (*scoring.ScoreModel, bool) {
	if h.registry == nil {
		if id == "" || id == scoring.DefaultModelID {
			return scoring.DefaultModel(), true
		}
		writeErr(w, r, ErrCodeNotFound, "Score model not found")
		return nil, false
	}
	m, err := h.registry.Model(id)
	if err != nil {
		writeErr(w, r, ErrCodeNotFound, "Score model not found")
		return nil, false
	}
	return m, true
}

// requireMethod writes 405 and returns false when r does not use method.
func requireMethod(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method == method {
		return true
	}
	w.Header().Set("Allow", method)
	writeErr(w, r, ErrCodeMethodNotAllowed, "Method not allowed")
	return false
}

// writeDomainError maps errors from ranking and scoring to responses.
func (h *Handlers) writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	var inputErr *record.InputError
	var cfgErr *scoring.ConfigError
	switch {
	case errors.As(err, &inputErr):
		writeErr(w, r, ErrCodeValidation, inputErr.Error())
	case errors.As(err, &cfgErr):
		writeErr(w, r, ErrCodeInvalidConfig, cfgErr.Error())
	case errors.Is(err, scoring.ErrModelNotFound):
		writeErr(w, r, ErrCodeNotFound, "Score model not found")
	default:
		slog.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "error", err)
		writeErr(w, r, ErrCodeInternal, "Internal server error")
	}
}

package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/onnwee/oppscore/internal/record"
	"github.com/onnwee/oppscore/internal/scoring"
)

// ScoreRequest is the body of POST /v1/score.
type ScoreRequest struct {
	Record  record.Record `json:"record"`
	ModelID string        `json:"model_id,omitempty"`
}

// ScoreResponse is a score result with its human-readable reasons.
type ScoreResponse struct {
	scoring.ScoreResult
	Reasons []string `json:"reasons"`
}

// ScoreBatchRequest is the body of POST /v1/score/batch.
type ScoreBatchRequest struct {
	Records []record.Record `json:"records"`
	ModelID string          `json:"model_id,omitempty"`
}

// Score handles POST /v1/score - scores one record under a model.
// A record for which no component could be scored is returned with state
// "failed" rather than as an error.
func (h *Handlers) Score(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}

	var req ScoreRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeBodyError(w, r, err)
		return
	}
	model, ok := h.model(w, r, req.ModelID)
	if !ok {
		return
	}

	result, err := h.scorer.ScoreRecord(r.Context(), req.Record, model)
	if err != nil && (result == nil || !errors.Is(err, scoring.ErrNoComponents)) {
		h.writeDomainError(w, r, err)
		return
	}

	writeResponse(w, r, http.StatusOK, ScoreResponse{
		ScoreResult: *result,
		Reasons:     scoring.ExplainScore(result),
	})
}

// ScoreBatch handles POST /v1/score/batch - scores many records under one model.
func (h *Handlers) ScoreBatch(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}

	var req ScoreBatchRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeBodyError(w, r, err)
		return
	}
	if len(req.Records) == 0 {
		writeErr(w, r, ErrCodeValidation, "records must not be empty")
		return
	}
	if len(req.Records) > h.maxRecords {
		writeErr(w, r, ErrCodeValidation, fmt.Sprintf("at most %d records per request", h.maxRecords))
		return
	}
	model, ok := h.model(w, r, req.ModelID)
	if !ok {
		return
	}

	report, err := h.runner.Score(r.Context(), req.Records, model)
	if err != nil && report == nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeBatchReport(w, r, report, err)
}

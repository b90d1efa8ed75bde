package api

import (
	"context"
	"fmt"
	"math"
	"net/http"

	"golang.org/x/sync/errgroup"

	"github.com/onnwee/oppscore/internal/ranking"
	"github.com/onnwee/oppscore/internal/record"
)

// narrativeConcurrency caps parallel narrative calls for one rank request.
const narrativeConcurrency = 4

// RankRequest is the body of POST /v1/rank.
type RankRequest struct {
	Target     record.Record   `json:"target"`
	Candidates []record.Record `json:"candidates"`
	// Threshold overrides the calibration threshold when present. 0 keeps
	// every candidate.
	Threshold *float64 `json:"threshold,omitempty"`
	// Limit overrides the calibration limit when > 0.
	Limit int `json:"limit,omitempty"`
	// Explain adds narrative reasons after the deterministic ones.
	Explain bool `json:"explain,omitempty"`
}

// RankResponse is the response of POST /v1/rank.
type RankResponse struct {
	Results []ranking.SimilarityResult `json:"results"`
	Count   int                        `json:"count"`
}

// RankBatchRequest is the body of POST /v1/rank/batch.
type RankBatchRequest struct {
	Targets   []record.Record `json:"targets"`
	Pool      []record.Record `json:"pool"`
	Threshold *float64        `json:"threshold,omitempty"`
	Limit     int             `json:"limit,omitempty"`
}

func validateRankOverrides(threshold *float64, limit int) string {
	if threshold != nil && (math.IsNaN(*threshold) || *threshold < 0 || *threshold > 1) {
		return "threshold must be between 0 and 1"
	}
	if limit < 0 {
		return "limit must not be negative"
	}
	return ""
}

// Rank handles POST /v1/rank - ranks candidates by similarity to the target.
func (h *Handlers) Rank(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}

	var req RankRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeBodyError(w, r, err)
		return
	}
	if msg := validateRankOverrides(req.Threshold, req.Limit); msg != "" {
		writeErr(w, r, ErrCodeValidation, msg)
		return
	}
	if len(req.Candidates) > h.maxRecords {
		writeErr(w, r, ErrCodeValidation, fmt.Sprintf("at most %d candidates per request", h.maxRecords))
		return
	}

	results, err := ranking.RankSimilar(req.Target, req.Candidates, h.rankOptions(req.Threshold, req.Limit))
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	if req.Explain && h.composer != nil {
		h.addNarrative(r.Context(), req.Target, req.Candidates, results)
	}

	h.logger.DebugContext(r.Context(), "ranked candidates",
		"target_id", req.Target.ID,
		"candidates", len(req.Candidates),
		"results", len(results))

	writeResponse(w, r, http.StatusOK, RankResponse{Results: results, Count: len(results)})
}

// addNarrative replaces each result's reasons with the composed ones.
// Narrative failures only drop the narrative part, so errors never surface.
func (h *Handlers) addNarrative(ctx context.Context, target record.Record, candidates []record.Record, results []ranking.SimilarityResult) {
	byID := make(map[string]record.Record, len(candidates))
	for _, c := range candidates {
		byID[c.ID] = c
	}

	var g errgroup.Group
	g.SetLimit(narrativeConcurrency)
	for i := range results {
		g.Go(func() error {
			res := &results[i]
			res.Reasons = h.composer.Explain(ctx, res.Facts(), target, byID[res.CandidateID], res.CompositeScore)
			return nil
		})
	}
	_ = g.Wait()
}

// RankBatch handles POST /v1/rank/batch - ranks every target against a shared pool.
func (h *Handlers) RankBatch(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}

	var req RankBatchRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeBodyError(w, r, err)
		return
	}
	if msg := validateRankOverrides(req.Threshold, req.Limit); msg != "" {
		writeErr(w, r, ErrCodeValidation, msg)
		return
	}
	if len(req.Targets) == 0 {
		writeErr(w, r, ErrCodeValidation, "targets must not be empty")
		return
	}
	if len(req.Targets) > h.maxRecords || len(req.Pool) > h.maxRecords {
		writeErr(w, r, ErrCodeValidation, fmt.Sprintf("at most %d targets and %d pool records per request", h.maxRecords, h.maxRecords))
		return
	}

	report, err := h.runner.Rank(r.Context(), req.Targets, req.Pool, h.rankOptions(req.Threshold, req.Limit))
	if err != nil && report == nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeBatchReport(w, r, report, err)
}

// writeBatchReport writes a batch report. Runs cut short by their timeout
// still return the partial report, flagged as canceled.
func writeBatchReport(w http.ResponseWriter, r *http.Request, report any, runErr error) {
	if runErr != nil && r.Context().Err() != nil {
		// The client is gone; nothing useful can be written.
		return
	}
	writeResponse(w, r, http.StatusOK, report)
}

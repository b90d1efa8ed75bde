package api

import (
	"net/http"
	"strings"

	"github.com/onnwee/oppscore/internal/scoring"
)

// ModelsResponse lists the configured score models.
type ModelsResponse struct {
	Models     []*scoring.ScoreModel `json:"models"`
	Priorities scoring.Priorities    `json:"priorities"`
}

// ListModels handles GET /v1/models.
func (h *Handlers) ListModels(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}

	resp := ModelsResponse{Models: []*scoring.ScoreModel{scoring.DefaultModel()}}
	if h.registry != nil {
		resp.Models = h.registry.Models()
		resp.Priorities = h.registry.Priorities()
	}
	writeResponse(w, r, http.StatusOK, resp)
}

// GetModel handles GET /v1/models/{id}.
func (h *Handlers) GetModel(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}

	id := strings.Trim(strings.TrimPrefix(r.URL.Path, "/v1/models/"), "/")
	if id == "" || strings.Contains(id, "/") {
		writeErr(w, r, ErrCodeNotFound, "Score model not found")
		return
	}
	m, ok := h.model(w, r, id)
	if !ok {
		return
	}
	writeResponse(w, r, http.StatusOK, m)
}

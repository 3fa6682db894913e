// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"net/http"
	"strings"
)

// ResultsHandler handles graded result requests.
type ResultsHandler struct {
	deps Dependencies
}

// NewResultsHandler creates a new results handler.
func NewResultsHandler(deps Dependencies) *ResultsHandler {
	return &ResultsHandler{deps: deps}
}

// HandleGetResults handles GET /api/results/{race}?gender=men|women requests.
func (h *ResultsHandler) HandleGetResults(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", ErrMethodNotAllowed)
		return
	}

	raceKey := strings.TrimPrefix(r.URL.Path, "/api/results/")
	raceKey = strings.Trim(raceKey, "/")
	if raceKey == "" {
		writeError(w, http.StatusBadRequest, "missing_race", ErrBadRequest)
		return
	}

	gender := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("gender")))

	resp, err := h.deps.Results(r.Context(), raceKey, gender)
	if err != nil {
		writePipelineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"net/http"
	"strings"
)

// SlotsHandler handles slot summary requests.
type SlotsHandler struct {
	deps Dependencies
}

// NewSlotsHandler creates a new slots handler.
func NewSlotsHandler(deps Dependencies) *SlotsHandler {
	return &SlotsHandler{deps: deps}
}

// HandleGetSlots handles GET /api/slots/{race} requests.
func (h *SlotsHandler) HandleGetSlots(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", ErrMethodNotAllowed)
		return
	}

	raceKey := strings.TrimPrefix(r.URL.Path, "/api/slots/")
	raceKey = strings.Trim(raceKey, "/")
	if raceKey == "" {
		writeError(w, http.StatusBadRequest, "missing_race", ErrBadRequest)
		return
	}

	summary, err := h.deps.SlotSummary(r.Context(), raceKey)
	if err != nil {
		writePipelineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

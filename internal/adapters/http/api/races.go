// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"net/http"
)

// RacesHandler handles race catalog requests.
type RacesHandler struct {
	deps Dependencies
}

// NewRacesHandler creates a new races handler.
func NewRacesHandler(deps Dependencies) *RacesHandler {
	return &RacesHandler{deps: deps}
}

// HandleGetRaces handles GET /api/races requests.
func (h *RacesHandler) HandleGetRaces(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", ErrMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, h.deps.Races(r.Context()))
}

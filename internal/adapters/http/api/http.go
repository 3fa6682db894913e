// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/longcourse/agegrade/internal/app"
	"github.com/longcourse/agegrade/internal/domain/model"
	"github.com/longcourse/agegrade/internal/domain/results"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	// Races lists the catalog, newest first.
	Races(ctx context.Context) []model.Race

	// Results runs the grading pipeline for one race and optional gender.
	Results(ctx context.Context, raceKey, gender string) (*app.ResultsResponse, error)

	// SlotSummary describes the slot regime and counts for a race.
	SlotSummary(ctx context.Context, raceKey string) (results.SlotSummary, error)
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler  *HealthHandler
	statsHandler   *StatsHandler
	racesHandler   *RacesHandler
	resultsHandler *ResultsHandler
	slotsHandler   *SlotsHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider) *Server {
	return &Server{
		healthHandler:  NewHealthHandler(),
		statsHandler:   NewStatsHandler(statsProvider),
		racesHandler:   NewRacesHandler(deps),
		resultsHandler: NewResultsHandler(deps),
		slotsHandler:   NewSlotsHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(ctx context.Context, mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/api/races", MetricsMiddleware(s.racesHandler.HandleGetRaces, "races"))
	mux.HandleFunc("/api/results/", MetricsMiddleware(s.resultsHandler.HandleGetResults, "results"))
	mux.HandleFunc("/api/slots/", MetricsMiddleware(s.slotsHandler.HandleGetSlots, "slots"))
}

// waitingResponse is returned with 200 when grading cannot produce entries
// yet but the condition is expected to clear on its own.
type waitingResponse struct {
	Status  string `json:"status"`
	Reason  string `json:"reason"`
	Message string `json:"message"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writePipelineError translates pipeline sentinels into HTTP responses.
// "Come back later" conditions are 200s with a waiting payload so polling
// clients do not treat them as failures.
func writePipelineError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, results.ErrUnknownRace):
		writeError(w, http.StatusNotFound, "unknown_race", err)
	case errors.Is(err, results.ErrNoEndpoint):
		writeError(w, http.StatusNotFound, "no_endpoint", err)
	case errors.Is(err, results.ErrGenderRequired):
		writeError(w, http.StatusBadRequest, "gender_required", err)
	case errors.Is(err, results.ErrNoFinishers):
		writeJSON(w, http.StatusOK, waitingResponse{
			Status:  "waiting",
			Reason:  "no_finishers",
			Message: "no finishers reported yet",
		})
	case errors.Is(err, results.ErrNoLiveData):
		writeJSON(w, http.StatusOK, waitingResponse{
			Status:  "waiting",
			Reason:  "no_live_data",
			Message: "live feed has no entries yet",
		})
	case errors.Is(err, results.ErrUpstreamTransport), errors.Is(err, results.ErrUpstreamParse):
		writeError(w, http.StatusBadGateway, "upstream_error", err)
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err)
	}
}

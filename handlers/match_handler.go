package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/arenakit/tournament-engine/services"
	"github.com/google/uuid"
)

type MatchHandler struct {
	tournamentService services.TournamentService
}

func NewMatchHandler(tournamentService services.TournamentService) *MatchHandler {
	return &MatchHandler{tournamentService: tournamentService}
}

// Start handles POST /matches/{matchID}/start.
func (h *MatchHandler) Start(w http.ResponseWriter, r *http.Request) {
	matchID, ok := parseUUIDParam(w, r, "matchID")
	if !ok {
		return
	}

	match, err := h.tournamentService.StartMatch(r.Context(), matchID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"match": match}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

type completeMatchRequest struct {
	WinnerID uuid.UUID       `json:"winner_id"`
	Metadata json.RawMessage `json:"metadata,omitempty"`
}

// Complete handles POST /matches/{matchID}/complete.
func (h *MatchHandler) Complete(w http.ResponseWriter, r *http.Request) {
	matchID, ok := parseUUIDParam(w, r, "matchID")
	if !ok {
		return
	}

	var input completeMatchRequest
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	match, err := h.tournamentService.CompleteMatch(r.Context(), matchID, input.WinnerID, input.Metadata)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"match": match}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// Timeout handles POST /matches/{matchID}/timeout. Normally the match clock
// drives timeouts; the endpoint exists for operational intervention.
func (h *MatchHandler) Timeout(w http.ResponseWriter, r *http.Request) {
	matchID, ok := parseUUIDParam(w, r, "matchID")
	if !ok {
		return
	}

	match, err := h.tournamentService.TimeoutMatch(r.Context(), matchID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"match": match}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// Remaining handles GET /matches/{matchID}/remaining.
func (h *MatchHandler) Remaining(w http.ResponseWriter, r *http.Request) {
	matchID, ok := parseUUIDParam(w, r, "matchID")
	if !ok {
		return
	}

	remaining := h.tournamentService.MatchTimeRemaining(matchID)
	response := jsonResponse{"remaining_seconds": int64(remaining.Seconds())}
	if err := writeJSON(w, http.StatusOK, response, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/arenakit/tournament-engine/models"
	"github.com/arenakit/tournament-engine/services"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

type TournamentHandler struct {
	tournamentService services.TournamentService
	viewService       services.ViewService
}

func NewTournamentHandler(tournamentService services.TournamentService, viewService services.ViewService) *TournamentHandler {
	return &TournamentHandler{
		tournamentService: tournamentService,
		viewService:       viewService,
	}
}

type createTournamentRequest struct {
	Participants []services.ParticipantInput `json:"participants"`
	Policy       models.EliminationPolicy    `json:"policy,omitempty"`
}

// Create handles POST /rooms/{roomID}/tournament.
func (h *TournamentHandler) Create(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "roomID")
	if roomID == "" {
		badRequestResponse(w, r, errMissingParam("roomID"))
		return
	}

	var input createTournamentRequest
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	tournament, err := h.tournamentService.CreateTournament(r.Context(), roomID, input.Participants, input.Policy)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	h.viewService.ApplyLocal(tournament)

	if err := writeJSON(w, http.StatusCreated, jsonResponse{"tournament": tournament}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// GetByRoom handles GET /rooms/{roomID}/tournament.
func (h *TournamentHandler) GetByRoom(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "roomID")
	if roomID == "" {
		badRequestResponse(w, r, errMissingParam("roomID"))
		return
	}

	// Serve from the projection when it is current; fall through to the
	// orchestrator otherwise.
	if view, ok := h.viewService.SnapshotByRoom(roomID); ok {
		if err := writeJSON(w, http.StatusOK, jsonResponse{"tournament": view.Tournament}, nil); err != nil {
			serverErrorResponse(w, r, err)
		}
		return
	}

	tournament, err := h.tournamentService.GetTournamentByRoom(r.Context(), roomID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"tournament": tournament}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// Start handles POST /tournaments/{tournamentID}/start.
func (h *TournamentHandler) Start(w http.ResponseWriter, r *http.Request) {
	tournamentID, ok := parseUUIDParam(w, r, "tournamentID")
	if !ok {
		return
	}

	tournament, err := h.tournamentService.StartTournament(r.Context(), tournamentID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	h.viewService.ApplyLocal(tournament)

	if err := writeJSON(w, http.StatusOK, jsonResponse{"tournament": tournament}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// GetBracket handles GET /tournaments/{tournamentID}/bracket.
func (h *TournamentHandler) GetBracket(w http.ResponseWriter, r *http.Request) {
	tournamentID, ok := parseUUIDParam(w, r, "tournamentID")
	if !ok {
		return
	}

	bracket := h.tournamentService.GetBracket(r.Context(), tournamentID)
	if bracket == nil {
		notFoundResponse(w, r)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"bracket": bracket}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// GetParticipants handles GET /tournaments/{tournamentID}/participants.
func (h *TournamentHandler) GetParticipants(w http.ResponseWriter, r *http.Request) {
	tournamentID, ok := parseUUIDParam(w, r, "tournamentID")
	if !ok {
		return
	}

	participants := h.tournamentService.GetParticipants(r.Context(), tournamentID)
	if err := writeJSON(w, http.StatusOK, jsonResponse{"participants": participants}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// GetStats handles GET /tournaments/{tournamentID}/stats.
func (h *TournamentHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	tournamentID, ok := parseUUIDParam(w, r, "tournamentID")
	if !ok {
		return
	}

	stats := h.tournamentService.GetStats(r.Context(), tournamentID)
	if stats == nil {
		notFoundResponse(w, r)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"stats": stats}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// GetCurrentRound handles GET /tournaments/{tournamentID}/current-round.
func (h *TournamentHandler) GetCurrentRound(w http.ResponseWriter, r *http.Request) {
	tournamentID, ok := parseUUIDParam(w, r, "tournamentID")
	if !ok {
		return
	}

	matches := h.tournamentService.GetCurrentRoundMatches(r.Context(), tournamentID)
	if err := writeJSON(w, http.StatusOK, jsonResponse{"matches": matches}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// GetReadiness handles GET /tournaments/{tournamentID}/readiness.
func (h *TournamentHandler) GetReadiness(w http.ResponseWriter, r *http.Request) {
	tournamentID, ok := parseUUIDParam(w, r, "tournamentID")
	if !ok {
		return
	}

	response := jsonResponse{
		"can_start": h.tournamentService.CanStart(r.Context(), tournamentID),
		"is_ready":  h.tournamentService.IsReady(r.Context(), tournamentID),
	}
	if err := writeJSON(w, http.StatusOK, response, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func parseUUIDParam(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	raw := chi.URLParam(r, name)
	id, err := uuid.Parse(raw)
	if err != nil {
		badRequestResponse(w, r, errInvalidParam(name, raw))
		return uuid.Nil, false
	}
	return id, true
}

func errMissingParam(name string) error {
	return &paramError{name: name}
}

func errInvalidParam(name, value string) error {
	return &paramError{name: name, value: value}
}

type paramError struct {
	name  string
	value string
}

func (e *paramError) Error() string {
	if e.value == "" {
		return "missing URL parameter " + e.name
	}
	data, _ := json.Marshal(e.value)
	return "invalid URL parameter " + e.name + ": " + string(data)
}

package models

import (
	"time"

	"github.com/google/uuid"
)

// TournamentStatus mirrors the ENUM stored in the tournaments table.
type TournamentStatus string

const (
	TournamentPending    TournamentStatus = "pending"
	TournamentInProgress TournamentStatus = "in_progress"
	TournamentCompleted  TournamentStatus = "completed"
)

// EliminationPolicy selects the bracket topology. Single elimination is the
// only policy implemented; the type exists so other policies can be added
// without touching the orchestrator.
type EliminationPolicy string

const (
	SingleElimination EliminationPolicy = "single_elimination"
)

// Tournament is the aggregate root. It owns its participants and matches
// transitively; all mutation goes through the orchestrator.
type Tournament struct {
	ID         uuid.UUID         `json:"id" db:"id"`
	RoomID     string            `json:"room_id" db:"room_id"`
	Policy     EliminationPolicy `json:"policy" db:"policy"`
	Status     TournamentStatus  `json:"status" db:"status"`
	Rounds     int               `json:"rounds" db:"rounds"`
	ChampionID *uuid.UUID        `json:"champion_id,omitempty" db:"champion_id"`
	CreatedAt  time.Time         `json:"created_at" db:"created_at"`
	StartedAt  *time.Time        `json:"started_at,omitempty" db:"started_at"`
	Version    int64             `json:"version" db:"version"`

	Participants []Participant `json:"participants,omitempty" db:"-"`
	Matches      []*Match      `json:"matches,omitempty" db:"-"`
}

// TournamentStats is a derived, read-only summary used by dashboards.
type TournamentStats struct {
	TournamentID     uuid.UUID        `json:"tournament_id"`
	Status           TournamentStatus `json:"status"`
	TotalRounds      int              `json:"total_rounds"`
	CurrentRound     int              `json:"current_round"`
	TotalMatches     int              `json:"total_matches"`
	FinishedMatches  int              `json:"finished_matches"`
	ActiveMatches    int              `json:"active_matches"`
	ParticipantsLeft int              `json:"participants_left"`
	ChampionID       *uuid.UUID       `json:"champion_id,omitempty"`
}

package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type MatchStatus string

const (
	MatchScheduled MatchStatus = "scheduled"
	MatchActive    MatchStatus = "active"
	MatchCompleted MatchStatus = "completed"
	MatchTimedOut  MatchStatus = "timed_out"
)

// Terminal reports whether no further transition may leave this status.
func (s MatchStatus) Terminal() bool {
	return s == MatchCompleted || s == MatchTimedOut
}

// Match is one node of the bracket. Round 0 matches are created by the
// bracket builder; later rounds are created lazily as winners advance.
// A nil P2ID on a scheduled match marks a bye.
type Match struct {
	ID           uuid.UUID       `json:"id" db:"id"`
	TournamentID uuid.UUID       `json:"tournament_id" db:"tournament_id"`
	Round        int             `json:"round" db:"round"`
	Slot         int             `json:"slot" db:"slot"`
	P1ID         *uuid.UUID      `json:"p1_id,omitempty" db:"p1_id"`
	P2ID         *uuid.UUID      `json:"p2_id,omitempty" db:"p2_id"`
	Status       MatchStatus     `json:"status" db:"status"`
	WinnerID     *uuid.UUID      `json:"winner_id,omitempty" db:"winner_id"`
	TimeLimit    time.Duration   `json:"time_limit" db:"time_limit"`
	StartedAt    *time.Time      `json:"started_at,omitempty" db:"started_at"`
	Metadata     json.RawMessage `json:"metadata,omitempty" db:"metadata"`
	Version      int64           `json:"version" db:"version"`
}

// IsBye reports whether the match has exactly one real participant and is
// therefore auto-won without play.
func (m *Match) IsBye() bool {
	return m.P1ID != nil && m.P2ID == nil
}

// HasParticipant reports whether id occupies one of the match's two slots.
func (m *Match) HasParticipant(id uuid.UUID) bool {
	if m.P1ID != nil && *m.P1ID == id {
		return true
	}
	return m.P2ID != nil && *m.P2ID == id
}

package models

import "github.com/google/uuid"

// Participant is an entrant of a single tournament. Identity is an opaque
// reference owned by the caller; whether it names a user or a team is not
// this package's concern.
// Immutable once the bracket is built, except for Eliminated, which only the
// orchestrator flips.
type Participant struct {
	ID           uuid.UUID `json:"id" db:"id"`
	TournamentID uuid.UUID `json:"tournament_id" db:"tournament_id"`
	ExternalRef  string    `json:"external_ref" db:"external_ref"`
	Position     int       `json:"position" db:"position"`
	Seed         *int      `json:"seed,omitempty" db:"seed"`
	Eliminated   bool      `json:"eliminated" db:"eliminated"`
}

package services

import (
	"errors"

	"github.com/arenakit/tournament-engine/brackets"
)

// Errors shared across services and mapped onto HTTP responses by handlers.
var (
	// ErrInvalidParticipantCount propagates the bracket builder's validation
	// failure for an empty participant list.
	ErrInvalidParticipantCount = brackets.ErrInvalidParticipantCount

	ErrTournamentAlreadyExists = errors.New("a tournament already exists for this room")
	ErrTournamentNotFound      = errors.New("tournament not found")
	ErrMatchNotFound           = errors.New("match not found")

	// ErrInvalidTransition is returned when a match or tournament is not in
	// the state an operation requires. When a clock timeout and an explicit
	// completion race, the loser receives this error; it signals "already
	// handled by the other path" and is not a failure.
	ErrInvalidTransition = errors.New("invalid state transition")

	// ErrInvalidWinner is returned when the supplied winner does not occupy
	// either slot of the match.
	ErrInvalidWinner = errors.New("winner is not a participant of this match")

	ErrUnsupportedPolicy = errors.New("unsupported elimination policy")
)

package services

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/arenakit/tournament-engine/models"
	"github.com/google/uuid"
)

// Match lifecycle: scheduled -> active -> {completed, timed_out}.
// The transitions below mutate the match in place and bump its version;
// callers hold the owning tournament's lock. Terminal states absorb every
// further transition attempt with ErrInvalidTransition, which is how a clock
// timeout racing an explicit completion is resolved.

func transitionStart(m *models.Match, now time.Time) error {
	if m.Status != models.MatchScheduled {
		return fmt.Errorf("%w: cannot start match %s in status %q", ErrInvalidTransition, m.ID, m.Status)
	}
	if m.P1ID == nil || m.P2ID == nil {
		return fmt.Errorf("%w: match %s is not fully seeded", ErrInvalidTransition, m.ID)
	}
	m.Status = models.MatchActive
	m.StartedAt = &now
	m.Version++
	return nil
}

func transitionComplete(m *models.Match, winnerID uuid.UUID, metadata json.RawMessage) error {
	if m.Status != models.MatchActive {
		return fmt.Errorf("%w: cannot complete match %s in status %q", ErrInvalidTransition, m.ID, m.Status)
	}
	if !m.HasParticipant(winnerID) {
		return fmt.Errorf("%w: %s in match %s", ErrInvalidWinner, winnerID, m.ID)
	}
	winner := winnerID
	m.Status = models.MatchCompleted
	m.WinnerID = &winner
	if metadata != nil {
		m.Metadata = metadata
	}
	m.Version++
	return nil
}

// transitionTimeout declares a winner by the documented tie-break: the first
// participant in slot order. No score channel exists in this core, so the
// rule is deliberately the simplest deterministic one.
func transitionTimeout(m *models.Match) (uuid.UUID, error) {
	if m.Status != models.MatchActive {
		return uuid.Nil, fmt.Errorf("%w: cannot time out match %s in status %q", ErrInvalidTransition, m.ID, m.Status)
	}
	var winner uuid.UUID
	switch {
	case m.P1ID != nil:
		winner = *m.P1ID
	case m.P2ID != nil:
		winner = *m.P2ID
	default:
		return uuid.Nil, fmt.Errorf("%w: match %s has no participants", ErrInvalidTransition, m.ID)
	}
	m.Status = models.MatchTimedOut
	m.WinnerID = &winner
	m.Version++
	return winner, nil
}

// transitionBye auto-completes a scheduled one-participant match without
// consuming a clock. Only the orchestrator calls this.
func transitionBye(m *models.Match) (uuid.UUID, error) {
	if m.Status != models.MatchScheduled {
		return uuid.Nil, fmt.Errorf("%w: cannot resolve bye for match %s in status %q", ErrInvalidTransition, m.ID, m.Status)
	}
	if !m.IsBye() {
		return uuid.Nil, fmt.Errorf("%w: match %s is not a bye", ErrInvalidTransition, m.ID)
	}
	winner := *m.P1ID
	m.Status = models.MatchCompleted
	m.WinnerID = &winner
	m.Version++
	return winner, nil
}

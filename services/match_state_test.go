package services

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/arenakit/tournament-engine/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newScheduledMatch(t *testing.T, seeded bool) *models.Match {
	t.Helper()
	p1 := uuid.New()
	m := &models.Match{
		ID:           uuid.New(),
		TournamentID: uuid.New(),
		Status:       models.MatchScheduled,
		P1ID:         &p1,
		TimeLimit:    time.Minute,
		Version:      1,
	}
	if seeded {
		p2 := uuid.New()
		m.P2ID = &p2
	}
	return m
}

func TestTransitionStart(t *testing.T) {
	now := time.Now().UTC()

	t.Run("scheduled and seeded", func(t *testing.T) {
		m := newScheduledMatch(t, true)
		require.NoError(t, transitionStart(m, now))
		assert.Equal(t, models.MatchActive, m.Status)
		require.NotNil(t, m.StartedAt)
		assert.Equal(t, now, *m.StartedAt)
		assert.Equal(t, int64(2), m.Version)
	})

	t.Run("missing second participant", func(t *testing.T) {
		m := newScheduledMatch(t, false)
		assert.ErrorIs(t, transitionStart(m, now), ErrInvalidTransition)
		assert.Equal(t, models.MatchScheduled, m.Status)
	})

	t.Run("already active", func(t *testing.T) {
		m := newScheduledMatch(t, true)
		require.NoError(t, transitionStart(m, now))
		assert.ErrorIs(t, transitionStart(m, now), ErrInvalidTransition)
	})
}

func TestTransitionComplete(t *testing.T) {
	now := time.Now().UTC()

	t.Run("winner and metadata recorded", func(t *testing.T) {
		m := newScheduledMatch(t, true)
		require.NoError(t, transitionStart(m, now))

		meta := json.RawMessage(`{"score":"2-1"}`)
		require.NoError(t, transitionComplete(m, *m.P2ID, meta))
		assert.Equal(t, models.MatchCompleted, m.Status)
		require.NotNil(t, m.WinnerID)
		assert.Equal(t, *m.P2ID, *m.WinnerID)
		assert.Equal(t, meta, m.Metadata)
		assert.Equal(t, int64(3), m.Version)
	})

	t.Run("winner not in match", func(t *testing.T) {
		m := newScheduledMatch(t, true)
		require.NoError(t, transitionStart(m, now))
		assert.ErrorIs(t, transitionComplete(m, uuid.New(), nil), ErrInvalidWinner)
		assert.Equal(t, models.MatchActive, m.Status)
	})

	t.Run("not active", func(t *testing.T) {
		m := newScheduledMatch(t, true)
		assert.ErrorIs(t, transitionComplete(m, *m.P1ID, nil), ErrInvalidTransition)
	})

	t.Run("terminal state absorbs a second completion", func(t *testing.T) {
		m := newScheduledMatch(t, true)
		require.NoError(t, transitionStart(m, now))
		require.NoError(t, transitionComplete(m, *m.P1ID, nil))

		err := transitionComplete(m, *m.P2ID, nil)
		assert.ErrorIs(t, err, ErrInvalidTransition)
		assert.Equal(t, *m.P1ID, *m.WinnerID, "first result stands")
	})
}

func TestTransitionTimeout(t *testing.T) {
	now := time.Now().UTC()

	t.Run("first slot wins the tie-break", func(t *testing.T) {
		m := newScheduledMatch(t, true)
		require.NoError(t, transitionStart(m, now))

		winner, err := transitionTimeout(m)
		require.NoError(t, err)
		assert.Equal(t, *m.P1ID, winner)
		assert.Equal(t, models.MatchTimedOut, m.Status)
		require.NotNil(t, m.WinnerID)
		assert.Equal(t, winner, *m.WinnerID)
	})

	t.Run("completed match cannot time out", func(t *testing.T) {
		m := newScheduledMatch(t, true)
		require.NoError(t, transitionStart(m, now))
		require.NoError(t, transitionComplete(m, *m.P1ID, nil))

		_, err := transitionTimeout(m)
		assert.ErrorIs(t, err, ErrInvalidTransition)
		assert.Equal(t, models.MatchCompleted, m.Status)
	})
}

func TestTransitionBye(t *testing.T) {
	t.Run("sole participant advances", func(t *testing.T) {
		m := newScheduledMatch(t, false)
		winner, err := transitionBye(m)
		require.NoError(t, err)
		assert.Equal(t, *m.P1ID, winner)
		assert.Equal(t, models.MatchCompleted, m.Status)
	})

	t.Run("fully seeded match is not a bye", func(t *testing.T) {
		m := newScheduledMatch(t, true)
		_, err := transitionBye(m)
		assert.ErrorIs(t, err, ErrInvalidTransition)
		assert.Equal(t, models.MatchScheduled, m.Status)
	})
}

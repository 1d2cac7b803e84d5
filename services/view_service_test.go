package services

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/arenakit/tournament-engine/models"
	"github.com/arenakit/tournament-engine/notifications"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type channelConsumer struct {
	events chan notifications.ChangeEvent
}

func (c *channelConsumer) Events(ctx context.Context) (<-chan notifications.ChangeEvent, error) {
	return c.events, nil
}

func (c *channelConsumer) Close() error {
	close(c.events)
	return nil
}

func viewFixture(t *testing.T) (*models.Tournament, *memoryTournamentRepository, ViewService) {
	t.Helper()
	tournament := &models.Tournament{
		ID:      uuid.New(),
		RoomID:  "room-1",
		Policy:  models.SingleElimination,
		Status:  models.TournamentPending,
		Version: 1,
	}
	repo := newMemoryTournamentRepository()
	require.NoError(t, repo.Create(context.Background(), tournament))

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return tournament, repo, NewViewService(repo, logger)
}

func TestViewService_ApplyLocal(t *testing.T) {
	tournament, _, view := viewFixture(t)

	_, ok := view.Snapshot(tournament.ID)
	assert.False(t, ok)

	view.ApplyLocal(tournament)

	snapshot, ok := view.Snapshot(tournament.ID)
	require.True(t, ok)
	assert.Equal(t, int64(1), snapshot.Version)
	assert.Equal(t, tournament.ID, snapshot.Tournament.ID)

	byRoom, ok := view.SnapshotByRoom("room-1")
	require.True(t, ok)
	assert.Equal(t, snapshot.Tournament.ID, byRoom.Tournament.ID)

	// Mutating the source afterwards must not reach the projection.
	tournament.Status = models.TournamentInProgress
	snapshot, _ = view.Snapshot(tournament.ID)
	assert.Equal(t, models.TournamentPending, snapshot.Tournament.Status)
}

func TestViewService_StaleSnapshotDiscarded(t *testing.T) {
	tournament, _, view := viewFixture(t)

	newer := snapshotTournament(tournament)
	newer.Status = models.TournamentInProgress
	newer.Version = 5
	view.ApplyLocal(newer)

	// An older snapshot arriving late changes nothing.
	view.ApplyLocal(tournament)

	snapshot, ok := view.Snapshot(tournament.ID)
	require.True(t, ok)
	assert.Equal(t, int64(5), snapshot.Version)
	assert.Equal(t, models.TournamentInProgress, snapshot.Tournament.Status)
}

func TestViewService_NotificationRefreshesFromStore(t *testing.T) {
	tournament, repo, view := viewFixture(t)
	ctx := context.Background()

	view.ApplyLocal(tournament)

	updated := snapshotTournament(tournament)
	updated.Status = models.TournamentInProgress
	updated.Version = 3
	require.NoError(t, repo.Save(ctx, updated, nil))

	view.ApplyNotification(ctx, notifications.ChangeEvent{
		Kind:         notifications.KindTournamentChanged,
		TournamentID: tournament.ID,
		RoomID:       tournament.RoomID,
		Version:      3,
	})

	snapshot, ok := view.Snapshot(tournament.ID)
	require.True(t, ok)
	assert.Equal(t, int64(3), snapshot.Version)
	assert.Equal(t, models.TournamentInProgress, snapshot.Tournament.Status)
}

func TestViewService_DuplicateNotificationIgnored(t *testing.T) {
	tournament, repo, view := viewFixture(t)
	ctx := context.Background()

	updated := snapshotTournament(tournament)
	updated.Version = 4
	require.NoError(t, repo.Save(ctx, updated, nil))
	view.ApplyLocal(updated)

	// Re-delivery at the held version must not trigger a refresh; make any
	// refresh observable by rolling the store backwards.
	stale := snapshotTournament(tournament)
	stale.Version = 2
	require.NoError(t, repo.Save(ctx, stale, nil))

	view.ApplyNotification(ctx, notifications.ChangeEvent{
		Kind:         notifications.KindTournamentChanged,
		TournamentID: tournament.ID,
		Version:      4,
	})

	snapshot, ok := view.Snapshot(tournament.ID)
	require.True(t, ok)
	assert.Equal(t, int64(4), snapshot.Version)
}

func TestViewService_NotificationForUnknownTournament(t *testing.T) {
	_, _, view := viewFixture(t)
	ctx := context.Background()

	unknown := uuid.New()
	view.ApplyNotification(ctx, notifications.ChangeEvent{
		Kind:         notifications.KindTournamentChanged,
		TournamentID: unknown,
		Version:      1,
	})

	_, ok := view.Snapshot(unknown)
	assert.False(t, ok)
}

func TestViewService_RunConsumesUntilClose(t *testing.T) {
	tournament, repo, view := viewFixture(t)
	ctx := context.Background()

	updated := snapshotTournament(tournament)
	updated.Status = models.TournamentCompleted
	updated.Version = 7
	require.NoError(t, repo.Save(ctx, updated, nil))

	consumer := &channelConsumer{events: make(chan notifications.ChangeEvent, 1)}
	done := make(chan error, 1)
	go func() {
		done <- view.Run(ctx, consumer)
	}()

	consumer.events <- notifications.ChangeEvent{
		Kind:         notifications.KindTournamentComplete,
		TournamentID: tournament.ID,
		Version:      7,
	}
	require.NoError(t, consumer.Close())

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after the consumer closed")
	}

	snapshot, ok := view.Snapshot(tournament.ID)
	require.True(t, ok)
	assert.Equal(t, int64(7), snapshot.Version)
	assert.Equal(t, models.TournamentCompleted, snapshot.Tournament.Status)
}

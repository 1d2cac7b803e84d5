package services

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/arenakit/tournament-engine/models"
	"github.com/arenakit/tournament-engine/notifications"
	"github.com/arenakit/tournament-engine/repositories"
	"github.com/google/uuid"
)

// TournamentView is one projected tournament: the latest snapshot this
// process has seen together with the version it carries.
type TournamentView struct {
	Tournament *models.Tournament `json:"tournament"`
	Version    int64              `json:"version"`
	UpdatedAt  time.Time          `json:"updated_at"`
}

// ViewService keeps a read-only projection of tournaments current for
// display. It is fed from two sides: direct orchestrator results and the
// change-notification channel. Notifications are at-least-once and unordered,
// so application is idempotent: anything at or below the held version is
// discarded.
type ViewService interface {
	ApplyLocal(t *models.Tournament)
	ApplyNotification(ctx context.Context, event notifications.ChangeEvent)
	Run(ctx context.Context, consumer notifications.Consumer) error
	Snapshot(tournamentID uuid.UUID) (*TournamentView, bool)
	SnapshotByRoom(roomID string) (*TournamentView, bool)
}

type viewService struct {
	repo   repositories.TournamentRepository
	logger *slog.Logger

	mu     sync.RWMutex
	views  map[uuid.UUID]*TournamentView
	byRoom map[string]uuid.UUID
}

func NewViewService(repo repositories.TournamentRepository, logger *slog.Logger) ViewService {
	return &viewService{
		repo:   repo,
		logger: logger,
		views:  make(map[uuid.UUID]*TournamentView),
		byRoom: make(map[string]uuid.UUID),
	}
}

func (s *viewService) ApplyLocal(t *models.Tournament) {
	if t == nil {
		return
	}
	s.store(t)
}

func (s *viewService) ApplyNotification(ctx context.Context, event notifications.ChangeEvent) {
	s.mu.RLock()
	view, ok := s.views[event.TournamentID]
	s.mu.RUnlock()
	if ok && event.Kind != notifications.KindMatchChanged && event.Version <= view.Version {
		// Stale or duplicate delivery.
		return
	}

	t, err := s.repo.GetByID(ctx, event.TournamentID)
	if err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return
		}
		s.logger.Warn("failed to refresh tournament view",
			slog.String("tournament_id", event.TournamentID.String()),
			slog.Any("error", err))
		return
	}
	s.store(t)
}

func (s *viewService) Run(ctx context.Context, consumer notifications.Consumer) error {
	events, err := consumer.Events(ctx)
	if err != nil {
		return err
	}
	for event := range events {
		s.ApplyNotification(ctx, event)
	}
	return ctx.Err()
}

func (s *viewService) Snapshot(tournamentID uuid.UUID) (*TournamentView, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	view, ok := s.views[tournamentID]
	if !ok {
		return nil, false
	}
	return view, true
}

func (s *viewService) SnapshotByRoom(roomID string) (*TournamentView, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byRoom[roomID]
	if !ok {
		return nil, false
	}
	view, ok := s.views[id]
	return view, ok
}

// store installs a snapshot unless a newer one is already held. The version
// check runs again under the write lock because refreshes race each other.
func (s *viewService) store(t *models.Tournament) {
	snapshot := snapshotTournament(t)
	s.mu.Lock()
	defer s.mu.Unlock()
	if held, ok := s.views[snapshot.ID]; ok && snapshot.Version <= held.Version {
		return
	}
	s.views[snapshot.ID] = &TournamentView{
		Tournament: snapshot,
		Version:    snapshot.Version,
		UpdatedAt:  time.Now().UTC(),
	}
	s.byRoom[snapshot.RoomID] = snapshot.ID
}

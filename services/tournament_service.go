package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/arenakit/tournament-engine/brackets"
	"github.com/arenakit/tournament-engine/clock"
	"github.com/arenakit/tournament-engine/models"
	"github.com/arenakit/tournament-engine/notifications"
	"github.com/arenakit/tournament-engine/repositories"
	"github.com/google/uuid"
)

// ParticipantInput is what a caller registers: an opaque identity reference
// and an optional seed hint. Bracket position is the input order.
type ParticipantInput struct {
	ExternalRef string `json:"external_ref"`
	Seed        *int   `json:"seed,omitempty"`
}

// TournamentService is the orchestrator: the single owner of every tournament
// aggregate it manages. Mutations on one tournament are serialized by a
// per-aggregate lock; queries observe a consistent snapshot and never mutate.
// Query operations return zero values, not errors, for unknown tournaments.
type TournamentService interface {
	CreateTournament(ctx context.Context, roomID string, entrants []ParticipantInput, policy models.EliminationPolicy) (*models.Tournament, error)
	StartTournament(ctx context.Context, tournamentID uuid.UUID) (*models.Tournament, error)
	StartMatch(ctx context.Context, matchID uuid.UUID) (*models.Match, error)
	CompleteMatch(ctx context.Context, matchID uuid.UUID, winnerID uuid.UUID, metadata json.RawMessage) (*models.Match, error)
	TimeoutMatch(ctx context.Context, matchID uuid.UUID) (*models.Match, error)

	GetTournamentByRoom(ctx context.Context, roomID string) (*models.Tournament, error)
	GetBracket(ctx context.Context, tournamentID uuid.UUID) *models.Bracket
	GetParticipants(ctx context.Context, tournamentID uuid.UUID) []models.Participant
	GetStats(ctx context.Context, tournamentID uuid.UUID) *models.TournamentStats
	GetCurrentRoundMatches(ctx context.Context, tournamentID uuid.UUID) []*models.Match
	MatchTimeRemaining(matchID uuid.UUID) time.Duration
	CanStart(ctx context.Context, tournamentID uuid.UUID) bool
	IsReady(ctx context.Context, tournamentID uuid.UUID) bool
}

type tournamentService struct {
	repo       repositories.TournamentRepository
	matchRepo  repositories.MatchRepository
	generators map[models.EliminationPolicy]brackets.BracketGenerator
	clock      clock.MatchClock
	publisher  notifications.Publisher
	hub        *brackets.Hub
	archiver   Archiver
	logger     *slog.Logger
	timeLimit  time.Duration

	mu          sync.RWMutex
	tournaments map[uuid.UUID]*tournamentState
	byRoom      map[string]uuid.UUID
	matchIndex  map[uuid.UUID]uuid.UUID
}

// tournamentState is one owned aggregate. st.mu serializes every mutation of
// the tournament; it is held only around in-memory transitions, never around
// store writes or notification publishing.
type tournamentState struct {
	mu         sync.RWMutex
	t          *models.Tournament
	matches    map[uuid.UUID]*models.Match
	slots      map[int]map[int]*models.Match
	roundSizes []int
	current    int
}

func NewTournamentService(
	repo repositories.TournamentRepository,
	matchRepo repositories.MatchRepository,
	matchClock clock.MatchClock,
	publisher notifications.Publisher,
	hub *brackets.Hub,
	archiver Archiver,
	logger *slog.Logger,
	matchTimeLimit time.Duration,
) TournamentService {
	return &tournamentService{
		repo:      repo,
		matchRepo: matchRepo,
		generators: map[models.EliminationPolicy]brackets.BracketGenerator{
			models.SingleElimination: brackets.NewSingleEliminationGenerator(),
		},
		clock:       matchClock,
		publisher:   publisher,
		hub:         hub,
		archiver:    archiver,
		logger:      logger,
		timeLimit:   matchTimeLimit,
		tournaments: make(map[uuid.UUID]*tournamentState),
		byRoom:      make(map[string]uuid.UUID),
		matchIndex:  make(map[uuid.UUID]uuid.UUID),
	}
}

// effects accumulates everything a mutation produced under the lock, so the
// external side effects (clocks, store write, notifications, broadcast) can
// run after it is released.
type clockRequest struct {
	matchID uuid.UUID
	limit   time.Duration
}

type effects struct {
	dirty     []*models.Match
	dirtySet  map[uuid.UUID]bool
	schedule  []clockRequest
	created   []uuid.UUID
	completed bool
}

func newEffects() *effects {
	return &effects{dirtySet: make(map[uuid.UUID]bool)}
}

func (e *effects) touch(m *models.Match) {
	if !e.dirtySet[m.ID] {
		e.dirtySet[m.ID] = true
		e.dirty = append(e.dirty, m)
	}
}

// --- public operations ---

func (s *tournamentService) CreateTournament(ctx context.Context, roomID string, entrants []ParticipantInput, policy models.EliminationPolicy) (*models.Tournament, error) {
	if len(entrants) == 0 {
		return nil, fmt.Errorf("%w: room %s", ErrInvalidParticipantCount, roomID)
	}
	if policy == "" {
		policy = models.SingleElimination
	}
	generator, ok := s.generators[policy]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedPolicy, policy)
	}

	s.mu.RLock()
	_, exists := s.byRoom[roomID]
	s.mu.RUnlock()
	if exists {
		return nil, fmt.Errorf("%w: room %s", ErrTournamentAlreadyExists, roomID)
	}
	// The store is the authority across instances and restarts.
	if _, err := s.repo.GetByRoom(ctx, roomID); err == nil {
		return nil, fmt.Errorf("%w: room %s", ErrTournamentAlreadyExists, roomID)
	} else if !errors.Is(err, repositories.ErrTournamentNotFound) {
		return nil, fmt.Errorf("failed to check room %s for an existing tournament: %w", roomID, err)
	}

	t := &models.Tournament{
		ID:        uuid.New(),
		RoomID:    roomID,
		Policy:    policy,
		Status:    models.TournamentPending,
		CreatedAt: time.Now().UTC(),
		Version:   1,
	}
	t.Participants = make([]models.Participant, len(entrants))
	for i, in := range entrants {
		t.Participants[i] = models.Participant{
			ID:           uuid.New(),
			TournamentID: t.ID,
			ExternalRef:  in.ExternalRef,
			Position:     i,
			Seed:         in.Seed,
		}
	}

	generated, err := generator.GenerateBracket(ctx, brackets.GenerateBracketParams{
		TournamentID: t.ID,
		Participants: t.Participants,
		TimeLimit:    s.timeLimit,
	})
	if err != nil {
		return nil, err
	}
	t.Rounds = generated.TotalRounds
	t.Matches = generated.Matches

	st := newTournamentState(t)

	s.mu.Lock()
	if _, taken := s.byRoom[roomID]; taken {
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: room %s", ErrTournamentAlreadyExists, roomID)
	}
	s.register(st)
	s.mu.Unlock()

	if err := s.repo.Create(ctx, t); err != nil {
		s.deregister(st)
		if errors.Is(err, repositories.ErrRoomConflict) {
			return nil, fmt.Errorf("%w: room %s", ErrTournamentAlreadyExists, roomID)
		}
		return nil, fmt.Errorf("failed to persist tournament for room %s: %w", roomID, err)
	}

	s.notify(ctx, t, nil, false)
	return snapshotTournament(t), nil
}

func (s *tournamentService) StartTournament(ctx context.Context, tournamentID uuid.UUID) (*models.Tournament, error) {
	st, err := s.stateByID(ctx, tournamentID)
	if err != nil {
		return nil, err
	}

	st.mu.Lock()
	if st.t.Status != models.TournamentPending {
		status := st.t.Status
		st.mu.Unlock()
		return nil, fmt.Errorf("%w: cannot start tournament in status %q", ErrInvalidTransition, status)
	}

	eff := newEffects()
	now := time.Now().UTC()
	st.t.StartedAt = &now
	st.t.Version++

	if len(st.roundSizes) == 0 {
		// Single entrant: no matches to play, the tournament is decided.
		st.t.Status = models.TournamentCompleted
		champion := st.t.Participants[0].ID
		st.t.ChampionID = &champion
		eff.completed = true
	} else {
		st.t.Status = models.TournamentInProgress
		s.beginRound(st, 0, eff)
	}

	tCopy, dirtyCopies := snapshotEffects(st, eff)
	st.mu.Unlock()

	if err := s.applyEffects(ctx, st, tCopy, dirtyCopies, eff); err != nil {
		return tCopy, err
	}
	return tCopy, nil
}

func (s *tournamentService) StartMatch(ctx context.Context, matchID uuid.UUID) (*models.Match, error) {
	st, err := s.stateByMatch(ctx, matchID)
	if err != nil {
		return nil, err
	}

	st.mu.Lock()
	m, ok := st.matches[matchID]
	if !ok {
		st.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrMatchNotFound, matchID)
	}
	if st.t.Status != models.TournamentInProgress {
		status := st.t.Status
		st.mu.Unlock()
		return nil, fmt.Errorf("%w: cannot start a match while the tournament is %q", ErrInvalidTransition, status)
	}
	if err := transitionStart(m, time.Now().UTC()); err != nil {
		st.mu.Unlock()
		return nil, err
	}
	eff := newEffects()
	eff.touch(m)
	eff.schedule = append(eff.schedule, clockRequest{matchID: m.ID, limit: m.TimeLimit})
	st.t.Version++

	result := snapshotMatch(m)
	tCopy, dirtyCopies := snapshotEffects(st, eff)
	st.mu.Unlock()

	if err := s.applyEffects(ctx, st, tCopy, dirtyCopies, eff); err != nil {
		return result, err
	}
	return result, nil
}

func (s *tournamentService) CompleteMatch(ctx context.Context, matchID uuid.UUID, winnerID uuid.UUID, metadata json.RawMessage) (*models.Match, error) {
	return s.finishMatch(ctx, matchID, func(st *tournamentState, m *models.Match) (uuid.UUID, error) {
		if err := transitionComplete(m, winnerID, metadata); err != nil {
			return uuid.Nil, err
		}
		return winnerID, nil
	})
}

func (s *tournamentService) TimeoutMatch(ctx context.Context, matchID uuid.UUID) (*models.Match, error) {
	return s.finishMatch(ctx, matchID, func(st *tournamentState, m *models.Match) (uuid.UUID, error) {
		return transitionTimeout(m)
	})
}

// finishMatch applies a terminal transition, advances the winner and, when the
// round is done, opens the next one. Completion and timeout share everything
// but the transition itself.
func (s *tournamentService) finishMatch(ctx context.Context, matchID uuid.UUID, terminal func(*tournamentState, *models.Match) (uuid.UUID, error)) (*models.Match, error) {
	st, err := s.stateByMatch(ctx, matchID)
	if err != nil {
		return nil, err
	}

	st.mu.Lock()
	m, ok := st.matches[matchID]
	if !ok {
		st.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrMatchNotFound, matchID)
	}
	// Matches only resolve inside a running tournament. Round-zero matches
	// exist while the tournament is still pending, and resolving one there
	// would let the bracket finish without the tournament ever starting.
	if st.t.Status != models.TournamentInProgress {
		status := st.t.Status
		st.mu.Unlock()
		return nil, fmt.Errorf("%w: cannot resolve a match while the tournament is %q", ErrInvalidTransition, status)
	}

	winner, err := terminal(st, m)
	if err != nil {
		st.mu.Unlock()
		return nil, err
	}
	s.clock.Cancel(m.ID)

	eff := newEffects()
	eff.touch(m)
	s.advanceWinner(st, m, winner, eff)
	if st.t.Status == models.TournamentInProgress && st.roundTerminal(st.current) {
		s.beginRound(st, st.current+1, eff)
	}
	st.t.Version++

	result := snapshotMatch(m)
	tCopy, dirtyCopies := snapshotEffects(st, eff)
	st.mu.Unlock()

	if err := s.applyEffects(ctx, st, tCopy, dirtyCopies, eff); err != nil {
		return result, err
	}
	return result, nil
}

// --- bracket progression (st.mu held) ---

// beginRound opens round r: it materializes any missing matches, resolves
// byes (cascading into later rounds when a bye chain empties the round), and
// activates every fully seeded match with its own clock.
func (s *tournamentService) beginRound(st *tournamentState, r int, eff *effects) {
	if r >= len(st.roundSizes) || st.t.Status != models.TournamentInProgress {
		return
	}
	st.current = r

	for slot := 0; slot < st.roundSizes[r]; slot++ {
		s.ensureMatch(st, r, slot, eff)
	}

	for slot := 0; slot < st.roundSizes[r]; slot++ {
		m := st.slots[r][slot]
		if m.Status == models.MatchScheduled && m.IsBye() {
			winner, err := transitionBye(m)
			if err != nil {
				continue
			}
			eff.touch(m)
			s.advanceWinner(st, m, winner, eff)
		}
	}

	if st.t.Status != models.TournamentInProgress {
		return
	}
	if st.roundTerminal(r) {
		s.beginRound(st, r+1, eff)
		return
	}

	now := time.Now().UTC()
	for slot := 0; slot < st.roundSizes[r]; slot++ {
		m := st.slots[r][slot]
		if m.Status != models.MatchScheduled || m.P1ID == nil || m.P2ID == nil {
			continue
		}
		if err := transitionStart(m, now); err != nil {
			continue
		}
		eff.touch(m)
		eff.schedule = append(eff.schedule, clockRequest{matchID: m.ID, limit: m.TimeLimit})
	}
}

// advanceWinner flips the loser's elimination flag and seeds the winner into
// the next round, creating that match lazily. Winning the final round decides
// the tournament.
func (s *tournamentService) advanceWinner(st *tournamentState, m *models.Match, winner uuid.UUID, eff *effects) {
	if loser := otherParticipant(m, winner); loser != nil {
		if p := st.participant(*loser); p != nil {
			p.Eliminated = true
		}
	}

	if m.Round == len(st.roundSizes)-1 {
		champion := winner
		st.t.Status = models.TournamentCompleted
		st.t.ChampionID = &champion
		eff.completed = true
		return
	}

	next := s.ensureMatch(st, m.Round+1, m.Slot/2, eff)
	advancing := winner
	if m.Slot%2 == 0 {
		next.P1ID = &advancing
	} else {
		next.P2ID = &advancing
	}
	next.Version++
	eff.touch(next)
}

func (s *tournamentService) ensureMatch(st *tournamentState, r, slot int, eff *effects) *models.Match {
	if row, ok := st.slots[r]; ok {
		if m, ok := row[slot]; ok {
			return m
		}
	}
	m := &models.Match{
		ID:           uuid.New(),
		TournamentID: st.t.ID,
		Round:        r,
		Slot:         slot,
		Status:       models.MatchScheduled,
		TimeLimit:    s.timeLimit,
		Version:      1,
	}
	st.addMatch(m)
	eff.touch(m)
	eff.created = append(eff.created, m.ID)
	return m
}

// --- side effects (no locks held) ---

func (s *tournamentService) applyEffects(ctx context.Context, st *tournamentState, tCopy *models.Tournament, dirty []*models.Match, eff *effects) error {
	if len(eff.created) > 0 {
		s.mu.Lock()
		for _, id := range eff.created {
			s.matchIndex[id] = tCopy.ID
		}
		s.mu.Unlock()
	}

	for _, req := range eff.schedule {
		s.clock.Schedule(req.matchID, req.limit, s.handleClockTimeout)
	}

	var saveErr error
	if err := s.repo.Save(ctx, tCopy, dirty); err != nil {
		s.logger.Error("failed to persist tournament state",
			slog.String("tournament_id", tCopy.ID.String()),
			slog.Any("error", err))
		saveErr = fmt.Errorf("failed to persist tournament %s: %w", tCopy.ID, err)
	}

	s.notify(ctx, tCopy, dirty, eff.completed)

	if eff.completed && s.archiver != nil {
		if err := s.archiver.ArchiveTournament(ctx, tCopy); err != nil {
			s.logger.Warn("failed to archive completed tournament",
				slog.String("tournament_id", tCopy.ID.String()),
				slog.Any("error", err))
		}
	}
	return saveErr
}

func (s *tournamentService) notify(ctx context.Context, t *models.Tournament, dirty []*models.Match, completed bool) {
	s.broadcast(t, completed)
	if s.publisher == nil {
		return
	}
	now := time.Now().UTC()
	events := make([]notifications.ChangeEvent, 0, len(dirty)+2)
	for _, m := range dirty {
		matchID := m.ID
		events = append(events, notifications.ChangeEvent{
			Kind:         notifications.KindMatchChanged,
			TournamentID: t.ID,
			MatchID:      &matchID,
			RoomID:       t.RoomID,
			Version:      m.Version,
			OccurredAt:   now,
		})
	}
	events = append(events, notifications.ChangeEvent{
		Kind:         notifications.KindTournamentChanged,
		TournamentID: t.ID,
		RoomID:       t.RoomID,
		Version:      t.Version,
		OccurredAt:   now,
	})
	if completed {
		events = append(events, notifications.ChangeEvent{
			Kind:         notifications.KindTournamentComplete,
			TournamentID: t.ID,
			RoomID:       t.RoomID,
			Version:      t.Version,
			OccurredAt:   now,
		})
	}
	for _, event := range events {
		if err := s.publisher.Publish(ctx, event); err != nil {
			// Delivery is at-least-once and retry belongs to the I/O layer.
			// Every event still gets its own attempt; one failed publish must
			// not swallow the completion event behind it.
			s.logger.Warn("failed to publish change event",
				slog.String("tournament_id", t.ID.String()),
				slog.String("kind", string(event.Kind)),
				slog.Any("error", err))
		}
	}
}

func (s *tournamentService) broadcast(t *models.Tournament, completed bool) {
	if s.hub == nil {
		return
	}
	msgType := "TOURNAMENT_UPDATED"
	if completed {
		msgType = "TOURNAMENT_COMPLETED"
	}
	s.hub.BroadcastToRoom(t.RoomID, brackets.WebSocketMessage{
		Type:    msgType,
		Payload: t,
		RoomID:  t.RoomID,
	})
}

func (s *tournamentService) handleClockTimeout(matchID uuid.UUID) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if _, err := s.TimeoutMatch(ctx, matchID); err != nil {
		if errors.Is(err, ErrInvalidTransition) || errors.Is(err, ErrMatchNotFound) {
			// Expected when the match was completed before the clock fired.
			s.logger.Debug("clock fired for an already resolved match",
				slog.String("match_id", matchID.String()))
			return
		}
		s.logger.Error("failed to apply match timeout",
			slog.String("match_id", matchID.String()),
			slog.Any("error", err))
	}
}

// --- queries ---

func (s *tournamentService) GetTournamentByRoom(ctx context.Context, roomID string) (*models.Tournament, error) {
	s.mu.RLock()
	id, ok := s.byRoom[roomID]
	s.mu.RUnlock()
	if ok {
		st, err := s.stateByID(ctx, id)
		if err != nil {
			return nil, err
		}
		st.mu.RLock()
		defer st.mu.RUnlock()
		return snapshotTournament(st.t), nil
	}

	t, err := s.repo.GetByRoom(ctx, roomID)
	if err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return nil, fmt.Errorf("%w: room %s", ErrTournamentNotFound, roomID)
		}
		return nil, fmt.Errorf("failed to load tournament for room %s: %w", roomID, err)
	}
	st := s.adopt(t)
	st.mu.RLock()
	defer st.mu.RUnlock()
	return snapshotTournament(st.t), nil
}

func (s *tournamentService) GetBracket(ctx context.Context, tournamentID uuid.UUID) *models.Bracket {
	st, err := s.stateByID(ctx, tournamentID)
	if err != nil {
		return nil
	}
	st.mu.RLock()
	defer st.mu.RUnlock()
	snapshot := snapshotTournament(st.t)
	bracket := models.GroupRounds(snapshot.Policy, snapshot.Rounds, snapshot.Matches)
	return &bracket
}

func (s *tournamentService) GetParticipants(ctx context.Context, tournamentID uuid.UUID) []models.Participant {
	st, err := s.stateByID(ctx, tournamentID)
	if err != nil {
		return []models.Participant{}
	}
	st.mu.RLock()
	defer st.mu.RUnlock()
	participants := make([]models.Participant, len(st.t.Participants))
	copy(participants, st.t.Participants)
	return participants
}

func (s *tournamentService) GetStats(ctx context.Context, tournamentID uuid.UUID) *models.TournamentStats {
	st, err := s.stateByID(ctx, tournamentID)
	if err != nil {
		return nil
	}
	st.mu.RLock()
	defer st.mu.RUnlock()

	stats := &models.TournamentStats{
		TournamentID: st.t.ID,
		Status:       st.t.Status,
		TotalRounds:  st.t.Rounds,
		CurrentRound: st.current,
		ChampionID:   st.t.ChampionID,
	}
	for _, m := range st.t.Matches {
		stats.TotalMatches++
		switch {
		case m.Status.Terminal():
			stats.FinishedMatches++
		case m.Status == models.MatchActive:
			stats.ActiveMatches++
		}
	}
	for i := range st.t.Participants {
		if !st.t.Participants[i].Eliminated {
			stats.ParticipantsLeft++
		}
	}
	return stats
}

func (s *tournamentService) GetCurrentRoundMatches(ctx context.Context, tournamentID uuid.UUID) []*models.Match {
	st, err := s.stateByID(ctx, tournamentID)
	if err != nil {
		return []*models.Match{}
	}
	st.mu.RLock()
	defer st.mu.RUnlock()

	row := st.slots[st.current]
	slots := make([]int, 0, len(row))
	for slot := range row {
		slots = append(slots, slot)
	}
	sort.Ints(slots)
	matches := make([]*models.Match, 0, len(slots))
	for _, slot := range slots {
		matches = append(matches, snapshotMatch(row[slot]))
	}
	return matches
}

func (s *tournamentService) MatchTimeRemaining(matchID uuid.UUID) time.Duration {
	return s.clock.Remaining(matchID)
}

func (s *tournamentService) CanStart(ctx context.Context, tournamentID uuid.UUID) bool {
	st, err := s.stateByID(ctx, tournamentID)
	if err != nil {
		return false
	}
	st.mu.RLock()
	defer st.mu.RUnlock()
	return st.t.Status == models.TournamentPending && len(st.t.Participants) >= 1
}

func (s *tournamentService) IsReady(ctx context.Context, tournamentID uuid.UUID) bool {
	st, err := s.stateByID(ctx, tournamentID)
	if err != nil {
		return false
	}
	st.mu.RLock()
	defer st.mu.RUnlock()
	return st.t.Status == models.TournamentPending && len(st.t.Participants) >= 2
}

// --- registry and hydration ---

func (s *tournamentService) register(st *tournamentState) {
	s.tournaments[st.t.ID] = st
	s.byRoom[st.t.RoomID] = st.t.ID
	for _, m := range st.t.Matches {
		s.matchIndex[m.ID] = st.t.ID
	}
}

func (s *tournamentService) deregister(st *tournamentState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tournaments, st.t.ID)
	delete(s.byRoom, st.t.RoomID)
	for _, m := range st.t.Matches {
		delete(s.matchIndex, m.ID)
	}
}

func (s *tournamentService) stateByID(ctx context.Context, id uuid.UUID) (*tournamentState, error) {
	s.mu.RLock()
	st, ok := s.tournaments[id]
	s.mu.RUnlock()
	if ok {
		return st, nil
	}

	t, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrTournamentNotFound, id)
		}
		return nil, fmt.Errorf("failed to load tournament %s: %w", id, err)
	}
	return s.adopt(t), nil
}

func (s *tournamentService) stateByMatch(ctx context.Context, matchID uuid.UUID) (*tournamentState, error) {
	s.mu.RLock()
	tournamentID, ok := s.matchIndex[matchID]
	s.mu.RUnlock()
	if ok {
		return s.stateByID(ctx, tournamentID)
	}

	if s.matchRepo == nil {
		return nil, fmt.Errorf("%w: %s", ErrMatchNotFound, matchID)
	}
	m, err := s.matchRepo.GetByID(ctx, matchID)
	if err != nil {
		if errors.Is(err, repositories.ErrMatchNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrMatchNotFound, matchID)
		}
		return nil, fmt.Errorf("failed to load match %s: %w", matchID, err)
	}
	return s.stateByID(ctx, m.TournamentID)
}

// adopt takes ownership of an aggregate loaded from the store, typically
// after a restart, and re-arms clocks for matches that were active when the
// previous owner stopped.
func (s *tournamentService) adopt(t *models.Tournament) *tournamentState {
	s.mu.Lock()
	if existing, ok := s.tournaments[t.ID]; ok {
		s.mu.Unlock()
		return existing
	}
	st := newTournamentState(t)
	s.register(st)
	s.mu.Unlock()

	now := time.Now().UTC()
	for _, m := range t.Matches {
		if m.Status != models.MatchActive || m.StartedAt == nil {
			continue
		}
		remaining := m.TimeLimit - now.Sub(*m.StartedAt)
		if remaining < 0 {
			remaining = 0
		}
		s.clock.Schedule(m.ID, remaining, s.handleClockTimeout)
	}
	return st
}

// --- aggregate helpers ---

func newTournamentState(t *models.Tournament) *tournamentState {
	st := &tournamentState{
		t:       t,
		matches: make(map[uuid.UUID]*models.Match),
		slots:   make(map[int]map[int]*models.Match),
	}
	st.roundSizes = brackets.RoundSizes(len(t.Participants))
	for _, m := range t.Matches {
		st.index(m)
	}
	st.current = st.deriveCurrentRound()
	return st
}

func (st *tournamentState) index(m *models.Match) {
	st.matches[m.ID] = m
	if _, ok := st.slots[m.Round]; !ok {
		st.slots[m.Round] = make(map[int]*models.Match)
	}
	st.slots[m.Round][m.Slot] = m
}

func (st *tournamentState) addMatch(m *models.Match) {
	st.index(m)
	st.t.Matches = append(st.t.Matches, m)
}

func (st *tournamentState) participant(id uuid.UUID) *models.Participant {
	for i := range st.t.Participants {
		if st.t.Participants[i].ID == id {
			return &st.t.Participants[i]
		}
	}
	return nil
}

func (st *tournamentState) roundTerminal(r int) bool {
	if r >= len(st.roundSizes) {
		return true
	}
	row := st.slots[r]
	if len(row) < st.roundSizes[r] {
		return false
	}
	for _, m := range row {
		if !m.Status.Terminal() {
			return false
		}
	}
	return true
}

func (st *tournamentState) deriveCurrentRound() int {
	for r := 0; r < len(st.roundSizes); r++ {
		if !st.roundTerminal(r) {
			return r
		}
	}
	if len(st.roundSizes) == 0 {
		return 0
	}
	return len(st.roundSizes) - 1
}

func otherParticipant(m *models.Match, winner uuid.UUID) *uuid.UUID {
	if m.P1ID != nil && *m.P1ID != winner {
		return m.P1ID
	}
	if m.P2ID != nil && *m.P2ID != winner {
		return m.P2ID
	}
	return nil
}

// --- snapshots (st.mu held by caller) ---

func snapshotMatch(m *models.Match) *models.Match {
	clone := *m
	return &clone
}

func snapshotTournament(t *models.Tournament) *models.Tournament {
	clone := *t
	clone.Participants = make([]models.Participant, len(t.Participants))
	copy(clone.Participants, t.Participants)
	clone.Matches = make([]*models.Match, len(t.Matches))
	for i, m := range t.Matches {
		clone.Matches[i] = snapshotMatch(m)
	}
	sort.Slice(clone.Matches, func(i, j int) bool {
		if clone.Matches[i].Round != clone.Matches[j].Round {
			return clone.Matches[i].Round < clone.Matches[j].Round
		}
		return clone.Matches[i].Slot < clone.Matches[j].Slot
	})
	return &clone
}

func snapshotEffects(st *tournamentState, eff *effects) (*models.Tournament, []*models.Match) {
	dirty := make([]*models.Match, len(eff.dirty))
	for i, m := range eff.dirty {
		dirty[i] = snapshotMatch(m)
	}
	return snapshotTournament(st.t), dirty
}

package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/arenakit/tournament-engine/models"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"golang.org/x/sync/errgroup"
)

// TournamentRepository persists the tournament aggregate. Create inserts the
// whole aggregate atomically; Save applies a mutation with an optimistic
// version guard so concurrent external writers are detected instead of
// silently overwritten.
type TournamentRepository interface {
	Create(ctx context.Context, tournament *models.Tournament) error
	Save(ctx context.Context, tournament *models.Tournament, dirtyMatches []*models.Match) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Tournament, error)
	GetByRoom(ctx context.Context, roomID string) (*models.Tournament, error)
}

type postgresTournamentRepository struct {
	db *sql.DB
}

func NewPostgresTournamentRepository(db *sql.DB) TournamentRepository {
	return &postgresTournamentRepository{db: db}
}

func (r *postgresTournamentRepository) Create(ctx context.Context, tournament *models.Tournament) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO tournaments (id, room_id, policy, status, rounds, champion_id, created_at, started_at, version)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	if _, err = tx.ExecContext(ctx, query,
		tournament.ID,
		tournament.RoomID,
		tournament.Policy,
		tournament.Status,
		tournament.Rounds,
		tournament.ChampionID,
		tournament.CreatedAt,
		tournament.StartedAt,
		tournament.Version,
	); err != nil {
		return handleTournamentError(err)
	}

	for i := range tournament.Participants {
		if err = insertParticipant(ctx, tx, &tournament.Participants[i]); err != nil {
			return err
		}
	}
	for _, m := range tournament.Matches {
		if err = upsertMatch(ctx, tx, m); err != nil {
			return err
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit tournament create: %w", err)
	}
	return nil
}

func (r *postgresTournamentRepository) Save(ctx context.Context, tournament *models.Tournament, dirtyMatches []*models.Match) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		UPDATE tournaments
		SET status = $1, champion_id = $2, started_at = $3, version = $4
		WHERE id = $5 AND version < $4`
	result, err := tx.ExecContext(ctx, query,
		tournament.Status,
		tournament.ChampionID,
		tournament.StartedAt,
		tournament.Version,
		tournament.ID,
	)
	if err != nil {
		return handleTournamentError(err)
	}
	if err = checkAffectedRows(result, ErrVersionConflict); err != nil {
		return err
	}

	for i := range tournament.Participants {
		p := &tournament.Participants[i]
		if _, err = tx.ExecContext(ctx,
			`UPDATE participants SET eliminated = $1 WHERE id = $2`,
			p.Eliminated, p.ID,
		); err != nil {
			return fmt.Errorf("failed to update participant %s: %w", p.ID, err)
		}
	}

	for _, m := range dirtyMatches {
		if err = upsertMatch(ctx, tx, m); err != nil {
			return err
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit tournament save: %w", err)
	}
	return nil
}

func (r *postgresTournamentRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Tournament, error) {
	query := `
		SELECT id, room_id, policy, status, rounds, champion_id, created_at, started_at, version
		FROM tournaments
		WHERE id = $1`
	return r.fetch(ctx, query, id)
}

func (r *postgresTournamentRepository) GetByRoom(ctx context.Context, roomID string) (*models.Tournament, error) {
	query := `
		SELECT id, room_id, policy, status, rounds, champion_id, created_at, started_at, version
		FROM tournaments
		WHERE room_id = $1`
	return r.fetch(ctx, query, roomID)
}

func (r *postgresTournamentRepository) fetch(ctx context.Context, query string, arg interface{}) (*models.Tournament, error) {
	tournament := &models.Tournament{}
	err := r.db.QueryRowContext(ctx, query, arg).Scan(
		&tournament.ID,
		&tournament.RoomID,
		&tournament.Policy,
		&tournament.Status,
		&tournament.Rounds,
		&tournament.ChampionID,
		&tournament.CreatedAt,
		&tournament.StartedAt,
		&tournament.Version,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTournamentNotFound
		}
		return nil, fmt.Errorf("failed to scan tournament: %w", err)
	}

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		participants, err := listParticipants(gCtx, r.db, tournament.ID)
		if err != nil {
			return err
		}
		tournament.Participants = participants
		return nil
	})
	g.Go(func() error {
		matches, err := listMatches(gCtx, r.db, tournament.ID)
		if err != nil {
			return err
		}
		tournament.Matches = matches
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return tournament, nil
}

func insertParticipant(ctx context.Context, exec SQLExecutor, p *models.Participant) error {
	query := `
		INSERT INTO participants (id, tournament_id, external_ref, position, seed, eliminated)
		VALUES ($1, $2, $3, $4, $5, $6)`
	if _, err := exec.ExecContext(ctx, query,
		p.ID, p.TournamentID, p.ExternalRef, p.Position, p.Seed, p.Eliminated,
	); err != nil {
		return fmt.Errorf("failed to insert participant %s: %w", p.ID, err)
	}
	return nil
}

func listParticipants(ctx context.Context, exec SQLExecutor, tournamentID uuid.UUID) ([]models.Participant, error) {
	query := `
		SELECT id, tournament_id, external_ref, position, seed, eliminated
		FROM participants
		WHERE tournament_id = $1
		ORDER BY position ASC`
	rows, err := exec.QueryContext(ctx, query, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("failed to query participants for tournament %s: %w", tournamentID, err)
	}
	defer rows.Close()

	participants := make([]models.Participant, 0)
	for rows.Next() {
		var p models.Participant
		if err := rows.Scan(&p.ID, &p.TournamentID, &p.ExternalRef, &p.Position, &p.Seed, &p.Eliminated); err != nil {
			return nil, fmt.Errorf("failed to scan participant row: %w", err)
		}
		participants = append(participants, p)
	}
	return participants, rows.Err()
}

func handleTournamentError(err error) error {
	if err == nil {
		return nil
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		// 23505: unique_violation on room_id means another tournament owns the room.
		if pqErr.Constraint == "tournaments_room_id_key" {
			return ErrRoomConflict
		}
	}
	return err
}

package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/arenakit/tournament-engine/models"
	"github.com/google/uuid"
)

var ErrMatchNotFound = errors.New("match not found")

// MatchRepository reads individual matches. Writes go through
// TournamentRepository.Save so a round advancement lands in one transaction.
type MatchRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Match, error)
	ListByTournament(ctx context.Context, tournamentID uuid.UUID) ([]*models.Match, error)
}

type postgresMatchRepository struct {
	db *sql.DB
}

func NewPostgresMatchRepository(db *sql.DB) MatchRepository {
	return &postgresMatchRepository{db: db}
}

const matchColumns = `id, tournament_id, round, slot, p1_id, p2_id, status, winner_id, time_limit_ms, started_at, metadata, version`

func (r *postgresMatchRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Match, error) {
	query := `SELECT ` + matchColumns + ` FROM matches WHERE id = $1`
	m, err := scanMatch(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMatchNotFound
		}
		return nil, fmt.Errorf("failed to scan match %s: %w", id, err)
	}
	return m, nil
}

func (r *postgresMatchRepository) ListByTournament(ctx context.Context, tournamentID uuid.UUID) ([]*models.Match, error) {
	return listMatches(ctx, r.db, tournamentID)
}

func listMatches(ctx context.Context, exec SQLExecutor, tournamentID uuid.UUID) ([]*models.Match, error) {
	query := `SELECT ` + matchColumns + ` FROM matches WHERE tournament_id = $1 ORDER BY round ASC, slot ASC`
	rows, err := exec.QueryContext(ctx, query, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("failed to query matches for tournament %s: %w", tournamentID, err)
	}
	defer rows.Close()

	matches := make([]*models.Match, 0)
	for rows.Next() {
		m, err := scanMatch(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan match row: %w", err)
		}
		matches = append(matches, m)
	}
	return matches, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanMatch(row rowScanner) (*models.Match, error) {
	m := &models.Match{}
	var timeLimitMs int64
	if err := row.Scan(
		&m.ID,
		&m.TournamentID,
		&m.Round,
		&m.Slot,
		&m.P1ID,
		&m.P2ID,
		&m.Status,
		&m.WinnerID,
		&timeLimitMs,
		&m.StartedAt,
		&m.Metadata,
		&m.Version,
	); err != nil {
		return nil, err
	}
	m.TimeLimit = millisToDuration(timeLimitMs)
	return m, nil
}

func upsertMatch(ctx context.Context, exec SQLExecutor, m *models.Match) error {
	query := `
		INSERT INTO matches (` + matchColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (id) DO UPDATE
		SET p1_id = EXCLUDED.p1_id,
		    p2_id = EXCLUDED.p2_id,
		    status = EXCLUDED.status,
		    winner_id = EXCLUDED.winner_id,
		    started_at = EXCLUDED.started_at,
		    metadata = EXCLUDED.metadata,
		    version = EXCLUDED.version
		WHERE matches.version < EXCLUDED.version`
	result, err := exec.ExecContext(ctx, query,
		m.ID,
		m.TournamentID,
		m.Round,
		m.Slot,
		m.P1ID,
		m.P2ID,
		m.Status,
		m.WinnerID,
		durationToMillis(m.TimeLimit),
		m.StartedAt,
		m.Metadata,
		m.Version,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert match %s: %w", m.ID, err)
	}
	return checkAffectedRows(result, ErrVersionConflict)
}

package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// SQLExecutor is satisfied by both *sql.DB and *sql.Tx so repository writes
// can take part in a caller-managed transaction.
type SQLExecutor interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

var (
	ErrTournamentNotFound = errors.New("tournament not found")
	ErrRoomConflict       = errors.New("a tournament already exists for this room")

	// ErrVersionConflict signals that a concurrent writer advanced the record
	// past the version this process holds. The caller must reload before
	// retrying, if it retries at all.
	ErrVersionConflict = errors.New("stored record version is newer than the update")
)

func checkAffectedRows(result sql.Result, conflictError error) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check affected rows: %w", err)
	}
	if rowsAffected == 0 {
		return conflictError
	}
	return nil
}

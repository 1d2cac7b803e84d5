// Package notifications carries "record changed" events between the
// orchestrator and projections. Delivery is at-least-once: consumers must
// tolerate duplicates and reordering, which is why every event carries the
// version of the record it describes.
package notifications

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type EventKind string

const (
	KindTournamentChanged  EventKind = "tournament_changed"
	KindMatchChanged       EventKind = "match_changed"
	KindTournamentComplete EventKind = "tournament_completed"
)

type ChangeEvent struct {
	Kind         EventKind  `json:"kind"`
	TournamentID uuid.UUID  `json:"tournament_id"`
	MatchID      *uuid.UUID `json:"match_id,omitempty"`
	RoomID       string     `json:"room_id"`
	Version      int64      `json:"version"`
	OccurredAt   time.Time  `json:"occurred_at"`
}

type Publisher interface {
	Publish(ctx context.Context, event ChangeEvent) error
}

type Consumer interface {
	// Events returns a channel of decoded change events. The channel closes
	// when ctx is done or the consumer is closed.
	Events(ctx context.Context) (<-chan ChangeEvent, error)
	Close() error
}

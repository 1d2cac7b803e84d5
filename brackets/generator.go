package brackets

import (
	"context"
	"errors"
	"time"

	"github.com/arenakit/tournament-engine/models"
	"github.com/google/uuid"
)

// ErrInvalidParticipantCount is returned when a bracket is requested for an
// empty participant list.
var ErrInvalidParticipantCount = errors.New("bracket requires at least one participant")

type GenerateBracketParams struct {
	TournamentID uuid.UUID
	Participants []models.Participant
	TimeLimit    time.Duration
}

// GeneratedBracket holds the materialized first round plus the total depth of
// the bracket. Later rounds are created lazily by the orchestrator as winners
// become known.
type GeneratedBracket struct {
	TotalRounds int
	Matches     []*models.Match
}

type BracketGenerator interface {
	GenerateBracket(ctx context.Context, params GenerateBracketParams) (*GeneratedBracket, error)

	GetName() string
}

// RoundSizes returns the match count of every round for n participants:
// ceil(n/2) for round 0, then halving (rounded up) until one match remains.
// n = 1 yields an empty slice.
func RoundSizes(n int) []int {
	if n < 2 {
		return nil
	}
	sizes := make([]int, 0, 8)
	entrants := n
	for entrants > 1 {
		matches := (entrants + 1) / 2
		sizes = append(sizes, matches)
		entrants = matches
	}
	return sizes
}

package brackets

import (
	"context"

	"github.com/arenakit/tournament-engine/models"
	"github.com/google/uuid"
)

// SingleEliminationGenerator pairs participants sequentially in registration
// order: position 0 vs 1, 2 vs 3, and so on. When the count is odd the
// trailing entrant receives a bye. Registration order is the documented
// pairing contract; Seed is carried as an ordering hint only.
type SingleEliminationGenerator struct {
}

func NewSingleEliminationGenerator() BracketGenerator {
	return &SingleEliminationGenerator{}
}

func (g *SingleEliminationGenerator) GetName() string {
	return string(models.SingleElimination)
}

func (g *SingleEliminationGenerator) GenerateBracket(ctx context.Context, params GenerateBracketParams) (*GeneratedBracket, error) {
	participants := params.Participants
	n := len(participants)

	if n == 0 {
		return nil, ErrInvalidParticipantCount
	}
	if n == 1 {
		// A one-entrant tournament has no rounds; the sole participant is
		// champion as soon as the tournament starts.
		return &GeneratedBracket{TotalRounds: 0, Matches: nil}, nil
	}

	sizes := RoundSizes(n)
	matches := make([]*models.Match, 0, sizes[0])

	for slot := 0; slot < sizes[0]; slot++ {
		p1 := participants[2*slot].ID
		m := &models.Match{
			ID:           uuid.New(),
			TournamentID: params.TournamentID,
			Round:        0,
			Slot:         slot,
			P1ID:         &p1,
			Status:       models.MatchScheduled,
			TimeLimit:    params.TimeLimit,
			Version:      1,
		}
		if 2*slot+1 < n {
			p2 := participants[2*slot+1].ID
			m.P2ID = &p2
		}
		matches = append(matches, m)
	}

	return &GeneratedBracket{
		TotalRounds: len(sizes),
		Matches:     matches,
	}, nil
}

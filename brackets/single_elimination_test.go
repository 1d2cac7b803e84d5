package brackets

import (
	"context"
	"testing"
	"time"

	"github.com/arenakit/tournament-engine/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeParticipants(t *testing.T, n int) []models.Participant {
	t.Helper()
	tournamentID := uuid.New()
	participants := make([]models.Participant, n)
	for i := 0; i < n; i++ {
		participants[i] = models.Participant{
			ID:           uuid.New(),
			TournamentID: tournamentID,
			ExternalRef:  "player-" + uuid.NewString()[:8],
			Position:     i,
		}
	}
	return participants
}

func TestRoundSizes(t *testing.T) {
	tests := []struct {
		name string
		n    int
		want []int
	}{
		{name: "zero participants", n: 0, want: nil},
		{name: "single participant", n: 1, want: nil},
		{name: "two participants", n: 2, want: []int{1}},
		{name: "three participants", n: 3, want: []int{2, 1}},
		{name: "four participants", n: 4, want: []int{2, 1}},
		{name: "five participants", n: 5, want: []int{3, 2, 1}},
		{name: "seven participants", n: 7, want: []int{4, 2, 1}},
		{name: "eight participants", n: 8, want: []int{4, 2, 1}},
		{name: "nine participants", n: 9, want: []int{5, 3, 2, 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, RoundSizes(tt.n))
		})
	}
}

func TestSingleEliminationGenerator_GetName(t *testing.T) {
	g := NewSingleEliminationGenerator()
	assert.Equal(t, string(models.SingleElimination), g.GetName())
}

func TestSingleEliminationGenerator_NoParticipants(t *testing.T) {
	g := NewSingleEliminationGenerator()
	_, err := g.GenerateBracket(context.Background(), GenerateBracketParams{
		TournamentID: uuid.New(),
	})
	assert.ErrorIs(t, err, ErrInvalidParticipantCount)
}

func TestSingleEliminationGenerator_SingleParticipant(t *testing.T) {
	g := NewSingleEliminationGenerator()
	generated, err := g.GenerateBracket(context.Background(), GenerateBracketParams{
		TournamentID: uuid.New(),
		Participants: makeParticipants(t, 1),
	})
	require.NoError(t, err)
	assert.Equal(t, 0, generated.TotalRounds)
	assert.Empty(t, generated.Matches)
}

func TestSingleEliminationGenerator_PairsInRegistrationOrder(t *testing.T) {
	g := NewSingleEliminationGenerator()
	participants := makeParticipants(t, 4)
	tournamentID := participants[0].TournamentID

	generated, err := g.GenerateBracket(context.Background(), GenerateBracketParams{
		TournamentID: tournamentID,
		Participants: participants,
		TimeLimit:    5 * time.Minute,
	})
	require.NoError(t, err)
	require.Len(t, generated.Matches, 2)
	assert.Equal(t, 2, generated.TotalRounds)

	for slot, m := range generated.Matches {
		assert.Equal(t, tournamentID, m.TournamentID)
		assert.Equal(t, 0, m.Round)
		assert.Equal(t, slot, m.Slot)
		assert.Equal(t, models.MatchScheduled, m.Status)
		assert.Equal(t, 5*time.Minute, m.TimeLimit)
		assert.Equal(t, int64(1), m.Version)
		require.NotNil(t, m.P1ID)
		require.NotNil(t, m.P2ID)
		assert.Equal(t, participants[2*slot].ID, *m.P1ID)
		assert.Equal(t, participants[2*slot+1].ID, *m.P2ID)
	}
}

func TestSingleEliminationGenerator_OddCountGetsTrailingBye(t *testing.T) {
	g := NewSingleEliminationGenerator()
	participants := makeParticipants(t, 5)

	generated, err := g.GenerateBracket(context.Background(), GenerateBracketParams{
		TournamentID: participants[0].TournamentID,
		Participants: participants,
	})
	require.NoError(t, err)
	require.Len(t, generated.Matches, 3)
	assert.Equal(t, 3, generated.TotalRounds)

	byes := 0
	for _, m := range generated.Matches {
		if m.IsBye() {
			byes++
		}
	}
	assert.Equal(t, 1, byes, "an odd field carries exactly one bye")

	last := generated.Matches[2]
	assert.True(t, last.IsBye())
	require.NotNil(t, last.P1ID)
	assert.Equal(t, participants[4].ID, *last.P1ID)
	assert.Nil(t, last.P2ID)
}

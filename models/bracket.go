package models

// Round groups the matches sharing one round number, in slot order.
type Round struct {
	Number  int      `json:"number"`
	Matches []*Match `json:"matches"`
}

// Bracket is the round-by-round view of a tournament's matches. Later rounds
// may be shorter than their eventual size while matches are still being
// created lazily.
type Bracket struct {
	Policy      EliminationPolicy `json:"policy"`
	TotalRounds int               `json:"total_rounds"`
	Rounds      []Round           `json:"rounds"`
}

// GroupRounds sorts matches into Round buckets. Matches must already be in
// round/slot order, which is how the orchestrator and repositories keep them.
func GroupRounds(policy EliminationPolicy, totalRounds int, matches []*Match) Bracket {
	b := Bracket{Policy: policy, TotalRounds: totalRounds, Rounds: []Round{}}
	byRound := make(map[int][]*Match)
	maxRound := -1
	for _, m := range matches {
		byRound[m.Round] = append(byRound[m.Round], m)
		if m.Round > maxRound {
			maxRound = m.Round
		}
	}
	for r := 0; r <= maxRound; r++ {
		b.Rounds = append(b.Rounds, Round{Number: r, Matches: byRound[r]})
	}
	return b
}

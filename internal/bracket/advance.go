package bracket

import "fmt"

// AdvanceRound writes the winners of the most recently completed round into
// the player slots of the following round. It returns the completed round and
// the indexes of the games it filled.
//
// Games 2i and 2i+1 of a round feed game i of the next round, which holds as
// long as the sequence keeps the order Schedule created it in.
func AdvanceRound(games []Game, playerCount int) (int, []int, error) {
	if err := VerifyRounds(games, playerCount); err != nil {
		return 0, nil, err
	}

	remaining := 0
	for i := range games {
		if !games[i].IsDecided() {
			remaining++
		}
	}
	if remaining == 0 {
		return 0, nil, ErrNoNextRound
	}
	// only the final is left and it already has its players
	if remaining == 1 && !games[len(games)-1].IsPlaceholder() {
		return 0, nil, ErrNoNextRound
	}

	totalRounds := Log2(playerCount)
	currentRound := totalRounds - Log2(remaining) - 1
	if currentRound < 1 {
		return 0, nil, ErrNoNextRound
	}

	var winners []*Game
	var next []int
	for i := range games {
		switch RoundForPosition(totalRounds, PositionOf(i, len(games))) {
		case currentRound:
			winners = append(winners, &games[i])
		case currentRound + 1:
			next = append(next, i)
		}
	}

	if len(winners) != 2*len(next) {
		return 0, nil, fmt.Errorf("%w: round %d has %d games feeding %d", ErrBracketCorrupt, currentRound, len(winners), len(next))
	}
	for _, g := range winners {
		if !g.IsDecided() {
			return 0, nil, fmt.Errorf("%w: round %d advanced with game %d undecided", ErrBracketCorrupt, currentRound, g.Seq)
		}
	}

	for i, idx := range next {
		g := &games[idx]
		if !g.IsPlaceholder() {
			return 0, nil, fmt.Errorf("%w: game %d of round %d already has players", ErrBracketCorrupt, g.Seq, currentRound+1)
		}
		p1 := *winners[2*i].WinnerID
		p2 := *winners[2*i+1].WinnerID
		g.Player1ID = &p1
		g.Player2ID = &p2
	}

	return currentRound, next, nil
}

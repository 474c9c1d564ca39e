package bracket

import (
	"fmt"
	"math/bits"
)

func IsPowerOfTwo(n int) bool {
	return n >= 2 && n&(n-1) == 0
}

// Log2 is floor(log2(n)) for n >= 1, computed from the bit length to stay exact
// for any bracket size.
func Log2(n int) int {
	if n < 1 {
		return 0
	}
	return bits.Len(uint(n)) - 1
}

// PositionOf converts an index in the game sequence into its position number:
// the last game of the sequence (the final) is position 1.
func PositionOf(seq, totalGames int) int {
	return totalGames - seq
}

// RoundForPosition maps a position number onto its round, 1 being the first
// round and totalRounds the final. Round r holds 2^(totalRounds-r) positions.
func RoundForPosition(totalRounds, position int) int {
	return totalRounds - Log2(position)
}

// VerifyRounds checks every stored round number against the one derived from
// the game's place in the sequence.
func VerifyRounds(games []Game, playerCount int) error {
	if !IsPowerOfTwo(playerCount) || len(games) != playerCount-1 {
		return fmt.Errorf("%w: %d games for %d players", ErrBracketCorrupt, len(games), playerCount)
	}
	totalRounds := Log2(playerCount)
	for i := range games {
		want := RoundForPosition(totalRounds, PositionOf(i, len(games)))
		if games[i].RoundNumber != want {
			return fmt.Errorf("%w: game %d stored in round %d, expected round %d", ErrBracketCorrupt, i, games[i].RoundNumber, want)
		}
	}
	return nil
}

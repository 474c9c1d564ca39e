package bracket

import (
	"math/rand/v2"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scheduled(t *testing.T, n int) []Game {
	t.Helper()
	games, err := Schedule(newTournament(at(1, 10, 0), at(20, 22, 0)), newPlayers(n), DefaultGameDuration, rand.New(rand.NewPCG(9, 9)))
	require.NoError(t, err)
	return games
}

// decideRound marks Player1 as the winner of every game in the round without
// going through RecordResult.
func decideRound(games []Game, round int) {
	for i := range games {
		if games[i].RoundNumber == round {
			games[i].WinnerID = games[i].Player1ID
		}
	}
}

func TestAdvanceRound(t *testing.T) {
	games := scheduled(t, 8)
	decideRound(games, 1)

	round, updated, err := AdvanceRound(games, 8)
	require.NoError(t, err)
	assert.Equal(t, 1, round)
	assert.Equal(t, []int{4, 5}, updated)

	assert.Equal(t, games[0].WinnerID, games[4].Player1ID)
	assert.Equal(t, games[1].WinnerID, games[4].Player2ID)
	assert.Equal(t, games[2].WinnerID, games[5].Player1ID)
	assert.Equal(t, games[3].WinnerID, games[5].Player2ID)
	assert.True(t, games[6].IsPlaceholder())

	decideRound(games, 2)
	round, updated, err = AdvanceRound(games, 8)
	require.NoError(t, err)
	assert.Equal(t, 2, round)
	assert.Equal(t, []int{6}, updated)
	assert.Equal(t, games[4].WinnerID, games[6].Player1ID)
	assert.Equal(t, games[5].WinnerID, games[6].Player2ID)
}

func TestAdvanceRoundNoNextRound(t *testing.T) {
	t.Run("final already populated", func(t *testing.T) {
		games := scheduled(t, 4)
		decideRound(games, 1)
		_, _, err := AdvanceRound(games, 4)
		require.NoError(t, err)

		_, _, err = AdvanceRound(games, 4)
		assert.ErrorIs(t, err, ErrNoNextRound)
	})

	t.Run("two player bracket", func(t *testing.T) {
		games := scheduled(t, 2)
		_, _, err := AdvanceRound(games, 2)
		assert.ErrorIs(t, err, ErrNoNextRound)
	})

	t.Run("every game decided", func(t *testing.T) {
		games := scheduled(t, 4)
		decideRound(games, 1)
		_, _, err := AdvanceRound(games, 4)
		require.NoError(t, err)
		decideRound(games, 2)

		_, _, err = AdvanceRound(games, 4)
		assert.ErrorIs(t, err, ErrNoNextRound)
	})

	t.Run("round still running", func(t *testing.T) {
		games := scheduled(t, 8)
		games[0].WinnerID = games[0].Player1ID

		_, _, err := AdvanceRound(games, 8)
		assert.ErrorIs(t, err, ErrNoNextRound)
	})
}

func TestAdvanceRoundDetectsCorruption(t *testing.T) {
	t.Run("next round already filled", func(t *testing.T) {
		games := scheduled(t, 8)
		decideRound(games, 1)
		stray := uuid.New()
		games[5].Player1ID = &stray

		_, _, err := AdvanceRound(games, 8)
		assert.ErrorIs(t, err, ErrBracketCorrupt)
	})

	t.Run("stored round mismatch", func(t *testing.T) {
		games := scheduled(t, 8)
		decideRound(games, 1)
		games[4].RoundNumber = 3

		_, _, err := AdvanceRound(games, 8)
		assert.ErrorIs(t, err, ErrBracketCorrupt)
	})

	t.Run("missing game", func(t *testing.T) {
		games := scheduled(t, 8)
		decideRound(games, 1)

		_, _, err := AdvanceRound(games[1:], 8)
		assert.ErrorIs(t, err, ErrBracketCorrupt)
	})

	t.Run("later round decided before earlier one", func(t *testing.T) {
		games := scheduled(t, 8)
		// round one has a gap while the final claims a winner
		decideRound(games, 1)
		games[2].WinnerID = nil
		w := uuid.New()
		games[6].WinnerID = &w

		_, _, err := AdvanceRound(games, 8)
		assert.ErrorIs(t, err, ErrBracketCorrupt)
	})
}

package bracket

import (
	"math/rand/v2"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newPlayers(n int) []uuid.UUID {
	players := make([]uuid.UUID, n)
	for i := range players {
		players[i] = uuid.New()
	}
	return players
}

func newTournament(start, end time.Time) *Tournament {
	return &Tournament{
		ID:      uuid.New(),
		Name:    "Spring Open",
		StartAt: start,
		EndAt:   end,
		Phase:   PhaseRegistration,
	}
}

func TestScheduleShape(t *testing.T) {
	for _, n := range []int{2, 4, 8, 16, 32} {
		players := newPlayers(n)
		tour := newTournament(at(1, 10, 0), at(9, 20, 0))

		games, err := Schedule(tour, players, DefaultGameDuration, rand.New(rand.NewPCG(1, 2)))
		require.NoError(t, err)
		require.Len(t, games, n-1)
		require.NoError(t, VerifyRounds(games, n))

		totalRounds := Log2(n)
		perRound := map[int]int{}
		seen := map[uuid.UUID]int{}
		for i, g := range games {
			assert.Equal(t, i, g.Seq)
			assert.Equal(t, tour.ID, g.TournamentID)
			assert.Nil(t, g.WinnerID)
			perRound[g.RoundNumber]++

			if g.RoundNumber == 1 {
				require.NotNil(t, g.Player1ID)
				require.NotNil(t, g.Player2ID)
				seen[*g.Player1ID]++
				seen[*g.Player2ID]++
			} else {
				assert.True(t, g.IsPlaceholder())
			}
		}

		for r := 1; r <= totalRounds; r++ {
			assert.Equal(t, 1<<(totalRounds-r), perRound[r], "n=%d round=%d", n, r)
		}
		assert.Equal(t, totalRounds, games[len(games)-1].RoundNumber)

		assert.Len(t, seen, n)
		for _, p := range players {
			assert.Equal(t, 1, seen[p])
		}
	}
}

func TestScheduleTwoPlayers(t *testing.T) {
	players := newPlayers(2)
	games, err := Schedule(newTournament(at(1, 10, 0), at(1, 11, 0)), players, DefaultGameDuration, rand.New(rand.NewPCG(7, 7)))
	require.NoError(t, err)
	require.Len(t, games, 1)

	final := games[0]
	assert.Equal(t, 1, final.RoundNumber)
	require.NotNil(t, final.Player1ID)
	require.NotNil(t, final.Player2ID)
	assert.ElementsMatch(t, players, []uuid.UUID{*final.Player1ID, *final.Player2ID})
}

func TestScheduleStartTimes(t *testing.T) {
	t.Run("single day", func(t *testing.T) {
		tour := newTournament(at(1, 10, 0), at(1, 14, 0))
		games, err := Schedule(tour, newPlayers(8), DefaultGameDuration, rand.New(rand.NewPCG(1, 2)))
		require.NoError(t, err)

		for i, g := range games {
			assert.Equal(t, at(1, 10, 0).Add(time.Duration(i)*30*time.Minute), g.StartTime, "game %d", i)
		}
	})

	t.Run("rolls over to the next day", func(t *testing.T) {
		// two hour window: four games a day
		tour := newTournament(at(1, 10, 0), at(4, 12, 0))
		games, err := Schedule(tour, newPlayers(16), DefaultGameDuration, rand.New(rand.NewPCG(1, 2)))
		require.NoError(t, err)
		require.Len(t, games, 15)

		assert.Equal(t, at(1, 10, 0), games[0].StartTime)
		assert.Equal(t, at(1, 11, 30), games[3].StartTime)
		assert.Equal(t, at(2, 10, 0), games[4].StartTime)
		assert.Equal(t, at(3, 10, 0), games[8].StartTime)
		assert.Equal(t, at(4, 11, 0), games[14].StartTime)
	})

	t.Run("window crossing midnight", func(t *testing.T) {
		tour := newTournament(at(1, 23, 0), at(2, 1, 0))
		games, err := Schedule(tour, newPlayers(4), DefaultGameDuration, rand.New(rand.NewPCG(1, 2)))
		require.NoError(t, err)

		assert.Equal(t, at(1, 23, 0), games[0].StartTime)
		assert.Equal(t, at(2, 0, 0), games[2].StartTime)
	})
}

func TestScheduleIsDeterministicForSeed(t *testing.T) {
	players := newPlayers(16)
	tour := newTournament(at(1, 10, 0), at(5, 18, 0))

	first, err := Schedule(tour, players, DefaultGameDuration, rand.New(rand.NewPCG(42, 1)))
	require.NoError(t, err)
	second, err := Schedule(tour, players, DefaultGameDuration, rand.New(rand.NewPCG(42, 1)))
	require.NoError(t, err)

	for i := range first {
		assert.Equal(t, first[i].Player1ID, second[i].Player1ID)
		assert.Equal(t, first[i].Player2ID, second[i].Player2ID)
	}
}

func TestScheduleLeavesInputUntouched(t *testing.T) {
	players := newPlayers(8)
	original := append([]uuid.UUID(nil), players...)

	_, err := Schedule(newTournament(at(1, 10, 0), at(1, 14, 0)), players, DefaultGameDuration, rand.New(rand.NewPCG(3, 4)))
	require.NoError(t, err)
	assert.Equal(t, original, players)
}

func TestScheduleRejectsBadInput(t *testing.T) {
	tour := newTournament(at(1, 10, 0), at(1, 14, 0))
	rng := rand.New(rand.NewPCG(1, 2))

	_, err := Schedule(tour, newPlayers(6), DefaultGameDuration, rng)
	assert.ErrorIs(t, err, ErrNotPowerOfTwo)

	_, err = Schedule(tour, newPlayers(1), DefaultGameDuration, rng)
	assert.ErrorIs(t, err, ErrNotPowerOfTwo)

	_, err = Schedule(newTournament(at(1, 10, 0), at(1, 10, 10)), newPlayers(4), DefaultGameDuration, rng)
	assert.ErrorIs(t, err, ErrWindowTooShort)
}

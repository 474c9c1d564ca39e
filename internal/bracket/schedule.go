package bracket

import (
	"time"

	"github.com/google/uuid"
)

// Shuffler is satisfied by *rand.Rand from math/rand/v2.
type Shuffler interface {
	Shuffle(n int, swap func(i, j int))
}

// Schedule builds every game of a single elimination bracket as one flat
// sequence. Round one games get their players from a shuffle of the
// registered players; later games are placeholders filled by AdvanceRound.
func Schedule(t *Tournament, players []uuid.UUID, gameDuration time.Duration, rng Shuffler) ([]Game, error) {
	if !IsPowerOfTwo(len(players)) {
		return nil, ErrNotPowerOfTwo
	}
	gamesPerDay := GamesPerDay(t.StartAt, t.EndAt, gameDuration)
	if gamesPerDay < 1 {
		return nil, ErrWindowTooShort
	}

	totalGames := len(players) - 1
	totalRounds := Log2(len(players))

	seeds := make([]uuid.UUID, len(players))
	copy(seeds, players)
	rng.Shuffle(len(seeds), func(i, j int) {
		seeds[i], seeds[j] = seeds[j], seeds[i]
	})

	games := make([]Game, 0, totalGames)
	dayStart := t.StartAt
	slot := 0
	next := 0

	for position := totalGames; position > 0; position-- {
		if slot == gamesPerDay {
			dayStart = dayStart.AddDate(0, 0, 1)
			slot = 0
		}

		g := Game{
			ID:           uuid.New(),
			TournamentID: t.ID,
			Seq:          len(games),
			RoundNumber:  RoundForPosition(totalRounds, position),
			StartTime:    dayStart.Add(time.Duration(slot) * gameDuration),
		}
		if g.RoundNumber == 1 {
			p1, p2 := seeds[next], seeds[next+1]
			g.Player1ID = &p1
			g.Player2ID = &p2
			next += 2
		}

		games = append(games, g)
		slot++
	}

	return games, nil
}

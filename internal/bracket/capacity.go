package bracket

import (
	"math"
	"time"
)

const DefaultGameDuration = 30 * time.Minute

func timeOfDay(t time.Time) time.Duration {
	midnight := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	return t.Sub(midnight)
}

// DailyWindow is the span between the start and end time of day. An end time
// earlier than the start time means the window crosses midnight.
func DailyWindow(start, end time.Time) time.Duration {
	startTOD := timeOfDay(start)
	endTOD := timeOfDay(end)
	if endTOD < startTOD {
		endTOD += 24 * time.Hour
	}
	return endTOD - startTOD
}

func TotalDays(start, end time.Time) int {
	days := end.Sub(start).Hours() / 24
	if days > 1 {
		return int(math.Ceil(days))
	}
	return 1
}

// PlayablePerDay drops the partial slot at the end of the daily window.
func PlayablePerDay(start, end time.Time, gameDuration time.Duration) time.Duration {
	window := DailyWindow(start, end)
	return window - window%gameDuration
}

func GamesPerDay(start, end time.Time, gameDuration time.Duration) int {
	return int(PlayablePerDay(start, end, gameDuration) / gameDuration)
}

// MaxCapacity returns the largest power of two number of players whose full
// bracket fits into the tournament's time budget.
func MaxCapacity(start, end time.Time, gameDuration time.Duration) (int, error) {
	if gameDuration <= 0 {
		return 0, ErrWindowTooShort
	}

	window := DailyWindow(start, end)
	playable := PlayablePerDay(start, end, gameDuration)
	if window <= 0 || playable < gameDuration {
		return 0, ErrWindowTooShort
	}

	totalPlayable := playable * time.Duration(TotalDays(start, end))
	maxGames := int(totalPlayable / gameDuration)
	possiblePlayers := maxGames + 1

	maxPlayers := 2
	for maxPlayers*2 <= possiblePlayers {
		maxPlayers *= 2
	}
	return maxPlayers, nil
}

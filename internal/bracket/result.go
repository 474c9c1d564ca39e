package bracket

import (
	"github.com/google/uuid"
)

// Outcome describes what recording a single result did to the bracket.
type Outcome struct {
	Advanced      bool       `json:"advanced"`
	Completed     bool       `json:"completed"`
	AdvancedRound int        `json:"advanced_round,omitempty"`
	Winner        *uuid.UUID `json:"winner,omitempty"`

	// Indexes of games whose player slots were filled by advancement.
	Updated []int `json:"-"`
}

// Merge folds a later outcome into o, used when one action triggers a chain
// of walkovers.
func (o *Outcome) Merge(later Outcome) {
	o.Advanced = o.Advanced || later.Advanced
	o.Completed = o.Completed || later.Completed
	if later.AdvancedRound > o.AdvancedRound {
		o.AdvancedRound = later.AdvancedRound
	}
	if later.Winner != nil {
		o.Winner = later.Winner
	}
	o.Updated = append(o.Updated, later.Updated...)
}

func IndexOf(games []Game, id uuid.UUID) (int, bool) {
	for i := range games {
		if games[i].ID == id {
			return i, true
		}
	}
	return -1, false
}

// RecordResult sets the winner of games[idx] and then decides whether the
// round is still running, the next round can be filled, or the final was won.
func RecordResult(games []Game, playerCount int, idx int, winnerID uuid.UUID) (Outcome, error) {
	if idx < 0 || idx >= len(games) {
		return Outcome{}, ErrGameNotFound
	}
	g := &games[idx]
	if g.IsDecided() {
		return Outcome{}, ErrGameDecided
	}
	if g.Player1ID == nil || g.Player2ID == nil {
		return Outcome{}, ErrGameNotReady
	}
	if !g.HasPlayer(winnerID) {
		return Outcome{}, ErrNotParticipant
	}

	w := winnerID
	g.WinnerID = &w

	for i := range games {
		if games[i].RoundNumber == g.RoundNumber && !games[i].IsDecided() {
			return Outcome{}, nil
		}
	}

	if g.RoundNumber == Log2(playerCount) {
		return Outcome{Completed: true, Winner: &w}, nil
	}

	round, updated, err := AdvanceRound(games, playerCount)
	if err != nil {
		return Outcome{}, err
	}
	return Outcome{Advanced: true, AdvancedRound: round, Updated: updated}, nil
}

// PendingGame finds the undecided game the player currently sits in.
func PendingGame(games []Game, playerID uuid.UUID) (int, bool) {
	for i := range games {
		if !games[i].IsDecided() && games[i].HasPlayer(playerID) {
			return i, true
		}
	}
	return -1, false
}

// Walkover awards the player's pending game to the opponent. found is false
// when the player has no game waiting to be played.
func Walkover(games []Game, playerCount int, playerID uuid.UUID) (Outcome, bool, error) {
	idx, ok := PendingGame(games, playerID)
	if !ok {
		return Outcome{}, false, nil
	}
	opponent := games[idx].Opponent(playerID)
	if opponent == nil {
		return Outcome{}, false, nil
	}
	outcome, err := RecordResult(games, playerCount, idx, *opponent)
	if err != nil {
		return Outcome{}, true, err
	}
	return outcome, true, nil
}

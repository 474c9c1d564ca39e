package bracket

import (
	"time"

	"github.com/google/uuid"
)

type Game struct {
	ID           uuid.UUID `db:"id" json:"id"`
	TournamentID uuid.UUID `db:"tournament_id" json:"tournament_id"`

	// Index in the tournament's game sequence. The position number used to
	// derive the round is counted backwards from the end of this sequence.
	Seq         int       `db:"seq" json:"seq"`
	RoundNumber int       `db:"round_number" json:"round_number"`
	StartTime   time.Time `db:"start_time" json:"start_time"`

	Player1ID *uuid.UUID `db:"player_1_id" json:"player_1_id,omitempty"`
	Player2ID *uuid.UUID `db:"player_2_id" json:"player_2_id,omitempty"`
	WinnerID  *uuid.UUID `db:"winner_id" json:"winner_id,omitempty"`
}

func (g *Game) IsDecided() bool {
	return g.WinnerID != nil
}

// IsPlaceholder reports whether the game is still waiting for both of its players.
func (g *Game) IsPlaceholder() bool {
	return g.Player1ID == nil && g.Player2ID == nil
}

func (g *Game) HasPlayer(id uuid.UUID) bool {
	return (g.Player1ID != nil && *g.Player1ID == id) || (g.Player2ID != nil && *g.Player2ID == id)
}

// Opponent returns the other player of the game, or nil if the slot is empty.
func (g *Game) Opponent(id uuid.UUID) *uuid.UUID {
	switch {
	case g.Player1ID != nil && *g.Player1ID == id:
		return g.Player2ID
	case g.Player2ID != nil && *g.Player2ID == id:
		return g.Player1ID
	}
	return nil
}

type Player struct {
	TournamentID uuid.UUID `db:"tournament_id" json:"tournament_id"`
	UserID       uuid.UUID `db:"user_id" json:"user_id"`
	Username     string    `db:"username" json:"username"`
	Seq          int       `db:"seq" json:"seq"`
	RegisteredAt time.Time `db:"registered_at" json:"registered_at"`
}

type Deck struct {
	ID           uuid.UUID `db:"id" json:"id"`
	TournamentID uuid.UUID `db:"tournament_id" json:"tournament_id"`
	UserID       uuid.UUID `db:"user_id" json:"user_id"`
	CardIDs      []int64   `db:"-" json:"card_ids"`
}

type Disqualification struct {
	ID             uuid.UUID `db:"id" json:"id"`
	TournamentID   uuid.UUID `db:"tournament_id" json:"tournament_id"`
	UserID         uuid.UUID `db:"user_id" json:"user_id"`
	Reason         string    `db:"reason" json:"reason"`
	DisqualifiedBy uuid.UUID `db:"disqualified_by" json:"disqualified_by"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}

package views

import (
	"net/http"

	"github.com/AdamBeresnev/tcg-tournament/internal/bracket"
	"github.com/a-h/templ"
	"github.com/google/uuid"
)

func Render(w http.ResponseWriter, r *http.Request, component templ.Component) error {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	return component.Render(r.Context(), w)
}

func tournamentStatus(t *bracket.Tournament) string {
	if t.IsCanceled {
		return "canceled"
	}
	return string(t.Phase)
}

// slotClass marks a decided game's players as won or lost.
func slotClass(player, winner *uuid.UUID) string {
	switch {
	case player == nil || winner == nil:
		return "player"
	case *player == *winner:
		return "player won"
	default:
		return "player lost"
	}
}

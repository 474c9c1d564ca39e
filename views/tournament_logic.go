package views

import (
	"sort"

	"github.com/AdamBeresnev/tcg-tournament/internal/bracket"
	"github.com/google/uuid"
)

type RoundColumn struct {
	Number int
	Label  string
	Games  []bracket.Game
}

type BracketData struct {
	Rounds       []RoundColumn
	PlayerNames  map[uuid.UUID]string
	Disqualified map[uuid.UUID]bool
}

func roundLabel(round, totalRounds int) string {
	switch totalRounds - round {
	case 0:
		return "Final"
	case 1:
		return "Semifinals"
	case 2:
		return "Quarterfinals"
	}
	return "Round " + itoa(round)
}

// PrepareBracketData groups the flat game sequence into round columns.
func PrepareBracketData(players []bracket.Player, games []bracket.Game, dqs []bracket.Disqualification) BracketData {
	names := make(map[uuid.UUID]string, len(players))
	for _, p := range players {
		names[p.UserID] = p.Username
	}
	disqualified := make(map[uuid.UUID]bool, len(dqs))
	for _, dq := range dqs {
		disqualified[dq.UserID] = true
	}

	byRound := make(map[int][]bracket.Game)
	var roundNums []int
	for _, g := range games {
		if _, exists := byRound[g.RoundNumber]; !exists {
			roundNums = append(roundNums, g.RoundNumber)
		}
		byRound[g.RoundNumber] = append(byRound[g.RoundNumber], g)
	}
	sort.Ints(roundNums)

	totalRounds := len(roundNums)
	rounds := make([]RoundColumn, 0, totalRounds)
	for _, r := range roundNums {
		column := byRound[r]
		sort.Slice(column, func(i, j int) bool {
			return column[i].Seq < column[j].Seq
		})
		rounds = append(rounds, RoundColumn{Number: r, Label: roundLabel(r, totalRounds), Games: column})
	}

	return BracketData{Rounds: rounds, PlayerNames: names, Disqualified: disqualified}
}

// PlayerName is "TBD" for an empty slot.
func (d BracketData) PlayerName(id *uuid.UUID) string {
	if id == nil {
		return "TBD"
	}
	name, ok := d.PlayerNames[*id]
	if !ok {
		return id.String()[:8]
	}
	if d.Disqualified[*id] {
		return name + " (DQ)"
	}
	return name
}

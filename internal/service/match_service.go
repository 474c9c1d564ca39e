package service

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/AdamBeresnev/tcg-tournament/internal/bracket"
	"github.com/AdamBeresnev/tcg-tournament/internal/store"
	"github.com/AdamBeresnev/tcg-tournament/internal/utils"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type MatchService struct {
	db    *sqlx.DB
	store *store.TournamentStore
	users *store.UserStore
	locks *TournamentLocks
}

func NewMatchService(db *sqlx.DB, store *store.TournamentStore, userStore *store.UserStore, locks *TournamentLocks) *MatchService {
	return &MatchService{db: db, store: store, users: userStore, locks: locks}
}

// bracketState is everything a result needs, loaded inside the transaction.
type bracketState struct {
	tournament *bracket.Tournament
	games      []bracket.Game
	original   []bracket.Game

	// disqualified players in the order they were disqualified
	disqualified []uuid.UUID
}

func (s *MatchService) loadBracket(ctx context.Context, tx *sqlx.Tx, tournamentID, actorID uuid.UUID) (*bracketState, error) {
	t, err := s.store.GetTournamentTx(ctx, tx, tournamentID)
	if err != nil {
		return nil, notFound(err, "tournament")
	}
	if err := authorizeOfficial(ctx, tx, s.store, s.users, t, actorID); err != nil {
		return nil, err
	}
	if !t.InProgress() {
		return nil, engineError(bracket.ErrInvalidPhase)
	}

	games, err := s.store.GetGamesTx(ctx, tx, tournamentID)
	if err != nil {
		return nil, err
	}
	dqs, err := s.store.GetDisqualificationsTx(ctx, tx, tournamentID)
	if err != nil {
		return nil, err
	}

	state := &bracketState{
		tournament: t,
		games:      games,
		original:   make([]bracket.Game, len(games)),
	}
	copy(state.original, games)
	for _, dq := range dqs {
		state.disqualified = append(state.disqualified, dq.UserID)
	}
	return state, nil
}

func (st *bracketState) playerCount() int {
	return len(st.games) + 1
}

func (st *bracketState) isDisqualified(playerID uuid.UUID) bool {
	return slices.Contains(st.disqualified, playerID)
}

// RecordGameResult sets the winner of a game. Completing a round fills the
// next one; completing the final finishes the tournament.
func (s *MatchService) RecordGameResult(ctx context.Context, tournamentID, gameID, actorID, winnerID uuid.UUID) (bracket.Outcome, error) {
	unlock := s.locks.Lock(tournamentID)
	defer unlock()

	var outcome bracket.Outcome
	err := store.RunInTx(ctx, s.db, func(tx *sqlx.Tx) error {
		st, err := s.loadBracket(ctx, tx, tournamentID, actorID)
		if err != nil {
			return err
		}
		idx, ok := bracket.IndexOf(st.games, gameID)
		if !ok {
			return fmt.Errorf("%w: game", ErrNotFound)
		}

		outcome, err = bracket.RecordResult(st.games, st.playerCount(), idx, winnerID)
		if err != nil {
			return engineError(err)
		}
		if err := st.applyWalkovers(&outcome); err != nil {
			return err
		}
		return s.save(ctx, tx, st, outcome)
	})
	if err != nil {
		return bracket.Outcome{}, err
	}

	slog.Info("game result recorded", "tournament_id", tournamentID, "game_id", gameID, "winner_id", winnerID, "by", actorID)
	logOutcome(tournamentID, outcome)
	return outcome, nil
}

// Disqualify records the disqualification and forfeits the player's pending
// game, if any, to the opponent.
func (s *MatchService) Disqualify(ctx context.Context, tournamentID, playerID uuid.UUID, reason string, issuedBy uuid.UUID) (bracket.Outcome, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return bracket.Outcome{}, validationf("a reason is required")
	}

	unlock := s.locks.Lock(tournamentID)
	defer unlock()

	var outcome bracket.Outcome
	err := store.RunInTx(ctx, s.db, func(tx *sqlx.Tx) error {
		outcome = bracket.Outcome{}

		st, err := s.loadBracket(ctx, tx, tournamentID, issuedBy)
		if err != nil {
			return err
		}
		registered, err := s.store.IsPlayerTx(ctx, tx, tournamentID, playerID)
		if err != nil {
			return err
		}
		if !registered {
			return validationf("player is not registered in this tournament")
		}
		if st.isDisqualified(playerID) {
			return validationf("player is already disqualified")
		}

		dq := &bracket.Disqualification{
			ID:             uuid.New(),
			TournamentID:   tournamentID,
			UserID:         playerID,
			Reason:         reason,
			DisqualifiedBy: issuedBy,
			CreatedAt:      time.Now().UTC(),
		}
		if err := s.store.CreateDisqualification(ctx, tx, dq); err != nil {
			return err
		}

		st.disqualified = append(st.disqualified, playerID)
		if err := st.applyWalkovers(&outcome); err != nil {
			return err
		}
		return s.save(ctx, tx, st, outcome)
	})
	if err != nil {
		return bracket.Outcome{}, err
	}

	slog.Info("player disqualified", "tournament_id", tournamentID, "player_id", playerID, "by", issuedBy, "reason", reason)
	logOutcome(tournamentID, outcome)
	return outcome, nil
}

// applyWalkovers forfeits every pending game of a disqualified player, earliest
// disqualification first. Each walkover can fill a later game with another
// disqualified player, so it repeats until nothing changes.
func (st *bracketState) applyWalkovers(outcome *bracket.Outcome) error {
	for changed := true; changed && !outcome.Completed; {
		changed = false
		for _, playerID := range st.disqualified {
			o, found, err := bracket.Walkover(st.games, st.playerCount(), playerID)
			if err != nil {
				return engineError(err)
			}
			if found {
				outcome.Merge(o)
				changed = true
			}
			if outcome.Completed {
				break
			}
		}
	}
	return nil
}

func (s *MatchService) save(ctx context.Context, tx *sqlx.Tx, st *bracketState, outcome bracket.Outcome) error {
	var changed []bracket.Game
	for i := range st.games {
		if gameChanged(st.original[i], st.games[i]) {
			changed = append(changed, st.games[i])
		}
	}
	if err := s.store.UpdateGames(ctx, tx, changed...); err != nil {
		return err
	}

	if outcome.Completed {
		if err := st.tournament.Complete(*outcome.Winner); err != nil {
			return engineError(err)
		}
		return s.store.UpdateTournament(ctx, tx, st.tournament)
	}
	return nil
}

func gameChanged(before, after bracket.Game) bool {
	return !utils.SamePtr(before.Player1ID, after.Player1ID) ||
		!utils.SamePtr(before.Player2ID, after.Player2ID) ||
		!utils.SamePtr(before.WinnerID, after.WinnerID)
}

func logOutcome(tournamentID uuid.UUID, outcome bracket.Outcome) {
	if outcome.Advanced {
		slog.Info("round advanced", "tournament_id", tournamentID, "completed_round", outcome.AdvancedRound, "games_filled", len(outcome.Updated))
	}
	if outcome.Completed {
		slog.Info("tournament completed", "tournament_id", tournamentID, "winner_id", *outcome.Winner)
	}
}

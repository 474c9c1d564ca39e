package store

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/AdamBeresnev/tcg-tournament/internal/bracket"
	"github.com/AdamBeresnev/tcg-tournament/internal/card"
	users "github.com/AdamBeresnev/tcg-tournament/internal/user"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type TournamentStore struct {
	db *sqlx.DB
}

func NewTournamentStore(db *sqlx.DB) *TournamentStore {
	return &TournamentStore{db: db}
}

const (
	updateTournamentQuery = `
		UPDATE tournaments SET
		name = :name,
		country_code = :country_code,
		start_at = :start_at,
		end_at = :end_at,
		phase = :phase,
		is_canceled = :is_canceled,
		max_players = :max_players,
		winner_id = :winner_id
		WHERE id = :id
	`
	getPlayersQuery = `
		SELECT tp.tournament_id, tp.user_id, u.username, tp.seq, tp.registered_at
		FROM tournament_players tp
		JOIN users u ON u.id = tp.user_id
		WHERE tp.tournament_id = ?
		ORDER BY tp.seq ASC
	`
	updateGameQuery = `
		UPDATE games SET
		player_1_id = :player_1_id,
		player_2_id = :player_2_id,
		winner_id = :winner_id
		WHERE id = :id
	`
)

type TournamentFilter struct {
	Phase           *bracket.Phase
	OrganizerID     *uuid.UUID
	IncludeCanceled bool
}

func (s *TournamentStore) CreateTournament(ctx context.Context, tx *sqlx.Tx, tournament *bracket.Tournament) error {
	_, err := tx.NamedExecContext(ctx, `INSERT INTO tournaments (id, organizer_id, name, country_code, start_at, end_at, phase, is_canceled, max_players, created_at)
        VALUES (:id, :organizer_id, :name, :country_code, :start_at, :end_at, :phase, :is_canceled, :max_players, :created_at)`, tournament)
	return err
}

func (s *TournamentStore) UpdateTournament(ctx context.Context, tx *sqlx.Tx, tournament *bracket.Tournament) error {
	res, err := tx.NamedExecContext(ctx, updateTournamentQuery, tournament)
	if err != nil {
		return err
	}
	return expectRows(res)
}

func (s *TournamentStore) GetTournament(ctx context.Context, id uuid.UUID) (*bracket.Tournament, error) {
	return getTournament(ctx, s.db, id)
}

func (s *TournamentStore) GetTournamentTx(ctx context.Context, tx *sqlx.Tx, id uuid.UUID) (*bracket.Tournament, error) {
	return getTournament(ctx, tx, id)
}

func getTournament(ctx context.Context, q sqlx.QueryerContext, id uuid.UUID) (*bracket.Tournament, error) {
	var tournament bracket.Tournament
	if err := sqlx.GetContext(ctx, q, &tournament, "SELECT * FROM tournaments WHERE id = ?", id); err != nil {
		return nil, err
	}
	return &tournament, nil
}

func (s *TournamentStore) ListTournaments(ctx context.Context, filter TournamentFilter) ([]bracket.Tournament, error) {
	var where []string
	var args []any
	if filter.Phase != nil {
		where = append(where, "phase = ?")
		args = append(args, *filter.Phase)
	}
	if filter.OrganizerID != nil {
		where = append(where, "organizer_id = ?")
		args = append(args, *filter.OrganizerID)
	}
	if !filter.IncludeCanceled {
		where = append(where, "is_canceled = FALSE")
	}

	query := "SELECT * FROM tournaments"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY start_at ASC"

	tournaments := []bracket.Tournament{}
	err := s.db.SelectContext(ctx, &tournaments, query, args...)
	return tournaments, err
}

func (s *TournamentStore) AddSeries(ctx context.Context, tx *sqlx.Tx, tournamentID uuid.UUID, seriesIDs []int64) error {
	for _, id := range seriesIDs {
		if _, err := tx.ExecContext(ctx, "INSERT INTO tournament_series (tournament_id, series_id) VALUES (?, ?)", tournamentID, id); err != nil {
			return err
		}
	}
	return nil
}

func (s *TournamentStore) GetSeries(ctx context.Context, tournamentID uuid.UUID) ([]card.Series, error) {
	series := []card.Series{}
	err := s.db.SelectContext(ctx, &series, `
		SELECT s.* FROM series s
		JOIN tournament_series ts ON ts.series_id = s.id
		WHERE ts.tournament_id = ?
		ORDER BY s.name ASC`, tournamentID)
	return series, err
}

func (s *TournamentStore) GetSeriesIDs(ctx context.Context, tournamentID uuid.UUID) ([]int64, error) {
	var ids []int64
	err := s.db.SelectContext(ctx, &ids, "SELECT series_id FROM tournament_series WHERE tournament_id = ?", tournamentID)
	return ids, err
}

func (s *TournamentStore) AddJudge(ctx context.Context, tx *sqlx.Tx, tournamentID, userID uuid.UUID) error {
	_, err := tx.ExecContext(ctx, "INSERT INTO tournament_judges (tournament_id, user_id) VALUES (?, ?)", tournamentID, userID)
	return err
}

func (s *TournamentStore) IsJudgeTx(ctx context.Context, tx *sqlx.Tx, tournamentID, userID uuid.UUID) (bool, error) {
	return exists(ctx, tx, "SELECT 1 FROM tournament_judges WHERE tournament_id = ? AND user_id = ?", tournamentID, userID)
}

func (s *TournamentStore) GetJudges(ctx context.Context, tournamentID uuid.UUID) ([]users.User, error) {
	judges := []users.User{}
	err := s.db.SelectContext(ctx, &judges, `
		SELECT u.* FROM users u
		JOIN tournament_judges tj ON tj.user_id = u.id
		WHERE tj.tournament_id = ?
		ORDER BY u.username ASC`, tournamentID)
	return judges, err
}

// AddPlayer appends the player to the end of the registration order.
func (s *TournamentStore) AddPlayer(ctx context.Context, tx *sqlx.Tx, player *bracket.Player) error {
	err := tx.GetContext(ctx, &player.Seq, "SELECT COUNT(*) FROM tournament_players WHERE tournament_id = ?", player.TournamentID)
	if err != nil {
		return err
	}
	_, err = tx.NamedExecContext(ctx, `INSERT INTO tournament_players (tournament_id, user_id, seq, registered_at)
		VALUES (:tournament_id, :user_id, :seq, :registered_at)`, player)
	return err
}

func (s *TournamentStore) CountPlayersTx(ctx context.Context, tx *sqlx.Tx, tournamentID uuid.UUID) (int, error) {
	var count int
	err := tx.GetContext(ctx, &count, "SELECT COUNT(*) FROM tournament_players WHERE tournament_id = ?", tournamentID)
	return count, err
}

func (s *TournamentStore) IsPlayerTx(ctx context.Context, tx *sqlx.Tx, tournamentID, userID uuid.UUID) (bool, error) {
	return exists(ctx, tx, "SELECT 1 FROM tournament_players WHERE tournament_id = ? AND user_id = ?", tournamentID, userID)
}

func (s *TournamentStore) GetPlayers(ctx context.Context, tournamentID uuid.UUID) ([]bracket.Player, error) {
	return getPlayers(ctx, s.db, tournamentID)
}

func (s *TournamentStore) GetPlayersTx(ctx context.Context, tx *sqlx.Tx, tournamentID uuid.UUID) ([]bracket.Player, error) {
	return getPlayers(ctx, tx, tournamentID)
}

func getPlayers(ctx context.Context, q sqlx.QueryerContext, tournamentID uuid.UUID) ([]bracket.Player, error) {
	players := []bracket.Player{}
	err := sqlx.SelectContext(ctx, q, &players, getPlayersQuery, tournamentID)
	return players, err
}

func (s *TournamentStore) CreateDeck(ctx context.Context, tx *sqlx.Tx, deck *bracket.Deck) error {
	_, err := tx.NamedExecContext(ctx, `INSERT INTO decks (id, tournament_id, user_id) VALUES (:id, :tournament_id, :user_id)`, deck)
	if err != nil {
		return err
	}
	for _, cardID := range deck.CardIDs {
		if _, err := tx.ExecContext(ctx, "INSERT INTO deck_cards (deck_id, card_id) VALUES (?, ?)", deck.ID, cardID); err != nil {
			return err
		}
	}
	return nil
}

func (s *TournamentStore) GetDeck(ctx context.Context, tournamentID, userID uuid.UUID) (*bracket.Deck, error) {
	var deck bracket.Deck
	err := s.db.GetContext(ctx, &deck, "SELECT * FROM decks WHERE tournament_id = ? AND user_id = ?", tournamentID, userID)
	if err != nil {
		return nil, err
	}
	err = s.db.SelectContext(ctx, &deck.CardIDs, "SELECT card_id FROM deck_cards WHERE deck_id = ? ORDER BY card_id ASC", deck.ID)
	if err != nil {
		return nil, err
	}
	return &deck, nil
}

func (s *TournamentStore) CreateGames(ctx context.Context, tx *sqlx.Tx, games []bracket.Game) error {
	if len(games) == 0 {
		return nil
	}
	_, err := tx.NamedExecContext(ctx, `INSERT INTO games (id, tournament_id, seq, round_number, start_time, player_1_id, player_2_id, winner_id)
		VALUES (:id, :tournament_id, :seq, :round_number, :start_time, :player_1_id, :player_2_id, :winner_id)`, games)
	return err
}

// UpdateGames writes the player slots and winner of each game back.
func (s *TournamentStore) UpdateGames(ctx context.Context, tx *sqlx.Tx, games ...bracket.Game) error {
	for i := range games {
		res, err := tx.NamedExecContext(ctx, updateGameQuery, &games[i])
		if err != nil {
			return err
		}
		if err := expectRows(res); err != nil {
			return err
		}
	}
	return nil
}

func (s *TournamentStore) GetGames(ctx context.Context, tournamentID uuid.UUID) ([]bracket.Game, error) {
	return getGames(ctx, s.db, tournamentID)
}

func (s *TournamentStore) GetGamesTx(ctx context.Context, tx *sqlx.Tx, tournamentID uuid.UUID) ([]bracket.Game, error) {
	return getGames(ctx, tx, tournamentID)
}

func getGames(ctx context.Context, q sqlx.QueryerContext, tournamentID uuid.UUID) ([]bracket.Game, error) {
	games := []bracket.Game{}
	err := sqlx.SelectContext(ctx, q, &games, "SELECT * FROM games WHERE tournament_id = ? ORDER BY seq ASC", tournamentID)
	return games, err
}

func (s *TournamentStore) GetGame(ctx context.Context, id uuid.UUID) (*bracket.Game, error) {
	var game bracket.Game
	if err := s.db.GetContext(ctx, &game, "SELECT * FROM games WHERE id = ?", id); err != nil {
		return nil, err
	}
	return &game, nil
}

func (s *TournamentStore) CreateDisqualification(ctx context.Context, tx *sqlx.Tx, dq *bracket.Disqualification) error {
	_, err := tx.NamedExecContext(ctx, `INSERT INTO disqualifications (id, tournament_id, user_id, reason, disqualified_by, created_at)
		VALUES (:id, :tournament_id, :user_id, :reason, :disqualified_by, :created_at)`, dq)
	return err
}

func (s *TournamentStore) GetDisqualifications(ctx context.Context, tournamentID uuid.UUID) ([]bracket.Disqualification, error) {
	return getDisqualifications(ctx, s.db, tournamentID)
}

func (s *TournamentStore) GetDisqualificationsTx(ctx context.Context, tx *sqlx.Tx, tournamentID uuid.UUID) ([]bracket.Disqualification, error) {
	return getDisqualifications(ctx, tx, tournamentID)
}

func getDisqualifications(ctx context.Context, q sqlx.QueryerContext, tournamentID uuid.UUID) ([]bracket.Disqualification, error) {
	dqs := []bracket.Disqualification{}
	err := sqlx.SelectContext(ctx, q, &dqs, "SELECT * FROM disqualifications WHERE tournament_id = ? ORDER BY created_at ASC, rowid ASC", tournamentID)
	return dqs, err
}

func exists(ctx context.Context, q sqlx.QueryerContext, query string, args ...any) (bool, error) {
	var one int
	err := sqlx.GetContext(ctx, q, &one, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func expectRows(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

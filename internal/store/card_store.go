package store

import (
	"context"

	"github.com/AdamBeresnev/tcg-tournament/internal/card"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// CardStore is the card catalog: cards, the series they belong to, and the
// collection each player owns.
type CardStore struct {
	db *sqlx.DB
}

func NewCardStore(db *sqlx.DB) *CardStore {
	return &CardStore{db: db}
}

func (s *CardStore) CreateSeries(ctx context.Context, name string) (*card.Series, error) {
	res, err := s.db.ExecContext(ctx, "INSERT INTO series (name) VALUES (?)", name)
	if err != nil {
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return &card.Series{ID: id, Name: name}, nil
}

// CreateCard inserts the card and links it to every given series.
func (s *CardStore) CreateCard(ctx context.Context, c *card.Card, seriesIDs []int64) error {
	return RunInTx(ctx, s.db, func(tx *sqlx.Tx) error {
		res, err := tx.NamedExecContext(ctx, `INSERT INTO cards (name, illustration, attack, defense)
			VALUES (:name, :illustration, :attack, :defense)`, c)
		if err != nil {
			return err
		}
		if c.ID, err = res.LastInsertId(); err != nil {
			return err
		}
		for _, seriesID := range seriesIDs {
			if _, err := tx.ExecContext(ctx, "INSERT INTO card_series (card_id, series_id) VALUES (?, ?)", c.ID, seriesID); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *CardStore) GetSeries(ctx context.Context, id int64) (*card.Series, error) {
	var series card.Series
	if err := s.db.GetContext(ctx, &series, "SELECT id, name FROM series WHERE id = ?", id); err != nil {
		return nil, err
	}
	return &series, nil
}

func (s *CardStore) ListSeries(ctx context.Context) ([]card.Series, error) {
	series := []card.Series{}
	err := s.db.SelectContext(ctx, &series, "SELECT id, name FROM series ORDER BY name ASC, id ASC")
	return series, err
}

func (s *CardStore) GetCard(ctx context.Context, id int64) (*card.Card, error) {
	var c card.Card
	if err := s.db.GetContext(ctx, &c, "SELECT id, name, illustration, attack, defense FROM cards WHERE id = ?", id); err != nil {
		return nil, err
	}
	return &c, nil
}

// ListCardsBySeries returns the cards a deck for this series may contain.
func (s *CardStore) ListCardsBySeries(ctx context.Context, seriesID int64) ([]card.Card, error) {
	cards := []card.Card{}
	err := s.db.SelectContext(ctx, &cards, `
		SELECT c.id, c.name, c.illustration, c.attack, c.defense FROM cards c
		JOIN card_series cs ON cs.card_id = c.id
		WHERE cs.series_id = ?
		ORDER BY c.name ASC, c.id ASC`, seriesID)
	return cards, err
}

// AddPlayerCards adds cards to a player's collection, ignoring ones already owned.
func (s *CardStore) AddPlayerCards(ctx context.Context, userID uuid.UUID, cardIDs []int64) error {
	return RunInTx(ctx, s.db, func(tx *sqlx.Tx) error {
		for _, cardID := range cardIDs {
			_, err := tx.ExecContext(ctx, "INSERT OR IGNORE INTO player_cards (user_id, card_id) VALUES (?, ?)", userID, cardID)
			if err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *CardStore) GetPlayerCards(ctx context.Context, userID uuid.UUID) ([]card.Card, error) {
	cards := []card.Card{}
	err := s.db.SelectContext(ctx, &cards, `
		SELECT c.* FROM cards c
		JOIN player_cards pc ON pc.card_id = c.id
		WHERE pc.user_id = ?
		ORDER BY c.id ASC`, userID)
	return cards, err
}

// CountSeries reports how many of the given series exist.
func (s *CardStore) CountSeries(ctx context.Context, seriesIDs []int64) (int, error) {
	if len(seriesIDs) == 0 {
		return 0, nil
	}
	return s.count(ctx, "SELECT COUNT(*) FROM series WHERE id IN (?)", seriesIDs)
}

func (s *CardStore) CountCards(ctx context.Context, cardIDs []int64) (int, error) {
	if len(cardIDs) == 0 {
		return 0, nil
	}
	return s.count(ctx, "SELECT COUNT(*) FROM cards WHERE id IN (?)", cardIDs)
}

// OwnsAll reports whether every card is in the player's collection. Card ids
// are expected to be unique.
func (s *CardStore) OwnsAll(ctx context.Context, playerID uuid.UUID, cardIDs []int64) (bool, error) {
	if len(cardIDs) == 0 {
		return true, nil
	}
	owned, err := s.count(ctx, "SELECT COUNT(*) FROM player_cards WHERE user_id = ? AND card_id IN (?)", playerID, cardIDs)
	if err != nil {
		return false, err
	}
	return owned == len(cardIDs), nil
}

// CardsInSeries reports whether every card belongs to at least one of the
// given series.
func (s *CardStore) CardsInSeries(ctx context.Context, cardIDs []int64, seriesIDs []int64) (bool, error) {
	if len(cardIDs) == 0 {
		return true, nil
	}
	if len(seriesIDs) == 0 {
		return false, nil
	}
	matched, err := s.count(ctx, `
		SELECT COUNT(DISTINCT card_id) FROM card_series
		WHERE card_id IN (?) AND series_id IN (?)`, cardIDs, seriesIDs)
	if err != nil {
		return false, err
	}
	return matched == len(cardIDs), nil
}

func (s *CardStore) count(ctx context.Context, query string, args ...any) (int, error) {
	query, args, err := sqlx.In(query, args...)
	if err != nil {
		return 0, err
	}
	var n int
	err = s.db.GetContext(ctx, &n, s.db.Rebind(query), args...)
	return n, err
}

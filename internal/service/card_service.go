package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/AdamBeresnev/tcg-tournament/internal/card"
	"github.com/AdamBeresnev/tcg-tournament/internal/store"
	users "github.com/AdamBeresnev/tcg-tournament/internal/user"
	"github.com/google/uuid"
)

type CardService struct {
	store *store.CardStore
	users *store.UserStore
}

func NewCardService(store *store.CardStore, userStore *store.UserStore) *CardService {
	return &CardService{store: store, users: userStore}
}

func (s *CardService) requireAdmin(ctx context.Context, actorID uuid.UUID) error {
	actor, err := s.users.GetUser(ctx, actorID)
	if err != nil {
		return notFound(err, "user")
	}
	if actor.Role != users.RoleAdministrator {
		return forbiddenf("only administrators can edit the card catalog")
	}
	return nil
}

func (s *CardService) CreateSeries(ctx context.Context, actorID uuid.UUID, name string) (*card.Series, error) {
	if err := s.requireAdmin(ctx, actorID); err != nil {
		return nil, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, validationf("series name is required")
	}
	return s.store.CreateSeries(ctx, name)
}

func (s *CardService) CreateCard(ctx context.Context, actorID uuid.UUID, c *card.Card, seriesIDs []int64) error {
	if err := s.requireAdmin(ctx, actorID); err != nil {
		return err
	}
	c.Name = strings.TrimSpace(c.Name)
	if c.Name == "" {
		return validationf("card name is required")
	}
	if c.Attack < 0 || c.Defense < 0 {
		return validationf("attack and defense cannot be negative")
	}
	illustration, err := card.ParseIllustration(c.Illustration)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrValidation, err)
	}
	c.Illustration = nil
	if illustration.Kind != card.IllustrationNone {
		c.Illustration = &illustration.URL
	}
	seriesIDs = dedupe(seriesIDs)
	if len(seriesIDs) == 0 {
		return validationf("a card belongs to at least one series")
	}
	n, err := s.store.CountSeries(ctx, seriesIDs)
	if err != nil {
		return err
	}
	if n != len(seriesIDs) {
		return fmt.Errorf("%w: series", ErrNotFound)
	}
	return s.store.CreateCard(ctx, c, seriesIDs)
}

// AddToCollection adds cards to the player's own collection.
func (s *CardService) AddToCollection(ctx context.Context, playerID uuid.UUID, cardIDs []int64) error {
	cardIDs = dedupe(cardIDs)
	if len(cardIDs) == 0 {
		return validationf("no cards given")
	}
	n, err := s.store.CountCards(ctx, cardIDs)
	if err != nil {
		return err
	}
	if n != len(cardIDs) {
		return fmt.Errorf("%w: card", ErrNotFound)
	}
	return s.store.AddPlayerCards(ctx, playerID, cardIDs)
}

func (s *CardService) Collection(ctx context.Context, playerID uuid.UUID) ([]card.Card, error) {
	return s.store.GetPlayerCards(ctx, playerID)
}

func (s *CardService) GetCard(ctx context.Context, id int64) (*card.Card, error) {
	c, err := s.store.GetCard(ctx, id)
	if err != nil {
		return nil, notFound(err, "card")
	}
	return c, nil
}

func (s *CardService) GetSeries(ctx context.Context, id int64) (*card.Series, error) {
	series, err := s.store.GetSeries(ctx, id)
	if err != nil {
		return nil, notFound(err, "series")
	}
	return series, nil
}

func (s *CardService) ListSeries(ctx context.Context) ([]card.Series, error) {
	return s.store.ListSeries(ctx)
}

// SeriesCards lists the cards of one series; an unknown series is NotFound
// rather than an empty list.
func (s *CardService) SeriesCards(ctx context.Context, seriesID int64) ([]card.Card, error) {
	if _, err := s.GetSeries(ctx, seriesID); err != nil {
		return nil, err
	}
	return s.store.ListCardsBySeries(ctx, seriesID)
}

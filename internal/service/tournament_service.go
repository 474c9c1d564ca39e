package service

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/AdamBeresnev/tcg-tournament/internal/bracket"
	"github.com/AdamBeresnev/tcg-tournament/internal/card"
	"github.com/AdamBeresnev/tcg-tournament/internal/store"
	users "github.com/AdamBeresnev/tcg-tournament/internal/user"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"golang.org/x/sync/errgroup"
)

// CardCatalog answers the deck questions registration needs.
type CardCatalog interface {
	OwnsAll(ctx context.Context, playerID uuid.UUID, cardIDs []int64) (bool, error)
	CardsInSeries(ctx context.Context, cardIDs []int64, seriesIDs []int64) (bool, error)
	CountSeries(ctx context.Context, seriesIDs []int64) (int, error)
}

var _ CardCatalog = (*store.CardStore)(nil)

type TournamentService struct {
	db      *sqlx.DB
	store   *store.TournamentStore
	users   *store.UserStore
	catalog CardCatalog
	locks   *TournamentLocks

	rng          bracket.Shuffler
	gameDuration time.Duration
}

type Option func(*TournamentService)

func WithGameDuration(d time.Duration) Option {
	return func(s *TournamentService) { s.gameDuration = d }
}

func WithShuffler(rng bracket.Shuffler) Option {
	return func(s *TournamentService) { s.rng = rng }
}

func NewTournamentService(db *sqlx.DB, store *store.TournamentStore, userStore *store.UserStore, catalog CardCatalog, locks *TournamentLocks, opts ...Option) *TournamentService {
	s := &TournamentService{
		db:           db,
		store:        store,
		users:        userStore,
		catalog:      catalog,
		locks:        locks,
		gameDuration: bracket.DefaultGameDuration,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.rng == nil {
		s.rng = NewRand(0)
	}
	return s
}

type TournamentInput struct {
	Name        string      `json:"name"`
	CountryCode string      `json:"country_code"`
	StartAt     time.Time   `json:"start_at"`
	EndAt       time.Time   `json:"end_at"`
	SeriesIDs   []int64     `json:"series_ids"`
	JudgeIDs    []uuid.UUID `json:"judge_ids"`
}

// TournamentUpdate changes only the fields that are set.
type TournamentUpdate struct {
	Name        *string    `json:"name"`
	CountryCode *string    `json:"country_code"`
	StartAt     *time.Time `json:"start_at"`
	EndAt       *time.Time `json:"end_at"`
}

type RegistrationResult struct {
	Player        bracket.Player `json:"player"`
	AutoFinalized bool           `json:"auto_finalized"`
}

type TournamentData struct {
	Tournament        *bracket.Tournament        `json:"tournament"`
	Players           []bracket.Player           `json:"players"`
	Judges            []users.User               `json:"judges"`
	Series            []card.Series              `json:"series"`
	Games             []bracket.Game             `json:"games"`
	Disqualifications []bracket.Disqualification `json:"disqualifications"`
	NextGameID        *uuid.UUID                 `json:"next_game_id,omitempty"`
}

// ComputeCapacity is the largest bracket the time budget can hold.
func (s *TournamentService) ComputeCapacity(start, end time.Time) (int, error) {
	if !end.After(start) {
		return 0, validationf("tournament must end after it starts")
	}
	capacity, err := bracket.MaxCapacity(start, end, s.gameDuration)
	if err != nil {
		return 0, engineError(err)
	}
	return capacity, nil
}

func validateDetails(name, countryCode string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return validationf("tournament name is required")
	}
	if len(name) > 100 {
		return validationf("tournament name exceeds 100 characters")
	}
	if countryCode != "" && len(countryCode) != 2 {
		return validationf("country code must have two letters, got %q", countryCode)
	}
	return nil
}

func (s *TournamentService) CreateTournament(ctx context.Context, organizerID uuid.UUID, in TournamentInput) (*bracket.Tournament, error) {
	organizer, err := s.users.GetUser(ctx, organizerID)
	if err != nil {
		return nil, notFound(err, "organizer")
	}
	if !organizer.HasRole(users.RoleOrganizer) {
		return nil, forbiddenf("only organizers can create tournaments")
	}

	if err := validateDetails(in.Name, in.CountryCode); err != nil {
		return nil, err
	}
	capacity, err := s.ComputeCapacity(in.StartAt, in.EndAt)
	if err != nil {
		return nil, err
	}

	seriesIDs := dedupe(in.SeriesIDs)
	if err := s.checkSeriesExist(ctx, seriesIDs); err != nil {
		return nil, err
	}
	judgeIDs := dedupe(in.JudgeIDs)
	for _, id := range judgeIDs {
		if err := s.checkJudge(ctx, id); err != nil {
			return nil, err
		}
	}

	tournament := &bracket.Tournament{
		ID:          uuid.New(),
		OrganizerID: organizerID,
		Name:        strings.TrimSpace(in.Name),
		CountryCode: strings.ToUpper(in.CountryCode),
		StartAt:     in.StartAt.UTC(),
		EndAt:       in.EndAt.UTC(),
		Phase:       bracket.PhaseRegistration,
		MaxPlayers:  capacity,
		CreatedAt:   time.Now().UTC(),
	}

	err = store.RunInTx(ctx, s.db, func(tx *sqlx.Tx) error {
		if err := s.store.CreateTournament(ctx, tx, tournament); err != nil {
			return err
		}
		if err := s.store.AddSeries(ctx, tx, tournament.ID, seriesIDs); err != nil {
			return err
		}
		for _, id := range judgeIDs {
			if err := s.store.AddJudge(ctx, tx, tournament.ID, id); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("create tournament: %w", err)
	}

	slog.Info("tournament created", "tournament_id", tournament.ID, "organizer_id", organizerID, "capacity", capacity)
	return tournament, nil
}

func (s *TournamentService) UpdateTournament(ctx context.Context, tournamentID, actorID uuid.UUID, in TournamentUpdate) (*bracket.Tournament, error) {
	unlock := s.locks.Lock(tournamentID)
	defer unlock()

	var tournament *bracket.Tournament
	err := store.RunInTx(ctx, s.db, func(tx *sqlx.Tx) error {
		t, err := s.loadForOrganizer(ctx, tx, tournamentID, actorID)
		if err != nil {
			return err
		}
		if !t.CanRegister() {
			return engineError(bracket.ErrInvalidPhase)
		}

		if in.Name != nil {
			t.Name = strings.TrimSpace(*in.Name)
		}
		if in.CountryCode != nil {
			t.CountryCode = strings.ToUpper(*in.CountryCode)
		}
		if in.StartAt != nil {
			t.StartAt = in.StartAt.UTC()
		}
		if in.EndAt != nil {
			t.EndAt = in.EndAt.UTC()
		}
		if err := validateDetails(t.Name, t.CountryCode); err != nil {
			return err
		}

		capacity, err := s.ComputeCapacity(t.StartAt, t.EndAt)
		if err != nil {
			return err
		}
		registered, err := s.store.CountPlayersTx(ctx, tx, t.ID)
		if err != nil {
			return err
		}
		if capacity < registered {
			return validationf("new schedule fits %d players but %d are registered", capacity, registered)
		}
		t.MaxPlayers = capacity

		tournament = t
		if capacity == registered {
			// the shrunken schedule is already full
			return s.startBracket(ctx, tx, t)
		}
		return s.store.UpdateTournament(ctx, tx, t)
	})
	if err != nil {
		return nil, err
	}
	return tournament, nil
}

func (s *TournamentService) AssignJudge(ctx context.Context, tournamentID, actorID, judgeID uuid.UUID) error {
	if err := s.checkJudge(ctx, judgeID); err != nil {
		return err
	}

	unlock := s.locks.Lock(tournamentID)
	defer unlock()

	return store.RunInTx(ctx, s.db, func(tx *sqlx.Tx) error {
		t, err := s.loadForOrganizer(ctx, tx, tournamentID, actorID)
		if err != nil {
			return err
		}
		if t.IsCanceled || t.Phase == bracket.PhaseCompletion {
			return engineError(bracket.ErrInvalidPhase)
		}
		already, err := s.store.IsJudgeTx(ctx, tx, tournamentID, judgeID)
		if err != nil {
			return err
		}
		if already {
			return validationf("user is already a judge of this tournament")
		}
		return s.store.AddJudge(ctx, tx, tournamentID, judgeID)
	})
}

// AddSeries widens the set of series decks may be built from. Decks are
// checked at registration, so this is only allowed while registering.
func (s *TournamentService) AddSeries(ctx context.Context, tournamentID, actorID uuid.UUID, seriesIDs []int64) error {
	seriesIDs = dedupe(seriesIDs)
	if len(seriesIDs) == 0 {
		return validationf("no series given")
	}
	if err := s.checkSeriesExist(ctx, seriesIDs); err != nil {
		return err
	}

	unlock := s.locks.Lock(tournamentID)
	defer unlock()

	current, err := s.store.GetSeriesIDs(ctx, tournamentID)
	if err != nil {
		return err
	}
	for _, id := range seriesIDs {
		if slices.Contains(current, id) {
			return validationf("series %d is already assigned", id)
		}
	}

	return store.RunInTx(ctx, s.db, func(tx *sqlx.Tx) error {
		t, err := s.loadForOrganizer(ctx, tx, tournamentID, actorID)
		if err != nil {
			return err
		}
		if !t.CanRegister() {
			return engineError(bracket.ErrInvalidPhase)
		}
		return s.store.AddSeries(ctx, tx, tournamentID, seriesIDs)
	})
}

func validateDeck(cardIDs []int64) error {
	if len(cardIDs) == 0 {
		return validationf("deck must contain at least one card")
	}
	if len(cardIDs) > card.MaxDeckSize {
		return validationf("deck has %d cards, the limit is %d", len(cardIDs), card.MaxDeckSize)
	}
	if len(dedupe(cardIDs)) != len(cardIDs) {
		return validationf("deck contains duplicate cards")
	}
	return nil
}

// RegisterPlayer enters the player with their deck. The registration that
// fills the last slot also generates the bracket.
func (s *TournamentService) RegisterPlayer(ctx context.Context, tournamentID, playerID uuid.UUID, cardIDs []int64) (*RegistrationResult, error) {
	if err := validateDeck(cardIDs); err != nil {
		return nil, err
	}

	unlock := s.locks.Lock(tournamentID)
	defer unlock()

	tournament, err := s.store.GetTournament(ctx, tournamentID)
	if err != nil {
		return nil, notFound(err, "tournament")
	}
	if !tournament.CanRegister() {
		return nil, engineError(bracket.ErrInvalidPhase)
	}

	seriesIDs, err := s.store.GetSeriesIDs(ctx, tournamentID)
	if err != nil {
		return nil, err
	}
	owned, err := s.catalog.OwnsAll(ctx, playerID, cardIDs)
	if err != nil {
		return nil, err
	}
	if !owned {
		return nil, validationf("deck contains cards the player does not own")
	}
	inSeries, err := s.catalog.CardsInSeries(ctx, cardIDs, seriesIDs)
	if err != nil {
		return nil, err
	}
	if !inSeries {
		return nil, validationf("deck contains cards outside the tournament's series")
	}

	result := &RegistrationResult{}
	err = store.RunInTx(ctx, s.db, func(tx *sqlx.Tx) error {
		*result = RegistrationResult{}

		t, err := s.store.GetTournamentTx(ctx, tx, tournamentID)
		if err != nil {
			return notFound(err, "tournament")
		}
		if !t.CanRegister() {
			return engineError(bracket.ErrInvalidPhase)
		}
		if _, err := s.users.GetUserTx(ctx, tx, playerID); err != nil {
			return notFound(err, "player")
		}
		already, err := s.store.IsPlayerTx(ctx, tx, tournamentID, playerID)
		if err != nil {
			return err
		}
		if already {
			return validationf("player is already registered")
		}
		count, err := s.store.CountPlayersTx(ctx, tx, tournamentID)
		if err != nil {
			return err
		}
		if count >= t.MaxPlayers {
			return validationf("tournament is full (%d players)", t.MaxPlayers)
		}

		result.Player = bracket.Player{
			TournamentID: tournamentID,
			UserID:       playerID,
			RegisteredAt: time.Now().UTC(),
		}
		if err := s.store.AddPlayer(ctx, tx, &result.Player); err != nil {
			return err
		}
		deck := &bracket.Deck{ID: uuid.New(), TournamentID: tournamentID, UserID: playerID, CardIDs: cardIDs}
		if err := s.store.CreateDeck(ctx, tx, deck); err != nil {
			return err
		}

		if count+1 == t.MaxPlayers {
			result.AutoFinalized = true
			return s.startBracket(ctx, tx, t)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	slog.Info("player registered", "tournament_id", tournamentID, "player_id", playerID, "seq", result.Player.Seq)
	return result, nil
}

// FinalizeRegistration closes registration early and generates the bracket
// for the players registered so far.
func (s *TournamentService) FinalizeRegistration(ctx context.Context, tournamentID, actorID uuid.UUID) (*bracket.Tournament, error) {
	unlock := s.locks.Lock(tournamentID)
	defer unlock()

	var tournament *bracket.Tournament
	err := store.RunInTx(ctx, s.db, func(tx *sqlx.Tx) error {
		t, err := s.loadForOrganizer(ctx, tx, tournamentID, actorID)
		if err != nil {
			return err
		}
		if !t.CanRegister() {
			return engineError(bracket.ErrInvalidPhase)
		}
		count, err := s.store.CountPlayersTx(ctx, tx, tournamentID)
		if err != nil {
			return err
		}
		if !bracket.IsPowerOfTwo(count) {
			return validationf("%d players registered, a bracket needs a power of two of at least 2", count)
		}
		tournament = t
		return s.startBracket(ctx, tx, t)
	})
	if err != nil {
		return nil, err
	}
	return tournament, nil
}

func (s *TournamentService) startBracket(ctx context.Context, tx *sqlx.Tx, t *bracket.Tournament) error {
	players, err := s.store.GetPlayersTx(ctx, tx, t.ID)
	if err != nil {
		return err
	}
	ids := make([]uuid.UUID, len(players))
	for i, p := range players {
		ids[i] = p.UserID
	}

	games, err := bracket.Schedule(t, ids, s.gameDuration, s.rng)
	if err != nil {
		return engineError(err)
	}
	if err := s.store.CreateGames(ctx, tx, games); err != nil {
		return err
	}
	if err := t.StartBracket(); err != nil {
		return engineError(err)
	}
	if err := s.store.UpdateTournament(ctx, tx, t); err != nil {
		return err
	}

	slog.Info("bracket generated", "tournament_id", t.ID, "players", len(ids), "games", len(games), "rounds", bracket.Log2(len(ids)))
	return nil
}

func (s *TournamentService) CancelTournament(ctx context.Context, tournamentID, actorID uuid.UUID) error {
	unlock := s.locks.Lock(tournamentID)
	defer unlock()

	err := store.RunInTx(ctx, s.db, func(tx *sqlx.Tx) error {
		t, err := s.loadForOrganizer(ctx, tx, tournamentID, actorID)
		if err != nil {
			return err
		}
		if err := t.Cancel(); err != nil {
			return engineError(err)
		}
		return s.store.UpdateTournament(ctx, tx, t)
	})
	if err != nil {
		return err
	}

	slog.Info("tournament canceled", "tournament_id", tournamentID, "actor_id", actorID)
	return nil
}

func (s *TournamentService) GetTournamentData(ctx context.Context, id uuid.UUID) (*TournamentData, error) {
	data := &TournamentData{}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		data.Tournament, err = s.store.GetTournament(gctx, id)
		return notFound(err, "tournament")
	})
	g.Go(func() (err error) {
		data.Players, err = s.store.GetPlayers(gctx, id)
		return err
	})
	g.Go(func() (err error) {
		data.Judges, err = s.store.GetJudges(gctx, id)
		return err
	})
	g.Go(func() (err error) {
		data.Series, err = s.store.GetSeries(gctx, id)
		return err
	})
	g.Go(func() (err error) {
		data.Games, err = s.store.GetGames(gctx, id)
		return err
	})
	g.Go(func() (err error) {
		data.Disqualifications, err = s.store.GetDisqualifications(gctx, id)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for _, game := range data.Games {
		if !game.IsDecided() && game.Player1ID != nil && game.Player2ID != nil {
			id := game.ID
			data.NextGameID = &id
			break
		}
	}
	return data, nil
}

func (s *TournamentService) GetGame(ctx context.Context, id uuid.UUID) (*bracket.Game, error) {
	game, err := s.store.GetGame(ctx, id)
	if err != nil {
		return nil, notFound(err, "game")
	}
	return game, nil
}

// GetDeck shows a registered deck to its owner and to the tournament's officials.
func (s *TournamentService) GetDeck(ctx context.Context, tournamentID, actorID, playerID uuid.UUID) (*bracket.Deck, error) {
	if actorID != playerID {
		err := store.RunInTx(ctx, s.db, func(tx *sqlx.Tx) error {
			t, err := s.store.GetTournamentTx(ctx, tx, tournamentID)
			if err != nil {
				return notFound(err, "tournament")
			}
			return authorizeOfficial(ctx, tx, s.store, s.users, t, actorID)
		})
		if err != nil {
			return nil, err
		}
	}

	deck, err := s.store.GetDeck(ctx, tournamentID, playerID)
	if err != nil {
		return nil, notFound(err, "deck")
	}
	return deck, nil
}

func (s *TournamentService) ListTournaments(ctx context.Context, filter store.TournamentFilter) ([]bracket.Tournament, error) {
	return s.store.ListTournaments(ctx, filter)
}

// loadForOrganizer loads the tournament for an action only its organizer or
// an administrator may take.
func (s *TournamentService) loadForOrganizer(ctx context.Context, tx *sqlx.Tx, tournamentID, actorID uuid.UUID) (*bracket.Tournament, error) {
	t, err := s.store.GetTournamentTx(ctx, tx, tournamentID)
	if err != nil {
		return nil, notFound(err, "tournament")
	}
	if t.OrganizerID == actorID {
		return t, nil
	}
	actor, err := s.users.GetUserTx(ctx, tx, actorID)
	if err != nil {
		return nil, notFound(err, "user")
	}
	if actor.Role != users.RoleAdministrator {
		return nil, forbiddenf("only the organizer can manage this tournament")
	}
	return t, nil
}

// authorizeOfficial allows the organizer, an assigned judge or an administrator.
func authorizeOfficial(ctx context.Context, tx *sqlx.Tx, ts *store.TournamentStore, us *store.UserStore, t *bracket.Tournament, actorID uuid.UUID) error {
	if t.OrganizerID == actorID {
		return nil
	}
	judge, err := ts.IsJudgeTx(ctx, tx, t.ID, actorID)
	if err != nil {
		return err
	}
	if judge {
		return nil
	}
	actor, err := us.GetUserTx(ctx, tx, actorID)
	if err != nil {
		return notFound(err, "user")
	}
	if actor.Role == users.RoleAdministrator {
		return nil
	}
	return forbiddenf("only judges of this tournament can do that")
}

func (s *TournamentService) checkSeriesExist(ctx context.Context, seriesIDs []int64) error {
	if len(seriesIDs) == 0 {
		return nil
	}
	n, err := s.catalog.CountSeries(ctx, seriesIDs)
	if err != nil {
		return err
	}
	if n != len(seriesIDs) {
		return fmt.Errorf("%w: series", ErrNotFound)
	}
	return nil
}

func (s *TournamentService) checkJudge(ctx context.Context, id uuid.UUID) error {
	u, err := s.users.GetUser(ctx, id)
	if err != nil {
		return notFound(err, "judge")
	}
	if u.Role != users.RoleJudge && u.Role != users.RoleAdministrator {
		return validationf("user %s is not a judge", u.Username)
	}
	return nil
}

func dedupe[T comparable](ids []T) []T {
	seen := make(map[T]struct{}, len(ids))
	out := make([]T, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

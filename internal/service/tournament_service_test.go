package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/AdamBeresnev/tcg-tournament/internal/bracket"
	"github.com/AdamBeresnev/tcg-tournament/internal/card"
	"github.com/AdamBeresnev/tcg-tournament/internal/store"
	users "github.com/AdamBeresnev/tcg-tournament/internal/user"
	"github.com/AdamBeresnev/tcg-tournament/internal/utils"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const adminID = "00000000-0000-0000-0000-000000000001"

// setupTestDB creates an in-memory SQLite database and applies migrations
func setupTestDB(t *testing.T) *sqlx.DB {
	t.Helper()

	database, err := sqlx.Connect("sqlite3", "file::memory:")
	require.NoError(t, err, "Failed to connect to in-memory DB")
	database.SetMaxOpenConns(1)

	_, err = database.Exec("PRAGMA foreign_keys = ON;")
	require.NoError(t, err)

	driver, err := sqlite3.WithInstance(database.DB, &sqlite3.Config{})
	require.NoError(t, err, "Failed to create migrate driver instance")

	m, err := migrate.NewWithDatabaseInstance(
		"file://../../migrations",
		"sqlite3",
		driver,
	)
	require.NoError(t, err, "Failed to create migrate instance")

	err = m.Up()
	if err != nil && err != migrate.ErrNoChange {
		require.NoError(t, err, "Failed to apply migrations")
	}

	return database
}

// inOrder keeps registration order as the seeding.
type inOrder struct{}

func (inOrder) Shuffle(int, func(i, j int)) {}

type fixture struct {
	db          *sqlx.DB
	store       *store.TournamentStore
	users       *store.UserStore
	cards       *store.CardStore
	tournaments *TournamentService
	matches     *MatchService
	locks       *TournamentLocks

	organizer uuid.UUID
	judge     uuid.UUID
	series    int64
	outside   int64
	deck      []int64
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := setupTestDB(t)
	t.Cleanup(func() { db.Close() })

	f := &fixture{
		db:    db,
		store: store.NewTournamentStore(db),
		users: store.NewUserStore(db),
		cards: store.NewCardStore(db),
	}
	f.locks = NewTournamentLocks()
	f.tournaments = NewTournamentService(db, f.store, f.users, f.cards, f.locks, WithShuffler(inOrder{}))
	f.matches = NewMatchService(db, f.store, f.users, f.locks)

	f.organizer = f.newUser(t, "organizer", users.RoleOrganizer)
	f.judge = f.newUser(t, "judge", users.RoleJudge)

	ctx := context.Background()
	series, err := f.cards.CreateSeries(ctx, "Core")
	require.NoError(t, err)
	other, err := f.cards.CreateSeries(ctx, "Promo")
	require.NoError(t, err)
	f.series = series.ID

	for i := range 3 {
		c := &card.Card{Name: fmt.Sprintf("Core %d", i), Attack: i, Defense: i}
		require.NoError(t, f.cards.CreateCard(ctx, c, []int64{series.ID}))
		f.deck = append(f.deck, c.ID)
	}
	promo := &card.Card{Name: "Promo Dragon", Attack: 10}
	require.NoError(t, f.cards.CreateCard(ctx, promo, []int64{other.ID}))
	f.outside = promo.ID

	return f
}

func (f *fixture) newUser(t *testing.T, name string, role users.Role) uuid.UUID {
	t.Helper()
	u := &users.User{ID: uuid.New(), Email: name + "@example.com", Username: name, Role: role}
	require.NoError(t, f.users.CreateUser(context.Background(), u))
	return u.ID
}

// newPlayer creates a player who owns the core deck and the promo card.
func (f *fixture) newPlayer(t *testing.T, name string) uuid.UUID {
	t.Helper()
	id := f.newUser(t, name, users.RolePlayer)
	require.NoError(t, f.cards.AddPlayerCards(context.Background(), id, append([]int64{f.outside}, f.deck...)))
	return id
}

// newTournament schedules a single day from 10:00 lasting the given hours,
// which with 30 minute games holds 2, 4 or 8 players for 1, 2 or 4 hours.
func (f *fixture) newTournament(t *testing.T, hours int) *bracket.Tournament {
	t.Helper()
	start := time.Date(2027, time.June, 5, 10, 0, 0, 0, time.UTC)
	tournament, err := f.tournaments.CreateTournament(context.Background(), f.organizer, TournamentInput{
		Name:        "Summer Cup",
		CountryCode: "fr",
		StartAt:     start,
		EndAt:       start.Add(time.Duration(hours) * time.Hour),
		SeriesIDs:   []int64{f.series},
		JudgeIDs:    []uuid.UUID{f.judge},
	})
	require.NoError(t, err)
	return tournament
}

func (f *fixture) register(t *testing.T, tournamentID uuid.UUID, n int) []uuid.UUID {
	t.Helper()
	var players []uuid.UUID
	for i := range n {
		p := f.newPlayer(t, fmt.Sprintf("player-%d-%s", i, uuid.NewString()[:8]))
		_, err := f.tournaments.RegisterPlayer(context.Background(), tournamentID, p, f.deck)
		require.NoError(t, err)
		players = append(players, p)
	}
	return players
}

func TestComputeCapacity(t *testing.T) {
	f := newFixture(t)
	start := time.Date(2027, time.June, 5, 10, 0, 0, 0, time.UTC)

	capacity, err := f.tournaments.ComputeCapacity(start, start.Add(4*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 8, capacity)

	_, err = f.tournaments.ComputeCapacity(start, start.Add(20*time.Minute))
	assert.ErrorIs(t, err, ErrValidation)
	assert.ErrorIs(t, err, bracket.ErrWindowTooShort)

	_, err = f.tournaments.ComputeCapacity(start, start.Add(-time.Hour))
	assert.ErrorIs(t, err, ErrValidation)

	longer := NewTournamentService(f.db, f.store, f.users, f.cards, NewTournamentLocks(), WithGameDuration(time.Hour))
	capacity, err = longer.ComputeCapacity(start, start.Add(4*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 4, capacity)
}

func TestCreateTournament(t *testing.T) {
	f := newFixture(t)
	tournament := f.newTournament(t, 4)

	assert.Equal(t, 8, tournament.MaxPlayers)
	assert.Equal(t, "FR", tournament.CountryCode)
	assert.Equal(t, bracket.PhaseRegistration, tournament.Phase)

	data, err := f.tournaments.GetTournamentData(context.Background(), tournament.ID)
	require.NoError(t, err)
	assert.Equal(t, tournament.ID, data.Tournament.ID)
	require.Len(t, data.Judges, 1)
	assert.Equal(t, f.judge, data.Judges[0].ID)
	require.Len(t, data.Series, 1)
	assert.Equal(t, "Core", data.Series[0].Name)
	assert.Empty(t, data.Games)
	assert.Nil(t, data.NextGameID)
}

func TestCreateTournamentValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	start := time.Date(2027, time.June, 5, 10, 0, 0, 0, time.UTC)
	player := f.newPlayer(t, "player")

	valid := TournamentInput{
		Name:      "Cup",
		StartAt:   start,
		EndAt:     start.Add(2 * time.Hour),
		SeriesIDs: []int64{f.series},
	}

	testCases := []struct {
		name      string
		organizer uuid.UUID
		modify    func(in *TournamentInput)
		expected  error
	}{
		{"players cannot organize", player, func(in *TournamentInput) {}, ErrForbidden},
		{"unknown organizer", uuid.New(), func(in *TournamentInput) {}, ErrNotFound},
		{"blank name", f.organizer, func(in *TournamentInput) { in.Name = "   " }, ErrValidation},
		{"bad country code", f.organizer, func(in *TournamentInput) { in.CountryCode = "FRA" }, ErrValidation},
		{"window shorter than a game", f.organizer, func(in *TournamentInput) { in.EndAt = start.Add(10 * time.Minute) }, ErrValidation},
		{"unknown series", f.organizer, func(in *TournamentInput) { in.SeriesIDs = []int64{f.series, 999} }, ErrNotFound},
		{"judge without judge role", f.organizer, func(in *TournamentInput) { in.JudgeIDs = []uuid.UUID{player} }, ErrValidation},
		{"unknown judge", f.organizer, func(in *TournamentInput) { in.JudgeIDs = []uuid.UUID{uuid.New()} }, ErrNotFound},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			in := valid
			tc.modify(&in)
			_, err := f.tournaments.CreateTournament(ctx, tc.organizer, in)
			assert.ErrorIs(t, err, tc.expected)
		})
	}

	all, err := f.tournaments.ListTournaments(ctx, store.TournamentFilter{IncludeCanceled: true})
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestRegisterPlayerDeckRules(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tournament := f.newTournament(t, 4)
	player := f.newPlayer(t, "player")

	tooMany := make([]int64, card.MaxDeckSize+1)
	for i := range tooMany {
		tooMany[i] = int64(i + 1)
	}
	stranger := f.newUser(t, "stranger", users.RolePlayer)

	testCases := []struct {
		name   string
		player uuid.UUID
		deck   []int64
	}{
		{"empty deck", player, nil},
		{"deck over the limit", player, tooMany},
		{"duplicate cards", player, []int64{f.deck[0], f.deck[1], f.deck[0]}},
		{"card outside the tournament series", player, []int64{f.deck[0], f.outside}},
		{"cards not owned", stranger, f.deck},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.tournaments.RegisterPlayer(ctx, tournament.ID, tc.player, tc.deck)
			assert.ErrorIs(t, err, ErrValidation)
		})
	}

	players, err := f.store.GetPlayers(ctx, tournament.ID)
	require.NoError(t, err)
	assert.Empty(t, players)

	_, err = f.tournaments.RegisterPlayer(ctx, uuid.New(), player, f.deck)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRegisterPlayer(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tournament := f.newTournament(t, 4)
	player := f.newPlayer(t, "player")

	result, err := f.tournaments.RegisterPlayer(ctx, tournament.ID, player, f.deck[:2])
	require.NoError(t, err)
	assert.False(t, result.AutoFinalized)
	assert.Equal(t, 0, result.Player.Seq)

	deck, err := f.store.GetDeck(ctx, tournament.ID, player)
	require.NoError(t, err)
	assert.ElementsMatch(t, f.deck[:2], deck.CardIDs)

	_, err = f.tournaments.RegisterPlayer(ctx, tournament.ID, player, f.deck)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestRegistrationFillsBracket(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tournament := f.newTournament(t, 2)
	require.Equal(t, 4, tournament.MaxPlayers)

	players := f.register(t, tournament.ID, 3)

	last := f.newPlayer(t, "last")
	result, err := f.tournaments.RegisterPlayer(ctx, tournament.ID, last, f.deck)
	require.NoError(t, err)
	assert.True(t, result.AutoFinalized)
	players = append(players, last)

	data, err := f.tournaments.GetTournamentData(ctx, tournament.ID)
	require.NoError(t, err)
	assert.Equal(t, bracket.PhaseTournament, data.Tournament.Phase)
	require.Len(t, data.Games, 3)
	require.NoError(t, bracket.VerifyRounds(data.Games, 4))
	assert.Equal(t, &players[0], data.Games[0].Player1ID)
	assert.Equal(t, &players[3], data.Games[1].Player2ID)
	assert.True(t, data.Games[2].IsPlaceholder())
	require.NotNil(t, data.NextGameID)
	assert.Equal(t, data.Games[0].ID, *data.NextGameID)

	late := f.newPlayer(t, "late")
	_, err = f.tournaments.RegisterPlayer(ctx, tournament.ID, late, f.deck)
	assert.ErrorIs(t, err, ErrValidation)
	assert.ErrorIs(t, err, bracket.ErrInvalidPhase)
}

func TestConcurrentRegistrationForLastSlot(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tournament := f.newTournament(t, 2)
	f.register(t, tournament.ID, 3)

	contenders := make([]uuid.UUID, 6)
	for i := range contenders {
		contenders[i] = f.newPlayer(t, fmt.Sprintf("contender-%d", i))
	}

	var wg sync.WaitGroup
	results := make([]error, len(contenders))
	for i, p := range contenders {
		wg.Add(1)
		go func(i int, p uuid.UUID) {
			defer wg.Done()
			_, results[i] = f.tournaments.RegisterPlayer(ctx, tournament.ID, p, f.deck)
		}(i, p)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range results {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, ErrValidation)
	}
	assert.Equal(t, 1, succeeded)

	games, err := f.store.GetGames(ctx, tournament.ID)
	require.NoError(t, err)
	assert.Len(t, games, 3)

	players, err := f.store.GetPlayers(ctx, tournament.ID)
	require.NoError(t, err)
	assert.Len(t, players, 4)
}

func TestFinalizeRegistration(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tournament := f.newTournament(t, 4)

	f.register(t, tournament.ID, 3)
	_, err := f.tournaments.FinalizeRegistration(ctx, tournament.ID, f.organizer)
	assert.ErrorIs(t, err, ErrValidation)

	f.register(t, tournament.ID, 1)
	_, err = f.tournaments.FinalizeRegistration(ctx, tournament.ID, f.judge)
	assert.ErrorIs(t, err, ErrForbidden)

	finalized, err := f.tournaments.FinalizeRegistration(ctx, tournament.ID, f.organizer)
	require.NoError(t, err)
	assert.Equal(t, bracket.PhaseTournament, finalized.Phase)
	// capacity stays at 8 but the bracket is built for the 4 registered
	games, err := f.store.GetGames(ctx, tournament.ID)
	require.NoError(t, err)
	assert.Len(t, games, 3)

	_, err = f.tournaments.FinalizeRegistration(ctx, tournament.ID, f.organizer)
	assert.ErrorIs(t, err, bracket.ErrInvalidPhase)
}

func TestFinalizeEmptyTournament(t *testing.T) {
	f := newFixture(t)
	tournament := f.newTournament(t, 4)

	_, err := f.tournaments.FinalizeRegistration(context.Background(), tournament.ID, f.organizer)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestCancelTournament(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tournament := f.newTournament(t, 4)
	player := f.newPlayer(t, "player")

	assert.ErrorIs(t, f.tournaments.CancelTournament(ctx, tournament.ID, player), ErrForbidden)
	require.NoError(t, f.tournaments.CancelTournament(ctx, tournament.ID, f.organizer))
	assert.ErrorIs(t, f.tournaments.CancelTournament(ctx, tournament.ID, f.organizer), ErrValidation)

	_, err := f.tournaments.RegisterPlayer(ctx, tournament.ID, player, f.deck)
	assert.ErrorIs(t, err, ErrValidation)

	running := f.newTournament(t, 1)
	f.register(t, running.ID, 2)
	require.NoError(t, f.tournaments.CancelTournament(ctx, running.ID, uuid.MustParse(adminID)))

	open, err := f.tournaments.ListTournaments(ctx, store.TournamentFilter{})
	require.NoError(t, err)
	assert.Empty(t, open)
	assert.Zero(t, f.locks.size())
}

func TestUpdateTournament(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tournament := f.newTournament(t, 4)
	f.register(t, tournament.ID, 3)

	end := tournament.StartAt.Add(2 * time.Hour)
	updated, err := f.tournaments.UpdateTournament(ctx, tournament.ID, f.organizer, TournamentUpdate{
		Name:  utils.Ptr("Summer Cup Finals"),
		EndAt: &end,
	})
	require.NoError(t, err)
	assert.Equal(t, 4, updated.MaxPlayers)
	assert.Equal(t, "Summer Cup Finals", updated.Name)

	shorter := tournament.StartAt.Add(time.Hour)
	_, err = f.tournaments.UpdateTournament(ctx, tournament.ID, f.organizer, TournamentUpdate{EndAt: &shorter})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = f.tournaments.UpdateTournament(ctx, tournament.ID, f.judge, TournamentUpdate{Name: utils.Ptr("Mine")})
	assert.ErrorIs(t, err, ErrForbidden)

	stored, err := f.store.GetTournament(ctx, tournament.ID)
	require.NoError(t, err)
	assert.Equal(t, "Summer Cup Finals", stored.Name)
	assert.Equal(t, 4, stored.MaxPlayers)
}

func TestAssignJudgeAndSeries(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tournament := f.newTournament(t, 4)
	second := f.newUser(t, "second-judge", users.RoleJudge)

	require.NoError(t, f.tournaments.AssignJudge(ctx, tournament.ID, f.organizer, second))
	assert.ErrorIs(t, f.tournaments.AssignJudge(ctx, tournament.ID, f.organizer, second), ErrValidation)
	assert.ErrorIs(t, f.tournaments.AssignJudge(ctx, tournament.ID, second, f.judge), ErrForbidden)

	promo, err := f.cards.CreateSeries(ctx, "Promo 2")
	require.NoError(t, err)
	require.NoError(t, f.tournaments.AddSeries(ctx, tournament.ID, f.organizer, []int64{promo.ID}))
	assert.ErrorIs(t, f.tournaments.AddSeries(ctx, tournament.ID, f.organizer, []int64{f.series}), ErrValidation)
	assert.ErrorIs(t, f.tournaments.AddSeries(ctx, tournament.ID, f.organizer, []int64{12345}), ErrNotFound)

	data, err := f.tournaments.GetTournamentData(ctx, tournament.ID)
	require.NoError(t, err)
	assert.Len(t, data.Judges, 2)
	assert.Len(t, data.Series, 2)
}

func TestGetTournamentDataNotFound(t *testing.T) {
	f := newFixture(t)
	_, err := f.tournaments.GetTournamentData(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGetGame(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tournament := f.newTournament(t, 1)
	players := f.register(t, tournament.ID, 2)

	games := f.games(t, tournament.ID)
	require.Len(t, games, 1)

	game, err := f.tournaments.GetGame(ctx, games[0].ID)
	require.NoError(t, err)
	assert.Equal(t, tournament.ID, game.TournamentID)
	assert.Equal(t, &players[0], game.Player1ID)
	assert.Equal(t, &players[1], game.Player2ID)

	_, err = f.tournaments.GetGame(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGetDeck(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tournament := f.newTournament(t, 4)
	players := f.register(t, tournament.ID, 2)
	owner, rival := players[0], players[1]

	for _, viewer := range []uuid.UUID{owner, f.judge, f.organizer, uuid.MustParse(adminID)} {
		deck, err := f.tournaments.GetDeck(ctx, tournament.ID, viewer, owner)
		require.NoError(t, err)
		assert.Equal(t, owner, deck.UserID)
		assert.Equal(t, f.deck, deck.CardIDs)
	}

	_, err := f.tournaments.GetDeck(ctx, tournament.ID, rival, owner)
	assert.ErrorIs(t, err, ErrForbidden)

	outsider := f.newPlayer(t, "outsider")
	_, err = f.tournaments.GetDeck(ctx, tournament.ID, outsider, outsider)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = f.tournaments.GetDeck(ctx, uuid.New(), f.judge, owner)
	assert.ErrorIs(t, err, ErrNotFound)
}

package main

import (
	"net/http"
	"strconv"
	"time"

	"github.com/AdamBeresnev/tcg-tournament/internal/bracket"
	"github.com/AdamBeresnev/tcg-tournament/internal/card"
	"github.com/AdamBeresnev/tcg-tournament/internal/config"
	"github.com/AdamBeresnev/tcg-tournament/internal/httputil"
	"github.com/AdamBeresnev/tcg-tournament/internal/middleware"
	"github.com/AdamBeresnev/tcg-tournament/internal/service"
	"github.com/AdamBeresnev/tcg-tournament/internal/store"
	users "github.com/AdamBeresnev/tcg-tournament/internal/user"
	"github.com/AdamBeresnev/tcg-tournament/views"
	"github.com/alexedwards/scs/v2"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/markbates/goth/gothic"
)

func parseID(w http.ResponseWriter, r *http.Request, param string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, param))
	if err != nil {
		httputil.BadRequest(w, "Invalid "+param, err)
		return uuid.Nil, false
	}
	return id, true
}

func parseInt64(w http.ResponseWriter, r *http.Request, param string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, param), 10, 64)
	if err != nil {
		httputil.BadRequest(w, "Invalid "+param, err)
		return 0, false
	}
	return id, true
}

func currentUser(r *http.Request) *users.User {
	return middleware.GetAuthenticatedUser(r.Context())
}

func newRouter(database *sqlx.DB, sessionManager *scs.SessionManager, cfg *config.Config) http.Handler {
	tournamentStore := store.NewTournamentStore(database)
	userStore := store.NewUserStore(database)
	cardStore := store.NewCardStore(database)
	locks := service.NewTournamentLocks()

	tournamentService := service.NewTournamentService(database, tournamentStore, userStore, cardStore, locks,
		service.WithGameDuration(cfg.GameDuration),
		service.WithShuffler(service.NewRand(cfg.RNGSeed)),
	)
	matchService := service.NewMatchService(database, tournamentStore, userStore, locks)
	userService := service.NewUserService(userStore)
	cardService := service.NewCardService(cardStore, userStore)

	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(sessionManager.LoadAndSave)
	r.Use(middleware.LoadAuthenticatedUser(sessionManager, userStore))

	r.Get("/capacity", func(w http.ResponseWriter, r *http.Request) {
		start, err := time.Parse(time.RFC3339, r.URL.Query().Get("start"))
		if err != nil {
			httputil.BadRequest(w, "start must be an RFC 3339 timestamp", err)
			return
		}
		end, err := time.Parse(time.RFC3339, r.URL.Query().Get("end"))
		if err != nil {
			httputil.BadRequest(w, "end must be an RFC 3339 timestamp", err)
			return
		}
		capacity, err := tournamentService.ComputeCapacity(start, end)
		if err != nil {
			httputil.WriteError(w, "Failed to compute capacity", err)
			return
		}
		httputil.JSON(w, http.StatusOK, map[string]int{"capacity": capacity})
	})

	r.Get("/tournaments", func(w http.ResponseWriter, r *http.Request) {
		var filter store.TournamentFilter
		q := r.URL.Query()
		if phase := q.Get("phase"); phase != "" {
			p := bracket.Phase(phase)
			filter.Phase = &p
		}
		if organizer := q.Get("organizer"); organizer != "" {
			id, err := uuid.Parse(organizer)
			if err != nil {
				httputil.BadRequest(w, "Invalid organizer", err)
				return
			}
			filter.OrganizerID = &id
		}
		if canceled, err := strconv.ParseBool(q.Get("canceled")); err == nil {
			filter.IncludeCanceled = canceled
		}

		tournaments, err := tournamentService.ListTournaments(r.Context(), filter)
		if err != nil {
			httputil.WriteError(w, "Failed to list tournaments", err)
			return
		}
		httputil.JSON(w, http.StatusOK, tournaments)
	})

	r.Get("/tournaments/{id}", func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseID(w, r, "id")
		if !ok {
			return
		}
		data, err := tournamentService.GetTournamentData(r.Context(), id)
		if err != nil {
			httputil.WriteError(w, "Failed to get tournament", err)
			return
		}
		httputil.JSON(w, http.StatusOK, data)
	})

	r.Get("/tournaments/{id}/bracket", func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseID(w, r, "id")
		if !ok {
			return
		}
		data, err := tournamentService.GetTournamentData(r.Context(), id)
		if err != nil {
			httputil.WriteError(w, "Failed to get tournament", err)
			return
		}
		page := views.BracketPage(data.Tournament, views.PrepareBracketData(data.Players, data.Games, data.Disqualifications))
		if err := views.Render(w, r, page); err != nil {
			httputil.InternalServerError(w, "Failed to render bracket", err)
		}
	})

	r.Get("/series", func(w http.ResponseWriter, r *http.Request) {
		series, err := cardService.ListSeries(r.Context())
		if err != nil {
			httputil.WriteError(w, "Failed to list series", err)
			return
		}
		httputil.JSON(w, http.StatusOK, series)
	})

	r.Get("/series/{id}", func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseInt64(w, r, "id")
		if !ok {
			return
		}
		series, err := cardService.GetSeries(r.Context(), id)
		if err != nil {
			httputil.WriteError(w, "Failed to get series", err)
			return
		}
		httputil.JSON(w, http.StatusOK, series)
	})

	r.Get("/series/{id}/cards", func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseInt64(w, r, "id")
		if !ok {
			return
		}
		cards, err := cardService.SeriesCards(r.Context(), id)
		if err != nil {
			httputil.WriteError(w, "Failed to list cards", err)
			return
		}
		httputil.JSON(w, http.StatusOK, cards)
	})

	r.Get("/cards/{id}", func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseInt64(w, r, "id")
		if !ok {
			return
		}
		c, err := cardService.GetCard(r.Context(), id)
		if err != nil {
			httputil.WriteError(w, "Failed to get card", err)
			return
		}
		httputil.JSON(w, http.StatusOK, c)
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth)

		r.Get("/me", func(w http.ResponseWriter, r *http.Request) {
			httputil.JSON(w, http.StatusOK, currentUser(r))
		})

		r.Get("/users", func(w http.ResponseWriter, r *http.Request) {
			list, err := userService.ListByRole(r.Context(), users.Role(r.URL.Query().Get("role")))
			if err != nil {
				httputil.WriteError(w, "Failed to list users", err)
				return
			}
			httputil.JSON(w, http.StatusOK, list)
		})

		r.Get("/users/{id}", func(w http.ResponseWriter, r *http.Request) {
			id, ok := parseID(w, r, "id")
			if !ok {
				return
			}
			user, err := userService.GetUser(r.Context(), id)
			if err != nil {
				httputil.WriteError(w, "Failed to get user", err)
				return
			}
			httputil.JSON(w, http.StatusOK, user)
		})

		r.Get("/games/{id}", func(w http.ResponseWriter, r *http.Request) {
			id, ok := parseID(w, r, "id")
			if !ok {
				return
			}
			game, err := tournamentService.GetGame(r.Context(), id)
			if err != nil {
				httputil.WriteError(w, "Failed to get game", err)
				return
			}
			httputil.JSON(w, http.StatusOK, game)
		})

		// a deck is visible to its owner and the tournament's officials
		r.Get("/tournaments/{id}/players/{playerID}/deck", func(w http.ResponseWriter, r *http.Request) {
			id, ok := parseID(w, r, "id")
			if !ok {
				return
			}
			playerID, ok := parseID(w, r, "playerID")
			if !ok {
				return
			}
			deck, err := tournamentService.GetDeck(r.Context(), id, currentUser(r).ID, playerID)
			if err != nil {
				httputil.WriteError(w, "Failed to get deck", err)
				return
			}
			httputil.JSON(w, http.StatusOK, deck)
		})

		r.With(middleware.RequireRole(users.RoleOrganizer)).Post("/tournaments", func(w http.ResponseWriter, r *http.Request) {
			var in service.TournamentInput
			if err := httputil.DecodeJSON(w, r, &in); err != nil {
				httputil.BadRequest(w, "Invalid tournament", err)
				return
			}
			tournament, err := tournamentService.CreateTournament(r.Context(), currentUser(r).ID, in)
			if err != nil {
				httputil.WriteError(w, "Failed to create tournament", err)
				return
			}
			httputil.JSON(w, http.StatusCreated, tournament)
		})

		r.Put("/tournaments/{id}", func(w http.ResponseWriter, r *http.Request) {
			id, ok := parseID(w, r, "id")
			if !ok {
				return
			}
			var in service.TournamentUpdate
			if err := httputil.DecodeJSON(w, r, &in); err != nil {
				httputil.BadRequest(w, "Invalid tournament update", err)
				return
			}
			tournament, err := tournamentService.UpdateTournament(r.Context(), id, currentUser(r).ID, in)
			if err != nil {
				httputil.WriteError(w, "Failed to update tournament", err)
				return
			}
			httputil.JSON(w, http.StatusOK, tournament)
		})

		r.Post("/tournaments/{id}/judges", func(w http.ResponseWriter, r *http.Request) {
			id, ok := parseID(w, r, "id")
			if !ok {
				return
			}
			var in struct {
				JudgeID uuid.UUID `json:"judge_id"`
			}
			if err := httputil.DecodeJSON(w, r, &in); err != nil {
				httputil.BadRequest(w, "Invalid judge", err)
				return
			}
			if err := tournamentService.AssignJudge(r.Context(), id, currentUser(r).ID, in.JudgeID); err != nil {
				httputil.WriteError(w, "Failed to assign judge", err)
				return
			}
			w.WriteHeader(http.StatusNoContent)
		})

		r.Post("/tournaments/{id}/series", func(w http.ResponseWriter, r *http.Request) {
			id, ok := parseID(w, r, "id")
			if !ok {
				return
			}
			var in struct {
				SeriesIDs []int64 `json:"series_ids"`
			}
			if err := httputil.DecodeJSON(w, r, &in); err != nil {
				httputil.BadRequest(w, "Invalid series", err)
				return
			}
			if err := tournamentService.AddSeries(r.Context(), id, currentUser(r).ID, in.SeriesIDs); err != nil {
				httputil.WriteError(w, "Failed to add series", err)
				return
			}
			w.WriteHeader(http.StatusNoContent)
		})

		r.Post("/tournaments/{id}/finalize", func(w http.ResponseWriter, r *http.Request) {
			id, ok := parseID(w, r, "id")
			if !ok {
				return
			}
			tournament, err := tournamentService.FinalizeRegistration(r.Context(), id, currentUser(r).ID)
			if err != nil {
				httputil.WriteError(w, "Failed to finalize registration", err)
				return
			}
			httputil.JSON(w, http.StatusOK, tournament)
		})

		r.Post("/tournaments/{id}/cancel", func(w http.ResponseWriter, r *http.Request) {
			id, ok := parseID(w, r, "id")
			if !ok {
				return
			}
			if err := tournamentService.CancelTournament(r.Context(), id, currentUser(r).ID); err != nil {
				httputil.WriteError(w, "Failed to cancel tournament", err)
				return
			}
			w.WriteHeader(http.StatusNoContent)
		})

		r.Post("/tournaments/{id}/players", func(w http.ResponseWriter, r *http.Request) {
			id, ok := parseID(w, r, "id")
			if !ok {
				return
			}
			var in struct {
				CardIDs []int64 `json:"card_ids"`
			}
			if err := httputil.DecodeJSON(w, r, &in); err != nil {
				httputil.BadRequest(w, "Invalid deck", err)
				return
			}
			result, err := tournamentService.RegisterPlayer(r.Context(), id, currentUser(r).ID, in.CardIDs)
			if err != nil {
				httputil.WriteError(w, "Failed to register player", err)
				return
			}
			httputil.JSON(w, http.StatusCreated, result)
		})

		r.Post("/tournaments/{id}/games/{gameID}/winner", func(w http.ResponseWriter, r *http.Request) {
			id, ok := parseID(w, r, "id")
			if !ok {
				return
			}
			gameID, ok := parseID(w, r, "gameID")
			if !ok {
				return
			}
			var in struct {
				WinnerID uuid.UUID `json:"winner_id"`
			}
			if err := httputil.DecodeJSON(w, r, &in); err != nil {
				httputil.BadRequest(w, "Invalid winner", err)
				return
			}
			outcome, err := matchService.RecordGameResult(r.Context(), id, gameID, currentUser(r).ID, in.WinnerID)
			if err != nil {
				httputil.WriteError(w, "Failed to record result", err)
				return
			}
			httputil.JSON(w, http.StatusOK, outcome)
		})

		r.Post("/tournaments/{id}/disqualifications", func(w http.ResponseWriter, r *http.Request) {
			id, ok := parseID(w, r, "id")
			if !ok {
				return
			}
			var in struct {
				PlayerID uuid.UUID `json:"player_id"`
				Reason   string    `json:"reason"`
			}
			if err := httputil.DecodeJSON(w, r, &in); err != nil {
				httputil.BadRequest(w, "Invalid disqualification", err)
				return
			}
			outcome, err := matchService.Disqualify(r.Context(), id, in.PlayerID, in.Reason, currentUser(r).ID)
			if err != nil {
				httputil.WriteError(w, "Failed to disqualify player", err)
				return
			}
			httputil.JSON(w, http.StatusOK, outcome)
		})

		r.Get("/players/me/cards", func(w http.ResponseWriter, r *http.Request) {
			cards, err := cardService.Collection(r.Context(), currentUser(r).ID)
			if err != nil {
				httputil.WriteError(w, "Failed to get collection", err)
				return
			}
			httputil.JSON(w, http.StatusOK, cards)
		})

		r.Post("/players/me/cards", func(w http.ResponseWriter, r *http.Request) {
			var in struct {
				CardIDs []int64 `json:"card_ids"`
			}
			if err := httputil.DecodeJSON(w, r, &in); err != nil {
				httputil.BadRequest(w, "Invalid cards", err)
				return
			}
			if err := cardService.AddToCollection(r.Context(), currentUser(r).ID, in.CardIDs); err != nil {
				httputil.WriteError(w, "Failed to add cards", err)
				return
			}
			w.WriteHeader(http.StatusNoContent)
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireRole(users.RoleAdministrator))

			r.Post("/series", func(w http.ResponseWriter, r *http.Request) {
				var in struct {
					Name string `json:"name"`
				}
				if err := httputil.DecodeJSON(w, r, &in); err != nil {
					httputil.BadRequest(w, "Invalid series", err)
					return
				}
				series, err := cardService.CreateSeries(r.Context(), currentUser(r).ID, in.Name)
				if err != nil {
					httputil.WriteError(w, "Failed to create series", err)
					return
				}
				httputil.JSON(w, http.StatusCreated, series)
			})

			r.Post("/cards", func(w http.ResponseWriter, r *http.Request) {
				var in struct {
					card.Card
					SeriesIDs []int64 `json:"series_ids"`
				}
				if err := httputil.DecodeJSON(w, r, &in); err != nil {
					httputil.BadRequest(w, "Invalid card", err)
					return
				}
				if err := cardService.CreateCard(r.Context(), currentUser(r).ID, &in.Card, in.SeriesIDs); err != nil {
					httputil.WriteError(w, "Failed to create card", err)
					return
				}
				httputil.JSON(w, http.StatusCreated, in.Card)
			})

			r.Put("/users/{id}/role", func(w http.ResponseWriter, r *http.Request) {
				id, ok := parseID(w, r, "id")
				if !ok {
					return
				}
				var in struct {
					Role users.Role `json:"role"`
				}
				if err := httputil.DecodeJSON(w, r, &in); err != nil {
					httputil.BadRequest(w, "Invalid role", err)
					return
				}
				if err := userService.SetRole(r.Context(), currentUser(r).ID, id, in.Role); err != nil {
					httputil.WriteError(w, "Failed to set role", err)
					return
				}
				w.WriteHeader(http.StatusNoContent)
			})
		})
	})

	r.Get("/auth/{provider}", func(w http.ResponseWriter, r *http.Request) {
		provider := chi.URLParam(r, "provider")
		gothic.BeginAuthHandler(w, gothic.GetContextWithProvider(r, provider))
	})

	r.Get("/auth/{provider}/callback", func(w http.ResponseWriter, r *http.Request) {
		provider := chi.URLParam(r, "provider")
		r = gothic.GetContextWithProvider(r, provider)

		gothUser, err := gothic.CompleteUserAuth(w, r)
		if err != nil {
			httputil.BadRequest(w, "Authentication failure", err)
			return
		}

		user, err := userService.FindOrCreateUserByProvider(r.Context(), gothUser)
		if err != nil {
			httputil.InternalServerError(w, "Failed to find or create user", err)
			return
		}

		if err := middleware.Login(sessionManager, r.Context(), user.ID); err != nil {
			httputil.InternalServerError(w, "Failed to start session", err)
			return
		}
		http.Redirect(w, r, "/me", http.StatusFound)
	})

	if cfg.GuestLogin {
		r.Post("/auth/guest", func(w http.ResponseWriter, r *http.Request) {
			user, err := userService.EnsureGuestUser(r.Context())
			if err != nil {
				httputil.InternalServerError(w, "Failed to login as guest", err)
				return
			}
			if err := middleware.Login(sessionManager, r.Context(), user.ID); err != nil {
				httputil.InternalServerError(w, "Failed to start session", err)
				return
			}
			httputil.JSON(w, http.StatusOK, user)
		})
	}

	r.Post("/logout", func(w http.ResponseWriter, r *http.Request) {
		if err := sessionManager.Destroy(r.Context()); err != nil {
			httputil.InternalServerError(w, "Failed to logout", err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})

	return r
}

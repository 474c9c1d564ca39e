package service

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"

	"github.com/AdamBeresnev/tcg-tournament/internal/store"
	users "github.com/AdamBeresnev/tcg-tournament/internal/user"
	"github.com/AdamBeresnev/tcg-tournament/internal/utils"
	"github.com/google/uuid"
	"github.com/markbates/goth"
)

// GuestUserID is the fixed id of the shared guest player.
const GuestUserID = "00000000-0000-0000-0000-000000000002"

type UserService struct {
	store *store.UserStore
}

func NewUserService(store *store.UserStore) *UserService {
	return &UserService{store: store}
}

// FindOrCreateUserByProvider signs in an OAuth identity. New accounts start
// as players; returning ones get their profile refreshed from the provider.
func (s *UserService) FindOrCreateUserByProvider(ctx context.Context, gothUser goth.User) (*users.User, error) {
	user, err := s.store.GetUserByProvider(ctx, gothUser.Provider, gothUser.UserID)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return s.signUp(ctx, gothUser)
	case err != nil:
		return nil, err
	}

	avatar := utils.NonBlank(gothUser.AvatarURL)
	name := firstNonEmpty(gothUser.NickName, user.Username)
	if utils.SamePtr(avatar, user.AvatarURL) && name == user.Username {
		return user, nil
	}
	user.AvatarURL = avatar
	user.Username = name
	if err := s.store.UpdateProfile(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *UserService) signUp(ctx context.Context, gothUser goth.User) (*users.User, error) {
	user := &users.User{
		ID:         uuid.New(),
		Email:      gothUser.Email,
		Username:   firstNonEmpty(gothUser.NickName, gothUser.Name, gothUser.Email),
		Role:       users.RolePlayer,
		Provider:   utils.Ptr(gothUser.Provider),
		ProviderID: utils.Ptr(gothUser.UserID),
		AvatarURL:  utils.NonBlank(gothUser.AvatarURL),
	}
	if err := s.store.CreateUser(ctx, user); err != nil {
		return nil, err
	}
	slog.Info("user signed up", "user_id", user.ID, "provider", gothUser.Provider)
	return user, nil
}

// EnsureGuestUser returns the shared guest account, a plain player.
func (s *UserService) EnsureGuestUser(ctx context.Context) (*users.User, error) {
	guestID := uuid.MustParse(GuestUserID)
	user, err := s.store.GetUser(ctx, guestID)
	if !errors.Is(err, sql.ErrNoRows) {
		return user, err
	}

	guest := &users.User{
		ID:       guestID,
		Email:    "guest@tcg-tournament.local",
		Username: "Guest",
		Role:     users.RolePlayer,
	}
	if err := s.store.CreateUser(ctx, guest); err != nil {
		return nil, err
	}
	return guest, nil
}

func (s *UserService) GetUser(ctx context.Context, id uuid.UUID) (*users.User, error) {
	user, err := s.store.GetUser(ctx, id)
	if err != nil {
		return nil, notFound(err, "user")
	}
	return user, nil
}

func (s *UserService) ListByRole(ctx context.Context, role users.Role) ([]users.User, error) {
	if !role.Valid() {
		return nil, validationf("unknown role %q", role)
	}
	return s.store.ListUsersByRole(ctx, role)
}

// SetRole lets an administrator promote or demote a user.
func (s *UserService) SetRole(ctx context.Context, actorID, userID uuid.UUID, role users.Role) error {
	if !role.Valid() {
		return validationf("unknown role %q", role)
	}
	actor, err := s.store.GetUser(ctx, actorID)
	if err != nil {
		return notFound(err, "user")
	}
	if actor.Role != users.RoleAdministrator {
		return forbiddenf("only administrators can change roles")
	}
	if err := s.store.SetRole(ctx, userID, role); err != nil {
		return notFound(err, "user")
	}
	slog.Info("role changed", "user_id", userID, "role", role, "by", actorID)
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

package store

import (
	"context"

	users "github.com/AdamBeresnev/tcg-tournament/internal/user"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type UserStore struct {
	db *sqlx.DB
}

const userColumns = "id, email, username, role, created_at, provider, provider_id, avatar_url"

const (
	getUserQuery           = "SELECT " + userColumns + " FROM users WHERE id = ?"
	getUserByProviderQuery = `
		SELECT ` + userColumns + ` FROM users
		WHERE provider = ? AND provider_id = ?
	`
	listUsersByRoleQuery = "SELECT " + userColumns + " FROM users WHERE role = ? ORDER BY username"
	createUserQuery      = `
		INSERT INTO users (id, email, username, role, provider, provider_id, avatar_url) VALUES
		(:id, :email, :username, :role, :provider, :provider_id, :avatar_url)
	`
	updateProfileQuery = `
		UPDATE users SET
		username = :username,
		avatar_url = :avatar_url
		WHERE id = :id
	`
	setRoleQuery = "UPDATE users SET role = ? WHERE id = ?"
)

func NewUserStore(db *sqlx.DB) *UserStore {
	return &UserStore{db: db}
}

func getUser(ctx context.Context, q sqlx.QueryerContext, query string, args ...any) (*users.User, error) {
	var user users.User
	if err := sqlx.GetContext(ctx, q, &user, query, args...); err != nil {
		return nil, err
	}
	return &user, nil
}

// GetUserByProvider finds the account an OAuth identity signed up with.
func (s *UserStore) GetUserByProvider(ctx context.Context, provider, providerID string) (*users.User, error) {
	return getUser(ctx, s.db, getUserByProviderQuery, provider, providerID)
}

func (s *UserStore) GetUser(ctx context.Context, id uuid.UUID) (*users.User, error) {
	return getUser(ctx, s.db, getUserQuery, id)
}

func (s *UserStore) GetUserTx(ctx context.Context, tx *sqlx.Tx, id uuid.UUID) (*users.User, error) {
	return getUser(ctx, tx, getUserQuery, id)
}

func (s *UserStore) ListUsersByRole(ctx context.Context, role users.Role) ([]users.User, error) {
	var list []users.User
	err := s.db.SelectContext(ctx, &list, listUsersByRoleQuery, role)
	return list, err
}

// CreateUser inserts the user, defaulting to the player role.
func (s *UserStore) CreateUser(ctx context.Context, user *users.User) error {
	if user.Role == "" {
		user.Role = users.RolePlayer
	}
	_, err := s.db.NamedExecContext(ctx, createUserQuery, user)
	return err
}

// UpdateProfile writes the username and avatar synced from the OAuth provider.
func (s *UserStore) UpdateProfile(ctx context.Context, user *users.User) error {
	res, err := s.db.NamedExecContext(ctx, updateProfileQuery, user)
	if err != nil {
		return err
	}
	return expectRows(res)
}

func (s *UserStore) SetRole(ctx context.Context, id uuid.UUID, role users.Role) error {
	res, err := s.db.ExecContext(ctx, setRoleQuery, role, id)
	if err != nil {
		return err
	}
	return expectRows(res)
}

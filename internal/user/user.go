package users

import (
	"time"

	"github.com/google/uuid"
)

type ContextKey string

const UserKey ContextKey = "user"

type Role string

const (
	RoleAdministrator Role = "administrator"
	RoleOrganizer     Role = "organizer"
	RoleJudge         Role = "judge"
	RolePlayer        Role = "player"
)

func (r Role) Valid() bool {
	switch r {
	case RoleAdministrator, RoleOrganizer, RoleJudge, RolePlayer:
		return true
	}
	return false
}

type User struct {
	ID         uuid.UUID `db:"id" json:"id"`
	Email      string    `db:"email" json:"email"`
	Username   string    `db:"username" json:"username"`
	Role       Role      `db:"role" json:"role"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	Provider   *string   `db:"provider" json:"-"`
	ProviderID *string   `db:"provider_id" json:"-"`
	AvatarURL  *string   `db:"avatar_url" json:"avatar_url,omitempty"`
}

// HasRole treats administrators as holding every role.
func (u *User) HasRole(roles ...Role) bool {
	if u.Role == RoleAdministrator {
		return true
	}
	for _, r := range roles {
		if u.Role == r {
			return true
		}
	}
	return false
}

package domain

import (
	"context"
	"time"
)

// Role is the platform role of a user.
type Role string

const (
	RoleParticipant Role = "participant"
	RoleOrganizer   Role = "organizer"
	RoleAdmin       Role = "admin"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleParticipant, RoleOrganizer, RoleAdmin:
		return true
	}
	return false
}

// User is a platform account. Accounts are managed outside this service; it only reads them.
// swagger:model User
type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Username  string    `json:"username"`
	Role      Role      `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

// Actor is the authenticated caller of an operation.
type Actor struct {
	ID    string
	Email string
	Role  Role
}

// IsAdmin reports whether the actor has the admin role.
func (a Actor) IsAdmin() bool {
	return a.Role == RoleAdmin
}

// CanManage reports whether the actor may manage resources of the event: admins always, organizers only for their own events.
func (a Actor) CanManage(e *Event) bool {
	if a.IsAdmin() {
		return true
	}
	return e != nil && a.Role == RoleOrganizer && e.OrganizerID == a.ID
}

// TokenIssuer issues tokens (e.g. JWT) for a user.
type TokenIssuer interface {
	Issue(userID, email string, roles []string, expiry time.Duration) (string, error)
}

// TokenVerifier verifies a token and returns the authenticated actor.
type TokenVerifier interface {
	Verify(token string) (*Actor, error)
}

// UserRepository reads platform users.
type UserRepository interface {
	GetByID(ctx context.Context, id string) (*User, error)
	ListIDs(ctx context.Context) ([]string, error)
}

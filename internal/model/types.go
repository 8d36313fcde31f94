package model

import (
	"time"

	"github.com/google/uuid"
)

// User represents a registered user. Username and email keep their original
// casing; uniqueness is enforced on the lowercased form.
type User struct {
	ID           uuid.UUID
	Username     string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Session represents an authenticated session. The token is the bearer
// credential; a session is valid while ExpiresAt is in the future. Revocation
// back-dates ExpiresAt instead of deleting the row.
type Session struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	Token     string
	ExpiresAt time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Expired reports whether the session is no longer valid at the given instant.
func (s Session) Expired(at time.Time) bool {
	return !s.ExpiresAt.After(at)
}

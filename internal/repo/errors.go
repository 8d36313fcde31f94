package repo

import (
	"errors"

	"github.com/lib/pq"
)

// Sentinel errors returned by repositories. Services map them onto the
// client-facing taxonomy.
var (
	ErrNotFound          = errors.New("record not found")
	ErrDuplicateUsername = errors.New("username already taken")
	ErrDuplicateEmail    = errors.New("email already taken")
	ErrDuplicateToken    = errors.New("session token already exists")
)

const uniqueViolation = "23505"

// Unique index names, declared in internal/db/migrations. The database
// constraint is the authoritative uniqueness guard; application-level
// pre-checks are an ordering/reporting optimization only.
const (
	usernameIdx = "users_username_lower_idx"
	emailIdx    = "users_email_lower_idx"
	tokenIdx    = "sessions_token_idx"
)

// mapUniqueViolation translates a Postgres unique-constraint error into the
// matching sentinel, or returns err unchanged.
func mapUniqueViolation(err error) error {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) || pqErr.Code != uniqueViolation {
		return err
	}
	switch pqErr.Constraint {
	case usernameIdx:
		return ErrDuplicateUsername
	case emailIdx:
		return ErrDuplicateEmail
	case tokenIdx:
		return ErrDuplicateToken
	}
	return err
}

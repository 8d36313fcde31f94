package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/userbase/server/internal/model"
)

// SessionRepo defines the persistence operations the session manager
// requires.
type SessionRepo interface {
	Create(ctx context.Context, session model.Session) error
	// GetValidByToken returns the session matching token only while its
	// expiry is in the future. Missing and expired rows are both ErrNotFound.
	GetValidByToken(ctx context.Context, token string) (model.Session, error)
	// UpdateExpiry rewrites expires_at and updated_at in a single statement
	// and returns the updated row.
	UpdateExpiry(ctx context.Context, id uuid.UUID, expiresAt, updatedAt time.Time) (model.Session, error)
}

type sessionRepo struct {
	db *sql.DB
}

// NewSessionRepo creates a Postgres-backed SessionRepo.
func NewSessionRepo(db *sql.DB) SessionRepo {
	return &sessionRepo{db: db}
}

func scanSession(row *sql.Row) (model.Session, error) {
	var s model.Session
	var idStr, userIDStr string
	err := row.Scan(
		&idStr,
		&userIDStr,
		&s.Token,
		&s.ExpiresAt,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Session{}, ErrNotFound
		}
		return model.Session{}, fmt.Errorf("query session: %w", err)
	}
	if s.ID, err = uuid.Parse(idStr); err != nil {
		return model.Session{}, fmt.Errorf("parse session ID: %w", err)
	}
	if s.UserID, err = uuid.Parse(userIDStr); err != nil {
		return model.Session{}, fmt.Errorf("parse session user ID: %w", err)
	}
	return s, nil
}

// Create inserts a new session. A token collision surfaces as
// ErrDuplicateToken via the unique index; callers treat it as fatal.
func (r *sessionRepo) Create(ctx context.Context, session model.Session) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO sessions (id, user_id, token, expires_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, session.ID, session.UserID, session.Token, session.ExpiresAt, session.CreatedAt, session.UpdatedAt)
	if err != nil {
		if mapped := mapUniqueViolation(err); mapped != err {
			return mapped
		}
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

func (r *sessionRepo) GetValidByToken(ctx context.Context, token string) (model.Session, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, user_id, token, expires_at, created_at, updated_at
		FROM sessions
		WHERE token = $1 AND expires_at > now()
	`, token)
	return scanSession(row)
}

func (r *sessionRepo) UpdateExpiry(ctx context.Context, id uuid.UUID, expiresAt, updatedAt time.Time) (model.Session, error) {
	row := r.db.QueryRowContext(ctx, `
		UPDATE sessions
		SET expires_at = $2, updated_at = $3
		WHERE id = $1
		RETURNING id, user_id, token, expires_at, created_at, updated_at
	`, id, expiresAt, updatedAt)
	return scanSession(row)
}

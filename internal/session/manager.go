// Package session implements the session manager: issuing, validating and
// revoking opaque bearer tokens.
package session

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/userbase/server/internal/apperr"
	"github.com/userbase/server/internal/clock"
	"github.com/userbase/server/internal/model"
	"github.com/userbase/server/internal/repo"
)

// backdatePeriod is subtracted from a session's own expires_at on revocation.
// The result is deterministic for a given session, independent of "now".
const backdatePeriod = 365 * 24 * time.Hour

// Manager owns the session token lifecycle. It knows user IDs only as opaque
// references; resolving a token to a user record is the caller's join.
type Manager struct {
	repo  repo.SessionRepo
	clock *clock.Clock
	ttl   time.Duration
}

func NewManager(sessionRepo repo.SessionRepo, clk *clock.Clock, ttl time.Duration) *Manager {
	return &Manager{repo: sessionRepo, clock: clk, ttl: ttl}
}

// TTL returns the configured session lifetime.
func (m *Manager) TTL() time.Duration { return m.ttl }

// Create mints a fresh session for userID, valid for the configured TTL.
func (m *Manager) Create(ctx context.Context, userID uuid.UUID) (model.Session, error) {
	token, err := newToken()
	if err != nil {
		return model.Session{}, apperr.Internal(err)
	}

	now := m.clock.Now()
	s := model.Session{
		ID:        uuid.New(),
		UserID:    userID,
		Token:     token,
		ExpiresAt: now.Add(m.ttl),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := m.repo.Create(ctx, s); err != nil {
		// Includes ErrDuplicateToken: a 384-bit collision means something is
		// deeply wrong, so fail loudly instead of retrying.
		return model.Session{}, apperr.Internal(err)
	}
	return s, nil
}

// FindByToken returns the active session for token. A missing, unknown or
// expired token yields the identical UnauthorizedError.
func (m *Manager) FindByToken(ctx context.Context, token string) (model.Session, error) {
	if token == "" {
		return model.Session{}, apperr.NoActiveSession()
	}
	s, err := m.repo.GetValidByToken(ctx, token)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return model.Session{}, apperr.NoActiveSession()
		}
		return model.Session{}, apperr.Internal(err)
	}
	return s, nil
}

// Revoke invalidates a session by rewriting expires_at to one year before its
// prior value. Idempotent: revoking an already-revoked session back-dates it
// further without error.
func (m *Manager) Revoke(ctx context.Context, s model.Session) (model.Session, error) {
	expiresAt := s.ExpiresAt.Add(-backdatePeriod)
	revoked, err := m.repo.UpdateExpiry(ctx, s.ID, expiresAt, m.clock.Now())
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return model.Session{}, apperr.NoActiveSession()
		}
		return model.Session{}, apperr.Internal(err)
	}
	return revoked, nil
}

// Package repotest provides in-memory repository implementations for tests.
// They honor the same contracts as the Postgres repositories: case-folded
// uniqueness on username and email, token uniqueness, and expiry filtering.
package repotest

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/userbase/server/internal/model"
	"github.com/userbase/server/internal/repo"
)

// UserRepo is an in-memory repo.UserRepo.
type UserRepo struct {
	mu    sync.Mutex
	users map[uuid.UUID]model.User
}

func NewUserRepo() *UserRepo {
	return &UserRepo{users: make(map[uuid.UUID]model.User)}
}

func fold(s string) string { return strings.ToLower(s) }

func (r *UserRepo) Create(_ context.Context, user model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if fold(u.Username) == fold(user.Username) {
			return repo.ErrDuplicateUsername
		}
	}
	for _, u := range r.users {
		if fold(u.Email) == fold(user.Email) {
			return repo.ErrDuplicateEmail
		}
	}
	r.users[user.ID] = user
	return nil
}

func (r *UserRepo) GetByID(_ context.Context, id uuid.UUID) (model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return model.User{}, repo.ErrNotFound
	}
	return u, nil
}

func (r *UserRepo) GetByUsername(_ context.Context, username string) (model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if fold(u.Username) == fold(username) {
			return u, nil
		}
	}
	return model.User{}, repo.ErrNotFound
}

func (r *UserRepo) GetByEmail(_ context.Context, email string) (model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if fold(u.Email) == fold(email) {
			return u, nil
		}
	}
	return model.User{}, repo.ErrNotFound
}

func (r *UserRepo) Update(_ context.Context, user model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[user.ID]; !ok {
		return repo.ErrNotFound
	}
	for id, u := range r.users {
		if id == user.ID {
			continue
		}
		if fold(u.Username) == fold(user.Username) {
			return repo.ErrDuplicateUsername
		}
	}
	for id, u := range r.users {
		if id == user.ID {
			continue
		}
		if fold(u.Email) == fold(user.Email) {
			return repo.ErrDuplicateEmail
		}
	}
	r.users[user.ID] = user
	return nil
}

// SessionRepo is an in-memory repo.SessionRepo.
type SessionRepo struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]model.Session
}

func NewSessionRepo() *SessionRepo {
	return &SessionRepo{sessions: make(map[uuid.UUID]model.Session)}
}

func (r *SessionRepo) Create(_ context.Context, session model.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.sessions {
		if s.Token == session.Token {
			return repo.ErrDuplicateToken
		}
	}
	r.sessions[session.ID] = session
	return nil
}

func (r *SessionRepo) GetValidByToken(_ context.Context, token string) (model.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.sessions {
		if s.Token == token && !s.Expired(time.Now()) {
			return s, nil
		}
	}
	return model.Session{}, repo.ErrNotFound
}

func (r *SessionRepo) UpdateExpiry(_ context.Context, id uuid.UUID, expiresAt, updatedAt time.Time) (model.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		return model.Session{}, repo.ErrNotFound
	}
	s.ExpiresAt = expiresAt
	s.UpdatedAt = updatedAt
	r.sessions[id] = s
	return s, nil
}

// Get returns a stored session by ID, for test assertions.
func (r *SessionRepo) Get(id uuid.UUID) (model.Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	return s, ok
}

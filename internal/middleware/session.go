package middleware

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/userbase/server/internal/apperr"
	"github.com/userbase/server/internal/model"
	"github.com/userbase/server/internal/session"
	"github.com/userbase/server/internal/user"
)

type contextKey string

const (
	userKey    contextKey = "user"
	sessionKey contextKey = "session"
)

// SessionCookieName is the cookie carrying the session token.
const SessionCookieName = "session_id"

// SessionAuth validates the session cookie, loads the owning user and
// attaches both to the request context. Sessions are never renewed here; a
// new login is the only way to obtain a fresh expiry.
func SessionAuth(sessions *session.Manager, directory *user.Directory) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(SessionCookieName)
			if err != nil {
				respondWithError(w, apperr.NoActiveSession())
				return
			}

			s, err := sessions.FindByToken(r.Context(), cookie.Value)
			if err != nil {
				respondWithError(w, err)
				return
			}

			u, err := directory.FindByID(r.Context(), s.UserID)
			if err != nil {
				// A valid token pointing at a missing user is still "no
				// active session" to the client.
				if appErr := apperr.From(err); appErr.StatusCode == http.StatusNotFound {
					respondWithError(w, apperr.NoActiveSession())
					return
				}
				respondWithError(w, err)
				return
			}

			ctx := context.WithValue(r.Context(), userKey, u)
			ctx = context.WithValue(ctx, sessionKey, s)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// UserFromContext returns the user attached by SessionAuth.
func UserFromContext(ctx context.Context) (model.User, bool) {
	u, ok := ctx.Value(userKey).(model.User)
	return u, ok
}

// SessionFromContext returns the session attached by SessionAuth.
func SessionFromContext(ctx context.Context) (model.Session, bool) {
	s, ok := ctx.Value(sessionKey).(model.Session)
	return s, ok
}

// respondWithError serializes err in the shared taxonomy shape.
func respondWithError(w http.ResponseWriter, err error) {
	appErr := apperr.From(err)
	if appErr.StatusCode >= http.StatusInternalServerError {
		logrus.WithError(err).Error("request failed")
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(appErr.StatusCode)
	_ = json.NewEncoder(w).Encode(appErr)
}

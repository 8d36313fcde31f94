package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/userbase/server/internal/apperr"
	"github.com/userbase/server/internal/middleware"
	"github.com/userbase/server/internal/session"
	"github.com/userbase/server/internal/user"
)

// SessionHandler serves the /sessions endpoints and owns the cookie
// contract.
type SessionHandler struct {
	directory     *user.Directory
	sessions      *session.Manager
	secureCookies bool
}

func NewSessionHandler(directory *user.Directory, sessions *session.Manager, secureCookies bool) *SessionHandler {
	return &SessionHandler{
		directory:     directory,
		sessions:      sessions,
		secureCookies: secureCookies,
	}
}

type createSessionRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// HandleCreate handles POST /api/v1/sessions: login. Bad credentials yield a
// single undifferentiated 401.
func (h *SessionHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errInvalidBody())
		return
	}

	u, err := h.directory.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}

	s, err := h.sessions.Create(r.Context(), u.ID)
	if err != nil {
		writeError(w, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    s.Token,
		Path:     "/",
		MaxAge:   int(h.sessions.TTL().Seconds()),
		HttpOnly: true,
		Secure:   h.secureCookies,
	})
	writeJSON(w, http.StatusCreated, newSessionResponse(s))
}

// HandleDelete handles DELETE /api/v1/sessions: revocation. The response
// carries the back-dated session and instructs the client to drop the
// cookie.
func (h *SessionHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(middleware.SessionCookieName)
	if err != nil {
		writeError(w, apperr.NoActiveSession())
		return
	}

	s, err := h.sessions.FindByToken(r.Context(), cookie.Value)
	if err != nil {
		writeError(w, err)
		return
	}

	revoked, err := h.sessions.Revoke(r.Context(), s)
	if err != nil {
		writeError(w, err)
		return
	}

	// MaxAge -1 serializes as an immediate expiry, telling the client to
	// discard the cookie now.
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    "invalid",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secureCookies,
	})
	writeJSON(w, http.StatusOK, newSessionResponse(revoked))
}

// errMissingSessionContext covers the impossible case of a protected route
// running without SessionAuth having populated the context.
func errMissingSessionContext() error {
	return apperr.Internal(errors.New("session middleware did not populate request context"))
}

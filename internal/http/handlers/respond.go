package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/userbase/server/internal/apperr"
	"github.com/userbase/server/internal/model"
)

func writeJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logrus.WithError(err).Error("encode response")
	}
}

// writeError serializes err in the taxonomy shape. Unexpected causes are
// logged and collapse to the generic InternalServerError payload.
func writeError(w http.ResponseWriter, err error) {
	appErr := apperr.From(err)
	if appErr.StatusCode >= http.StatusInternalServerError {
		logrus.WithError(err).Error("request failed")
	}
	writeJSON(w, appErr.StatusCode, appErr)
}

// errInvalidBody is returned for request bodies that do not decode.
func errInvalidBody() error {
	return apperr.Validation(
		"The request body is not valid JSON.",
		"Send a valid JSON body and try again.",
	)
}

// userResponse is the redacted user shape. The password hash never leaves
// the adapter.
type userResponse struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

func newUserResponse(u model.User) userResponse {
	return userResponse{
		ID:        u.ID.String(),
		Username:  u.Username,
		Email:     u.Email,
		CreatedAt: u.CreatedAt.Format(timeFormat),
		UpdatedAt: u.UpdatedAt.Format(timeFormat),
	}
}

// sessionResponse includes the token: it is the credential being handed to
// the client that owns it.
type sessionResponse struct {
	ID        string `json:"id"`
	UserID    string `json:"user_id"`
	Token     string `json:"token"`
	ExpiresAt string `json:"expires_at"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

func newSessionResponse(s model.Session) sessionResponse {
	return sessionResponse{
		ID:        s.ID.String(),
		UserID:    s.UserID.String(),
		Token:     s.Token,
		ExpiresAt: s.ExpiresAt.Format(timeFormat),
		CreatedAt: s.CreatedAt.Format(timeFormat),
		UpdatedAt: s.UpdatedAt.Format(timeFormat),
	}
}

// timeFormat is RFC 3339 with millisecond precision, matching the rest of
// the API's timestamps.
const timeFormat = "2006-01-02T15:04:05.000Z07:00"

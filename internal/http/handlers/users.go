package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/userbase/server/internal/middleware"
	"github.com/userbase/server/internal/user"
)

// UserHandler serves the /users endpoints.
type UserHandler struct {
	directory *user.Directory
}

func NewUserHandler(directory *user.Directory) *UserHandler {
	return &UserHandler{directory: directory}
}

type createUserRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type patchUserRequest struct {
	Username *string `json:"username"`
	Email    *string `json:"email"`
	Password *string `json:"password"`
}

// HandleCreate handles POST /api/v1/users.
func (h *UserHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errInvalidBody())
		return
	}

	created, err := h.directory.Create(r.Context(), user.CreateInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, newUserResponse(created))
}

// HandleGet handles GET /api/v1/users/{username}. Lookup is
// case-insensitive; the response carries the stored casing.
func (h *UserHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")

	found, err := h.directory.FindByUsername(r.Context(), username)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, newUserResponse(found))
}

// HandlePatch handles PATCH /api/v1/users/{username}. Absent fields are left
// unchanged; the first uniqueness violation aborts the whole update.
func (h *UserHandler) HandlePatch(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")

	// An empty body is an empty patch, not a decode failure; the target must
	// still resolve (or 404) before anything else.
	var req patchUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, errInvalidBody())
		return
	}

	updated, err := h.directory.Update(r.Context(), username, user.Patch{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, newUserResponse(updated))
}

// HandleCurrent handles GET /api/v1/user: the user owning the session cookie.
func (h *UserHandler) HandleCurrent(w http.ResponseWriter, r *http.Request) {
	u, ok := middleware.UserFromContext(r.Context())
	if !ok {
		writeError(w, errMissingSessionContext())
		return
	}
	writeJSON(w, http.StatusOK, newUserResponse(u))
}

package handlers

import (
	"database/sql"
	"net/http"

	"github.com/userbase/server/internal/db"
)

// MigrationHandler serves the /migrations endpoints.
type MigrationHandler struct {
	db *sql.DB
}

func NewMigrationHandler(database *sql.DB) *MigrationHandler {
	return &MigrationHandler{db: database}
}

type migrationResponse struct {
	Version int64  `json:"version"`
	Name    string `json:"name"`
}

func newMigrationResponses(ms []db.Migration) []migrationResponse {
	out := make([]migrationResponse, 0, len(ms))
	for _, m := range ms {
		out = append(out, migrationResponse{Version: m.Version, Name: m.Name})
	}
	return out
}

// HandleList handles GET /api/v1/migrations: pending migrations.
func (h *MigrationHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	pending, err := db.PendingMigrations(h.db)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newMigrationResponses(pending))
}

// HandleRun handles POST /api/v1/migrations: apply pending migrations.
// Returns 201 with the applied list when anything ran, 200 with an empty
// list otherwise.
func (h *MigrationHandler) HandleRun(w http.ResponseWriter, r *http.Request) {
	applied, err := db.MigrateUp(h.db)
	if err != nil {
		writeError(w, err)
		return
	}

	status := http.StatusOK
	if len(applied) > 0 {
		status = http.StatusCreated
	}
	writeJSON(w, status, newMigrationResponses(applied))
}

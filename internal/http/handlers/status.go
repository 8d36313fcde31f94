package handlers

import (
	"database/sql"
	"net/http"
	"time"

	"github.com/userbase/server/internal/db"
)

// StatusHandler serves GET /api/v1/status.
type StatusHandler struct {
	db     *sql.DB
	dbName string
}

func NewStatusHandler(database *sql.DB, dbName string) *StatusHandler {
	return &StatusHandler{db: database, dbName: dbName}
}

type statusResponse struct {
	UpdatedAt    string             `json:"updated_at"`
	Dependencies statusDependencies `json:"dependencies"`
}

type statusDependencies struct {
	Database databaseStatus `json:"database"`
}

type databaseStatus struct {
	Version           string `json:"version"`
	MaxConnections    int    `json:"max_connections"`
	OpenedConnections int    `json:"opened_connections"`
}

// HandleGet reports database health facts.
func (h *StatusHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	stats, err := db.ReadStats(r.Context(), h.db, h.dbName)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, statusResponse{
		UpdatedAt: time.Now().UTC().Format(timeFormat),
		Dependencies: statusDependencies{
			Database: databaseStatus{
				Version:           stats.Version,
				MaxConnections:    stats.MaxConnections,
				OpenedConnections: stats.OpenedConnections,
			},
		},
	})
}

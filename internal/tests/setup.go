// Package tests holds integration tests that run against a real Postgres
// instance. They are skipped unless DATABASE_URL is set.
package tests

import (
	"context"
	"database/sql"
	"net/http/httptest"
	"testing"
	"time"

	_ "github.com/lib/pq"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/userbase/server/internal/clock"
	"github.com/userbase/server/internal/config"
	"github.com/userbase/server/internal/db"
	httprouter "github.com/userbase/server/internal/http"
	"github.com/userbase/server/internal/http/handlers"
	"github.com/userbase/server/internal/middleware"
	"github.com/userbase/server/internal/password"
	"github.com/userbase/server/internal/repo"
	"github.com/userbase/server/internal/session"
	"github.com/userbase/server/internal/user"
)

// testServer holds the HTTP server and database handle for integration tests.
type testServer struct {
	Server *httptest.Server
	DB     *sql.DB
	TTL    time.Duration
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	cfg, err := config.Load()
	require.NoError(t, err, "config load must succeed for integration tests")

	ctx := context.Background()
	database, err := db.Open(ctx, cfg.DatabaseURL)
	require.NoError(t, err, "database open must succeed; check DATABASE_URL and that the test DB exists")
	t.Cleanup(func() { database.Close() })

	_, err = db.MigrateUp(database)
	require.NoError(t, err, "migrations must run successfully")

	clk := clock.New()
	hasher := password.NewHasher(bcrypt.MinCost)
	directory := user.NewDirectory(repo.NewUserRepo(database), hasher, clk)
	sessions := session.NewManager(repo.NewSessionRepo(database), clk, cfg.SessionTTL)

	router := httprouter.NewRouter(httprouter.Deps{
		Users:          handlers.NewUserHandler(directory),
		Sessions:       handlers.NewSessionHandler(directory, sessions, false),
		Status:         handlers.NewStatusHandler(database, db.Name(cfg.DatabaseURL)),
		Migrations:     handlers.NewMigrationHandler(database),
		SessionManager: sessions,
		Directory:      directory,
		LoginLimiter:   middleware.NewRateLimiter(10*time.Minute, 1000),
	})

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	return &testServer{Server: server, DB: database, TTL: cfg.SessionTTL}
}

func (s *testServer) BaseURL() string { return s.Server.URL + "/api/v1" }

// Truncate clears identity tables for a clean test state.
func (s *testServer) Truncate(t *testing.T) {
	t.Helper()
	_, err := s.DB.ExecContext(context.Background(), "TRUNCATE TABLE sessions, users CASCADE")
	require.NoError(t, err, "truncate identity tables")
}

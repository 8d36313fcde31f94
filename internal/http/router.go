package http

import (
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/userbase/server/internal/http/handlers"
	"github.com/userbase/server/internal/middleware"
	"github.com/userbase/server/internal/session"
	"github.com/userbase/server/internal/user"
)

// Deps carries everything the router wires together.
type Deps struct {
	Users      *handlers.UserHandler
	Sessions   *handlers.SessionHandler
	Status     *handlers.StatusHandler
	Migrations *handlers.MigrationHandler

	SessionManager *session.Manager
	Directory      *user.Directory
	LoginLimiter   *middleware.RateLimiter
}

// NewRouter creates the HTTP router with all routes configured.
func NewRouter(d Deps) *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestLogger)
	r.Use(chimw.Recoverer)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/status", d.Status.HandleGet)

		r.Get("/migrations", d.Migrations.HandleList)
		r.Post("/migrations", d.Migrations.HandleRun)

		r.Post("/users", d.Users.HandleCreate)
		r.Get("/users/{username}", d.Users.HandleGet)
		r.Patch("/users/{username}", d.Users.HandlePatch)

		r.With(middleware.RateLimit(d.LoginLimiter, middleware.IPKey)).
			Post("/sessions", d.Sessions.HandleCreate)
		r.Delete("/sessions", d.Sessions.HandleDelete)

		// Routes requiring an active session cookie.
		r.Group(func(r chi.Router) {
			r.Use(middleware.SessionAuth(d.SessionManager, d.Directory))
			r.Get("/user", d.Users.HandleCurrent)
		})
	})

	return r
}

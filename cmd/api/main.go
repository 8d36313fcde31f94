package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"

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

func main() {
	// .env is optional; real environment variables take precedence.
	_ = godotenv.Load(".env")

	logrus.SetFormatter(&logrus.JSONFormatter{})

	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("load configuration")
	}
	if cfg.DevMode {
		logrus.SetLevel(logrus.DebugLevel)
	}

	ctx := context.Background()

	database, err := db.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		logrus.WithError(err).Fatal("open database")
	}
	defer database.Close()

	applied, err := db.MigrateUp(database)
	if err != nil {
		logrus.WithError(err).Fatal("run migrations")
	}
	if len(applied) > 0 {
		logrus.WithField("count", len(applied)).Info("applied pending migrations")
	}

	clk := clock.New()
	hasher := password.NewHasher(cfg.BcryptCost)

	userRepo := repo.NewUserRepo(database)
	sessionRepo := repo.NewSessionRepo(database)

	directory := user.NewDirectory(userRepo, hasher, clk)
	sessions := session.NewManager(sessionRepo, clk, cfg.SessionTTL)

	router := httprouter.NewRouter(httprouter.Deps{
		Users:          handlers.NewUserHandler(directory),
		Sessions:       handlers.NewSessionHandler(directory, sessions, !cfg.DevMode),
		Status:         handlers.NewStatusHandler(database, db.Name(cfg.DatabaseURL)),
		Migrations:     handlers.NewMigrationHandler(database),
		SessionManager: sessions,
		Directory:      directory,
		LoginLimiter:   middleware.NewRateLimiter(10*time.Minute, 20),
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		logrus.WithField("port", cfg.Port).Info("server starting")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.WithError(err).Fatal("server failed to start")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logrus.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logrus.WithError(err).Fatal("server forced to shutdown")
	}

	logrus.Info("server exited")
}

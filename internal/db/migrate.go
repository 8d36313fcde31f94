package db

import (
	"database/sql"
	"embed"
	"fmt"
	"path/filepath"

	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

const migrationsDir = "migrations"

// Migration describes a single schema migration.
type Migration struct {
	Version int64
	Name    string
}

func setupGoose() error {
	goose.SetBaseFS(migrationsFS)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}
	return nil
}

// PendingMigrations lists migrations that have not been applied yet, in
// ascending version order.
func PendingMigrations(db *sql.DB) ([]Migration, error) {
	if err := setupGoose(); err != nil {
		return nil, err
	}

	all, err := goose.CollectMigrations(migrationsDir, 0, goose.MaxVersion)
	if err != nil {
		return nil, fmt.Errorf("collect migrations: %w", err)
	}

	// EnsureDBVersion also creates the version table on a fresh database.
	current, err := goose.EnsureDBVersion(db)
	if err != nil {
		return nil, fmt.Errorf("read migration version: %w", err)
	}

	pending := []Migration{}
	for _, m := range all {
		if m.Version > current {
			pending = append(pending, Migration{Version: m.Version, Name: filepath.Base(m.Source)})
		}
	}
	return pending, nil
}

// MigrateUp applies all pending migrations and returns the ones it applied.
func MigrateUp(db *sql.DB) ([]Migration, error) {
	pending, err := PendingMigrations(db)
	if err != nil {
		return nil, err
	}
	if len(pending) == 0 {
		return []Migration{}, nil
	}
	if err := goose.Up(db, migrationsDir); err != nil {
		return nil, fmt.Errorf("goose up: %w", err)
	}
	return pending, nil
}

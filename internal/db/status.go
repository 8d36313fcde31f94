package db

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
)

// Stats reports operational facts about the database, served by the status
// endpoint.
type Stats struct {
	Version           string
	MaxConnections    int
	OpenedConnections int
}

// ReadStats queries the server version, the configured connection ceiling and
// the number of connections currently open against dbName.
func ReadStats(ctx context.Context, db *sql.DB, dbName string) (Stats, error) {
	var stats Stats

	if err := db.QueryRowContext(ctx, "SHOW server_version").Scan(&stats.Version); err != nil {
		return Stats{}, fmt.Errorf("query server version: %w", err)
	}

	var maxConns string
	if err := db.QueryRowContext(ctx, "SHOW max_connections").Scan(&maxConns); err != nil {
		return Stats{}, fmt.Errorf("query max connections: %w", err)
	}
	n, err := strconv.Atoi(maxConns)
	if err != nil {
		return Stats{}, fmt.Errorf("parse max connections %q: %w", maxConns, err)
	}
	stats.MaxConnections = n

	err = db.QueryRowContext(ctx,
		"SELECT count(*)::int FROM pg_stat_activity WHERE datname = $1",
		dbName,
	).Scan(&stats.OpenedConnections)
	if err != nil {
		return Stats{}, fmt.Errorf("query opened connections: %w", err)
	}

	return stats, nil
}

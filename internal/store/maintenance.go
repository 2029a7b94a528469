package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"cargoport/internal/cargo"
)

// Stats returns a count of cargo grouped by status.
func (s *Store) Stats(ctx context.Context) (map[cargo.Status]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(1) FROM cargo GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("cargo stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[cargo.Status]int)
	for rows.Next() {
		var status cargo.Status
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		stats[status] = count
	}
	return stats, rows.Err()
}

// CheckHealth returns diagnostic information about the cargo database.
func (s *Store) CheckHealth(ctx context.Context) (cargo.Health, error) {
	health := cargo.Health{
		Driver:   "sqlite",
		Location: s.path,
	}

	if s.path == "" {
		return health, errors.New("cargo database path is unknown")
	}
	info, err := os.Stat(s.path)
	if err != nil {
		health.Error = err.Error()
		return health, fmt.Errorf("stat cargo database: %w", err)
	}
	if info.IsDir() {
		return health, fmt.Errorf("cargo database path %q is a directory", s.path)
	}
	if s.db == nil {
		return health, errors.New("cargo database connection unavailable")
	}

	connCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := s.db.PingContext(connCtx); err != nil {
		health.Error = err.Error()
		return health, fmt.Errorf("ping cargo database: %w", err)
	}
	health.Reachable = true

	if err := s.db.QueryRowContext(connCtx, "SELECT version FROM schema_version LIMIT 1").Scan(&health.SchemaVersion); err != nil {
		health.Error = err.Error()
		return health, fmt.Errorf("read schema version: %w", err)
	}
	if err := s.db.QueryRowContext(connCtx, "SELECT COUNT(1) FROM cargo WHERE pending = 1").Scan(&health.Pending); err != nil {
		health.Error = err.Error()
		return health, fmt.Errorf("count pending cargo: %w", err)
	}
	counts, err := s.Stats(connCtx)
	if err != nil {
		health.Error = err.Error()
		return health, err
	}
	health.Counts = counts
	return health, nil
}

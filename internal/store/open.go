package store

import (
	"context"
	"fmt"

	"cargoport/internal/cargo"
	"cargoport/internal/config"
	"cargoport/internal/news"
	"cargoport/internal/store/postgres"
)

// Backend is the full persistence surface the daemon needs.
type Backend interface {
	cargo.Repository
	news.Store
	Close() error
}

var (
	_ Backend = (*Store)(nil)
	_ Backend = (*postgres.Store)(nil)
)

// Open returns the backend selected by cfg.Store.Driver.
func Open(ctx context.Context, cfg *config.Config) (Backend, error) {
	switch cfg.Store.Driver {
	case config.StoreDriverPostgres:
		if err := cfg.EnsureDirectories(); err != nil {
			return nil, fmt.Errorf("ensure directories: %w", err)
		}
		pg, err := postgres.Open(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("open postgres store: %w", err)
		}
		return pg, nil
	case config.StoreDriverSQLite, "":
		return OpenSQLite(cfg)
	default:
		return nil, fmt.Errorf("unsupported store driver %q", cfg.Store.Driver)
	}
}

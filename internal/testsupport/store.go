package testsupport

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"cargoport/internal/cargo"
	"cargoport/internal/config"
	"cargoport/internal/store"
)

// MustOpenStore opens a SQLite store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *store.Store {
	t.Helper()

	st, err := store.OpenSQLite(cfg)
	require.NoError(t, err, "store.OpenSQLite")
	t.Cleanup(func() {
		st.Close()
	})
	return st
}

// NewCargo creates a cargo of the given type for tests.
func NewCargo(t testing.TB, repo cargo.Repository, typ cargo.Type) *cargo.Cargo {
	t.Helper()

	item, err := repo.Create(context.Background(), cargo.NewCargo{Type: typ, PaintTime: 1.5})
	require.NoError(t, err, "repo.Create")
	return item
}

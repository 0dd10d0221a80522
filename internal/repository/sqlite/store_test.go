package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Rrens/workspace-access/internal/domain"
	"github.com/Rrens/workspace-access/internal/repository/storetest"
)

func newTestStore(t *testing.T) domain.Store {
	t.Helper()
	db, err := Open(context.Background(), filepath.Join(t.TempDir(), "access.db"))
	require.NoError(t, err)
	require.NoError(t, RunMigrations(db))

	store := NewStore(db)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestStore(t *testing.T) {
	storetest.Run(t, newTestStore)
}

func TestRunMigrationsIsIdempotent(t *testing.T) {
	db, err := Open(context.Background(), filepath.Join(t.TempDir(), "nested", "access.db"))
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, RunMigrations(db))
	require.NoError(t, RunMigrations(db))
	require.NoError(t, db.Ping())
}

package sqlite

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/mcoot/hardcorelimbo/internal/model"
	"github.com/mcoot/hardcorelimbo/internal/storage"
	"github.com/mcoot/hardcorelimbo/internal/storage/sqlite/migrations"
	"github.com/mcoot/hardcorelimbo/internal/storage/storagetest"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(context.Background(), filepath.Join(t.TempDir(), "players.db"))
	require.NoError(t, err)
	return store
}

func TestSQLiteStorage(t *testing.T) {
	suite.Run(t, &storagetest.Suite{
		NewStore: func() storage.PlayerStore { return openTestStore(t) },
	})
}

func TestOpenRequiresPath(t *testing.T) {
	_, err := Open(context.Background(), "  ")
	assert.Error(t, err)
}

func TestReopenKeepsRecords(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "players.db")

	store, err := Open(ctx, path)
	require.NoError(t, err)
	rec := model.NewPlayerRecord(storagetest.SteveID, "Steve", model.DefaultRules(), time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	rec.Lives = 4
	require.NoError(t, store.Upsert(ctx, rec))
	require.NoError(t, store.Close())

	// Migrations run again on open and must be skipped
	store, err = Open(ctx, path)
	require.NoError(t, err)
	defer store.Close()

	got, err := store.Get(ctx, storagetest.SteveID)
	require.NoError(t, err)
	assert.Equal(t, 4, got.Lives)
}

func TestMigrationsRecorded(t *testing.T) {
	store := openTestStore(t)
	defer store.Close()

	entries, err := migrations.FS.ReadDir(".")
	require.NoError(t, err)
	sqlFiles := 0
	for _, entry := range entries {
		if strings.HasSuffix(entry.Name(), ".sql") {
			sqlFiles++
		}
	}

	var count int
	require.NoError(t, store.db.QueryRow("SELECT COUNT(*) FROM "+migrationTable).Scan(&count))
	assert.Equal(t, sqlFiles, count)
}

func TestExtractUpMigration(t *testing.T) {
	up := extractUpMigration("-- +migrate Up\nCREATE TABLE a (x INT);\n-- +migrate Down\nDROP TABLE a;\n")
	assert.Equal(t, "\nCREATE TABLE a (x INT);\n", up)

	assert.Equal(t, "SELECT 1;", extractUpMigration("SELECT 1;"))
}

func TestClosedStoreIsUnavailable(t *testing.T) {
	store := openTestStore(t)
	require.NoError(t, store.Close())

	_, err := store.Get(context.Background(), storagetest.SteveID)
	assert.ErrorIs(t, err, model.ErrStoreUnavailable)
}

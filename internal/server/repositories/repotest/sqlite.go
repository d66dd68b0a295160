// Package repotest opens throwaway migrated SQLite databases for tests.
package repotest

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/dmitrijs2005/eventsignup/internal/server/config"
	"github.com/dmitrijs2005/eventsignup/internal/server/repositories/repomanager"
)

// OpenSQLite returns a migrated database in t.TempDir and its manager.
// The database is closed when the test ends.
func OpenSQLite(t testing.TB) (*sql.DB, repomanager.RepositoryManager) {
	t.Helper()

	ctx := context.Background()
	db, m, err := repomanager.Open(ctx, config.DriverSQLite, filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err := m.RunMigrations(ctx, db); err != nil {
		t.Fatalf("migrate sqlite: %v", err)
	}
	return db, m
}

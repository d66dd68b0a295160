// Package repomanager vends repositories bound to a DBTX and owns the
// per-dialect parts of storage: driver registration, migrations and the
// isolation level of write transactions.
package repomanager

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/eventsignup/internal/dbx"
	"github.com/dmitrijs2005/eventsignup/internal/server/config"
	"github.com/dmitrijs2005/eventsignup/internal/server/repositories/admins"
	"github.com/dmitrijs2005/eventsignup/internal/server/repositories/participants"
	"github.com/pressly/goose/v3"
)

type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	// TxOptions are used for the check-then-insert of a registration.
	TxOptions() *sql.TxOptions
	Participants(db dbx.DBTX) participants.Repository
	Admins(db dbx.DBTX) admins.Repository
}

// gooseUpContext is a seam for testing goose.UpContext.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

// sqlOpen is a seam for testing sql.Open.
var sqlOpen = sql.Open

// New returns the manager for the given driver name.
func New(driver string) (RepositoryManager, error) {
	switch driver {
	case config.DriverPostgres:
		return NewPostgresRepositoryManager(), nil
	case config.DriverSQLite:
		return NewSQLiteRepositoryManager(), nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}
}

// Open connects to the database, checks it is reachable and returns it with
// the matching manager. Migrations are not run.
func Open(ctx context.Context, driver, dsn string) (*sql.DB, RepositoryManager, error) {
	m, err := New(driver)
	if err != nil {
		return nil, nil, err
	}

	db, err := sqlOpen(driver, dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("open %s: %w", driver, err)
	}
	if driver == config.DriverSQLite {
		// one writer at a time, and ":memory:" stays a single database
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("ping %s: %w", driver, err)
	}

	return db, m, nil
}

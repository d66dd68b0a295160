package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/eventsignup/internal/dbx"
	"github.com/dmitrijs2005/eventsignup/internal/server/migrations"
	"github.com/dmitrijs2005/eventsignup/internal/server/repositories/admins"
	"github.com/dmitrijs2005/eventsignup/internal/server/repositories/participants"
	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"
)

// SQLiteRepositoryManager vends repositories on an embedded SQLite file,
// for development and tests.
type SQLiteRepositoryManager struct{}

func NewSQLiteRepositoryManager() *SQLiteRepositoryManager {
	return &SQLiteRepositoryManager{}
}

func (m *SQLiteRepositoryManager) Participants(db dbx.DBTX) participants.Repository {
	return participants.NewSQLRepository(db)
}

func (m *SQLiteRepositoryManager) Admins(db dbx.DBTX) admins.Repository {
	return admins.NewSQLRepository(db)
}

// TxOptions is nil: SQLite serializes writers on its own.
func (m *SQLiteRepositoryManager) TxOptions() *sql.TxOptions {
	return nil
}

func (m *SQLiteRepositoryManager) RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("sqlite3"); err != nil {
		return err
	}
	return gooseUpContext(ctx, db, migrations.SQLiteDir)
}

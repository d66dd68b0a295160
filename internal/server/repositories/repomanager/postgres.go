package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/eventsignup/internal/dbx"
	"github.com/dmitrijs2005/eventsignup/internal/server/migrations"
	"github.com/dmitrijs2005/eventsignup/internal/server/repositories/admins"
	"github.com/dmitrijs2005/eventsignup/internal/server/repositories/participants"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

// PostgresRepositoryManager vends PostgreSQL-backed repositories.
type PostgresRepositoryManager struct{}

func NewPostgresRepositoryManager() *PostgresRepositoryManager {
	return &PostgresRepositoryManager{}
}

// Participants returns a participants.Repository bound to the provided DBTX.
func (m *PostgresRepositoryManager) Participants(db dbx.DBTX) participants.Repository {
	return participants.NewSQLRepository(db)
}

// Admins returns an admins.Repository bound to the provided DBTX.
func (m *PostgresRepositoryManager) Admins(db dbx.DBTX) admins.Repository {
	return admins.NewSQLRepository(db)
}

// TxOptions makes concurrent registrations fail with SQLSTATE 40001 instead
// of both passing the capacity check.
func (m *PostgresRepositoryManager) TxOptions() *sql.TxOptions {
	return &sql.TxOptions{Isolation: sql.LevelSerializable}
}

// RunMigrations sets up goose with the embedded migrations and runs them
// against the provided database connection.
func (m *PostgresRepositoryManager) RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("pgx"); err != nil {
		return err
	}
	return gooseUpContext(ctx, db, migrations.PostgresDir)
}

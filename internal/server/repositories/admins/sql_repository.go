package admins

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/eventsignup/internal/common"
	"github.com/dmitrijs2005/eventsignup/internal/dbx"
	"github.com/dmitrijs2005/eventsignup/internal/server/models"
)

type SQLRepository struct {
	db dbx.DBTX
}

func NewSQLRepository(db dbx.DBTX) *SQLRepository {
	return &SQLRepository{db: db}
}

func (r *SQLRepository) GetByUsername(ctx context.Context, username string) (*models.AdminUser, error) {
	query :=
		`SELECT id, username, password_hash, created_at FROM admin_users
		 WHERE username = $1
		 `

	var (
		user models.AdminUser
		at   dbx.Timestamp
	)
	err := r.db.QueryRowContext(ctx, query, username).Scan(&user.ID, &user.Username, &user.PasswordHash, &at)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	user.CreatedAt = at.Time

	return &user, nil
}

// Upsert creates the admin or replaces the password hash of an existing one.
func (r *SQLRepository) Upsert(ctx context.Context, username, passwordHash string) (*models.AdminUser, error) {
	query :=
		`INSERT INTO admin_users (username, password_hash)
		 VALUES ($1, $2)
		 ON CONFLICT (username) DO UPDATE SET password_hash = excluded.password_hash
		 RETURNING id
		 `

	user := &models.AdminUser{Username: username, PasswordHash: passwordHash}
	if err := r.db.QueryRowContext(ctx, query, username, passwordHash).Scan(&user.ID); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return user, nil
}

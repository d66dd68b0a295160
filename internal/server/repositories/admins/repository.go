// Package admins reads and provisions rows of the admin_users table.
package admins

import (
	"context"

	"github.com/dmitrijs2005/eventsignup/internal/server/models"
)

type Repository interface {
	GetByUsername(ctx context.Context, username string) (*models.AdminUser, error)
	Upsert(ctx context.Context, username, passwordHash string) (*models.AdminUser, error)
}

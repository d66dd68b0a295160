// Package participants stores sign-ups in the participants table.
package participants

import (
	"context"

	"github.com/dmitrijs2005/eventsignup/internal/server/models"
)

type Repository interface {
	Count(ctx context.Context) (int, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	Create(ctx context.Context, p *models.Participant) (*models.Participant, error)
	ListAll(ctx context.Context) ([]models.Participant, error)
	Delete(ctx context.Context, id int64) (bool, error)
	DeleteAll(ctx context.Context) (int64, error)
}

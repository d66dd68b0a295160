package services

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/eventsignup/internal/common"
	"github.com/dmitrijs2005/eventsignup/internal/logging"
	"github.com/dmitrijs2005/eventsignup/internal/server/config"
	"github.com/dmitrijs2005/eventsignup/internal/server/models"
	"github.com/dmitrijs2005/eventsignup/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/eventsignup/internal/server/session"
)

// Dashboard is the admin view of the event.
type Dashboard struct {
	Admin        string
	Participants []models.Participant
	Count        int
	Capacity     int
	SpotsLeft    int
	Open         bool
}

// AdminMutationService lists, deletes and purges participants. Every
// operation first checks the admin session (lifetime, then CSRF for writes).
type AdminMutationService struct {
	db                 *sql.DB
	repomanager        repomanager.RepositoryManager
	auth               *AdminAuthService
	logger             logging.Logger
	capacity           int
	confirmationPhrase string
}

func NewAdminMutationService(db *sql.DB, m repomanager.RepositoryManager, auth *AdminAuthService,
	cfg *config.Config, logger logging.Logger) *AdminMutationService {
	return &AdminMutationService{
		db:                 db,
		repomanager:        m,
		auth:               auth,
		logger:             logger,
		capacity:           cfg.MaxParticipants,
		confirmationPhrase: cfg.ResetConfirmationPhrase,
	}
}

func (s *AdminMutationService) guard(sess *session.Session, csrfToken string) error {
	if err := s.auth.Authorize(sess); err != nil {
		return err
	}
	if !sess.VerifyCSRF(csrfToken) {
		return common.ErrorCSRFMismatch
	}
	return nil
}

func (s *AdminMutationService) Dashboard(ctx context.Context, sess *session.Session) (*Dashboard, error) {
	if err := s.auth.Authorize(sess); err != nil {
		return nil, err
	}

	list, err := s.repomanager.Participants(s.db).ListAll(ctx)
	if err != nil {
		s.logger.Error(ctx, "list participants failed", "error", err)
		return nil, fmt.Errorf("%w: dashboard: %v", common.ErrorStorageUnavailable, err)
	}

	return &Dashboard{
		Admin:        sess.Username(),
		Participants: list,
		Count:        len(list),
		Capacity:     s.capacity,
		SpotsLeft:    max(0, s.capacity-len(list)),
		Open:         len(list) < s.capacity,
	}, nil
}

// DeleteParticipant removes one participant. rawID must be a positive
// integer; a row that is already gone is not an error, deleted is then false.
func (s *AdminMutationService) DeleteParticipant(ctx context.Context, sess *session.Session, csrfToken, rawID string) (bool, error) {
	if err := s.guard(sess, csrfToken); err != nil {
		return false, err
	}

	id, err := strconv.ParseInt(strings.TrimSpace(rawID), 10, 64)
	if err != nil || id <= 0 {
		return false, common.ErrorInvalidID
	}

	deleted, err := s.repomanager.Participants(s.db).Delete(ctx, id)
	if err != nil {
		s.logger.Error(ctx, "delete participant failed", "id", id, "error", err)
		return false, fmt.Errorf("%w: delete: %v", common.ErrorStorageUnavailable, err)
	}

	s.logger.Info(ctx, "participant deleted", "id", id, "existed", deleted, "admin", sess.Username())
	return deleted, nil
}

// ResetAll deletes every participant when phrase, trimmed, equals the
// configured confirmation phrase exactly. It returns the number removed.
func (s *AdminMutationService) ResetAll(ctx context.Context, sess *session.Session, csrfToken, phrase string) (int64, error) {
	if err := s.guard(sess, csrfToken); err != nil {
		return 0, err
	}

	if strings.TrimSpace(phrase) != s.confirmationPhrase {
		return 0, common.ErrorConfirmationMismatch
	}

	n, err := s.repomanager.Participants(s.db).DeleteAll(ctx)
	if err != nil {
		s.logger.Error(ctx, "reset participants failed", "error", err)
		return 0, fmt.Errorf("%w: reset: %v", common.ErrorStorageUnavailable, err)
	}

	s.logger.Warn(ctx, "participant list reset", "removed", n, "admin", sess.Username())
	return n, nil
}

// Package services contains the server-side business logic: public
// registration, admin authentication, admin mutations and exports.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/dmitrijs2005/eventsignup/internal/common"
	"github.com/dmitrijs2005/eventsignup/internal/dbx"
	"github.com/dmitrijs2005/eventsignup/internal/logging"
	"github.com/dmitrijs2005/eventsignup/internal/server/config"
	"github.com/dmitrijs2005/eventsignup/internal/server/models"
	"github.com/dmitrijs2005/eventsignup/internal/server/notify"
	"github.com/dmitrijs2005/eventsignup/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/eventsignup/internal/server/session"
	"github.com/sethvargo/go-retry"
)

const (
	registerMaxRetries = 3
	registerRetryDelay = 20 * time.Millisecond
)

// RegistrationResult is a committed registration. NotificationErr is set
// when the confirmation e-mail could not be sent; it is advisory only.
type RegistrationResult struct {
	Participant     *models.Participant
	NotificationErr error
}

// PublicSummary is what the public page shows about the event.
type PublicSummary struct {
	Count       int
	Capacity    int
	SpotsLeft   int
	Open        bool
	FillPercent int
	Entries     []models.PublicEntry
}

type RegistrationService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	notifier    notify.Notifier
	logger      logging.Logger
	capacity    int
	now         func() time.Time
	retryDelay  time.Duration
}

// NewRegistrationService wires the service. notifier may be nil, in which
// case no confirmation is attempted.
func NewRegistrationService(db *sql.DB, m repomanager.RepositoryManager, notifier notify.Notifier,
	cfg *config.Config, logger logging.Logger) *RegistrationService {
	return &RegistrationService{
		db:          db,
		repomanager: m,
		notifier:    notifier,
		logger:      logger,
		capacity:    cfg.MaxParticipants,
		now:         time.Now,
		retryDelay:  registerRetryDelay,
	}
}

// Register validates in and stores it if there is room and the e-mail is
// new. The CSRF token is checked before anything else.
//
// Errors: common.ErrorCSRFMismatch, *ValidationError,
// common.ErrorCapacityExceeded, common.ErrorDuplicateEmail, or
// common.ErrorStorageUnavailable wrapping the cause.
func (s *RegistrationService) Register(ctx context.Context, sess *session.Session, csrfToken string,
	in models.ParticipantInput) (*RegistrationResult, error) {

	if !sess.VerifyCSRF(csrfToken) {
		return nil, common.ErrorCSRFMismatch
	}

	clean := SanitizeInput(in)
	p, err := ValidateParticipant(clean)
	if err != nil {
		return nil, err
	}
	p.RegisteredAt = s.now().UTC()

	created, err := s.insert(ctx, p)
	if err != nil {
		switch {
		case errors.Is(err, common.ErrorCapacityExceeded), errors.Is(err, common.ErrorDuplicateEmail):
			return nil, err
		default:
			s.logger.Error(ctx, "registration insert failed", "error", err)
			return nil, fmt.Errorf("%w: register: %v", common.ErrorStorageUnavailable, err)
		}
	}

	s.logger.Info(ctx, "participant registered", "id", created.ID)

	res := &RegistrationResult{Participant: created}
	if s.notifier != nil {
		if err := s.notifier.SendConfirmation(ctx, *created); err != nil {
			s.logger.Warn(ctx, "confirmation e-mail failed", "to", created.Email, "transport", s.notifier.Name(), "error", err)
			res.NotificationErr = fmt.Errorf("%w: %v", common.ErrorNotificationFailed, err)
		}
	}
	return res, nil
}

// insert runs the capacity check, the duplicate check and the insert in one
// transaction, retrying serialization failures.
func (s *RegistrationService) insert(ctx context.Context, p *models.Participant) (*models.Participant, error) {
	var created *models.Participant

	backoff := retry.WithMaxRetries(registerMaxRetries, retry.NewConstant(s.retryDelay))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		row := *p
		err := dbx.WithTx(ctx, s.db, s.repomanager.TxOptions(), func(ctx context.Context, tx dbx.DBTX) error {
			repo := s.repomanager.Participants(tx)

			n, err := repo.Count(ctx)
			if err != nil {
				return err
			}
			if n >= s.capacity {
				return common.ErrorCapacityExceeded
			}

			exists, err := repo.ExistsByEmail(ctx, row.Email)
			if err != nil {
				return err
			}
			if exists {
				return common.ErrorDuplicateEmail
			}

			created, err = repo.Create(ctx, &row)
			return err
		})
		if dbx.IsSerializationFailure(err) {
			s.logger.Debug(ctx, "registration conflict, retrying", "error", err)
			return retry.RetryableError(err)
		}
		return err
	})

	return created, err
}

// PublicSummary counts participants and lists them the way the public page
// shows them: first name, initial of the last name and city.
func (s *RegistrationService) PublicSummary(ctx context.Context) (*PublicSummary, error) {
	list, err := s.repomanager.Participants(s.db).ListAll(ctx)
	if err != nil {
		s.logger.Error(ctx, "list participants failed", "error", err)
		return nil, fmt.Errorf("%w: public summary: %v", common.ErrorStorageUnavailable, err)
	}

	entries := make([]models.PublicEntry, len(list))
	for i, p := range list {
		entries[i] = models.PublicEntry{
			FirstName:       p.FirstName,
			LastNameInitial: initial(p.LastName),
			City:            p.City,
		}
	}

	return &PublicSummary{
		Count:       len(list),
		Capacity:    s.capacity,
		SpotsLeft:   max(0, s.capacity-len(list)),
		Open:        len(list) < s.capacity,
		FillPercent: fillPercent(len(list), s.capacity),
		Entries:     entries,
	}, nil
}

func fillPercent(count, capacity int) int {
	if count <= 0 || capacity <= 0 {
		return 0
	}
	return min(100, int(math.Round(float64(count)/float64(capacity)*100)))
}

package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/eventsignup/internal/common"
	"github.com/dmitrijs2005/eventsignup/internal/cryptox"
	"github.com/dmitrijs2005/eventsignup/internal/logging"
	"github.com/dmitrijs2005/eventsignup/internal/server/config"
	"github.com/dmitrijs2005/eventsignup/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/eventsignup/internal/server/session"
)

// AdminAuthService logs the admin in and out and guards every admin
// operation with the session lifetime.
type AdminAuthService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	logger      logging.Logger
	lifetime    time.Duration
	now         func() time.Time
}

func NewAdminAuthService(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config, logger logging.Logger) *AdminAuthService {
	return &AdminAuthService{
		db:          db,
		repomanager: m,
		logger:      logger,
		lifetime:    cfg.SessionLifetime,
		now:         time.Now,
	}
}

// Login checks the credentials and marks sess as authenticated, asking for a
// fresh session id. Unknown users and wrong passwords both yield
// common.ErrorInvalidCredentials after a comparable amount of work.
func (s *AdminAuthService) Login(ctx context.Context, sess *session.Session, username, password string) error {
	username = strings.TrimSpace(username)
	user, err := s.repomanager.Admins(s.db).GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			cryptox.BurnPasswordCheck([]byte(password))
			s.logger.Info(ctx, "admin login rejected", "reason", "unknown user")
			return common.ErrorInvalidCredentials
		}
		s.logger.Error(ctx, "admin lookup failed", "error", err)
		return fmt.Errorf("%w: login: %v", common.ErrorStorageUnavailable, err)
	}

	if !cryptox.CheckPassword(user.PasswordHash, []byte(password)) {
		s.logger.Info(ctx, "admin login rejected", "reason", "password mismatch")
		return common.ErrorInvalidCredentials
	}

	sess.Authenticate(user.ID, user.Username, s.now())
	s.logger.Info(ctx, "admin logged in", "admin", user.Username)
	return nil
}

// Logout always destroys the session. A bad CSRF token is only logged.
func (s *AdminAuthService) Logout(ctx context.Context, sess *session.Session, csrfToken string) {
	if !sess.VerifyCSRF(csrfToken) {
		s.logger.Warn(ctx, "logout with invalid csrf token")
	}
	sess.Destroy()
}

// Authorize fails with common.ErrorUnauthorized for an anonymous session and
// with common.ErrorSessionExpired, after destroying it, for one whose login
// is older than the lifetime. A session that replaced a forgotten login
// reports common.ErrorSessionExpired once.
func (s *AdminAuthService) Authorize(sess *session.Session) error {
	if !sess.Authenticated() {
		if sess.TakeTimedOut() {
			return common.ErrorSessionExpired
		}
		return common.ErrorUnauthorized
	}
	if s.now().Sub(sess.LoginTime()) > s.lifetime {
		sess.Destroy()
		return common.ErrorSessionExpired
	}
	return nil
}

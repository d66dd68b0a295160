// Package server wires the sign-up service together: storage and
// migrations, the notification transport, the export archive, the
// services and the HTTP server, and runs it until a signal arrives.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dmitrijs2005/eventsignup/internal/logging"
	"github.com/dmitrijs2005/eventsignup/internal/server/archive"
	"github.com/dmitrijs2005/eventsignup/internal/server/config"
	"github.com/dmitrijs2005/eventsignup/internal/server/notify"
	"github.com/dmitrijs2005/eventsignup/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/eventsignup/internal/server/services"
	"github.com/dmitrijs2005/eventsignup/internal/server/session"
	"github.com/dmitrijs2005/eventsignup/internal/server/web"
)

const sessionSweepInterval = 5 * time.Minute

type App struct {
	config *config.Config
	logger logging.Logger
	db     *sql.DB
	server *web.HTTPServer
	store  *session.Store
}

// NewApp opens the database, runs the migrations and builds every
// component. The caller owns the returned App and must Close it.
func NewApp(ctx context.Context, c *config.Config) (*App, error) {

	logger := logging.NewJSONLogger(os.Stdout, c.LogLevel)

	db, rm, err := repomanager.Open(ctx, c.DatabaseDriver, c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	if err := rm.RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrations error: %w", err)
	}

	notifier, err := notify.New(c, logger.With("module", "notify"))
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("notifier init error: %w", err)
	}

	arch, err := archive.New(c)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("archive init error: %w", err)
	}

	auth := services.NewAdminAuthService(db, rm, c, logger.With("module", "admin_auth"))
	svc := web.Services{
		Registration: services.NewRegistrationService(db, rm, notifier, c, logger.With("module", "registration")),
		Auth:         auth,
		Mutations:    services.NewAdminMutationService(db, rm, auth, c, logger.With("module", "admin_mutation")),
		Export:       services.NewExportService(db, rm, auth, arch, c, logger.With("module", "export")),
	}

	store := session.NewStore(c.SessionCookieName, c.SessionLifetime, []byte(c.SecretKey))

	srv, err := web.NewHTTPServer(c.HTTPAddr, logger, svc, store)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("http server init error: %w", err)
	}

	return &App{config: c, logger: logger, db: db, server: srv, store: store}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

// Run serves HTTP until ctx is cancelled or a termination signal arrives.
func (app *App) Run(ctx context.Context) error {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...", "driver", app.config.DatabaseDriver, "capacity", app.config.MaxParticipants)

	app.initSignalHandler(cancelFunc)

	go app.store.Sweep(ctx, sessionSweepInterval)

	if err := app.server.Run(ctx); err != nil {
		app.logger.Error(ctx, "http server stopped", "error", err)
		return err
	}

	app.logger.Info(ctx, "App stopped")
	return nil
}

func (app *App) Close() error {
	return app.db.Close()
}

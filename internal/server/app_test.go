package server

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/dmitrijs2005/eventsignup/internal/server/config"
	"github.com/stretchr/testify/require"
)

func sqliteConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := &config.Config{}
	cfg.LoadDefaults()
	cfg.DatabaseDriver = config.DriverSQLite
	cfg.DatabaseDSN = filepath.Join(t.TempDir(), "app.db")
	cfg.HTTPAddr = "127.0.0.1:0"
	cfg.LogLevel = "error"
	return cfg
}

func TestApp_RunStopsOnCancel(t *testing.T) {
	app, err := NewApp(context.Background(), sqliteConfig(t))
	require.NoError(t, err)
	defer app.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	require.NoError(t, app.Run(ctx))
}

func TestNewApp_Errors(t *testing.T) {
	cfg := sqliteConfig(t)
	cfg.DatabaseDriver = "oracle"
	_, err := NewApp(context.Background(), cfg)
	require.ErrorContains(t, err, "db init error")

	cfg = sqliteConfig(t)
	cfg.MailTransport = "pigeon"
	_, err = NewApp(context.Background(), cfg)
	require.ErrorContains(t, err, "notifier init error")
}

package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/eventsignup/internal/logging"
	"github.com/dmitrijs2005/eventsignup/internal/server/config"
	"github.com/dmitrijs2005/eventsignup/internal/server/models"
	"github.com/dmitrijs2005/eventsignup/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/eventsignup/internal/server/repositories/repotest"
	"github.com/dmitrijs2005/eventsignup/internal/server/session"
	"github.com/stretchr/testify/require"
)

// --- helpers ---

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.LoadDefaults()
	cfg.MaxParticipants = 3
	return cfg
}

func openDB(t *testing.T) (*sql.DB, repomanager.RepositoryManager) {
	t.Helper()
	return repotest.OpenSQLite(t)
}

// newSession returns a session and its CSRF token.
func newSession(t *testing.T) (*session.Session, string) {
	t.Helper()
	s := session.New("sess-1")
	tok, err := s.CSRFToken()
	require.NoError(t, err)
	return s, tok
}

func validInput(i int) models.ParticipantInput {
	return models.ParticipantInput{
		FirstName: "Anna",
		LastName:  "Kowalska",
		Address:   "ul. Długa 5",
		City:      "Kraków",
		Email:     fmt.Sprintf("anna%d@example.com", i),
		Phone:     "+48 600 100 200",
		Age:       "34",
		HeightCm:  "170",
		WeightKg:  "62,5",
	}
}

type fakeNotifier struct {
	mu   sync.Mutex
	err  error
	sent []models.Participant
}

func (f *fakeNotifier) Name() string { return "fake" }

func (f *fakeNotifier) SendConfirmation(_ context.Context, p models.Participant) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, p)
	return nil
}

type fakeArchive struct {
	err   error
	names []string
}

func (f *fakeArchive) Name() string { return "fake" }

func (f *fakeArchive) Store(_ context.Context, name, _ string, _ []byte) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.names = append(f.names, name)
	return "mem://" + name, nil
}

var errBoom = errors.New("boom")

// clock returns a now func that advances by step on every call.
func clock(start time.Time, step time.Duration) func() time.Time {
	var mu sync.Mutex
	cur := start
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		t := cur
		cur = cur.Add(step)
		return t
	}
}

func nopLogger() logging.Logger { return logging.NewNopLogger() }

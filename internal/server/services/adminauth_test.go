package services

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/eventsignup/internal/common"
	"github.com/dmitrijs2005/eventsignup/internal/cryptox"
	"github.com/dmitrijs2005/eventsignup/internal/server/auth"
	"github.com/dmitrijs2005/eventsignup/internal/server/config"
	"github.com/dmitrijs2005/eventsignup/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/eventsignup/internal/server/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testAdmin    = "admin"
	testPassword = "correct horse battery staple"
)

func newAdminAuth(t *testing.T) *AdminAuthService {
	t.Helper()
	db, m := openDB(t)

	hash, err := cryptox.HashPassword([]byte(testPassword), 4)
	require.NoError(t, err)
	_, err = m.Admins(db).Upsert(context.Background(), testAdmin, hash)
	require.NoError(t, err)

	return NewAdminAuthService(db, m, testConfig(), nopLogger())
}

func TestLogin_Success(t *testing.T) {
	svc := newAdminAuth(t)
	sess, _ := newSession(t)

	require.NoError(t, svc.Login(context.Background(), sess, testAdmin, testPassword))

	assert.True(t, sess.Authenticated())
	assert.Equal(t, testAdmin, sess.Username())
	assert.NoError(t, svc.Authorize(sess))
}

func TestLogin_TrimsUsername(t *testing.T) {
	svc := newAdminAuth(t)
	sess, _ := newSession(t)

	require.NoError(t, svc.Login(context.Background(), sess, "  "+testAdmin+"\t", testPassword))
	assert.Equal(t, testAdmin, sess.Username())
}

func TestLogin_FailuresAreIndistinguishable(t *testing.T) {
	svc := newAdminAuth(t)
	ctx := context.Background()

	s1, _ := newSession(t)
	errWrongPass := svc.Login(ctx, s1, testAdmin, "wrong")

	s2, _ := newSession(t)
	errUnknown := svc.Login(ctx, s2, "nobody", testPassword)

	require.ErrorIs(t, errWrongPass, common.ErrorInvalidCredentials)
	require.ErrorIs(t, errUnknown, common.ErrorInvalidCredentials)
	assert.Equal(t, errWrongPass.Error(), errUnknown.Error())
	assert.False(t, s1.Authenticated())
	assert.False(t, s2.Authenticated())
}

func TestLogin_StorageUnavailable(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	mock.ExpectQuery("SELECT").WillReturnError(errors.New("db down"))

	m, err := repomanager.New(config.DriverSQLite)
	require.NoError(t, err)
	svc := NewAdminAuthService(db, m, testConfig(), nopLogger())
	sess, _ := newSession(t)

	err = svc.Login(context.Background(), sess, testAdmin, testPassword)
	require.ErrorIs(t, err, common.ErrorStorageUnavailable)
	assert.NotErrorIs(t, err, common.ErrorInvalidCredentials)
}

func TestAuthorize(t *testing.T) {
	svc := newAdminAuth(t)
	start := time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)

	anon, _ := newSession(t)
	require.ErrorIs(t, svc.Authorize(anon), common.ErrorUnauthorized)

	sess, _ := newSession(t)
	sess.Authenticate(1, testAdmin, start)

	svc.now = func() time.Time { return start.Add(time.Hour) }
	require.NoError(t, svc.Authorize(sess), "exactly one lifetime is still valid")

	svc.now = func() time.Time { return start.Add(time.Hour + time.Second) }
	require.ErrorIs(t, svc.Authorize(sess), common.ErrorSessionExpired)
	assert.True(t, sess.Destroyed())
	assert.False(t, sess.Authenticated())

	require.ErrorIs(t, svc.Authorize(sess), common.ErrorUnauthorized)
}

func TestLogout_AlwaysDestroys(t *testing.T) {
	svc := newAdminAuth(t)
	ctx := context.Background()

	sess, tok := newSession(t)
	require.NoError(t, svc.Login(ctx, sess, testAdmin, testPassword))
	svc.Logout(ctx, sess, tok)
	assert.True(t, sess.Destroyed())

	forged, _ := newSession(t)
	require.NoError(t, svc.Login(ctx, forged, testAdmin, testPassword))
	svc.Logout(ctx, forged, "bad-token")
	assert.True(t, forged.Destroyed())
	assert.False(t, forged.Authenticated())
}

func TestAuthorize_ForgottenLoginReportsExpiredOnce(t *testing.T) {
	svc := newAdminAuth(t)
	secret := []byte("k")
	store := session.NewStore("sid", time.Hour, secret)

	tok, err := auth.GenerateSessionToken("forgotten", true, secret, -1*time.Second)
	require.NoError(t, err)
	r := httptest.NewRequest(http.MethodPost, "/admin/delete", nil)
	r.AddCookie(&http.Cookie{Name: "sid", Value: tok})
	sess, err := store.Start(httptest.NewRecorder(), r)
	require.NoError(t, err)

	assert.ErrorIs(t, svc.Authorize(sess), common.ErrorSessionExpired)
	assert.ErrorIs(t, svc.Authorize(sess), common.ErrorUnauthorized)
}

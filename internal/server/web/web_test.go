package web

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/dmitrijs2005/eventsignup/internal/common"
	"github.com/dmitrijs2005/eventsignup/internal/cryptox"
	"github.com/dmitrijs2005/eventsignup/internal/logging"
	"github.com/dmitrijs2005/eventsignup/internal/server/config"
	"github.com/dmitrijs2005/eventsignup/internal/server/models"
	"github.com/dmitrijs2005/eventsignup/internal/server/notify"
	"github.com/dmitrijs2005/eventsignup/internal/server/repositories/repotest"
	"github.com/dmitrijs2005/eventsignup/internal/server/services"
	"github.com/dmitrijs2005/eventsignup/internal/server/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var csrfPattern = regexp.MustCompile(`name="csrf_token" value="([0-9a-f]{64})"`)

type site struct {
	t      *testing.T
	srv    *httptest.Server
	client *http.Client
}

func newSite(t *testing.T, opts ...func(*config.Config)) *site {
	t.Helper()
	logger := logging.NewNopLogger()
	cfg := &config.Config{}
	cfg.LoadDefaults()
	cfg.MaxParticipants = 2
	for _, o := range opts {
		o(cfg)
	}

	db, m := repotest.OpenSQLite(t)
	hash, err := cryptox.HashPassword([]byte("s3cret"), 4)
	require.NoError(t, err)
	_, err = m.Admins(db).Upsert(context.Background(), "admin", hash)
	require.NoError(t, err)

	auth := services.NewAdminAuthService(db, m, cfg, logger)
	svc := Services{
		Registration: services.NewRegistrationService(db, m, notify.NewLogNotifier(notify.Sender{From: cfg.MailFrom}, logger), cfg, logger),
		Auth:         auth,
		Mutations:    services.NewAdminMutationService(db, m, auth, cfg, logger),
		Export:       services.NewExportService(db, m, auth, nil, cfg, logger),
	}
	store := session.NewStore(cfg.SessionCookieName, cfg.SessionLifetime, []byte(cfg.SecretKey))

	h, err := NewHandler(svc, store, logger)
	require.NoError(t, err)
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	client := &http.Client{
		Jar: jar,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
	return &site{t: t, srv: srv, client: client}
}

func (s *site) get(path string) (*http.Response, string) {
	s.t.Helper()
	resp, err := s.client.Get(s.srv.URL + path)
	require.NoError(s.t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(s.t, err)
	return resp, string(body)
}

func (s *site) post(path string, form url.Values) *http.Response {
	s.t.Helper()
	resp, err := s.client.PostForm(s.srv.URL+path, form)
	require.NoError(s.t, err)
	_ = resp.Body.Close()
	return resp
}

// token loads page and returns the CSRF token in it.
func (s *site) token(path string) string {
	s.t.Helper()
	_, body := s.get(path)
	m := csrfPattern.FindStringSubmatch(body)
	require.NotNil(s.t, m, "no csrf token on %s", path)
	return m[1]
}

func (s *site) login() {
	s.t.Helper()
	resp := s.post("/admin/login", url.Values{"username": {"admin"}, "password": {"s3cret"}})
	require.Equal(s.t, http.StatusSeeOther, resp.StatusCode)
}

func signupForm(tok, email string) url.Values {
	return url.Values{
		"csrf_token": {tok},
		"first_name": {"Anna"},
		"last_name":  {"Kowalska"},
		"address":    {"ul. Długa 5"},
		"city":       {"Kraków"},
		"email":      {email},
		"phone":      {"600 100 200"},
		"age":        {"34"},
		"height_cm":  {"170"},
		"weight_kg":  {"62,5"},
	}
}

func TestHealthz(t *testing.T) {
	s := newSite(t)

	resp, body := s.get("/healthz")

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", body)
	assert.Empty(t, resp.Header.Values("Set-Cookie"))
	assert.NotEmpty(t, resp.Header.Get(requestIDHeader))
}

func TestIndex_ShowsCapacityAndToken(t *testing.T) {
	s := newSite(t)

	resp, body := s.get("/")

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "0 / 2 places taken")
	assert.Regexp(t, csrfPattern, body)
	assert.NotEmpty(t, resp.Header.Values("Set-Cookie"))
}

func TestUnknownPath(t *testing.T) {
	s := newSite(t)

	resp, _ := s.get("/nope")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestSignup_SuccessThenClosed(t *testing.T) {
	s := newSite(t)

	resp := s.post("/signup", signupForm(s.token("/"), "anna@example.com"))
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/", resp.Header.Get("Location"))

	_, body := s.get("/")
	assert.Contains(t, body, "Your registration has been accepted")
	assert.Contains(t, body, "anna@example.com")
	assert.Contains(t, body, "Anna K. (Kraków)")
	assert.Contains(t, body, "1 / 2 places taken")

	// flashes are one-shot
	_, body = s.get("/")
	assert.NotContains(t, body, "Your registration has been accepted")

	s.post("/signup", signupForm(s.token("/"), "second@example.com"))
	_, body = s.get("/")
	assert.Contains(t, body, "Registration closed")
}

func TestSignup_ValidationRepopulatesForm(t *testing.T) {
	s := newSite(t)

	form := signupForm(s.token("/"), "anna@example.com")
	form.Set("age", "200")
	form.Set("first_name", "<b>Ola</b>")
	s.post("/signup", form)

	_, body := s.get("/")
	assert.Contains(t, body, "age must be a number between 5 and 120")
	assert.Contains(t, body, `value="Ola"`)
	assert.Contains(t, body, `value="200"`)
	assert.Contains(t, body, "0 / 2 places taken")
}

func TestSignup_DuplicateEmail(t *testing.T) {
	s := newSite(t)

	s.post("/signup", signupForm(s.token("/"), "anna@example.com"))
	s.post("/signup", signupForm(s.token("/"), "anna@example.com"))

	_, body := s.get("/")
	assert.Contains(t, body, msgDuplicateEmail)
	assert.Contains(t, body, "1 / 2 places taken")
}

func TestSignup_BadToken(t *testing.T) {
	s := newSite(t)
	s.token("/")

	s.post("/signup", signupForm("forged", "anna@example.com"))

	_, body := s.get("/")
	assert.Contains(t, body, msgCSRFPublic)
	assert.Contains(t, body, "0 / 2 places taken")
}

func TestAdmin_LoginFlow(t *testing.T) {
	s := newSite(t)

	_, body := s.get("/admin")
	assert.Contains(t, body, "Admin login")

	resp := s.post("/admin/login", url.Values{"username": {"admin"}, "password": {"wrong"}})
	assert.Equal(t, "/admin", resp.Header.Get("Location"))
	_, body = s.get("/admin")
	assert.Contains(t, body, msgInvalidCredentials)

	s.login()
	_, body = s.get("/admin")
	assert.Contains(t, body, "Participants")
	assert.Contains(t, body, "Export CSV")

	resp = s.post("/admin/logout", url.Values{"csrf_token": {s.token("/admin")}})
	assert.Equal(t, "/admin", resp.Header.Get("Location"))
	_, body = s.get("/admin")
	assert.Contains(t, body, "Admin login")
}

func TestAdmin_LoginRotatesSessionCookie(t *testing.T) {
	s := newSite(t)
	s.get("/admin")
	u, _ := url.Parse(s.srv.URL)
	before := s.client.Jar.Cookies(u)
	require.Len(t, before, 1)

	s.login()

	after := s.client.Jar.Cookies(u)
	require.Len(t, after, 1)
	assert.NotEqual(t, before[0].Value, after[0].Value)
}

func TestAdmin_DeleteResetAndCSRF(t *testing.T) {
	s := newSite(t)
	s.post("/signup", signupForm(s.token("/"), "a1@example.com"))
	s.post("/signup", signupForm(s.token("/"), "a2@example.com"))
	s.login()

	tok := s.token("/admin")

	s.post("/admin/delete", url.Values{"csrf_token": {"forged"}, "id": {"1"}})
	_, body := s.get("/admin")
	assert.Contains(t, body, msgCSRFAdmin)
	assert.Contains(t, body, "2 / 2 places taken")

	s.post("/admin/delete", url.Values{"csrf_token": {tok}, "id": {"abc"}})
	_, body = s.get("/admin")
	assert.Contains(t, body, msgInvalidID)

	s.post("/admin/delete", url.Values{"csrf_token": {tok}, "id": {"1"}})
	_, body = s.get("/admin")
	assert.Contains(t, body, msgDeleted)
	assert.Contains(t, body, "1 / 2 places taken")

	s.post("/admin/reset", url.Values{"csrf_token": {tok}, "confirm_reset": {"nope"}})
	_, body = s.get("/admin")
	assert.Contains(t, body, msgConfirmMismatch)

	s.post("/admin/reset", url.Values{"csrf_token": {tok}, "confirm_reset": {"RESETUJ"}})
	_, body = s.get("/admin")
	assert.Contains(t, body, "The participant list has been reset (1 removed).")
	assert.Contains(t, body, "0 / 2 places taken")
}

func TestAdmin_Export(t *testing.T) {
	s := newSite(t)
	s.post("/signup", signupForm(s.token("/"), "a1@example.com"))

	resp, _ := s.get("/admin/export?format=csv")
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/admin", resp.Header.Get("Location"))

	s.login()

	resp, body := s.get("/admin/export?format=csv")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, services.CSVContentType, resp.Header.Get("Content-Type"))
	assert.Regexp(t, `^attachment; filename="participants_\d{8}_\d{6}\.csv"$`, resp.Header.Get("Content-Disposition"))
	assert.Equal(t, "no-store", resp.Header.Get("Cache-Control"))
	assert.Equal(t, "no-cache", resp.Header.Get("Pragma"))
	assert.Equal(t, "0", resp.Header.Get("Expires"))
	assert.True(t, strings.HasPrefix(body, "\xEF\xBB\xBFID;First name;"))
	assert.Contains(t, body, "a1@example.com")

	resp, _ = s.get("/admin/export?format=XLSX")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "spreadsheetml")

	resp, _ = s.get("/admin/export?format=pdf")
	assert.Equal(t, "/admin", resp.Header.Get("Location"))
	_, body = s.get("/admin")
	assert.Contains(t, body, msgUnsupportedFormat)
}

func TestAdmin_TimeoutNotice(t *testing.T) {
	s := newSite(t)

	_, body := s.get("/admin?timeout=1")
	assert.Contains(t, body, msgTimeout)

	_, body = s.get("/admin")
	assert.NotContains(t, body, msgTimeout)
}

// --- error mapping with fake services ---

type fakeServices struct {
	err error
}

func (f *fakeServices) Register(context.Context, *session.Session, string, models.ParticipantInput) (*services.RegistrationResult, error) {
	return nil, f.err
}

func (f *fakeServices) PublicSummary(context.Context) (*services.PublicSummary, error) {
	return nil, f.err
}

func (f *fakeServices) Login(context.Context, *session.Session, string, string) error { return f.err }

func (f *fakeServices) Logout(_ context.Context, sess *session.Session, _ string) { sess.Destroy() }

func (f *fakeServices) Dashboard(context.Context, *session.Session) (*services.Dashboard, error) {
	return nil, f.err
}

func (f *fakeServices) DeleteParticipant(context.Context, *session.Session, string, string) (bool, error) {
	return false, f.err
}

func (f *fakeServices) ResetAll(context.Context, *session.Session, string, string) (int64, error) {
	return 0, f.err
}

func (f *fakeServices) Export(context.Context, *session.Session, string) (*services.ExportFile, error) {
	return nil, f.err
}

func fakeHandler(t *testing.T, err error) http.Handler {
	t.Helper()
	f := &fakeServices{err: err}
	store := session.NewStore("sid", time.Hour, []byte("k"))
	h, herr := NewHandler(Services{Registration: f, Auth: f, Mutations: f, Export: f}, store, logging.NewNopLogger())
	require.NoError(t, herr)
	return h
}

func withSessionLifetime(d time.Duration) func(*config.Config) {
	return func(c *config.Config) { c.SessionLifetime = d }
}

func TestAdmin_IdleSessionTimesOut(t *testing.T) {
	s := newSite(t, withSessionLifetime(time.Second))
	s.login()
	tok := s.token("/admin")

	time.Sleep(1500 * time.Millisecond)

	resp := s.post("/admin/delete", url.Values{"csrf_token": {tok}, "id": {"1"}})
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, adminTimeoutPath, resp.Header.Get("Location"))

	_, body := s.get(adminTimeoutPath)
	assert.Contains(t, body, msgTimeout)
	assert.NotContains(t, body, msgCSRFAdmin)

	_, body = s.get(adminPath)
	assert.NotContains(t, body, msgTimeout, "notice is not sticky")
}

func TestAdmin_ForgottenSessionTimesOut(t *testing.T) {
	s := newSite(t, withSessionLifetime(200*time.Millisecond))
	s.login()
	tok := s.token("/admin")

	// past the store retention as well
	time.Sleep(time.Second)

	resp := s.post("/admin/delete", url.Values{"csrf_token": {tok}, "id": {"1"}})
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, adminTimeoutPath, resp.Header.Get("Location"))

	_, body := s.get(adminTimeoutPath)
	assert.Contains(t, body, msgTimeout)
}

func TestAdminFailure_Redirects(t *testing.T) {
	tests := []struct {
		name string
		err  error
		loc  string
	}{
		{"expired", common.ErrorSessionExpired, adminTimeoutPath},
		{"anonymous", common.ErrorUnauthorized, adminPath},
		{"csrf", common.ErrorCSRFMismatch, adminPath},
		{"invalid id", common.ErrorInvalidID, adminPath},
		{"phrase", common.ErrorConfirmationMismatch, adminPath},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			h := fakeHandler(t, tc.err)
			for _, path := range []string{"/admin/delete", "/admin/reset"} {
				rec := httptest.NewRecorder()
				h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, path, strings.NewReader("")))

				assert.Equal(t, http.StatusSeeOther, rec.Code, path)
				assert.Equal(t, tc.loc, rec.Header().Get("Location"), path)
			}
		})
	}
}

func TestAdmin_ExpiredDashboardRedirectsWithTimeout(t *testing.T) {
	h := fakeHandler(t, common.ErrorSessionExpired)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin", nil))

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/admin?timeout=1", rec.Header().Get("Location"))
}

func TestStorageFailure_MaintenancePage(t *testing.T) {
	h := fakeHandler(t, fmt.Errorf("%w: list: dial tcp 10.0.0.5:5432: refused", common.ErrorStorageUnavailable))

	for _, req := range []*http.Request{
		httptest.NewRequest(http.MethodGet, "/", nil),
		httptest.NewRequest(http.MethodGet, "/admin", nil),
		httptest.NewRequest(http.MethodGet, "/admin/export?format=csv", nil),
		httptest.NewRequest(http.MethodPost, "/signup", strings.NewReader("")),
	} {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusServiceUnavailable, rec.Code, req.URL.Path)
		assert.Contains(t, rec.Body.String(), "Temporarily unavailable", req.URL.Path)
		assert.NotContains(t, rec.Body.String(), "10.0.0.5", req.URL.Path)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	h := fakeHandler(t, nil)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/signup", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestRecoverPanic(t *testing.T) {
	h := Chain(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { panic("boom") }),
		RequestID(), RecoverPanic(logging.NewNopLogger()))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

package web

import (
	"context"
	"net/http"

	"github.com/dmitrijs2005/eventsignup/internal/logging"
	"github.com/dmitrijs2005/eventsignup/internal/server/models"
	"github.com/dmitrijs2005/eventsignup/internal/server/services"
	"github.com/dmitrijs2005/eventsignup/internal/server/session"
)

type Registrar interface {
	Register(ctx context.Context, sess *session.Session, csrfToken string, in models.ParticipantInput) (*services.RegistrationResult, error)
	PublicSummary(ctx context.Context) (*services.PublicSummary, error)
}

type AdminAuth interface {
	Login(ctx context.Context, sess *session.Session, username, password string) error
	Logout(ctx context.Context, sess *session.Session, csrfToken string)
}

type AdminMutations interface {
	Dashboard(ctx context.Context, sess *session.Session) (*services.Dashboard, error)
	DeleteParticipant(ctx context.Context, sess *session.Session, csrfToken, rawID string) (bool, error)
	ResetAll(ctx context.Context, sess *session.Session, csrfToken, phrase string) (int64, error)
}

type Exporter interface {
	Export(ctx context.Context, sess *session.Session, format string) (*services.ExportFile, error)
}

// Services bundles what the handlers call.
type Services struct {
	Registration Registrar
	Auth         AdminAuth
	Mutations    AdminMutations
	Export       Exporter
}

type handler struct {
	svc    Services
	store  *session.Store
	pages  *pages
	logger logging.Logger
}

// NewHandler builds the routes of the sign-up site behind the request-id,
// access-log and panic-recovery middleware. Everything except /healthz runs
// with a session.
func NewHandler(svc Services, store *session.Store, l logging.Logger) (http.Handler, error) {
	p, err := loadPages()
	if err != nil {
		return nil, err
	}
	h := &handler{svc: svc, store: store, pages: p, logger: l}

	app := http.NewServeMux()
	app.HandleFunc("GET /{$}", h.handleIndex)
	app.HandleFunc("POST /signup", h.handleSignup)
	app.HandleFunc("GET /admin", h.handleAdmin)
	app.HandleFunc("POST /admin/login", h.handleLogin)
	app.HandleFunc("POST /admin/logout", h.handleLogout)
	app.HandleFunc("POST /admin/delete", h.handleDelete)
	app.HandleFunc("POST /admin/reset", h.handleReset)
	app.HandleFunc("GET /admin/export", h.handleExport)

	root := http.NewServeMux()
	root.HandleFunc("GET /healthz", handleHealth)
	root.Handle("/", Chain(app, WithSession(store, l)))

	return Chain(root, RequestID(), AccessLog(l), RecoverPanic(l)), nil
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok"))
}

// sessionOf returns the session put into the context by WithSession.
func sessionOf(r *http.Request) *session.Session {
	sess, ok := session.FromContext(r.Context())
	if !ok {
		panic("web: handler mounted without session middleware")
	}
	return sess
}

// redirect applies pending session changes and sends the browser to loc.
func (h *handler) redirect(w http.ResponseWriter, r *http.Request, sess *session.Session, loc string) {
	if err := h.store.Save(w, r, sess); err != nil {
		h.logger.Error(r.Context(), "session save failed", "error", err)
		h.internalError(w, r)
		return
	}
	http.Redirect(w, r, loc, http.StatusSeeOther)
}

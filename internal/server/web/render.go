package web

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"net/http"
	"strconv"

	"github.com/dmitrijs2005/eventsignup/internal/server/session"
)

//go:embed templates/*.html
var templateFS embed.FS

const (
	pageIndex       = "index.html"
	pageLogin       = "login.html"
	pageDashboard   = "dashboard.html"
	pageMaintenance = "maintenance.html"
)

var funcs = template.FuncMap{
	"weight": func(v float64) string { return strconv.FormatFloat(v, 'f', 1, 64) },
	"flashClass": func(k session.FlashKind) string {
		switch k {
		case session.FlashSuccess:
			return "alert-success"
		case session.FlashWarning:
			return "alert-warning"
		default:
			return "alert-danger"
		}
	},
}

type pages struct {
	byName map[string]*template.Template
}

func loadPages() (*pages, error) {
	p := &pages{byName: make(map[string]*template.Template)}
	for _, name := range []string{pageIndex, pageLogin, pageDashboard, pageMaintenance} {
		t, err := template.New(name).Funcs(funcs).ParseFS(templateFS, "templates/layout.html", "templates/"+name)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", name, err)
		}
		p.byName[name] = t
	}
	return p, nil
}

// page is the data every template receives.
type page struct {
	Title     string
	CSRFToken string
	Flashes   []session.Flash
	Data      any
}

// render executes the page into a buffer first so that a template error
// never leaves a half-written response.
func (h *handler) render(w http.ResponseWriter, r *http.Request, status int, name string, p page) {
	var buf bytes.Buffer
	if err := h.pages.byName[name].ExecuteTemplate(&buf, "layout", p); err != nil {
		h.logger.Error(r.Context(), "render failed", "page", name, "error", err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

// newPage fills in the fields shared by the session-bound pages and pops the
// flashes.
func (h *handler) newPage(sess *session.Session, title string, data any) (page, error) {
	tok, err := sess.CSRFToken()
	if err != nil {
		return page{}, err
	}
	return page{Title: title, CSRFToken: tok, Flashes: sess.PopFlashes(), Data: data}, nil
}

// unavailable answers 503 with a generic page. The detail goes to the log only.
func (h *handler) unavailable(w http.ResponseWriter, r *http.Request, err error) {
	h.logger.Error(r.Context(), "request failed", "request_id", RequestIDFromContext(r.Context()), "error", err)
	w.Header().Set("Retry-After", "60")
	h.render(w, r, http.StatusServiceUnavailable, pageMaintenance, page{Title: "Maintenance"})
}

func (h *handler) internalError(w http.ResponseWriter, _ *http.Request) {
	http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
}

package web

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/dmitrijs2005/eventsignup/internal/common"
	"github.com/dmitrijs2005/eventsignup/internal/server/session"
)

const (
	adminPath        = "/admin"
	adminTimeoutPath = "/admin?timeout=1"

	msgTimeout            = "Your session has expired. Please log in again."
	msgInvalidCredentials = "Invalid username or password."
	msgCSRFAdmin          = "invalid security token"
	msgDeleted            = "The registration has been deleted."
	msgAlreadyDeleted     = "The registration no longer exists."
	msgInvalidID          = "Invalid registration id."
	msgReset              = "The participant list has been reset (%d removed)."
	msgConfirmMismatch    = "Type the confirmation phrase to reset the list."
	msgUnsupportedFormat  = "Unsupported export format."
)

type loginData struct {
	Notice string
}

func (h *handler) handleAdmin(w http.ResponseWriter, r *http.Request) {
	sess := sessionOf(r)

	d, err := h.svc.Mutations.Dashboard(r.Context(), sess)
	switch {
	case err == nil:
		p, err := h.newPage(sess, "Admin panel", d)
		if err != nil {
			h.unavailable(w, r, err)
			return
		}
		h.render(w, r, http.StatusOK, pageDashboard, p)
	case errors.Is(err, common.ErrorUnauthorized):
		var data loginData
		if r.URL.Query().Get("timeout") == "1" {
			data.Notice = msgTimeout
		}
		p, err := h.newPage(sess, "Admin login", data)
		if err != nil {
			h.unavailable(w, r, err)
			return
		}
		h.render(w, r, http.StatusOK, pageLogin, p)
	case errors.Is(err, common.ErrorSessionExpired):
		h.redirect(w, r, sess, adminTimeoutPath)
	default:
		h.unavailable(w, r, err)
	}
}

func (h *handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	sess := sessionOf(r)

	err := h.svc.Auth.Login(r.Context(), sess, r.PostFormValue("username"), r.PostFormValue("password"))
	switch {
	case err == nil:
	case errors.Is(err, common.ErrorInvalidCredentials):
		sess.SetFlash(session.FlashError, msgInvalidCredentials)
	default:
		h.unavailable(w, r, err)
		return
	}
	h.redirect(w, r, sess, adminPath)
}

func (h *handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	sess := sessionOf(r)
	h.svc.Auth.Logout(r.Context(), sess, r.PostFormValue(formFieldCSRFToken))
	h.redirect(w, r, sess, adminPath)
}

func (h *handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	sess := sessionOf(r)

	deleted, err := h.svc.Mutations.DeleteParticipant(r.Context(), sess,
		r.PostFormValue(formFieldCSRFToken), r.PostFormValue("id"))
	if err != nil {
		h.adminFailure(w, r, sess, err)
		return
	}
	if deleted {
		sess.SetFlash(session.FlashSuccess, msgDeleted)
	} else {
		sess.SetFlash(session.FlashWarning, msgAlreadyDeleted)
	}
	h.redirect(w, r, sess, adminPath)
}

func (h *handler) handleReset(w http.ResponseWriter, r *http.Request) {
	sess := sessionOf(r)

	n, err := h.svc.Mutations.ResetAll(r.Context(), sess,
		r.PostFormValue(formFieldCSRFToken), r.PostFormValue("confirm_reset"))
	if err != nil {
		h.adminFailure(w, r, sess, err)
		return
	}
	sess.SetFlash(session.FlashSuccess, fmt.Sprintf(msgReset, n))
	h.redirect(w, r, sess, adminPath)
}

func (h *handler) handleExport(w http.ResponseWriter, r *http.Request) {
	sess := sessionOf(r)

	file, err := h.svc.Export.Export(r.Context(), sess, r.URL.Query().Get("format"))
	if err != nil {
		h.adminFailure(w, r, sess, err)
		return
	}

	hdr := w.Header()
	hdr.Set("Content-Type", file.ContentType)
	hdr.Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", file.Name))
	hdr.Set("Content-Length", strconv.Itoa(len(file.Data)))
	hdr.Set("Cache-Control", "no-store")
	hdr.Set("Pragma", "no-cache")
	hdr.Set("Expires", "0")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(file.Data); err != nil {
		h.logger.Warn(r.Context(), "export write failed", "file", file.Name, "error", err)
	}
}

// adminFailure turns an admin service error into a redirect with a flash, or
// a 503 for storage failures.
func (h *handler) adminFailure(w http.ResponseWriter, r *http.Request, sess *session.Session, err error) {
	switch {
	case errors.Is(err, common.ErrorSessionExpired):
		h.redirect(w, r, sess, adminTimeoutPath)
	case errors.Is(err, common.ErrorUnauthorized):
		h.redirect(w, r, sess, adminPath)
	case errors.Is(err, common.ErrorCSRFMismatch):
		sess.SetFlash(session.FlashError, msgCSRFAdmin)
		h.redirect(w, r, sess, adminPath)
	case errors.Is(err, common.ErrorInvalidID):
		sess.SetFlash(session.FlashError, msgInvalidID)
		h.redirect(w, r, sess, adminPath)
	case errors.Is(err, common.ErrorConfirmationMismatch):
		sess.SetFlash(session.FlashError, msgConfirmMismatch)
		h.redirect(w, r, sess, adminPath)
	case errors.Is(err, common.ErrorUnsupportedFormat):
		sess.SetFlash(session.FlashError, msgUnsupportedFormat)
		h.redirect(w, r, sess, adminPath)
	default:
		h.unavailable(w, r, err)
	}
}

package web

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/dmitrijs2005/eventsignup/internal/common"
	"github.com/dmitrijs2005/eventsignup/internal/server/models"
	"github.com/dmitrijs2005/eventsignup/internal/server/services"
	"github.com/dmitrijs2005/eventsignup/internal/server/session"
)

const (
	msgRegistered      = "Thank you! Your registration has been accepted. A confirmation was sent to %s."
	msgNotifyFailed    = "Your registration has been accepted, but the confirmation e-mail could not be sent. Please contact the organizer."
	msgCSRFPublic      = "Invalid security token. Refresh the page and try again."
	msgCapacity        = "Sorry, all places are already taken."
	msgDuplicateEmail  = "This e-mail address is already registered."
	formFieldCSRFToken = "csrf_token"
)

type indexData struct {
	Summary *services.PublicSummary
	Form    map[string]string
}

func (h *handler) handleIndex(w http.ResponseWriter, r *http.Request) {
	sess := sessionOf(r)

	summary, err := h.svc.Registration.PublicSummary(r.Context())
	if err != nil {
		h.unavailable(w, r, err)
		return
	}

	form := sess.PopFormData()
	if form == nil {
		form = map[string]string{}
	}
	p, err := h.newPage(sess, "Event sign-up", indexData{Summary: summary, Form: form})
	if err != nil {
		h.unavailable(w, r, err)
		return
	}
	h.render(w, r, http.StatusOK, pageIndex, p)
}

func (h *handler) handleSignup(w http.ResponseWriter, r *http.Request) {
	sess := sessionOf(r)
	if err := r.ParseForm(); err != nil {
		sess.SetFlash(session.FlashError, "The form could not be read. Please try again.")
		h.redirect(w, r, sess, "/")
		return
	}

	in := models.ParticipantInputFromMap(formValues(r, models.ParticipantInput{}.Map()))
	res, err := h.svc.Registration.Register(r.Context(), sess, r.PostForm.Get(formFieldCSRFToken), in)

	var ve *services.ValidationError
	switch {
	case err == nil:
		sess.SetFlash(session.FlashSuccess, fmt.Sprintf(msgRegistered, res.Participant.Email))
		if res.NotificationErr != nil {
			sess.SetFlash(session.FlashWarning, msgNotifyFailed)
		}
	case errors.As(err, &ve):
		for _, m := range ve.Messages() {
			sess.SetFlash(session.FlashError, m)
		}
		sess.SetFormData(ve.Input.Map())
	case errors.Is(err, common.ErrorCSRFMismatch):
		sess.SetFlash(session.FlashError, msgCSRFPublic)
	case errors.Is(err, common.ErrorCapacityExceeded):
		sess.SetFlash(session.FlashError, msgCapacity)
	case errors.Is(err, common.ErrorDuplicateEmail):
		sess.SetFlash(session.FlashError, msgDuplicateEmail)
		sess.SetFormData(services.SanitizeInput(in).Map())
	default:
		h.unavailable(w, r, err)
		return
	}

	h.redirect(w, r, sess, "/")
}

// formValues reads every key of template from the posted form.
func formValues(r *http.Request, template map[string]string) map[string]string {
	out := make(map[string]string, len(template))
	for k := range template {
		out[k] = r.PostForm.Get(k)
	}
	return out
}

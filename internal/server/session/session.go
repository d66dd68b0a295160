// Package session keeps per-browser state on the server: the anti-forgery
// token, the admin login, one-shot flash messages and form data.
//
// A *Session is an explicit value handed to services. They record intent on
// it (Renew, Destroy) and the HTTP layer applies it with Store.Save.
package session

import (
	"crypto/subtle"
	"maps"
	"sync"
	"time"

	"github.com/dmitrijs2005/eventsignup/internal/common"
)

type FlashKind string

const (
	FlashSuccess FlashKind = "success"
	FlashWarning FlashKind = "warning"
	FlashError   FlashKind = "error"
)

type Flash struct {
	Kind    FlashKind
	Message string
}

// csrfTokenBytes gives a 256-bit token, 64 hex characters.
const csrfTokenBytes = 32

type Session struct {
	mu sync.Mutex

	id        string
	csrfToken string

	authenticated bool
	adminID       int64
	username      string
	loginTime     time.Time

	flashes  []Flash
	formData map[string]string

	renew     bool
	destroyed bool
	timedOut  bool
}

// New returns an empty session with the given id.
func New(id string) *Session {
	return &Session{id: id}
}

func (s *Session) ID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.id
}

// CSRFToken returns the session's token, generating it on first use.
func (s *Session) CSRFToken() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.csrfToken == "" {
		token, err := common.MakeRandHexString(csrfTokenBytes)
		if err != nil {
			return "", err
		}
		s.csrfToken = token
	}
	return s.csrfToken, nil
}

// VerifyCSRF compares candidate with the issued token in constant time.
// It is false when no token has been issued yet.
func (s *Session) VerifyCSRF(candidate string) bool {
	s.mu.Lock()
	token := s.csrfToken
	s.mu.Unlock()

	if token == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(token), []byte(candidate)) == 1
}

// Authenticate marks the session as logged in and asks for a fresh id.
func (s *Session) Authenticate(adminID int64, username string, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.authenticated = true
	s.adminID = adminID
	s.username = username
	s.loginTime = at
	s.renew = true
}

func (s *Session) Authenticated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.authenticated
}

func (s *Session) Username() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.username
}

func (s *Session) LoginTime() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loginTime
}

// Destroy wipes every value and asks the store to drop the session.
func (s *Session) Destroy() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.csrfToken = ""
	s.authenticated = false
	s.adminID = 0
	s.username = ""
	s.loginTime = time.Time{}
	s.flashes = nil
	s.formData = nil
	s.renew = false
	s.timedOut = false
	s.destroyed = true
}

func (s *Session) Destroyed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.destroyed
}

func (s *Session) SetFlash(kind FlashKind, msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flashes = append(s.flashes, Flash{Kind: kind, Message: msg})
}

// PopFlashes returns pending flashes in the order they were set and clears them.
func (s *Session) PopFlashes() []Flash {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := s.flashes
	s.flashes = nil
	return out
}

func (s *Session) SetFormData(data map[string]string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.formData = maps.Clone(data)
}

// PopFormData returns the saved form values, or nil, and clears them.
func (s *Session) PopFormData() map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := s.formData
	s.formData = nil
	return out
}

// TakeTimedOut reports once whether the session replaces an admin login
// whose cookie outlived the server-side state.
func (s *Session) TakeTimedOut() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	t := s.timedOut
	s.timedOut = false
	return t
}

func (s *Session) markTimedOut() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.timedOut = true
}

func (s *Session) takeRenew() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	r := s.renew
	s.renew = false
	return r
}

func (s *Session) setID(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.id = id
}

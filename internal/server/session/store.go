package session

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/dmitrijs2005/eventsignup/internal/common"
	"github.com/dmitrijs2005/eventsignup/internal/server/auth"
	gocache "github.com/patrickmn/go-cache"
)

const sessionIDBytes = 32

type ctxKey struct{}

// NewContext returns a copy of ctx carrying s.
func NewContext(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, ctxKey{}, s)
}

// FromContext returns the session stored by NewContext.
func FromContext(ctx context.Context) (*Session, bool) {
	s, ok := ctx.Value(ctxKey{}).(*Session)
	return s, ok
}

// retentionFactor sets how long sessions and their tokens live relative to
// the admin lifetime. They must outlive it so that an expired login is still
// recognised as one.
const retentionFactor = 2

// Store keeps sessions in memory. An entry lives for the retention period
// after its last request. The cookie is a browser-session cookie holding a
// signed token that names the id.
type Store struct {
	cache      *gocache.Cache
	cookieName string
	lifetime   time.Duration
	retention  time.Duration
	secret     []byte
}

// NewStore returns a store for the given admin lifetime. Expired entries are
// only dropped by Sweep.
func NewStore(cookieName string, lifetime time.Duration, secret []byte) *Store {
	retention := lifetime * retentionFactor
	return &Store{
		cache:      gocache.New(retention, 0),
		cookieName: cookieName,
		lifetime:   lifetime,
		retention:  retention,
		secret:     secret,
	}
}

func (st *Store) Lifetime() time.Duration { return st.lifetime }

// Len is the number of stored sessions, expired ones not yet swept included.
func (st *Store) Len() int { return st.cache.ItemCount() }

// Sweep drops expired sessions every interval until ctx is done.
func (st *Store) Sweep(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			st.cache.DeleteExpired()
		}
	}
}

// Start returns the session of this request. It looks in the request
// context first, then at the cookie, and otherwise creates a new session
// and sets its cookie on w. A tampered cookie counts as absent. A cookie
// of a logged-in session that is no longer known yields a new session
// flagged timed out.
func (st *Store) Start(w http.ResponseWriter, r *http.Request) (*Session, error) {
	if s, ok := FromContext(r.Context()); ok {
		return s, nil
	}

	claims, s, err := st.load(w, r)
	if err != nil || s != nil {
		return s, err
	}

	s, err = st.create(w, r)
	if err != nil {
		return nil, err
	}
	if claims != nil && claims.Admin {
		s.markTimedOut()
	}
	return s, nil
}

func (st *Store) create(w http.ResponseWriter, r *http.Request) (*Session, error) {
	id, err := common.MakeRandHexString(sessionIDBytes)
	if err != nil {
		return nil, err
	}
	s := New(id)
	if err := st.issue(w, r, s); err != nil {
		return nil, err
	}
	return s, nil
}

// load resolves the cookie. It returns the verified claims even when the
// session itself is gone. A known session has its entry refreshed and, when
// its token has expired, a new token.
func (st *Store) load(w http.ResponseWriter, r *http.Request) (*auth.Claims, *Session, error) {
	c, err := r.Cookie(st.cookieName)
	if err != nil || c.Value == "" {
		return nil, nil, nil
	}

	claims, err := auth.ParseSessionToken(c.Value, st.secret)
	expired := errors.Is(err, common.ErrorSessionExpired)
	if err != nil && !expired {
		return nil, nil, nil
	}

	v, ok := st.cache.Get(claims.SessionID)
	if !ok {
		return claims, nil, nil
	}
	s := v.(*Session)
	if expired {
		return claims, s, st.issue(w, r, s)
	}
	st.cache.Set(s.ID(), s, gocache.DefaultExpiration)
	return claims, s, nil
}

// Regenerate moves s to a fresh id, forgets the old one and rewrites the cookie.
func (st *Store) Regenerate(w http.ResponseWriter, r *http.Request, s *Session) error {
	id, err := common.MakeRandHexString(sessionIDBytes)
	if err != nil {
		return err
	}
	st.cache.Delete(s.ID())
	s.setID(id)
	return st.issue(w, r, s)
}

// Destroy forgets s and expires its cookie.
func (st *Store) Destroy(w http.ResponseWriter, r *http.Request, s *Session) {
	st.cache.Delete(s.ID())
	http.SetCookie(w, &http.Cookie{
		Name:     st.cookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   isSecure(r),
		SameSite: http.SameSiteLaxMode,
	})
}

// Save applies what services asked for on s: Destroy wins over Renew.
// It must run before the response body is written.
func (st *Store) Save(w http.ResponseWriter, r *http.Request, s *Session) error {
	if s.Destroyed() {
		st.Destroy(w, r, s)
		return nil
	}
	if s.takeRenew() {
		return st.Regenerate(w, r, s)
	}
	return nil
}

func (st *Store) issue(w http.ResponseWriter, r *http.Request, s *Session) error {
	token, err := auth.GenerateSessionToken(s.ID(), s.Authenticated(), st.secret, st.retention)
	if err != nil {
		return err
	}
	st.cache.Set(s.ID(), s, gocache.DefaultExpiration)

	http.SetCookie(w, &http.Cookie{
		Name:     st.cookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   isSecure(r),
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

func isSecure(r *http.Request) bool {
	return r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https"
}

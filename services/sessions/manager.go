// Package sessions binds an authenticated user id to a signed, encrypted
// cookie.
package sessions

import (
	"crypto/sha256"
	"net/http"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/gorilla/sessions"
)

const (
	// CookieName is the session cookie sent to browsers.
	CookieName = "jobtracker_session"

	userIDKey = "user_id"
)

// Options configures a Manager.
type Options struct {
	Secret string
	MaxAge time.Duration
	Secure bool
}

// Manager issues, resolves and clears login sessions.
type Manager struct {
	store *sessions.CookieStore
}

// New derives independent signing and encryption keys from the secret.
// Changing the secret invalidates every outstanding session.
func New(opts Options) (*Manager, error) {
	if opts.Secret == "" {
		return nil, errors.New("session secret is empty")
	}
	hashKey := sha256.Sum256([]byte("jobtracker/sign/" + opts.Secret))
	blockKey := sha256.Sum256([]byte("jobtracker/encrypt/" + opts.Secret))

	store := sessions.NewCookieStore(hashKey[:], blockKey[:])
	maxAge := int(opts.MaxAge / time.Second)
	if maxAge <= 0 {
		maxAge = int((7 * 24 * time.Hour) / time.Second)
	}
	store.MaxAge(maxAge)
	store.Options.Path = "/"
	store.Options.HttpOnly = true
	store.Options.Secure = opts.Secure
	store.Options.SameSite = http.SameSiteLaxMode

	return &Manager{store: store}, nil
}

// Login starts a session for userID on the response.
func (m *Manager) Login(w http.ResponseWriter, r *http.Request, userID uint) error {
	session, _ := m.store.Get(r, CookieName)
	session.Values[userIDKey] = userID
	if err := session.Save(r, w); err != nil {
		return errors.Wrap(err, "save session")
	}
	return nil
}

// Resolve returns the user id bound to the request's session. A missing,
// tampered or expired cookie yields false.
func (m *Manager) Resolve(r *http.Request) (uint, bool) {
	session, err := m.store.Get(r, CookieName)
	if err != nil || session.IsNew {
		return 0, false
	}
	id, ok := session.Values[userIDKey].(uint)
	if !ok || id == 0 {
		return 0, false
	}
	return id, true
}

// Clear expires the session cookie.
func (m *Manager) Clear(w http.ResponseWriter, r *http.Request) error {
	session, _ := m.store.Get(r, CookieName)
	session.Values = map[interface{}]interface{}{}
	session.Options.MaxAge = -1
	if err := session.Save(r, w); err != nil {
		return errors.Wrap(err, "clear session")
	}
	return nil
}

// AddFlash queues a one-shot notice shown on the next rendered page.
func (m *Manager) AddFlash(w http.ResponseWriter, r *http.Request, msg string) error {
	session, _ := m.store.Get(r, CookieName)
	session.AddFlash(msg)
	return session.Save(r, w)
}

// Flashes drains queued notices. It must run before the response body is
// written because it rewrites the cookie.
func (m *Manager) Flashes(w http.ResponseWriter, r *http.Request) []string {
	session, err := m.store.Get(r, CookieName)
	if err != nil || session.IsNew {
		return nil
	}
	raw := session.Flashes()
	if len(raw) == 0 {
		return nil
	}
	_ = session.Save(r, w)

	msgs := make([]string, 0, len(raw))
	for _, f := range raw {
		if s, ok := f.(string); ok {
			msgs = append(msgs, s)
		}
	}
	return msgs
}

// Package operator owns the operator's backend authentication token.
package operator

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// expirySkew renews tokens slightly before the backend would reject them.
const expirySkew = 30 * time.Second

var (
	// ErrNoToken is returned by NewSession for an empty token.
	ErrNoToken = errors.New("operator: empty token")
	// ErrNotLoggedIn is returned when no valid token exists and no login is configured.
	ErrNotLoggedIn = errors.New("operator: not logged in")
)

// Session is one operator token. JWT tokens carry their expiry; opaque tokens never expire locally.
type Session struct {
	token     string
	expiresAt time.Time
}

// NewSession wraps token. The JWT exp claim, when present, is read without signature verification;
// the backend remains the authority on validity.
func NewSession(token string) (*Session, error) {
	if token == "" {
		return nil, ErrNoToken
	}
	s := &Session{token: token}
	claims := &jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err == nil && claims.ExpiresAt != nil {
		s.expiresAt = claims.ExpiresAt.Time
	}
	return s, nil
}

// Token returns the raw bearer token.
func (s *Session) Token() string { return s.token }

// ExpiresAt returns the token expiry, zero for opaque tokens.
func (s *Session) ExpiresAt() time.Time { return s.expiresAt }

// Valid reports whether the token is usable at now.
func (s *Session) Valid(now time.Time) bool {
	if s == nil {
		return false
	}
	return s.expiresAt.IsZero() || now.Add(expirySkew).Before(s.expiresAt)
}

// LoginFunc obtains a fresh token from the backend.
type LoginFunc func(ctx context.Context) (string, error)

// Holder is the token source injected into the backend client. It logs in lazily and again after
// expiry or invalidation.
type Holder struct {
	mu      sync.Mutex
	current *Session
	login   LoginFunc
	nowF    func() time.Time
}

// NewHolder returns a Holder starting with initial (may be nil). login may be nil when only a
// pre-provisioned token is used.
func NewHolder(initial *Session, login LoginFunc) *Holder {
	return &Holder{current: initial, login: login, nowF: time.Now}
}

// SetLogin replaces the login function.
func (h *Holder) SetLogin(login LoginFunc) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.login = login
}

// Token returns a valid token, logging in when needed.
func (h *Holder) Token(ctx context.Context) (string, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.current.Valid(h.nowF()) {
		return h.current.token, nil
	}
	if h.login == nil {
		return "", ErrNotLoggedIn
	}
	raw, err := h.login(ctx)
	if err != nil {
		return "", err
	}
	s, err := NewSession(raw)
	if err != nil {
		return "", err
	}
	h.current = s
	return s.token, nil
}

// Invalidate drops the current session if it still holds token. Called after the backend
// answers 401 for that token.
func (h *Holder) Invalidate(token string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.current != nil && h.current.token == token {
		h.current = nil
	}
}

// Current returns the active session, or nil.
func (h *Holder) Current() *Session {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.current
}

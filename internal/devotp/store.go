// Package devotp generates one-time passcodes for the dev backend and keeps the plain codes
// retrievable by session id (GET /dev/otp). Never used against a real backend.
package devotp

import (
	"context"
	"sync"
	"time"
)

// Store holds plain OTP by session_id for dev-only retrieval.
type Store interface {
	// Put stores otp for sessionID until expiresAt.
	Put(ctx context.Context, sessionID, otp string, expiresAt time.Time)
	// Get returns the otp for sessionID if present and not expired. Returns ok false if missing or expired.
	Get(ctx context.Context, sessionID string) (otp string, ok bool)
	// Delete forgets sessionID.
	Delete(ctx context.Context, sessionID string)
}

type entry struct {
	otp       string
	expiresAt time.Time
}

// MemoryStore is an in-memory Store implementation.
type MemoryStore struct {
	mu   sync.RWMutex
	m    map[string]entry
	nowF func() time.Time
}

// NewMemoryStore returns a new in-memory dev OTP store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		m:    make(map[string]entry),
		nowF: func() time.Time { return time.Now().UTC() },
	}
}

// Put stores otp for sessionID until expiresAt.
func (s *MemoryStore) Put(ctx context.Context, sessionID, otp string, expiresAt time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[sessionID] = entry{otp: otp, expiresAt: expiresAt}
}

// Get returns the otp for sessionID if present and not expired.
func (s *MemoryStore) Get(ctx context.Context, sessionID string) (string, bool) {
	s.mu.RLock()
	e, ok := s.m[sessionID]
	s.mu.RUnlock()
	if !ok {
		return "", false
	}
	if !e.expiresAt.After(s.nowF()) {
		s.Delete(ctx, sessionID)
		return "", false
	}
	return e.otp, true
}

// Delete forgets sessionID.
func (s *MemoryStore) Delete(ctx context.Context, sessionID string) {
	s.mu.Lock()
	delete(s.m, sessionID)
	s.mu.Unlock()
}

// Package credcache keeps verified session credentials until they are persisted, so a failed
// finalize can be retried without repeating OTP and 2FA.
package credcache

import (
	"context"
	"sync"
	"time"
)

// Pending is a verified credential awaiting finalize.
type Pending struct {
	PhoneNumber     string    `json:"phone_number"`
	Credential      string    `json:"credential"`
	TwoFactorSecret string    `json:"two_factor_secret,omitempty"`
	VerifiedAt      time.Time `json:"verified_at"`
}

// Store holds Pending values by issuance handle.
type Store interface {
	// Put stores p for handle for ttl, replacing any previous value.
	Put(ctx context.Context, handle string, p Pending, ttl time.Duration) error
	// Get returns the value for handle. ok is false when missing or expired.
	Get(ctx context.Context, handle string) (p Pending, ok bool, err error)
	// Delete removes handle. Missing handles are not an error.
	Delete(ctx context.Context, handle string) error
}

type entry struct {
	pending   Pending
	expiresAt time.Time
}

// MemoryStore is an in-process Store.
type MemoryStore struct {
	mu   sync.RWMutex
	m    map[string]entry
	nowF func() time.Time
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		m:    make(map[string]entry),
		nowF: time.Now,
	}
}

// Put stores p for handle until now+ttl.
func (s *MemoryStore) Put(ctx context.Context, handle string, p Pending, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[handle] = entry{pending: p, expiresAt: s.nowF().Add(ttl)}
	return nil
}

// Get returns the value for handle if present and not expired. Expired entries are removed.
func (s *MemoryStore) Get(ctx context.Context, handle string) (Pending, bool, error) {
	s.mu.RLock()
	e, ok := s.m[handle]
	s.mu.RUnlock()
	if !ok {
		return Pending{}, false, nil
	}
	if !e.expiresAt.After(s.nowF()) {
		s.mu.Lock()
		delete(s.m, handle)
		s.mu.Unlock()
		return Pending{}, false, nil
	}
	return e.pending, true, nil
}

// Delete removes handle.
func (s *MemoryStore) Delete(ctx context.Context, handle string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.m, handle)
	return nil
}

// Sweep removes expired entries and returns how many were removed.
func (s *MemoryStore) Sweep() int {
	now := s.nowF()
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for k, e := range s.m {
		if !e.expiresAt.After(now) {
			delete(s.m, k)
			n++
		}
	}
	return n
}

// Len returns the number of stored entries, expired ones included.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.m)
}

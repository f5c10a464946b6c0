package service

import (
	"sync"
	"time"

	"session-issuance-console/internal/issuance/domain"
)

// Registry holds live issuance sessions by handle.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*domain.Session
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]*domain.Session)}
}

// Add stores s under its handle.
func (r *Registry) Add(s *domain.Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[s.Handle()] = s
}

// Get returns the session for handle, or nil.
func (r *Registry) Get(handle string) *domain.Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sessions[handle]
}

// Len returns the number of sessions held.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Sweep removes terminal sessions and non-busy sessions idle since before now-idleTTL.
// It returns the snapshots of the removed sessions.
func (r *Registry) Sweep(now time.Time, idleTTL time.Duration) []domain.Snapshot {
	cutoff := now.Add(-idleTTL)
	r.mu.Lock()
	defer r.mu.Unlock()
	var removed []domain.Snapshot
	for handle, s := range r.sessions {
		snap := s.Snapshot()
		if snap.Busy {
			continue
		}
		if snap.Stage.Terminal() || snap.UpdatedAt.Before(cutoff) {
			delete(r.sessions, handle)
			removed = append(removed, snap)
		}
	}
	return removed
}

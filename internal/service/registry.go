package service

import (
	"context"
	"sync"
	"time"

	"github.com/msomdec/feedline/internal/domain"
)

// SessionRegistry holds open session contexts between requests. Entries
// expire ttl after they were opened.
type SessionRegistry struct {
	mu       sync.RWMutex
	sessions map[string]*registryEntry
	ttl      time.Duration
	now      func() time.Time
}

type registryEntry struct {
	session   *domain.SessionContext
	expiresAt time.Time
}

// NewSessionRegistry creates an empty registry. A zero ttl means 24 hours.
func NewSessionRegistry(ttl time.Duration) *SessionRegistry {
	if ttl == 0 {
		ttl = 24 * time.Hour
	}
	return &SessionRegistry{
		sessions: make(map[string]*registryEntry),
		ttl:      ttl,
		now:      time.Now,
	}
}

// SetClock replaces the time source used for expiry.
func (r *SessionRegistry) SetClock(now func() time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.now = now
}

// Put registers sc under its ID.
func (r *SessionRegistry) Put(sc *domain.SessionContext) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[sc.ID] = &registryEntry{session: sc, expiresAt: r.now().Add(r.ttl)}
}

// Get returns the session registered under id, or ErrNotFound when it is
// unknown or expired.
func (r *SessionRegistry) Get(id string) (*domain.SessionContext, error) {
	r.mu.RLock()
	e, ok := r.sessions[id]
	r.mu.RUnlock()
	if !ok {
		return nil, domain.ErrNotFound
	}
	if !r.now().Before(e.expiresAt) {
		r.Delete(id)
		return nil, domain.ErrNotFound
	}
	return e.session, nil
}

// Delete forgets id.
func (r *SessionRegistry) Delete(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, id)
}

// Len reports the number of registered sessions, expired ones included.
func (r *SessionRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Sweep drops expired sessions and returns how many were removed.
func (r *SessionRegistry) Sweep() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	removed := 0
	for id, e := range r.sessions {
		if !now.Before(e.expiresAt) {
			delete(r.sessions, id)
			removed++
		}
	}
	return removed
}

// Run sweeps expired sessions every interval until ctx is done.
func (r *SessionRegistry) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.Sweep()
		}
	}
}

package domain

import (
	"sync"
	"time"
)

// SessionContext is the in-memory working copy of one authenticated
// user's record. It is the only surface request handlers mutate; the
// Record Store only sees it through an explicit flush.
type SessionContext struct {
	mu sync.Mutex

	ID          string
	Identity    string
	DisplayName string
	Credential  string
	Messages    []Message
	Follows     []string
	OpenedAt    time.Time
	Closed      bool
}

// Lock serializes operations on one session.
func (s *SessionContext) Lock() { s.mu.Lock() }

// Unlock releases the session lock.
func (s *SessionContext) Unlock() { s.mu.Unlock() }

// Snapshot returns the session state as a full record. The caller must
// hold the lock.
func (s *SessionContext) Snapshot() *UserRecord {
	rec := &UserRecord{
		Identity:    s.Identity,
		DisplayName: s.DisplayName,
		Credential:  s.Credential,
		Messages:    s.Messages,
		Follows:     s.Follows,
	}
	return rec.Clone()
}

package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/msomdec/feedline/internal/domain"
)

// SessionService manages session contexts: it seeds them from records,
// mutates them on behalf of requests and flushes them back on demand.
//
// Two sessions for the same identity do not coordinate; whichever flushes
// last overwrites the other's changes.
type SessionService struct {
	records  domain.RecordRepository
	creds    CredentialScheme
	registry *SessionRegistry
	now      func() time.Time
}

// NewSessionService creates a new SessionService.
func NewSessionService(records domain.RecordRepository, creds CredentialScheme, registry *SessionRegistry) *SessionService {
	return &SessionService{
		records:  records,
		creds:    creds,
		registry: registry,
		now:      time.Now,
	}
}

// SetClock replaces the time source used for message timestamps.
func (s *SessionService) SetClock(now func() time.Time) {
	s.now = now
}

// Open materializes a session from a freshly loaded or created record and
// registers it.
func (s *SessionService) Open(rec *domain.UserRecord) *domain.SessionContext {
	c := rec.Clone()
	sc := &domain.SessionContext{
		ID:          uuid.NewString(),
		Identity:    c.Identity,
		DisplayName: c.DisplayName,
		Credential:  c.Credential,
		Messages:    c.Messages,
		Follows:     c.Follows,
		OpenedAt:    s.now(),
	}
	s.registry.Put(sc)
	slog.Info("session opened", "identity", sc.Identity, "session", sc.ID)
	return sc
}

// Get returns the open session registered under id.
func (s *SessionService) Get(id string) (*domain.SessionContext, error) {
	return s.registry.Get(id)
}

// View returns a copy of the session state for rendering.
func (s *SessionService) View(sc *domain.SessionContext) *domain.UserRecord {
	sc.Lock()
	defer sc.Unlock()
	return sc.Snapshot()
}

// AppendMessage appends text stamped with the current time. Empty text is
// ignored and reported as false. The change is not persisted until Flush.
func (s *SessionService) AppendMessage(sc *domain.SessionContext, text string) (bool, error) {
	if text == "" {
		return false, nil
	}

	sc.Lock()
	defer sc.Unlock()
	if sc.Closed {
		return false, domain.ErrUnauthorized
	}

	ts := float64(s.now().UnixMicro()) / 1e6
	sc.Messages = append(sc.Messages, domain.Message{Timestamp: ts, Text: text})
	return true, nil
}

// UpdateProfile overwrites display name, credential and follows. A
// credential equal to the stored one is kept as is so an unchanged form
// field does not reseal an already sealed value.
func (s *SessionService) UpdateProfile(sc *domain.SessionContext, displayName, credential string, follows []string) error {
	sc.Lock()
	defer sc.Unlock()
	if sc.Closed {
		return domain.ErrUnauthorized
	}

	if credential != sc.Credential {
		sealed, err := s.creds.Seal(credential)
		if err != nil {
			return err
		}
		sc.Credential = sealed
	}
	sc.DisplayName = displayName
	sc.Follows = append([]string{}, follows...)
	return nil
}

// Flush saves the full session state over the stored record.
func (s *SessionService) Flush(ctx context.Context, sc *domain.SessionContext) error {
	sc.Lock()
	defer sc.Unlock()
	if sc.Closed {
		return domain.ErrUnauthorized
	}

	if err := s.records.Save(ctx, sc.Snapshot()); err != nil {
		return fmt.Errorf("flush session: %w", err)
	}
	return nil
}

// Close discards the session without flushing it.
func (s *SessionService) Close(sc *domain.SessionContext) {
	sc.Lock()
	defer sc.Unlock()

	s.registry.Delete(sc.ID)
	sc.Closed = true
	sc.DisplayName = ""
	sc.Credential = ""
	sc.Messages = nil
	sc.Follows = nil
	slog.Info("session closed", "identity", sc.Identity, "session", sc.ID)
}

package domain

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// Message is one timestamped post. Timestamp is Unix seconds with a
// fractional part.
type Message struct {
	Timestamp float64
	Text      string
}

// MarshalJSON encodes a message as a two element [timestamp, text] array.
func (m Message) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]any{m.Timestamp, m.Text})
}

// UnmarshalJSON decodes a [timestamp, text] array.
func (m *Message) UnmarshalJSON(data []byte) error {
	var pair []json.RawMessage
	if err := json.Unmarshal(data, &pair); err != nil {
		return fmt.Errorf("decode message: %w", err)
	}
	if len(pair) != 2 {
		return fmt.Errorf("decode message: expected 2 elements, got %d", len(pair))
	}
	if err := json.Unmarshal(pair[0], &m.Timestamp); err != nil {
		return fmt.Errorf("decode message timestamp: %w", err)
	}
	if err := json.Unmarshal(pair[1], &m.Text); err != nil {
		return fmt.Errorf("decode message text: %w", err)
	}
	return nil
}

// UserRecord is the durable per-user data unit. Identity is the email
// and doubles as the storage key.
type UserRecord struct {
	Identity    string
	DisplayName string
	Credential  string
	Messages    []Message
	Follows     []string
}

// Clone returns a deep copy so callers can mutate slices freely.
func (r *UserRecord) Clone() *UserRecord {
	c := *r
	c.Messages = append([]Message(nil), r.Messages...)
	c.Follows = append([]string(nil), r.Follows...)
	if c.Messages == nil {
		c.Messages = []Message{}
	}
	if c.Follows == nil {
		c.Follows = []string{}
	}
	return &c
}

// FeedEntry is a message projected with its author's display name.
// It is derived on every read and never stored.
type FeedEntry struct {
	Author    string
	Identity  string
	Timestamp float64
	Text      string
}

// RecordRepository is the Record Store: one record per identity.
type RecordRepository interface {
	Exists(ctx context.Context, identity string) (bool, error)
	// Create fails with ErrAlreadyExists when a record for identity is present.
	Create(ctx context.Context, identity, displayName, credential string) (*UserRecord, error)
	// Load fails with ErrNotFound when no record exists.
	Load(ctx context.Context, identity string) (*UserRecord, error)
	// Save overwrites the whole stored record for rec.Identity.
	Save(ctx context.Context, rec *UserRecord) error
	Identities(ctx context.Context) ([]string, error)
}

// ValidateIdentity reports whether identity is usable as a storage key.
func ValidateIdentity(identity string) error {
	switch {
	case identity == "":
		return fmt.Errorf("%w: identity is required", ErrInvalidInput)
	case identity == "." || identity == "..":
		return fmt.Errorf("%w: identity %q is reserved", ErrInvalidInput, identity)
	case strings.ContainsAny(identity, "/\\\x00"):
		return fmt.Errorf("%w: identity %q contains a forbidden character", ErrInvalidInput, identity)
	case strings.HasPrefix(identity, "."):
		return fmt.Errorf("%w: identity %q must not start with a dot", ErrInvalidInput, identity)
	}
	return nil
}

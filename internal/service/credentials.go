package service

import (
	"crypto/subtle"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// CredentialScheme turns a raw credential into its stored form and checks
// a raw credential against a stored one.
type CredentialScheme interface {
	Seal(raw string) (string, error)
	Match(stored, raw string) bool
}

// PlainCredentials stores credentials verbatim. Records written by earlier
// deployments hold clear text, so this stays the default; prefer
// BcryptCredentials for anything new.
type PlainCredentials struct{}

func (PlainCredentials) Seal(raw string) (string, error) { return raw, nil }

func (PlainCredentials) Match(stored, raw string) bool {
	return subtle.ConstantTimeCompare([]byte(stored), []byte(raw)) == 1
}

// BcryptCredentials stores bcrypt hashes.
type BcryptCredentials struct {
	Cost int
}

func (b BcryptCredentials) Seal(raw string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(raw), b.Cost)
	if err != nil {
		return "", fmt.Errorf("hash credential: %w", err)
	}
	return string(hash), nil
}

func (b BcryptCredentials) Match(stored, raw string) bool {
	return bcrypt.CompareHashAndPassword([]byte(stored), []byte(raw)) == nil
}

// NewCredentialScheme returns the scheme registered under name.
func NewCredentialScheme(name string, bcryptCost int) (CredentialScheme, error) {
	switch strings.ToLower(name) {
	case "", "plain":
		return PlainCredentials{}, nil
	case "bcrypt":
		return BcryptCredentials{Cost: bcryptCost}, nil
	default:
		return nil, fmt.Errorf("unknown credential scheme %q", name)
	}
}

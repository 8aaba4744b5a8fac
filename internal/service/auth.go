package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/msomdec/feedline/internal/domain"
)

// AuthService is the auth gate: it checks credentials against stored
// records, registers new identities and signs session cookies. It does
// not hold sessions itself.
type AuthService struct {
	records   domain.RecordRepository
	creds     CredentialScheme
	jwtSecret []byte
	tokenTTL  time.Duration
}

// NewAuthService creates a new AuthService.
func NewAuthService(records domain.RecordRepository, creds CredentialScheme, jwtSecret string, tokenTTL time.Duration) *AuthService {
	return &AuthService{
		records:   records,
		creds:     creds,
		jwtSecret: []byte(jwtSecret),
		tokenTTL:  tokenTTL,
	}
}

// Register creates a new record. A taken identity wins over a
// confirmation mismatch when both apply.
func (s *AuthService) Register(ctx context.Context, displayName, identity, credential, confirmation string) (*domain.UserRecord, error) {
	for _, f := range []struct{ name, value string }{
		{"nickname", displayName},
		{"email", identity},
		{"password", credential},
	} {
		if f.value == "" {
			return nil, fmt.Errorf("%w: %s", domain.ErrMissingInput, f.name)
		}
	}

	exists, err := s.records.Exists(ctx, identity)
	if err != nil {
		return nil, fmt.Errorf("check identity: %w", err)
	}
	if exists {
		return nil, domain.ErrAlreadyExists
	}

	if credential != confirmation {
		return nil, fmt.Errorf("%w: confirmation does not match", domain.ErrCredentialMismatch)
	}

	sealed, err := s.creds.Seal(credential)
	if err != nil {
		return nil, err
	}

	rec, err := s.records.Create(ctx, identity, displayName, sealed)
	if err != nil {
		if errors.Is(err, domain.ErrAlreadyExists) {
			return nil, domain.ErrAlreadyExists
		}
		return nil, fmt.Errorf("create record: %w", err)
	}

	slog.Info("record created", "identity", identity)
	return rec, nil
}

// Authenticate loads the record for identity and checks the credential.
// It fails with ErrNotFound for an unknown identity and
// ErrCredentialMismatch for a wrong credential; nothing is written.
func (s *AuthService) Authenticate(ctx context.Context, identity, credential string) (*domain.UserRecord, error) {
	rec, err := s.records.Load(ctx, identity)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("%w: identity %s", domain.ErrNotFound, identity)
		}
		return nil, fmt.Errorf("load record: %w", err)
	}

	if !s.creds.Match(rec.Credential, credential) {
		return nil, domain.ErrCredentialMismatch
	}
	return rec, nil
}

// SessionClaims is what a session cookie carries.
type SessionClaims struct {
	Identity  string
	SessionID string
}

// IssueToken signs a session cookie value for an open session.
func (s *AuthService) IssueToken(sc *domain.SessionContext) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub": sc.Identity,
		"sid": sc.ID,
		"iat": now.Unix(),
		"exp": now.Add(s.tokenTTL).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// ValidateToken parses and validates a session cookie value.
func (s *AuthService) ValidateToken(tokenString string) (SessionClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.jwtSecret, nil
	})
	if err != nil {
		return SessionClaims{}, domain.ErrUnauthorized
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return SessionClaims{}, domain.ErrUnauthorized
	}

	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return SessionClaims{}, domain.ErrUnauthorized
	}
	sid, _ := claims["sid"].(string)
	if sid == "" {
		return SessionClaims{}, domain.ErrUnauthorized
	}

	return SessionClaims{Identity: sub, SessionID: sid}, nil
}

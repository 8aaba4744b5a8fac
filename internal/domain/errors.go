package domain

import "errors"

var (
	ErrNotFound           = errors.New("not found")
	ErrAlreadyExists      = errors.New("identity already exists")
	ErrCredentialMismatch = errors.New("credential mismatch")
	ErrMissingInput       = errors.New("missing input")
	ErrInvalidInput       = errors.New("invalid input")
	ErrStorage            = errors.New("storage failure")
	ErrUnauthorized       = errors.New("unauthorized")
)

package domain

import "errors"

// Error kinds. Service errors wrap one of these so callers can branch on the
// kind without knowing every specific failure.
var (
	ErrValidation    = errors.New("validation failed")
	ErrConflict      = errors.New("conflict")
	ErrTerminalState = errors.New("invitation already accepted")
	ErrExpired       = errors.New("invitation expired")
	ErrNotFound      = errors.New("not found")
)

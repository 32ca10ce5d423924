package service

import (
	"errors"
	"fmt"

	"github.com/aussiebroadwan/bakeboard/internal/admin/domain"
)

// Every sentinel wraps one domain error kind so that transports can map on
// the kind alone.
var (
	ErrInvalidEmail        = fmt.Errorf("%w: invalid email address", domain.ErrValidation)
	ErrUnknownRole         = fmt.Errorf("%w: unknown role", domain.ErrValidation)
	ErrInvalidValidity     = fmt.Errorf("%w: validity must be between 1 and 90 days", domain.ErrValidation)
	ErrExpiryNotExtended   = fmt.Errorf("%w: new expiry must be later than the current one", domain.ErrValidation)
	ErrInvalidRegistration = fmt.Errorf("%w: invalid registration", domain.ErrValidation)
	ErrUnknownSequence     = fmt.Errorf("%w: unknown sequence kind", domain.ErrValidation)

	ErrUserExists        = fmt.Errorf("%w: a user with this email already exists", domain.ErrConflict)
	ErrUsernameTaken     = fmt.Errorf("%w: username already taken", domain.ErrConflict)
	ErrActiveInvitation  = fmt.Errorf("%w: a valid invitation for this email already exists", domain.ErrConflict)
	ErrSequenceExhausted = fmt.Errorf("%w: could not find a free sequence number", domain.ErrConflict)

	ErrInvitationAccepted = fmt.Errorf("%w", domain.ErrTerminalState)

	ErrInvitationExpired = fmt.Errorf("%w", domain.ErrExpired)
	ErrTokenCompromised  = fmt.Errorf("%w: token attempt limit exceeded", domain.ErrExpired)

	ErrInvitationNotFound = fmt.Errorf("invitation %w", domain.ErrNotFound)
	ErrUserNotFound       = fmt.Errorf("user %w", domain.ErrNotFound)

	ErrTokenGeneration = errors.New("could not generate a unique token")
)

// registrationError carries the offending field back to the form.
type registrationError struct {
	field  string
	reason string
}

func (e *registrationError) Error() string {
	return fmt.Sprintf("%s: %s %s", ErrInvalidRegistration, e.field, e.reason)
}

func (e *registrationError) Unwrap() error { return ErrInvalidRegistration }

// FieldOf returns the registration field an error refers to, if any.
func FieldOf(err error) string {
	var re *registrationError
	if errors.As(err, &re) {
		return re.field
	}
	return ""
}

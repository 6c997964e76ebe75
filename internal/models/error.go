package models

import (
	"errors"
	"fmt"
)

// Sentinel errors for common failure conditions
var (
	ErrNotFound           = errors.New("resource not found")
	ErrConflict           = errors.New("resource already exists")
	ErrUnauthenticated    = errors.New("unauthenticated")
	ErrForbidden          = errors.New("forbidden")
	ErrValidation         = errors.New("validation failed")
	ErrStorageUnavailable = errors.New("storage unavailable")

	// Sign-in errors
	ErrNotAllowListed   = errors.New("identity is not on the allow-list")
	ErrInvalidState     = errors.New("invalid or expired oauth state")
	ErrIdentityProvider = errors.New("identity provider request failed")
)

// ValidationError names the offending field. errors.Is(err, ErrValidation) holds for it.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("validation failed: %s", e.Message)
	}
	return fmt.Sprintf("validation failed: %s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// NewValidationError builds a ValidationError for field
func NewValidationError(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

package service

import (
	"errors"
	"fmt"
)

var (
	ErrValidation        = errors.New("validation failed")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrNotFound          = errors.New("not found")
	ErrInvalidTransition = errors.New("invalid status transition")
	// ErrConflict means a write kept losing to concurrent writers.
	ErrConflict    = errors.New("concurrent update conflict")
	ErrUnsupported = errors.New("not supported by this deployment")
)

// ValidationError names the offending input field. It matches ErrValidation with errors.Is.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

func invalid(field string, err error) error {
	return &ValidationError{Field: field, Message: err.Error()}
}

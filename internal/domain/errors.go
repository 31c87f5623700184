package domain

import (
	"errors"
	"fmt"
)

// Error categories. Every error returned by the use cases wraps one of these.
var (
	ErrValidation   = errors.New("validation failed")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
)

var (
	// ErrUserNotFound is returned when a user id or email does not resolve.
	ErrUserNotFound = fmt.Errorf("user %w", ErrNotFound)
	// ErrEvaluationNotFound means the participant has not submitted the quiz yet.
	ErrEvaluationNotFound = fmt.Errorf("evaluation %w", ErrNotFound)
	// ErrQuestionNotFound indicates an unknown question id.
	ErrQuestionNotFound = fmt.Errorf("question %w", ErrNotFound)

	ErrEmailExists      = fmt.Errorf("email already registered: %w", ErrConflict)
	ErrEmployeeIDExists = fmt.Errorf("employee id already registered: %w", ErrConflict)
	ErrQuestionExists   = fmt.Errorf("question id already exists: %w", ErrConflict)

	ErrInvalidCredentials = fmt.Errorf("invalid email or password: %w", ErrUnauthorized)
	ErrPermissionDenied   = fmt.Errorf("access denied: %w", ErrForbidden)
	ErrAlreadyAttempted   = fmt.Errorf("quiz already attempted: %w", ErrForbidden)
	ErrNotParticipant     = fmt.Errorf("only participants can submit quiz: %w", ErrForbidden)
)

// ValidationError reports a problem with a single input field.
type ValidationError struct {
	Field   string
	Message string
}

func NewValidationError(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

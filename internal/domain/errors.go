package domain

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

// ErrorCode classifies failures so callers can decide how to surface them.
type ErrorCode string

const (
	ErrCodeValidation      ErrorCode = "VALIDATION"
	ErrCodePersistence     ErrorCode = "PERSISTENCE"
	ErrCodeIdentity        ErrorCode = "IDENTITY"
	ErrCodeInvalidState    ErrorCode = "INVALID_STATE"
	ErrCodeNotFound        ErrorCode = "NOT_FOUND"
	ErrCodeAlreadyComplete ErrorCode = "ALREADY_COMPLETE"
)

// Error is the application-level error type.
type Error struct {
	Code    ErrorCode
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// NewError builds an error with the given classification.
func NewError(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

// WrapError wraps an existing error with a classification.
func WrapError(code ErrorCode, message string, err error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Common errors.
var (
	ErrNotSignedIn     = NewError(ErrCodeIdentity, "not signed in")
	ErrNotConfigured   = NewError(ErrCodeInvalidState, "no goal configured")
	ErrNotRunning      = NewError(ErrCodeInvalidState, "timer is not running")
	ErrSessionComplete = NewError(ErrCodeInvalidState, "all units already completed")
	ErrNoHistory       = NewError(ErrCodeNotFound, "no history for task")
)

// IsDomainError reports whether err carries the given code.
func IsDomainError(err error, code ErrorCode) bool {
	var dErr *Error
	if errors.As(err, &dErr) {
		return dErr.Code == code
	}
	return false
}

// Validation converts a validator failure into a VALIDATION error naming the
// first offending field.
func Validation(err error) error {
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return WrapError(ErrCodeValidation, fmt.Sprintf("invalid %s (%s)", fe.Field(), fe.Tag()), err)
	}
	return WrapError(ErrCodeValidation, "invalid input", err)
}

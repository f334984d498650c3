package core

import "github.com/pkg/errors"

// FieldError is used to indicate an error with a specific struct field.
type FieldError struct {
	Field string
	Error string
}

type ValidationError struct {
	Err    error
	Fields []FieldError
}

func NewValidationError(err error, flds ...FieldError) error {
	return &ValidationError{err, flds}
}

func (err ValidationError) Error() string {
	if err.Err == nil {
		return ""
	}
	return err.Err.Error()
}

// NotFoundError: the requested entity has no row.
type NotFoundError struct{ Message string }

func NewNotFoundError(msg string) error { return &NotFoundError{Message: msg} }

func (err NotFoundError) Error() string { return err.Message }

// ConflictError: the operation would duplicate a unique entity (email, enrollment, attempt).
type ConflictError struct{ Message string }

func NewConflictError(msg string) error { return &ConflictError{Message: msg} }

func (err ConflictError) Error() string { return err.Message }

// AuthError: the caller could not be authenticated.
type AuthError struct{ Message string }

func NewAuthError(msg string) error { return &AuthError{Message: msg} }

func (err AuthError) Error() string { return err.Message }

// ForbiddenError: the caller is authenticated but not allowed.
type ForbiddenError struct{ Message string }

func NewForbiddenError(msg string) error { return &ForbiddenError{Message: msg} }

func (err ForbiddenError) Error() string { return err.Message }

// LimitError: the caller exhausted a rate limit.
type LimitError struct{ Message string }

func NewLimitError(msg string) error { return &LimitError{Message: msg} }

func (err LimitError) Error() string { return err.Message }

type shutdown struct {
	message string
}

func NewShutdownError(msg string) error {
	return &shutdown{message: msg}
}

func (s shutdown) Error() string {
	return s.message
}

func IsShutdown(err error) bool {
	_, ok := errors.Cause(err).(*shutdown)
	return ok
}

// IsNotFound reports whether the cause of err is a *NotFoundError.
func IsNotFound(err error) bool {
	_, ok := errors.Cause(err).(*NotFoundError)
	return ok
}

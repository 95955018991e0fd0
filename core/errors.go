package core

import "github.com/pkg/errors"

// FieldError is used to indicate an error with a specific struct field.
type FieldError struct {
	Field string
	Error string
}

// ValidationError rejects a request before any state is read or written.
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

func (err ValidationError) Unwrap() error { return err.Err }

// NotFoundError is returned when the targeted record does not exist. Callers must never create it implicitly.
type NotFoundError struct {
	Err error
}

func NewNotFoundError(err error) error {
	return &NotFoundError{err}
}

func (err NotFoundError) Error() string { return err.Err.Error() }
func (err NotFoundError) Unwrap() error { return err.Err }

// ConflictError is returned when a write clashes with existing state:
// duplicate catalog entries, invalid state transitions, closed roll calls.
type ConflictError struct {
	Err error
}

func NewConflictError(err error) error {
	return &ConflictError{err}
}

func (err ConflictError) Error() string { return err.Err.Error() }
func (err ConflictError) Unwrap() error { return err.Err }

// UpstreamError marks a failure to read the catalog or the settings.
// It must never be turned into a "no match".
type UpstreamError struct {
	Op  string
	Err error
}

func NewUpstreamError(op string, err error) error {
	return &UpstreamError{Op: op, Err: err}
}

func (err UpstreamError) Error() string {
	return "upstream failure: " + err.Op + ": " + err.Err.Error()
}
func (err UpstreamError) Unwrap() error { return err.Err }

func IsValidation(err error) bool {
	var target *ValidationError
	return errors.As(err, &target)
}

func IsNotFound(err error) bool {
	var target *NotFoundError
	return errors.As(err, &target)
}

func IsConflict(err error) bool {
	var target *ConflictError
	return errors.As(err, &target)
}

func IsUpstream(err error) bool {
	var target *UpstreamError
	return errors.As(err, &target)
}

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

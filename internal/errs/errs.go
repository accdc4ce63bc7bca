// Package errs provides coded errors that separate expected control flow
// (validation, missing resources, ownership) from opaque internal failures.
package errs

import (
	"errors"
	"fmt"
)

// Code is an application error code.
type Code string

const (
	InvalidArgument  Code = "invalid_argument"
	NotFound         Code = "not_found"
	PermissionDenied Code = "permission_denied"
	Internal         Code = "internal"
)

// Error is a coded application error.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return string(e.Code)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// New creates a coded error with message.
func New(code Code, message string) error {
	return &Error{
		Code:    code,
		Message: message,
	}
}

// Wrap creates a coded error with message and cause.
func Wrap(code Code, message string, cause error) error {
	return &Error{
		Code:    code,
		Message: message,
		Err:     cause,
	}
}

// Invalid is shorthand for an InvalidArgument error.
func Invalid(message string) error {
	return New(InvalidArgument, message)
}

// Missing is shorthand for a NotFound error.
func Missing(message string) error {
	return New(NotFound, message)
}

// Forbidden is shorthand for a PermissionDenied error.
func Forbidden(message string) error {
	return New(PermissionDenied, message)
}

// Internalf wraps cause as an opaque internal failure. The message is for
// operators; MessageOf still reports "internal error" to callers.
func Internalf(op string, cause error) error {
	return &Error{Code: Internal, Err: fmt.Errorf("%s: %w", op, cause)}
}

// CodeOf returns the error code, defaulting to internal.
func CodeOf(err error) Code {
	if err == nil {
		return Internal
	}
	var coded *Error
	if errors.As(err, &coded) {
		if coded.Code == "" {
			return Internal
		}
		return coded.Code
	}
	return Internal
}

// Is reports whether err carries code.
func Is(err error, code Code) bool {
	return err != nil && CodeOf(err) == code
}

// MessageOf returns a user-facing error message.
// Internal failures and untyped errors always read "internal error" so
// storage paths and driver messages never reach callers.
func MessageOf(err error) string {
	if err == nil {
		return string(Internal)
	}
	var coded *Error
	if errors.As(err, &coded) && coded.Code != Internal && coded.Message != "" {
		return coded.Message
	}
	return "internal error"
}

// ExitCode maps an error to a process exit code: 1 for caller mistakes,
// 2 for system failures.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	switch CodeOf(err) {
	case InvalidArgument, NotFound, PermissionDenied:
		return 1
	default:
		return 2
	}
}

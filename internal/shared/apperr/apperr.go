package apperr

import (
	"errors"
	"fmt"
)

// Code is the error taxonomy exposed to clients
type Code string

const (
	CodeSoldOut      Code = "sold_out"
	CodeOverLimit    Code = "over_limit"
	CodeSaleClosed   Code = "sale_closed"
	CodeValidation   Code = "validation_error"
	CodeUnauthorized Code = "unauthorized"
	CodeForbidden    Code = "forbidden"
	CodeNotFound     Code = "not_found"
	CodeConflict     Code = "conflict"
	CodeProcessor    Code = "processor_error"
	CodeInternal     Code = "internal_error"
)

// Error carries a taxonomy code alongside a human-readable message
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches another *Error with the same code and message, so sentinels
// survive wrapping with a cause.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == e.Code && (t.Message == "" || t.Message == e.Message)
}

// New creates a sentinel-style error
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap attaches a cause to a taxonomy error
func Wrap(code Code, message string, err error) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

// WithCause returns a copy of the sentinel carrying err as its cause
func (e *Error) WithCause(err error) *Error {
	return &Error{Code: e.Code, Message: e.Message, Err: err}
}

// Internal wraps a storage or unexpected failure
func Internal(message string, err error) *Error {
	return Wrap(CodeInternal, message, err)
}

// CodeOf extracts the taxonomy code, defaulting to internal_error
func CodeOf(err error) Code {
	if err == nil {
		return ""
	}
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeInternal
}

// MessageOf returns the client-facing message of err
func MessageOf(err error) string {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return "internal server error"
}

// Common cross-package errors
var (
	ErrForbidden    = New(CodeForbidden, "you do not own this resource")
	ErrUnauthorized = New(CodeUnauthorized, "authentication required")
)

// Package errors provides error handling for Beaver.
//
// This package re-exports github.com/cockroachdb/errors, providing:
//   - Stack traces for debugging
//   - Error wrapping and context
//   - PII-safe error formatting
//   - Error marks, so a user-facing message can carry a category
//
// On top of that it defines the Beaver error taxonomy. Every failure a caller
// can act on falls into one of four categories:
//
//	ErrValidation  bad user input (e.g. an ADR without an owner)
//	ErrNotFound    a lookup missed (e.g. an unknown legacy enum value)
//	ErrConflict    a uniqueness or reference rule was violated
//	ErrTransport   the network or the GraphQL endpoint failed
//
// Usage:
//
//	// User-facing validation failure; Error() returns the message verbatim
//	return errors.NewValidationError("ADR must have at least one owner")
//
//	// Wrap with context
//	if err := doSomething(); err != nil {
//	    return errors.Wrap(err, "failed to do something")
//	}
//
//	// Check category
//	if errors.Is(err, errors.ErrConflict) {
//	    // show inline message
//	}
//
// For full documentation see: https://pkg.go.dev/github.com/cockroachdb/errors
package errors

import (
	crdb "github.com/cockroachdb/errors"
)

// Core error creation and wrapping
var (
	New          = crdb.New
	Newf         = crdb.Newf
	Wrap         = crdb.Wrap
	Wrapf        = crdb.Wrapf
	WithStack    = crdb.WithStack
	WithMessage  = crdb.WithMessage
	WithMessagef = crdb.WithMessagef
	Mark         = crdb.Mark
)

// User-facing messages and details
var (
	WithHint           = crdb.WithHint
	WithHintf          = crdb.WithHintf
	WithDetail         = crdb.WithDetail
	WithDetailf        = crdb.WithDetailf
	WithSecondaryError = crdb.WithSecondaryError
)

// Error inspection
var (
	Is             = crdb.Is
	IsAny          = crdb.IsAny
	As             = crdb.As
	Unwrap         = crdb.Unwrap
	UnwrapAll      = crdb.UnwrapAll
	GetAllHints    = crdb.GetAllHints
	FlattenHints   = crdb.FlattenHints
	FlattenDetails = crdb.FlattenDetails
)

// GetStack returns the reportable stack trace attached to err, if any.
var GetStack = crdb.GetReportableStackTrace

// Beaver error taxonomy.
// Use these with errors.Is() for category checks; construct instances with
// the New*Error helpers so Error() stays the plain user-facing message.
var (
	// ErrValidation indicates user input violated a domain rule
	ErrValidation = New("validation error")

	// ErrNotFound indicates the requested resource does not exist
	ErrNotFound = New("not found")

	// ErrConflict indicates a resource conflict (e.g., duplicate instance)
	ErrConflict = New("resource conflict")

	// ErrTransport indicates the network or GraphQL endpoint failed
	ErrTransport = New("transport error")

	// ErrInvalidRequest indicates the request was malformed
	ErrInvalidRequest = New("invalid request")

	// ErrServiceUnavailable indicates a required service is not available
	ErrServiceUnavailable = New("service unavailable")

	// ErrTimeout indicates an operation timed out
	ErrTimeout = New("operation timed out")
)

// NewValidationError creates a validation error whose message is exactly the formatted text.
func NewValidationError(format string, args ...interface{}) error {
	return Mark(Newf(format, args...), ErrValidation)
}

// NewNotFoundError creates a not-found error whose message is exactly the formatted text.
func NewNotFoundError(format string, args ...interface{}) error {
	return Mark(Newf(format, args...), ErrNotFound)
}

// NewConflictError creates a conflict error whose message is exactly the formatted text.
func NewConflictError(format string, args ...interface{}) error {
	return Mark(Newf(format, args...), ErrConflict)
}

// NewInvalidRequestError creates an invalid-request error with a formatted message
func NewInvalidRequestError(format string, args ...interface{}) error {
	return Mark(Newf(format, args...), ErrInvalidRequest)
}

// NewTransportError marks cause as a transport failure, prefixed with context.
func NewTransportError(cause error, context string) error {
	return Mark(Wrap(cause, context), ErrTransport)
}

// IsValidationError checks if an error is or wraps ErrValidation
func IsValidationError(err error) bool {
	return err != nil && Is(err, ErrValidation)
}

// IsNotFoundError checks if an error is or wraps ErrNotFound
func IsNotFoundError(err error) bool {
	return err != nil && Is(err, ErrNotFound)
}

// IsConflictError checks if an error is or wraps ErrConflict
func IsConflictError(err error) bool {
	return err != nil && Is(err, ErrConflict)
}

// IsTransportError checks if an error is or wraps ErrTransport
func IsTransportError(err error) bool {
	return err != nil && Is(err, ErrTransport)
}

// Error codes reported in GraphQL error extensions.
const (
	CodeValidation   = "VALIDATION_ERROR"
	CodeNotFound     = "NOT_FOUND"
	CodeConflict     = "CONFLICT"
	CodeTransport    = "TRANSPORT_ERROR"
	CodeInvalidInput = "INVALID_INPUT"
	CodeInternal     = "INTERNAL_ERROR"
)

// Code maps an error to its GraphQL extension code.
func Code(err error) string {
	switch {
	case err == nil:
		return ""
	case Is(err, ErrValidation):
		return CodeValidation
	case Is(err, ErrNotFound):
		return CodeNotFound
	case Is(err, ErrConflict):
		return CodeConflict
	case Is(err, ErrTransport):
		return CodeTransport
	case Is(err, ErrInvalidRequest):
		return CodeInvalidInput
	default:
		return CodeInternal
	}
}

// FromCode returns the taxonomy sentinel for a GraphQL extension code, or nil.
func FromCode(code string) error {
	switch code {
	case CodeValidation:
		return ErrValidation
	case CodeNotFound:
		return ErrNotFound
	case CodeConflict:
		return ErrConflict
	case CodeTransport:
		return ErrTransport
	case CodeInvalidInput:
		return ErrInvalidRequest
	default:
		return nil
	}
}

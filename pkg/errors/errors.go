// Package errors provides structured error types for pgfkit.
//
// This package defines error codes and types that enable:
//   - Consistent error handling across the library and CLI
//   - Machine-readable error codes for programmatic handling
//   - User-friendly messages naming the offending value
//
// # Error Codes
//
// Error codes follow a hierarchical naming convention:
//   - INVALID_*: Input validation failures (dimensions, colors, config)
//   - UNKNOWN_*: Lookups against a closed set (trackers, tracking kinds)
//   - POSTPROCESS: Failures while rewriting a rendered figure
//
// # Usage
//
//	err := errors.New(errors.ErrCodeInvalidDimension, "could not parse %q", spec)
//	if errors.Is(err, errors.ErrCodeInvalidDimension) {
//	    // Handle malformed dimension
//	}
//
//	// Wrap existing errors
//	err := errors.Wrap(errors.ErrCodePostprocess, origErr, "rewriting %s", path)
package errors

import (
	"errors"
	"fmt"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for different error categories.
const (
	// Input validation errors
	ErrCodeInvalidDimension   Code = "INVALID_DIMENSION"
	ErrCodeInvalidColor       Code = "INVALID_COLOR"
	ErrCodeInvalidConfig      Code = "INVALID_CONFIG"
	ErrCodeInvalidColumns     Code = "INVALID_COLUMNS"
	ErrCodeInvalidEnvironment Code = "INVALID_ENVIRONMENT"

	// Lookups against a closed set
	ErrCodeUnknownKey     Code = "UNKNOWN_KEY"
	ErrCodeUnknownTracker Code = "UNKNOWN_TRACKER"
	ErrCodeUnknownKind    Code = "UNKNOWN_KIND"

	// Pipeline errors
	ErrCodePostprocess Code = "POSTPROCESS"
	ErrCodeRender      Code = "RENDER"
	ErrCodeInternal    Code = "INTERNAL_ERROR"
)

// Error is a structured error with a code and optional cause.
type Error struct {
	Code    Code   // Machine-readable error code
	Message string // Human-readable message
	Cause   error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates a new Error with the given code and formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap creates a new Error wrapping an existing error.
func Wrap(code Code, cause error, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	}
}

// Is reports whether err has the given error code.
// It unwraps the error chain looking for an *Error with a matching code.
func Is(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// GetCode extracts the error code from an error, if available.
// Returns empty string if the error is not an *Error.
func GetCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// UserMessage returns a user-friendly message for the error.
// For *Error types, returns the message without the code prefix.
// For other errors, returns the error string as-is.
func UserMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}

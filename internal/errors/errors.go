// Package errors provides the coded domain errors surfaced by the tarot service.
//
// Services return typed errors; the HTTP layer maps them to a status and a
// single user-facing message:
//
//	if errors.Is(err, errors.ErrRequestFailure) {
//	    // "failed to consult the cosmos" etc.
//	}
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Re-export standard library functions for convenience.
var (
	Is = errors.Is
	As = errors.As
)

// Code represents a machine-readable error code.
type Code string

const (
	CodeValidation          Code = "VALIDATION"
	CodeNotFound            Code = "NOT_FOUND"
	CodeConflict            Code = "CONFLICT"
	CodeStorage             Code = "STORAGE"
	CodeRequestFailure      Code = "REQUEST_FAILURE"
	CodeInterpretationParse Code = "INTERPRETATION_PARSE"
	CodeInternal            Code = "INTERNAL"
)

// HTTPStatus returns the HTTP status code for an error code.
func (c Code) HTTPStatus() int {
	switch c {
	case CodeValidation:
		return http.StatusBadRequest
	case CodeNotFound:
		return http.StatusNotFound
	case CodeConflict:
		return http.StatusConflict
	case CodeRequestFailure, CodeInterpretationParse:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// Error is a domain error with a code, a user-facing message and an optional cause.
type Error struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.cause
}

// Is matches any *Error with the same code. An interpretation parse error
// is a request failure too, so it also matches ErrRequestFailure.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	if e.Code == t.Code {
		return true
	}
	return e.Code == CodeInterpretationParse && t.Code == CodeRequestFailure
}

// HTTPStatus returns the HTTP status code for this error.
func (e *Error) HTTPStatus() int {
	return e.Code.HTTPStatus()
}

// WithCause returns a copy of e wrapping err.
func (e *Error) WithCause(err error) *Error {
	return &Error{Code: e.Code, Message: e.Message, Details: e.Details, cause: err}
}

// Sentinel errors for use with errors.Is().
var (
	ErrValidation          = &Error{Code: CodeValidation, Message: "validation error"}
	ErrNotFound            = &Error{Code: CodeNotFound, Message: "not found"}
	ErrConflict            = &Error{Code: CodeConflict, Message: "conflict"}
	ErrStorage             = &Error{Code: CodeStorage, Message: "storage error"}
	ErrRequestFailure      = &Error{Code: CodeRequestFailure, Message: "request failed"}
	ErrInterpretationParse = &Error{Code: CodeInterpretationParse, Message: "malformed interpretation"}
	ErrInternal            = &Error{Code: CodeInternal, Message: "internal error"}
)

// Validation creates a validation error.
func Validation(msg string) *Error {
	return &Error{Code: CodeValidation, Message: msg}
}

// ValidationWithDetails creates a validation error carrying per-field messages.
func ValidationWithDetails(msg string, details any) *Error {
	return &Error{Code: CodeValidation, Message: msg, Details: details}
}

// NotFoundf creates a not found error with a formatted message.
func NotFoundf(format string, args ...any) *Error {
	return &Error{Code: CodeNotFound, Message: fmt.Sprintf(format, args...)}
}

// Conflict creates a conflict error.
func Conflict(msg string) *Error {
	return &Error{Code: CodeConflict, Message: msg}
}

// Storage wraps a persistence failure.
func Storage(msg string, err error) *Error {
	return &Error{Code: CodeStorage, Message: msg, cause: err}
}

// RequestFailure wraps a failed call to an external generative service.
func RequestFailure(msg string, err error) *Error {
	return &Error{Code: CodeRequestFailure, Message: msg, cause: err}
}

// InterpretationParse reports a structurally invalid interpretation response.
func InterpretationParse(msg string, err error) *Error {
	return &Error{Code: CodeInterpretationParse, Message: msg, cause: err}
}

// Internal wraps an unexpected failure.
func Internal(msg string, err error) *Error {
	return &Error{Code: CodeInternal, Message: msg, cause: err}
}

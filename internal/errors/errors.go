// Package errors provides coded domain errors for the PaperBase engine.
//
// Services return typed errors; handlers match them with errors.Is or switch
// on the Code to pick a response status.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Re-export standard library helpers so callers need a single import.
var (
	Is     = errors.Is
	As     = errors.As
	Unwrap = errors.Unwrap
	Join   = errors.Join
)

// Code is a machine-readable error category.
type Code string

// Error codes used throughout the engine.
const (
	CodeNotFound        Code = "NOT_FOUND"
	CodeDuplicate       Code = "DUPLICATE"
	CodeValidation      Code = "VALIDATION"
	CodeUnknownField    Code = "UNKNOWN_FIELD"
	CodeFileOperation   Code = "FILE_OPERATION"
	CodeCategorizer     Code = "CATEGORIZER_INTEGRITY"
	CodeConflict        Code = "CONFLICT"
	CodeInternal        Code = "INTERNAL"
	CodeMigrationSource Code = "MIGRATION_SOURCE"
)

// HTTPStatus maps an error code to a response status.
func (c Code) HTTPStatus() int {
	switch c {
	case CodeNotFound:
		return http.StatusNotFound
	case CodeDuplicate, CodeConflict:
		return http.StatusConflict
	case CodeValidation, CodeUnknownField:
		return http.StatusBadRequest
	case CodeFileOperation, CodeCategorizer, CodeInternal, CodeMigrationSource:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// Error is a domain error carrying a code and optional cause.
type Error struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error { return e.cause }

// Is matches any *Error with the same Code.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Code == t.Code
	}
	return false
}

// HTTPStatus returns the response status for this error.
func (e *Error) HTTPStatus() int { return e.Code.HTTPStatus() }

// WithCause wraps an underlying error.
func (e *Error) WithCause(err error) *Error {
	return &Error{Code: e.Code, Message: e.Message, cause: err}
}

// Sentinels for errors.Is checks.
var (
	ErrNotFound    = &Error{Code: CodeNotFound, Message: "not found"}
	ErrDuplicate   = &Error{Code: CodeDuplicate, Message: "duplicate entity"}
	ErrValidation  = &Error{Code: CodeValidation, Message: "validation failed"}
	ErrCategorizer = &Error{Code: CodeCategorizer, Message: "categorizer integrity violation"}
	ErrInternal    = &Error{Code: CodeInternal, Message: "internal error"}
)

// NotFound creates a not-found error.
func NotFound(msg string) *Error { return &Error{Code: CodeNotFound, Message: msg} }

// NotFoundf creates a not-found error with a formatted message.
func NotFoundf(format string, args ...any) *Error {
	return &Error{Code: CodeNotFound, Message: fmt.Sprintf(format, args...)}
}

// Duplicate creates a duplicate-entity error.
func Duplicate(msg string) *Error { return &Error{Code: CodeDuplicate, Message: msg} }

// Validation creates a validation error.
func Validation(msg string) *Error { return &Error{Code: CodeValidation, Message: msg} }

// Validationf creates a validation error with a formatted message.
func Validationf(format string, args ...any) *Error {
	return &Error{Code: CodeValidation, Message: fmt.Sprintf(format, args...)}
}

// UnknownField creates an error for a draft field that does not exist.
func UnknownField(key string) *Error {
	return &Error{Code: CodeUnknownField, Message: fmt.Sprintf("unknown draft field %q", key)}
}

// Categorizer creates a categorizer-integrity error. These abort the
// enclosing store transaction.
func Categorizer(msg string) *Error { return &Error{Code: CodeCategorizer, Message: msg} }

// Conflict creates a conflict error.
func Conflict(msg string) *Error { return &Error{Code: CodeConflict, Message: msg} }

// Internal creates an internal error.
func Internal(msg string) *Error { return &Error{Code: CodeInternal, Message: msg} }

// Wrap wraps an error with a code and message.
func Wrap(err error, code Code, msg string) *Error {
	return &Error{Code: code, Message: msg, cause: err}
}

// Wrapf wraps an error with a code and formatted message.
func Wrapf(err error, code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), cause: err}
}

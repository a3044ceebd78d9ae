// Package apperr defines the error taxonomy shared across the application
// and its mapping to HTTP responses.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

type Code string

const (
	CodeValidation          Code = "validation"
	CodeMalformedSubmission Code = "malformed_submission"
	CodeStorage             Code = "storage"
	CodePersistence         Code = "persistence"
	CodeCorruptRecord       Code = "corrupt_record"
	CodeInvalidCredentials  Code = "invalid_credentials"
	CodeForbidden           Code = "forbidden"
)

// Error carries a stable code alongside a message safe to return to clients.
// Wrapped causes stay server-side.
type Error struct {
	Code    Code
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return e.Message + ": " + e.cause.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.cause }

func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

func Wrap(code Code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, cause: cause}
}

func Validation(format string, args ...any) *Error {
	return &Error{Code: CodeValidation, Message: fmt.Sprintf(format, args...)}
}

func MalformedSubmission(format string, args ...any) *Error {
	return &Error{Code: CodeMalformedSubmission, Message: fmt.Sprintf(format, args...)}
}

func Storage(cause error) *Error {
	return &Error{Code: CodeStorage, Message: "storage failure", cause: cause}
}

func Persistence(cause error) *Error {
	return &Error{Code: CodePersistence, Message: "persistence failure", cause: cause}
}

func CorruptRecord(id string, cause error) *Error {
	return &Error{Code: CodeCorruptRecord, Message: "corrupt record " + id, cause: cause}
}

func InvalidCredentials() *Error {
	return &Error{Code: CodeInvalidCredentials, Message: "invalid credentials"}
}

func Forbidden() *Error {
	return &Error{Code: CodeForbidden, Message: "insufficient permissions"}
}

// CodeOf extracts the taxonomy code from err, or empty if err is not ours.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// HTTPStatus maps an error to the response status for the request boundary.
// Unknown errors are treated as internal faults so storage details never
// leak into responses.
func HTTPStatus(err error) int {
	switch CodeOf(err) {
	case CodeValidation, CodeMalformedSubmission:
		return http.StatusBadRequest
	case CodeInvalidCredentials:
		return http.StatusUnauthorized
	case CodeForbidden:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

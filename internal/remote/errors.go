package remote

import (
	"errors"
	"fmt"
	"net/http"
)

// Error codes used by both store implementations.
const (
	CodeObjectNotFound  = "object_not_found"
	CodeValidationError = "validation_error"
	CodeUnauthorized    = "unauthorized"
)

// Error is a failure reported by the store. The engine surfaces it without
// interpretation.
type Error struct {
	// Status is the transport status code.
	Status int

	// Code is the store's error code, e.g. "object_not_found".
	Code string

	// Message is the store's human-readable message.
	Message string
}

// Error implements the error interface.
func (e *Error) Error() string {
	message := e.Message
	if message == "" {
		message = "Unknown Notion API Error"
	}
	code := e.Code
	if code == "" {
		code = "Unknown Code"
	}
	return fmt.Sprintf("Notion API Error (%d): %s (%s)", e.Status, message, code)
}

// NotFound builds the error returned for a missing table or record.
func NotFound(format string, args ...any) *Error {
	return &Error{
		Status:  http.StatusNotFound,
		Code:    CodeObjectNotFound,
		Message: fmt.Sprintf(format, args...),
	}
}

// Invalid builds the error returned for a rejected request body.
func Invalid(format string, args ...any) *Error {
	return &Error{
		Status:  http.StatusBadRequest,
		Code:    CodeValidationError,
		Message: fmt.Sprintf(format, args...),
	}
}

// AsError extracts a *Error from err's chain.
func AsError(err error) (*Error, bool) {
	var re *Error
	if errors.As(err, &re) {
		return re, true
	}
	return nil, false
}

// IsNotFound reports whether err is a store-side not-found failure.
func IsNotFound(err error) bool {
	re, ok := AsError(err)
	return ok && (re.Status == http.StatusNotFound || re.Code == CodeObjectNotFound)
}

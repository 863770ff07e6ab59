// Package apperror classifies service errors so handlers can pick an HTTP status
// without string matching.
package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// Error kinds. Match with errors.Is.
var (
	ErrValidation   = errors.New("validation error")
	ErrNotFound     = errors.New("not found")
	ErrForbidden    = errors.New("forbidden")
	ErrConflict     = errors.New("conflict")
	ErrUnauthorized = errors.New("unauthorized")
)

// Error carries a user-facing message and the kind it belongs to.
type Error struct {
	kind error
	msg  string
}

func (e *Error) Error() string { return e.msg }

func (e *Error) Unwrap() error { return e.kind }

func newError(kind error, format string, args ...interface{}) error {
	return &Error{kind: kind, msg: fmt.Sprintf(format, args...)}
}

// Validation reports bad input that the caller can fix.
func Validation(format string, args ...interface{}) error {
	return newError(ErrValidation, format, args...)
}

// NotFound reports a lookup miss.
func NotFound(format string, args ...interface{}) error {
	return newError(ErrNotFound, format, args...)
}

// Forbidden reports an action the caller's role may not perform.
func Forbidden(format string, args ...interface{}) error {
	return newError(ErrForbidden, format, args...)
}

// Conflict reports a uniqueness or state clash.
func Conflict(format string, args ...interface{}) error {
	return newError(ErrConflict, format, args...)
}

// Unauthorized reports missing or bad credentials.
func Unauthorized(format string, args ...interface{}) error {
	return newError(ErrUnauthorized, format, args...)
}

// HTTPStatus maps an error to the status code a handler should answer with.
func HTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrConflict):
		return http.StatusConflict
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

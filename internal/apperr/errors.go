// Package apperr defines the error taxonomy shared by handlers, middleware and
// services. Callers wrap one of the sentinels with fmt.Errorf("%w: ...") and
// the router's error handler maps it to an HTTP status.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrValidation marks malformed or missing request fields.
	ErrValidation = errors.New("validation failed")
	// ErrUnauthorized covers bad credentials and any token or bearer problem.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrForbidden is returned when a role or ownership check fails.
	ErrForbidden = errors.New("forbidden")
	// ErrNotFound is returned when a resource id does not exist.
	ErrNotFound = errors.New("not found")
	// ErrConflict signals a unique value that is already taken.
	ErrConflict = errors.New("conflict")
)

// Validation wraps a validation failure with a client facing message.
func Validation(msg string) error { return fmt.Errorf("%w: %s", ErrValidation, msg) }

// Unauthorized wraps ErrUnauthorized with a client facing message.
func Unauthorized(msg string) error { return fmt.Errorf("%w: %s", ErrUnauthorized, msg) }

// Forbidden wraps ErrForbidden with a client facing message.
func Forbidden(msg string) error { return fmt.Errorf("%w: %s", ErrForbidden, msg) }

// NotFound wraps ErrNotFound with a client facing message.
func NotFound(msg string) error { return fmt.Errorf("%w: %s", ErrNotFound, msg) }

// Conflict wraps ErrConflict with a client facing message.
func Conflict(msg string) error { return fmt.Errorf("%w: %s", ErrConflict, msg) }

// Status returns the HTTP status for err. Errors outside the taxonomy are 500.
func Status(err error) int {
	switch {
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

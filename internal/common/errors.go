package common

import (
	"errors"
	"fmt"
	"net/http"
)

// Business logic errors
var (
	// General errors
	ErrNotFound        = errors.New("resource not found")
	ErrForbidden       = errors.New("forbidden")
	ErrInvalidState    = errors.New("invalid state")
	ErrConflict        = errors.New("conflict")
	ErrInvalidArgument = errors.New("invalid argument")

	// Auth errors
	ErrUnauthorized = errors.New("unauthorized")
	ErrUserInactive = fmt.Errorf("%w: user inactive", ErrUnauthorized)

	// Listing errors
	ErrListingNotFound = fmt.Errorf("listing: %w", ErrNotFound)

	// Chat errors
	ErrRequestNotFound = fmt.Errorf("chat request: %w", ErrNotFound)
	ErrChannelNotFound = fmt.Errorf("channel: %w", ErrNotFound)
	ErrEmptyMessage    = fmt.Errorf("%w: message body is empty", ErrInvalidArgument)
	ErrMessageTooLong  = fmt.Errorf("%w: message body is too long", ErrInvalidArgument)
)

// StatusFromError maps a business error to an HTTP status
func StatusFromError(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrInvalidState), errors.Is(err, ErrConflict):
		return http.StatusConflict
	case errors.Is(err, ErrInvalidArgument):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// CodeFromError returns the machine readable code for a business error.
// Used by the websocket error event as well as the HTTP envelope.
func CodeFromError(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrUnauthorized):
		return "UNAUTHORIZED"
	case errors.Is(err, ErrNotFound):
		return "NOT_FOUND"
	case errors.Is(err, ErrForbidden):
		return "FORBIDDEN"
	case errors.Is(err, ErrInvalidState):
		return "INVALID_STATE"
	case errors.Is(err, ErrConflict):
		return "CONFLICT"
	case errors.Is(err, ErrInvalidArgument):
		return "INVALID_ARGUMENT"
	default:
		return "INTERNAL_SERVER_ERROR"
	}
}

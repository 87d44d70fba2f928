// Package apperrors defines the error taxonomy surfaced by the review console:
// transport failures, collaborator service errors and caller-side validation.
package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

// StatusTransport is the status reported for errors that never reached the service.
const StatusTransport = 0

// ErrSessionExpired is returned when the bearer token is expired or the service
// answers 401.
var ErrSessionExpired = &ServiceError{
	StatusCode: http.StatusUnauthorized,
	Message:    "session expired",
	Code:       "session_expired",
}

// TransportError wraps a network or connection failure.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport error during %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// Status always reports StatusTransport.
func (e *TransportError) Status() int { return StatusTransport }

// ServiceError is a non-2xx response from the review service.
type ServiceError struct {
	StatusCode int
	Message    string
	Code       string
	Body       string
}

func (e *ServiceError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("service error (%d): %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("service error: %d %s", e.StatusCode, http.StatusText(e.StatusCode))
}

// Status returns the HTTP status code.
func (e *ServiceError) Status() int { return e.StatusCode }

// Is matches another ServiceError by status and code, so that errors.Is(err,
// ErrSessionExpired) holds for any 401 carrying the session_expired code.
func (e *ServiceError) Is(target error) bool {
	t, ok := target.(*ServiceError)
	if !ok {
		return false
	}
	return e.StatusCode == t.StatusCode && e.Code == t.Code
}

// ValidationError is raised before any network call, e.g. a missing id.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Message)
}

// Status always reports StatusTransport; validation never reached the service.
func (e *ValidationError) Status() int { return StatusTransport }

// NewValidation builds a ValidationError.
func NewValidation(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// StatusOf returns the HTTP status carried by err, or StatusTransport.
func StatusOf(err error) int {
	var se *ServiceError
	if errors.As(err, &se) {
		return se.StatusCode
	}
	return StatusTransport
}

// IsTransport reports whether err is a TransportError.
func IsTransport(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsNotFound reports whether err is a 404 ServiceError.
func IsNotFound(err error) bool {
	return StatusOf(err) == http.StatusNotFound
}

// IsConflict reports whether err is a 409 ServiceError.
func IsConflict(err error) bool {
	return StatusOf(err) == http.StatusConflict
}

// IsUnauthorized reports whether err is a 401 ServiceError.
func IsUnauthorized(err error) bool {
	return StatusOf(err) == http.StatusUnauthorized
}

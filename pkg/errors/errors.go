package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Error represents a typed domain error with HTTP awareness.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"status"`
	Err     error  `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is matches errors sharing the same code so cloned errors compare equal
// to their predefined source.
func (e *Error) Is(target error) bool {
	var other *Error
	if !errors.As(target, &other) || e == nil || other == nil {
		return false
	}
	return e.Code == other.Code
}

// New creates a new Error instance.
func New(code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message}
}

// Wrap attaches context to an existing error.
func Wrap(err error, code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message, Err: err}
}

// Predefined errors for common scenarios.
var (
	ErrNotFound     = New("NOT_FOUND", http.StatusNotFound, "resource not found")
	ErrForbidden    = New("FORBIDDEN", http.StatusForbidden, "forbidden")
	ErrUnauthorized = New("UNAUTHORIZED", http.StatusUnauthorized, "unauthorized")
	ErrConflict     = New("CONFLICT", http.StatusConflict, "conflict")
	ErrValidation   = New("VALIDATION_ERROR", http.StatusBadRequest, "validation failed")
	ErrInternal     = New("INTERNAL_ERROR", http.StatusInternalServerError, "internal server error")

	// Score source failures.
	ErrNetworkFailure    = New("NETWORK_FAILURE", http.StatusBadGateway, "score source unreachable")
	ErrMalformedResponse = New("MALFORMED_RESPONSE", http.StatusBadGateway, "score source returned a malformed page")
	ErrPageLimitExceeded = New("PAGE_LIMIT_EXCEEDED", http.StatusBadGateway, "score source exceeded the page limit")
	ErrUpstream          = New("UPSTREAM_ERROR", http.StatusBadGateway, "score source rejected the request")
	ErrStaleSelection    = New("STALE_SELECTION", http.StatusConflict, "selection changed before scores were loaded")
	ErrExportUnavailable = New("EXPORT_UNAVAILABLE", http.StatusServiceUnavailable, "exports are disabled")

	// ErrCacheMiss is returned by cache lookups that found nothing.
	ErrCacheMiss = errors.New("cache miss")
)

// FromError normalises any error into an *Error.
func FromError(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Wrap(err, ErrInternal.Code, ErrInternal.Status, ErrInternal.Message)
}

// Clone returns a copy of the error allowing for message overrides.
func Clone(err *Error, message string) *Error {
	if err == nil {
		return nil
	}
	clone := *err
	if message != "" {
		clone.Message = message
	}
	return &clone
}

// Upstream maps a non-success status from the score source into an error
// carrying the same HTTP status when it is a client error.
func Upstream(status int, message string) *Error {
	if message == "" {
		message = ErrUpstream.Message
	}
	if status >= 400 && status < 500 {
		return New(ErrUpstream.Code, status, message)
	}
	return New(ErrUpstream.Code, ErrUpstream.Status, message)
}

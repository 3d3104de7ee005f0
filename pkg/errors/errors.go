package errors

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
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

// Is matches typed errors by code so clones and wraps compare equal to the predefined values.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) || e == nil || t == nil {
		return false
	}
	return e.Code == t.Code
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
	ErrInvalidCredentials = New("INVALID_CREDENTIALS", http.StatusUnauthorized, "invalid email or password")
	ErrInactiveAccount    = New("ACCOUNT_INACTIVE", http.StatusForbidden, "account is inactive")
	ErrNotFound           = New("NOT_FOUND", http.StatusNotFound, "resource not found")
	ErrForbidden          = New("FORBIDDEN", http.StatusForbidden, "forbidden")
	ErrUnauthorized       = New("UNAUTHORIZED", http.StatusUnauthorized, "unauthorized")
	ErrConflict           = New("CONFLICT", http.StatusConflict, "conflict")
	ErrValidation         = New("VALIDATION_ERROR", http.StatusBadRequest, "validation failed")
	ErrInternal           = New("INTERNAL_ERROR", http.StatusInternalServerError, "internal server error")
	ErrCacheMiss          = New("CACHE_MISS", http.StatusNotFound, "cache miss")
)

// Attendance workflow errors. Each failure path has its own code so clients can
// tell an expired code apart from an already recorded student.
var (
	ErrMalformedPayload = New("MALFORMED_PAYLOAD", http.StatusBadRequest, "qr payload is malformed")
	ErrStalePayload     = New("STALE_PAYLOAD", http.StatusUnprocessableEntity, "qr code has expired")
	ErrFuturePayload    = New("FUTURE_PAYLOAD", http.StatusUnprocessableEntity, "qr code is issued in the future")
	ErrDuplicateSession = New("DUPLICATE_SESSION", http.StatusConflict, "a session already exists for this course, week and date")
	ErrDuplicateScan    = New("DUPLICATE_SCAN", http.StatusConflict, "student already recorded for this session")
	ErrDuplicateCourse  = New("DUPLICATE_COURSE", http.StatusConflict, "course code already in use")
	ErrNotOwner         = New("NOT_OWNER", http.StatusForbidden, "caller does not own this resource")
	ErrSessionNotActive = New("SESSION_NOT_ACTIVE", http.StatusConflict, "session is not active")
	ErrUnknownStudent   = New("UNKNOWN_STUDENT", http.StatusNotFound, "student not found")
	ErrStoreUnavailable = New("STORE_UNAVAILABLE", http.StatusServiceUnavailable, "storage temporarily unavailable")
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
	if IsStoreUnavailable(err) {
		return Wrap(err, ErrStoreUnavailable.Code, ErrStoreUnavailable.Status, ErrStoreUnavailable.Message)
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

// IsStoreUnavailable reports whether err stems from a timed out or unreachable store.
func IsStoreUnavailable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) || errors.Is(err, driver.ErrBadConn) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

// FromStore wraps a repository failure, classifying timeouts and connection
// failures as ErrStoreUnavailable and everything else as ErrInternal.
func FromStore(err error, message string) *Error {
	if IsStoreUnavailable(err) {
		return Wrap(err, ErrStoreUnavailable.Code, ErrStoreUnavailable.Status, ErrStoreUnavailable.Message)
	}
	return Wrap(err, ErrInternal.Code, ErrInternal.Status, message)
}

// Package apperr defines the error taxonomy surfaced to API clients.
package apperr

import (
	"errors"
	"net/http"
)

// Kind classifies an API error.
type Kind string

const (
	KindValidation  Kind = "validation"
	KindAuth        Kind = "auth"
	KindForbidden   Kind = "forbidden"
	KindNotFound    Kind = "not_found"
	KindConflict    Kind = "conflict"
	KindUpload      Kind = "upload"
	KindRateLimited Kind = "rate_limited"
	KindInternal    Kind = "internal"
)

// Error is an error with a client-safe message and an HTTP status.
type Error struct {
	Kind    Kind
	Status  int
	Message string
	Details []string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Wrap attaches an underlying cause. The cause is logged, never sent to clients.
func (e *Error) Wrap(err error) *Error {
	out := *e
	out.Err = err
	return &out
}

func newError(kind Kind, status int, message string, details []string) *Error {
	return &Error{Kind: kind, Status: status, Message: message, Details: details}
}

// Validation reports malformed or missing input.
func Validation(message string, details ...string) *Error {
	return newError(KindValidation, http.StatusBadRequest, message, details)
}

// Unauthorized reports a missing, invalid, or stale credential.
func Unauthorized(message string) *Error {
	return newError(KindAuth, http.StatusUnauthorized, message, nil)
}

// BadCredentials reports a credential check that failed on a request that was
// otherwise authenticated, such as a wrong current password.
func BadCredentials(message string) *Error {
	return newError(KindAuth, http.StatusBadRequest, message, nil)
}

// Forbidden reports an authenticated caller acting on a resource it does not own.
func Forbidden(message string) *Error {
	return newError(KindForbidden, http.StatusForbidden, message, nil)
}

// NotFound reports a missing resource.
func NotFound(message string) *Error {
	return newError(KindNotFound, http.StatusNotFound, message, nil)
}

// Conflict reports a uniqueness violation.
func Conflict(message string) *Error {
	return newError(KindConflict, http.StatusBadRequest, message, nil)
}

// Upload reports a failed media delegation.
func Upload(message string, err error) *Error {
	return newError(KindUpload, http.StatusBadRequest, message, nil).Wrap(err)
}

// RateLimited reports a throttled client.
func RateLimited(message string) *Error {
	return newError(KindRateLimited, http.StatusTooManyRequests, message, nil)
}

// Internal reports an unexpected failure.
func Internal(message string, err error) *Error {
	return newError(KindInternal, http.StatusInternalServerError, message, nil).Wrap(err)
}

// From converts any error into an *Error. Unknown errors become a generic
// internal error whose message reveals nothing about the cause.
func From(err error) *Error {
	if err == nil {
		return nil
	}
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return Internal("internal server error", err)
}

// IsKind reports whether err is an *Error of the given kind.
func IsKind(err error, kind Kind) bool {
	var appErr *Error
	return errors.As(err, &appErr) && appErr.Kind == kind
}

package sweep

import (
	"errors"
	"fmt"
)

// Kind classifies sweep errors so the orchestrator can decide between
// run-level aborts and per-item isolation.
type Kind string

const (
	// KindAuthFailed means the remote service rejected the credentials.
	KindAuthFailed Kind = "auth_failed"
	// KindAuthUnavailable means the required auth mechanism cannot be used
	// (missing client secret, unsupported grant, ...).
	KindAuthUnavailable Kind = "auth_unavailable"
	// KindProtocol covers transport or protocol failures (select, copy,
	// move, expunge).
	KindProtocol Kind = "protocol_error"
	// KindListFailed means enumerating pending ids failed.
	KindListFailed Kind = "list_failed"
	// KindFetchFailed means a message could not be retrieved or its payload
	// was malformed.
	KindFetchFailed Kind = "fetch_failed"
	// KindRateLimited means the bounded retry budget for 429 responses was
	// exhausted.
	KindRateLimited Kind = "rate_limited"
	// KindAPI is a non-success HTTP status from the remote API; Status
	// carries the code.
	KindAPI Kind = "api_error"
	// KindStorage covers local filesystem failures.
	KindStorage Kind = "storage_error"
	// KindNotFound means a location, team or channel does not exist.
	KindNotFound Kind = "not_found"
	// KindUnknown is everything else.
	KindUnknown Kind = "unknown"
)

// Error is the single error type crossing the client/orchestrator boundary.
type Error struct {
	Kind    Kind
	Status  int // HTTP status for KindAPI, 0 otherwise
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s (status %d): %s", e.Kind, e.Status, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// NewError builds an Error of the given kind.
func NewError(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// WrapError builds an Error of the given kind around a cause.
func WrapError(kind Kind, err error, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Err: err}
}

// APIError builds a KindAPI error carrying the HTTP status.
func APIError(status int, format string, args ...interface{}) *Error {
	return &Error{Kind: KindAPI, Status: status, Message: fmt.Sprintf(format, args...)}
}

// KindOf extracts the Kind from err, or KindUnknown if err is not a sweep
// error.
func KindOf(err error) Kind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return KindUnknown
}

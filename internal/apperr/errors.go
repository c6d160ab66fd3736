// Package apperr classifies errors crossing component boundaries.
package apperr

import (
	"errors"

	"github.com/google/uuid"
)

// Kind sentinels. Match with errors.Is; construct wrapped instances with
// the helpers below.
var (
	ErrNetwork        = errors.New("network error")
	ErrNotFound       = errors.New("not found")
	ErrValidation     = errors.New("validation error")
	ErrInternal       = errors.New("internal error")
	ErrAuthentication = errors.New("authentication failed")
	ErrConfiguration  = errors.New("invalid configuration")
)

// Error attaches a kind sentinel, an optional cause, and a trace id to a
// message. The trace id correlates a returned error with its log lines.
type Error struct {
	kind    error
	msg     string
	cause   error
	TraceID string
}

func (e *Error) Error() string {
	if e.cause != nil {
		return e.msg + ": " + e.cause.Error()
	}
	return e.msg
}

func (e *Error) Unwrap() []error {
	out := []error{e.kind}
	if e.cause != nil {
		out = append(out, e.cause)
	}
	return out
}

// Network reports a remote store failure. cause may be nil.
func Network(msg string, cause error) error { return wrap(ErrNetwork, msg, cause) }

// NotFound reports an id absent from both cache and remote store.
func NotFound(msg string) error { return wrap(ErrNotFound, msg, nil) }

// Validation reports malformed caller parameters.
func Validation(msg string) error { return wrap(ErrValidation, msg, nil) }

// Internal reports a violated invariant, such as a remote record with an
// unexpected shape. cause may be nil.
func Internal(msg string, cause error) error { return wrap(ErrInternal, msg, cause) }

// Authentication reports rejected credentials. cause may be nil.
func Authentication(msg string, cause error) error { return wrap(ErrAuthentication, msg, cause) }

// Configuration reports unusable configuration. cause may be nil.
func Configuration(msg string, cause error) error { return wrap(ErrConfiguration, msg, cause) }

func wrap(kind error, msg string, cause error) *Error {
	return &Error{kind: kind, msg: msg, cause: cause, TraceID: uuid.NewString()}
}

// TraceID returns the trace id carried by err, or "" when there is none.
func TraceID(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.TraceID
	}
	return ""
}

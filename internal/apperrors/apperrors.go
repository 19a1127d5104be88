// Package apperrors defines the error taxonomy shared by every core
// component. Errors carry a machine-checkable Kind; the HTTP layer maps
// kinds to status codes and clients branch on the kind, never the message.
package apperrors

import (
	"errors"
	"fmt"
)

type Kind string

const (
	KindNotFound      Kind = "NOT_FOUND"
	KindUnauthorized  Kind = "UNAUTHORIZED"
	KindForbidden     Kind = "FORBIDDEN"
	KindConflict      Kind = "CONFLICT"
	KindPrecondition  Kind = "FAILED_PRECONDITION"
	KindDataIntegrity Kind = "DATA_INTEGRITY"
	KindUpstream      Kind = "UPSTREAM_FAILURE"
	KindStore         Kind = "STORE_FAILURE"
	KindUnknown       Kind = "UNKNOWN"
)

// Error is the single error type crossing component boundaries. There is no
// per-kind subtype; the kind is data.
type Error struct {
	Kind    Kind   `json:"kind"`
	Message string `json:"message"`
	Cause   error  `json:"-"`
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Cause }

func New(kind Kind, message string) error {
	return &Error{Kind: kind, Message: message}
}

func Wrap(kind Kind, message string, cause error) error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// Constructors, one per kind.

func NotFound(msg string) error      { return New(KindNotFound, msg) }
func Unauthorized(msg string) error  { return New(KindUnauthorized, msg) }
func Forbidden(msg string) error     { return New(KindForbidden, msg) }
func Conflict(msg string) error      { return New(KindConflict, msg) }
func Precondition(msg string) error  { return New(KindPrecondition, msg) }
func DataIntegrity(msg string) error { return New(KindDataIntegrity, msg) }

func Upstream(msg string, cause error) error { return Wrap(KindUpstream, msg, cause) }
func Store(msg string, cause error) error    { return Wrap(KindStore, msg, cause) }

// KindOf returns the kind carried by err, or KindUnknown for foreign errors.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindUnknown
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// Retryable reports whether retrying the operation without changing input can
// succeed. Only upstream and store failures qualify.
func Retryable(err error) bool {
	k := KindOf(err)
	return k == KindUpstream || k == KindStore
}

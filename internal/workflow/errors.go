package workflow

import (
	"errors"
	"time"
)

// Kind is a stable, caller-distinguishable error category.
type Kind string

const (
	KindValidation             Kind = "validation"
	KindInvalidTransition      Kind = "invalid_transition"
	KindPermissionDenied       Kind = "permission_denied"
	KindConcurrentModification Kind = "concurrent_modification"
	KindStoreUnavailable       Kind = "store_unavailable"
	KindNotFound               Kind = "not_found"
)

// Sentinels for errors.Is. Every *Error matches the sentinel of its kind.
var (
	ErrValidation             = errors.New("validation failed")
	ErrInvalidTransition      = errors.New("invalid transition")
	ErrPermissionDenied       = errors.New("permission denied")
	ErrConcurrentModification = errors.New("content was changed by someone else")
	ErrStoreUnavailable       = errors.New("store unavailable")
	ErrNotFound               = errors.New("content not found")
)

var sentinels = map[Kind]error{
	KindValidation:             ErrValidation,
	KindInvalidTransition:      ErrInvalidTransition,
	KindPermissionDenied:       ErrPermissionDenied,
	KindConcurrentModification: ErrConcurrentModification,
	KindStoreUnavailable:       ErrStoreUnavailable,
	KindNotFound:               ErrNotFound,
}

// Error is what every workflow operation returns on failure. Message is safe to show to
// the caller; Err is the underlying cause and is only logged.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func newError(kind Kind, msg string, cause error) *Error {
	return &Error{Kind: kind, Message: msg, Err: cause}
}

func (e *Error) Error() string {
	if e.Err != nil {
		return string(e.Kind) + ": " + e.Message + ": " + e.Err.Error()
	}
	return string(e.Kind) + ": " + e.Message
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool {
	return sentinels[e.Kind] == target
}

// Retryable reports whether the same request may succeed if sent again unchanged.
func (e *Error) Retryable() bool {
	return e.Kind == KindConcurrentModification || e.Kind == KindStoreUnavailable
}

// KindOf returns the kind of err, or "" when err is not a workflow error.
func KindOf(err error) Kind {
	var we *Error
	if errors.As(err, &we) {
		return we.Kind
	}
	return ""
}

// RetryAfter is the back-off hint handed to callers on retryable failures.
const RetryAfter = time.Second

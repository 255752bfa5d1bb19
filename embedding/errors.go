package embedding

import (
	"errors"
	"fmt"
)

// ErrorKind categorizes embedding failures for retry decisions.
type ErrorKind int

const (
	// KindTransient marks failures worth retrying (network blip, rate limit,
	// non-2xx provider response).
	KindTransient ErrorKind = iota
	// KindFatal marks failures that retrying cannot fix: exhausted retries,
	// malformed provider output, dimension mismatch.
	KindFatal
	// KindCancelled marks failures caused by request cancellation or timeout.
	KindCancelled
)

// String returns the kind label used in logs.
func (k ErrorKind) String() string {
	switch k {
	case KindTransient:
		return "transient"
	case KindFatal:
		return "fatal"
	case KindCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Error is the typed failure returned by the embedding subsystem.
type Error struct {
	Kind ErrorKind
	Err  error
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("embedding %s error: %v", e.Kind, e.Err)
}

// Unwrap exposes the underlying cause for errors.Is / errors.As.
func (e *Error) Unwrap() error { return e.Err }

// newError wraps err with a kind.
func newError(kind ErrorKind, err error) *Error {
	return &Error{Kind: kind, Err: err}
}

// KindOf extracts the kind from err, defaulting to transient for untyped
// errors (a bare network error is worth retrying).
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindTransient
}

// IsCancelled reports whether err represents a cancellation.
func IsCancelled(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == KindCancelled
}

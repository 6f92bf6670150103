package client

import "fmt"

// FailureKind classifies a measurement attempt failure. Transient kinds are
// retried by the client; the rest are recorded as invalid samples.
type FailureKind string

const (
	// FailureConnection - endpoint unreachable or connection refused/dropped.
	FailureConnection FailureKind = "connection"
	// FailureTimeout - no reply within the configured window.
	FailureTimeout FailureKind = "timeout"
	// FailureProtocol - reply does not match the device grammar.
	FailureProtocol FailureKind = "protocol"
	// FailureParse - reply cannot be converted to a plausible numeric value.
	FailureParse FailureKind = "parse"
)

// Error carries the failure classification alongside the underlying cause.
type Error struct {
	Kind FailureKind
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s error: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Transient reports whether the failure is worth retrying.
func (e *Error) Transient() bool {
	return e.Kind == FailureConnection || e.Kind == FailureTimeout
}

func newError(kind FailureKind, err error) *Error {
	return &Error{Kind: kind, Err: err}
}

// KindOf extracts the failure classification from an error returned by this
// package; empty for nil or foreign errors.
func KindOf(err error) FailureKind {
	if ce, ok := err.(*Error); ok {
		return ce.Kind
	}
	return ""
}

// IsTransient reports whether err is a retried (connection/timeout) failure.
func IsTransient(err error) bool {
	if ce, ok := err.(*Error); ok {
		return ce.Transient()
	}
	return false
}

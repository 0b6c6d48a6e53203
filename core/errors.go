package core

import (
	"errors"
	"time"
)

// Sentinel errors for comparison with errors.Is. Component packages
// define their own richer error types, classified by Kind (see
// Classified) rather than by wrapping one of these.
var (
	ErrMaxRetriesExceeded = errors.New("maximum retries exceeded")
	ErrTimeout            = errors.New("operation timed out")
	ErrNotFound           = errors.New("not found")
	ErrInvalidConfig      = errors.New("invalid configuration")
	ErrCanceled           = errors.New("operation canceled")
)

// Kind classifies an error along the retryable/fatal axis described in
// spec §7. It is attached to component-specific error types so the retry
// wrapper (package resilience) can classify failures without importing
// every component package.
type Kind string

const (
	KindTimeout    Kind = "timeout"
	KindRateLimit  Kind = "rate_limit"
	KindNetwork    Kind = "network"
	KindAuth       Kind = "auth"
	KindParse      Kind = "parse"
	KindExecFailed Kind = "execution_failed"
	KindUnavail    Kind = "unavailable"
	KindConfig     Kind = "config"
	KindTemplate   Kind = "template"
	KindApply      Kind = "apply"
	KindRollback   Kind = "rollback"
	KindRetries    Kind = "max_retries_exceeded"
)

// retryableKinds is the authoritative set from spec §7.
var retryableKinds = map[Kind]bool{
	KindTimeout:   true,
	KindRateLimit: true,
	KindNetwork:   true,
}

// Classified is implemented by any error that can report its Kind.
type Classified interface {
	error
	ErrorKind() Kind
}

// IsRetryable reports whether err (or anything it wraps) is retryable
// per spec §7. Errors that don't implement Classified are treated as
// non-retryable.
func IsRetryable(err error) bool {
	var c Classified
	if errors.As(err, &c) {
		return retryableKinds[c.ErrorKind()]
	}
	return false
}

// RetryAfter is implemented by errors that carry a server-signalled delay
// (e.g. HTTP 429 Retry-After / retry_after body field) that should preempt
// the retry wrapper's computed backoff for that attempt.
type RetryAfter interface {
	error
	RetryAfterDuration() (delay time.Duration, ok bool)
}

// RetryAfterOf extracts a RetryAfter delay from err, if any part of its
// wrap chain implements RetryAfter.
func RetryAfterOf(err error) (time.Duration, bool) {
	var ra RetryAfter
	if errors.As(err, &ra) {
		return ra.RetryAfterDuration()
	}
	return 0, false
}

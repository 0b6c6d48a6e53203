package backend

import (
	"fmt"
	"time"

	"github.com/ducks/llmux/core"
)

// Error is the shared error type for both backend variants: a kind per
// spec §7's taxonomy, a human message, and an optional server-signalled
// retry delay (HTTP 429 retry_after).
type Error struct {
	Kind          core.Kind
	Message       string
	RetryAfter    time.Duration
	HasRetryAfter bool
}

func (e *Error) Error() string {
	return fmt.Sprintf("backend: %s: %s", e.Kind, e.Message)
}

func (e *Error) ErrorKind() core.Kind { return e.Kind }

func (e *Error) RetryAfterDuration() (time.Duration, bool) {
	return e.RetryAfter, e.HasRetryAfter
}

func newError(kind core.Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

package verify

import (
	"fmt"

	"github.com/ducks/llmux/core"
)

// TimeoutError is returned when the verify command exceeds its wall-clock
// budget and had to be killed.
type TimeoutError struct {
	Command string
	Timeout string
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("verify command %q timed out after %s", e.Command, e.Timeout)
}

func (e *TimeoutError) ErrorKind() core.Kind { return core.KindTimeout }

// RollbackPartialError reports a rollback that restored some paths and
// failed on others — a distinct, non-retryable outcome from a clean
// rollback or a clean apply.
type RollbackPartialError struct {
	Restored []string
	Failed   map[string]error
}

func (e *RollbackPartialError) Error() string {
	return fmt.Sprintf("rollback partially failed: %d restored, %d failed", len(e.Restored), len(e.Failed))
}

func (e *RollbackPartialError) ErrorKind() core.Kind { return core.KindRollback }

package step

import (
	"fmt"

	"github.com/ducks/llmux/core"
)

// ShellFailedError is returned by a shell step whose command exited
// nonzero and isn't marked continue_on_error.
type ShellFailedError struct {
	Command  string
	ExitCode int
}

func (e *ShellFailedError) Error() string {
	return fmt.Sprintf("shell command exited %d: %s", e.ExitCode, e.Command)
}
func (e *ShellFailedError) ErrorKind() core.Kind { return core.KindExecFailed }

// SchemaViolationError means a query step's response failed output_schema
// validation, or a store step's prompt didn't render valid JSON.
type SchemaViolationError struct{ Message string }

func (e *SchemaViolationError) Error() string      { return "schema violation: " + e.Message }
func (e *SchemaViolationError) ErrorKind() core.Kind { return core.KindParse }

// MissingSourceError means an apply step omitted the required `source`
// field naming its upstream step.
type MissingSourceError struct{ Step string }

func (e *MissingSourceError) Error() string {
	return fmt.Sprintf("apply step %q has no source", e.Step)
}
func (e *MissingSourceError) ErrorKind() core.Kind { return core.KindConfig }

// UpstreamNotFoundError means an apply step's `source` names a step that
// hasn't run (or doesn't exist) in the current template context.
type UpstreamNotFoundError struct{ Step, Source string }

func (e *UpstreamNotFoundError) Error() string {
	return fmt.Sprintf("step %q references unknown upstream step %q", e.Step, e.Source)
}
func (e *UpstreamNotFoundError) ErrorKind() core.Kind { return core.KindConfig }

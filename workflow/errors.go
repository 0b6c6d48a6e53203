package workflow

import (
	"fmt"

	"github.com/ducks/llmux/core"
)

// MissingArgumentError means a workflow's required argument had neither
// an input value nor a declared default.
type MissingArgumentError struct{ Name string }

func (e *MissingArgumentError) Error() string {
	return fmt.Sprintf("missing required argument %q", e.Name)
}
func (e *MissingArgumentError) ErrorKind() core.Kind { return core.KindConfig }

// CyclicDependencyError is a defensive backstop: config.Validate already
// rejects cyclic workflows before topoSort runs, so this only fires if
// that invariant is ever violated upstream.
type CyclicDependencyError struct{}

func (e *CyclicDependencyError) Error() string      { return "circular dependency detected among workflow steps" }
func (e *CyclicDependencyError) ErrorKind() core.Kind { return core.KindConfig }

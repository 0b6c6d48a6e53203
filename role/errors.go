package role

import (
	"fmt"

	"github.com/ducks/llmux/core"
)

// RoleNotFoundError means the requested role name has no global
// definition (and no team override supplied one either).
type RoleNotFoundError struct{ Role string }

func (e *RoleNotFoundError) Error() string      { return fmt.Sprintf("role %q not found", e.Role) }
func (e *RoleNotFoundError) ErrorKind() core.Kind { return core.KindConfig }

// BackendNotFoundError means a role (or team override) names a backend
// absent from the merged config.
type BackendNotFoundError struct {
	Role    string
	Backend string
}

func (e *BackendNotFoundError) Error() string {
	return fmt.Sprintf("role %q references unknown backend %q", e.Role, e.Backend)
}
func (e *BackendNotFoundError) ErrorKind() core.Kind { return core.KindConfig }

// NoBackendsError means a role resolved to an empty backend list.
type NoBackendsError struct{ Role string }

func (e *NoBackendsError) Error() string      { return fmt.Sprintf("role %q has no backends", e.Role) }
func (e *NoBackendsError) ErrorKind() core.Kind { return core.KindConfig }

// AllFailedError is returned by First/Fallback when every backend in
// the resolved list failed.
type AllFailedError struct {
	Failures map[string]string
}

func (e *AllFailedError) Error() string {
	return fmt.Sprintf("all %d backends failed", len(e.Failures))
}
func (e *AllFailedError) ErrorKind() core.Kind { return core.KindExecFailed }

// InsufficientSuccessesError is returned by Parallel when fewer
// backends succeeded than the role's min_success quorum.
type InsufficientSuccessesError struct {
	Succeeded int
	Required  int
	Outputs   map[string]string
}

func (e *InsufficientSuccessesError) Error() string {
	return fmt.Sprintf("only %d of %d required backends succeeded", e.Succeeded, e.Required)
}
func (e *InsufficientSuccessesError) ErrorKind() core.Kind { return core.KindExecFailed }

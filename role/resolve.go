// Package role multiplexes one request across the backends of a
// resolved role, in one of three execution modes (spec component H).
package role

import "github.com/ducks/llmux/config"

// Resolved is a role after team-override resolution: the concrete
// backend list, execution mode, and quorum to use for this call.
type Resolved struct {
	Name       string
	Backends   []string
	Execution  config.RoleExecution
	MinSuccess int
}

// Resolve looks up roleName in cfg, applying team's override (backend
// list and/or execution mode) when team names one. Resolution order:
// team override wins over the global role definition.
func Resolve(cfg *config.Config, roleName, team string) (Resolved, error) {
	var override *config.RoleOverride
	if team != "" {
		if t, ok := cfg.Teams[team]; ok {
			if o, ok := t.Roles[roleName]; ok {
				override = &o
			}
		}
	}

	global, ok := cfg.Roles[roleName]
	if !ok && override == nil {
		return Resolved{}, &RoleNotFoundError{Role: roleName}
	}

	backends := global.Backends
	execution := global.Execution
	if execution == "" {
		execution = config.ExecFirst
	}
	minSuccess := global.MinSuccess
	if minSuccess == 0 {
		minSuccess = 1
	}

	if override != nil {
		if len(override.Backends) > 0 {
			backends = override.Backends
		}
		if override.Execution != nil {
			execution = *override.Execution
		}
	}

	if len(backends) == 0 {
		return Resolved{}, &NoBackendsError{Role: roleName}
	}
	for _, name := range backends {
		if _, ok := cfg.Backends[name]; !ok {
			return Resolved{}, &BackendNotFoundError{Role: roleName, Backend: name}
		}
	}

	return Resolved{Name: roleName, Backends: backends, Execution: execution, MinSuccess: minSuccess}, nil
}

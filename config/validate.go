package config

import (
	"fmt"
	"strings"
)

// ValidationError aggregates every invariant violation found in one
// Validate call, mirroring the original's Result<(), Vec<String>> shape
// as a single Go error.
type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("workflow validation failed: %s", strings.Join(e.Errors, "; "))
}

// Validate checks the §3 Workflow invariants: unique step names, every
// depends_on target exists, each step satisfies its type's field
// requirements, and the dependency graph is acyclic.
func Validate(w *Workflow) error {
	var errs []string

	seen := make(map[string]bool, len(w.Steps))
	for _, s := range w.Steps {
		if seen[s.Name] {
			errs = append(errs, fmt.Sprintf("duplicate step name: %s", s.Name))
		}
		seen[s.Name] = true
	}

	names := make(map[string]bool, len(w.Steps))
	for _, s := range w.Steps {
		names[s.Name] = true
	}
	for _, s := range w.Steps {
		for _, dep := range s.DependsOn {
			if !names[dep] {
				errs = append(errs, fmt.Sprintf("step %q depends on unknown step %q", s.Name, dep))
			}
		}
	}

	for _, s := range w.Steps {
		errs = append(errs, stepFieldErrors(s)...)
	}

	if cyc := findCycle(w.Steps); cyc != "" {
		errs = append(errs, fmt.Sprintf("circular dependency detected involving step %q", cyc))
	}

	if len(errs) > 0 {
		return &ValidationError{Errors: errs}
	}
	return nil
}

func stepFieldErrors(s Step) []string {
	var errs []string
	switch s.Type {
	case StepShell:
		if s.Run == "" {
			errs = append(errs, fmt.Sprintf("shell step %q missing 'run' field", s.Name))
		}
	case StepQuery:
		if s.Prompt == "" {
			errs = append(errs, fmt.Sprintf("query step %q missing 'prompt' field", s.Name))
		}
		if s.Role == "" {
			errs = append(errs, fmt.Sprintf("query step %q missing 'role' field", s.Name))
		}
	case StepApply:
		if s.Source == "" {
			errs = append(errs, fmt.Sprintf("apply step %q missing 'source' field", s.Name))
		}
	case StepStore:
		if s.Prompt == "" {
			errs = append(errs, fmt.Sprintf("store step %q missing 'prompt' field", s.Name))
		}
	case StepInput:
		// no required fields; §4.I treats it as a placeholder.
	default:
		errs = append(errs, fmt.Sprintf("step %q has unknown type %q", s.Name, s.Type))
	}
	return errs
}

// findCycle returns the name of a step participating in a dependency
// cycle, or "" if the graph is acyclic. Unknown dependencies (already
// reported separately) are ignored here so one bad edge doesn't mask a
// real cycle elsewhere.
func findCycle(steps []Step) string {
	const (
		white = 0
		gray  = 1
		black = 2
	)
	byName := make(map[string]Step, len(steps))
	for _, s := range steps {
		byName[s.Name] = s
	}
	color := make(map[string]int, len(steps))

	var visit func(name string) string
	visit = func(name string) string {
		color[name] = gray
		for _, dep := range byName[name].DependsOn {
			if _, ok := byName[dep]; !ok {
				continue
			}
			switch color[dep] {
			case gray:
				return dep
			case white:
				if c := visit(dep); c != "" {
					return c
				}
			}
		}
		color[name] = black
		return ""
	}

	for _, s := range steps {
		if color[s.Name] == white {
			if c := visit(s.Name); c != "" {
				return c
			}
		}
	}
	return ""
}

// Normalize fills in the Name field of every Backend/Role/Team from its
// map key, since yaml.Unmarshal into a map[string]T never sets fields
// implied only by the key.
func (c *Config) Normalize() {
	for name, b := range c.Backends {
		b.Name = name
		c.Backends[name] = b
	}
	for name, r := range c.Roles {
		r.Name = name
		c.Roles[name] = r
	}
	for name, t := range c.Teams {
		t.Name = name
		c.Teams[name] = t
	}
}

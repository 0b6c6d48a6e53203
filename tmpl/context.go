package tmpl

// StepView is the template-visible projection of a workflow step's result
// (spec §3 "Template Context"): steps[name] exposes output, outputs,
// failed, error, duration_ms, backend, backends.
type StepView struct {
	Output     string
	Outputs    map[string]string
	Failed     bool
	Error      string
	DurationMs int64
	Backend    string
	Backends   []string
}

// toMapValue projects a StepView into the generic value shape used by
// path resolution and filters.
func (s StepView) toMapValue() map[string]interface{} {
	outputs := make(map[string]interface{}, len(s.Outputs))
	for k, v := range s.Outputs {
		outputs[k] = v
	}
	backends := make([]interface{}, len(s.Backends))
	for i, b := range s.Backends {
		backends[i] = b
	}
	return map[string]interface{}{
		"output":      s.Output,
		"outputs":     outputs,
		"failed":      s.Failed,
		"error":       s.Error,
		"duration_ms": s.DurationMs,
		"backend":     s.Backend,
		"backends":    backends,
	}
}

// WorkflowView is the template-visible projection of the running
// workflow's static metadata.
type WorkflowView struct {
	Name    string
	Version string
}

func (w WorkflowView) toMapValue() map[string]interface{} {
	return map[string]interface{}{
		"name":    w.Name,
		"version": w.Version,
	}
}

// EnvLookup resolves an environment variable name. It exists so env access
// stays lazy (spec: "env[VAR] is lazy and never enumerated") and so callers
// can inject a fake environment in tests instead of touching the real one.
type EnvLookup func(name string) (string, bool)

// Context is the template context (spec §3): a fixed set of top-level
// names plus any loop variables bound by {% for %}.
type Context struct {
	Args     map[string]interface{}
	Steps    map[string]StepView
	Team     string
	Item     interface{}
	HasItem  bool
	Workflow WorkflowView
	Env      EnvLookup

	// loopVars holds variables bound by enclosing {% for %} blocks,
	// keyed by loop variable name. Render pushes/pops entries as it
	// recurses into for-loop bodies.
	loopVars map[string]interface{}
}

// topLevelNames is the fixed set of known top-level context keys, used
// both for resolution and for UndefinedVariableError suggestions.
var topLevelNames = []string{"args", "steps", "team", "item", "workflow", "env"}

// stepNames returns the known step names, used as the candidate pool when
// suggesting a fix for a mistyped steps.<name> reference.
func (c *Context) stepNames() []string {
	names := make([]string, 0, len(c.Steps))
	for k := range c.Steps {
		names = append(names, k)
	}
	return names
}

// withLoopVar returns a shallow copy of c with name bound to value,
// shadowing any outer loop variable or top-level name of the same name.
// Per design notes, the context is snapshot-style and reuses the same
// backing maps across iterations to avoid deep copies.
func (c *Context) withLoopVar(name string, value interface{}) *Context {
	next := *c
	next.loopVars = make(map[string]interface{}, len(c.loopVars)+1)
	for k, v := range c.loopVars {
		next.loopVars[k] = v
	}
	next.loopVars[name] = value
	return &next
}

// resolveRoot resolves the first segment of a dotted path against loop
// variables (innermost first) then the fixed top-level names.
func (c *Context) resolveRoot(name string) (interface{}, bool) {
	if v, ok := c.loopVars[name]; ok {
		return v, true
	}
	switch name {
	case "args":
		return mapToValue(c.Args), true
	case "steps":
		m := make(map[string]interface{}, len(c.Steps))
		for k, v := range c.Steps {
			m[k] = v.toMapValue()
		}
		return m, true
	case "team":
		return c.Team, true
	case "item":
		if !c.HasItem {
			return Undefined{Path: "item", BadSegment: "item", Candidates: topLevelNames}, true
		}
		return c.Item, true
	case "workflow":
		return c.Workflow.toMapValue(), true
	case "env":
		return envValue{lookup: c.Env}, true
	default:
		return nil, false
	}
}

func mapToValue(m map[string]interface{}) map[string]interface{} {
	if m == nil {
		return map[string]interface{}{}
	}
	return m
}

// envValue is a marker type recognized by path resolution to perform a
// lazy, single-key lookup instead of exposing the whole environment.
type envValue struct {
	lookup EnvLookup
}

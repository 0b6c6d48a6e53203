// Package config holds the merged data model (spec §3/§6): workflows,
// backends, roles, and teams. Loading from disk, flag parsing, and the
// on-disk file format are collaborators outside this package's scope --
// callers unmarshal YAML into these types themselves and hand llmux the
// result.
package config

// StepType discriminates the five kinds of workflow step.
type StepType string

const (
	StepShell StepType = "shell"
	StepQuery StepType = "query"
	StepApply StepType = "apply"
	StepInput StepType = "input"
	StepStore StepType = "store"
)

// ArgDef describes one workflow argument.
type ArgDef struct {
	Required    bool   `yaml:"required"`
	Default     string `yaml:"default"`
	HasDefault  bool   `yaml:"-"`
	Description string `yaml:"description"`
}

// PropertySchema is one property of an OutputSchema, recursively
// describing `items` for array properties.
type PropertySchema struct {
	Type  string          `yaml:"type"`
	Items *PropertySchema `yaml:"items,omitempty"`
}

// OutputSchema is the JSON-Schema subset a `query` step can require of a
// backend's response (spec §4.I).
type OutputSchema struct {
	Type       string                    `yaml:"type"`
	Required   []string                  `yaml:"required,omitempty"`
	Properties map[string]PropertySchema `yaml:"properties,omitempty"`
}

// Step is one node of a workflow DAG.
type Step struct {
	Name     string   `yaml:"name"`
	Type     StepType `yaml:"type"`
	DependsOn []string `yaml:"depends_on,omitempty"`

	If      string `yaml:"if,omitempty"`
	ForEach string `yaml:"for_each,omitempty"`

	Timeout     int64 `yaml:"timeout,omitempty"` // milliseconds
	Retries     int   `yaml:"retries,omitempty"`
	RetryDelay  int64 `yaml:"retry_delay,omitempty"` // milliseconds

	ContinueOnError bool `yaml:"continue_on_error,omitempty"`

	// shell
	Run string `yaml:"run,omitempty"`

	// query
	Role         string        `yaml:"role,omitempty"`
	Prompt       string        `yaml:"prompt,omitempty"`
	OutputSchema *OutputSchema `yaml:"output_schema,omitempty"`

	// apply
	Source            string `yaml:"source,omitempty"`
	Verify            string `yaml:"verify,omitempty"`
	VerifyRetries     int    `yaml:"verify_retries,omitempty"`
	VerifyRetryPrompt string `yaml:"verify_retry_prompt,omitempty"`
	RollbackOnFailure bool   `yaml:"rollback_on_failure,omitempty"`

	// store: reuses Prompt as the JSON-bearing template field
}

// Workflow is a named, versioned pipeline of steps.
type Workflow struct {
	Name            string            `yaml:"name"`
	Description     string            `yaml:"description,omitempty"`
	Version         string            `yaml:"version,omitempty"`
	Args            map[string]ArgDef `yaml:"args,omitempty"`
	Timeout         int64             `yaml:"timeout,omitempty"` // milliseconds, 0 = none
	ContinueOnError bool              `yaml:"continue_on_error,omitempty"`
	Steps           []Step            `yaml:"steps"`
}

// StepByName returns the step with the given name, if any.
func (w *Workflow) StepByName(name string) (Step, bool) {
	for _, s := range w.Steps {
		if s.Name == name {
			return s, true
		}
	}
	return Step{}, false
}

// RoleExecution is a role's cross-backend dispatch mode.
type RoleExecution string

const (
	ExecFirst    RoleExecution = "first"
	ExecFallback RoleExecution = "fallback"
	ExecParallel RoleExecution = "parallel"
)

// Backend is a named LLM endpoint, either a subprocess or HTTP service.
// Kind is discriminated at load time by IsHTTP, not stored separately.
type Backend struct {
	Name    string            `yaml:"-"`
	Command string            `yaml:"command"`
	Args    []string          `yaml:"args,omitempty"`
	Env     map[string]string `yaml:"env,omitempty"`
	Enabled bool              `yaml:"enabled"`
	Timeout int64             `yaml:"timeout,omitempty"` // seconds
	Model   string            `yaml:"model,omitempty"`
	APIKey  string            `yaml:"api_key,omitempty"`

	MaxRetries      int   `yaml:"max_retries"`
	RetryDelayMs    int64 `yaml:"retry_delay_ms"`
	RetryRateLimit  bool  `yaml:"retry_rate_limit"`
	RetryTimeout    bool  `yaml:"retry_timeout"`
}

// IsHTTP reports whether this backend's command is actually an HTTP(S)
// base URL rather than a local executable.
func (b Backend) IsHTTP() bool {
	return hasPrefix(b.Command, "http://") || hasPrefix(b.Command, "https://")
}

func hasPrefix(s, prefix string) bool {
	return len(s) >= len(prefix) && s[:len(prefix)] == prefix
}

// Role is a named group of backends with an execution mode.
type Role struct {
	Name        string        `yaml:"-"`
	Description string        `yaml:"description,omitempty"`
	Backends    []string      `yaml:"backends"`
	Execution   RoleExecution `yaml:"execution,omitempty"`
	MinSuccess  int           `yaml:"min_success,omitempty"`
}

// RoleOverride overrides a role's backend list (and optionally its
// execution mode) within one team.
type RoleOverride struct {
	Backends  []string       `yaml:"backends"`
	Execution *RoleExecution `yaml:"execution,omitempty"`
}

// Team is a project profile that can override role backends/modes.
type Team struct {
	Name        string                  `yaml:"-"`
	Description string                  `yaml:"description,omitempty"`
	Detect      []string                `yaml:"detect,omitempty"`
	Verify      string                  `yaml:"verify,omitempty"`
	Roles       map[string]RoleOverride `yaml:"roles,omitempty"`
}

// Defaults holds process-wide fallbacks applied when a backend or step
// omits the corresponding field.
type Defaults struct {
	Timeout int64 `yaml:"timeout,omitempty"` // seconds
}

// Config is the full merged data model: defaults, backends, roles, and
// teams, keyed by name (spec §6 "post-merge" shape).
type Config struct {
	Defaults Defaults          `yaml:"defaults,omitempty"`
	Backends map[string]Backend `yaml:"backends,omitempty"`
	Roles    map[string]Role     `yaml:"roles,omitempty"`
	Teams    map[string]Team     `yaml:"teams,omitempty"`
}

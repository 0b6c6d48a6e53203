package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestValidateAcceptsWellFormedWorkflow(t *testing.T) {
	w := &Workflow{
		Name: "hunt",
		Steps: []Step{
			{Name: "fetch", Type: StepShell, Run: "echo hi"},
			{Name: "analyze", Type: StepQuery, Role: "analyzer", Prompt: "find bugs", DependsOn: []string{"fetch"}},
		},
	}
	require.NoError(t, Validate(w))
}

func TestValidateDetectsDuplicateStepNames(t *testing.T) {
	w := &Workflow{Steps: []Step{
		{Name: "a", Type: StepShell, Run: "echo"},
		{Name: "a", Type: StepShell, Run: "echo"},
	}}
	err := Validate(w)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate step name")
}

func TestValidateDetectsUnknownDependency(t *testing.T) {
	w := &Workflow{Steps: []Step{
		{Name: "a", Type: StepShell, Run: "echo", DependsOn: []string{"missing"}},
	}}
	err := Validate(w)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown step "missing"`)
}

func TestValidateDetectsCycle(t *testing.T) {
	w := &Workflow{Steps: []Step{
		{Name: "a", Type: StepShell, Run: "echo", DependsOn: []string{"b"}},
		{Name: "b", Type: StepShell, Run: "echo", DependsOn: []string{"a"}},
	}}
	err := Validate(w)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "circular dependency")
}

func TestValidateRequiresQueryRoleAndPrompt(t *testing.T) {
	w := &Workflow{Steps: []Step{
		{Name: "q", Type: StepQuery},
	}}
	err := Validate(w)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing 'prompt' field")
	assert.Contains(t, err.Error(), "missing 'role' field")
}

func TestValidateRequiresApplySource(t *testing.T) {
	w := &Workflow{Steps: []Step{{Name: "p", Type: StepApply}}}
	err := Validate(w)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing 'source' field")
}

func TestYAMLRoundTripOfWorkflow(t *testing.T) {
	src := `
name: hunt
version: "1"
args:
  dir:
    required: false
    default: "."
steps:
  - name: analyze
    type: query
    role: analyzer
    prompt: "find bugs"
`
	var w Workflow
	require.NoError(t, yaml.Unmarshal([]byte(src), &w))
	assert.Equal(t, "hunt", w.Name)
	assert.Len(t, w.Steps, 1)
	assert.Equal(t, StepQuery, w.Steps[0].Type)
	require.NoError(t, Validate(&w))
}

func TestConfigNormalizeFillsNames(t *testing.T) {
	c := &Config{
		Backends: map[string]Backend{"claude": {Command: "claude"}},
		Roles:    map[string]Role{"analyzer": {Backends: []string{"claude"}}},
		Teams:    map[string]Team{"rust": {Detect: []string{"Cargo.toml"}}},
	}
	c.Normalize()
	assert.Equal(t, "claude", c.Backends["claude"].Name)
	assert.Equal(t, "analyzer", c.Roles["analyzer"].Name)
	assert.Equal(t, "rust", c.Teams["rust"].Name)
}

func TestBackendIsHTTP(t *testing.T) {
	assert.True(t, Backend{Command: "http://localhost:11434"}.IsHTTP())
	assert.True(t, Backend{Command: "https://api.openai.com"}.IsHTTP())
	assert.False(t, Backend{Command: "claude"}.IsHTTP())
}

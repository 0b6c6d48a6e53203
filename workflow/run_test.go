package workflow

import (
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/ducks/llmux/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestRunSequentialShellChainRespectsDependsOn(t *testing.T) {
	wf := &config.Workflow{
		Name: "chain",
		Steps: []config.Step{
			{Name: "first", Type: config.StepShell, Run: "echo one"},
			{Name: "second", Type: config.StepShell, Run: "echo {{ steps.first.output | trim }}-two", DependsOn: []string{"first"}},
		},
	}
	res, err := Run(&config.Config{}, wf, nil, t.TempDir(), Options{ArtifactRoot: t.TempDir(), Clock: fixedClock(time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC))})
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, []string{"first", "second"}, res.Order)
	assert.Equal(t, "one-two\n", res.Steps["second"].Output)
}

func TestRunCreatesArtifactFilesPerStep(t *testing.T) {
	wf := &config.Workflow{
		Name: "artifacts",
		Steps: []config.Step{
			{Name: "ok", Type: config.StepShell, Run: "echo fine"},
		},
	}
	root := t.TempDir()
	res, err := Run(&config.Config{}, wf, nil, t.TempDir(), Options{ArtifactRoot: root, Clock: fixedClock(time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC))})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "llm-mux", "workflows", "artifacts-20260102-030405"), res.OutputDir)

	data, readErr := os.ReadFile(filepath.Join(res.OutputDir, "ok.txt"))
	require.NoError(t, readErr)
	assert.Equal(t, "fine\n", string(data))
}

func TestRunStickyFailedStopsFurtherSteps(t *testing.T) {
	wf := &config.Workflow{
		Name: "stop-on-fail",
		Steps: []config.Step{
			{Name: "boom", Type: config.StepShell, Run: "exit 1"},
			{Name: "never", Type: config.StepShell, Run: "echo should-not-run"},
		},
	}
	res, err := Run(&config.Config{}, wf, nil, t.TempDir(), Options{ArtifactRoot: t.TempDir()})
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Contains(t, res.Steps, "boom")
	assert.NotContains(t, res.Steps, "never")
}

func TestRunWorkflowContinueOnErrorKeepsGoing(t *testing.T) {
	wf := &config.Workflow{
		Name:            "resilient",
		ContinueOnError: true,
		Steps: []config.Step{
			{Name: "boom", Type: config.StepShell, Run: "exit 1"},
			{Name: "after", Type: config.StepShell, Run: "echo still-here"},
		},
	}
	res, err := Run(&config.Config{}, wf, nil, t.TempDir(), Options{ArtifactRoot: t.TempDir()})
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Contains(t, res.Steps, "after")
	assert.Equal(t, "still-here\n", res.Steps["after"].Output)
}

func TestRunIfGuardSkipsWithoutFailing(t *testing.T) {
	wf := &config.Workflow{
		Name: "conditional",
		Args: map[string]config.ArgDef{"run_it": {HasDefault: true, Default: "false"}},
		Steps: []config.Step{
			{Name: "maybe", Type: config.StepShell, Run: "echo ran", If: "args.run_it == \"true\""},
		},
	}
	res, err := Run(&config.Config{}, wf, nil, t.TempDir(), Options{ArtifactRoot: t.TempDir()})
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.True(t, res.Steps["maybe"].Skipped)
}

func TestRunForEachFansOutOverJSONArrayString(t *testing.T) {
	wf := &config.Workflow{
		Name: "fanout",
		Steps: []config.Step{
			{Name: "source", Type: config.StepShell, Run: `echo -n '["a","b","c"]'`},
			{Name: "per_item", Type: config.StepShell, Run: "echo got-{{ item }}", ForEach: "steps.source.output", DependsOn: []string{"source"}},
		},
	}
	root := t.TempDir()
	res, err := Run(&config.Config{}, wf, nil, t.TempDir(), Options{ArtifactRoot: root})
	require.NoError(t, err)
	require.True(t, res.Success)
	perItem := res.Steps["per_item"]
	assert.Contains(t, perItem.Output, "got-a")
	assert.Contains(t, perItem.Output, "got-b")
	assert.Contains(t, perItem.Output, "got-c")

	for _, idx := range []int{0, 1, 2} {
		_, statErr := os.Stat(filepath.Join(res.OutputDir, "per_item."+strconv.Itoa(idx)+".txt"))
		assert.NoError(t, statErr)
	}
}

func TestRunForEachAggregateFailedOnlyWhenAllIterationsFail(t *testing.T) {
	wf := &config.Workflow{
		Name: "fanout-fail",
		Steps: []config.Step{
			{Name: "per_item", Type: config.StepShell, Run: "test {{ item }} = ok", ForEach: "'ok,bad'"},
		},
	}
	res, err := Run(&config.Config{}, wf, nil, t.TempDir(), Options{ArtifactRoot: t.TempDir()})
	require.NoError(t, err)
	perItem := res.Steps["per_item"]
	assert.False(t, perItem.Failed)
	assert.Equal(t, "some iterations failed", perItem.Error)
}

func TestRunMissingRequiredArgumentErrors(t *testing.T) {
	wf := &config.Workflow{
		Name: "needs-arg",
		Args: map[string]config.ArgDef{"project": {Required: true}},
		Steps: []config.Step{
			{Name: "s", Type: config.StepShell, Run: "echo {{ args.project }}"},
		},
	}
	_, err := Run(&config.Config{}, wf, nil, t.TempDir(), Options{ArtifactRoot: t.TempDir()})
	require.Error(t, err)
	var mae *MissingArgumentError
	require.ErrorAs(t, err, &mae)
}

func TestRunValidatesWorkflowBeforeExecuting(t *testing.T) {
	wf := &config.Workflow{
		Name: "bad",
		Steps: []config.Step{
			{Name: "dup", Type: config.StepShell, Run: "echo 1"},
			{Name: "dup", Type: config.StepShell, Run: "echo 2"},
		},
	}
	_, err := Run(&config.Config{}, wf, nil, t.TempDir(), Options{ArtifactRoot: t.TempDir()})
	require.Error(t, err)
}


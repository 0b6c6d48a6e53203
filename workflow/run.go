// Package workflow drives one workflow run end to end: validation, team
// detection, artifact directory setup, topological scheduling, and
// per-step dispatch through package step (spec component J).
package workflow

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/ducks/llmux/backend"
	"github.com/ducks/llmux/config"
	"github.com/ducks/llmux/core"
	"github.com/ducks/llmux/knowledge"
	"github.com/ducks/llmux/step"
	"github.com/ducks/llmux/tmpl"
	"github.com/google/uuid"
)

// StepResult pairs a step's name with its outcome, for callers that
// want to range over Result.Order rather than Result.Steps directly.
type StepResult struct {
	step.Result
	Name string
}

// Result is the terminal outcome of one workflow run.
type Result struct {
	// ID uniquely identifies this run, independent of OutputDir's
	// second-granularity timestamp — useful for correlating log lines
	// from concurrent runs of the same workflow.
	ID        string
	Steps     map[string]StepResult
	Order     []string
	Success   bool
	Output    string
	Error     string
	Duration  time.Duration
	Team      string
	OutputDir string
}

// Options parameterizes one Run call with everything that would
// otherwise be ambient global state, so runs stay deterministic and
// testable.
type Options struct {
	// ArtifactRoot is the directory under which the
	// llm-mux/workflows/<name>-<timestamp>/ tree is created. Defaults to
	// os.TempDir().
	ArtifactRoot string
	// Clock supplies the current time for the artifact directory's
	// timestamp suffix and step durations. Defaults to time.Now.
	Clock func() time.Time
	// TeamOverride takes precedence over team detection (spec §4.J step 2).
	TeamOverride string
	Registry     map[string]backend.Executor
	Knowledge    knowledge.Writer
	Logger       core.Logger
}

func (o Options) clock() func() time.Time {
	if o.Clock != nil {
		return o.Clock
	}
	return time.Now
}

func (o Options) logger() core.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return core.NoOpLogger{}
}

func (o Options) artifactRoot() string {
	if o.ArtifactRoot != "" {
		return o.ArtifactRoot
	}
	return os.TempDir()
}

// Run executes wf to completion against cfg, starting from args and
// working within workingDir.
func Run(cfg *config.Config, wf *config.Workflow, args map[string]interface{}, workingDir string, opts Options) (*Result, error) {
	runID := uuid.NewString()

	if err := config.Validate(wf); err != nil {
		return nil, err
	}

	mergedArgs, err := buildArgs(wf, args)
	if err != nil {
		return nil, err
	}

	team := detectTeam(cfg, workingDir, opts.TeamOverride)

	now := opts.clock()
	outputDir, err := createArtifactDir(opts.artifactRoot(), wf.Name, now())
	if err != nil {
		return nil, err
	}

	order, err := topoSort(wf.Steps)
	if err != nil {
		return nil, err
	}

	opts.logger().Debug("workflow run starting", map[string]interface{}{
		"run_id": runID, "workflow": wf.Name, "team": team, "steps": len(order),
	})

	ctx := &tmpl.Context{
		Args:     mergedArgs,
		Steps:    map[string]tmpl.StepView{},
		Team:     team,
		Workflow: tmpl.WorkflowView{Name: wf.Name, Version: wf.Version},
		Env:      lookupEnv,
	}

	deps := step.Deps{Config: cfg, Registry: opts.Registry, Team: team, Knowledge: opts.Knowledge}

	start := now()
	results := make(map[string]StepResult, len(wf.Steps))
	workflowFailed := false

	for _, name := range order {
		if workflowFailed && !wf.ContinueOnError {
			break
		}

		st, _ := wf.StepByName(name)

		var result step.Result
		if st.ForEach != "" {
			r, runErr := runForEach(st, ctx, workingDir, deps, outputDir)
			if runErr != nil {
				result = step.Result{Failed: true, Error: runErr.Error()}
			} else {
				result = *r
			}
		} else {
			r, runErr := step.Run(st, ctx, workingDir, deps)
			if runErr != nil {
				result = step.Result{Failed: true, Error: runErr.Error()}
			} else {
				result = *r
			}
		}

		results[name] = StepResult{Name: name, Result: result}
		ctx.Steps[name] = toStepView(result)

		persistArtifact(outputDir, name, result)

		if result.Failed {
			opts.logger().Warn("step failed", map[string]interface{}{
				"run_id": runID, "step": name, "error": result.Error, "continue_on_error": st.ContinueOnError,
			})
			if !st.ContinueOnError && !wf.ContinueOnError {
				workflowFailed = true
			}
		}
	}

	duration := now().Sub(start)
	output, errMsg := finalOutcome(wf, results)

	if workflowFailed {
		opts.logger().Error("workflow run failed", map[string]interface{}{"run_id": runID, "error": errMsg})
	} else {
		opts.logger().Debug("workflow run succeeded", map[string]interface{}{"run_id": runID, "duration": duration.String()})
	}

	return &Result{
		ID:        runID,
		Steps:     results,
		Order:     order,
		Success:   !workflowFailed,
		Output:    output,
		Error:     errMsg,
		Duration:  duration,
		Team:      team,
		OutputDir: outputDir,
	}, nil
}

func lookupEnv(name string) (string, bool) {
	return os.LookupEnv(name)
}

func toStepView(r step.Result) tmpl.StepView {
	return tmpl.StepView{
		Output:     r.Output,
		Outputs:    r.Outputs,
		Failed:     r.Failed,
		Error:      r.Error,
		DurationMs: r.DurationMs,
		Backend:    r.Backend,
		Backends:   r.Backends,
	}
}

func buildArgs(wf *config.Workflow, input map[string]interface{}) (map[string]interface{}, error) {
	out := make(map[string]interface{}, len(wf.Args)+len(input))
	for name, def := range wf.Args {
		if v, ok := input[name]; ok {
			out[name] = v
			continue
		}
		if def.HasDefault {
			out[name] = def.Default
			continue
		}
		if def.Required {
			return nil, &MissingArgumentError{Name: name}
		}
	}
	for k, v := range input {
		if _, ok := out[k]; !ok {
			out[k] = v
		}
	}
	return out, nil
}

func detectTeam(cfg *config.Config, workingDir, override string) string {
	entries, _ := os.ReadDir(workingDir)

	names := make([]string, 0, len(cfg.Teams))
	for name := range cfg.Teams {
		names = append(names, name)
	}
	sort.Strings(names)

	return config.DetectTeam(entries, cfg.Teams, names, override)
}

func createArtifactDir(root, workflowName string, at time.Time) (string, error) {
	stamp := at.Format("20060102-150405")
	dir := filepath.Join(root, "llm-mux", "workflows", fmt.Sprintf("%s-%s", workflowName, stamp))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating artifact directory: %w", err)
	}
	return dir, nil
}

func persistArtifact(outputDir, stepName string, result step.Result) {
	if outputDir == "" {
		return
	}
	name := stepName + ".txt"
	if result.Failed {
		name = stepName + ".failed.txt"
	}
	_ = os.WriteFile(filepath.Join(outputDir, name), []byte(result.Output), 0o644)
}

// finalOutcome returns the output of the last step (in workflow
// declaration order) that actually ran, and an error message summarizing
// the first unrecovered failure, if any.
func finalOutcome(wf *config.Workflow, results map[string]StepResult) (output, errMsg string) {
	for i := len(wf.Steps) - 1; i >= 0; i-- {
		if r, ok := results[wf.Steps[i].Name]; ok {
			output = r.Output
			break
		}
	}
	for _, s := range wf.Steps {
		if r, ok := results[s.Name]; ok && r.Failed && !s.ContinueOnError && !wf.ContinueOnError {
			errMsg = fmt.Sprintf("step %q failed: %s", s.Name, r.Error)
			break
		}
	}
	return output, errMsg
}

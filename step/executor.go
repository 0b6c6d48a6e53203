package step

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/ducks/llmux/backend"
	"github.com/ducks/llmux/config"
	"github.com/ducks/llmux/edit"
	"github.com/ducks/llmux/knowledge"
	"github.com/ducks/llmux/loop"
	"github.com/ducks/llmux/role"
	"github.com/ducks/llmux/tmpl"
	"github.com/ducks/llmux/verify"
)

// strictJSONInstruction is appended to a query step's rendered prompt
// when output_schema is declared, steering the backend toward a
// response this package can actually validate.
const strictJSONInstruction = "\n\nRespond with strict JSON only, matching the required fields exactly. Do not include markdown fences or any explanatory text outside the JSON."

// Deps bundles the collaborators a step may need beyond its own config
// and template context: the merged config (for role resolution), the
// live backend registry, the team in effect, and an optional knowledge
// store for `store` steps.
type Deps struct {
	Config    *config.Config
	Registry  map[string]backend.Executor
	Team      string
	Knowledge knowledge.Writer
}

// Run dispatches st by type against ctx. An `if` guard that evaluates
// falsy short-circuits to a skipped, non-failed result. Any error from
// the step body is surfaced unless st.ContinueOnError, in which case it
// is converted into a failed-but-recorded result.
func Run(st config.Step, ctx *tmpl.Context, workingDir string, deps Deps) (*Result, error) {
	if st.If != "" {
		ok, err := tmpl.EvaluateCondition(ctx, st.If)
		if err != nil {
			return nil, err
		}
		if !ok {
			return &Result{Skipped: true, Error: "skipped: if condition was false"}, nil
		}
	}

	result, err := dispatch(st, ctx, workingDir, deps)
	if err == nil {
		return result, nil
	}
	if !st.ContinueOnError {
		return nil, err
	}
	if result == nil {
		result = &Result{}
	}
	result.Failed = true
	if result.Error == "" {
		result.Error = err.Error()
	}
	return result, nil
}

func dispatch(st config.Step, ctx *tmpl.Context, workingDir string, deps Deps) (*Result, error) {
	switch st.Type {
	case config.StepShell:
		return runShell(st, ctx, workingDir)
	case config.StepQuery:
		return runQuery(st, ctx, deps)
	case config.StepApply:
		return runApply(st, ctx, workingDir)
	case config.StepStore:
		return runStore(st, ctx, deps)
	case config.StepInput:
		return runInput(st)
	default:
		return nil, fmt.Errorf("step %q: unknown step type %q", st.Name, st.Type)
	}
}

func runShell(st config.Step, ctx *tmpl.Context, workingDir string) (*Result, error) {
	rendered, err := tmpl.Render(ctx, st.Run)
	if err != nil {
		return nil, err
	}

	timeout := time.Duration(st.Timeout) * time.Millisecond
	start := time.Now()
	vr, err := verify.Run(rendered, workingDir, timeout)
	if err != nil {
		return nil, err
	}
	duration := time.Since(start)

	if !vr.Success {
		return &Result{Output: vr.Stdout, DurationMs: duration.Milliseconds()},
			&ShellFailedError{Command: rendered, ExitCode: vr.ExitCode}
	}
	return &Result{Output: vr.Stdout, DurationMs: duration.Milliseconds()}, nil
}

func runQuery(st config.Step, ctx *tmpl.Context, deps Deps) (*Result, error) {
	prompt, err := tmpl.Render(ctx, st.Prompt)
	if err != nil {
		return nil, err
	}
	if st.OutputSchema != nil {
		prompt += strictJSONInstruction
	}

	resolved, err := role.Resolve(deps.Config, st.Role, deps.Team)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	res, err := role.Execute(resolved, deps.Registry, backend.Request{Prompt: prompt, WorkingDir: "."})
	if err != nil {
		return nil, err
	}
	duration := time.Since(start)

	result := &Result{
		Output:     res.Output,
		Outputs:    res.Outputs,
		Backend:    res.Backend,
		Backends:   res.Backends,
		DurationMs: duration.Milliseconds(),
	}

	if st.OutputSchema == nil {
		return result, nil
	}

	cleaned := edit.StripBackendHeaders(result.Output)
	if block, ok := edit.ExtractJSONBlock(cleaned); ok {
		cleaned = block
	}
	cleaned = strings.TrimSpace(cleaned)

	var data interface{}
	if err := json.Unmarshal([]byte(cleaned), &data); err != nil {
		return result, &SchemaViolationError{Message: "response is not valid JSON: " + err.Error()}
	}
	if err := validateSchema(st.Name, st.OutputSchema, data); err != nil {
		return result, &SchemaViolationError{Message: err.Error()}
	}
	return result, nil
}

func runApply(st config.Step, ctx *tmpl.Context, workingDir string) (*Result, error) {
	if st.Source == "" {
		return nil, &MissingSourceError{Step: st.Name}
	}
	source, ok := ctx.Steps[st.Source]
	if !ok {
		return nil, &UpstreamNotFoundError{Step: st.Name, Source: st.Source}
	}

	strategy := verify.StrategyNone
	if st.RollbackOnFailure {
		strategy = verify.StrategyGit
	}

	verifyTimeout := verify.DefaultTimeout
	if st.Timeout > 0 {
		verifyTimeout = time.Duration(st.Timeout) * time.Millisecond
	}

	cfg := loop.Config{
		VerifyCommand:    st.Verify,
		MaxRetries:       st.VerifyRetries,
		RollbackStrategy: strategy,
		VerifyTimeout:    verifyTimeout,
		RetryPrompt:      st.VerifyRetryPrompt,
	}

	start := time.Now()
	lr, err := loop.Run(source.Output, cfg, workingDir)
	duration := time.Since(start)
	if err != nil {
		return nil, err
	}

	return &Result{
		Output:     lr.Output,
		Failed:     !lr.Success,
		DurationMs: duration.Milliseconds(),
	}, nil
}

func runStore(st config.Step, ctx *tmpl.Context, deps Deps) (*Result, error) {
	rendered, err := tmpl.Render(ctx, st.Prompt)
	if err != nil {
		return nil, err
	}

	cleaned := edit.StripBackendHeaders(rendered)
	if block, ok := edit.ExtractJSONBlock(cleaned); ok {
		cleaned = block
	}
	cleaned = strings.TrimSpace(cleaned)

	doc, err := parseStoreDoc(cleaned)
	if err != nil {
		return nil, err
	}

	result := &Result{Output: rendered}
	if deps.Knowledge == nil {
		return result, nil
	}

	counts, err := deps.Knowledge.Write(doc.toBatch())
	if err != nil {
		return result, err
	}
	result.Output = fmt.Sprintf("wrote %d facts, %d relationships, %d entities", counts.Facts, counts.Relationships, counts.Entities)
	return result, nil
}

func runInput(st config.Step) (*Result, error) {
	return &Result{Output: ""}, nil
}

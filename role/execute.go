package role

import (
	"fmt"
	"strings"

	"github.com/ducks/llmux/backend"
	"github.com/ducks/llmux/config"
	"github.com/google/uuid"
)

// Result is the outcome of dispatching one request through a resolved
// role.
type Result struct {
	Output   string
	Outputs  map[string]string
	Backend  string
	Backends []string
	Fallback bool
}

// Execute dispatches req against resolved's backend list per its
// execution mode. registry supplies the live Executor for each backend
// name that is currently enabled — a name in resolved.Backends absent
// from registry is treated as disabled and silently skipped.
func Execute(resolved Resolved, registry map[string]backend.Executor, req backend.Request) (*Result, error) {
	if req.CorrelationID == "" {
		req.CorrelationID = uuid.NewString()
	}

	switch resolved.Execution {
	case config.ExecParallel:
		return executeParallel(resolved, registry, req)
	case config.ExecFallback:
		r, err := executeSequential(resolved, registry, req)
		if r != nil {
			r.Fallback = true
		}
		return r, err
	default:
		return executeSequential(resolved, registry, req)
	}
}

// executeSequential implements both First and Fallback: iterate in
// declaration order, return the first success.
func executeSequential(resolved Resolved, registry map[string]backend.Executor, req backend.Request) (*Result, error) {
	failures := map[string]string{}
	for _, name := range resolved.Backends {
		exec, ok := registry[name]
		if !ok {
			continue
		}
		resp, err := exec.Execute(req)
		if err != nil {
			failures[name] = err.Error()
			continue
		}
		return &Result{Output: resp.Text, Backend: name}, nil
	}
	return nil, &AllFailedError{Failures: failures}
}

type parallelOutcome struct {
	name string
	resp *backend.Response
	err  error
}

// executeParallel dispatches every enabled backend concurrently,
// concatenates successes deterministically in role-declaration order
// with "=== name ===" headers, and enforces min_success.
func executeParallel(resolved Resolved, registry map[string]backend.Executor, req backend.Request) (*Result, error) {
	type indexed struct {
		idx     int
		outcome parallelOutcome
	}

	var enabled []string
	for _, name := range resolved.Backends {
		if _, ok := registry[name]; ok {
			enabled = append(enabled, name)
		}
	}

	ch := make(chan indexed, len(enabled))
	for i, name := range enabled {
		go func(idx int, name string) {
			exec := registry[name]
			resp, err := exec.Execute(req)
			ch <- indexed{idx: idx, outcome: parallelOutcome{name: name, resp: resp, err: err}}
		}(i, name)
	}

	outcomes := make([]parallelOutcome, len(enabled))
	for range enabled {
		ir := <-ch
		outcomes[ir.idx] = ir.outcome
	}

	outputs := map[string]string{}
	var orderedBackends []string
	var b strings.Builder
	for _, o := range outcomes {
		if o.err != nil {
			continue
		}
		outputs[o.name] = o.resp.Text
		orderedBackends = append(orderedBackends, o.name)
		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "=== %s ===\n%s", o.name, o.resp.Text)
	}

	if len(outputs) < resolved.MinSuccess {
		return nil, &InsufficientSuccessesError{
			Succeeded: len(outputs),
			Required:  resolved.MinSuccess,
			Outputs:   outputs,
		}
	}

	return &Result{
		Output:   b.String(),
		Outputs:  outputs,
		Backends: orderedBackends,
	}, nil
}

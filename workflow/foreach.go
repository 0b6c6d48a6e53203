package workflow

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ducks/llmux/config"
	"github.com/ducks/llmux/edit"
	"github.com/ducks/llmux/step"
	"github.com/ducks/llmux/tmpl"
	"github.com/tidwall/gjson"
)

// runForEach evaluates st.ForEach once and runs st sequentially once per
// resulting item, binding `item` in a per-iteration context copy (spec
// §4.J step 6). Iterations never short-circuit on failure; the
// aggregate is built from all of them.
func runForEach(st config.Step, ctx *tmpl.Context, workingDir string, deps step.Deps, outputDir string) (*step.Result, error) {
	val, err := tmpl.EvaluateExpression(ctx, st.ForEach)
	if err != nil {
		return nil, err
	}

	items := forEachItems(val)

	var outputs []string
	var totalMs int64
	anyFailed := false
	allFailed := len(items) > 0

	for idx, item := range items {
		iterCtx := *ctx
		iterCtx.Item = item
		iterCtx.HasItem = true

		result, runErr := step.Run(st, &iterCtx, workingDir, deps)
		if runErr != nil {
			result = &step.Result{Failed: true, Error: runErr.Error()}
		}

		outputs = append(outputs, result.Output)
		totalMs += result.DurationMs
		if result.Failed {
			anyFailed = true
		} else {
			allFailed = false
		}

		writeIterationArtifact(outputDir, st.Name, idx, *result)
	}

	agg := &step.Result{
		Output:     strings.Join(outputs, "\n"),
		Failed:     allFailed,
		DurationMs: totalMs,
	}
	if anyFailed {
		agg.Error = "some iterations failed"
	}
	return agg, nil
}

// forEachItems implements the value-to-item-list coercion of spec
// §4.J step 6: a string first attempts JSON extraction (array iterates
// elementwise, object iterates once as a single item), falling back to
// a comma split; a non-string value iterates directly.
func forEachItems(val interface{}) []interface{} {
	s, isString := val.(string)
	if !isString {
		return nonStringItems(val)
	}

	trimmed := strings.TrimSpace(s)
	candidate := trimmed
	if !gjson.Valid(candidate) {
		if block, ok := edit.ExtractJSONBlock(candidate); ok {
			candidate = block
		}
	}

	if gjson.Valid(candidate) {
		parsed := gjson.Parse(candidate)
		switch {
		case parsed.IsArray():
			var arr []interface{}
			if err := json.Unmarshal([]byte(candidate), &arr); err == nil {
				return arr
			}
		case parsed.IsObject():
			var obj map[string]interface{}
			if err := json.Unmarshal([]byte(candidate), &obj); err == nil {
				return []interface{}{obj}
			}
		}
	}

	parts := strings.Split(s, ",")
	items := make([]interface{}, 0, len(parts))
	for _, p := range parts {
		items = append(items, strings.TrimSpace(p))
	}
	return items
}

func nonStringItems(v interface{}) []interface{} {
	switch t := v.(type) {
	case []interface{}:
		return t
	case []string:
		out := make([]interface{}, len(t))
		for i, s := range t {
			out[i] = s
		}
		return out
	default:
		return []interface{}{v}
	}
}

func writeIterationArtifact(outputDir, stepName string, idx int, result step.Result) {
	if outputDir == "" {
		return
	}
	suffix := "txt"
	if result.Failed {
		suffix = "failed.txt"
	}
	path := filepath.Join(outputDir, fmt.Sprintf("%s.%d.%s", stepName, idx, suffix))
	_ = os.WriteFile(path, []byte(result.Output), 0o644)
}

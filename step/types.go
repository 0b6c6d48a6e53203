// Package step executes one node of a workflow DAG: shell, query, apply,
// store, or input (spec component I). The workflow runner (package
// workflow) drives Run once per step, per for_each iteration.
package step

// Result is one step's outcome, independent of its type.
type Result struct {
	Output     string
	Outputs    map[string]string
	Backend    string
	Backends   []string
	Failed     bool
	Skipped    bool
	Error      string
	DurationMs int64
}

package tmpl

import (
	"fmt"

	"github.com/agnivade/levenshtein"
)

// UndefinedVariableError is raised when rendering or condition evaluation
// needs to coerce an Undefined value to something concrete. It carries a
// nearest-match suggestion per spec §4.A when one is close enough.
type UndefinedVariableError struct {
	Path       string
	BadSegment string
	Candidates []string
}

func (e *UndefinedVariableError) Error() string {
	if s := e.Suggestion(); s != "" {
		return fmt.Sprintf("undefined variable %q (did you mean %q?)", e.Path, s)
	}
	return fmt.Sprintf("undefined variable %q", e.Path)
}

// Suggestion returns the nearest candidate name to BadSegment, provided
// its edit distance is within max(len(BadSegment)/2, 2), or "" otherwise.
func (e *UndefinedVariableError) Suggestion() string {
	if e.BadSegment == "" || len(e.Candidates) == 0 {
		return ""
	}
	threshold := len(e.BadSegment) / 2
	if threshold < 2 {
		threshold = 2
	}

	best := ""
	bestDist := threshold + 1
	for _, c := range e.Candidates {
		d := levenshtein.ComputeDistance(e.BadSegment, c)
		if d < bestDist {
			bestDist = d
			best = c
		}
	}
	if bestDist <= threshold {
		return best
	}
	return ""
}

// SyntaxError is raised for malformed template/expression syntax.
type SyntaxError struct {
	Message string
}

func (e *SyntaxError) Error() string { return "template syntax error: " + e.Message }

// TypeMismatchError is raised when an operator or filter receives a value
// of the wrong runtime type (e.g. `first` on a non-sequence).
type TypeMismatchError struct {
	Message string
}

func (e *TypeMismatchError) Error() string { return "template type mismatch: " + e.Message }

// FilterError is raised for filter-specific misuse (bad arguments, unknown
// filter name, malformed format string).
type FilterError struct {
	Filter  string
	Message string
}

func (e *FilterError) Error() string {
	return fmt.Sprintf("filter %q: %s", e.Filter, e.Message)
}

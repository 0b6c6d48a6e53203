// Package tmpl implements the template engine (spec component A): prompt
// and command rendering, condition evaluation, and a small Jinja-flavored
// expression language with a fixed filter set.
package tmpl

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Undefined is the soft "no such value" result of resolving a variable
// path that doesn't exist in the context. It is a legitimate value that
// can flow through filters like default/join/first/last without raising;
// it only becomes an error when something tries to stringify, branch on,
// or otherwise coerce it to a concrete type.
type Undefined struct {
	// Path is the full dotted path the caller tried to resolve, e.g.
	// "steps.stpe1.output".
	Path string
	// BadSegment is the specific component of Path that could not be
	// resolved, e.g. "stpe1".
	BadSegment string
	// Candidates holds the pool of known names BadSegment should have
	// matched, used to compute a nearest-match suggestion.
	Candidates []string
}

// IsUndefined reports whether v is the Undefined sentinel.
func IsUndefined(v interface{}) bool {
	_, ok := v.(Undefined)
	return ok
}

// isEmptyish reports whether v counts as "missing" for the default filter:
// undefined, nil (none), or an empty string.
func isEmptyish(v interface{}) bool {
	if v == nil || IsUndefined(v) {
		return true
	}
	if s, ok := v.(string); ok {
		return s == ""
	}
	return false
}

// toText coerces v to its textual representation. Coercing Undefined
// raises an UndefinedVariableError built by the caller's context, so this
// function returns an error for Undefined rather than silently
// stringifying it.
func toText(v interface{}) (string, error) {
	if IsUndefined(v) {
		u := v.(Undefined)
		return "", &UndefinedVariableError{Path: u.Path, BadSegment: u.BadSegment, Candidates: u.Candidates}
	}
	return stringify(v), nil
}

// stringify converts any non-Undefined value to text, used once a value
// is already known to be safe to render.
func stringify(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		if t {
			return "true"
		}
		return "false"
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case float64:
		if t == float64(int64(t)) {
			return strconv.FormatInt(int64(t), 10)
		}
		return strconv.FormatFloat(t, 'f', -1, 64)
	case []interface{}:
		parts := make([]string, len(t))
		for i, e := range t {
			parts[i] = stringify(e)
		}
		return strings.Join(parts, ", ")
	case map[string]interface{}:
		b, err := canonicalJSON(t)
		if err != nil {
			return fmt.Sprintf("%v", t)
		}
		return string(b)
	default:
		return fmt.Sprintf("%v", t)
	}
}

// toBool coerces v to a boolean for condition evaluation. Undefined is an
// error here too: spec property 3 requires every unresolved reference to
// error, including inside {% if %}.
func toBool(v interface{}) (bool, error) {
	if IsUndefined(v) {
		u := v.(Undefined)
		return false, &UndefinedVariableError{Path: u.Path, BadSegment: u.BadSegment, Candidates: u.Candidates}
	}
	switch t := v.(type) {
	case nil:
		return false, nil
	case bool:
		return t, nil
	case string:
		return t != "", nil
	case int:
		return t != 0, nil
	case int64:
		return t != 0, nil
	case float64:
		return t != 0, nil
	case []interface{}:
		return len(t) > 0, nil
	case map[string]interface{}:
		return len(t) > 0, nil
	default:
		return true, nil
	}
}

// toSeq coerces v to a sequence. Returns ok=false if v is not iterable.
func toSeq(v interface{}) (seq []interface{}, ok bool) {
	switch t := v.(type) {
	case []interface{}:
		return t, true
	case []string:
		out := make([]interface{}, len(t))
		for i, s := range t {
			out[i] = s
		}
		return out, true
	default:
		return nil, false
	}
}

// toNumber coerces v to a float64 for arithmetic/comparison.
func toNumber(v interface{}) (float64, bool) {
	switch t := v.(type) {
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case float64:
		return t, true
	default:
		return 0, false
	}
}

// canonicalJSON serializes v with sorted map keys for deterministic output,
// backing the `json` filter's "canonical JSON of any value" contract.
func canonicalJSON(v interface{}) ([]byte, error) {
	return json.Marshal(sortedValue(v))
}

// sortedValue recursively rewrites maps into a form encoding/json already
// serializes with sorted keys (it does, for map[string]interface{} -- this
// helper exists to make that contract explicit and to normalize nested
// map[interface{}]interface{} values that may arrive from YAML-sourced
// contexts).
func sortedValue(v interface{}) interface{} {
	switch t := v.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(t))
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			out[k] = sortedValue(t[k])
		}
		return out
	case map[interface{}]interface{}:
		out := make(map[string]interface{}, len(t))
		for k, e := range t {
			out[fmt.Sprint(k)] = sortedValue(e)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(t))
		for i, e := range t {
			out[i] = sortedValue(e)
		}
		return out
	default:
		return t
	}
}

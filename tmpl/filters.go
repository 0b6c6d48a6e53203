package tmpl

import (
	"strings"
	"time"
)

// filterFunc applies a filter to x with already-evaluated args. default,
// join, first, and last are the filters explicitly documented to consume
// Undefined themselves; every other filter raises through toText/toBool
// when handed one.
type filterFunc func(x interface{}, args []interface{}) (interface{}, error)

var filterTable = map[string]filterFunc{
	"shell_escape": filterShellEscape,
	"json":         filterJSON,
	"join":         filterJoin,
	"first":        filterFirst,
	"last":         filterLast,
	"default":      filterDefault,
	"trim":         filterTrim,
	"lines":        filterLines,
	"strftime":     filterStrftime,
}

func evalFilter(ctx *Context, e FilterExpr) (interface{}, error) {
	x, err := Eval(ctx, e.X)
	if err != nil {
		return nil, err
	}
	fn, ok := filterTable[e.Filter]
	if !ok {
		return nil, &FilterError{Filter: e.Filter, Message: "unknown filter"}
	}
	args := make([]interface{}, len(e.Args))
	for i, a := range e.Args {
		v, err := Eval(ctx, a)
		if err != nil {
			return nil, err
		}
		args[i] = v
	}
	return fn(x, args)
}

// filterShellEscape returns s unchanged if it contains only
// [A-Za-z0-9_-./]; otherwise wraps it in single quotes, replacing each
// embedded single quote with '\''.
func filterShellEscape(x interface{}, _ []interface{}) (interface{}, error) {
	s, err := toText(x)
	if err != nil {
		return nil, err
	}
	if isShellSafe(s) {
		return s, nil
	}
	var b strings.Builder
	b.WriteByte('\'')
	for i := 0; i < len(s); i++ {
		if s[i] == '\'' {
			b.WriteString(`'\''`)
		} else {
			b.WriteByte(s[i])
		}
	}
	b.WriteByte('\'')
	return b.String(), nil
}

func isShellSafe(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'A' && c <= 'Z', c >= 'a' && c <= 'z', c >= '0' && c <= '9':
		case c == '_' || c == '-' || c == '.' || c == '/':
		default:
			return false
		}
	}
	return true
}

func filterJSON(x interface{}, _ []interface{}) (interface{}, error) {
	if IsUndefined(x) {
		return nil, toTextErr(x)
	}
	b, err := canonicalJSON(x)
	if err != nil {
		return nil, &FilterError{Filter: "json", Message: err.Error()}
	}
	return string(b), nil
}

// filterJoin: undefined/none input yields "". A non-sequence is
// stringified as-is (mirrors the original "not iterable -> to_string"
// fallback). Otherwise each element is stringified and joined with sep
// (default ", ").
func filterJoin(x interface{}, args []interface{}) (interface{}, error) {
	if IsUndefined(x) || x == nil {
		return "", nil
	}
	sep := ", "
	if len(args) > 0 {
		s, err := toText(args[0])
		if err != nil {
			return nil, err
		}
		sep = s
	}
	seq, ok := toSeq(x)
	if !ok {
		return stringify(x), nil
	}
	parts := make([]string, len(seq))
	for i, e := range seq {
		parts[i] = stringify(e)
	}
	return strings.Join(parts, sep), nil
}

// filterFirst: undefined/none input, or an empty sequence, yields
// Undefined (not an error) so a trailing | default(...) can rescue it.
func filterFirst(x interface{}, _ []interface{}) (interface{}, error) {
	if IsUndefined(x) || x == nil {
		return Undefined{Path: "first()"}, nil
	}
	seq, ok := toSeq(x)
	if !ok {
		return nil, &FilterError{Filter: "first", Message: "requires a sequence"}
	}
	if len(seq) == 0 {
		return Undefined{Path: "first()"}, nil
	}
	return seq[0], nil
}

func filterLast(x interface{}, _ []interface{}) (interface{}, error) {
	if IsUndefined(x) || x == nil {
		return Undefined{Path: "last()"}, nil
	}
	seq, ok := toSeq(x)
	if !ok {
		return nil, &FilterError{Filter: "last", Message: "requires a sequence"}
	}
	if len(seq) == 0 {
		return Undefined{Path: "last()"}, nil
	}
	return seq[len(seq)-1], nil
}

// filterDefault returns args[0] when x is undefined, none, or an empty
// string; otherwise x unchanged.
func filterDefault(x interface{}, args []interface{}) (interface{}, error) {
	if len(args) == 0 {
		return nil, &FilterError{Filter: "default", Message: "requires one argument"}
	}
	if isEmptyish(x) {
		return args[0], nil
	}
	return x, nil
}

func filterTrim(x interface{}, _ []interface{}) (interface{}, error) {
	s, err := toText(x)
	if err != nil {
		return nil, err
	}
	return strings.TrimSpace(s), nil
}

func filterLines(x interface{}, _ []interface{}) (interface{}, error) {
	s, err := toText(x)
	if err != nil {
		return nil, err
	}
	lines := strings.Split(s, "\n")
	out := make([]interface{}, len(lines))
	for i, l := range lines {
		out[i] = strings.TrimSuffix(l, "\r")
	}
	return out, nil
}

// filterStrftime formats x (either the literal string "now", or an
// RFC3339 timestamp) using a strftime-style format string.
func filterStrftime(x interface{}, args []interface{}) (interface{}, error) {
	if len(args) == 0 {
		return nil, &FilterError{Filter: "strftime", Message: "requires a format string argument"}
	}
	format, err := toText(args[0])
	if err != nil {
		return nil, err
	}
	s, err := toText(x)
	if err != nil {
		return nil, err
	}

	var t time.Time
	if s == "now" {
		t = time.Now().UTC()
	} else {
		parsed, parseErr := time.Parse(time.RFC3339, s)
		if parseErr != nil {
			return nil, &FilterError{Filter: "strftime", Message: "failed to parse datetime: " + parseErr.Error()}
		}
		t = parsed.UTC()
	}
	return t.Format(strftimeToGoLayout(format)), nil
}

var strftimeDirectives = map[byte]string{
	'Y': "2006", 'y': "06",
	'm': "01", 'd': "02",
	'H': "15", 'M': "04", 'S': "05",
	'B': "January", 'b': "Jan",
	'A': "Monday", 'a': "Mon",
	'p': "PM", 'Z': "MST", 'z': "-0700",
	'%': "%",
}

// strftimeToGoLayout rewrites a subset of C strftime directives into the
// equivalent Go reference-time layout.
func strftimeToGoLayout(format string) string {
	var b strings.Builder
	for i := 0; i < len(format); i++ {
		if format[i] == '%' && i+1 < len(format) {
			if layout, ok := strftimeDirectives[format[i+1]]; ok {
				b.WriteString(layout)
				i++
				continue
			}
		}
		b.WriteByte(format[i])
	}
	return b.String()
}

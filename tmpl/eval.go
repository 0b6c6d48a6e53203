package tmpl

import "fmt"

// Eval evaluates expr against ctx. It never errors on an unresolved
// variable path by itself -- that produces an Undefined value -- but it
// does error on structurally invalid operations (e.g. comparing
// incompatible types, indexing a non-map).
func Eval(ctx *Context, expr Expr) (interface{}, error) {
	switch e := expr.(type) {
	case Literal:
		return e.Value, nil
	case PathExpr:
		return evalPath(ctx, e), nil
	case UnaryExpr:
		return evalUnary(ctx, e)
	case BinaryExpr:
		return evalBinary(ctx, e)
	case FilterExpr:
		return evalFilter(ctx, e)
	default:
		return nil, &SyntaxError{Message: fmt.Sprintf("unknown expression node %T", expr)}
	}
}

// evalPath resolves a dotted path against ctx. Any segment that cannot be
// resolved yields an Undefined carrying the full path and the offending
// segment, with a candidate pool scoped to where the failure occurred.
func evalPath(ctx *Context, e PathExpr) interface{} {
	full := joinPath(e.Segments)
	root, ok := ctx.resolveRoot(e.Segments[0])
	if !ok {
		return Undefined{Path: full, BadSegment: e.Segments[0], Candidates: topLevelNames}
	}
	if u, ok := root.(Undefined); ok {
		return u
	}

	cur := root
	for i := 1; i < len(e.Segments); i++ {
		seg := e.Segments[i]
		switch c := cur.(type) {
		case envValue:
			v, ok := c.lookup(seg)
			if !ok {
				return Undefined{Path: full, BadSegment: seg}
			}
			cur = v
		case map[string]interface{}:
			v, ok := c[seg]
			if !ok {
				candidates := topLevelNames
				if e.Segments[0] == "steps" && i == 1 {
					candidates = ctx.stepNames()
				} else {
					candidates = mapKeys(c)
				}
				return Undefined{Path: full, BadSegment: seg, Candidates: candidates}
			}
			cur = v
		default:
			return Undefined{Path: full, BadSegment: seg}
		}
	}
	return cur
}

func mapKeys(m map[string]interface{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	return keys
}

func joinPath(segs []string) string {
	out := segs[0]
	for _, s := range segs[1:] {
		out += "." + s
	}
	return out
}

func evalUnary(ctx *Context, e UnaryExpr) (interface{}, error) {
	x, err := Eval(ctx, e.X)
	if err != nil {
		return nil, err
	}
	switch e.Op {
	case "not":
		b, err := toBool(x)
		if err != nil {
			return nil, err
		}
		return !b, nil
	case "-":
		n, ok := toNumber(x)
		if !ok {
			return nil, &TypeMismatchError{Message: "unary - requires a number"}
		}
		return -n, nil
	default:
		return nil, &SyntaxError{Message: "unknown unary operator " + e.Op}
	}
}

func evalBinary(ctx *Context, e BinaryExpr) (interface{}, error) {
	// or/and short-circuit, so evaluate X first and decide before
	// touching Y.
	if e.Op == "or" || e.Op == "and" {
		x, err := Eval(ctx, e.X)
		if err != nil {
			return nil, err
		}
		xb, err := toBool(x)
		if err != nil {
			return nil, err
		}
		if e.Op == "or" && xb {
			return true, nil
		}
		if e.Op == "and" && !xb {
			return false, nil
		}
		y, err := Eval(ctx, e.Y)
		if err != nil {
			return nil, err
		}
		return toBool(y)
	}

	x, err := Eval(ctx, e.X)
	if err != nil {
		return nil, err
	}
	y, err := Eval(ctx, e.Y)
	if err != nil {
		return nil, err
	}

	switch e.Op {
	case "==":
		return valuesEqual(x, y), nil
	case "!=":
		return !valuesEqual(x, y), nil
	case "<", "<=", ">", ">=":
		return compareOrdered(e.Op, x, y)
	case "in":
		return evalIn(x, y)
	case "+", "-", "*", "/", "%":
		return evalArith(e.Op, x, y)
	default:
		return nil, &SyntaxError{Message: "unknown binary operator " + e.Op}
	}
}

// valuesEqual compares two concrete or Undefined values for ==. Two
// Undefined values are equal to each other (both "missing") but not to
// any concrete value, matching the intuition that a missing field isn't
// equal to "", 0, or false.
func valuesEqual(x, y interface{}) bool {
	xu, yu := IsUndefined(x), IsUndefined(y)
	if xu || yu {
		return xu && yu
	}
	if xn, ok := toNumber(x); ok {
		if yn, ok := toNumber(y); ok {
			return xn == yn
		}
	}
	return stringify(x) == stringify(y) && sameKind(x, y)
}

func sameKind(x, y interface{}) bool {
	switch x.(type) {
	case string:
		_, ok := y.(string)
		return ok
	case bool:
		_, ok := y.(bool)
		return ok
	default:
		return fmt.Sprintf("%T", x) == fmt.Sprintf("%T", y)
	}
}

func compareOrdered(op string, x, y interface{}) (interface{}, error) {
	xNum, xIsNum := toNumber(x)
	yNum, yIsNum := toNumber(y)
	if xIsNum && yIsNum {
		return compareNums(op, xNum, yNum), nil
	}
	xs, err := toText(x)
	if err != nil {
		return nil, err
	}
	ys, err := toText(y)
	if err != nil {
		return nil, err
	}
	return compareStrings(op, xs, ys), nil
}

func compareNums(op string, x, y float64) bool {
	switch op {
	case "<":
		return x < y
	case "<=":
		return x <= y
	case ">":
		return x > y
	case ">=":
		return x >= y
	}
	return false
}

func compareStrings(op string, x, y string) bool {
	switch op {
	case "<":
		return x < y
	case "<=":
		return x <= y
	case ">":
		return x > y
	case ">=":
		return x >= y
	}
	return false
}

func evalIn(x, y interface{}) (interface{}, error) {
	if IsUndefined(y) {
		return false, toTextErr(y)
	}
	if seq, ok := toSeq(y); ok {
		for _, e := range seq {
			if valuesEqual(x, e) {
				return true, nil
			}
		}
		return false, nil
	}
	if m, ok := y.(map[string]interface{}); ok {
		xs, err := toText(x)
		if err != nil {
			return nil, err
		}
		_, found := m[xs]
		return found, nil
	}
	if ys, ok := y.(string); ok {
		xs, err := toText(x)
		if err != nil {
			return nil, err
		}
		return containsSub(ys, xs), nil
	}
	return nil, &TypeMismatchError{Message: "'in' requires a sequence, mapping, or string"}
}

func containsSub(haystack, needle string) bool {
	return len(needle) == 0 || indexOf(haystack, needle) >= 0
}

func indexOf(haystack, needle string) int {
	for i := 0; i+len(needle) <= len(haystack); i++ {
		if haystack[i:i+len(needle)] == needle {
			return i
		}
	}
	return -1
}

func toTextErr(v interface{}) error {
	_, err := toText(v)
	return err
}

func evalArith(op string, x, y interface{}) (interface{}, error) {
	if op == "+" {
		if xs, ok := x.(string); ok {
			ys, err := toText(y)
			if err != nil {
				return nil, err
			}
			return xs + ys, nil
		}
		if ys, ok := y.(string); ok {
			xs, err := toText(x)
			if err != nil {
				return nil, err
			}
			return xs + ys, nil
		}
	}
	xn, xok := toNumber(x)
	yn, yok := toNumber(y)
	if !xok || !yok {
		return nil, &TypeMismatchError{Message: "arithmetic operator " + op + " requires numbers"}
	}
	switch op {
	case "+":
		return xn + yn, nil
	case "-":
		return xn - yn, nil
	case "*":
		return xn * yn, nil
	case "/":
		if yn == 0 {
			return nil, &TypeMismatchError{Message: "division by zero"}
		}
		return xn / yn, nil
	case "%":
		if yn == 0 {
			return nil, &TypeMismatchError{Message: "modulo by zero"}
		}
		return float64(int64(xn) % int64(yn)), nil
	default:
		return nil, &SyntaxError{Message: "unknown arithmetic operator " + op}
	}
}

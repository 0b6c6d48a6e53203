package tmpl

import "strings"

// Template is a parsed, reusable template body.
type Template struct {
	nodes []Node
	src   string
}

// Compile parses src once so it can be rendered repeatedly (e.g. inside
// a for_each fan-out) without re-lexing on every iteration.
func Compile(src string) (*Template, error) {
	nodes, err := Parse(src)
	if err != nil {
		return nil, err
	}
	return &Template{nodes: nodes, src: src}, nil
}

// Render renders src against ctx in one call.
func Render(ctx *Context, src string) (string, error) {
	t, err := Compile(src)
	if err != nil {
		return "", err
	}
	return t.Render(ctx)
}

// Render renders a precompiled template against ctx.
func (t *Template) Render(ctx *Context) (string, error) {
	var b strings.Builder
	if err := renderNodes(&b, ctx, t.nodes); err != nil {
		return "", err
	}
	return b.String(), nil
}

func renderNodes(b *strings.Builder, ctx *Context, nodes []Node) error {
	for _, n := range nodes {
		if err := renderNode(b, ctx, n); err != nil {
			return err
		}
	}
	return nil
}

func renderNode(b *strings.Builder, ctx *Context, n Node) error {
	switch node := n.(type) {
	case TextNode:
		b.WriteString(node.Text)
		return nil
	case ExprNode:
		v, err := Eval(ctx, node.Expr)
		if err != nil {
			return err
		}
		s, err := toText(v)
		if err != nil {
			return err
		}
		b.WriteString(s)
		return nil
	case IfNode:
		for _, branch := range node.Branches {
			v, err := Eval(ctx, branch.Cond)
			if err != nil {
				return err
			}
			ok, err := toBool(v)
			if err != nil {
				return err
			}
			if ok {
				return renderNodes(b, ctx, branch.Body)
			}
		}
		return renderNodes(b, ctx, node.ElseBody)
	case ForNode:
		v, err := Eval(ctx, node.Iterable)
		if err != nil {
			return err
		}
		if IsUndefined(v) {
			return toTextErr(v)
		}
		seq, ok := toSeq(v)
		if !ok {
			return &TypeMismatchError{Message: "for loop requires a sequence"}
		}
		for _, item := range seq {
			loopCtx := ctx.withLoopVar(node.Var, item)
			if err := renderNodes(b, loopCtx, node.Body); err != nil {
				return err
			}
		}
		return nil
	default:
		return &SyntaxError{Message: "unknown node type in render"}
	}
}

// EvaluateCondition parses and evaluates src (the body of an `if:` step
// guard) as a boolean expression against ctx.
func EvaluateCondition(ctx *Context, src string) (bool, error) {
	expr, err := parseExpr(src)
	if err != nil {
		return false, err
	}
	v, err := Eval(ctx, expr)
	if err != nil {
		return false, err
	}
	return toBool(v)
}

// EvaluateExpression parses and evaluates a bare expression (no {{ }}
// delimiters), returning its raw value. Used by step types that bind an
// expression result directly instead of interpolating it into text.
func EvaluateExpression(ctx *Context, src string) (interface{}, error) {
	expr, err := parseExpr(src)
	if err != nil {
		return nil, err
	}
	return Eval(ctx, expr)
}

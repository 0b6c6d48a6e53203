package tmpl

import "strings"

// exprParser is a recursive-descent parser over the token stream produced
// by lexExpr. Precedence, loosest to tightest:
//
//	or  and  not  comparison(== != < <= > >= in)  additive(+ -)
//	multiplicative(* / %)  unary(-)  filters(|)  primary
type exprParser struct {
	toks []token
	pos  int
}

func parseExpr(src string) (Expr, error) {
	toks, err := lexExpr(src)
	if err != nil {
		return nil, err
	}
	p := &exprParser{toks: toks}
	e, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if p.cur().kind != tokEOF {
		return nil, &SyntaxError{Message: "unexpected trailing input near " + p.cur().text}
	}
	return e, nil
}

func (p *exprParser) cur() token  { return p.toks[p.pos] }
func (p *exprParser) advance()    { p.pos++ }
func (p *exprParser) isIdent(s string) bool {
	t := p.cur()
	return t.kind == tokIdent && t.text == s
}
func (p *exprParser) isPunct(s string) bool {
	t := p.cur()
	return t.kind == tokPunct && t.text == s
}

func (p *exprParser) parseOr() (Expr, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.isIdent("or") {
		p.advance()
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = BinaryExpr{Op: "or", X: left, Y: right}
	}
	return left, nil
}

func (p *exprParser) parseAnd() (Expr, error) {
	left, err := p.parseNot()
	if err != nil {
		return nil, err
	}
	for p.isIdent("and") {
		p.advance()
		right, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		left = BinaryExpr{Op: "and", X: left, Y: right}
	}
	return left, nil
}

func (p *exprParser) parseNot() (Expr, error) {
	if p.isIdent("not") {
		p.advance()
		x, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		return UnaryExpr{Op: "not", X: x}, nil
	}
	return p.parseComparison()
}

var comparisonOps = map[string]bool{
	"==": true, "!=": true, "<": true, "<=": true, ">": true, ">=": true,
}

func (p *exprParser) parseComparison() (Expr, error) {
	left, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}
	for {
		t := p.cur()
		if t.kind == tokPunct && comparisonOps[t.text] {
			op := t.text
			p.advance()
			right, err := p.parseAdditive()
			if err != nil {
				return nil, err
			}
			left = BinaryExpr{Op: op, X: left, Y: right}
			continue
		}
		if p.isIdent("in") {
			p.advance()
			right, err := p.parseAdditive()
			if err != nil {
				return nil, err
			}
			left = BinaryExpr{Op: "in", X: left, Y: right}
			continue
		}
		break
	}
	return left, nil
}

func (p *exprParser) parseAdditive() (Expr, error) {
	left, err := p.parseMultiplicative()
	if err != nil {
		return nil, err
	}
	for p.isPunct("+") || p.isPunct("-") {
		op := p.cur().text
		p.advance()
		right, err := p.parseMultiplicative()
		if err != nil {
			return nil, err
		}
		left = BinaryExpr{Op: op, X: left, Y: right}
	}
	return left, nil
}

func (p *exprParser) parseMultiplicative() (Expr, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for p.isPunct("*") || p.isPunct("/") || p.isPunct("%") {
		op := p.cur().text
		p.advance()
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = BinaryExpr{Op: op, X: left, Y: right}
	}
	return left, nil
}

func (p *exprParser) parseUnary() (Expr, error) {
	if p.isPunct("-") {
		p.advance()
		x, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return UnaryExpr{Op: "-", X: x}, nil
	}
	return p.parseFiltered()
}

func (p *exprParser) parseFiltered() (Expr, error) {
	x, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	for p.isPunct("|") {
		p.advance()
		if p.cur().kind != tokIdent {
			return nil, &SyntaxError{Message: "expected filter name after |"}
		}
		name := p.cur().text
		p.advance()
		var args []Expr
		if p.isPunct("(") {
			p.advance()
			if !p.isPunct(")") {
				for {
					a, err := p.parseOr()
					if err != nil {
						return nil, err
					}
					args = append(args, a)
					if p.isPunct(",") {
						p.advance()
						continue
					}
					break
				}
			}
			if !p.isPunct(")") {
				return nil, &SyntaxError{Message: "expected ) to close filter arguments"}
			}
			p.advance()
		}
		x = FilterExpr{X: x, Filter: name, Args: args}
	}
	return x, nil
}

func (p *exprParser) parsePrimary() (Expr, error) {
	t := p.cur()
	switch {
	case t.kind == tokNumber:
		p.advance()
		return Literal{Value: t.num}, nil
	case t.kind == tokString:
		p.advance()
		return Literal{Value: t.text}, nil
	case t.kind == tokIdent && t.text == "true":
		p.advance()
		return Literal{Value: true}, nil
	case t.kind == tokIdent && t.text == "false":
		p.advance()
		return Literal{Value: false}, nil
	case t.kind == tokIdent && (t.text == "none" || t.text == "null"):
		p.advance()
		return Literal{Value: nil}, nil
	case t.kind == tokIdent:
		return p.parsePath()
	case t.kind == tokPunct && t.text == "(":
		p.advance()
		x, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if !p.isPunct(")") {
			return nil, &SyntaxError{Message: "expected )"}
		}
		p.advance()
		return x, nil
	default:
		return nil, &SyntaxError{Message: "unexpected token " + describeTok(t)}
	}
}

// parsePath consumes ident (.ident | [expr])* into a PathExpr. Bracket
// subscripts with a string-literal key are folded into plain segments
// (args["key"] is equivalent to args.key); any other bracket expression
// is rejected since path resolution only supports static dotted lookups.
func (p *exprParser) parsePath() (Expr, error) {
	segs := []string{p.cur().text}
	p.advance()
	for {
		if p.isPunct(".") {
			p.advance()
			if p.cur().kind != tokIdent {
				return nil, &SyntaxError{Message: "expected identifier after ."}
			}
			segs = append(segs, p.cur().text)
			p.advance()
			continue
		}
		if p.isPunct("[") {
			p.advance()
			if p.cur().kind != tokString {
				return nil, &SyntaxError{Message: "only string subscripts are supported"}
			}
			segs = append(segs, p.cur().text)
			p.advance()
			if !p.isPunct("]") {
				return nil, &SyntaxError{Message: "expected ]"}
			}
			p.advance()
			continue
		}
		break
	}
	return PathExpr{Segments: segs}, nil
}

func describeTok(t token) string {
	if t.kind == tokEOF {
		return "end of expression"
	}
	return strings.TrimSpace(t.text)
}

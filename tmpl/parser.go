package tmpl

import "strings"

// Parse compiles template source into a node tree ready for rendering.
func Parse(src string) ([]Node, error) {
	segs, err := lex(src)
	if err != nil {
		return nil, err
	}
	segs = applyTrim(segs)
	p := &blockParser{segs: segs}
	nodes, err := p.parseNodes()
	if err != nil {
		return nil, err
	}
	if p.pos != len(p.segs) {
		return nil, &SyntaxError{Message: "unexpected {% " + p.segs[p.pos].content + " %} without matching opener"}
	}
	return nodes, nil
}

type blockParser struct {
	segs []segment
	pos  int
}

// parseNodes consumes segments until EOF or a block-closing/else/elif
// keyword, which it leaves unconsumed for the caller to inspect.
func (p *blockParser) parseNodes() ([]Node, error) {
	var nodes []Node
	for p.pos < len(p.segs) {
		s := p.segs[p.pos]
		switch s.kind {
		case segText:
			if s.content != "" {
				nodes = append(nodes, TextNode{Text: s.content})
			}
			p.pos++
		case segExpr:
			e, err := parseExpr(s.content)
			if err != nil {
				return nil, err
			}
			nodes = append(nodes, ExprNode{Expr: e})
			p.pos++
		case segStmt:
			kw, _ := splitKeyword(s.content)
			if kw == "endif" || kw == "endfor" || kw == "else" || kw == "elif" {
				return nodes, nil
			}
			switch kw {
			case "if":
				n, err := p.parseIf()
				if err != nil {
					return nil, err
				}
				nodes = append(nodes, n)
			case "for":
				n, err := p.parseFor()
				if err != nil {
					return nil, err
				}
				nodes = append(nodes, n)
			default:
				return nil, &SyntaxError{Message: "unknown tag {% " + s.content + " %}"}
			}
		}
	}
	return nodes, nil
}

func splitKeyword(content string) (kw, rest string) {
	content = strings.TrimSpace(content)
	i := strings.IndexAny(content, " \t\r\n")
	if i == -1 {
		return content, ""
	}
	return content[:i], strings.TrimSpace(content[i:])
}

func (p *blockParser) parseIf() (Node, error) {
	_, rest := splitKeyword(p.segs[p.pos].content)
	cond, err := parseExpr(rest)
	if err != nil {
		return nil, err
	}
	p.pos++

	node := IfNode{}
	body, err := p.parseNodes()
	if err != nil {
		return nil, err
	}
	node.Branches = append(node.Branches, ifBranch{Cond: cond, Body: body})

	for p.pos < len(p.segs) && p.segs[p.pos].kind == segStmt {
		kw, rest := splitKeyword(p.segs[p.pos].content)
		if kw == "elif" {
			cond, err := parseExpr(rest)
			if err != nil {
				return nil, err
			}
			p.pos++
			body, err := p.parseNodes()
			if err != nil {
				return nil, err
			}
			node.Branches = append(node.Branches, ifBranch{Cond: cond, Body: body})
			continue
		}
		if kw == "else" {
			p.pos++
			body, err := p.parseNodes()
			if err != nil {
				return nil, err
			}
			node.ElseBody = body
			continue
		}
		break
	}

	if err := p.expectClose("endif"); err != nil {
		return nil, err
	}
	return node, nil
}

func (p *blockParser) parseFor() (Node, error) {
	_, rest := splitKeyword(p.segs[p.pos].content)
	parts := strings.SplitN(rest, " in ", 2)
	if len(parts) != 2 {
		return nil, &SyntaxError{Message: "expected 'for VAR in ITERABLE'"}
	}
	varName := strings.TrimSpace(parts[0])
	if varName == "" {
		return nil, &SyntaxError{Message: "expected loop variable name"}
	}
	iter, err := parseExpr(strings.TrimSpace(parts[1]))
	if err != nil {
		return nil, err
	}
	p.pos++

	body, err := p.parseNodes()
	if err != nil {
		return nil, err
	}
	if err := p.expectClose("endfor"); err != nil {
		return nil, err
	}
	return ForNode{Var: varName, Iterable: iter, Body: body}, nil
}

func (p *blockParser) expectClose(kw string) error {
	if p.pos >= len(p.segs) || p.segs[p.pos].kind != segStmt {
		return &SyntaxError{Message: "missing {% " + kw + " %}"}
	}
	got, _ := splitKeyword(p.segs[p.pos].content)
	if got != kw {
		return &SyntaxError{Message: "expected {% " + kw + " %}, got {% " + p.segs[p.pos].content + " %}"}
	}
	p.pos++
	return nil
}

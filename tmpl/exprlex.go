package tmpl

import (
	"strconv"
	"strings"
)

type tokKind int

const (
	tokEOF tokKind = iota
	tokIdent
	tokNumber
	tokString
	tokPunct
)

type token struct {
	kind tokKind
	text string
	num  float64
}

// exprLexer tokenizes the small expression language used inside
// {{ }}, {% if %}, and {% for x in ... %}.
type exprLexer struct {
	src    string
	pos    int
	tokens []token
}

func lexExpr(src string) ([]token, error) {
	l := &exprLexer{src: src}
	for {
		l.skipSpace()
		if l.pos >= len(l.src) {
			l.tokens = append(l.tokens, token{kind: tokEOF})
			return l.tokens, nil
		}
		c := l.src[l.pos]
		switch {
		case c == '\'' || c == '"':
			s, err := l.readString(c)
			if err != nil {
				return nil, err
			}
			l.tokens = append(l.tokens, token{kind: tokString, text: s})
		case c >= '0' && c <= '9':
			l.tokens = append(l.tokens, l.readNumber())
		case isIdentStart(c):
			l.tokens = append(l.tokens, l.readIdent())
		default:
			tok, err := l.readPunct()
			if err != nil {
				return nil, err
			}
			l.tokens = append(l.tokens, tok)
		}
	}
}

func (l *exprLexer) skipSpace() {
	for l.pos < len(l.src) && isSpace(l.src[l.pos]) {
		l.pos++
	}
}

func isSpace(c byte) bool { return c == ' ' || c == '\t' || c == '\n' || c == '\r' }

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentCont(c byte) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9')
}

func (l *exprLexer) readIdent() token {
	start := l.pos
	for l.pos < len(l.src) && isIdentCont(l.src[l.pos]) {
		l.pos++
	}
	return token{kind: tokIdent, text: l.src[start:l.pos]}
}

func (l *exprLexer) readNumber() token {
	start := l.pos
	for l.pos < len(l.src) && (l.src[l.pos] >= '0' && l.src[l.pos] <= '9') {
		l.pos++
	}
	if l.pos < len(l.src) && l.src[l.pos] == '.' {
		l.pos++
		for l.pos < len(l.src) && (l.src[l.pos] >= '0' && l.src[l.pos] <= '9') {
			l.pos++
		}
	}
	text := l.src[start:l.pos]
	n, _ := strconv.ParseFloat(text, 64)
	return token{kind: tokNumber, text: text, num: n}
}

func (l *exprLexer) readString(quote byte) (string, error) {
	l.pos++ // consume opening quote
	var b strings.Builder
	for {
		if l.pos >= len(l.src) {
			return "", &SyntaxError{Message: "unterminated string literal"}
		}
		c := l.src[l.pos]
		if c == quote {
			l.pos++
			return b.String(), nil
		}
		if c == '\\' && l.pos+1 < len(l.src) {
			next := l.src[l.pos+1]
			switch next {
			case 'n':
				b.WriteByte('\n')
			case 't':
				b.WriteByte('\t')
			case '\\', '\'', '"':
				b.WriteByte(next)
			default:
				b.WriteByte(next)
			}
			l.pos += 2
			continue
		}
		b.WriteByte(c)
		l.pos++
	}
}

var multiCharPunct = []string{"==", "!=", "<=", ">=", "||", "&&"}

func (l *exprLexer) readPunct() (token, error) {
	for _, mc := range multiCharPunct {
		if strings.HasPrefix(l.src[l.pos:], mc) {
			l.pos += len(mc)
			return token{kind: tokPunct, text: mc}, nil
		}
	}
	c := l.src[l.pos]
	switch c {
	case '.', '[', ']', '(', ')', ',', '|', '<', '>', '+', '-', '*', '/', '%', '=', '!':
		l.pos++
		return token{kind: tokPunct, text: string(c)}, nil
	default:
		return token{}, &SyntaxError{Message: "unexpected character " + strconv.QuoteRune(rune(c))}
	}
}

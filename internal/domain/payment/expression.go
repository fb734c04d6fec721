package payment

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

// The selector micro-language. Config rows historically evaluated arbitrary
// host-language code; this package replaces that with a closed expression
// grammar interpreted over an explicit AST:
//
//	expression := concat { "??" concat }
//	concat     := atom { "+" atom }
//	atom       := 'string' | "string" | number | path
//	path       := ident { "." ident }
//
// Paths resolve through Context.Lookup, "+" concatenates stringified values,
// and "??" yields the right operand when the left is undefined. Nothing else
// is expressible, which is the point.

// ExprNode is one node of a parsed selector expression
type ExprNode interface {
	Eval(ctx *Context) (any, error)
}

type litNode struct {
	value any
}

func (n litNode) Eval(*Context) (any, error) {
	return n.value, nil
}

type pathNode struct {
	path string
}

func (n pathNode) Eval(ctx *Context) (any, error) {
	v, ok := ctx.Lookup(n.path)
	if !ok {
		return nil, nil
	}
	return v, nil
}

type concatNode struct {
	parts []ExprNode
}

func (n concatNode) Eval(ctx *Context) (any, error) {
	var sb strings.Builder
	for _, part := range n.parts {
		v, err := part.Eval(ctx)
		if err != nil {
			return nil, err
		}
		sb.WriteString(stringify(v))
	}
	return sb.String(), nil
}

type fallbackNode struct {
	left, right ExprNode
}

func (n fallbackNode) Eval(ctx *Context) (any, error) {
	v, err := n.left.Eval(ctx)
	if err != nil {
		return nil, err
	}
	if defined(v) {
		return v, nil
	}
	return n.right.Eval(ctx)
}

// EvalExpression parses and evaluates a selector expression against a context
func EvalExpression(src string, ctx *Context) (any, error) {
	node, err := ParseExpression(src)
	if err != nil {
		return nil, err
	}
	return node.Eval(ctx)
}

// ParseExpression parses a selector expression into its AST
func ParseExpression(src string) (ExprNode, error) {
	toks, err := lexExpression(src)
	if err != nil {
		return nil, err
	}
	p := &exprParser{toks: toks}
	node, err := p.parseFallback()
	if err != nil {
		return nil, err
	}
	if p.peek().kind != tokEOF {
		return nil, fmt.Errorf("payment: unexpected %q in expression %q", p.peek().text, src)
	}
	return node, nil
}

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokString
	tokNumber
	tokPath
	tokPlus
	tokCoalesce
)

type token struct {
	kind tokenKind
	text string
}

func lexExpression(src string) ([]token, error) {
	var toks []token
	runes := []rune(src)
	i := 0
	for i < len(runes) {
		r := runes[i]
		switch {
		case unicode.IsSpace(r):
			i++
		case r == '+':
			toks = append(toks, token{tokPlus, "+"})
			i++
		case r == '?':
			if i+1 >= len(runes) || runes[i+1] != '?' {
				return nil, fmt.Errorf("payment: stray '?' in expression %q", src)
			}
			toks = append(toks, token{tokCoalesce, "??"})
			i += 2
		case r == '\'' || r == '"':
			quote := r
			j := i + 1
			for j < len(runes) && runes[j] != quote {
				j++
			}
			if j >= len(runes) {
				return nil, fmt.Errorf("payment: unterminated string in expression %q", src)
			}
			toks = append(toks, token{tokString, string(runes[i+1 : j])})
			i = j + 1
		case unicode.IsDigit(r):
			j := i
			for j < len(runes) && (unicode.IsDigit(runes[j]) || runes[j] == '.') {
				j++
			}
			toks = append(toks, token{tokNumber, string(runes[i:j])})
			i = j
		case unicode.IsLetter(r) || r == '_':
			j := i
			for j < len(runes) && (unicode.IsLetter(runes[j]) || unicode.IsDigit(runes[j]) || runes[j] == '_' || runes[j] == '.') {
				j++
			}
			toks = append(toks, token{tokPath, string(runes[i:j])})
			i = j
		default:
			return nil, fmt.Errorf("payment: invalid character %q in expression %q", r, src)
		}
	}
	toks = append(toks, token{tokEOF, ""})
	return toks, nil
}

type exprParser struct {
	toks []token
	pos  int
}

func (p *exprParser) peek() token {
	return p.toks[p.pos]
}

func (p *exprParser) next() token {
	t := p.toks[p.pos]
	p.pos++
	return t
}

func (p *exprParser) parseFallback() (ExprNode, error) {
	left, err := p.parseConcat()
	if err != nil {
		return nil, err
	}
	for p.peek().kind == tokCoalesce {
		p.next()
		right, err := p.parseConcat()
		if err != nil {
			return nil, err
		}
		left = fallbackNode{left: left, right: right}
	}
	return left, nil
}

func (p *exprParser) parseConcat() (ExprNode, error) {
	first, err := p.parseAtom()
	if err != nil {
		return nil, err
	}
	parts := []ExprNode{first}
	for p.peek().kind == tokPlus {
		p.next()
		part, err := p.parseAtom()
		if err != nil {
			return nil, err
		}
		parts = append(parts, part)
	}
	if len(parts) == 1 {
		return first, nil
	}
	return concatNode{parts: parts}, nil
}

func (p *exprParser) parseAtom() (ExprNode, error) {
	t := p.next()
	switch t.kind {
	case tokString:
		return litNode{value: t.text}, nil
	case tokNumber:
		d, err := decimal.NewFromString(t.text)
		if err != nil {
			return nil, fmt.Errorf("payment: invalid number %q in expression", t.text)
		}
		return litNode{value: d}, nil
	case tokPath:
		return pathNode{path: t.text}, nil
	default:
		return nil, fmt.Errorf("payment: expected value, got %q", t.text)
	}
}

// Interpolate substitutes {{expression}} placeholders in a template string.
// A placeholder that evaluates to an undefined value is an error; optional
// pieces must declare a fallback ("{{options.callback ?? ''}}").
func Interpolate(template string, ctx *Context) (string, error) {
	var sb strings.Builder
	rest := template
	for {
		start := strings.Index(rest, "{{")
		if start < 0 {
			sb.WriteString(rest)
			return sb.String(), nil
		}
		end := strings.Index(rest[start:], "}}")
		if end < 0 {
			return "", fmt.Errorf("payment: unterminated placeholder in template %q", template)
		}
		sb.WriteString(rest[:start])
		expr := rest[start+2 : start+end]
		v, err := EvalExpression(strings.TrimSpace(expr), ctx)
		if err != nil {
			return "", err
		}
		if v == nil {
			return "", fmt.Errorf("payment: placeholder %q resolved to nothing", strings.TrimSpace(expr))
		}
		sb.WriteString(stringify(v))
		rest = rest[start+end+2:]
	}
}

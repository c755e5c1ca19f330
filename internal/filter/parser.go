package filter

import (
	"regexp"
	"strings"
)

// Node is a tag expression AST node.
type Node interface {
	eval(tags map[string]struct{}) bool
	String() string
}

// Tag is true when the subject holds Name.
type Tag struct{ Name string }

// Not negates X.
type Not struct{ X Node }

// And is true when both sides are.
type And struct{ Left, Right Node }

// Or is true when either side is.
type Or struct{ Left, Right Node }

func (n Tag) eval(tags map[string]struct{}) bool {
	_, ok := tags[n.Name]
	return ok
}

func (n Not) eval(tags map[string]struct{}) bool { return !n.X.eval(tags) }
func (n And) eval(tags map[string]struct{}) bool { return n.Left.eval(tags) && n.Right.eval(tags) }
func (n Or) eval(tags map[string]struct{}) bool  { return n.Left.eval(tags) || n.Right.eval(tags) }

func (n Tag) String() string { return n.Name }
func (n Not) String() string { return "!" + n.X.String() }
func (n And) String() string { return "(" + n.Left.String() + " & " + n.Right.String() + ")" }
func (n Or) String() string  { return "(" + n.Left.String() + " | " + n.Right.String() + ")" }

// Eval reports whether tags satisfy n.
func Eval(n Node, tags []string) bool {
	set := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		set[t] = struct{}{}
	}
	return n.eval(set)
}

// ParseError is a syntax error in a tag expression. Msg is one of
// "Empty expression", "Unexpected end of expression", "Expected ')'" or
// "Unexpected token '<x>'".
type ParseError struct {
	Msg string
}

func (e *ParseError) Error() string { return e.Msg }

var (
	keywords  = regexp.MustCompile(`(?i)\b(AND|OR|NOT)\b`)
	exprChars = regexp.MustCompile(`[&|()!#]`)
)

// looksLikeExpression reports whether s uses tag expression syntax.
func looksLikeExpression(s string) bool {
	return exprChars.MatchString(s) || keywords.MatchString(s)
}

// rewrite strips '#' prefixes and turns AND/OR/NOT words into operators.
func rewrite(s string) string {
	s = strings.ReplaceAll(s, "#", "")
	return keywords.ReplaceAllStringFunc(s, func(w string) string {
		switch strings.ToUpper(w) {
		case "AND":
			return "&"
		case "OR":
			return "|"
		default:
			return "!"
		}
	})
}

// Parse reads a tag expression. '#' characters are ignored and the words
// AND, OR and NOT (any case) stand for & | !.
func Parse(input string) (Node, error) {
	p := &parser{toks: Lex(rewrite(input))}
	if len(p.toks) == 0 {
		return nil, &ParseError{Msg: "Empty expression"}
	}
	n, err := p.or()
	if err != nil {
		return nil, err
	}
	if tok, ok := p.peek(); ok {
		return nil, unexpected(tok)
	}
	return n, nil
}

type parser struct {
	toks []Token
	pos  int
}

func (p *parser) peek() (Token, bool) {
	if p.pos >= len(p.toks) {
		return Token{}, false
	}
	return p.toks[p.pos], true
}

func (p *parser) accept(kind TokenKind) bool {
	if tok, ok := p.peek(); ok && tok.Kind == kind {
		p.pos++
		return true
	}
	return false
}

func (p *parser) or() (Node, error) {
	left, err := p.and()
	if err != nil {
		return nil, err
	}
	for p.accept(TokenOr) {
		right, err := p.and()
		if err != nil {
			return nil, err
		}
		left = Or{Left: left, Right: right}
	}
	return left, nil
}

func (p *parser) and() (Node, error) {
	left, err := p.primary()
	if err != nil {
		return nil, err
	}
	for p.accept(TokenAnd) {
		right, err := p.primary()
		if err != nil {
			return nil, err
		}
		left = And{Left: left, Right: right}
	}
	return left, nil
}

func (p *parser) primary() (Node, error) {
	tok, ok := p.peek()
	if !ok {
		return nil, &ParseError{Msg: "Unexpected end of expression"}
	}
	p.pos++

	switch tok.Kind {
	case TokenNot:
		x, err := p.primary()
		if err != nil {
			return nil, err
		}
		return Not{X: x}, nil
	case TokenLParen:
		n, err := p.or()
		if err != nil {
			return nil, err
		}
		if !p.accept(TokenRParen) {
			return nil, &ParseError{Msg: "Expected ')'"}
		}
		return n, nil
	case TokenTag:
		return Tag{Name: tok.Text}, nil
	default:
		return nil, unexpected(tok)
	}
}

func unexpected(tok Token) *ParseError {
	return &ParseError{Msg: "Unexpected token '" + tok.Text + "'"}
}

package filter

// TokenKind identifies a lexical token in a tag expression.
type TokenKind int

const (
	TokenTag TokenKind = iota
	TokenLParen
	TokenRParen
	TokenNot
	TokenAnd
	TokenOr
)

// Token is one lexed unit. Text is the tag name or the operator character.
type Token struct {
	Kind TokenKind
	Text string
}

var operators = map[byte]TokenKind{
	'(': TokenLParen,
	')': TokenRParen,
	'!': TokenNot,
	'&': TokenAnd,
	'|': TokenOr,
}

func isTagByte(c byte) bool {
	return c == '_' ||
		('0' <= c && c <= '9') ||
		('a' <= c && c <= 'z') ||
		('A' <= c && c <= 'Z')
}

// Lex splits s into tag-name runs and the operators ( ) ! & |. Every other
// byte separates tokens and is dropped.
func Lex(s string) []Token {
	var toks []Token
	for i := 0; i < len(s); {
		c := s[i]
		if kind, ok := operators[c]; ok {
			toks = append(toks, Token{Kind: kind, Text: string(c)})
			i++
			continue
		}
		if isTagByte(c) {
			j := i + 1
			for j < len(s) && isTagByte(s[j]) {
				j++
			}
			toks = append(toks, Token{Kind: TokenTag, Text: s[i:j]})
			i = j
			continue
		}
		i++
	}
	return toks
}

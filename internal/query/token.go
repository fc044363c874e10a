// Package query implements the SFXVault search query language: a tokenizer
// and recursive-descent parser producing a typed boolean expression tree.
//
// The language is deliberately forgiving. Lexing is total (any input yields
// a token stream) and parsing never fails: malformed queries degrade to a
// single literal-text term so the search surface never shows a syntax error.
package query

// TokenKind identifies the lexical class of a token.
type TokenKind int

const (
	// TokenWord is a bare word (free text).
	TokenWord TokenKind = iota
	// TokenQuoted is the unescaped content of a "..." phrase.
	TokenQuoted
	// TokenAnd is the boolean AND operator (case-insensitive).
	TokenAnd
	// TokenOr is the boolean OR operator (case-insensitive).
	TokenOr
	// TokenNot is the boolean NOT operator (case-insensitive).
	TokenNot
	// TokenLParen is "(".
	TokenLParen
	// TokenRParen is ")".
	TokenRParen
	// TokenField is a field expression such as "duration:>3s".
	TokenField
	// TokenEOF terminates every token stream.
	TokenEOF
)

// String returns the token kind name for diagnostics.
func (k TokenKind) String() string {
	switch k {
	case TokenWord:
		return "WORD"
	case TokenQuoted:
		return "QUOTED"
	case TokenAnd:
		return "AND"
	case TokenOr:
		return "OR"
	case TokenNot:
		return "NOT"
	case TokenLParen:
		return "LPAREN"
	case TokenRParen:
		return "RPAREN"
	case TokenField:
		return "FIELD"
	case TokenEOF:
		return "EOF"
	}
	return "UNKNOWN"
}

// Token is a single lexed unit. Pos is the byte offset in the input and is
// used for diagnostics only; it never affects parsing decisions.
type Token struct {
	Kind TokenKind
	Text string
	Pos  int
}

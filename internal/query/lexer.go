package query

import "strings"

// Tokenize scans a raw query string into tokens. It is total: any input,
// including garbage, produces a valid token stream ending with an EOF token
// whose position equals len(input).
//
// Rules:
//   - whitespace separates tokens and is otherwise ignored
//   - "(" and ")" are single-character tokens
//   - `"..."` produces a QUOTED token; `\` escapes the next character; an
//     unterminated quote consumes to end-of-input without error
//   - any other run of non-space, non-paren characters is a word; AND/OR/NOT
//     (compared uppercased) become operator tokens, words containing ":"
//     become FIELD tokens
func Tokenize(input string) []Token {
	var tokens []Token
	i := 0
	n := len(input)

	for i < n {
		c := input[i]

		if isSpace(c) {
			i++
			continue
		}

		switch c {
		case '(':
			tokens = append(tokens, Token{Kind: TokenLParen, Text: "(", Pos: i})
			i++
			continue
		case ')':
			tokens = append(tokens, Token{Kind: TokenRParen, Text: ")", Pos: i})
			i++
			continue
		case '"':
			tok, next := scanQuoted(input, i)
			tokens = append(tokens, tok)
			i = next
			continue
		}

		tok, next := scanWord(input, i)
		tokens = append(tokens, tok)
		i = next
	}

	tokens = append(tokens, Token{Kind: TokenEOF, Pos: n})
	return tokens
}

// scanQuoted consumes a quoted phrase starting at the opening quote.
// Unterminated quotes collect everything to end-of-input.
func scanQuoted(input string, start int) (Token, int) {
	var sb strings.Builder
	i := start + 1
	n := len(input)

	for i < n {
		c := input[i]
		if c == '\\' && i+1 < n {
			sb.WriteByte(input[i+1])
			i += 2
			continue
		}
		if c == '"' {
			i++
			break
		}
		sb.WriteByte(c)
		i++
	}

	return Token{Kind: TokenQuoted, Text: sb.String(), Pos: start}, i
}

// scanWord consumes a run of non-space, non-paren, non-quote characters and
// classifies it as an operator, field expression, or plain word.
func scanWord(input string, start int) (Token, int) {
	i := start
	n := len(input)
	for i < n {
		c := input[i]
		if isSpace(c) || c == '(' || c == ')' || c == '"' {
			break
		}
		i++
	}
	text := input[start:i]

	switch strings.ToUpper(text) {
	case "AND":
		return Token{Kind: TokenAnd, Text: text, Pos: start}, i
	case "OR":
		return Token{Kind: TokenOr, Text: text, Pos: start}, i
	case "NOT":
		return Token{Kind: TokenNot, Text: text, Pos: start}, i
	}

	if strings.Contains(text, ":") {
		return Token{Kind: TokenField, Text: text, Pos: start}, i
	}

	return Token{Kind: TokenWord, Text: text, Pos: start}, i
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}

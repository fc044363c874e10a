package query

import (
	"errors"
	"fmt"
	"strings"
)

// Parse builds a Query from a raw search string. It never fails: on any
// structural error (unexpected token, unmatched paren, premature EOF,
// trailing tokens after a complete expression) the partial tree is abandoned
// and Parsed falls back to a single free-text term equal to the raw input.
// Malformed queries degrade to "search for this literally" instead of
// erroring the UI.
func Parse(raw string) *Query {
	p := &parser{tokens: Tokenize(raw)}

	node, err := p.parseExpression()
	if err != nil || !p.at(TokenEOF) {
		return &Query{Raw: raw, Parsed: &Term{Value: raw, Op: OpEquals}}
	}

	return &Query{Raw: raw, Parsed: node}
}

// parser is a single-use recursive-descent parser over a token stream.
type parser struct {
	tokens []Token
	pos    int
}

func (p *parser) peek() Token {
	return p.tokens[p.pos]
}

func (p *parser) next() Token {
	t := p.tokens[p.pos]
	if t.Kind != TokenEOF {
		p.pos++
	}
	return t
}

func (p *parser) at(kind TokenKind) bool {
	return p.peek().Kind == kind
}

// parseExpression handles "term ((AND|OR) term)*". AND and OR share one
// precedence level and associate left, matching plain search-box semantics.
func (p *parser) parseExpression() (Node, error) {
	left, err := p.parseTerm()
	if err != nil {
		return nil, err
	}

	for p.at(TokenAnd) || p.at(TokenOr) {
		op := BoolAnd
		if p.at(TokenOr) {
			op = BoolOr
		}
		p.next()

		right, err := p.parseTerm()
		if err != nil {
			return nil, err
		}
		left = &Expression{Left: left, Op: op, Right: right}
	}

	return left, nil
}

// parseTerm handles "NOT? factor". NOT on a bare term flips its Negated
// flag; NOT on a parenthesized group wraps it in a match-all NOT expression
// (see Expression docs).
func (p *parser) parseTerm() (Node, error) {
	negate := false
	if p.at(TokenNot) {
		p.next()
		negate = true
	}

	node, err := p.parseFactor()
	if err != nil {
		return nil, err
	}

	if !negate {
		return node, nil
	}

	switch v := node.(type) {
	case *Term:
		v.Negated = true
		return v, nil
	default:
		return &Expression{Left: MatchAll(), Op: BoolNot, Right: node}, nil
	}
}

func (p *parser) parseFactor() (Node, error) {
	if p.at(TokenLParen) {
		p.next()
		inner, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		if !p.at(TokenRParen) {
			return nil, fmt.Errorf("expected ')' at offset %d", p.peek().Pos)
		}
		p.next()
		return inner, nil
	}
	return p.parseAtom()
}

func (p *parser) parseAtom() (Node, error) {
	tok := p.peek()
	switch tok.Kind {
	case TokenWord, TokenQuoted:
		p.next()
		return &Term{Value: tok.Text, Op: OpEquals}, nil
	case TokenField:
		p.next()
		return parseFieldTerm(tok.Text)
	default:
		return nil, fmt.Errorf("unexpected %s at offset %d", tok.Kind, tok.Pos)
	}
}

// fieldOps lists comparison prefixes, longest first so ">=" wins over ">".
var fieldOps = []Operator{OpGreaterEq, OpLessEq, OpNotEquals, OpGreater, OpLess, OpEquals, OpContains}

// parseFieldTerm splits "name:[op]value" into a field predicate. The field
// name is lowercased; duration values are normalized to decimal seconds.
func parseFieldTerm(text string) (*Term, error) {
	idx := strings.Index(text, ":")
	if idx < 0 {
		return nil, errors.New("field token without separator")
	}

	name := strings.ToLower(text[:idx])
	rest := text[idx+1:]
	if name == "" || rest == "" {
		return nil, fmt.Errorf("incomplete field expression %q", text)
	}

	op := OpEquals
	for _, candidate := range fieldOps {
		if strings.HasPrefix(rest, string(candidate)) {
			op = candidate
			rest = rest[len(candidate):]
			break
		}
	}
	if rest == "" {
		return nil, fmt.Errorf("field expression %q has no value", text)
	}

	if name == durationField {
		if secs, ok := normalizeDuration(rest); ok {
			rest = secs
		}
	}

	return &Term{Value: rest, Field: name, Op: op}, nil
}

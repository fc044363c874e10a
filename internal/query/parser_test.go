package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func requireTerm(t *testing.T, n Node) *Term {
	t.Helper()
	term, ok := n.(*Term)
	require.True(t, ok, "expected *Term, got %T", n)
	return term
}

func requireExpr(t *testing.T, n Node) *Expression {
	t.Helper()
	expr, ok := n.(*Expression)
	require.True(t, ok, "expected *Expression, got %T", n)
	return expr
}

func TestParse_SingleWord(t *testing.T) {
	q := Parse("explosion")
	term := requireTerm(t, q.Parsed)
	assert.Equal(t, "explosion", term.Value)
	assert.Empty(t, term.Field)
	assert.False(t, term.Negated)
}

func TestParse_QuotedPhrase(t *testing.T) {
	q := Parse(`"glass break"`)
	term := requireTerm(t, q.Parsed)
	assert.Equal(t, "glass break", term.Value)
}

func TestParse_BooleanAnd(t *testing.T) {
	q := Parse("explosion AND fire")
	expr := requireExpr(t, q.Parsed)
	assert.Equal(t, BoolAnd, expr.Op)
	assert.Equal(t, "explosion", requireTerm(t, expr.Left).Value)
	assert.Equal(t, "fire", requireTerm(t, expr.Right).Value)
}

func TestParse_LeftAssociativeEqualPrecedence(t *testing.T) {
	// a AND b OR c parses as (a AND b) OR c: no precedence between AND/OR.
	q := Parse("a AND b OR c")
	top := requireExpr(t, q.Parsed)
	assert.Equal(t, BoolOr, top.Op)
	assert.Equal(t, "c", requireTerm(t, top.Right).Value)

	inner := requireExpr(t, top.Left)
	assert.Equal(t, BoolAnd, inner.Op)
	assert.Equal(t, "a", requireTerm(t, inner.Left).Value)
	assert.Equal(t, "b", requireTerm(t, inner.Right).Value)
}

func TestParse_GroupedWithDurationField(t *testing.T) {
	q := Parse("(explosion OR impact) AND duration:>3s")
	top := requireExpr(t, q.Parsed)
	assert.Equal(t, BoolAnd, top.Op)

	group := requireExpr(t, top.Left)
	assert.Equal(t, BoolOr, group.Op)

	dur := requireTerm(t, top.Right)
	assert.Equal(t, "duration", dur.Field)
	assert.Equal(t, OpGreater, dur.Op)
	assert.Equal(t, "3.0", dur.Value)
}

func TestParse_FieldOperators(t *testing.T) {
	tests := []struct {
		input string
		field string
		op    Operator
		value string
	}{
		{"category:impact", "category", OpEquals, "impact"},
		{"category:=impact", "category", OpEquals, "impact"},
		{"category:!=ambience", "category", OpNotEquals, "ambience"},
		{"name:~whoosh", "name", OpContains, "whoosh"},
		{"duration:>=1.5m", "duration", OpGreaterEq, "90.0"},
		{"duration:<=1500ms", "duration", OpLessEq, "1.5"},
		{"duration:<2m", "duration", OpLess, "120.0"},
		{"SampleRate:>44100", "samplerate", OpGreater, "44100"},
	}

	for _, tc := range tests {
		t.Run(tc.input, func(t *testing.T) {
			term := requireTerm(t, Parse(tc.input).Parsed)
			assert.Equal(t, tc.field, term.Field)
			assert.Equal(t, tc.op, term.Op)
			assert.Equal(t, tc.value, term.Value)
		})
	}
}

func TestParse_DurationNormalization(t *testing.T) {
	tests := map[string]string{
		"duration:90s":    "90.0",
		"duration:1.5m":   "90.0",
		"duration:5s":     "5.0",
		"duration:2m":     "120.0",
		"duration:1h":     "3600.0",
		"duration:1500ms": "1.5",
		"duration:3":      "3.0",
		"duration:2sec":   "2.0",
		"duration:2min":   "120.0",
	}

	for input, want := range tests {
		term := requireTerm(t, Parse(input).Parsed)
		assert.Equal(t, want, term.Value, "input %q", input)
	}
}

func TestParse_DurationUnparseableKeepsRawValue(t *testing.T) {
	term := requireTerm(t, Parse("duration:long").Parsed)
	assert.Equal(t, "duration", term.Field)
	assert.Equal(t, "long", term.Value)
}

func TestParse_NotOnBareTerm(t *testing.T) {
	q := Parse("NOT footsteps")
	term := requireTerm(t, q.Parsed)
	assert.Equal(t, "footsteps", term.Value)
	assert.True(t, term.Negated)
}

func TestParse_NotOnGroupWrapsWithMatchAll(t *testing.T) {
	q := Parse("NOT (rain OR wind)")
	expr := requireExpr(t, q.Parsed)
	assert.Equal(t, BoolNot, expr.Op)

	left := requireTerm(t, expr.Left)
	assert.True(t, left.IsMatchAll())

	group := requireExpr(t, expr.Right)
	assert.Equal(t, BoolOr, group.Op)
}

func TestParse_FallbackOnUnterminatedGroup(t *testing.T) {
	q := Parse("explosion AND (")
	term := requireTerm(t, q.Parsed)
	assert.Equal(t, "explosion AND (", term.Value)
	assert.Empty(t, term.Field)
}

func TestParse_FallbackOnTrailingTokens(t *testing.T) {
	q := Parse("(a OR b) c)")
	term := requireTerm(t, q.Parsed)
	assert.Equal(t, "(a OR b) c)", term.Value)
}

func TestParse_FallbackOnDanglingOperator(t *testing.T) {
	q := Parse("explosion AND")
	term := requireTerm(t, q.Parsed)
	assert.Equal(t, "explosion AND", term.Value)
}

func TestParse_FallbackOnlyOnStructuralErrors(t *testing.T) {
	// Well-formed boolean queries never collapse to the raw string.
	inputs := []string{
		"explosion AND fire",
		"a OR b OR c",
		"NOT thud",
		"(rain)",
		`"one phrase" AND two`,
	}
	for _, in := range inputs {
		q := Parse(in)
		if term, ok := q.Parsed.(*Term); ok {
			assert.NotEqual(t, in, term.Value, "input %q fell back", in)
		}
	}
}

func TestParse_EmptyInput(t *testing.T) {
	q := Parse("")
	term := requireTerm(t, q.Parsed)
	assert.Equal(t, "", term.Value)
}

func TestFreeText(t *testing.T) {
	q := Parse("(explosion OR impact) AND duration:>3s AND NOT quiet")
	assert.Equal(t, "explosion impact", FreeText(q.Parsed))

	q = Parse("rain")
	assert.Equal(t, "rain", FreeText(q.Parsed))
}

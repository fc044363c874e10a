package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sfxvault/sfxvault/internal/query"
)

func TestCompileFilter_FreeText(t *testing.T) {
	where, args, err := FilterSQL("explosion")
	require.NoError(t, err)
	assert.Equal(t, "(name LIKE ? OR tags LIKE ? OR path LIKE ?)", where)
	assert.Equal(t, []any{"%explosion%", "%explosion%", "%explosion%"}, args)
}

func TestCompileFilter_DurationComparison(t *testing.T) {
	where, args, err := FilterSQL("duration:>3s")
	require.NoError(t, err)
	assert.Equal(t, "(duration_secs > ?)", where)
	require.Len(t, args, 1)
	assert.Equal(t, 3.0, args[0])
}

func TestCompileFilter_DurationMinutesNormalized(t *testing.T) {
	// 1.5m normalizes to 90 seconds before compilation.
	where, args, err := FilterSQL("duration:<=1.5m")
	require.NoError(t, err)
	assert.Equal(t, "(duration_secs <= ?)", where)
	assert.Equal(t, 90.0, args[0])
}

func TestCompileFilter_BooleanExpression(t *testing.T) {
	where, args, err := FilterSQL("category:impacts AND duration:<3s")
	require.NoError(t, err)
	assert.Equal(t, "((category = ?) AND (duration_secs < ?))", where)
	assert.Equal(t, []any{"impacts", 3.0}, args)
}

func TestCompileFilter_NotGroup(t *testing.T) {
	// NOT of a group compiles as match-all minus the group.
	where, _, err := FilterSQL("NOT (rain OR wind)")
	require.NoError(t, err)
	assert.Equal(t,
		"((1=1) AND NOT ((name LIKE ? OR tags LIKE ? OR path LIKE ?) OR (name LIKE ? OR tags LIKE ? OR path LIKE ?)))",
		where)
}

func TestCompileFilter_NegatedTerm(t *testing.T) {
	node := &query.Term{Value: "loop", Field: "tags", Op: query.OpEquals, Negated: true}
	where, args, err := CompileFilter(node)
	require.NoError(t, err)
	assert.Equal(t, "NOT (tags LIKE ?)", where)
	assert.Equal(t, []any{`%"loop"%`}, args)
}

func TestCompileFilter_TagsMembership(t *testing.T) {
	where, args, err := FilterSQL("tags:metal")
	require.NoError(t, err)
	assert.Equal(t, "(tags LIKE ?)", where)
	assert.Equal(t, []any{`%"metal"%`}, args)
}

func TestCompileFilter_ContainsOperator(t *testing.T) {
	where, args, err := FilterSQL("name:~impact")
	require.NoError(t, err)
	assert.Equal(t, "(name LIKE ?)", where)
	assert.Equal(t, []any{"%impact%"}, args)
}

func TestCompileFilter_NilNodeMatchesAll(t *testing.T) {
	where, args, err := CompileFilter(nil)
	require.NoError(t, err)
	assert.Equal(t, "1=1", where)
	assert.Empty(t, args)
}

func TestCompileFilter_UnknownFieldErrors(t *testing.T) {
	_, _, err := FilterSQL("bpm:>120")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown filter field")
}

func TestCompileFilter_NumericFieldRejectsText(t *testing.T) {
	_, _, err := FilterSQL("channels:stereo")
	require.Error(t, err)
}

func TestCompileFilter_ContainsInvalidForNumeric(t *testing.T) {
	_, _, err := FilterSQL("duration:~3")
	require.Error(t, err)
}

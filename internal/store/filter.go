package store

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/sfxvault/sfxvault/internal/query"
)

// numericFields maps query field names to catalog columns compared
// numerically. Parsed duration values arrive as decimal-second strings,
// so they convert cleanly.
var numericFields = map[string]string{
	"duration":   "duration_secs",
	"samplerate": "sample_rate",
	"channels":   "channels",
	"size":       "size_bytes",
}

// textFields maps query field names to text columns.
var textFields = map[string]string{
	"name":     "name",
	"path":     "path",
	"category": "category",
	"tags":     "tags",
}

// CompileFilter translates a parsed query tree into a SQL WHERE clause
// with bound arguments, for metadata-only filtering of the catalog.
func CompileFilter(node query.Node) (string, []any, error) {
	if node == nil {
		return "1=1", nil, nil
	}
	return compileNode(node)
}

func compileNode(node query.Node) (string, []any, error) {
	switch n := node.(type) {
	case *query.Term:
		return compileTerm(n)
	case *query.Expression:
		return compileExpression(n)
	default:
		return "", nil, fmt.Errorf("unsupported node type %T", node)
	}
}

func compileExpression(expr *query.Expression) (string, []any, error) {
	left, leftArgs, err := compileNode(expr.Left)
	if err != nil {
		return "", nil, err
	}
	right, rightArgs, err := compileNode(expr.Right)
	if err != nil {
		return "", nil, err
	}

	args := append(leftArgs, rightArgs...)
	switch expr.Op {
	case query.BoolAnd:
		return fmt.Sprintf("(%s AND %s)", left, right), args, nil
	case query.BoolOr:
		return fmt.Sprintf("(%s OR %s)", left, right), args, nil
	case query.BoolNot:
		return fmt.Sprintf("(%s AND NOT %s)", left, right), args, nil
	default:
		return "", nil, fmt.Errorf("unsupported boolean operator %q", expr.Op)
	}
}

func compileTerm(term *query.Term) (string, []any, error) {
	clause, args, err := compileTermBody(term)
	if err != nil {
		return "", nil, err
	}
	if term.Negated {
		clause = "NOT " + clause
	}
	return clause, args, nil
}

func compileTermBody(term *query.Term) (string, []any, error) {
	if term.IsMatchAll() {
		return "(1=1)", nil, nil
	}

	if term.Field == "" {
		// Free text matches across the default search surface.
		pattern := "%" + term.Value + "%"
		return "(name LIKE ? OR tags LIKE ? OR path LIKE ?)",
			[]any{pattern, pattern, pattern}, nil
	}

	if column, ok := numericFields[term.Field]; ok {
		value, err := strconv.ParseFloat(term.Value, 64)
		if err != nil {
			return "", nil, fmt.Errorf("field %s needs a numeric value, got %q", term.Field, term.Value)
		}
		op, err := numericSQLOp(term.Op)
		if err != nil {
			return "", nil, fmt.Errorf("field %s: %w", term.Field, err)
		}
		return fmt.Sprintf("(%s %s ?)", column, op), []any{value}, nil
	}

	column, ok := textFields[term.Field]
	if !ok {
		return "", nil, fmt.Errorf("unknown filter field %q", term.Field)
	}

	switch term.Op {
	case query.OpEquals:
		if column == "tags" {
			// Tags are stored as a JSON array; equality means membership.
			return "(tags LIKE ?)", []any{`%"` + term.Value + `"%`}, nil
		}
		return fmt.Sprintf("(%s = ?)", column), []any{term.Value}, nil
	case query.OpNotEquals:
		if column == "tags" {
			return "(tags NOT LIKE ?)", []any{`%"` + term.Value + `"%`}, nil
		}
		return fmt.Sprintf("(%s != ?)", column), []any{term.Value}, nil
	case query.OpContains:
		return fmt.Sprintf("(%s LIKE ?)", column), []any{"%" + term.Value + "%"}, nil
	default:
		return "", nil, fmt.Errorf("operator %q not supported for text field %s", term.Op, term.Field)
	}
}

func numericSQLOp(op query.Operator) (string, error) {
	switch op {
	case query.OpEquals:
		return "=", nil
	case query.OpNotEquals:
		return "!=", nil
	case query.OpGreater:
		return ">", nil
	case query.OpLess:
		return "<", nil
	case query.OpGreaterEq:
		return ">=", nil
	case query.OpLessEq:
		return "<=", nil
	case query.OpContains:
		return "", fmt.Errorf("operator %q not valid for numeric comparison", op)
	default:
		return "", fmt.Errorf("unknown operator %q", op)
	}
}

// FilterSQL is a convenience that compiles a raw query string straight to
// SQL. Parse never fails, so only compilation errors surface.
func FilterSQL(raw string) (string, []any, error) {
	q := query.Parse(raw)
	where, args, err := CompileFilter(q.Parsed)
	if err != nil {
		return "", nil, err
	}
	if !strings.HasPrefix(where, "(") {
		where = "(" + where + ")"
	}
	return where, args, nil
}

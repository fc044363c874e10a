package query

// Operator is the comparison operator attached to a field predicate.
type Operator string

const (
	OpEquals    Operator = "="
	OpNotEquals Operator = "!="
	OpGreater   Operator = ">"
	OpLess      Operator = "<"
	OpGreaterEq Operator = ">="
	OpLessEq    Operator = "<="
	OpContains  Operator = "~"
)

// BoolOp joins two nodes in an expression.
type BoolOp string

const (
	BoolAnd BoolOp = "AND"
	BoolOr  BoolOp = "OR"
	BoolNot BoolOp = "NOT"
)

// Node is either a *Term or an *Expression.
type Node interface {
	node()
}

// Term is a leaf predicate. An empty Field means free text matched across
// the default fields. Duration field values are normalized to
// decimal-seconds strings ("90.0") before being stored here.
type Term struct {
	Value   string
	Field   string
	Op      Operator
	Negated bool
}

func (*Term) node() {}

// matchAllValue marks the synthetic term that matches every record. It only
// appears as the left operand of a NOT expression wrapping a parenthesized
// group.
const matchAllValue = "*"

// MatchAll returns the synthetic match-everything term.
func MatchAll() *Term {
	return &Term{Value: matchAllValue, Op: OpEquals}
}

// IsMatchAll reports whether t is the synthetic match-everything term.
func (t *Term) IsMatchAll() bool {
	return t.Field == "" && t.Value == matchAllValue
}

// Expression is a strictly binary internal node. AND and OR have their usual
// meaning. NOT expressions carry a match-all term on the left and the negated
// subtree on the right: "NOT (a OR b)" parses to
// Expression{Left: MatchAll(), Op: BoolNot, Right: <a OR b>}.
type Expression struct {
	Left  Node
	Op    BoolOp
	Right Node
}

func (*Expression) node() {}

// Query pairs the raw input with its parsed tree. If parsing failed at any
// point, Parsed is a single free-text term equal to the whole raw string;
// callers never observe a parse error.
type Query struct {
	Raw    string
	Parsed Node
}

// FreeText collects the free-text leaf values of a tree, left to right,
// joined by spaces. Field predicates, negated terms, and the synthetic
// match-all term are skipped. Retrievers use this as their query text while
// field predicates feed the structured filter.
func FreeText(n Node) string {
	var parts []string
	collectFreeText(n, &parts)
	out := ""
	for i, p := range parts {
		if i > 0 {
			out += " "
		}
		out += p
	}
	return out
}

func collectFreeText(n Node, parts *[]string) {
	switch v := n.(type) {
	case *Term:
		if v.Field == "" && !v.Negated && !v.IsMatchAll() && v.Value != "" {
			*parts = append(*parts, v.Value)
		}
	case *Expression:
		collectFreeText(v.Left, parts)
		if v.Op != BoolNot {
			collectFreeText(v.Right, parts)
		}
	}
}

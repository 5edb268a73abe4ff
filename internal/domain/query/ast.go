package query

import (
	"strings"

	"github.com/okian/zeroflops/internal/domain/model"
)

// Op is a comparison operator.
type Op string

// Comparison operators.
const (
	OpEq       Op = "="
	OpNe       Op = "!="
	OpLt       Op = "<"
	OpLe       Op = "<="
	OpGt       Op = ">"
	OpGe       Op = ">="
	OpContains Op = "contains"
)

// Direction is a sort direction.
type Direction string

// Sort directions.
const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

// Node is a boolean filter expression. The set of implementations is closed:
// Filter, And and Or.
type Node interface {
	String() string
	node()
}

// Filter compares one field against a literal.
type Filter struct {
	Field string
	Op    Op
	Value model.Value
}

// And matches when every child matches.
type And struct {
	Children []Node
}

// Or matches when any child matches.
type Or struct {
	Children []Node
}

func (Filter) node() {}
func (And) node()    {}
func (Or) node()     {}

// Sort orders results by one field.
type Sort struct {
	Field     string
	Direction Direction
}

// Query is a parsed query: an optional filter and an optional trailing sort.
type Query struct {
	Where Node
	Order *Sort
}

// IsEmpty reports whether the query is the identity.
func (q *Query) IsEmpty() bool {
	return q == nil || (q.Where == nil && q.Order == nil)
}

// References reports whether the filter mentions field.
func (q *Query) References(field string) bool {
	if q == nil || q.Where == nil {
		return false
	}
	return references(q.Where, field)
}

func references(n Node, field string) bool {
	switch n := n.(type) {
	case Filter:
		return n.Field == field
	case And:
		for _, c := range n.Children {
			if references(c, field) {
				return true
			}
		}
	case Or:
		for _, c := range n.Children {
			if references(c, field) {
				return true
			}
		}
	}
	return false
}

// String renders the filter term in canonical form.
func (f Filter) String() string {
	return f.Field + " " + string(f.Op) + " " + f.Value.String()
}

// String renders the conjunction; disjunctions are parenthesized.
func (a And) String() string {
	parts := make([]string, len(a.Children))
	for i, c := range a.Children {
		if _, ok := c.(Or); ok {
			parts[i] = "(" + c.String() + ")"
		} else {
			parts[i] = c.String()
		}
	}
	return strings.Join(parts, " and ")
}

// String renders the disjunction.
func (o Or) String() string {
	parts := make([]string, len(o.Children))
	for i, c := range o.Children {
		parts[i] = c.String()
	}
	return strings.Join(parts, " or ")
}

// String renders the sort clause.
func (s Sort) String() string {
	return s.Field + " " + string(s.Direction)
}

// String renders canonical query text. Parsing the result yields an equal
// query, which is what stored lists persist.
func (q *Query) String() string {
	if q.IsEmpty() {
		return ""
	}
	var parts []string
	if q.Where != nil {
		parts = append(parts, q.Where.String())
	}
	if q.Order != nil {
		parts = append(parts, q.Order.String())
	}
	return strings.Join(parts, " ")
}

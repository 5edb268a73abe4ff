package query

import (
	"cmp"
	"slices"
	"strings"

	"golang.org/x/text/cases"

	"github.com/okian/zeroflops/internal/domain/model"
)

// Evaluate applies q to items and returns a new, ordered slice. The input is
// never modified.
//
// The empty query is the identity. Otherwise hidden items are dropped unless
// the filter mentions the hidden field (e.g. "hidden = true"). Without a sort
// clause results keep stored list order.
func Evaluate(q *Query, items []model.Item) []model.Item {
	if q.IsEmpty() {
		return model.CloneItems(items)
	}
	ev := newEvaluator()
	withHidden := q.References(model.FieldHidden)
	out := make([]model.Item, 0, len(items))
	for _, it := range items {
		if it.Hidden && !withHidden {
			continue
		}
		if q.Where != nil && !ev.match(q.Where, it) {
			continue
		}
		out = append(out, it.Clone())
	}
	if q.Order != nil {
		sortItems(out, *q.Order)
	}
	return out
}

// Run parses text against the schema inferred from items and evaluates it.
func Run(text string, items []model.Item) ([]model.Item, error) {
	q, err := Parse(text, SchemaOf(items))
	if err != nil {
		return nil, err
	}
	return Evaluate(q, items), nil
}

// Match reports whether a single item satisfies the filter node.
func Match(n Node, it model.Item) bool {
	return newEvaluator().match(n, it)
}

type evaluator struct {
	fold cases.Caser
}

// newEvaluator builds per-call state; a Caser must not be shared across
// goroutines.
func newEvaluator() *evaluator {
	return &evaluator{fold: cases.Fold()}
}

func (e *evaluator) match(n Node, it model.Item) bool {
	switch n := n.(type) {
	case Filter:
		return e.matchFilter(n, it)
	case And:
		for _, c := range n.Children {
			if !e.match(c, it) {
				return false
			}
		}
		return true
	case Or:
		for _, c := range n.Children {
			if e.match(c, it) {
				return true
			}
		}
		return false
	}
	return false
}

func (e *evaluator) matchFilter(f Filter, it model.Item) bool {
	v, ok := it.Field(f.Field)
	if !ok {
		return false
	}
	if f.Op == OpContains {
		if v.Kind != model.KindText || f.Value.Kind != model.KindText {
			return false
		}
		return strings.Contains(e.fold.String(v.Str), e.fold.String(f.Value.Str))
	}
	c, ok := v.Compare(f.Value)
	if !ok {
		return false
	}
	switch f.Op {
	case OpEq:
		return c == 0
	case OpNe:
		return c != 0
	case OpLt:
		return c < 0
	case OpLe:
		return c <= 0
	case OpGt:
		return c > 0
	case OpGe:
		return c >= 0
	}
	return false
}

// sortItems orders items by the sort field; items lacking the field go last
// in either direction and ties fall back to item id.
func sortItems(items []model.Item, s Sort) {
	slices.SortStableFunc(items, func(a, b model.Item) int {
		va, okA := a.Field(s.Field)
		vb, okB := b.Field(s.Field)
		switch {
		case !okA && !okB:
			return cmp.Compare(a.ID, b.ID)
		case !okA:
			return 1
		case !okB:
			return -1
		}
		c, ok := va.Compare(vb)
		if !ok {
			c = cmp.Compare(va.Kind, vb.Kind)
		}
		if s.Direction == Desc {
			c = -c
		}
		if c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
}

package query

import (
	"sort"

	"github.com/agnivade/levenshtein"

	"github.com/okian/zeroflops/internal/domain/model"
)

// maxSuggestDistance bounds how far a typo may be from a known field before
// no suggestion is offered.
const maxSuggestDistance = 2

// Schema maps attribute names to their kinds. Reserved item fields are
// always known and need not be listed.
type Schema map[string]model.Kind

// SchemaOf infers a schema from item attributes. When items disagree on an
// attribute's kind, the first item in order wins.
func SchemaOf(items []model.Item) Schema {
	s := make(Schema)
	for _, it := range items {
		for name, v := range it.Attributes {
			if _, ok := s[name]; !ok {
				s[name] = v.Kind
			}
		}
	}
	return s
}

// Kind resolves a field's kind, reserved fields first.
func (s Schema) Kind(field string) (model.Kind, bool) {
	if k, ok := model.ReservedFields[field]; ok {
		return k, true
	}
	k, ok := s[field]
	return k, ok
}

// Fields lists every known field in lexical order.
func (s Schema) Fields() []string {
	out := make([]string, 0, len(s)+len(model.ReservedFields))
	for f := range model.ReservedFields {
		out = append(out, f)
	}
	for f := range s {
		if _, reserved := model.ReservedFields[f]; !reserved {
			out = append(out, f)
		}
	}
	sort.Strings(out)
	return out
}

// suggest returns the closest known field name, or "" when nothing is close.
func (s Schema) suggest(field string) string {
	best, bestDist := "", maxSuggestDistance+1
	for _, f := range s.Fields() {
		if d := levenshtein.ComputeDistance(field, f); d < bestDist {
			best, bestDist = f, d
		}
	}
	return best
}

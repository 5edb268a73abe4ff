package model

import (
	"fmt"
	"maps"
	"math"
)

// Reserved item fields addressable by queries alongside attributes.
const (
	FieldID     = "id"
	FieldName   = "name"
	FieldScore  = "score"
	FieldRank   = "rank"
	FieldWins   = "wins"
	FieldLosses = "losses"
	FieldHidden = "hidden"
)

// ReservedFields maps every built-in item field to its kind.
var ReservedFields = map[string]Kind{ //nolint:gochecknoglobals // read-only lookup table
	FieldID:     KindText,
	FieldName:   KindText,
	FieldScore:  KindNumber,
	FieldRank:   KindNumber,
	FieldWins:   KindNumber,
	FieldLosses: KindNumber,
	FieldHidden: KindBool,
}

// Item is a single rankable entry of a list.
type Item struct {
	ID         string           `json:"id"`
	Name       string           `json:"name"`
	Attributes map[string]Value `json:"attributes,omitempty"`
	Score      float64          `json:"score"`
	Rank       *int             `json:"rank,omitempty"` // set once a tournament completes
	Wins       int              `json:"wins"`
	Losses     int              `json:"losses"`
	Hidden     bool             `json:"hidden"`
}

// Clone returns a deep copy of the item.
func (i Item) Clone() Item {
	out := i
	if i.Attributes != nil {
		out.Attributes = maps.Clone(i.Attributes)
	}
	if i.Rank != nil {
		r := *i.Rank
		out.Rank = &r
	}
	return out
}

// Field resolves a reserved field or attribute by name. ok is false when the
// item carries no value for it (including an unset rank).
func (i Item) Field(name string) (Value, bool) {
	switch name {
	case FieldID:
		return Text(i.ID), true
	case FieldName:
		return Text(i.Name), true
	case FieldScore:
		return Number(i.Score), true
	case FieldRank:
		if i.Rank == nil {
			return Value{}, false
		}
		return Number(float64(*i.Rank)), true
	case FieldWins:
		return Number(float64(i.Wins)), true
	case FieldLosses:
		return Number(float64(i.Losses)), true
	case FieldHidden:
		return Bool(i.Hidden), true
	}
	v, ok := i.Attributes[name]
	return v, ok
}

// SetRank assigns a final standing.
func (i *Item) SetRank(rank int) {
	i.Rank = &rank
}

// Validate checks the per-item invariants.
func (i Item) Validate() error {
	if i.ID == "" {
		return fmt.Errorf("%w: empty id", ErrInvalidItem)
	}
	if math.IsNaN(i.Score) || math.IsInf(i.Score, 0) {
		return fmt.Errorf("%w: item %q has non-finite score", ErrInvalidItem, i.ID)
	}
	for name := range i.Attributes {
		if _, reserved := ReservedFields[name]; reserved {
			return fmt.Errorf("%w: item %q attribute %q shadows a reserved field", ErrInvalidItem, i.ID, name)
		}
	}
	return nil
}

// CloneItems deep-copies a slice of items.
func CloneItems(items []Item) []Item {
	if items == nil {
		return nil
	}
	out := make([]Item, len(items))
	for idx := range items {
		out[idx] = items[idx].Clone()
	}
	return out
}

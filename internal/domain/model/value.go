// Package model contains domain models passed between layers.
package model

import (
	"cmp"
	"strconv"
	"time"
)

// Kind tags the type held by a Value.
type Kind string

// Attribute kinds.
const (
	KindNumber Kind = "number"
	KindText   Kind = "text"
	KindDate   Kind = "date"
	KindBool   Kind = "bool"
)

// Value is a typed attribute value. Exactly one payload field is meaningful,
// selected by Kind.
type Value struct {
	Kind Kind      `json:"kind"`
	Num  float64   `json:"num,omitempty"`
	Str  string    `json:"str,omitempty"`
	Time time.Time `json:"time"`
	Bool bool      `json:"bool,omitempty"`
}

// Number wraps a float as a Value.
func Number(f float64) Value { return Value{Kind: KindNumber, Num: f} }

// Text wraps a string as a Value.
func Text(s string) Value { return Value{Kind: KindText, Str: s} }

// Date wraps a timestamp as a Value. Dates are normalized to UTC.
func Date(t time.Time) Value { return Value{Kind: KindDate, Time: t.UTC()} }

// Bool wraps a boolean as a Value.
func Bool(b bool) Value { return Value{Kind: KindBool, Bool: b} }

// Compare orders v against o. ok is false when the kinds differ, in which
// case the values are not comparable. false sorts before true.
func (v Value) Compare(o Value) (c int, ok bool) {
	if v.Kind != o.Kind {
		return 0, false
	}
	switch v.Kind {
	case KindNumber:
		return cmp.Compare(v.Num, o.Num), true
	case KindText:
		return cmp.Compare(v.Str, o.Str), true
	case KindDate:
		return v.Time.Compare(o.Time), true
	case KindBool:
		switch {
		case v.Bool == o.Bool:
			return 0, true
		case !v.Bool:
			return -1, true
		default:
			return 1, true
		}
	}
	return 0, false
}

// String renders the value the way the query language spells literals.
func (v Value) String() string {
	switch v.Kind {
	case KindNumber:
		return strconv.FormatFloat(v.Num, 'g', -1, 64)
	case KindText:
		return strconv.Quote(v.Str)
	case KindDate:
		if v.Time.Equal(v.Time.Truncate(24 * time.Hour)) {
			return strconv.Quote(v.Time.Format(time.DateOnly))
		}
		return strconv.Quote(v.Time.Format(time.RFC3339Nano))
	case KindBool:
		return strconv.FormatBool(v.Bool)
	}
	return ""
}

package query

import (
	"errors"
	"fmt"
)

// Sentinel kinds for query errors. ParseError and FieldError unwrap to these.
var (
	ErrParse        = errors.New("malformed query")
	ErrUnknownField = errors.New("unknown field")
	ErrTypeMismatch = errors.New("type mismatch")
)

// ParseError reports malformed query text. Pos is a 0-based byte offset.
type ParseError struct {
	Pos    int
	Reason string
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error at position %d: %s", e.Pos, e.Reason)
}

// Unwrap returns ErrParse.
func (e *ParseError) Unwrap() error { return ErrParse }

// FieldError reports a well-formed term that references an unknown field or
// compares a field against an incompatible literal or operator.
type FieldError struct {
	Pos   int
	Field string
	// Suggestion is the closest known field for ErrUnknownField, if any.
	Suggestion string
	Reason     string
	Err        error
}

// Error implements the error interface.
func (e *FieldError) Error() string {
	msg := fmt.Sprintf("%v at position %d: %q", e.Err, e.Pos, e.Field)
	if e.Reason != "" {
		msg += " " + e.Reason
	}
	if e.Suggestion != "" {
		msg += fmt.Sprintf(" (did you mean %q?)", e.Suggestion)
	}
	return msg
}

// Unwrap returns the sentinel kind.
func (e *FieldError) Unwrap() error { return e.Err }

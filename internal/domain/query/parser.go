// Package query parses and evaluates the filter/sort language used by lists.
//
// Grammar:
//
//	query = [ expr ] [ sort ] EOF
//	expr  = and { "or" and }
//	and   = term { "and" term }
//	term  = "(" expr ")" | field op value
//	op    = "=" | "!=" | "<" | "<=" | ">" | ">=" | "contains"
//	sort  = field ( "asc" | "desc" )
//
// Fields are checked against a Schema while parsing, so a parsed Query never
// references an unknown field or compares across kinds.
package query

import (
	"strconv"
	"strings"
	"time"

	"github.com/okian/zeroflops/internal/domain/model"
)

type parser struct {
	toks   []token
	i      int
	schema Schema
}

// Parse turns query text into a Query. Blank text yields the empty query.
// Errors are *ParseError or *FieldError; no partial query is returned.
func Parse(text string, schema Schema) (*Query, error) {
	toks, err := lex(text)
	if err != nil {
		return nil, err
	}
	p := &parser{toks: toks, schema: schema}
	q := &Query{}

	if p.peek().kind == tokEOF {
		return q, nil
	}
	if !p.atSort() {
		if q.Where, err = p.parseOr(); err != nil {
			return nil, err
		}
	}
	if p.atSort() {
		if q.Order, err = p.parseSort(); err != nil {
			return nil, err
		}
	}
	if t := p.peek(); t.kind != tokEOF {
		return nil, &ParseError{Pos: t.pos, Reason: "unexpected " + t.describe()}
	}
	return q, nil
}

func (p *parser) peek() token { return p.toks[p.i] }

func (p *parser) peekAt(off int) token {
	if p.i+off >= len(p.toks) {
		return p.toks[len(p.toks)-1]
	}
	return p.toks[p.i+off]
}

func (p *parser) next() token {
	t := p.toks[p.i]
	if t.kind != tokEOF {
		p.i++
	}
	return t
}

// atSort reports whether the remaining tokens start a trailing sort clause.
func (p *parser) atSort() bool {
	t := p.peek()
	if t.kind != tokIdent || t.keyword() != "" {
		return false
	}
	kw := p.peekAt(1).keyword()
	return kw == kwAsc || kw == kwDesc
}

func (p *parser) parseOr() (Node, error) {
	first, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	children := appendOr(nil, first)
	for p.peek().keyword() == kwOr {
		p.next()
		n, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		children = appendOr(children, n)
	}
	if len(children) == 1 {
		return children[0], nil
	}
	return Or{Children: children}, nil
}

func (p *parser) parseAnd() (Node, error) {
	first, err := p.parseTerm()
	if err != nil {
		return nil, err
	}
	children := appendAnd(nil, first)
	for p.peek().keyword() == kwAnd {
		p.next()
		n, err := p.parseTerm()
		if err != nil {
			return nil, err
		}
		children = appendAnd(children, n)
	}
	if len(children) == 1 {
		return children[0], nil
	}
	return And{Children: children}, nil
}

// appendOr and appendAnd splice in the children of a nested node of the same
// connective so the tree keeps one canonical shape.
func appendOr(dst []Node, n Node) []Node {
	if o, ok := n.(Or); ok {
		return append(dst, o.Children...)
	}
	return append(dst, n)
}

func appendAnd(dst []Node, n Node) []Node {
	if a, ok := n.(And); ok {
		return append(dst, a.Children...)
	}
	return append(dst, n)
}

func (p *parser) parseTerm() (Node, error) {
	if p.peek().kind == tokLParen {
		p.next()
		n, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if t := p.next(); t.kind != tokRParen {
			return nil, &ParseError{Pos: t.pos, Reason: "expected ')', found " + t.describe()}
		}
		return n, nil
	}
	return p.parseComparison()
}

func (p *parser) parseField() (string, model.Kind, error) {
	t := p.next()
	if t.kind != tokIdent {
		return "", "", &ParseError{Pos: t.pos, Reason: "expected field name, found " + t.describe()}
	}
	if kw := t.keyword(); kw != "" {
		return "", "", &ParseError{Pos: t.pos, Reason: "expected field name, found keyword '" + kw + "'"}
	}
	kind, ok := p.schema.Kind(t.text)
	if !ok {
		return "", "", &FieldError{Pos: t.pos, Field: t.text, Suggestion: p.schema.suggest(t.text), Err: ErrUnknownField}
	}
	return t.text, kind, nil
}

func (p *parser) parseComparison() (Node, error) {
	field, kind, err := p.parseField()
	if err != nil {
		return nil, err
	}

	opTok := p.next()
	var op Op
	switch {
	case opTok.kind == tokOp:
		op = Op(opTok.text)
	case opTok.keyword() == kwContains:
		op = OpContains
	default:
		return nil, &ParseError{Pos: opTok.pos, Reason: "expected comparison operator, found " + opTok.describe()}
	}
	if !opAllowed(kind, op) {
		return nil, &FieldError{
			Pos:    opTok.pos,
			Field:  field,
			Reason: "of kind " + string(kind) + " does not support '" + string(op) + "'",
			Err:    ErrTypeMismatch,
		}
	}

	valTok := p.next()
	val, err := literal(valTok)
	if err != nil {
		return nil, err
	}
	if val, err = coerce(val, kind); err != nil {
		return nil, &FieldError{
			Pos:    valTok.pos,
			Field:  field,
			Reason: "of kind " + string(kind) + " cannot be compared with " + valTok.describe(),
			Err:    ErrTypeMismatch,
		}
	}
	return Filter{Field: field, Op: op, Value: val}, nil
}

func (p *parser) parseSort() (*Sort, error) {
	field, _, err := p.parseField()
	if err != nil {
		return nil, err
	}
	dir := p.next()
	switch dir.keyword() {
	case kwAsc:
		return &Sort{Field: field, Direction: Asc}, nil
	case kwDesc:
		return &Sort{Field: field, Direction: Desc}, nil
	}
	return nil, &ParseError{Pos: dir.pos, Reason: "expected 'asc' or 'desc', found " + dir.describe()}
}

func opAllowed(kind model.Kind, op Op) bool {
	switch op {
	case OpEq, OpNe:
		return true
	case OpContains:
		return kind == model.KindText
	default:
		return kind != model.KindBool
	}
}

// literal converts a value token into an untyped-by-schema Value.
func literal(t token) (model.Value, error) {
	switch t.kind {
	case tokNumber:
		f, err := strconv.ParseFloat(t.text, 64)
		if err != nil {
			return model.Value{}, &ParseError{Pos: t.pos, Reason: "invalid number " + strconv.Quote(t.text)}
		}
		return model.Number(f), nil
	case tokString:
		return model.Text(t.text), nil
	case tokIdent:
		switch t.keyword() {
		case kwTrue:
			return model.Bool(true), nil
		case kwFalse:
			return model.Bool(false), nil
		}
	}
	return model.Value{}, &ParseError{Pos: t.pos, Reason: "expected value, found " + t.describe()}
}

// coerce adapts a literal to the field's kind. Only text literals convert,
// and only into dates.
func coerce(v model.Value, kind model.Kind) (model.Value, error) {
	if v.Kind == kind {
		return v, nil
	}
	if v.Kind == model.KindText && kind == model.KindDate {
		if t, err := parseDate(v.Str); err == nil {
			return model.Date(t), nil
		}
	}
	return model.Value{}, ErrTypeMismatch
}

func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339Nano, s)
}

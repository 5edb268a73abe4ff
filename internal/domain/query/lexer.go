package query

import (
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokIdent
	tokNumber
	tokString
	tokOp
	tokLParen
	tokRParen
)

// Keywords, matched case-insensitively.
const (
	kwAnd      = "and"
	kwOr       = "or"
	kwContains = "contains"
	kwAsc      = "asc"
	kwDesc     = "desc"
	kwTrue     = "true"
	kwFalse    = "false"
)

var keywords = map[string]struct{}{ //nolint:gochecknoglobals // read-only lookup table
	kwAnd: {}, kwOr: {}, kwContains: {}, kwAsc: {}, kwDesc: {}, kwTrue: {}, kwFalse: {},
}

type token struct {
	kind tokenKind
	text string // raw text; unquoted value for strings
	pos  int
}

// keyword returns the lowercase keyword for an identifier token, or "".
func (t token) keyword() string {
	if t.kind != tokIdent {
		return ""
	}
	lower := strings.ToLower(t.text)
	if _, ok := keywords[lower]; ok {
		return lower
	}
	return ""
}

func (t token) describe() string {
	switch t.kind {
	case tokEOF:
		return "end of query"
	case tokString:
		return strconv.Quote(t.text)
	}
	return "'" + t.text + "'"
}

func lex(src string) ([]token, error) {
	var toks []token
	i := 0
	for i < len(src) {
		r, size := utf8.DecodeRuneInString(src[i:])
		switch {
		case unicode.IsSpace(r):
			i += size
		case r == '(':
			toks = append(toks, token{kind: tokLParen, text: "(", pos: i})
			i++
		case r == ')':
			toks = append(toks, token{kind: tokRParen, text: ")", pos: i})
			i++
		case r == '=':
			toks = append(toks, token{kind: tokOp, text: "=", pos: i})
			i++
		case r == '!':
			if i+1 < len(src) && src[i+1] == '=' {
				toks = append(toks, token{kind: tokOp, text: "!=", pos: i})
				i += 2
				continue
			}
			return nil, &ParseError{Pos: i, Reason: "expected '=' after '!'"}
		case r == '<' || r == '>':
			if i+1 < len(src) && src[i+1] == '=' {
				toks = append(toks, token{kind: tokOp, text: src[i : i+2], pos: i})
				i += 2
				continue
			}
			toks = append(toks, token{kind: tokOp, text: src[i : i+1], pos: i})
			i++
		case r == '"' || r == '\'':
			tok, next, err := lexString(src, i)
			if err != nil {
				return nil, err
			}
			toks = append(toks, tok)
			i = next
		case r == '-' || r == '.' || unicode.IsDigit(r):
			tok, next, err := lexNumber(src, i)
			if err != nil {
				return nil, err
			}
			toks = append(toks, tok)
			i = next
		case r == '_' || unicode.IsLetter(r):
			start := i
			for i < len(src) {
				r, size = utf8.DecodeRuneInString(src[i:])
				if r != '_' && !unicode.IsLetter(r) && !unicode.IsDigit(r) {
					break
				}
				i += size
			}
			toks = append(toks, token{kind: tokIdent, text: src[start:i], pos: start})
		default:
			return nil, &ParseError{Pos: i, Reason: "unexpected character " + strconv.QuoteRune(r)}
		}
	}
	return append(toks, token{kind: tokEOF, pos: len(src)}), nil
}

// lexString scans a quoted literal starting at src[start]. A backslash
// escapes the next character; double-quoted strings also accept Go escapes.
func lexString(src string, start int) (token, int, error) {
	quote := src[start]
	i := start + 1
	for i < len(src) {
		switch src[i] {
		case '\\':
			i += 2
			continue
		case quote:
			raw := src[start : i+1]
			val, err := unquote(raw, quote)
			if err != nil {
				return token{}, 0, &ParseError{Pos: start, Reason: "invalid string literal"}
			}
			return token{kind: tokString, text: val, pos: start}, i + 1, nil
		}
		i++
	}
	return token{}, 0, &ParseError{Pos: start, Reason: "unterminated string literal"}
}

func unquote(raw string, quote byte) (string, error) {
	if quote == '"' {
		return strconv.Unquote(raw)
	}
	body := raw[1 : len(raw)-1]
	var b strings.Builder
	for i := 0; i < len(body); i++ {
		if body[i] == '\\' && i+1 < len(body) {
			i++
		}
		b.WriteByte(body[i])
	}
	return b.String(), nil
}

func lexNumber(src string, start int) (token, int, error) {
	i := start
	if src[i] == '-' {
		i++
	}
	for i < len(src) && (src[i] >= '0' && src[i] <= '9' || src[i] == '.' || src[i] == 'e' || src[i] == 'E' ||
		((src[i] == '+' || src[i] == '-') && (src[i-1] == 'e' || src[i-1] == 'E'))) {
		i++
	}
	text := src[start:i]
	if _, err := strconv.ParseFloat(text, 64); err != nil {
		return token{}, 0, &ParseError{Pos: start, Reason: "invalid number " + strconv.Quote(text)}
	}
	return token{kind: tokNumber, text: text, pos: start}, i, nil
}

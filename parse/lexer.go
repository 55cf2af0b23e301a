// Package parse turns policy source text into the initial well-formed
// tree consumed by the compile pipeline. The grammar is the v0 Rego
// surface syntax, with the v1 keyword requirements selectable at
// parser construction.
package parse

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/termfx/regolith/ast"
)

type tokenType uint8

const (
	tokEOF tokenType = iota
	tokIdent
	tokInt
	tokFloat
	tokString
	tokRawString
	tokLBrace
	tokRBrace
	tokLBrack
	tokRBrack
	tokLParen
	tokRParen
	tokComma
	tokSemicolon
	tokColon
	tokDot
	tokAssign  // :=
	tokUnify   // =
	tokEq      // ==
	tokNeq     // !=
	tokLt      // <
	tokLte     // <=
	tokGt      // >
	tokGte     // >=
	tokPlus    // +
	tokMinus   // -
	tokStar    // *
	tokSlash   // /
	tokPercent // %
	tokAmp     // &
	tokPipe    // |
)

var tokenNames = map[tokenType]string{
	tokEOF: "end of input", tokIdent: "identifier", tokInt: "integer",
	tokFloat: "float", tokString: "string", tokRawString: "raw string",
	tokLBrace: "{", tokRBrace: "}", tokLBrack: "[", tokRBrack: "]",
	tokLParen: "(", tokRParen: ")", tokComma: ",", tokSemicolon: ";",
	tokColon: ":", tokDot: ".", tokAssign: ":=", tokUnify: "=",
	tokEq: "==", tokNeq: "!=", tokLt: "<", tokLte: "<=", tokGt: ">",
	tokGte: ">=", tokPlus: "+", tokMinus: "-", tokStar: "*",
	tokSlash: "/", tokPercent: "%", tokAmp: "&", tokPipe: "|",
}

type token struct {
	typ  tokenType
	text string
	loc  ast.Location
	// nlBefore records whether a line break separated this token from
	// the previous one; bodies use it as a literal separator.
	nlBefore bool
}

func (t token) String() string {
	if t.typ == tokIdent || t.typ == tokInt || t.typ == tokFloat {
		return t.text
	}
	return tokenNames[t.typ]
}

type lexer struct {
	src  string
	file string
	pos  int
	line int
	col  int
}

func newLexer(file, src string) *lexer {
	return &lexer{src: src, file: file, line: 1, col: 1}
}

func (l *lexer) loc() ast.Location {
	return ast.Location{File: l.file, Line: l.line, Col: l.col}
}

func (l *lexer) errorf(loc ast.Location, format string, args ...any) error {
	return &Error{Loc: loc, Msg: fmt.Sprintf(format, args...)}
}

// Error is a surface-syntax failure. It renders with position so the
// facade can attach it to a rego_parse_error node.
type Error struct {
	Loc ast.Location
	Msg string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s:%d:%d: %s", e.Loc.File, e.Loc.Line, e.Loc.Col, e.Msg)
}

func (l *lexer) advance(n int) {
	for i := 0; i < n; i++ {
		if l.pos >= len(l.src) {
			return
		}
		if l.src[l.pos] == '\n' {
			l.line++
			l.col = 1
		} else {
			l.col++
		}
		l.pos++
	}
}

func (l *lexer) peek() byte {
	if l.pos >= len(l.src) {
		return 0
	}
	return l.src[l.pos]
}

func (l *lexer) peekAt(n int) byte {
	if l.pos+n >= len(l.src) {
		return 0
	}
	return l.src[l.pos+n]
}

func (l *lexer) skipSpace() bool {
	sawNewline := false
	for l.pos < len(l.src) {
		c := l.src[l.pos]
		if c == '#' {
			for l.pos < len(l.src) && l.src[l.pos] != '\n' {
				l.advance(1)
			}
			continue
		}
		if c == ' ' || c == '\t' || c == '\r' || c == '\n' {
			if c == '\n' {
				sawNewline = true
			}
			l.advance(1)
			continue
		}
		break
	}
	return sawNewline
}

// next scans one token.
func (l *lexer) next() (token, error) {
	nl := l.skipSpace()
	tok, err := l.scanToken()
	tok.nlBefore = nl
	return tok, err
}

func (l *lexer) scanToken() (token, error) {
	loc := l.loc()
	if l.pos >= len(l.src) {
		return token{typ: tokEOF, loc: loc}, nil
	}

	c := l.peek()
	switch {
	case c == '"':
		text, err := l.scanString()
		if err != nil {
			return token{}, err
		}
		return token{typ: tokString, text: text, loc: loc}, nil
	case c == '`':
		l.advance(1)
		start := l.pos
		for l.pos < len(l.src) && l.src[l.pos] != '`' {
			l.advance(1)
		}
		if l.pos >= len(l.src) {
			return token{}, l.errorf(loc, "unterminated raw string")
		}
		text := l.src[start:l.pos]
		l.advance(1)
		return token{typ: tokRawString, text: text, loc: loc}, nil
	case c >= '0' && c <= '9':
		return l.scanNumber(loc)
	case isIdentStart(rune(c)):
		start := l.pos
		for l.pos < len(l.src) && isIdentPart(rune(l.src[l.pos])) {
			l.advance(1)
		}
		return token{typ: tokIdent, text: l.src[start:l.pos], loc: loc}, nil
	}

	two := ""
	if l.pos+1 < len(l.src) {
		two = l.src[l.pos : l.pos+2]
	}
	switch two {
	case ":=":
		l.advance(2)
		return token{typ: tokAssign, loc: loc}, nil
	case "==":
		l.advance(2)
		return token{typ: tokEq, loc: loc}, nil
	case "!=":
		l.advance(2)
		return token{typ: tokNeq, loc: loc}, nil
	case "<=":
		l.advance(2)
		return token{typ: tokLte, loc: loc}, nil
	case ">=":
		l.advance(2)
		return token{typ: tokGte, loc: loc}, nil
	}

	single := map[byte]tokenType{
		'{': tokLBrace, '}': tokRBrace, '[': tokLBrack, ']': tokRBrack,
		'(': tokLParen, ')': tokRParen, ',': tokComma, ';': tokSemicolon,
		':': tokColon, '.': tokDot, '=': tokUnify, '<': tokLt,
		'>': tokGt, '+': tokPlus, '-': tokMinus, '*': tokStar,
		'/': tokSlash, '%': tokPercent, '&': tokAmp, '|': tokPipe,
	}
	if typ, ok := single[c]; ok {
		l.advance(1)
		return token{typ: typ, loc: loc}, nil
	}
	return token{}, l.errorf(loc, "unexpected character %q", string(rune(c)))
}

func (l *lexer) scanNumber(loc ast.Location) (token, error) {
	start := l.pos
	for l.pos < len(l.src) && l.src[l.pos] >= '0' && l.src[l.pos] <= '9' {
		l.advance(1)
	}
	isFloat := false
	if l.peek() == '.' && l.peekAt(1) >= '0' && l.peekAt(1) <= '9' {
		isFloat = true
		l.advance(1)
		for l.pos < len(l.src) && l.src[l.pos] >= '0' && l.src[l.pos] <= '9' {
			l.advance(1)
		}
	}
	if c := l.peek(); c == 'e' || c == 'E' {
		isFloat = true
		l.advance(1)
		if c := l.peek(); c == '+' || c == '-' {
			l.advance(1)
		}
		if c := l.peek(); c < '0' || c > '9' {
			return token{}, l.errorf(loc, "malformed number")
		}
		for l.pos < len(l.src) && l.src[l.pos] >= '0' && l.src[l.pos] <= '9' {
			l.advance(1)
		}
	}
	text := l.src[start:l.pos]
	if isFloat {
		return token{typ: tokFloat, text: text, loc: loc}, nil
	}
	return token{typ: tokInt, text: text, loc: loc}, nil
}

// scanString reads a quoted string and returns its unescaped value.
func (l *lexer) scanString() (string, error) {
	loc := l.loc()
	l.advance(1)
	var b strings.Builder
	for {
		if l.pos >= len(l.src) {
			return "", l.errorf(loc, "unterminated string")
		}
		c := l.src[l.pos]
		if c == '"' {
			l.advance(1)
			return b.String(), nil
		}
		if c == '\n' {
			return "", l.errorf(loc, "newline in string")
		}
		if c != '\\' {
			b.WriteByte(c)
			l.advance(1)
			continue
		}
		l.advance(1)
		if l.pos >= len(l.src) {
			return "", l.errorf(loc, "unterminated escape")
		}
		esc := l.src[l.pos]
		switch esc {
		case '"', '\\', '/':
			b.WriteByte(esc)
			l.advance(1)
		case 'n':
			b.WriteByte('\n')
			l.advance(1)
		case 't':
			b.WriteByte('\t')
			l.advance(1)
		case 'r':
			b.WriteByte('\r')
			l.advance(1)
		case 'b':
			b.WriteByte('\b')
			l.advance(1)
		case 'f':
			b.WriteByte('\f')
			l.advance(1)
		case 'u':
			if l.pos+4 >= len(l.src) {
				return "", l.errorf(loc, "truncated unicode escape")
			}
			hex := l.src[l.pos+1 : l.pos+5]
			var r rune
			if _, err := fmt.Sscanf(hex, "%04x", &r); err != nil {
				return "", l.errorf(loc, "invalid unicode escape \\u%s", hex)
			}
			if !utf8.ValidRune(r) {
				r = utf8.RuneError
			}
			b.WriteRune(r)
			l.advance(5)
		default:
			return "", l.errorf(loc, "invalid escape \\%s", string(rune(esc)))
		}
	}
}

func isIdentStart(r rune) bool {
	return r == '_' || unicode.IsLetter(r)
}

func isIdentPart(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

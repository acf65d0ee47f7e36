// Package fscript implements the grammar port for ForgeScript. The parser is
// deliberately tolerant: editor buffers are incomplete most of the time, so
// it recovers at statement boundaries and reports what it could not read as
// syntax diagnostics instead of failing the parse.
//
// The grammar works in its own 1-based line/column coordinates; spans are
// normalized to 0-based before leaving this package.
package fscript

import "strings"

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokIdent
	tokString
	tokNumber
	tokLParen
	tokRParen
	tokComma
	tokDot
	tokInvalid
)

// token carries 1-based coordinates. endCol is the column just past the
// token's last character.
type token struct {
	kind    tokenKind
	text    string // identifier name, unquoted string value, or raw number
	line    int
	col     int
	endCol  int
	unclosd bool // unterminated string literal
}

type lexer struct {
	lines []string
	line  int // 0-based index into lines
	col   int // 0-based index into the current line
}

func newLexer(text string) *lexer {
	return &lexer{lines: strings.Split(text, "\n")}
}

// next returns the next token, skipping whitespace and comments. Statement
// boundaries are newlines; next reports them implicitly through line numbers.
func (l *lexer) next() token {
	for l.line < len(l.lines) {
		line := l.lines[l.line]
		for l.col < len(line) {
			c := line[l.col]
			switch {
			case c == ' ' || c == '\t' || c == '\r':
				l.col++
			case c == '#':
				l.col = len(line) // comment to end of line
			case isIdentStart(c):
				return l.lexIdent(line)
			case c >= '0' && c <= '9':
				return l.lexNumber(line)
			case c == '"' || c == '\'':
				return l.lexString(line, c)
			case c == '(':
				return l.single(tokLParen, "(")
			case c == ')':
				return l.single(tokRParen, ")")
			case c == ',':
				return l.single(tokComma, ",")
			case c == '.':
				return l.single(tokDot, ".")
			default:
				return l.single(tokInvalid, string(c))
			}
		}
		l.line++
		l.col = 0
	}
	return token{kind: tokEOF, line: l.line + 1, col: 1, endCol: 1}
}

func (l *lexer) single(kind tokenKind, text string) token {
	t := token{kind: kind, text: text, line: l.line + 1, col: l.col + 1, endCol: l.col + 2}
	l.col++
	return t
}

func (l *lexer) lexIdent(line string) token {
	start := l.col
	for l.col < len(line) && isIdentPart(line[l.col]) {
		l.col++
	}
	return token{
		kind: tokIdent, text: line[start:l.col],
		line: l.line + 1, col: start + 1, endCol: l.col + 1,
	}
}

func (l *lexer) lexNumber(line string) token {
	start := l.col
	for l.col < len(line) && (line[l.col] >= '0' && line[l.col] <= '9' || line[l.col] == '.') {
		l.col++
	}
	return token{
		kind: tokNumber, text: line[start:l.col],
		line: l.line + 1, col: start + 1, endCol: l.col + 1,
	}
}

// lexString reads to the closing quote or end of line. Escapes are limited
// to \" \' and \\; anything else passes through verbatim.
func (l *lexer) lexString(line string, quote byte) token {
	start := l.col
	l.col++
	var b strings.Builder
	for l.col < len(line) {
		c := line[l.col]
		if c == '\\' && l.col+1 < len(line) {
			n := line[l.col+1]
			if n == quote || n == '\\' {
				b.WriteByte(n)
				l.col += 2
				continue
			}
		}
		if c == quote {
			l.col++
			return token{
				kind: tokString, text: b.String(),
				line: l.line + 1, col: start + 1, endCol: l.col + 1,
			}
		}
		b.WriteByte(c)
		l.col++
	}
	return token{
		kind: tokString, text: b.String(), unclosd: true,
		line: l.line + 1, col: start + 1, endCol: l.col + 1,
	}
}

func isIdentStart(c byte) bool {
	return c == '_' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z'
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || c >= '0' && c <= '9'
}

// Released under an MIT license. See LICENSE.

// Package lexer provides a lexical scanner for guest source text.
//
// The lexer adapts the state function approach used by Go's text/template
// lexer and described in detail in Rob Pike's talk "Lexical Scanning in Go".
// See https://talks.golang.org/2011/lex.slide for more information.
//
// On top of the usual state functions the scanner tracks bracket depth and
// an indentation stack so that it can synthesize Newline, Indent and Dedent
// tokens for the block structure of the language.
package lexer

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/michaelmacinnis/enclave/internal/common/struct/loc"
	"github.com/michaelmacinnis/enclave/internal/common/struct/token"
)

// T holds the state of the scanner.
type T struct {
	bytes string // Buffer being scanned.
	first int    // Index of the current token's first byte.
	index int    // Index of the current byte.
	state action // Current action.

	depth   int   // Bracket nesting depth.
	indents []int // Indentation stack.
	line    int   // Current line number.
	start   int   // Index of the first byte on the current line.

	source loc.T // Location of the current token.

	last   token.Class // Class of the most recently emitted token.
	tokens []*token.T
}

// New creates a new T. Label can be a file name or other identifier.
func New(label, text string) *T {
	l := &T{
		bytes:   text,
		indents: []int{0},
		line:    1,
		source: loc.T{
			Char: 1,
			Line: 1,
			Name: label,
		},
	}

	l.state = scanIndentation

	return l
}

// Text is used to return the text corresponding to the current token.
func (l *T) Text() string {
	return l.bytes[l.first:l.index]
}

// Token returns the next scanned token. After the final EOF token (or an
// Error token) Token returns nil.
func (l *T) Token() *token.T {
	for {
		if len(l.tokens) > 0 {
			t := l.tokens[0]
			l.tokens = l.tokens[1:]

			return t
		}

		if l.state == nil {
			return nil
		}

		l.state = l.state(l)
	}
}

type action func(*T) action

const eof = -1

const tabstop = 8

func (l *T) accept(r rune, w int) {
	if r == '\n' {
		l.line++
		l.start = l.index + w
	}

	l.index += w
}

func (l *T) emit(c token.Class, v string) {
	l.tokens = append(l.tokens, token.New(c, v, l.source))
	l.last = c
	l.skip()
}

func (l *T) fail(msg string) action {
	l.emit(token.Error, msg)

	return nil
}

func (l *T) mark() {
	l.first = l.index
	l.source.Line = l.line
	l.source.Char = utf8.RuneCountInString(l.bytes[l.start:l.index]) + 1
}

func (l *T) next() rune {
	r, w := l.peek()
	l.accept(r, w)

	return r
}

func (l *T) peek() (rune, int) {
	return l.peekAt(l.index)
}

func (l *T) peekAt(i int) (rune, int) {
	r, w := rune(eof), 0
	if i < len(l.bytes) {
		r, w = utf8.DecodeRuneInString(l.bytes[i:])
	}

	return r, w
}

func (l *T) skip() {
	l.first = l.index
}

// T states.

// scanIndentation runs at the start of every logical line.
func scanIndentation(l *T) action {
	width := 0

	for {
		r, w := l.peek()

		switch r {
		case ' ':
			width++
		case '\t':
			width += tabstop - width%tabstop
		case '\f':
			width = 0
		case '\r':
		case '#':
			skipToEndOfLine(l)

			continue
		case '\n':
			// Blank lines do not affect indentation.
			l.accept(r, w)
			width = 0

			continue
		case '\\':
			if n, _ := l.peekAt(l.index + 1); n == '\n' {
				l.accept(r, w)
				l.accept(n, 1)

				continue
			}

			return l.indent(width)
		case eof:
			return scanEnd
		default:
			return l.indent(width)
		}

		l.accept(r, w)
	}
}

func (l *T) indent(width int) action {
	l.mark()

	top := l.indents[len(l.indents)-1]

	switch {
	case width > top:
		l.indents = append(l.indents, width)
		l.emit(token.Indent, "")
	case width < top:
		for width < l.indents[len(l.indents)-1] {
			l.indents = l.indents[:len(l.indents)-1]
			l.emit(token.Dedent, "")
		}

		if width != l.indents[len(l.indents)-1] {
			return l.fail("unindent does not match any outer indentation level")
		}
	}

	return scanToken
}

func scanEnd(l *T) action {
	l.mark()

	switch l.last {
	case token.Error, token.Newline, token.Dedent:
	default:
		l.emit(token.Newline, "")
	}

	for len(l.indents) > 1 {
		l.indents = l.indents[:len(l.indents)-1]
		l.emit(token.Dedent, "")
	}

	l.emit(token.EOF, "")

	return nil
}

func scanToken(l *T) action {
	for {
		r, w := l.peek()

		switch {
		case r == ' ' || r == '\t' || r == '\f' || r == '\r':
			l.accept(r, w)

			continue
		case r == '#':
			skipToEndOfLine(l)

			continue
		case r == '\\':
			n, _ := l.peekAt(l.index + 1)
			if n == '\r' {
				n, _ = l.peekAt(l.index + 2)
				l.accept('\r', 1)
			}

			if n != '\n' {
				l.mark()

				return l.fail("unexpected character after line continuation character")
			}

			l.accept(r, w)
			l.accept('\n', 1)

			continue
		case r == '\n':
			l.mark()
			l.accept(r, w)

			if l.depth > 0 {
				l.skip()

				continue
			}

			l.emit(token.Newline, "\n")

			return scanIndentation
		case r == eof:
			if l.depth > 0 {
				l.mark()

				return l.fail("unexpected EOF while scanning brackets")
			}

			return scanEnd
		}

		l.mark()

		switch {
		case r == '_' || unicode.IsLetter(r):
			return scanName
		case unicode.IsDigit(r):
			return scanNumber
		case r == '.':
			if n, _ := l.peekAt(l.index + 1); n >= '0' && n <= '9' {
				return scanNumber
			}

			return scanOperator
		case r == '"' || r == '\'':
			return scanString
		default:
			return scanOperator
		}
	}
}

func scanName(l *T) action {
	for {
		r, w := l.peek()
		if r != '_' && !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			break
		}

		l.accept(r, w)
	}

	text := l.Text()

	if r, _ := l.peek(); r == '"' || r == '\'' {
		if prefix(text) {
			return scanString
		}
	}

	if keywords[text] {
		l.emit(token.Keyword, text)
	} else {
		l.emit(token.Name, text)
	}

	return scanToken
}

func scanNumber(l *T) action {
	r := l.next()

	digits := func(ok func(rune) bool) {
		for {
			r, w := l.peek()
			if r != '_' && !ok(r) {
				return
			}

			l.accept(r, w)
		}
	}

	if r == '0' {
		n, w := l.peek()

		var ok func(rune) bool

		switch n {
		case 'x', 'X':
			ok = isHex
		case 'o', 'O':
			ok = isOctal
		case 'b', 'B':
			ok = isBinary
		}

		if ok != nil {
			l.accept(n, w)
			digits(ok)

			return l.number()
		}
	}

	digits(unicode.IsDigit)

	if r, w := l.peek(); r == '.' {
		l.accept(r, w)
		digits(unicode.IsDigit)
	}

	if r, w := l.peek(); r == 'e' || r == 'E' {
		n, nw := l.peekAt(l.index + w)
		if n == '+' || n == '-' {
			n, _ = l.peekAt(l.index + w + nw)
		}

		if n >= '0' && n <= '9' {
			l.accept(r, w)

			if s, sw := l.peek(); s == '+' || s == '-' {
				l.accept(s, sw)
			}

			digits(unicode.IsDigit)
		}
	}

	if r, w := l.peek(); r == 'j' || r == 'J' {
		l.accept(r, w)

		return l.fail("complex literals are not supported")
	}

	return l.number()
}

func (l *T) number() action {
	if r, _ := l.peek(); r == '_' || unicode.IsLetter(r) {
		return l.fail("invalid decimal literal")
	}

	l.emit(token.Number, l.Text())

	return scanToken
}

func scanOperator(l *T) action {
	rest := l.bytes[l.index:]

	for _, op := range operators {
		if strings.HasPrefix(rest, op) {
			for range op {
				l.next()
			}

			switch op {
			case "(", "[", "{":
				l.depth++
			case ")", "]", "}":
				if l.depth > 0 {
					l.depth--
				}
			}

			l.emit(token.Operator, op)

			return scanToken
		}
	}

	r := l.next()

	return l.fail("invalid character " + quoteRune(r))
}

func scanString(l *T) action {
	class := token.String

	p := strings.ToLower(l.Text())
	if strings.Contains(p, "b") {
		class = token.Bytes
	} else if strings.Contains(p, "f") {
		class = token.FString
	}

	q := l.next()

	triple := false
	if strings.HasPrefix(l.bytes[l.index:], string([]rune{q, q})) {
		l.next()
		l.next()

		triple = true
	}

	if !l.stringBody(q, triple, class == token.FString) {
		return nil
	}

	l.emit(class, l.Text())

	return scanToken
}

// stringBody consumes the rest of a string literal, including the closing
// quote. Replacement fields in f-strings may contain nested strings and
// brackets.
func (l *T) stringBody(q rune, triple, format bool) bool {
	for {
		r := l.next()

		switch r {
		case eof:
			if triple {
				l.fail("unterminated triple-quoted string literal")
			} else {
				l.fail("unterminated string literal")
			}

			return false
		case '\n':
			if !triple {
				l.fail("unterminated string literal")

				return false
			}
		case '\\':
			if n := l.next(); n == eof {
				l.fail("unterminated string literal")

				return false
			}
		case q:
			if !triple {
				return true
			}

			if strings.HasPrefix(l.bytes[l.index:], string([]rune{q, q})) {
				l.next()
				l.next()

				return true
			}
		case '{':
			if !format {
				continue
			}

			if n, w := l.peek(); n == '{' {
				l.accept(n, w)

				continue
			}

			if !l.replacementField() {
				return false
			}
		}
	}
}

// replacementField consumes an f-string expression up to its closing brace.
func (l *T) replacementField() bool {
	depth := 0

	for {
		r := l.next()

		switch r {
		case eof:
			l.fail("f-string: expecting '}'")

			return false
		case '(', '[', '{':
			depth++
		case ')', ']':
			depth--
		case '}':
			if depth == 0 {
				return true
			}

			depth--
		case '"', '\'':
			triple := false
			if strings.HasPrefix(l.bytes[l.index:], string([]rune{r, r})) {
				l.next()
				l.next()

				triple = true
			}

			if !l.stringBody(r, triple, true) {
				return false
			}
		}
	}
}

func skipToEndOfLine(l *T) {
	for {
		r, w := l.peek()
		if r == '\n' || r == eof {
			return
		}

		l.accept(r, w)
	}
}

func isBinary(r rune) bool {
	return r == '0' || r == '1'
}

func isHex(r rune) bool {
	return unicode.IsDigit(r) || (r >= 'a' && r <= 'f') || (r >= 'A' && r <= 'F')
}

func isOctal(r rune) bool {
	return r >= '0' && r <= '7'
}

func prefix(s string) bool {
	switch strings.ToLower(s) {
	case "r", "u", "b", "br", "rb", "f", "fr", "rf":
		return true
	}

	return false
}

func quoteRune(r rune) string {
	return "'" + string(r) + "'"
}

//nolint:gochecknoglobals
var (
	keywords = map[string]bool{
		"False": true, "None": true, "True": true, "and": true,
		"as": true, "assert": true, "async": true, "await": true,
		"break": true, "class": true, "continue": true, "def": true,
		"del": true, "elif": true, "else": true, "except": true,
		"finally": true, "for": true, "from": true, "global": true,
		"if": true, "import": true, "in": true, "is": true,
		"lambda": true, "nonlocal": true, "not": true, "or": true,
		"pass": true, "raise": true, "return": true, "try": true,
		"while": true, "with": true, "yield": true,
	}

	// Longest first so that prefixes do not shadow longer operators.
	operators = []string{
		"**=", "//=", ">>=", "<<=", "...",
		"->", ":=", "**", "//", "<<", ">>", "<=", ">=", "==", "!=",
		"+=", "-=", "*=", "/=", "%=", "&=", "|=", "^=", "@=",
		"+", "-", "*", "/", "%", "@", "&", "|", "^", "~", "<", ">",
		"(", ")", "[", "]", "{", "}", ",", ":", ".", ";", "=", "!",
	}
)

// Released under an MIT license. See LICENSE.

// Package parser provides a recursive descent parser for guest source text.
package parser

import (
	"fmt"
	"strings"

	"github.com/michaelmacinnis/enclave/internal/common/struct/loc"
	"github.com/michaelmacinnis/enclave/internal/common/struct/token"
	"github.com/michaelmacinnis/enclave/internal/reader/ast"
)

// Error is a syntax error. Incomplete is true when the error was caused by
// running out of input, which lets an interactive reader ask for more.
type Error struct {
	Loc        loc.T
	Msg        string
	Incomplete bool
}

func (e *Error) Error() string {
	return e.Loc.String() + ": " + e.Msg
}

// T holds the state of the parser.
type T struct {
	index  int         // Index of the lookahead token.
	tokens []*token.T  // Every token in the source.
	loops  int         // Loop nesting depth, for break and continue.
	funcs  []*function // Enclosing function bodies.
}

type parser = T

type function struct {
	async bool
	loops int
}

// New creates a new parser that reads every token item produces.
func New(item func() *token.T) *T {
	p := &T{}

	for t := item(); t != nil; t = item() {
		p.tokens = append(p.tokens, t)

		if t.Is(token.Error, token.EOF) {
			break
		}
	}

	return p
}

// Parse consumes tokens and returns the module they describe.
func (p *parser) Parse() (m *ast.Module, err error) {
	defer func() {
		r := recover()
		if r == nil {
			return
		}

		if e, ok := r.(*Error); ok {
			m, err = nil, e

			return
		}

		panic(r)
	}()

	m = &ast.Module{Pos: p.at()}

	for !p.peek().Is(token.EOF) {
		if p.peek().Is(token.Newline) {
			p.consume()

			continue
		}

		m.Body = append(m.Body, p.statement()...)
	}

	return m, nil
}

// ParseExpression parses a single expression followed by the end of input.
func (p *parser) ParseExpression() (e ast.Expr, err error) {
	defer func() {
		r := recover()
		if r == nil {
			return
		}

		if pe, ok := r.(*Error); ok {
			e, err = nil, pe

			return
		}

		panic(r)
	}()

	e = p.starExpressions()

	for p.peek().Is(token.Newline) {
		p.consume()
	}

	if !p.peek().Is(token.EOF) {
		p.unexpected()
	}

	return e, nil
}

func (p *parser) at() ast.Pos {
	return ast.Pos{At: p.peek().Source()}
}

func (p *parser) consume() *token.T {
	t := p.peek()

	if p.index < len(p.tokens)-1 {
		p.index++
	}

	return t
}

func (p *parser) expect(c token.Class) *token.T {
	if !p.peek().Is(c) {
		p.fail("expected " + strings.ToLower(c.String()))
	}

	return p.consume()
}

func (p *parser) expectOp(op string) *token.T {
	if !p.peek().Op(op) {
		p.fail("expected '" + op + "'")
	}

	return p.consume()
}

func (p *parser) expectWord(w string) *token.T {
	if !p.peek().Word(w) {
		p.fail("expected '" + w + "'")
	}

	return p.consume()
}

func (p *parser) fail(msg string) {
	t := p.peek()

	if t.Is(token.Error) {
		panic(&Error{
			Loc:        t.Source(),
			Msg:        t.Value(),
			Incomplete: strings.Contains(t.Value(), "EOF") || strings.Contains(t.Value(), "unterminated triple"),
		})
	}

	if t.Is(token.EOF) {
		panic(&Error{Loc: t.Source(), Msg: "unexpected EOF: " + msg, Incomplete: true})
	}

	panic(&Error{Loc: t.Source(), Msg: msg + ", found " + describe(t)})
}

func (p *parser) failAt(n ast.Node, format string, args ...any) {
	panic(&Error{Loc: n.Position(), Msg: fmt.Sprintf(format, args...)})
}

// name consumes an identifier. Soft keywords are identifiers.
func (p *parser) name() string {
	return p.expect(token.Name).Value()
}

func (p *parser) peek() *token.T {
	return p.tokens[p.index]
}

func (p *parser) peekAt(n int) *token.T {
	if i := p.index + n; i < len(p.tokens) {
		return p.tokens[i]
	}

	return p.tokens[len(p.tokens)-1]
}

func (p *parser) unexpected() {
	p.fail("invalid syntax")
}

// speculate runs f and reports whether it parsed without error. On failure
// the parser is rewound.
func (p *parser) speculate(f func()) (ok bool) {
	saved := p.index

	defer func() {
		if r := recover(); r != nil {
			if _, isErr := r.(*Error); !isErr {
				panic(r)
			}

			p.index = saved
			ok = false
		}
	}()

	f()

	return true
}

func describe(t *token.T) string {
	switch t.Class() {
	case token.Newline:
		return "newline"
	case token.Indent:
		return "indent"
	case token.Dedent:
		return "dedent"
	case token.EOF:
		return "end of input"
	}

	return "'" + t.Value() + "'"
}

// Released under an MIT license. See LICENSE.

package lexer

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/michaelmacinnis/enclave/internal/common/struct/loc"
	"github.com/michaelmacinnis/enclave/internal/common/struct/token"
)

func TestBlankLinesAndComments(t *testing.T) {
	h := setup(t, "BlankLinesAndComments")

	h.scan("# comment\n\nx = 1  # trailing\n\n",
		h.name("x"),
		h.op("="),
		h.other(token.Number, "1"),
		h.newline(),
		h.end(),
	)
}

func TestBracketsSuppressNewlines(t *testing.T) {
	h := setup(t, "BracketsSuppressNewlines")

	h.scan("f(1,\n  2)\n",
		h.name("f"),
		h.op("("),
		h.other(token.Number, "1"),
		h.op(","),
		h.other(token.Number, "2"),
		h.op(")"),
		h.newline(),
		h.end(),
	)
}

func TestIndentation(t *testing.T) {
	h := setup(t, "Indentation")

	h.scan("if x:\n    y\n    if z:\n        w\nv\n",
		h.keyword("if"),
		h.name("x"),
		h.op(":"),
		h.newline(),
		h.other(token.Indent, ""),
		h.name("y"),
		h.newline(),
		h.keyword("if"),
		h.name("z"),
		h.op(":"),
		h.newline(),
		h.other(token.Indent, ""),
		h.name("w"),
		h.newline(),
		h.other(token.Dedent, ""),
		h.other(token.Dedent, ""),
		h.name("v"),
		h.newline(),
		h.end(),
	)
}

func TestDedentAtEOF(t *testing.T) {
	h := setup(t, "DedentAtEOF")

	h.scan("def f():\n  return 1",
		h.keyword("def"),
		h.name("f"),
		h.op("("),
		h.op(")"),
		h.op(":"),
		h.newline(),
		h.other(token.Indent, ""),
		h.keyword("return"),
		h.other(token.Number, "1"),
		h.other(token.Newline, ""),
		h.other(token.Dedent, ""),
		h.end(),
	)
}

func TestInconsistentDedent(t *testing.T) {
	h := setup(t, "InconsistentDedent")

	h.scan("if x:\n    y\n  z\n",
		h.keyword("if"),
		h.name("x"),
		h.op(":"),
		h.newline(),
		h.other(token.Indent, ""),
		h.name("y"),
		h.newline(),
		h.other(token.Dedent, ""),
		h.other(token.Error, "unindent does not match any outer indentation level"),
		nil,
	)
}

func TestLineContinuation(t *testing.T) {
	h := setup(t, "LineContinuation")

	h.scan("x = 1 + \\\n    2\n",
		h.name("x"),
		h.op("="),
		h.other(token.Number, "1"),
		h.op("+"),
		h.other(token.Number, "2"),
		h.newline(),
		h.end(),
	)
}

func TestNumbers(t *testing.T) {
	h := setup(t, "Numbers")

	h.scan("0x_ff 0o17 0b101 1_000 3.25 .5 1e10 2.5E-3\n",
		h.other(token.Number, "0x_ff"),
		h.other(token.Number, "0o17"),
		h.other(token.Number, "0b101"),
		h.other(token.Number, "1_000"),
		h.other(token.Number, "3.25"),
		h.other(token.Number, ".5"),
		h.other(token.Number, "1e10"),
		h.other(token.Number, "2.5E-3"),
		h.newline(),
		h.end(),
	)
}

func TestOperatorsLongestMatch(t *testing.T) {
	h := setup(t, "OperatorsLongestMatch")

	h.scan("a **= b // c -> d := e ...\n",
		h.name("a"),
		h.op("**="),
		h.name("b"),
		h.op("//"),
		h.name("c"),
		h.op("->"),
		h.name("d"),
		h.op(":="),
		h.name("e"),
		h.op("..."),
		h.newline(),
		h.end(),
	)
}

func TestSoftKeywordsAreNames(t *testing.T) {
	h := setup(t, "SoftKeywordsAreNames")

	h.scan("match case type _\n",
		h.name("match"),
		h.name("case"),
		h.name("type"),
		h.name("_"),
		h.newline(),
		h.end(),
	)
}

func TestStrings(t *testing.T) {
	h := setup(t, "Strings")

	h.scan(`'a' "b" r'\d' b"x" f"{y!r:>{w}}" rb'z'`+"\n",
		h.other(token.String, `'a'`),
		h.other(token.String, `"b"`),
		h.other(token.String, `r'\d'`),
		h.other(token.Bytes, `b"x"`),
		h.other(token.FString, `f"{y!r:>{w}}"`),
		h.other(token.Bytes, `rb'z'`),
		h.newline(),
		h.end(),
	)
}

func TestTripleQuotedString(t *testing.T) {
	h := setup(t, "TripleQuotedString")

	h.scan("'''one\ntwo'''\n",
		h.other(token.String, "'''one\ntwo'''"),
		h.newline(),
		h.end(),
	)
}

func TestUnterminatedString(t *testing.T) {
	h := setup(t, "UnterminatedString")

	h.scan("'abc\n",
		h.other(token.Error, "unterminated string literal"),
		nil,
	)
}

func TestUnclosedBracket(t *testing.T) {
	h := setup(t, "UnclosedBracket")

	h.scan("(1,\n",
		h.op("("),
		h.other(token.Number, "1"),
		h.op(","),
		h.other(token.Error, "unexpected EOF while scanning brackets"),
		nil,
	)
}

func TestPositions(t *testing.T) {
	l := New("Positions", "x = 1\n  \ny\n")

	x := l.Token()
	require.Equal(t, loc.T{Char: 1, Line: 1, Name: "Positions"}, x.Source())

	eq := l.Token()
	require.Equal(t, 3, eq.Source().Char)

	l.Token() // 1
	l.Token() // newline

	y := l.Token()
	require.Equal(t, "y", y.Value())
	require.Equal(t, loc.T{Char: 1, Line: 3, Name: "Positions"}, y.Source())
}

type harness struct {
	label string
	t     *testing.T
}

type expected struct {
	class token.Class
	value string
}

func setup(t *testing.T, label string) *harness {
	t.Helper()

	return &harness{label: label, t: t}
}

func (h *harness) end() *expected {
	return &expected{class: token.EOF}
}

func (h *harness) keyword(s string) *expected {
	return &expected{class: token.Keyword, value: s}
}

func (h *harness) name(s string) *expected {
	return &expected{class: token.Name, value: s}
}

func (h *harness) newline() *expected {
	return &expected{class: token.Newline, value: "\n"}
}

func (h *harness) op(s string) *expected {
	return &expected{class: token.Operator, value: s}
}

func (h *harness) other(c token.Class, s string) *expected {
	return &expected{class: c, value: s}
}

// scan checks that s produces exactly tokens. A trailing nil asserts that
// the scanner has stopped.
func (h *harness) scan(s string, tokens ...*expected) {
	h.t.Helper()

	l := New(h.label, s)

	for i, e := range tokens {
		a := l.Token()

		if e == nil {
			require.Nil(h.t, a, "expected no more tokens")

			continue
		}

		require.NotNil(h.t, a, "token %d: expected %v but there are no tokens", i, e.class)
		require.Equal(h.t, e.class, a.Class(), "token %d: %v", i, a)
		require.Equal(h.t, e.value, a.Value(), "token %d: %v", i, a)
	}
}

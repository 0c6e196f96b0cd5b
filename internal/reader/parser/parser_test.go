// Released under an MIT license. See LICENSE.

package parser

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/michaelmacinnis/enclave/internal/reader/ast"
	"github.com/michaelmacinnis/enclave/internal/reader/lexer"
)

func check(t *testing.T, s string) *ast.Module {
	t.Helper()

	m, err := New(lexer.New("test", s).Token).Parse()
	require.NoError(t, err)

	return m
}

func failure(t *testing.T, s string) *Error {
	t.Helper()

	_, err := New(lexer.New("test", s).Token).Parse()
	require.Error(t, err)

	e, ok := err.(*Error)
	require.True(t, ok, "expected a syntax error, got %T", err)

	return e
}

func expr(t *testing.T, s string) ast.Expr {
	t.Helper()

	m := check(t, s+"\n")
	require.Len(t, m.Body, 1)

	e, ok := m.Body[0].(*ast.ExprStmt)
	require.True(t, ok)

	return e.Value
}

func TestAssignments(t *testing.T) {
	m := check(t, "a = b = 1\nx, *y = z\nn += 2\nv: int = 3\n")
	require.Len(t, m.Body, 4)

	a := m.Body[0].(*ast.Assign)
	require.Len(t, a.Targets, 2)

	u := m.Body[1].(*ast.Assign)
	tuple := u.Targets[0].(*ast.Tuple)
	require.IsType(t, &ast.Starred{}, tuple.Elts[1])

	aug := m.Body[2].(*ast.AugAssign)
	require.Equal(t, "+", aug.Op)

	ann := m.Body[3].(*ast.AnnAssign)
	require.True(t, ann.Simple)
	require.Equal(t, "int", ann.Annotation.(*ast.Name).ID)
}

func TestBadTargets(t *testing.T) {
	require.Contains(t, failure(t, "f() = 1\n").Msg, "cannot assign to function call")
	require.Contains(t, failure(t, "*a, *b = c\n").Msg, "multiple starred expressions")
	require.Contains(t, failure(t, "a, b += 1\n").Msg, "illegal expression for augmented assignment")
}

func TestControlFlowContext(t *testing.T) {
	require.Equal(t, "'break' outside loop", failure(t, "break\n").Msg)
	require.Equal(t, "'continue' not properly in loop", failure(t, "if x:\n    continue\n").Msg)
	require.Equal(t, "'return' outside function", failure(t, "return 1\n").Msg)
	require.Equal(t, "'await' outside async function", failure(t, "def f():\n    await g()\n").Msg)

	// A loop outside a function does not license break inside it.
	require.Equal(t, "'break' outside loop", failure(t, "while x:\n    def f():\n        break\n").Msg)

	check(t, "async def f():\n    async for x in y:\n        await x\n")
	check(t, "for x in y:\n    while z:\n        break\n    continue\n")
}

func TestFStrings(t *testing.T) {
	j := expr(t, `f"a{b!r:>{w}}c{{d}}"`).(*ast.JoinedStr)
	require.Len(t, j.Values, 3)

	require.Equal(t, "a", j.Values[0].(*ast.Constant).Value)

	fv := j.Values[1].(*ast.FormattedValue)
	require.Equal(t, 'r', fv.Conversion)
	require.Equal(t, "b", fv.Value.(*ast.Name).ID)
	require.NotNil(t, fv.Spec)

	require.Equal(t, "c{d}", j.Values[2].(*ast.Constant).Value)

	debug := expr(t, `f"{x=}"`).(*ast.JoinedStr)
	require.Equal(t, "x=", debug.Values[0].(*ast.Constant).Value)
	require.Equal(t, 'r', debug.Values[1].(*ast.FormattedValue).Conversion)

	require.Contains(t, failure(t, "f'{}'\n").Msg, "empty expression")
	require.Contains(t, failure(t, "f'a}'\n").Msg, "single '}'")
}

func TestFunctionParameters(t *testing.T) {
	m := check(t, "def f(a, /, b=1, *args, c, d=2, **kw) -> int:\n    return a\n")

	f := m.Body[0].(*ast.FunctionDef)
	require.Equal(t, "f", f.Name)
	require.Len(t, f.Args.PosOnly, 1)
	require.Len(t, f.Args.Args, 1)
	require.Equal(t, "args", f.Args.Vararg.Name)
	require.Len(t, f.Args.KwOnly, 2)
	require.Nil(t, f.Args.KwDefaults[0])
	require.NotNil(t, f.Args.KwDefaults[1])
	require.Equal(t, "kw", f.Args.Kwarg.Name)
	require.Len(t, f.Args.Defaults, 1)
	require.NotNil(t, f.Returns)

	require.Contains(t, failure(t, "def f(a=1, b):\n    pass\n").Msg, "non-default argument")
	require.Contains(t, failure(t, "def f(a, a):\n    pass\n").Msg, "duplicate argument")
}

func TestCallArguments(t *testing.T) {
	c := expr(t, "f(1, *xs, k=2, **kw)").(*ast.Call)
	require.Len(t, c.Args, 2)
	require.Len(t, c.Keywords, 2)
	require.Equal(t, "k", c.Keywords[0].Arg)
	require.Equal(t, "", c.Keywords[1].Arg)

	require.Contains(t, failure(t, "f(k=1, k=2)\n").Msg, "keyword argument repeated")
	require.Contains(t, failure(t, "f(k=1, 2)\n").Msg, "positional argument follows keyword argument")
}

func TestIncomplete(t *testing.T) {
	for _, s := range []string{
		"def f():\n",
		"x = (1,\n",
		"'''abc\n",
		"if x:\n",
	} {
		require.True(t, failure(t, s).Incomplete, "%q should be incomplete", s)
	}

	require.False(t, failure(t, "x = )\n").Incomplete)
}

func TestIntegers(t *testing.T) {
	require.Equal(t, int64(255), expr(t, "0xff").(*ast.Constant).Value)
	require.Equal(t, int64(1000), expr(t, "1_000").(*ast.Constant).Value)
	require.Equal(t, int64(math.MinInt64), expr(t, "-9223372036854775808").(*ast.Constant).Value)
	require.InDelta(t, 0.5, expr(t, ".5").(*ast.Constant).Value, 1e-12)

	require.Equal(t, "integer literal is too large", failure(t, "9223372036854775808\n").Msg)
	require.Contains(t, failure(t, "012\n").Msg, "leading zeros")
}

func TestImports(t *testing.T) {
	m := check(t, "import a.b as c, d\nfrom ..pkg import (x, y as z)\nfrom __future__ import annotations\n")

	i := m.Body[0].(*ast.Import)
	require.Equal(t, "a.b", i.Names[0].Name)
	require.Equal(t, "c", i.Names[0].AsName)

	f := m.Body[1].(*ast.ImportFrom)
	require.Equal(t, 2, f.Level)
	require.Equal(t, "pkg", f.Module)
	require.Equal(t, "z", f.Names[1].AsName)

	require.Contains(t, failure(t, "from m import *\n").Msg, "wildcard")
	require.Contains(t, failure(t, "from __future__ import braces\n").Msg, "not defined")
}

func TestMatchPatterns(t *testing.T) {
	m := check(t, `match p:
    case [1, *rest]:
        pass
    case {"k": v, **others}:
        pass
    case Point(x=0, y=_) | Point(0, 0):
        pass
    case -1 | "s" | None as lit:
        pass
    case a, b:
        pass
    case _:
        pass
`)

	s := m.Body[0].(*ast.Match)
	require.Len(t, s.Cases, 6)

	seq := s.Cases[0].Pattern.(*ast.MatchSequence)
	require.Equal(t, "rest", seq.Patterns[1].(*ast.MatchStar).Name)

	mapping := s.Cases[1].Pattern.(*ast.MatchMapping)
	require.Equal(t, "others", mapping.Rest)
	require.Len(t, mapping.Keys, 1)

	or := s.Cases[2].Pattern.(*ast.MatchOr)
	cls := or.Patterns[0].(*ast.MatchClass)
	require.Equal(t, []string{"x", "y"}, cls.KwdAttrs)
	require.Len(t, or.Patterns[1].(*ast.MatchClass).Patterns, 2)

	as := s.Cases[3].Pattern.(*ast.MatchAs)
	require.Equal(t, "lit", as.Name)
	require.Len(t, as.Pattern.(*ast.MatchOr).Patterns, 3)

	require.Len(t, s.Cases[4].Pattern.(*ast.MatchSequence).Patterns, 2)

	wild := s.Cases[5].Pattern.(*ast.MatchAs)
	require.Nil(t, wild.Pattern)
	require.Equal(t, "", wild.Name)
}

func TestMatchIsASoftKeyword(t *testing.T) {
	m := check(t, "match = 1\nmatch(x)\n")
	require.IsType(t, &ast.Assign{}, m.Body[0])
	require.IsType(t, &ast.ExprStmt{}, m.Body[1])
}

func TestMatchOrUnreachable(t *testing.T) {
	e := failure(t, "match x:\n    case _ | 1:\n        pass\n")
	require.Contains(t, e.Msg, "unreachable")
}

func TestStringLiterals(t *testing.T) {
	require.Equal(t, "ab", expr(t, `"a" 'b'`).(*ast.Constant).Value)
	require.Equal(t, "a\tb\x41", expr(t, `"a\tb\x41"`).(*ast.Constant).Value)
	require.Equal(t, `a\tb`, expr(t, `r"a\tb"`).(*ast.Constant).Value)
	require.Equal(t, "é", expr(t, `"\u00e9"`).(*ast.Constant).Value)
	require.Equal(t, ast.Bytes("\x00A"), expr(t, `b"\0\101"`).(*ast.Constant).Value)
	require.Equal(t, `\d`, expr(t, `"\d"`).(*ast.Constant).Value)

	require.Contains(t, failure(t, "'a' b'c'\n").Msg, "cannot mix bytes")
}

func TestComprehensionsAndLambdas(t *testing.T) {
	lc := expr(t, "[x * y for x in a if x for y in b]").(*ast.ListComp)
	require.Len(t, lc.Generators, 2)
	require.Len(t, lc.Generators[0].Ifs, 1)

	dc := expr(t, "{k: v for k, v in items}").(*ast.DictComp)
	require.NotNil(t, dc.Key)

	ge := expr(t, "sum(x for x in y)").(*ast.Call)
	require.IsType(t, &ast.GeneratorExp{}, ge.Args[0])

	l := expr(t, "lambda a, *b, c=1: a").(*ast.Lambda)
	require.Equal(t, "b", l.Args.Vararg.Name)

	w := expr(t, "(y := f(x))").(*ast.NamedExpr)
	require.Equal(t, "y", w.Target.ID)
}

func TestTryForms(t *testing.T) {
	m := check(t, "try:\n    a\nexcept (E, F) as e:\n    b\nelse:\n    c\nfinally:\n    d\n")

	s := m.Body[0].(*ast.Try)
	require.Len(t, s.Handlers, 1)
	require.Equal(t, "e", s.Handlers[0].Name)
	require.Len(t, s.Else, 1)
	require.Len(t, s.Finally, 1)

	require.Contains(t, failure(t, "try:\n    a\n").Msg, "expected 'except' or 'finally'")
}

func TestClassAndDecorators(t *testing.T) {
	m := check(t, "@dec\nclass C(B, metaclass=M):\n    \"doc\"\n    def m(self):\n        return 1\n")

	c := m.Body[0].(*ast.ClassDef)
	require.Equal(t, "C", c.Name)
	require.Len(t, c.Decorators, 1)
	require.Len(t, c.Bases, 1)
	require.Equal(t, "metaclass", c.Keywords[0].Arg)
	require.Equal(t, "doc", c.Doc)
}

func TestTypeAliasAndParams(t *testing.T) {
	m := check(t, "type Pair[T] = tuple[T, T]\ndef first[T: int](xs: list[T]) -> T:\n    return xs[0]\n")

	a := m.Body[0].(*ast.TypeAlias)
	require.Equal(t, "Pair", a.Name)
	require.Len(t, a.TypeParams, 1)

	f := m.Body[1].(*ast.FunctionDef)
	require.NotNil(t, f.TypeParams[0].Bound)
}

func TestParseExpression(t *testing.T) {
	e, err := New(lexer.New("test", "1 + 2 * 3").Token).ParseExpression()
	require.NoError(t, err)

	b := e.(*ast.BinOp)
	require.Equal(t, "+", b.Op)
	require.Equal(t, "*", b.Right.(*ast.BinOp).Op)

	_, err = New(lexer.New("test", "1 +").Token).ParseExpression()
	require.Error(t, err)
}

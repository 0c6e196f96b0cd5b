// Released under an MIT license. See LICENSE.

package symtab

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/michaelmacinnis/enclave/internal/reader/ast"
	"github.com/michaelmacinnis/enclave/internal/reader/lexer"
	"github.com/michaelmacinnis/enclave/internal/reader/parser"
)

func analyze(t *testing.T, s string) *ast.Module {
	t.Helper()

	m, err := parser.New(lexer.New("test", s).Token).Parse()
	require.NoError(t, err)
	require.NoError(t, Analyze(m))

	return m
}

func failure(t *testing.T, s string) string {
	t.Helper()

	m, err := parser.New(lexer.New("test", s).Token).Parse()
	require.NoError(t, err)

	err = Analyze(m)
	require.Error(t, err)

	e, ok := err.(*Error)
	require.True(t, ok)

	return e.Msg
}

func TestClosures(t *testing.T) {
	m := analyze(t, `
def outer():
    x = 1
    y = 2
    def inner():
        nonlocal y
        y = x + y
        return z
    return inner
`)

	outer := m.Body[0].(*ast.FunctionDef)
	require.True(t, outer.Scope.Locals["x"])
	require.True(t, outer.Scope.Cells["x"])
	require.True(t, outer.Scope.Cells["y"])
	require.False(t, outer.Scope.Cells["inner"])

	inner := outer.Body[2].(*ast.FunctionDef)
	require.True(t, inner.Scope.Free["x"])
	require.True(t, inner.Scope.Free["y"])
	require.False(t, inner.Scope.Locals["y"])
	require.True(t, inner.Scope.Globals["z"])
}

func TestClassScopesAreSkipped(t *testing.T) {
	m := analyze(t, `
def f():
    v = 1
    class C:
        v = 2
        def m(self):
            return v
    return C
`)

	f := m.Body[0].(*ast.FunctionDef)
	c := f.Body[1].(*ast.ClassDef)
	method := c.Body[1].(*ast.FunctionDef)

	require.True(t, method.Scope.Free["v"])
	require.True(t, c.Scope.Locals["v"])
	require.True(t, c.Scope.Free["v"], "class passes the cell through")
	require.True(t, f.Scope.Cells["v"])
}

func TestClassCell(t *testing.T) {
	m := analyze(t, `
class C(B):
    def m(self):
        return super().m()
`)

	c := m.Body[0].(*ast.ClassDef)
	require.True(t, c.Scope.ClassCell)

	method := c.Body[0].(*ast.FunctionDef)
	require.True(t, method.Scope.Free[ClassCell])
	require.False(t, c.Scope.Free[ClassCell])
}

func TestComprehensionVariablesDoNotLeak(t *testing.T) {
	m := analyze(t, "x = 99\nys = [x for x in range(3)]\n")

	comp := m.Body[1].(*ast.Assign).Value.(*ast.ListComp)
	require.Equal(t, ast.ComprehensionScope, comp.Scope.Kind)
	require.True(t, comp.Scope.Locals["x"])
	require.True(t, m.Scope.Locals["x"])

	// The outermost iterable belongs to the enclosing block.
	require.True(t, m.Scope.Globals["range"])
	require.False(t, comp.Scope.Globals["range"])
	require.False(t, comp.Scope.Free["range"])
}

func TestInnerIterablesBelongToComprehension(t *testing.T) {
	m := analyze(t, "ys = [y for x in range(3) for y in enumerate(x)]\n")

	comp := m.Body[0].(*ast.Assign).Value.(*ast.ListComp)
	require.True(t, comp.Scope.Globals["enumerate"])
	require.False(t, comp.Scope.Globals["range"])
	require.True(t, m.Scope.Globals["range"])
}

func TestWalrusInComprehension(t *testing.T) {
	m := analyze(t, `
def f(xs):
    [last := x for x in xs]
    return last
`)

	f := m.Body[0].(*ast.FunctionDef)
	require.True(t, f.Scope.Locals["last"])
	require.True(t, f.Scope.Cells["last"])

	comp := f.Body[0].(*ast.ExprStmt).Value.(*ast.ListComp)
	require.True(t, comp.Scope.Free["last"])
	require.False(t, comp.Scope.Locals["last"])

	top := analyze(t, "[y := i for i in range(2)]\n")
	tc := top.Body[0].(*ast.ExprStmt).Value.(*ast.ListComp)
	require.True(t, tc.Scope.Globals["y"])
	require.True(t, top.Scope.Locals["y"])

	require.Contains(t, failure(t, "[x := 1 for x in y]\n"), "cannot rebind comprehension iteration variable")
	require.Contains(t, failure(t, "class C:\n    [z := 1 for x in y]\n"), "cannot be used in a class body")
}

func TestGenerators(t *testing.T) {
	m := analyze(t, "def g():\n    yield 1\ndef h():\n    return (x for x in y)\n")

	require.True(t, m.Body[0].(*ast.FunctionDef).Scope.Generator)

	h := m.Body[1].(*ast.FunctionDef)
	require.False(t, h.Scope.Generator)

	ge := h.Body[0].(*ast.Return).Value.(*ast.GeneratorExp)
	require.True(t, ge.Scope.Generator)

	require.Contains(t, failure(t, "def f():\n    return [(yield x) for x in y]\n"), "'yield' inside listcomp")
}

func TestDeclarationErrors(t *testing.T) {
	require.Equal(t, "no binding for nonlocal 'q' found",
		failure(t, "def f():\n    def g():\n        nonlocal q\n        q = 1\n"))
	require.Equal(t, "nonlocal declaration not allowed at module level",
		failure(t, "nonlocal x\n"))
	require.Equal(t, "name 'a' is parameter and global",
		failure(t, "def f(a):\n    global a\n"))
	require.Equal(t, "name 'x' is assigned to before global declaration",
		failure(t, "def f():\n    x = 1\n    global x\n"))
	require.Equal(t, "no binding for nonlocal 'g' found",
		failure(t, "g = 1\ndef f():\n    nonlocal g\n"))
}

func TestGlobalDeclarations(t *testing.T) {
	m := analyze(t, `
def f():
    global counter
    counter = 1
    def g():
        return counter
`)

	f := m.Body[0].(*ast.FunctionDef)
	require.True(t, f.Scope.Explicit["counter"])
	require.False(t, f.Scope.Locals["counter"])

	g := f.Body[2].(*ast.FunctionDef)
	require.True(t, g.Scope.Globals["counter"])
	require.False(t, g.Scope.Free["counter"])
}

func TestMangling(t *testing.T) {
	m := analyze(t, `
class _Widget:
    __count = 0
    def __init__(self):
        self.__secret = 1
        self.__dunder__ = 2
`)

	c := m.Body[0].(*ast.ClassDef)
	require.True(t, c.Scope.Locals["_Widget__count"])

	init := c.Body[1].(*ast.FunctionDef)
	require.Equal(t, "__init__", init.Name)

	secret := init.Body[0].(*ast.Assign).Targets[0].(*ast.Attribute)
	require.Equal(t, "_Widget__secret", secret.Attr)

	dunder := init.Body[1].(*ast.Assign).Targets[0].(*ast.Attribute)
	require.Equal(t, "__dunder__", dunder.Attr)

	require.Equal(t, "__x", Mangle("___", "__x"))
	require.Equal(t, "__x", Mangle("", "__x"))
}

func TestTypeParameters(t *testing.T) {
	m := analyze(t, "def first[T](xs: list[T]) -> T:\n    return xs[0]\n")

	f := m.Body[0].(*ast.FunctionDef)
	require.NotNil(t, f.ParamScope)
	require.Equal(t, ast.AnnotationScope, f.ParamScope.Kind)
	require.True(t, f.ParamScope.Locals["T"])
	require.True(t, m.Scope.Locals["first"])
}

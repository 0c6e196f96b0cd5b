// Released under an MIT license. See LICENSE.

package scope

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/michaelmacinnis/enclave/internal/engine/object"
	"github.com/michaelmacinnis/enclave/internal/reader/ast"
	"github.com/michaelmacinnis/enclave/internal/reader/symtab"
)

func block(k ast.ScopeKind, locals, free []string) *ast.Scope {
	s := ast.NewScope(k, "test")

	for _, n := range locals {
		s.Locals[n] = true
	}

	for _, n := range free {
		s.Free[n] = true
	}

	return s
}

func raises(t *testing.T, c *object.Class, f func()) {
	t.Helper()

	defer func() {
		r := recover()
		require.NotNil(t, r, "expected %s", c.Name)

		e, ok := r.(*object.Exception)
		require.True(t, ok, "unexpected panic %v", r)
		require.True(t, e.Matches(c), "got %s, expected %s", e.Class.Name, c.Name)
	}()

	f()
}

func TestFunctionLocals(t *testing.T) {
	th := object.NewThread()
	globals := object.NewDict()

	s := Function(block(ast.FunctionScope, []string{"x"}, nil), globals, nil, nil)
	require.True(t, s.FunctionLike())

	raises(t, object.UnboundLocalError, func() { s.Lookup(th, "x") })

	s.Store(th, "x", int64(1))
	require.Equal(t, int64(1), s.Lookup(th, "x"))

	_, leaked := globals.GetStr("x")
	require.False(t, leaked)

	locals := s.Locals()
	v, ok := locals.GetStr("x")
	require.True(t, ok)
	require.Equal(t, int64(1), v)

	s.Delete(th, "x")
	raises(t, object.UnboundLocalError, func() { s.Lookup(th, "x") })
	raises(t, object.UnboundLocalError, func() { s.Delete(th, "x") })
}

func TestGlobalsAndBuiltins(t *testing.T) {
	th := object.NewThread()

	globals := object.NewDict()
	builtins := object.NewDict()
	builtins.SetStr("len", "builtin len")

	info := block(ast.FunctionScope, nil, nil)
	info.Globals["g"] = true
	info.Explicit["g"] = true

	s := Function(info, globals, builtins, nil)

	require.Equal(t, "builtin len", s.Lookup(th, "len"))
	raises(t, object.NameError, func() { s.Lookup(th, "missing") })

	s.Store(th, "g", int64(2))

	v, ok := globals.GetStr("g")
	require.True(t, ok)
	require.Equal(t, int64(2), v)

	s.Delete(th, "g")
	raises(t, object.NameError, func() { s.Delete(th, "g") })
}

func TestCaptureSharesCells(t *testing.T) {
	th := object.NewThread()
	globals := object.NewDict()

	outerInfo := block(ast.FunctionScope, []string{"x"}, nil)
	outerInfo.Cells["x"] = true

	innerInfo := block(ast.FunctionScope, nil, []string{"x"})

	outer := Function(outerInfo, globals, nil, nil)
	outer.Store(th, "x", int64(1))

	first := outer.Capture(innerInfo)
	second := outer.Capture(innerInfo)
	require.Same(t, first["x"], second["x"])
	require.Same(t, outer.Cell("x"), first["x"])

	a := Function(innerInfo, globals, nil, first)
	b := Function(innerInfo, globals, nil, second)
	require.Equal(t, int64(1), a.Lookup(th, "x"))

	a.Store(th, "x", int64(2))
	require.Equal(t, int64(2), outer.Lookup(th, "x"))
	require.Equal(t, int64(2), b.Lookup(th, "x"))

	outer.Store(th, "x", int64(3))
	require.Equal(t, int64(3), a.Lookup(th, "x"))

	b.Delete(th, "x")
	raises(t, object.NameError, func() { a.Lookup(th, "x") })
	raises(t, object.UnboundLocalError, func() { outer.Lookup(th, "x") })

	require.Nil(t, outer.Capture(block(ast.FunctionScope, nil, nil)))
}

func TestEachCallHasItsOwnCells(t *testing.T) {
	th := object.NewThread()
	globals := object.NewDict()

	outerInfo := block(ast.FunctionScope, []string{"x"}, nil)
	innerInfo := block(ast.FunctionScope, nil, []string{"x"})

	one := Function(outerInfo, globals, nil, nil)
	two := Function(outerInfo, globals, nil, nil)

	one.Store(th, "x", "one")
	two.Store(th, "x", "two")

	require.NotSame(t, one.Capture(innerInfo)["x"], two.Capture(innerInfo)["x"])
	require.Equal(t, "one", Function(innerInfo, globals, nil, one.Capture(innerInfo)).Lookup(th, "x"))
	require.Equal(t, "two", Function(innerInfo, globals, nil, two.Capture(innerInfo)).Lookup(th, "x"))
}

func TestCaptureOfPassThroughName(t *testing.T) {
	th := object.NewThread()
	globals := object.NewDict()

	s := Function(block(ast.FunctionScope, nil, nil), globals, nil, nil)
	info := block(ast.FunctionScope, nil, []string{"y"})

	closure := s.Capture(info)
	require.NotNil(t, closure["y"])
	require.Nil(t, closure["y"].Value)
	require.Same(t, closure["y"], s.Capture(info)["y"])

	inner := Function(info, globals, nil, closure)
	raises(t, object.NameError, func() { inner.Lookup(th, "y") })
}

func TestClassBodyDoesNotLeak(t *testing.T) {
	th := object.NewThread()

	globals := object.NewDict()
	ns := object.NewDict()

	body := Class(block(ast.ClassScope, []string{"a"}, nil), globals, nil, ns, nil)
	require.False(t, body.FunctionLike())

	body.Store(th, "a", int64(1))
	require.Equal(t, int64(1), body.Lookup(th, "a"))

	_, ok := globals.GetStr("a")
	require.False(t, ok)

	v, ok := ns.GetStr("a")
	require.True(t, ok)
	require.Equal(t, int64(1), v)

	// A method or nested class body resolves a through the module, not the
	// enclosing class namespace.
	methodInfo := block(ast.FunctionScope, nil, nil)
	methodInfo.Globals["a"] = true

	method := Function(methodInfo, globals, nil, body.Capture(methodInfo))
	raises(t, object.NameError, func() { method.Lookup(th, "a") })

	nested := Class(block(ast.ClassScope, nil, nil), globals, nil, object.NewDict(), nil)
	raises(t, object.NameError, func() { nested.Lookup(th, "a") })

	globals.SetStr("a", "module")
	require.Equal(t, "module", method.Lookup(th, "a"))
	require.Equal(t, "module", nested.Lookup(th, "a"))

	locals := body.Locals()
	require.NotSame(t, ns, locals)

	v, ok = locals.GetStr("a")
	require.True(t, ok)
	require.Equal(t, int64(1), v)
}

func TestClassBodyFreeNames(t *testing.T) {
	th := object.NewThread()

	globals := object.NewDict()
	ns := object.NewDict()
	closure := map[string]*object.Cell{"x": {Value: "cell"}}

	body := Class(block(ast.ClassScope, []string{"x"}, []string{"x"}), globals, nil, ns, closure)
	require.Equal(t, "cell", body.Lookup(th, "x"))

	body.Store(th, "x", "namespace")
	require.Equal(t, "namespace", body.Lookup(th, "x"))
	require.Equal(t, "cell", closure["x"].Value)

	body.Delete(th, "x")
	require.Equal(t, "cell", body.Lookup(th, "x"))
}

func TestTypeParameterCells(t *testing.T) {
	th := object.NewThread()
	globals := object.NewDict()

	params := block(ast.AnnotationScope, []string{"T"}, nil)
	params.Cells["T"] = true

	p := Function(params, globals, nil, nil)
	require.True(t, p.FunctionLike())

	p.Bind("T", "T")

	classInfo := block(ast.ClassScope, nil, []string{"T"})
	classInfo.ClassCell = true

	ns := object.NewDict()
	body := Class(classInfo, globals, nil, ns, p.Capture(classInfo))
	require.Equal(t, "T", body.Lookup(th, "T"))

	_, ok := ns.GetStr("T")
	require.False(t, ok)

	class := body.Cell(symtab.ClassCell)
	require.NotNil(t, class)
	require.Nil(t, class.Value)

	methodInfo := block(ast.FunctionScope, nil, []string{symtab.ClassCell, "T"})
	closure := body.Capture(methodInfo)
	require.Same(t, class, closure[symtab.ClassCell])
	require.Same(t, p.Cell("T"), closure["T"])

	class.Value = "A"

	method := Function(methodInfo, globals, nil, closure)
	require.Equal(t, "A", method.Lookup(th, symtab.ClassCell))
	require.Equal(t, "T", method.Lookup(th, "T"))
}

func TestModuleScope(t *testing.T) {
	th := object.NewThread()
	globals := object.NewDict()

	s := Module(ast.NewScope(ast.ModuleScope, "<module>"), globals, nil)
	require.False(t, s.FunctionLike())

	s.Store(th, "m", int64(1))

	v, ok := globals.GetStr("m")
	require.True(t, ok)
	require.Equal(t, int64(1), v)

	s.Discard(th, "m")
	raises(t, object.NameError, func() { s.Lookup(th, "m") })
}

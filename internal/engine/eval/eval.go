// Released under an MIT license. See LICENSE.

// Package eval executes analyzed syntax trees.
//
// The evaluator walks the tree directly. Guest exceptions travel as Go
// panics carrying *object.Exception and are recovered by try statements,
// generator boundaries and the host API. Generator, coroutine and async
// generator bodies run the same code as ordinary functions, but on a
// goroutine owned by an object.Generator, so yield and await simply block
// until the generator is resumed.
package eval

import (
	"github.com/michaelmacinnis/enclave/internal/common/struct/loc"
	"github.com/michaelmacinnis/enclave/internal/engine/object"
	"github.com/michaelmacinnis/enclave/internal/engine/scope"
	"github.com/michaelmacinnis/enclave/internal/reader/ast"
	"github.com/michaelmacinnis/enclave/internal/reader/symtab"
)

// UnsupportedError reports a syntax node the evaluator cannot execute.
type UnsupportedError struct {
	Kind string
	At   loc.T
}

func (e *UnsupportedError) Error() string {
	return e.At.String() + ": unsupported construct: " + e.Kind
}

func unsupported(n ast.Node) {
	panic(&UnsupportedError{Kind: ast.Kind(n), At: n.Position()})
}

// T (interpreter) executes modules and calls guest functions. It
// implements object.Invoker and object.Supers.
type T struct {
	supers []*frame
}

type interpreter = T

// New creates an interpreter.
func New() *interpreter {
	return &interpreter{}
}

type flow int

const (
	normal flow = iota
	breaking
	continuing
	returning
)

// frame is the state of one executing block.
type frame struct {
	scope *scope.T
	code  *object.Frame
	gen   *object.Generator

	// first names the first parameter. It is the implicit second argument
	// of super().
	first string

	// handling holds the exceptions being handled by enclosing except
	// clauses, innermost last.
	handling []*object.Exception

	module   string // Value of __module__ for definitions.
	qualname string // Prefix for the qualified names of definitions.

	result object.Value

	// The last value of an expression statement in a module body.
	toplevel bool
	last     object.Value
}

func (fr *frame) nested(s *scope.T) *frame {
	return &frame{
		scope:    s,
		code:     fr.code,
		gen:      fr.gen,
		first:    fr.first,
		module:   fr.module,
		qualname: fr.qualname,
	}
}

func (fr *frame) qualify(name string) string {
	if fr.qualname == "" {
		return name
	}

	return fr.qualname + "." + name
}

// Exec runs the body of m with globals as its namespace. It returns the
// value of the last expression statement executed at the top level, or nil.
func (i *interpreter) Exec(th *object.Thread, m *ast.Module, filename string, globals, builtins *object.Dict) object.Value {
	fr := &frame{
		scope:    scope.Module(m.Scope, globals, builtins),
		code:     &object.Frame{Name: "<module>", Filename: filename, Line: 1},
		module:   moduleName(globals),
		toplevel: true,
	}

	defer traceback(fr)

	i.exec(th, fr, m.Body)

	return fr.last
}

// Invoke calls the guest function f.
func (i *interpreter) Invoke(th *object.Thread, f *object.Function, args []object.Value, kw []object.Keyword) object.Value {
	code := f.Code

	s := scope.Function(code.Scope, f.Globals, f.Builtins, f.Closure)
	fr := &frame{
		scope:    s,
		code:     &object.Frame{Name: code.Name, Filename: code.Filename, Line: code.Line},
		module:   f.Module,
		qualname: f.Qualname + ".<locals>",
	}

	fr.first = bindArguments(th, f, s, args, kw)

	if code.Generator || code.Coroutine {
		kind := object.Plain

		switch {
		case code.Generator && code.Coroutine:
			kind = object.AsyncGenerator
		case code.Coroutine:
			kind = object.Coroutine
		}

		return object.NewGenerator(kind, f.Name, f.Qualname, fr.code, func(th *object.Thread, g *object.Generator) object.Value {
			fr.gen = g

			return i.run(th, fr, code)
		})
	}

	th.Enter()
	defer th.Leave()

	return i.run(th, fr, code)
}

func (i *interpreter) run(th *object.Thread, fr *frame, code *object.Code) object.Value {
	defer traceback(fr)

	if code.Expr != nil {
		return i.eval(th, fr, code.Expr)
	}

	if i.exec(th, fr, code.Body) == returning {
		return fr.result
	}

	return object.None
}

// traceback records fr in the traceback of an exception leaving it, if
// a handler in fr has not already done so.
func traceback(fr *frame) {
	r := recover()
	if r == nil {
		return
	}

	if e, ok := r.(*object.Exception); ok {
		e.AddFrame(fr.code)
	}

	panic(r)
}

// ImplicitSuper returns the arguments of a zero-argument super() call from
// the frame making the call.
func (i *interpreter) ImplicitSuper(th *object.Thread) (*object.Class, object.Value) {
	if len(i.supers) == 0 {
		object.Raise(object.RuntimeError, "super(): no arguments")
	}

	fr := i.supers[len(i.supers)-1]

	cell := fr.scope.Cell(symtab.ClassCell)
	if cell == nil || cell.Value == nil {
		object.Raise(object.RuntimeError, "super(): __class__ cell not found")
	}

	c, ok := cell.Value.(*object.Class)
	if !ok {
		object.Raise(object.RuntimeError, "super(): __class__ is not a type (%s)", object.TypeName(cell.Value))
	}

	if fr.first == "" {
		object.Raise(object.RuntimeError, "super(): no arguments")
	}

	self := fr.scope.Cell(fr.first)
	if self == nil || self.Value == nil {
		object.Raise(object.RuntimeError, "super(): arg[0] deleted")
	}

	return c, self.Value
}

func moduleName(globals *object.Dict) string {
	if v, ok := globals.GetStr("__name__"); ok {
		if s, ok := v.(string); ok {
			return s
		}
	}

	return "__main__"
}

// Released under an MIT license. See LICENSE.

package eval

import (
	"github.com/michaelmacinnis/enclave/internal/engine/object"
	"github.com/michaelmacinnis/enclave/internal/engine/scope"
	"github.com/michaelmacinnis/enclave/internal/reader/ast"
)

// comprehension runs the loops of a list, set or dict comprehension in
// their own block and calls emit for each element. The outermost iterable
// is evaluated in fr.
func (i *interpreter) comprehension(th *object.Thread, fr *frame, info *ast.Scope, gens []*ast.Comprehension, emit func(*frame)) {
	first := i.eval(th, fr, gens[0].Iter)

	inner := fr.nested(scope.Function(info, fr.scope.Globals, fr.scope.Builtins, fr.scope.Capture(info)))

	i.loop(th, inner, gens, 0, first, emit)
}

func (i *interpreter) loop(th *object.Thread, fr *frame, gens []*ast.Comprehension, k int, iterable object.Value, emit func(*frame)) {
	g := gens[k]

	body := func(v object.Value) bool {
		i.assign(th, fr, g.Target, v)

		for _, cond := range g.Ifs {
			if !object.Truth(th, i.eval(th, fr, cond)) {
				return true
			}
		}

		if k+1 == len(gens) {
			emit(fr)
		} else {
			i.loop(th, fr, gens, k+1, i.eval(th, fr, gens[k+1].Iter), emit)
		}

		return true
	}

	if g.Async {
		i.asyncEach(th, fr, iterable, body)
	} else {
		object.Each(th, iterable, body)
	}
}

func (i *interpreter) generatorExp(th *object.Thread, fr *frame, e *ast.GeneratorExp) object.Value {
	iterable := i.eval(th, fr, e.Generators[0].Iter)
	if !e.Generators[0].Async {
		iterable = object.Iter(th, iterable)
	}

	kind := object.Plain
	if e.Scope.Coroutine {
		kind = object.AsyncGenerator
	}

	inner := &frame{
		scope:    scope.Function(e.Scope, fr.scope.Globals, fr.scope.Builtins, fr.scope.Capture(e.Scope)),
		code:     &object.Frame{Name: "<genexpr>", Filename: fr.code.Filename, Line: e.At.Line},
		module:   fr.module,
		qualname: fr.qualify("<genexpr>"),
	}

	return object.NewGenerator(kind, "<genexpr>", inner.qualname, inner.code, func(th *object.Thread, g *object.Generator) object.Value {
		inner.gen = g

		defer traceback(inner)

		i.loop(th, inner, e.Generators, 0, iterable, func(f *frame) {
			g.Yield(th, i.eval(th, f, e.Elt))
		})

		return object.None
	})
}

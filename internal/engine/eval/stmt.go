// Released under an MIT license. See LICENSE.

package eval

import (
	"strings"

	"github.com/michaelmacinnis/enclave/internal/engine/object"
	"github.com/michaelmacinnis/enclave/internal/reader/ast"
)

func (i *interpreter) exec(th *object.Thread, fr *frame, body []ast.Stmt) flow {
	for _, s := range body {
		if f := i.stmt(th, fr, s); f != normal {
			return f
		}
	}

	return normal
}

//nolint:cyclop,funlen
func (i *interpreter) stmt(th *object.Thread, fr *frame, s ast.Stmt) flow {
	fr.code.Line = s.Position().Line

	switch s := s.(type) {
	case *ast.ExprStmt:
		v := i.eval(th, fr, s.Value)
		if fr.toplevel {
			fr.last = v
		}
	case *ast.Assign:
		v := i.eval(th, fr, s.Value)
		for _, t := range s.Targets {
			i.assign(th, fr, t, v)
		}
	case *ast.AugAssign:
		i.augAssign(th, fr, s)
	case *ast.AnnAssign:
		i.annAssign(th, fr, s)
	case *ast.Delete:
		for _, t := range s.Targets {
			i.delete(th, fr, t)
		}
	case *ast.Return:
		fr.result = object.None
		if s.Value != nil {
			fr.result = i.eval(th, fr, s.Value)
		}

		return returning
	case *ast.Pass:
	case *ast.Break:
		return breaking
	case *ast.Continue:
		return continuing
	case *ast.If:
		if object.Truth(th, i.eval(th, fr, s.Test)) {
			return i.exec(th, fr, s.Body)
		}

		return i.exec(th, fr, s.Else)
	case *ast.While:
		return i.while(th, fr, s)
	case *ast.For:
		return i.forLoop(th, fr, s)
	case *ast.FunctionDef:
		i.functionDef(th, fr, s)
	case *ast.ClassDef:
		i.classDef(th, fr, s)
	case *ast.TypeAlias:
		i.typeAlias(th, fr, s)
	case *ast.Raise:
		i.raise(th, fr, s)
	case *ast.Try:
		return i.try(th, fr, s)
	case *ast.With:
		return i.with(th, fr, s, 0)
	case *ast.Match:
		return i.match(th, fr, s)
	case *ast.Assert:
		if !object.Truth(th, i.eval(th, fr, s.Test)) {
			e := object.NewException(object.AssertionError)
			if s.Msg != nil {
				e.Args = object.Tuple{i.eval(th, fr, s.Msg)}
			}

			i.throw(fr, e)
		}
	case *ast.Import:
		i.importNames(th, fr, s)
	case *ast.ImportFrom:
		i.importFrom(th, fr, s)
	case *ast.Global, *ast.Nonlocal:
	default:
		unsupported(s)
	}

	return normal
}

func (i *interpreter) while(th *object.Thread, fr *frame, s *ast.While) flow {
	for object.Truth(th, i.eval(th, fr, s.Test)) {
		switch i.exec(th, fr, s.Body) {
		case breaking:
			return normal
		case returning:
			return returning
		case normal, continuing:
		}
	}

	return i.exec(th, fr, s.Else)
}

func (i *interpreter) forLoop(th *object.Thread, fr *frame, s *ast.For) flow {
	iterable := i.eval(th, fr, s.Iter)

	broke := false
	result := normal

	body := func(v object.Value) bool {
		i.assign(th, fr, s.Target, v)

		switch i.exec(th, fr, s.Body) {
		case breaking:
			broke = true

			return false
		case returning:
			result = returning

			return false
		case normal, continuing:
		}

		return true
	}

	if s.Async {
		i.asyncEach(th, fr, iterable, body)
	} else {
		object.Each(th, iterable, body)
	}

	if result == returning {
		return returning
	}

	if broke {
		return normal
	}

	return i.exec(th, fr, s.Else)
}

// coroutine returns the coroutine or async generator executing fr.
func (i *interpreter) coroutine(fr *frame, what string) *object.Generator {
	if fr.gen == nil || fr.gen.Kind == object.Plain {
		object.Raise(object.SyntaxError, "%s outside async function", what)
	}

	return fr.gen
}

func (i *interpreter) asyncEach(th *object.Thread, fr *frame, v object.Value, f func(object.Value) bool) {
	g := i.coroutine(fr, "'async for'")

	aiter, ok := object.LookupAttr(th, v, "__aiter__")
	if !ok {
		object.Raise(object.TypeError, "'async for' requires an object with __aiter__ method, got %s", object.TypeName(v))
	}

	it := object.Call(th, aiter, nil, nil)

	anext, ok := object.LookupAttr(th, it, "__anext__")
	if !ok {
		object.Raise(object.TypeError, "'async for' received an object from __aiter__ that does not implement __anext__: %s", object.TypeName(it))
	}

	for {
		item, ok := awaitNext(th, g, anext)
		if !ok || !f(item) {
			return
		}
	}
}

func awaitNext(th *object.Thread, g *object.Generator, anext object.Value) (v object.Value, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			if e, isExc := r.(*object.Exception); isExc && e.Matches(object.StopAsyncIteration) {
				v, ok = nil, false

				return
			}

			panic(r)
		}
	}()

	return g.Await(th, object.Call(th, anext, nil, nil)), true
}

func importer(th *object.Thread, name string) object.Importer {
	if th.Importer == nil {
		object.ImportDenied(name)
	}

	return th.Importer
}

func (i *interpreter) importNames(th *object.Thread, fr *frame, s *ast.Import) {
	globals := fr.scope.Globals

	for _, alias := range s.Names {
		if alias.AsName == "" {
			top, _, _ := strings.Cut(alias.Name, ".")
			fr.scope.Store(th, top, importer(th, alias.Name).Import(th, alias.Name, nil, 0, globals))

			continue
		}

		m := importer(th, alias.Name).Import(th, alias.Name, []string{}, 0, globals)
		fr.scope.Store(th, alias.AsName, m)
	}
}

func (i *interpreter) importFrom(th *object.Thread, fr *frame, s *ast.ImportFrom) {
	if s.Module == "__future__" && s.Level == 0 {
		return
	}

	names := make([]string, len(s.Names))
	for n, alias := range s.Names {
		names[n] = alias.Name
	}

	m := importer(th, s.Module).Import(th, s.Module, names, s.Level, fr.scope.Globals)

	if len(names) == 1 && names[0] == "*" {
		i.importStar(th, fr, m)

		return
	}

	for _, alias := range s.Names {
		v := importedName(th, m, alias.Name)

		name := alias.AsName
		if name == "" {
			name = alias.Name
		}

		fr.scope.Store(th, name, v)
	}
}

func importedName(th *object.Thread, m object.Value, name string) (v object.Value) {
	defer func() {
		if r := recover(); r != nil {
			e, ok := r.(*object.Exception)
			if !ok || !e.Matches(object.AttributeError) || e.Matches(object.AttributeBlocked) {
				panic(r)
			}

			from := object.TypeName(m)
			if mod, ok := m.(*object.Module); ok {
				from = mod.Name
			}

			x := object.NewException(object.ImportError, "cannot import name '"+name+"' from '"+from+"'")
			x.Dict.SetStr("name", from)
			x.Chain(e)

			panic(x)
		}
	}()

	return object.GuardedGet(th, m, name)
}

func (i *interpreter) importStar(th *object.Thread, fr *frame, m object.Value) {
	mod, ok := m.(*object.Module)
	if !ok {
		object.Raise(object.ImportError, "cannot import * from '%s'", object.TypeName(m))
	}

	if all, ok := mod.Dict.GetStr("__all__"); ok {
		object.Each(th, all, func(name object.Value) bool {
			s := object.Canonical(name)
			fr.scope.Store(th, s, importedName(th, mod, s))

			return true
		})

		return
	}

	for _, item := range mod.Dict.Items() {
		s, ok := item.Key.(string)
		if !ok || strings.HasPrefix(s, "_") {
			continue
		}

		fr.scope.Store(th, s, item.Value)
	}
}

// Released under an MIT license. See LICENSE.

package eval

import (
	"github.com/michaelmacinnis/enclave/internal/engine/object"
	"github.com/michaelmacinnis/enclave/internal/engine/scope"
	"github.com/michaelmacinnis/enclave/internal/reader/ast"
	"github.com/michaelmacinnis/enclave/internal/reader/symtab"
)

// typeParams creates the block holding generic parameters and binds a
// TypeVar for each of them.
func (i *interpreter) typeParams(th *object.Thread, fr *frame, info *ast.Scope, params []*ast.TypeParam) (*frame, object.Tuple) {
	s := scope.Function(info, fr.scope.Globals, fr.scope.Builtins, fr.scope.Capture(info))
	inner := fr.nested(s)

	tuple := make(object.Tuple, 0, len(params))

	for _, p := range params {
		tv := &object.TypeVar{Name: p.Name, Kind: p.Kind}
		if p.Bound != nil {
			tv.Bound = i.eval(th, inner, p.Bound)
		}

		if p.Default != nil {
			tv.Default = i.eval(th, inner, p.Default)
		}

		s.Bind(p.Name, tv)

		tuple = append(tuple, tv)
	}

	return inner, tuple
}

func (i *interpreter) decorators(th *object.Thread, fr *frame, exprs []ast.Expr) []object.Value {
	ds := make([]object.Value, len(exprs))
	for n, e := range exprs {
		ds[n] = i.eval(th, fr, e)
	}

	return ds
}

func decorate(th *object.Thread, ds []object.Value, v object.Value) object.Value {
	for n := len(ds) - 1; n >= 0; n-- {
		v = object.Call(th, ds[n], []object.Value{v}, nil)
	}

	return v
}

// defaults evaluates the default values of args in fr.
func (i *interpreter) defaults(th *object.Thread, fr *frame, args *ast.Arguments) (object.Tuple, *object.Dict) {
	if args == nil {
		return nil, nil
	}

	var defaults object.Tuple

	if len(args.Defaults) > 0 {
		defaults = make(object.Tuple, len(args.Defaults))
		for n, e := range args.Defaults {
			defaults[n] = i.eval(th, fr, e)
		}
	}

	var kwdefaults *object.Dict

	for n, e := range args.KwDefaults {
		if e == nil {
			continue
		}

		if kwdefaults == nil {
			kwdefaults = object.NewDict()
		}

		kwdefaults.SetStr(args.KwOnly[n].Name, i.eval(th, fr, e))
	}

	return defaults, kwdefaults
}

func (i *interpreter) annotations(th *object.Thread, fr *frame, args *ast.Arguments, returns ast.Expr) *object.Dict {
	d := object.NewDict()

	if args != nil {
		all := make([]*ast.Arg, 0, len(args.PosOnly)+len(args.Args)+len(args.KwOnly)+2)
		all = append(all, args.PosOnly...)
		all = append(all, args.Args...)

		if args.Vararg != nil {
			all = append(all, args.Vararg)
		}

		all = append(all, args.KwOnly...)

		if args.Kwarg != nil {
			all = append(all, args.Kwarg)
		}

		for _, a := range all {
			if a.Annotation != nil {
				d.SetStr(a.Name, i.eval(th, fr, a.Annotation))
			}
		}
	}

	if returns != nil {
		d.SetStr("return", i.eval(th, fr, returns))
	}

	return d
}

func (i *interpreter) newFunction(fr *frame, outer *scope.T, name string, code *object.Code) *object.Function {
	return &object.Function{
		Name:     name,
		Qualname: fr.qualify(name),
		Module:   fr.module,
		Doc:      object.None,
		Code:     code,
		Globals:  outer.Globals,
		Builtins: outer.Builtins,
		Closure:  outer.Capture(code.Scope),
		Dict:     object.NewDict(),
	}
}

func (i *interpreter) functionDef(th *object.Thread, fr *frame, s *ast.FunctionDef) {
	ds := i.decorators(th, fr, s.Decorators)
	defaults, kwdefaults := i.defaults(th, fr, s.Args)

	outer := fr

	var params object.Tuple
	if s.ParamScope != nil {
		outer, params = i.typeParams(th, fr, s.ParamScope, s.TypeParams)
	}

	code := &object.Code{
		Name:      s.Name,
		Filename:  fr.code.Filename,
		Line:      s.At.Line,
		Args:      s.Args,
		Body:      s.Body,
		Scope:     s.Scope,
		Generator: s.Scope.Generator,
		Coroutine: s.Scope.Coroutine,
	}

	f := i.newFunction(fr, outer.scope, s.Name, code)
	f.Defaults = defaults
	f.KwDefaults = kwdefaults
	f.Annotations = i.annotations(th, outer, s.Args, s.Returns)
	f.TypeParams = params

	if s.Doc != "" {
		f.Doc = s.Doc
	}

	fr.scope.Store(th, s.Name, decorate(th, ds, f))
}

func (i *interpreter) lambda(th *object.Thread, fr *frame, e *ast.Lambda) object.Value {
	defaults, kwdefaults := i.defaults(th, fr, e.Args)

	code := &object.Code{
		Name:     "<lambda>",
		Filename: fr.code.Filename,
		Line:     e.At.Line,
		Args:     e.Args,
		Expr:     e.Body,
		Scope:    e.Scope,
	}

	f := i.newFunction(fr, fr.scope, "<lambda>", code)
	f.Defaults = defaults
	f.KwDefaults = kwdefaults
	f.Annotations = object.NewDict()

	return f
}

//nolint:funlen
func (i *interpreter) classDef(th *object.Thread, fr *frame, s *ast.ClassDef) {
	ds := i.decorators(th, fr, s.Decorators)

	outer := fr

	var params object.Tuple
	if s.ParamScope != nil {
		outer, params = i.typeParams(th, fr, s.ParamScope, s.TypeParams)
	}

	bases := classBases(th, i.elements(th, outer, s.Bases))
	kw := i.keywords(th, outer, s.Name, s.Keywords)

	var meta object.Value

	rest := kw[:0:0]

	for _, k := range kw {
		if k.Name == "metaclass" {
			meta = k.Value

			continue
		}

		rest = append(rest, k)
	}

	if meta == nil || isClass(meta) {
		meta = winner(th, meta, bases)
	}

	baseTuple := make(object.Tuple, len(bases))
	for n, b := range bases {
		baseTuple[n] = b
	}

	ns := object.Value(object.NewDict())
	if prepare, ok := object.LookupAttr(th, meta, "__prepare__"); ok {
		ns = object.Call(th, prepare, []object.Value{s.Name, baseTuple}, rest)
	}

	qualname := fr.qualify(s.Name)

	body := scope.Class(s.Scope, fr.scope.Globals, fr.scope.Builtins, ns, outer.scope.Capture(s.Scope))
	inner := &frame{
		scope:    body,
		code:     fr.code,
		gen:      fr.gen,
		module:   fr.module,
		qualname: qualname,
	}

	body.Store(th, "__module__", fr.module)
	body.Store(th, "__qualname__", qualname)

	if s.Doc != "" {
		body.Store(th, "__doc__", s.Doc)
	}

	if params != nil {
		body.Store(th, "__type_params__", params)
	}

	i.exec(th, inner, s.Body)

	c := object.Call(th, meta, []object.Value{s.Name, baseTuple, ns}, rest)

	if cell := body.Cell(symtab.ClassCell); cell != nil {
		cell.Value = c
	}

	fr.scope.Store(th, s.Name, decorate(th, ds, c))
}

// classBases resolves the evaluated bases of a class statement.
func classBases(th *object.Thread, values []object.Value) []*object.Class {
	bases := make([]*object.Class, 0, len(values))

	for _, v := range values {
		switch b := v.(type) {
		case *object.Class:
			bases = append(bases, b)

			continue
		case *object.GenericAlias:
			if c, ok := b.Origin.(*object.Class); ok {
				bases = append(bases, c)

				continue
			}
		}

		if entries, ok := object.LookupAttr(th, v, "__mro_entries__"); ok {
			for _, e := range object.ToSlice(th, object.Call(th, entries, []object.Value{object.Tuple(values)}, nil)) {
				c, ok := e.(*object.Class)
				if !ok {
					object.Raise(object.TypeError, "bases must be types")
				}

				bases = append(bases, c)
			}

			continue
		}

		object.Raise(object.TypeError, "bases must be types")
	}

	return bases
}

func isClass(v object.Value) bool {
	_, ok := v.(*object.Class)

	return ok
}

// winner returns the most derived metaclass among meta and the metaclasses
// of bases.
func winner(th *object.Thread, meta object.Value, bases []*object.Class) object.Value {
	w := object.TypeType
	if c, ok := meta.(*object.Class); ok {
		w = c
	}

	for _, b := range bases {
		m := b.Metaclass()

		switch {
		case w.IsSubclass(m):
		case m.IsSubclass(w):
			w = m
		default:
			object.Raise(object.TypeError, "metaclass conflict: the metaclass of a derived class must be a (non-strict) subclass of the metaclasses of all its bases")
		}
	}

	return w
}

func (i *interpreter) typeAlias(th *object.Thread, fr *frame, s *ast.TypeAlias) {
	outer := fr

	var params object.Tuple
	if s.ParamScope != nil {
		outer, params = i.typeParams(th, fr, s.ParamScope, s.TypeParams)
	}

	closure := outer.scope.Capture(s.Scope)
	globals, builtins := fr.scope.Globals, fr.scope.Builtins

	alias := &object.TypeAlias{
		Name:       s.Name,
		TypeParams: params,
		Compute: func(th *object.Thread) object.Value {
			body := scope.Function(s.Scope, globals, builtins, closure)

			return i.eval(th, outer.nested(body), s.Value)
		},
	}

	fr.scope.Store(th, s.Name, alias)
}

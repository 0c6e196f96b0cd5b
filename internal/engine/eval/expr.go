// Released under an MIT license. See LICENSE.

package eval

import (
	"strings"

	"github.com/michaelmacinnis/enclave/internal/engine/object"
	"github.com/michaelmacinnis/enclave/internal/reader/ast"
)

//nolint:cyclop,funlen,gocyclo
func (i *interpreter) eval(th *object.Thread, fr *frame, e ast.Expr) object.Value {
	switch e := e.(type) {
	case *ast.Constant:
		return constant(e.Value)
	case *ast.Name:
		return fr.scope.Lookup(th, e.ID)
	case *ast.Attribute:
		return object.GuardedGet(th, i.eval(th, fr, e.Value), e.Attr)
	case *ast.Subscript:
		obj := i.eval(th, fr, e.Value)

		return object.GetItem(th, obj, i.eval(th, fr, e.Index))
	case *ast.Slice:
		return &object.Slice{
			Start: i.optional(th, fr, e.Lower),
			Stop:  i.optional(th, fr, e.Upper),
			Step:  i.optional(th, fr, e.Step),
		}
	case *ast.BinOp:
		l := i.eval(th, fr, e.Left)

		return object.BinaryOp(th, e.Op, l, i.eval(th, fr, e.Right))
	case *ast.UnaryOp:
		return object.UnaryOp(th, e.Op, i.eval(th, fr, e.Operand))
	case *ast.BoolOp:
		return i.boolOp(th, fr, e)
	case *ast.Compare:
		return i.compare(th, fr, e)
	case *ast.IfExp:
		if object.Truth(th, i.eval(th, fr, e.Test)) {
			return i.eval(th, fr, e.Body)
		}

		return i.eval(th, fr, e.Else)
	case *ast.NamedExpr:
		v := i.eval(th, fr, e.Value)
		fr.scope.Store(th, e.Target.ID, v)

		return v
	case *ast.Call:
		return i.call(th, fr, e)
	case *ast.Lambda:
		return i.lambda(th, fr, e)
	case *ast.List:
		return object.NewList(i.elements(th, fr, e.Elts)...)
	case *ast.Tuple:
		return object.Tuple(i.elements(th, fr, e.Elts))
	case *ast.Set:
		return object.SetOf(th, false, i.elements(th, fr, e.Elts)...)
	case *ast.Dict:
		return i.dict(th, fr, e)
	case *ast.ListComp:
		l := object.NewList()

		i.comprehension(th, fr, e.Scope, e.Generators, func(inner *frame) {
			l.Items = append(l.Items, i.eval(th, inner, e.Elt))
		})

		return l
	case *ast.SetComp:
		s := object.NewSet()

		i.comprehension(th, fr, e.Scope, e.Generators, func(inner *frame) {
			s.Add(th, i.eval(th, inner, e.Elt))
		})

		return s
	case *ast.DictComp:
		d := object.NewDict()

		i.comprehension(th, fr, e.Scope, e.Generators, func(inner *frame) {
			k := i.eval(th, inner, e.Key)
			d.Set(th, k, i.eval(th, inner, e.Value))
		})

		return d
	case *ast.GeneratorExp:
		return i.generatorExp(th, fr, e)
	case *ast.JoinedStr:
		var b strings.Builder

		for _, part := range e.Values {
			b.WriteString(object.StrArg("f-string", i.eval(th, fr, part)))
		}

		return b.String()
	case *ast.FormattedValue:
		return i.formatted(th, fr, e)
	case *ast.Await:
		g := i.coroutine(fr, "'await'")

		return g.Await(th, i.eval(th, fr, e.Value))
	case *ast.Yield:
		v := object.Value(object.None)
		if e.Value != nil {
			v = i.eval(th, fr, e.Value)
		}

		return i.generator(fr).Yield(th, v)
	case *ast.YieldFrom:
		return i.generator(fr).YieldFrom(th, i.eval(th, fr, e.Value))
	case *ast.Starred:
		object.Raise(object.SyntaxError, "can't use starred expression here")
	}

	unsupported(e)

	return nil
}

func (i *interpreter) generator(fr *frame) *object.Generator {
	if fr.gen == nil {
		object.Raise(object.SyntaxError, "'yield' outside function")
	}

	return fr.gen
}

func (i *interpreter) optional(th *object.Thread, fr *frame, e ast.Expr) object.Value {
	if e == nil {
		return object.None
	}

	return i.eval(th, fr, e)
}

func constant(v any) object.Value {
	switch v := v.(type) {
	case nil:
		return object.None
	case ast.Bytes:
		return object.Bytes(v)
	case ast.EllipsisType:
		return object.Ellipsis
	}

	return v
}

func (i *interpreter) boolOp(th *object.Thread, fr *frame, e *ast.BoolOp) object.Value {
	var v object.Value

	for _, operand := range e.Values {
		v = i.eval(th, fr, operand)

		t := object.Truth(th, v)
		if e.Op == "and" && !t || e.Op == "or" && t {
			return v
		}
	}

	return v
}

func (i *interpreter) compare(th *object.Thread, fr *frame, e *ast.Compare) object.Value {
	left := i.eval(th, fr, e.Left)

	var r object.Value = true

	for n, op := range e.Ops {
		right := i.eval(th, fr, e.Comparators[n])

		r = object.Compare(th, op, left, right)
		if n < len(e.Ops)-1 && !object.Truth(th, r) {
			return r
		}

		left = right
	}

	return r
}

// elements evaluates the items of a display, expanding starred items.
func (i *interpreter) elements(th *object.Thread, fr *frame, elts []ast.Expr) []object.Value {
	items := make([]object.Value, 0, len(elts))

	for _, elt := range elts {
		if s, ok := elt.(*ast.Starred); ok {
			items = append(items, object.ToSlice(th, i.eval(th, fr, s.Value))...)

			continue
		}

		items = append(items, i.eval(th, fr, elt))
	}

	return items
}

func (i *interpreter) dict(th *object.Thread, fr *frame, e *ast.Dict) object.Value {
	d := object.NewDict()

	for n, k := range e.Keys {
		if k == nil {
			m := i.eval(th, fr, e.Values[n])
			if !isMapping(th, m) {
				object.Raise(object.TypeError, "'%s' object is not a mapping", object.TypeName(m))
			}

			object.UpdateDict(th, d, m)

			continue
		}

		key := i.eval(th, fr, k)
		d.Set(th, key, i.eval(th, fr, e.Values[n]))
	}

	return d
}

func isMapping(th *object.Thread, v object.Value) bool {
	if _, ok := object.Prim(v).(*object.Dict); ok {
		return true
	}

	_, ok := object.LookupAttr(th, v, "keys")

	return ok
}

func (i *interpreter) formatted(th *object.Thread, fr *frame, e *ast.FormattedValue) object.Value {
	v := i.eval(th, fr, e.Value)

	switch e.Conversion {
	case 'r':
		v = object.Repr(th, v)
	case 's':
		v = object.Str(th, v)
	case 'a':
		v = object.ASCII(th, v)
	}

	spec := ""
	if e.Spec != nil {
		spec = object.StrArg("format spec", i.eval(th, fr, e.Spec))
	}

	return object.Format(th, v, spec)
}

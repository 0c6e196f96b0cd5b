// Released under an MIT license. See LICENSE.

package eval

import (
	"github.com/michaelmacinnis/enclave/internal/engine/object"
	"github.com/michaelmacinnis/enclave/internal/reader/ast"
)

func (i *interpreter) assign(th *object.Thread, fr *frame, target ast.Expr, v object.Value) {
	switch t := target.(type) {
	case *ast.Name:
		fr.scope.Store(th, t.ID, v)
	case *ast.Attribute:
		object.GuardedSet(th, i.eval(th, fr, t.Value), t.Attr, v)
	case *ast.Subscript:
		obj := i.eval(th, fr, t.Value)
		object.SetItem(th, obj, i.eval(th, fr, t.Index), v)
	case *ast.Tuple:
		i.unpackTo(th, fr, t.Elts, v)
	case *ast.List:
		i.unpackTo(th, fr, t.Elts, v)
	case *ast.Starred:
		object.Raise(object.SyntaxError, "starred assignment target must be in a list or tuple")
	default:
		unsupported(target)
	}
}

func (i *interpreter) unpackTo(th *object.Thread, fr *frame, targets []ast.Expr, v object.Value) {
	star := -1

	for n, t := range targets {
		if _, ok := t.(*ast.Starred); ok {
			if star >= 0 {
				object.Raise(object.SyntaxError, "multiple starred expressions in assignment")
			}

			star = n
		}
	}

	items := unpack(th, v, len(targets), star)

	for n, t := range targets {
		if n == star {
			i.assign(th, fr, t.(*ast.Starred).Value, items[n]) //nolint:forcetypeassert

			continue
		}

		i.assign(th, fr, t, items[n])
	}
}

// unpack returns n values from the iterable v. If star is not negative the
// value at that position is a list holding the surplus items.
func unpack(th *object.Thread, v object.Value, n, star int) []object.Value {
	it := object.Iter(th, v)

	if star < 0 {
		items := make([]object.Value, 0, n)

		for {
			item, ok := object.Next(th, it)
			if !ok {
				break
			}

			if len(items) == n {
				object.Raise(object.ValueError, "too many values to unpack (expected %d)", n)
			}

			items = append(items, item)
		}

		if len(items) < n {
			object.Raise(object.ValueError, "not enough values to unpack (expected %d, got %d)", n, len(items))
		}

		return items
	}

	all := []object.Value{}

	for {
		item, ok := object.Next(th, it)
		if !ok {
			break
		}

		all = append(all, item)
	}

	if len(all) < n-1 {
		object.Raise(object.ValueError, "not enough values to unpack (expected at least %d, got %d)", n-1, len(all))
	}

	after := n - 1 - star
	surplus := len(all) - after

	items := make([]object.Value, 0, n)
	items = append(items, all[:star]...)
	items = append(items, object.NewList(append([]object.Value(nil), all[star:surplus]...)...))
	items = append(items, all[surplus:]...)

	return items
}

func (i *interpreter) augAssign(th *object.Thread, fr *frame, s *ast.AugAssign) {
	switch t := s.Target.(type) {
	case *ast.Name:
		old := fr.scope.Lookup(th, t.ID)
		fr.scope.Store(th, t.ID, object.InplaceOp(th, s.Op, old, i.eval(th, fr, s.Value)))
	case *ast.Attribute:
		obj := i.eval(th, fr, t.Value)
		old := object.GuardedGet(th, obj, t.Attr)
		object.GuardedSet(th, obj, t.Attr, object.InplaceOp(th, s.Op, old, i.eval(th, fr, s.Value)))
	case *ast.Subscript:
		obj := i.eval(th, fr, t.Value)
		key := i.eval(th, fr, t.Index)
		old := object.GetItem(th, obj, key)
		object.SetItem(th, obj, key, object.InplaceOp(th, s.Op, old, i.eval(th, fr, s.Value)))
	default:
		unsupported(s.Target)
	}
}

func (i *interpreter) annAssign(th *object.Thread, fr *frame, s *ast.AnnAssign) {
	if s.Value != nil {
		i.assign(th, fr, s.Target, i.eval(th, fr, s.Value))
	}

	if fr.scope.FunctionLike() {
		return
	}

	annotation := i.eval(th, fr, s.Annotation)

	n, ok := s.Target.(*ast.Name)
	if !ok || !s.Simple {
		return
	}

	var annotations object.Value

	ns := fr.scope.Namespace
	if d, ok := ns.(*object.Dict); ok {
		v, found := d.GetStr("__annotations__")
		if !found {
			v = object.NewDict()
			d.SetStr("__annotations__", v)
		}

		annotations = v
	} else {
		annotations = object.GetItem(th, ns, "__annotations__")
	}

	object.SetItem(th, annotations, n.ID, annotation)
}

func (i *interpreter) delete(th *object.Thread, fr *frame, target ast.Expr) {
	switch t := target.(type) {
	case *ast.Name:
		fr.scope.Delete(th, t.ID)
	case *ast.Attribute:
		object.GuardedDelete(th, i.eval(th, fr, t.Value), t.Attr)
	case *ast.Subscript:
		obj := i.eval(th, fr, t.Value)
		object.DelItem(th, obj, i.eval(th, fr, t.Index))
	case *ast.Tuple:
		for _, elt := range t.Elts {
			i.delete(th, fr, elt)
		}
	case *ast.List:
		for _, elt := range t.Elts {
			i.delete(th, fr, elt)
		}
	default:
		unsupported(target)
	}
}

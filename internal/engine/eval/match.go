// Released under an MIT license. See LICENSE.

package eval

import (
	"github.com/michaelmacinnis/enclave/internal/engine/object"
	"github.com/michaelmacinnis/enclave/internal/reader/ast"
)

type capture struct {
	name  string
	value object.Value
}

type captures []capture

func (c *captures) add(name string, v object.Value) {
	*c = append(*c, capture{name, v})
}

func (i *interpreter) match(th *object.Thread, fr *frame, s *ast.Match) flow {
	subject := i.eval(th, fr, s.Subject)

	for _, c := range s.Cases {
		var bound captures

		if !i.pattern(th, fr, c.Pattern, subject, &bound) {
			continue
		}

		for _, b := range bound {
			fr.scope.Store(th, b.name, b.value)
		}

		if c.Guard != nil && !object.Truth(th, i.eval(th, fr, c.Guard)) {
			continue
		}

		return i.exec(th, fr, c.Body)
	}

	return normal
}

//nolint:cyclop
func (i *interpreter) pattern(th *object.Thread, fr *frame, p ast.Pattern, v object.Value, bound *captures) bool {
	switch p := p.(type) {
	case *ast.MatchValue:
		return object.Eq(th, v, i.eval(th, fr, p.Value))
	case *ast.MatchSingleton:
		return object.Is(v, constant(p.Value))
	case *ast.MatchSequence:
		return i.sequence(th, fr, p, v, bound)
	case *ast.MatchMapping:
		return i.mapping(th, fr, p, v, bound)
	case *ast.MatchClass:
		return i.class(th, fr, p, v, bound)
	case *ast.MatchAs:
		if p.Pattern != nil && !i.pattern(th, fr, p.Pattern, v, bound) {
			return false
		}

		if p.Name != "" {
			bound.add(p.Name, v)
		}

		return true
	case *ast.MatchOr:
		for _, alt := range p.Patterns {
			var alts captures

			if i.pattern(th, fr, alt, v, &alts) {
				*bound = append(*bound, alts...)

				return true
			}
		}

		return false
	case *ast.MatchStar:
		object.Raise(object.SyntaxError, "can't use starred name here")
	}

	unsupported(p)

	return false
}

// sequenceItems returns the items of v if sequence patterns apply to it.
// Strings, bytes and mappings are never sequences here.
func sequenceItems(th *object.Thread, v object.Value) ([]object.Value, bool) {
	switch s := object.Prim(v).(type) {
	case *object.List:
		return append([]object.Value(nil), s.Items...), true
	case object.Tuple:
		return s, true
	case *object.Range:
		return object.ToSlice(th, s), true
	}

	return nil, false
}

func (i *interpreter) sequence(th *object.Thread, fr *frame, p *ast.MatchSequence, v object.Value, bound *captures) bool {
	items, ok := sequenceItems(th, v)
	if !ok {
		return false
	}

	star := -1

	for n, sub := range p.Patterns {
		if _, ok := sub.(*ast.MatchStar); ok {
			star = n
		}
	}

	if star < 0 {
		if len(items) != len(p.Patterns) {
			return false
		}

		for n, sub := range p.Patterns {
			if !i.pattern(th, fr, sub, items[n], bound) {
				return false
			}
		}

		return true
	}

	after := len(p.Patterns) - star - 1
	if len(items) < len(p.Patterns)-1 {
		return false
	}

	for n := 0; n < star; n++ {
		if !i.pattern(th, fr, p.Patterns[n], items[n], bound) {
			return false
		}
	}

	tail := len(items) - after
	for n := 0; n < after; n++ {
		if !i.pattern(th, fr, p.Patterns[star+1+n], items[tail+n], bound) {
			return false
		}
	}

	if name := p.Patterns[star].(*ast.MatchStar).Name; name != "" { //nolint:forcetypeassert
		bound.add(name, object.NewList(append([]object.Value(nil), items[star:tail]...)...))
	}

	return true
}

func (i *interpreter) mapping(th *object.Thread, fr *frame, p *ast.MatchMapping, v object.Value, bound *captures) bool {
	d, ok := object.Prim(v).(*object.Dict)
	if !ok {
		return false
	}

	keys := make([]object.Value, len(p.Keys))
	seen := object.NewSet()

	for n, k := range p.Keys {
		key := i.eval(th, fr, k)
		if seen.Contains(th, key) {
			object.Raise(object.ValueError, "mapping pattern checks duplicate key (%s)", object.Repr(th, key))
		}

		seen.Add(th, key)
		keys[n] = key
	}

	for n, key := range keys {
		item, found := d.Get(th, key)
		if !found || !i.pattern(th, fr, p.Patterns[n], item, bound) {
			return false
		}
	}

	if p.Rest != "" {
		rest := d.Copy()
		for _, key := range keys {
			rest.Delete(th, key)
		}

		bound.add(p.Rest, rest)
	}

	return true
}

// selfMatching classes match a single positional sub-pattern against the
// subject itself.
//
//nolint:gochecknoglobals
var selfMatching = []*object.Class{
	object.BoolType, object.BytesType, object.DictType, object.FloatType,
	object.FrozenSetType, object.IntType, object.ListType, object.SetType,
	object.StrType, object.TupleType,
}

//nolint:cyclop,funlen
func (i *interpreter) class(th *object.Thread, fr *frame, p *ast.MatchClass, v object.Value, bound *captures) bool {
	c, ok := i.eval(th, fr, p.Cls).(*object.Class)
	if !ok {
		object.Raise(object.TypeError, "called match pattern must be a class")
	}

	if !object.IsInstance(v, c) {
		return false
	}

	if len(p.Patterns) == 1 && len(p.KwdAttrs) == 0 {
		for _, s := range selfMatching {
			if c == s {
				return i.pattern(th, fr, p.Patterns[0], v, bound)
			}
		}
	}

	names := make([]string, 0, len(p.Patterns)+len(p.KwdAttrs))

	if len(p.Patterns) > 0 {
		var args []object.Value

		if ma, ok := object.LookupAttr(th, c, "__match_args__"); ok {
			t, ok := ma.(object.Tuple)
			if !ok {
				object.Raise(object.TypeError, "%s.__match_args__ must be a tuple (got %s)", c.Name, object.TypeName(ma))
			}

			args = t
		}

		if len(p.Patterns) > len(args) {
			object.Raise(object.TypeError, "%s() accepts %d positional sub-%s (%d given)", c.Name, len(args), plural(len(args), "pattern"), len(p.Patterns))
		}

		for n := range p.Patterns {
			name, ok := args[n].(string)
			if !ok {
				object.Raise(object.TypeError, "__match_args__ elements must be strings (got %s)", object.TypeName(args[n]))
			}

			names = append(names, name)
		}
	}

	names = append(names, p.KwdAttrs...)

	seen := make(map[string]bool, len(names))
	for _, name := range names {
		if seen[name] {
			object.Raise(object.TypeError, "%s() got multiple sub-patterns for attribute '%s'", c.Name, name)
		}

		seen[name] = true
	}

	subs := make([]ast.Pattern, 0, len(names))
	subs = append(subs, p.Patterns...)
	subs = append(subs, p.KwdPatterns...)

	for n, name := range names {
		th.Check(v, name)

		attr, found := object.LookupAttr(th, v, name)
		if !found || !i.pattern(th, fr, subs[n], attr, bound) {
			return false
		}
	}

	return true
}

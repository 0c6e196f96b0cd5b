// Released under an MIT license. See LICENSE.

package modules

import (
	"github.com/michaelmacinnis/enclave/internal/common/validate"
	"github.com/michaelmacinnis/enclave/internal/engine/object"
)

//nolint:gochecknoglobals
var wrapperAssignments = []string{"__module__", "__name__", "__qualname__", "__doc__"}

func init() {
	register("functools", func() *object.Module {
		return module("functools", "Higher-order functions.", map[string]object.Native{
			"cache":          cache,
			"partial":        partial,
			"reduce":         reduce,
			"update_wrapper": updateWrapper,
			"wraps":          wraps,
		})
	})
}

func reduce(th *object.Thread, args []object.Value, kw []object.Keyword) object.Value {
	object.NoKeywords("reduce", kw)

	a := validate.Fixed(args, 2, 3)
	f := a[0]

	acc, ok := a[2], a[2] != nil

	object.Each(th, a[1], func(v object.Value) bool {
		if !ok {
			acc, ok = v, true

			return true
		}

		acc = object.Call(th, f, []object.Value{acc, v}, nil)

		return true
	})

	if !ok {
		object.Raise(object.TypeError, "reduce() of empty iterable with no initial value")
	}

	return acc
}

func partial(th *object.Thread, args []object.Value, kw []object.Keyword) object.Value {
	if len(args) == 0 {
		object.Raise(object.TypeError, "type 'partial' takes at least one argument")
	}

	f := args[0]
	if !object.Callable(f) {
		object.Raise(object.TypeError, "the first argument must be callable")
	}

	bound := append([]object.Value(nil), args[1:]...)
	fixed := append([]object.Keyword(nil), kw...)

	return object.NewBuiltin("partial", func(th *object.Thread, args []object.Value, kw []object.Keyword) object.Value {
		all := make([]object.Value, 0, len(bound)+len(args))
		all = append(append(all, bound...), args...)

		merged := make([]object.Keyword, 0, len(fixed)+len(kw))

		for _, k := range fixed {
			if !supplied(kw, k.Name) {
				merged = append(merged, k)
			}
		}

		return object.Call(th, f, all, append(merged, kw...))
	})
}

func supplied(kw []object.Keyword, name string) bool {
	for _, k := range kw {
		if k.Name == name {
			return true
		}
	}

	return false
}

// update copies the identifying attributes of wrapped onto wrapper. Every
// read and write goes through the guard.
func update(th *object.Thread, wrapper, wrapped object.Value) object.Value {
	for _, name := range wrapperAssignments {
		if !object.GuardedHas(th, wrapped, name) {
			continue
		}

		object.GuardedSet(th, wrapper, name, object.GuardedGet(th, wrapped, name))
	}

	object.GuardedSet(th, wrapper, "__wrapped__", wrapped)

	return wrapper
}

func updateWrapper(th *object.Thread, args []object.Value, kw []object.Keyword) object.Value {
	a := object.Args("update_wrapper", args, kw, 2, "wrapper", "wrapped")

	return update(th, a[0], a[1])
}

func wraps(th *object.Thread, args []object.Value, kw []object.Keyword) object.Value {
	a := object.Args("wraps", args, kw, 1, "wrapped")
	wrapped := a[0]

	return object.NewBuiltin("wraps", func(th *object.Thread, args []object.Value, kw []object.Keyword) object.Value {
		object.NoKeywords("wraps", kw)

		return update(th, validate.Fixed(args, 1, 1)[0], wrapped)
	})
}

// cache memoizes a function on its arguments, which must be hashable.
func cache(th *object.Thread, args []object.Value, kw []object.Keyword) object.Value {
	object.NoKeywords("cache", kw)

	f := validate.Fixed(args, 1, 1)[0]
	memo := object.NewDict()

	b := object.NewBuiltin("cache", func(th *object.Thread, args []object.Value, kw []object.Keyword) object.Value {
		key := make(object.Tuple, 0, len(args)+2*len(kw))
		key = append(key, args...)

		for _, k := range kw {
			key = append(key, k.Name, k.Value)
		}

		if v, ok := memo.Get(th, key); ok {
			return v
		}

		v := object.Call(th, f, args, kw)
		memo.Set(th, key, v)

		return v
	})

	if fn, ok := f.(*object.Function); ok {
		b.Name = fn.Name
		b.Doc, _ = fn.Doc.(string)
	}

	return b
}

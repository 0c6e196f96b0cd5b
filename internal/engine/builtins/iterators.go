// Released under an MIT license. See LICENSE.

package builtins

import (
	"strconv"

	"github.com/michaelmacinnis/enclave/internal/common/validate"
	"github.com/michaelmacinnis/enclave/internal/engine/object"
)

//nolint:funlen
func init() {
	register("enumerate", func(th *object.Thread, args []object.Value, kw []object.Keyword) object.Value {
		a := object.Args("enumerate", args, kw, 1, "iterable", "start")

		n := int64(0)

		if a[1] != nil {
			var ok bool

			n, ok = object.AsIndex(th, a[1])
			if !ok {
				object.Raise(object.TypeError, "'%s' object cannot be interpreted as an integer", object.TypeName(a[1]))
			}
		}

		it := object.Iter(th, a[0])

		return object.NewIterator("enumerate", func(th *object.Thread) (object.Value, bool) {
			v, ok := object.Next(th, it)
			if !ok {
				return nil, false
			}

			i := n
			n++

			return object.Tuple{i, v}, true
		})
	})

	register("filter", func(th *object.Thread, args []object.Value, kw []object.Keyword) object.Value {
		object.NoKeywords("filter", kw)

		a := validate.Fixed(args, 2, 2)
		f, it := a[0], object.Iter(th, a[1])

		return object.NewIterator("filter", func(th *object.Thread) (object.Value, bool) {
			for {
				v, ok := object.Next(th, it)
				if !ok {
					return nil, false
				}

				t := v
				if f != object.None {
					t = object.Call(th, f, []object.Value{v}, nil)
				}

				if object.Truth(th, t) {
					return v, true
				}
			}
		})
	})

	register("map", func(th *object.Thread, args []object.Value, kw []object.Keyword) object.Value {
		object.NoKeywords("map", kw)

		if len(args) < 2 {
			object.Raise(object.TypeError, "map() must have at least two arguments.")
		}

		f := args[0]
		its := iterators(th, args[1:])

		return object.NewIterator("map", func(th *object.Thread) (object.Value, bool) {
			vs := make([]object.Value, len(its))

			for i, it := range its {
				v, ok := object.Next(th, it)
				if !ok {
					return nil, false
				}

				vs[i] = v
			}

			return object.Call(th, f, vs, nil), true
		})
	})

	register("zip", func(th *object.Thread, args []object.Value, kw []object.Keyword) object.Value {
		strict := false

		for _, k := range kw {
			if k.Name != "strict" {
				object.Raise(object.TypeError, "zip() got an unexpected keyword argument '%s'", k.Name)
			}

			strict = object.Truth(th, k.Value)
		}

		its := iterators(th, args)
		done := len(its) == 0

		return object.NewIterator("zip", func(th *object.Thread) (object.Value, bool) {
			if done {
				return nil, false
			}

			vs := make(object.Tuple, len(its))

			for i, it := range its {
				v, ok := object.Next(th, it)
				if !ok {
					done = true

					if strict {
						zipMismatch(th, its, i)
					}

					return nil, false
				}

				vs[i] = v
			}

			return vs, true
		})
	})

	register("iter", func(th *object.Thread, args []object.Value, kw []object.Keyword) object.Value {
		object.NoKeywords("iter", kw)

		a := validate.Fixed(args, 1, 2)
		if a[1] == nil {
			return object.Iter(th, a[0])
		}

		f, sentinel := a[0], a[1]
		if !object.Callable(f) {
			object.Raise(object.TypeError, "iter(v, w): v must be callable")
		}

		done := false

		return object.NewIterator("callable_iterator", func(th *object.Thread) (object.Value, bool) {
			if done {
				return nil, false
			}

			v := object.Call(th, f, nil, nil)
			if object.Eq(th, v, sentinel) {
				done = true

				return nil, false
			}

			return v, true
		})
	})

	register("next", func(th *object.Thread, args []object.Value, kw []object.Keyword) object.Value {
		object.NoKeywords("next", kw)

		a := validate.Fixed(args, 1, 2)

		v, ok := object.Next(th, a[0])
		if ok {
			return v
		}

		if a[1] != nil {
			return a[1]
		}

		panic(object.NewException(object.StopIteration))
	})

	register("aiter", func(th *object.Thread, args []object.Value, kw []object.Keyword) object.Value {
		object.NoKeywords("aiter", kw)

		v := validate.Fixed(args, 1, 1)[0]

		f, ok := object.LookupAttr(th, v, "__aiter__")
		if !ok {
			object.Raise(object.TypeError, "'%s' object is not an async iterable", object.TypeName(v))
		}

		return object.Call(th, f, nil, nil)
	})

	register("anext", func(th *object.Thread, args []object.Value, kw []object.Keyword) object.Value {
		object.NoKeywords("anext", kw)

		a := validate.Fixed(args, 1, 2)

		f, ok := object.LookupAttr(th, a[0], "__anext__")
		if !ok {
			object.Raise(object.TypeError, "'%s' object is not an async iterator", object.TypeName(a[0]))
		}

		step := object.Call(th, f, nil, nil)
		if a[1] == nil {
			return step
		}

		dflt := a[1]

		return object.NewGenerator(object.Coroutine, "anext", "anext", nil, func(th *object.Thread, g *object.Generator) (v object.Value) {
			defer func() {
				if r := recover(); r != nil {
					if e, ok := r.(*object.Exception); ok && e.Matches(object.StopAsyncIteration) {
						v = dflt

						return
					}

					panic(r)
				}
			}()

			return g.Await(th, step)
		})
	})
}

func iterators(th *object.Thread, vs []object.Value) []object.Value {
	its := make([]object.Value, len(vs))
	for i, v := range vs {
		its[i] = object.Iter(th, v)
	}

	return its
}

// zipMismatch raises the error strict zip reports when argument n+1 ran
// out first.
func zipMismatch(th *object.Thread, its []object.Value, n int) {
	if n > 0 {
		plural := "s"
		if n == 1 {
			plural = ""
		}

		object.Raise(object.ValueError, "zip() argument %d is shorter than argument%s 1%s", n+1, plural, through(n))
	}

	for i, it := range its[1:] {
		if _, ok := object.Next(th, it); ok {
			plural := "s"
			if i == 0 {
				plural = ""
			}

			object.Raise(object.ValueError, "zip() argument %d is longer than argument%s 1%s", i+2, plural, through(i+1))
		}
	}
}

func through(n int) string {
	if n <= 1 {
		return ""
	}

	return "-" + strconv.Itoa(n)
}

// Released under an MIT license. See LICENSE.

package modules

import (
	"github.com/michaelmacinnis/enclave/internal/common/validate"
	"github.com/michaelmacinnis/enclave/internal/engine/object"
)

func init() {
	register("itertools", func() *object.Module {
		return module("itertools", "Iterator building blocks.", map[string]object.Native{
			"accumulate": accumulate,
			"chain":      chain,
			"count":      count,
			"islice":     islice,
			"product":    product,
			"repeat":     repeat,
		})
	})
}

func count(th *object.Thread, args []object.Value, kw []object.Keyword) object.Value {
	a := object.Args("count", args, kw, 0, "start", "step")

	var n, step object.Value = int64(0), int64(1)

	if a[0] != nil {
		n = a[0]
	}

	if a[1] != nil {
		step = a[1]
	}

	for _, v := range []object.Value{n, step} {
		if _, ok := object.Number(v); !ok {
			object.Raise(object.TypeError, "a number is required")
		}
	}

	return object.NewIterator("count", func(th *object.Thread) (object.Value, bool) {
		v := n
		n = object.BinaryOp(th, "+", n, step)

		return v, true
	})
}

func chain(th *object.Thread, args []object.Value, kw []object.Keyword) object.Value {
	object.NoKeywords("chain", kw)

	return chained(th, object.Iter(th, object.Tuple(args)))
}

func chained(th *object.Thread, iterables object.Value) object.Value {
	var it object.Value

	return object.NewIterator("chain", func(th *object.Thread) (object.Value, bool) {
		for {
			if it == nil {
				next, ok := object.Next(th, iterables)
				if !ok {
					return nil, false
				}

				it = object.Iter(th, next)
			}

			if v, ok := object.Next(th, it); ok {
				return v, true
			}

			it = nil
		}
	})
}

func index(th *object.Thread, v object.Value, dflt int64) int64 {
	if v == nil || v == object.None {
		return dflt
	}

	i, ok := object.AsIndex(th, v)
	if !ok || i < 0 {
		object.Raise(object.ValueError, "Indices for islice() must be None or an integer: 0 <= x <= sys.maxsize.")
	}

	return i
}

func islice(th *object.Thread, args []object.Value, kw []object.Keyword) object.Value {
	object.NoKeywords("islice", kw)

	a := validate.Fixed(args, 2, 4)
	it := object.Iter(th, a[0])

	start, stop, step := int64(0), int64(-1), int64(1)

	if a[2] == nil {
		stop = index(th, a[1], -1)
	} else {
		start = index(th, a[1], 0)
		stop = index(th, a[2], -1)
		step = index(th, a[3], 1)

		if step == 0 {
			object.Raise(object.ValueError, "Step for islice() must be a positive integer or None.")
		}
	}

	pos, next := int64(0), start

	return object.NewIterator("islice", func(th *object.Thread) (object.Value, bool) {
		for stop < 0 || next < stop {
			v, ok := object.Next(th, it)
			if !ok {
				return nil, false
			}

			pos++
			if pos-1 == next {
				next += step

				return v, true
			}
		}

		return nil, false
	})
}

func product(th *object.Thread, args []object.Value, kw []object.Keyword) object.Value {
	times := int64(1)

	for _, k := range kw {
		if k.Name != "repeat" {
			object.Raise(object.TypeError, "product() got an unexpected keyword argument '%s'", k.Name)
		}

		var ok bool

		times, ok = object.AsIndex(th, k.Value)
		if !ok || times < 0 {
			object.Raise(object.ValueError, "repeat argument cannot be negative")
		}
	}

	pools := make([][]object.Value, 0, len(args)*int(times))

	for _, a := range args {
		pools = append(pools, object.ToSlice(th, a))
	}

	all := make([][]object.Value, 0, cap(pools))
	for i := int64(0); i < times; i++ {
		all = append(all, pools...)
	}

	indices := make([]int, len(all))
	done := false

	for _, p := range all {
		if len(p) == 0 {
			done = true
		}
	}

	return object.NewIterator("product", func(th *object.Thread) (object.Value, bool) {
		if done {
			return nil, false
		}

		t := make(object.Tuple, len(all))
		for i, p := range all {
			t[i] = p[indices[i]]
		}

		// Advance like an odometer, rightmost first.
		done = true

		for i := len(indices) - 1; i >= 0; i-- {
			indices[i]++
			if indices[i] < len(all[i]) {
				done = false

				break
			}

			indices[i] = 0
		}

		return t, true
	})
}

func repeat(th *object.Thread, args []object.Value, kw []object.Keyword) object.Value {
	a := object.Args("repeat", args, kw, 1, "object", "times")

	v := a[0]
	n := int64(-1)

	if a[1] != nil {
		var ok bool

		n, ok = object.AsIndex(th, a[1])
		if !ok {
			object.Raise(object.TypeError, "'%s' object cannot be interpreted as an integer", object.TypeName(a[1]))
		}

		n = max(n, 0)
	}

	return object.NewIterator("repeat", func(th *object.Thread) (object.Value, bool) {
		if n == 0 {
			return nil, false
		}

		if n > 0 {
			n--
		}

		return v, true
	})
}

func accumulate(th *object.Thread, args []object.Value, kw []object.Keyword) object.Value {
	a := object.Args("accumulate", args, kw, 1, "iterable", "func", "initial")

	it := object.Iter(th, a[0])
	f := a[1]

	var total object.Value

	pending := a[2] != nil && a[2] != object.None
	if pending {
		total = a[2]
	}

	return object.NewIterator("accumulate", func(th *object.Thread) (object.Value, bool) {
		if pending {
			pending = false

			return total, true
		}

		v, ok := object.Next(th, it)
		if !ok {
			return nil, false
		}

		switch {
		case total == nil:
			total = v
		case f == nil || f == object.None:
			total = object.BinaryOp(th, "+", total, v)
		default:
			total = object.Call(th, f, []object.Value{total, v}, nil)
		}

		return total, true
	})
}

// Released under an MIT license. See LICENSE.

package builtins

import (
	"math"
	"math/bits"
	"strconv"
	"strings"

	"github.com/michaelmacinnis/enclave/internal/common/validate"
	"github.com/michaelmacinnis/enclave/internal/engine/object"
)

//nolint:cyclop,funlen,gocognit,maintidx
func init() {
	register("abs", func(th *object.Thread, args []object.Value, kw []object.Keyword) object.Value {
		object.NoKeywords("abs", kw)
		v := validate.Fixed(args, 1, 1)[0]

		switch n, _ := object.Number(v); n := n.(type) {
		case int64:
			if n < 0 {
				return object.SubInt(0, n)
			}

			return n
		case float64:
			return math.Abs(n)
		}

		f, ok := object.LookupAttr(th, object.TypeOf(v), "__abs__")
		if !ok {
			object.Raise(object.TypeError, "bad operand type for abs(): '%s'", object.TypeName(v))
		}

		return object.Call(th, f, []object.Value{v}, nil)
	})

	register("all", func(th *object.Thread, args []object.Value, kw []object.Keyword) object.Value {
		object.NoKeywords("all", kw)

		r := true

		object.Each(th, validate.Fixed(args, 1, 1)[0], func(v object.Value) bool {
			r = object.Truth(th, v)

			return r
		})

		return r
	})

	register("any", func(th *object.Thread, args []object.Value, kw []object.Keyword) object.Value {
		object.NoKeywords("any", kw)

		r := false

		object.Each(th, validate.Fixed(args, 1, 1)[0], func(v object.Value) bool {
			r = object.Truth(th, v)

			return !r
		})

		return r
	})

	register("bin", radix("bin", 2, "0b"))
	register("oct", radix("oct", 8, "0o"))
	register("hex", radix("hex", 16, "0x"))

	register("callable", func(th *object.Thread, args []object.Value, kw []object.Keyword) object.Value {
		object.NoKeywords("callable", kw)

		return object.Callable(validate.Fixed(args, 1, 1)[0])
	})

	register("chr", func(th *object.Thread, args []object.Value, kw []object.Keyword) object.Value {
		object.NoKeywords("chr", kw)

		v := validate.Fixed(args, 1, 1)[0]

		i, ok := object.AsIndex(th, v)
		if !ok {
			object.Raise(object.TypeError, "'%s' object cannot be interpreted as an integer", object.TypeName(v))
		}

		if i < 0 || i > 0x10ffff {
			object.Raise(object.ValueError, "chr() arg not in range(0x110000)")
		}

		return string(rune(i))
	})

	register("ord", func(th *object.Thread, args []object.Value, kw []object.Keyword) object.Value {
		object.NoKeywords("ord", kw)

		v := validate.Fixed(args, 1, 1)[0]

		switch s := object.Prim(v).(type) {
		case string:
			r := []rune(s)
			if len(r) != 1 {
				object.Raise(object.TypeError, "ord() expected a character, but string of length %d found", len(r))
			}

			return int64(r[0])
		case object.Bytes:
			if len(s) != 1 {
				object.Raise(object.TypeError, "ord() expected a character, but string of length %d found", len(s))
			}

			return int64(s[0])
		}

		object.Raise(object.TypeError, "ord() expected string of length 1, but %s found", object.TypeName(v))

		return nil
	})

	register("divmod", func(th *object.Thread, args []object.Value, kw []object.Keyword) object.Value {
		object.NoKeywords("divmod", kw)

		a := validate.Fixed(args, 2, 2)

		if f, ok := object.LookupAttr(th, object.TypeOf(a[0]), "__divmod__"); ok {
			if _, builtin := f.(*object.Builtin); !builtin {
				return object.Call(th, f, a, nil)
			}
		}

		return object.Tuple{
			object.BinaryOp(th, "//", a[0], a[1]),
			object.BinaryOp(th, "%", a[0], a[1]),
		}
	})

	register("format", func(th *object.Thread, args []object.Value, kw []object.Keyword) object.Value {
		a := object.Args("format", args, kw, 1, "value", "format_spec")

		spec := ""
		if a[1] != nil {
			spec = object.StrArg("format", a[1])
		}

		return object.Format(th, a[0], spec)
	})

	register("hash", func(th *object.Thread, args []object.Value, kw []object.Keyword) object.Value {
		object.NoKeywords("hash", kw)

		return object.Hash(th, validate.Fixed(args, 1, 1)[0])
	})

	register("id", func(th *object.Thread, args []object.Value, kw []object.Keyword) object.Value {
		object.NoKeywords("id", kw)

		return int64(object.ID(validate.Fixed(args, 1, 1)[0]))
	})

	register("isinstance", func(th *object.Thread, args []object.Value, kw []object.Keyword) object.Value {
		object.NoKeywords("isinstance", kw)

		a := validate.Fixed(args, 2, 2)

		return classCheck(th, "isinstance", a[1], func(c *object.Class) bool {
			return object.IsInstance(a[0], c)
		})
	})

	register("issubclass", func(th *object.Thread, args []object.Value, kw []object.Keyword) object.Value {
		object.NoKeywords("issubclass", kw)

		a := validate.Fixed(args, 2, 2)

		c, ok := a[0].(*object.Class)
		if !ok {
			object.Raise(object.TypeError, "issubclass() arg 1 must be a class")
		}

		return classCheck(th, "issubclass", a[1], c.IsSubclass)
	})

	register("len", func(th *object.Thread, args []object.Value, kw []object.Keyword) object.Value {
		object.NoKeywords("len", kw)

		return int64(object.Len(th, validate.Fixed(args, 1, 1)[0]))
	})

	register("max", extreme("max", ">"))
	register("min", extreme("min", "<"))

	register("pow", func(th *object.Thread, args []object.Value, kw []object.Keyword) object.Value {
		a := object.Args("pow", args, kw, 2, "base", "exp", "mod")
		if a[2] == nil || a[2] == object.None {
			return object.BinaryOp(th, "**", a[0], a[1])
		}

		base, ok1 := object.Prim(a[0]).(int64)
		exp, ok2 := object.Prim(a[1]).(int64)
		mod, ok3 := object.Prim(a[2]).(int64)

		if !ok1 || !ok2 || !ok3 {
			object.Raise(object.TypeError, "pow() 3rd argument not allowed unless all arguments are integers")
		}

		return modPow(base, exp, mod)
	})

	register("print", func(th *object.Thread, args []object.Value, kw []object.Keyword) object.Value {
		sep, end := " ", "\n"

		for _, k := range kw {
			switch k.Name {
			case "sep":
				if k.Value != object.None {
					sep = object.StrArg("sep", k.Value)
				}
			case "end":
				if k.Value != object.None {
					end = object.StrArg("end", k.Value)
				}
			case "flush":
			case "file":
				if k.Value != object.None {
					object.Raise(object.TypeError, "print() does not support the file argument in this environment")
				}
			default:
				object.Raise(object.TypeError, "print() got an unexpected keyword argument '%s'", k.Name)
			}
		}

		parts := make([]string, len(args))
		for i, v := range args {
			parts[i] = object.Str(th, v)
		}

		_, _ = th.Stdout.Write([]byte(strings.Join(parts, sep) + end))

		return object.None
	})

	register("repr", func(th *object.Thread, args []object.Value, kw []object.Keyword) object.Value {
		object.NoKeywords("repr", kw)

		return object.Repr(th, validate.Fixed(args, 1, 1)[0])
	})

	register("reversed", func(th *object.Thread, args []object.Value, kw []object.Keyword) object.Value {
		object.NoKeywords("reversed", kw)

		return object.Reversed(th, validate.Fixed(args, 1, 1)[0])
	})

	register("round", func(th *object.Thread, args []object.Value, kw []object.Keyword) object.Value {
		a := object.Args("round", args, kw, 1, "number", "ndigits")
		digits := a[1] != nil && a[1] != object.None

		var n int64

		if digits {
			var ok bool

			n, ok = object.AsIndex(th, a[1])
			if !ok {
				object.Raise(object.TypeError, "'%s' object cannot be interpreted as an integer", object.TypeName(a[1]))
			}
		}

		switch v, _ := object.Number(a[0]); v := v.(type) {
		case int64:
			if digits {
				return object.RoundInt(v, n)
			}

			return v
		case float64:
			if digits {
				return object.RoundFloat(v, n)
			}

			if math.IsInf(v, 0) {
				object.Raise(object.OverflowError, "cannot convert float infinity to integer")
			}

			if math.IsNaN(v) {
				object.Raise(object.ValueError, "cannot convert float NaN to integer")
			}

			return object.FloatToInt(math.RoundToEven(v))
		}

		f, ok := object.LookupAttr(th, object.TypeOf(a[0]), "__round__")
		if !ok {
			object.Raise(object.TypeError, "type %s doesn't define __round__ method", object.TypeName(a[0]))
		}

		if digits {
			return object.Call(th, f, []object.Value{a[0], a[1]}, nil)
		}

		return object.Call(th, f, []object.Value{a[0]}, nil)
	})

	register("sorted", func(th *object.Thread, args []object.Value, kw []object.Keyword) object.Value {
		it := validate.Fixed(args, 1, 1)[0]

		var key object.Value

		reverse := false

		for _, k := range kw {
			switch k.Name {
			case "key":
				key = k.Value
			case "reverse":
				reverse = object.Truth(th, k.Value)
			default:
				object.Raise(object.TypeError, "sort() got an unexpected keyword argument '%s'", k.Name)
			}
		}

		items := append([]object.Value(nil), object.ToSlice(th, it)...)
		object.Sort(th, items, key, reverse)

		return object.NewList(items...)
	})

	register("sum", func(th *object.Thread, args []object.Value, kw []object.Keyword) object.Value {
		a := object.Args("sum", args, kw, 1, "iterable", "start")

		var total object.Value = int64(0)
		if a[1] != nil {
			total = a[1]
		}

		switch object.Prim(total).(type) {
		case string:
			object.Raise(object.TypeError, "sum() can't sum strings [use ''.join(seq) instead]")
		case object.Bytes:
			object.Raise(object.TypeError, "sum() can't sum bytes [use b''.join(seq) instead]")
		}

		object.Each(th, a[0], func(v object.Value) bool {
			total = object.BinaryOp(th, "+", total, v)

			return true
		})

		return total
	})
}

func radix(name string, base int, prefix string) object.Native {
	return func(th *object.Thread, args []object.Value, kw []object.Keyword) object.Value {
		object.NoKeywords(name, kw)

		v := validate.Fixed(args, 1, 1)[0]

		i, ok := object.AsIndex(th, v)
		if !ok {
			object.Raise(object.TypeError, "'%s' object cannot be interpreted as an integer", object.TypeName(v))
		}

		if i < 0 {
			return "-" + prefix + strconv.FormatUint(uint64(-(i+1))+1, base)
		}

		return prefix + strconv.FormatInt(i, base)
	}
}

// classCheck applies test to the class, union or tuple of classes in spec.
func classCheck(th *object.Thread, name string, spec object.Value, test func(*object.Class) bool) bool {
	switch s := spec.(type) {
	case *object.Class:
		return test(s)
	case object.Tuple:
		for _, v := range s {
			if classCheck(th, name, v, test) {
				return true
			}
		}

		return false
	case *object.Union:
		return classCheck(th, name, s.Args, test)
	}

	object.Raise(object.TypeError, "%s() arg 2 must be a type, a tuple of types, or a union", name)

	return false
}

func extreme(name, op string) object.Native {
	return func(th *object.Thread, args []object.Value, kw []object.Keyword) object.Value {
		var key, dflt object.Value

		for _, k := range kw {
			switch k.Name {
			case "key":
				if k.Value != object.None {
					key = k.Value
				}
			case "default":
				dflt = k.Value
			default:
				object.Raise(object.TypeError, "%s() got an unexpected keyword argument '%s'", name, k.Name)
			}
		}

		var items []object.Value

		switch len(args) {
		case 0:
			object.Raise(object.TypeError, "%s expected at least 1 argument, got 0", name)
		case 1:
			items = object.ToSlice(th, args[0])
		default:
			if dflt != nil {
				object.Raise(object.TypeError, "Cannot specify a default for %s() with multiple positional arguments", name)
			}

			items = args
		}

		if len(items) == 0 {
			if dflt != nil {
				return dflt
			}

			object.Raise(object.ValueError, "%s() iterable argument is empty", name)
		}

		best := items[0]
		bestKey := keyOf(th, key, best)

		for _, v := range items[1:] {
			k := keyOf(th, key, v)
			if object.Truth(th, object.Compare(th, op, k, bestKey)) {
				best, bestKey = v, k
			}
		}

		return best
	}
}

func keyOf(th *object.Thread, key, v object.Value) object.Value {
	if key == nil {
		return v
	}

	return object.Call(th, key, []object.Value{v}, nil)
}

func modPow(base, exp, mod int64) int64 {
	if mod == 0 {
		object.Raise(object.ValueError, "pow() 3rd argument cannot be 0")
	}

	if exp < 0 {
		object.Raise(object.ValueError, "pow() 2nd argument cannot be negative when 3rd argument specified")
	}

	m := mod
	if m < 0 {
		m = -m
	}

	result := int64(1) % m
	b := ((base % m) + m) % m

	for exp > 0 {
		if exp&1 == 1 {
			result = mulMod(result, b, m)
		}

		b = mulMod(b, b, m)
		exp >>= 1
	}

	if mod < 0 && result != 0 {
		result += mod
	}

	return result
}

func mulMod(a, b, m int64) int64 {
	hi, lo := bits.Mul64(uint64(a), uint64(b))

	return int64(bits.Rem64(hi, lo, uint64(m)))
}

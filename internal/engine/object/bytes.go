// Released under an MIT license. See LICENSE.

package object

import (
	"bytes"
	"encoding/hex"
	"strings"

	"github.com/michaelmacinnis/enclave/internal/common/validate"
)

// BytesOf converts a bytes object or an iterable of small integers to a
// byte slice.
func BytesOf(th *Thread, v Value) []byte {
	switch x := Prim(v).(type) {
	case Bytes:
		return []byte(x)
	case string:
		Raise(TypeError, "cannot convert 'str' object to bytes")
	case int64, bool, float64, NoneType:
		Raise(TypeError, "cannot convert '%s' object to bytes", TypeName(v))
	}

	items := ToSlice(th, v)
	b := make([]byte, len(items))

	for i, item := range items {
		n, ok := AsIndex(th, item)
		if !ok {
			Raise(TypeError, "'%s' object cannot be interpreted as an integer", TypeName(item))
		}

		if n < 0 || n > 255 {
			Raise(ValueError, "bytes must be in range(0, 256)")
		}

		b[i] = byte(n)
	}

	return b
}

func selfBytes(self Value) string {
	b, ok := Prim(self).(Bytes)
	if !ok {
		Raise(TypeError, "descriptor requires a 'bytes' object but received a '%s'", TypeName(self))
	}

	return string(b)
}

func bytesArg(v Value) string {
	b, ok := Prim(v).(Bytes)
	if !ok {
		Raise(TypeError, "a bytes-like object is required, not '%s'", TypeName(v))
	}

	return string(b)
}

func bytesMethod(name string, fn func(th *Thread, b string, args []Value, kw []Keyword) Value) {
	method(BytesType, name, func(th *Thread, self Value, args []Value, kw []Keyword) Value {
		return fn(th, selfBytes(self), args, kw)
	})
}

func bytesWindow(th *Thread, b string, start, end Value) (string, int) {
	lo, hi, _ := Indices(th, &Slice{Start: start, Stop: end}, len(b))
	if hi < lo {
		return "", lo
	}

	return b[lo:hi], lo
}

//nolint:funlen
func init() {
	newMethod(BytesType, func(th *Thread, args []Value, kw []Keyword) Value {
		c := classOf(th, args[0], "bytes.__new__")
		a := Args("bytes", args[1:], kw, 0, "source", "encoding", "errors")

		var b Bytes

		switch {
		case a[0] == nil:
		case a[1] != nil:
			s, ok := Prim(a[0]).(string)
			if !ok {
				Raise(TypeError, "encoding without a string argument")
			}

			b = Encode(s, StrArg("bytes", a[1]))
		default:
			if _, ok := Prim(a[0]).(string); ok {
				Raise(TypeError, "string argument without an encoding")
			}

			if n, ok := AsIndex(th, a[0]); ok {
				if n < 0 {
					Raise(ValueError, "negative count")
				}

				b = Bytes(make([]byte, n))
			} else {
				b = Bytes(BytesOf(th, a[0]))
			}
		}

		return wrap(c, b, BytesType)
	})

	bytesMethod("decode", func(th *Thread, b string, args []Value, kw []Keyword) Value {
		a := Args("decode", args, kw, 0, "encoding", "errors")

		encoding := "utf-8"
		if a[0] != nil {
			encoding = StrArg("decode", a[0])
		}

		return Decode(Bytes(b), encoding)
	})

	bytesMethod("hex", func(th *Thread, b string, args []Value, kw []Keyword) Value {
		validate.Fixed(args, 0, 0)

		return hex.EncodeToString([]byte(b))
	})

	fromhex := define(BytesType, "fromhex", func(th *Thread, args []Value, kw []Keyword) Value {
		a := validate.Fixed(args, 2, 2)
		s := strings.Join(strings.Fields(StrArg("fromhex", a[1])), "")

		b, err := hex.DecodeString(s)
		if err != nil {
			Raise(ValueError, "non-hexadecimal number found in fromhex() arg")
		}

		return wrap(classOf(th, a[0], "fromhex"), Bytes(b), BytesType)
	})
	BytesType.Dict.SetStr("fromhex", &ClassMethod{Func: fromhex})

	bytesMethod("join", func(th *Thread, b string, args []Value, kw []Keyword) Value {
		items := ToSlice(th, one(args))
		parts := make([]string, len(items))

		for i, v := range items {
			p, ok := Prim(v).(Bytes)
			if !ok {
				Raise(TypeError, "sequence item %d: expected a bytes-like object, %s found", i, TypeName(v))
			}

			parts[i] = string(p)
		}

		return Bytes(strings.Join(parts, b))
	})

	bytesMethod("startswith", func(th *Thread, b string, args []Value, kw []Keyword) Value {
		a := validate.Fixed(args, 1, 3)
		w, _ := bytesWindow(th, b, a[1], a[2])

		return strings.HasPrefix(w, bytesArg(a[0]))
	})

	bytesMethod("endswith", func(th *Thread, b string, args []Value, kw []Keyword) Value {
		a := validate.Fixed(args, 1, 3)
		w, _ := bytesWindow(th, b, a[1], a[2])

		return strings.HasSuffix(w, bytesArg(a[0]))
	})

	bytesMethod("find", func(th *Thread, b string, args []Value, kw []Keyword) Value {
		a := validate.Fixed(args, 1, 3)
		w, off := bytesWindow(th, b, a[1], a[2])

		i := strings.Index(w, bytesArg(a[0]))
		if i < 0 {
			return int64(-1)
		}

		return int64(i + off)
	})

	bytesMethod("count", func(th *Thread, b string, args []Value, kw []Keyword) Value {
		a := validate.Fixed(args, 1, 3)
		w, _ := bytesWindow(th, b, a[1], a[2])

		return int64(strings.Count(w, bytesArg(a[0])))
	})

	bytesMethod("replace", func(th *Thread, b string, args []Value, kw []Keyword) Value {
		a := validate.Fixed(args, 2, 3)

		n := -1
		if a[2] != nil {
			n = toIndex(th, a[2])
		}

		return Bytes(strings.Replace(b, bytesArg(a[0]), bytesArg(a[1]), n))
	})

	bytesMethod("split", func(th *Thread, b string, args []Value, kw []Keyword) Value {
		a := Args("split", args, kw, 0, "sep", "maxsplit")

		n := -1
		if a[1] != nil {
			n = toIndex(th, a[1])
		}

		var parts [][]byte

		if a[0] == nil || a[0] == None {
			parts = bytes.Fields([]byte(b))
			if n >= 0 && len(parts) > n+1 {
				parts = append(parts[:n], bytes.Join(parts[n:], []byte(" ")))
			}
		} else {
			sep := bytesArg(a[0])
			if sep == "" {
				Raise(ValueError, "empty separator")
			}

			if n >= 0 {
				n++
			}

			parts = bytes.SplitN([]byte(b), []byte(sep), n)
		}

		items := make([]Value, len(parts))
		for i, p := range parts {
			items[i] = Bytes(p)
		}

		return NewList(items...)
	})

	bytesMethod("strip", func(th *Thread, b string, args []Value, kw []Keyword) Value {
		a := validate.Fixed(args, 0, 1)
		if a[0] == nil || a[0] == None {
			return Bytes(strings.TrimSpace(b))
		}

		return Bytes(strings.Trim(b, bytesArg(a[0])))
	})

	bytesMethod("upper", func(th *Thread, b string, args []Value, kw []Keyword) Value {
		return Bytes(bytes.ToUpper([]byte(b)))
	})

	bytesMethod("lower", func(th *Thread, b string, args []Value, kw []Keyword) Value {
		return Bytes(bytes.ToLower([]byte(b)))
	})
}

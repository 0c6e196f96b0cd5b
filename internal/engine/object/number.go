// Released under an MIT license. See LICENSE.

package object

import (
	"math"
	"math/bits"
	"strconv"
	"strings"

	"github.com/michaelmacinnis/enclave/internal/common/validate"
)

// ParseInt parses s as an integer literal in the given base. A base of 0
// accepts the prefixes 0x, 0o and 0b.
func ParseInt(s string, base int) (int64, bool) {
	s = strings.TrimSpace(s)

	neg := false

	switch {
	case strings.HasPrefix(s, "-"):
		neg = true
		s = s[1:]
	case strings.HasPrefix(s, "+"):
		s = s[1:]
	}

	lower := strings.ToLower(s)

	for _, p := range []struct {
		prefix string
		base   int
	}{{"0x", 16}, {"0o", 8}, {"0b", 2}} {
		if strings.HasPrefix(lower, p.prefix) && (base == 0 || base == p.base) {
			s = s[2:]
			base = p.base

			if strings.HasPrefix(s, "_") {
				s = s[1:]
			}

			break
		}
	}

	if base == 0 {
		if len(s) > 1 && s[0] == '0' && strings.Trim(s, "0_") != "" {
			return 0, false
		}

		base = 10
	}

	if !validUnderscores(s) {
		return 0, false
	}

	s = strings.ReplaceAll(s, "_", "")
	if s == "" {
		return 0, false
	}

	u, err := strconv.ParseUint(s, base, 64)
	if err != nil {
		if ne, ok := err.(*strconv.NumError); ok && ne.Err == strconv.ErrRange { //nolint:errorlint
			Raise(OverflowError, "int too large to convert")
		}

		return 0, false
	}

	switch {
	case neg && u == 1<<63:
		return math.MinInt64, true
	case u >= 1<<63:
		Raise(OverflowError, "int too large to convert")
	case neg:
		return -int64(u), true
	}

	return int64(u), true
}

func validUnderscores(s string) bool {
	if strings.HasPrefix(s, "_") || strings.HasSuffix(s, "_") {
		return false
	}

	return !strings.Contains(s, "__")
}

// ParseFloat parses s the way float() does.
func ParseFloat(s string) (float64, bool) {
	s = strings.TrimSpace(s)

	sign := 1.0
	body := s

	switch {
	case strings.HasPrefix(body, "-"):
		sign = -1
		body = body[1:]
	case strings.HasPrefix(body, "+"):
		body = body[1:]
	}

	switch strings.ToLower(body) {
	case "inf", "infinity":
		return math.Inf(int(sign)), true
	case "nan":
		return math.NaN(), true
	}

	if strings.ContainsAny(body, "xXpP") || !validUnderscores(body) || strings.Contains(body, "._") || strings.Contains(body, "_.") {
		return 0, false
	}

	f, err := strconv.ParseFloat(strings.ReplaceAll(body, "_", ""), 64)
	if err != nil {
		if ne, ok := err.(*strconv.NumError); !ok || ne.Err != strconv.ErrRange { //nolint:errorlint
			return 0, false
		}
	}

	return sign * f, true
}

// ToInt converts v the way int(v) does.
//
//nolint:cyclop
func ToInt(th *Thread, v Value, base Value) int64 {
	if base != nil {
		b, ok := AsIndex(th, base)
		if !ok {
			Raise(TypeError, "'%s' object cannot be interpreted as an integer", TypeName(base))
		}

		if b != 0 && (b < 2 || b > 36) {
			Raise(ValueError, "int() base must be >= 2 and <= 36, or 0")
		}

		var s string

		switch x := Prim(v).(type) {
		case string:
			s = x
		case Bytes:
			s = string(x)
		default:
			Raise(TypeError, "int() can't convert non-string with explicit base")
		}

		n, ok := ParseInt(s, int(b))
		if !ok {
			Raise(ValueError, "invalid literal for int() with base %d: %s", b, Repr(th, v))
		}

		return n
	}

	switch x := v.(type) {
	case bool:
		return boolInt(x)
	case int64:
		return x
	case float64:
		return FloatToInt(x)
	case string, Bytes:
		s, ok := x.(string)
		if !ok {
			s = string(x.(Bytes)) //nolint:forcetypeassert
		}

		n, ok := ParseInt(s, 10)
		if !ok {
			Raise(ValueError, "invalid literal for int() with base 10: %s", Repr(th, v))
		}

		return n
	case *Instance:
		for _, name := range []string{"__int__", "__index__", "__trunc__"} {
			if f, ok := x.Class.Overrides(name); ok {
				r := Call(th, bind(th, f, x, x.Class), nil, nil)

				n, ok := Prim(r).(int64)
				if !ok {
					Raise(TypeError, "%s returned non-int (type %s)", name, TypeName(r))
				}

				return n
			}
		}

		if x.Base != nil {
			return ToInt(th, x.Base, nil)
		}
	}

	Raise(TypeError, "int() argument must be a string, a bytes-like object or a real number, not '%s'", TypeName(v))

	return 0
}

// FloatToInt truncates f.
func FloatToInt(f float64) int64 {
	switch {
	case math.IsInf(f, 0):
		Raise(OverflowError, "cannot convert float infinity to integer")
	case math.IsNaN(f):
		Raise(ValueError, "cannot convert float NaN to integer")
	case f >= math.MaxInt64 || f < math.MinInt64:
		Raise(OverflowError, "int too large to convert")
	}

	return int64(f)
}

// ToFloat converts v the way float(v) does.
func ToFloat(th *Thread, v Value) float64 {
	switch x := v.(type) {
	case bool:
		return float64(boolInt(x))
	case int64:
		return float64(x)
	case float64:
		return x
	case string:
		f, ok := ParseFloat(x)
		if !ok {
			Raise(ValueError, "could not convert string to float: %s", Repr(th, x))
		}

		return f
	case *Instance:
		for _, name := range []string{"__float__", "__index__"} {
			if f, ok := x.Class.Overrides(name); ok {
				r := Prim(Call(th, bind(th, f, x, x.Class), nil, nil))

				switch n := r.(type) {
				case float64:
					return n
				case int64:
					return float64(n)
				}

				Raise(TypeError, "%s returned non-float (type %s)", name, TypeName(r))
			}
		}

		if x.Base != nil {
			return ToFloat(th, x.Base)
		}
	}

	Raise(TypeError, "float() argument must be a string or a real number, not '%s'", TypeName(v))

	return 0
}

// Number returns v as an int64 or float64, or false if it is not a number.
func Number(v Value) (Value, bool) {
	switch x := Prim(v).(type) {
	case bool:
		return boolInt(x), true
	case int64, float64:
		return x, true
	}

	return nil, false
}

// RoundFloat rounds f to n decimal places, halfway cases to even.
func RoundFloat(f float64, n int64) float64 {
	if math.IsInf(f, 0) || math.IsNaN(f) || n > 300 {
		return f
	}

	if n < -308 {
		return math.Copysign(0, f)
	}

	if n < 0 {
		p := math.Pow(10, float64(-n))

		return math.RoundToEven(f/p) * p
	}

	r, _ := strconv.ParseFloat(strconv.FormatFloat(f, 'f', int(n), 64), 64)

	return r
}

// RoundInt rounds i to n decimal places, halfway cases to even.
func RoundInt(i, n int64) int64 {
	if n >= 0 {
		return i
	}

	if n < -18 {
		return 0
	}

	p := int64(1)
	for k := int64(0); k < -n; k++ {
		p *= 10
	}

	q, r := FloorDivInt(i, p), ModInt(i, p)

	switch {
	case 2*r > p, 2*r == p && q%2 != 0:
		q++
	}

	return MulInt(q, p)
}

func selfInt(self Value) int64 {
	switch x := Prim(self).(type) {
	case bool:
		return boolInt(x)
	case int64:
		return x
	}

	Raise(TypeError, "descriptor requires an 'int' object but received a '%s'", TypeName(self))

	return 0
}

func selfFloat(self Value) float64 {
	f, ok := Prim(self).(float64)
	if !ok {
		Raise(TypeError, "descriptor requires a 'float' object but received a '%s'", TypeName(self))
	}

	return f
}

func intMethod(name string, fn func(th *Thread, i int64, args []Value, kw []Keyword) Value) {
	method(IntType, name, func(th *Thread, self Value, args []Value, kw []Keyword) Value {
		return fn(th, selfInt(self), args, kw)
	})
}

func floatMethod(name string, fn func(th *Thread, f float64, args []Value, kw []Keyword) Value) {
	method(FloatType, name, func(th *Thread, self Value, args []Value, kw []Keyword) Value {
		return fn(th, selfFloat(self), args, kw)
	})
}

//nolint:funlen
func init() {
	newMethod(IntType, func(th *Thread, args []Value, kw []Keyword) Value {
		c := classOf(th, args[0], "int.__new__")
		a := Args("int", args[1:], kw, 0, "x", "base")

		n := int64(0)
		if a[0] != nil {
			n = ToInt(th, a[0], a[1])
		} else if a[1] != nil {
			Raise(TypeError, "int() missing string argument")
		}

		return wrap(c, n, IntType)
	})

	newMethod(BoolType, func(th *Thread, args []Value, kw []Keyword) Value {
		NoKeywords("bool", kw)

		a := validate.Fixed(args[1:], 0, 1)
		if a[0] == nil {
			return false
		}

		return Truth(th, a[0])
	})

	newMethod(FloatType, func(th *Thread, args []Value, kw []Keyword) Value {
		c := classOf(th, args[0], "float.__new__")
		a := validate.Fixed(args[1:], 0, 1)

		f := 0.0
		if a[0] != nil {
			f = ToFloat(th, a[0])
		}

		return wrap(c, f, FloatType)
	})

	intMethod("bit_length", func(th *Thread, i int64, args []Value, kw []Keyword) Value {
		validate.Fixed(args, 0, 0)

		if i < 0 {
			if i == math.MinInt64 {
				return int64(64)
			}

			i = -i
		}

		return int64(bits.Len64(uint64(i)))
	})

	intMethod("bit_count", func(th *Thread, i int64, args []Value, kw []Keyword) Value {
		validate.Fixed(args, 0, 0)

		u := uint64(i)
		if i < 0 {
			u = uint64(-i)
		}

		return int64(bits.OnesCount64(u))
	})

	intMethod("is_integer", func(th *Thread, i int64, args []Value, kw []Keyword) Value {
		return true
	})

	for _, name := range []string{"__int__", "__index__", "__trunc__", "__floor__", "__ceil__", "conjugate", "__pos__"} {
		intMethod(name, func(th *Thread, i int64, args []Value, kw []Keyword) Value {
			validate.Fixed(args, 0, 0)

			return i
		})
	}

	intMethod("__float__", func(th *Thread, i int64, args []Value, kw []Keyword) Value {
		return float64(i)
	})

	intMethod("__neg__", func(th *Thread, i int64, args []Value, kw []Keyword) Value {
		return SubInt(0, i)
	})

	intMethod("__invert__", func(th *Thread, i int64, args []Value, kw []Keyword) Value {
		return ^i
	})

	intMethod("__abs__", func(th *Thread, i int64, args []Value, kw []Keyword) Value {
		if i < 0 {
			return SubInt(0, i)
		}

		return i
	})

	intMethod("__bool__", func(th *Thread, i int64, args []Value, kw []Keyword) Value {
		return i != 0
	})

	intMethod("__round__", func(th *Thread, i int64, args []Value, kw []Keyword) Value {
		a := validate.Fixed(args, 0, 1)
		if a[0] == nil || a[0] == None {
			return i
		}

		return RoundInt(i, int64(toIndex(th, a[0])))
	})

	intMethod("as_integer_ratio", func(th *Thread, i int64, args []Value, kw []Keyword) Value {
		return Tuple{i, int64(1)}
	})

	intMethod("to_bytes", func(th *Thread, i int64, args []Value, kw []Keyword) Value {
		a := Args("to_bytes", args, kw, 0, "length", "byteorder", "signed")

		length, order, signed := 1, "big", false
		if a[0] != nil {
			length = toIndex(th, a[0])
		}

		if a[1] != nil {
			order, _ = Prim(a[1]).(string)
		}

		if a[2] != nil {
			signed = Truth(th, a[2])
		}

		return Bytes(IntBytes(i, length, order, signed))
	})

	fromBytes := define(IntType, "from_bytes", func(th *Thread, args []Value, kw []Keyword) Value {
		a := Args("from_bytes", args[1:], kw, 1, "bytes", "byteorder", "signed")

		order := "big"
		if a[1] != nil {
			order, _ = Prim(a[1]).(string)
		}

		b := BytesOf(th, a[0])

		return wrap(classOf(th, args[0], "from_bytes"), IntFromBytes(b, order, a[2] != nil && Truth(th, a[2])), IntType)
	})
	IntType.Dict.SetStr("from_bytes", &ClassMethod{Func: fromBytes})

	floatMethod("is_integer", func(th *Thread, f float64, args []Value, kw []Keyword) Value {
		validate.Fixed(args, 0, 0)

		return !math.IsInf(f, 0) && f == math.Trunc(f)
	})

	floatMethod("__int__", func(th *Thread, f float64, args []Value, kw []Keyword) Value {
		return FloatToInt(f)
	})

	floatMethod("__trunc__", func(th *Thread, f float64, args []Value, kw []Keyword) Value {
		return FloatToInt(f)
	})

	floatMethod("__floor__", func(th *Thread, f float64, args []Value, kw []Keyword) Value {
		return FloatToInt(math.Floor(f))
	})

	floatMethod("__ceil__", func(th *Thread, f float64, args []Value, kw []Keyword) Value {
		return FloatToInt(math.Ceil(f))
	})

	for _, name := range []string{"__float__", "conjugate", "__pos__"} {
		floatMethod(name, func(th *Thread, f float64, args []Value, kw []Keyword) Value {
			return f
		})
	}

	floatMethod("__neg__", func(th *Thread, f float64, args []Value, kw []Keyword) Value {
		return -f
	})

	floatMethod("__abs__", func(th *Thread, f float64, args []Value, kw []Keyword) Value {
		return math.Abs(f)
	})

	floatMethod("__bool__", func(th *Thread, f float64, args []Value, kw []Keyword) Value {
		return f != 0
	})

	floatMethod("__round__", func(th *Thread, f float64, args []Value, kw []Keyword) Value {
		a := validate.Fixed(args, 0, 1)
		if a[0] == nil || a[0] == None {
			return FloatToInt(math.RoundToEven(f))
		}

		return RoundFloat(f, int64(toIndex(th, a[0])))
	})

	floatMethod("as_integer_ratio", func(th *Thread, f float64, args []Value, kw []Keyword) Value {
		if math.IsInf(f, 0) {
			Raise(OverflowError, "cannot convert Infinity to integer ratio")
		}

		if math.IsNaN(f) {
			Raise(ValueError, "cannot convert NaN to integer ratio")
		}

		d := int64(1)
		for f != math.Trunc(f) && d < 1<<52 {
			f *= 2
			d *= 2
		}

		return Tuple{FloatToInt(f), d}
	})
}

// IntBytes encodes i in length bytes.
func IntBytes(i int64, length int, order string, signed bool) []byte {
	if !signed && i < 0 {
		Raise(OverflowError, "can't convert negative int to unsigned")
	}

	if length < 0 {
		Raise(ValueError, "length argument must be non-negative")
	}

	b := make([]byte, length)
	u := uint64(i)

	for k := 0; k < length; k++ {
		if k < 8 {
			b[length-1-k] = byte(u >> (8 * k))
		} else if i < 0 {
			b[length-1-k] = 0xff
		}
	}

	fits := length >= 8
	if !fits {
		limit := int64(1) << (8 * length)
		if signed {
			fits = i >= -limit/2 && i < limit/2
		} else {
			fits = i < limit
		}
	}

	if !fits {
		Raise(OverflowError, "int too big to convert")
	}

	if order == "little" {
		for l, r := 0, length-1; l < r; l, r = l+1, r-1 {
			b[l], b[r] = b[r], b[l]
		}
	} else if order != "big" {
		Raise(ValueError, "byteorder must be either 'little' or 'big'")
	}

	return b
}

// IntFromBytes decodes an integer from b.
func IntFromBytes(b []byte, order string, signed bool) int64 {
	if order == "little" {
		r := make([]byte, len(b))
		for i := range b {
			r[len(b)-1-i] = b[i]
		}

		b = r
	} else if order != "big" {
		Raise(ValueError, "byteorder must be either 'little' or 'big'")
	}

	if len(b) > 8 {
		Raise(OverflowError, "int too large to convert")
	}

	var u uint64
	for _, c := range b {
		u = u<<8 | uint64(c)
	}

	if signed && len(b) > 0 && b[0]&0x80 != 0 && len(b) < 8 {
		u |= ^uint64(0) << (8 * len(b))
	}

	return int64(u)
}

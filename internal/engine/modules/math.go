// Released under an MIT license. See LICENSE.

package modules

import (
	"math"

	"github.com/michaelmacinnis/enclave/internal/common/validate"
	"github.com/michaelmacinnis/enclave/internal/engine/object"
)

func init() {
	register("math", func() *object.Module {
		m := module("math", "Mathematical functions.", map[string]object.Native{
			"acos":      unary("acos", math.Acos),
			"asin":      unary("asin", math.Asin),
			"atan":      unary("atan", math.Atan),
			"atan2":     binary("atan2", math.Atan2),
			"ceil":      rounding("ceil", math.Ceil),
			"comb":      comb,
			"copysign":  binary("copysign", math.Copysign),
			"cos":       unary("cos", math.Cos),
			"degrees":   unary("degrees", func(x float64) float64 { return x * 180 / math.Pi }),
			"exp":       unary("exp", math.Exp),
			"fabs":      unary("fabs", math.Abs),
			"factorial": factorial,
			"floor":     rounding("floor", math.Floor),
			"fmod":      binary("fmod", math.Mod),
			"fsum":      fsum,
			"gcd":       gcd,
			"hypot":     hypot,
			"isclose":   isclose,
			"isfinite":  predicate("isfinite", func(x float64) bool { return !math.IsInf(x, 0) && !math.IsNaN(x) }),
			"isinf":     predicate("isinf", func(x float64) bool { return math.IsInf(x, 0) }),
			"isnan":     predicate("isnan", math.IsNaN),
			"isqrt":     isqrt,
			"lcm":       lcm,
			"log":       logarithm,
			"log10":     unary("log10", math.Log10),
			"log2":      unary("log2", math.Log2),
			"pow":       binary("pow", math.Pow),
			"prod":      prod,
			"radians":   unary("radians", func(x float64) float64 { return x * math.Pi / 180 }),
			"sin":       unary("sin", math.Sin),
			"sqrt":      unary("sqrt", math.Sqrt),
			"tan":       unary("tan", math.Tan),
			"trunc":     rounding("trunc", math.Trunc),
		})

		m.Dict.SetStr("e", math.E)
		m.Dict.SetStr("inf", math.Inf(1))
		m.Dict.SetStr("nan", math.NaN())
		m.Dict.SetStr("pi", math.Pi)
		m.Dict.SetStr("tau", 2*math.Pi)

		return m
	})
}

// checked raises a domain or range error when finite arguments produce a
// NaN or infinite result.
func checked(r float64, args ...float64) float64 {
	for _, a := range args {
		if math.IsNaN(a) || math.IsInf(a, 0) {
			return r
		}
	}

	switch {
	case math.IsNaN(r):
		object.Raise(object.ValueError, "math domain error")
	case math.IsInf(r, 0):
		object.Raise(object.OverflowError, "math range error")
	}

	return r
}

func unary(name string, f func(float64) float64) object.Native {
	return func(th *object.Thread, args []object.Value, kw []object.Keyword) object.Value {
		object.NoKeywords(name, kw)

		x := object.ToFloat(th, validate.Fixed(args, 1, 1)[0])

		if name == "sqrt" && x < 0 || (name == "log10" || name == "log2") && x <= 0 {
			object.Raise(object.ValueError, "math domain error")
		}

		return checked(f(x), x)
	}
}

func binary(name string, f func(float64, float64) float64) object.Native {
	return func(th *object.Thread, args []object.Value, kw []object.Keyword) object.Value {
		object.NoKeywords(name, kw)

		a := validate.Fixed(args, 2, 2)
		x, y := object.ToFloat(th, a[0]), object.ToFloat(th, a[1])

		if name == "fmod" && y == 0 {
			object.Raise(object.ValueError, "math domain error")
		}

		return checked(f(x, y), x, y)
	}
}

func predicate(name string, f func(float64) bool) object.Native {
	return func(th *object.Thread, args []object.Value, kw []object.Keyword) object.Value {
		object.NoKeywords(name, kw)

		return f(object.ToFloat(th, validate.Fixed(args, 1, 1)[0]))
	}
}

// rounding functions return ints. Integers pass through unchanged.
func rounding(name string, f func(float64) float64) object.Native {
	return func(th *object.Thread, args []object.Value, kw []object.Keyword) object.Value {
		object.NoKeywords(name, kw)

		v := validate.Fixed(args, 1, 1)[0]
		if n, ok := object.Number(v); ok {
			if i, ok := n.(int64); ok {
				return i
			}
		}

		return object.FloatToInt(f(object.ToFloat(th, v)))
	}
}

func integer(th *object.Thread, v object.Value) int64 {
	i, ok := object.AsIndex(th, v)
	if !ok {
		object.Raise(object.TypeError, "'%s' object cannot be interpreted as an integer", object.TypeName(v))
	}

	return i
}

func abs(i int64) int64 {
	if i < 0 {
		return object.SubInt(0, i)
	}

	return i
}

func gcd2(a, b int64) int64 {
	a, b = abs(a), abs(b)
	for b != 0 {
		a, b = b, a%b
	}

	return a
}

func gcd(th *object.Thread, args []object.Value, kw []object.Keyword) object.Value {
	object.NoKeywords("gcd", kw)

	g := int64(0)
	for _, a := range args {
		g = gcd2(g, integer(th, a))
	}

	return g
}

func lcm(th *object.Thread, args []object.Value, kw []object.Keyword) object.Value {
	object.NoKeywords("lcm", kw)

	l := int64(1)

	for _, a := range args {
		i := integer(th, a)
		if i == 0 || l == 0 {
			l = 0

			continue
		}

		l = abs(object.MulInt(l/gcd2(l, i), i))
	}

	return l
}

func factorial(th *object.Thread, args []object.Value, kw []object.Keyword) object.Value {
	object.NoKeywords("factorial", kw)

	n := integer(th, validate.Fixed(args, 1, 1)[0])
	if n < 0 {
		object.Raise(object.ValueError, "factorial() not defined for negative values")
	}

	r := int64(1)
	for i := int64(2); i <= n; i++ {
		r = object.MulInt(r, i)
	}

	return r
}

func comb(th *object.Thread, args []object.Value, kw []object.Keyword) object.Value {
	object.NoKeywords("comb", kw)

	a := validate.Fixed(args, 2, 2)
	n, k := integer(th, a[0]), integer(th, a[1])

	if n < 0 || k < 0 {
		object.Raise(object.ValueError, "n and k must be non-negative integers")
	}

	if k > n {
		return int64(0)
	}

	if k > n-k {
		k = n - k
	}

	r := int64(1)
	for i := int64(1); i <= k; i++ {
		r = object.MulInt(r, n-k+i) / i
	}

	return r
}

func isqrt(th *object.Thread, args []object.Value, kw []object.Keyword) object.Value {
	object.NoKeywords("isqrt", kw)

	n := integer(th, validate.Fixed(args, 1, 1)[0])
	if n < 0 {
		object.Raise(object.ValueError, "isqrt() argument must be nonnegative")
	}

	r := int64(math.Sqrt(float64(n)))
	for r*r > n {
		r--
	}

	for (r+1)*(r+1) <= n {
		r++
	}

	return r
}

func logarithm(th *object.Thread, args []object.Value, kw []object.Keyword) object.Value {
	object.NoKeywords("log", kw)

	a := validate.Fixed(args, 1, 2)

	x := object.ToFloat(th, a[0])
	if x <= 0 {
		object.Raise(object.ValueError, "math domain error")
	}

	if a[1] == nil {
		return math.Log(x)
	}

	b := object.ToFloat(th, a[1])
	if b <= 0 || b == 1 {
		object.Raise(object.ValueError, "math domain error")
	}

	return math.Log(x) / math.Log(b)
}

func hypot(th *object.Thread, args []object.Value, kw []object.Keyword) object.Value {
	object.NoKeywords("hypot", kw)

	r := 0.0
	for _, a := range args {
		r = math.Hypot(r, object.ToFloat(th, a))
	}

	return r
}

// fsum adds with Neumaier compensation.
func fsum(th *object.Thread, args []object.Value, kw []object.Keyword) object.Value {
	object.NoKeywords("fsum", kw)

	sum, c := 0.0, 0.0

	object.Each(th, validate.Fixed(args, 1, 1)[0], func(v object.Value) bool {
		x := object.ToFloat(th, v)

		t := sum + x
		if math.Abs(sum) >= math.Abs(x) {
			c += (sum - t) + x
		} else {
			c += (x - t) + sum
		}

		sum = t

		return true
	})

	return sum + c
}

func prod(th *object.Thread, args []object.Value, kw []object.Keyword) object.Value {
	a := object.Args("prod", args, kw, 1, "iterable", "start")

	var r object.Value = int64(1)
	if a[1] != nil {
		r = a[1]
	}

	object.Each(th, a[0], func(v object.Value) bool {
		r = object.BinaryOp(th, "*", r, v)

		return true
	})

	return r
}

func isclose(th *object.Thread, args []object.Value, kw []object.Keyword) object.Value {
	a := object.Args("isclose", args, kw, 2, "a", "b", "rel_tol", "abs_tol")

	x, y := object.ToFloat(th, a[0]), object.ToFloat(th, a[1])

	rel, tol := 1e-09, 0.0
	if a[2] != nil {
		rel = object.ToFloat(th, a[2])
	}

	if a[3] != nil {
		tol = object.ToFloat(th, a[3])
	}

	if rel < 0 || tol < 0 {
		object.Raise(object.ValueError, "tolerances must be non-negative")
	}

	if x == y {
		return true
	}

	if math.IsInf(x, 0) || math.IsInf(y, 0) {
		return false
	}

	d := math.Abs(x - y)

	return d <= math.Abs(rel*y) || d <= math.Abs(rel*x) || d <= tol
}

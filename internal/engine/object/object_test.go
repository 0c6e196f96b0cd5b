// Released under an MIT license. See LICENSE.

package object

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseNumbers(t *testing.T) {
	for _, tc := range []struct {
		s    string
		base int
		want int64
		ok   bool
	}{
		{"42", 10, 42, true},
		{"-0x1f", 0, -31, true},
		{"0b101", 0, 5, true},
		{"1_000", 10, 1000, true},
		{"1__0", 10, 0, false},
		{"010", 0, 0, false},
		{"z", 36, 35, true},
		{"", 10, 0, false},
	} {
		got, ok := ParseInt(tc.s, tc.base)
		require.Equal(t, tc.ok, ok, "%q base %d", tc.s, tc.base)

		if ok {
			require.Equal(t, tc.want, got, "%q base %d", tc.s, tc.base)
		}
	}

	f, ok := ParseFloat("-inf")
	require.True(t, ok)
	require.True(t, math.IsInf(f, -1))

	f, ok = ParseFloat(" 1e3 ")
	require.True(t, ok)
	require.InDelta(t, 1000.0, f, 0)

	th := NewThread()

	e := raises(t, ValueError, func() { ToInt(th, "12a", nil) })
	require.Equal(t, "invalid literal for int() with base 10: '12a'", e.Text(th))

	require.Equal(t, int64(3), ToInt(th, 3.9, nil))
	require.Equal(t, int64(255), ToInt(th, "ff", int64(16)))
	raises(t, TypeError, func() { ToInt(th, int64(1), int64(16)) })
}

func TestRounding(t *testing.T) {
	require.Equal(t, int64(120), RoundInt(125, -1))
	require.Equal(t, int64(140), RoundInt(135, -1))
	require.InDelta(t, 2.67, RoundFloat(2.675, 2), 1e-12)
	require.InDelta(t, 0.0, RoundFloat(0.5, 0), 0)
	require.InDelta(t, 2.0, RoundFloat(1.5, 0), 0)
}

func TestIntBytes(t *testing.T) {
	th := NewThread()

	b := callMethod(th, int64(1024), "to_bytes", int64(2), "big")
	require.Equal(t, Bytes("\x04\x00"), b)

	require.Equal(t, int64(1024), callMethod(th, IntType, "from_bytes", b, "big"))
	require.Equal(t, int64(-1), callMethod(th, IntType, "from_bytes", Bytes("\xff"), "little", true))
	raises(t, OverflowError, func() { callMethod(th, int64(256), "to_bytes", int64(1), "big") })
}

func TestIntegersAreSixtyFourBit(t *testing.T) {
	require.Equal(t, int64(math.MaxInt64), AddInt(math.MaxInt64-1, 1))
	require.Equal(t, int64(1)<<62, PowInt(2, 62))
	require.Equal(t, int64(math.MinInt64), MulInt(-1<<62, 2))

	raises(t, OverflowError, func() { AddInt(math.MaxInt64, 1) })
	raises(t, OverflowError, func() { SubInt(math.MinInt64, 1) })
	raises(t, OverflowError, func() { MulInt(1<<32, 1<<32) })
	raises(t, OverflowError, func() { MulInt(-1, math.MinInt64) })
	raises(t, OverflowError, func() { FloorDivInt(math.MinInt64, -1) })
	raises(t, OverflowError, func() { PowInt(2, 64) })
}

func TestStringMethods(t *testing.T) {
	th := NewThread()

	strs := func(vs ...string) []Value {
		r := make([]Value, len(vs))
		for i, v := range vs {
			r[i] = v
		}

		return r
	}

	list := func(v Value) []Value {
		return v.(*List).Items //nolint:forcetypeassert
	}

	require.Equal(t, strs("a", "b", "", "c"), list(callMethod(th, "a,b,,c", "split", ",")))
	require.Equal(t, strs("a", "b"), list(callMethod(th, " a  b ", "split")))
	require.Equal(t, strs("a", "b c"), list(callMethod(th, "a b c", "split", None, int64(1))))
	require.Equal(t, strs("a b", "c"), list(callMethod(th, "a b c", "rsplit", None, int64(1))))
	require.Equal(t, strs("x", "y"), list(callMethod(th, "x\ny\n", "splitlines")))

	require.Equal(t, "**hello**", callMethod(th, "hello", "center", int64(9), "*"))
	require.Equal(t, "-0042", callMethod(th, "-42", "zfill", int64(5)))
	require.Equal(t, "Hello World", callMethod(th, "hello world", "title"))
	require.Equal(t, "a-b-c", callMethod(th, "-", "join", Tuple{"a", "b", "c"}))
	require.Equal(t, int64(2), callMethod(th, "héllo", "find", "l"))
	require.Equal(t, int64(-1), callMethod(th, "abc", "find", "z"))
	require.Equal(t, Tuple{"a", "=", "b=c"}, callMethod(th, "a=b=c", "partition", "="))
	require.Equal(t, true, callMethod(th, "abc", "startswith", Tuple{"x", "ab"}))
	require.Equal(t, "x=1, y=2", callMethod(th, "x={}, y={}", "format", int64(1), int64(2)))
	require.Equal(t, Bytes("h\xc3\xa9"), callMethod(th, "hé", "encode"))

	raises(t, ValueError, func() { callMethod(th, "abc", "index", "z") })
	raises(t, TypeError, func() { callMethod(th, "-", "join", Tuple{"a", int64(1)}) })

	require.Equal(t, "é", GetItem(th, "héllo", int64(1)))
	require.Equal(t, "oll", GetItem(th, "héllo", &Slice{Start: None, Stop: int64(1), Step: int64(-1)}))
}

func TestBuiltinSubclass(t *testing.T) {
	th := NewThread()

	myInt := NewClass(th, TypeType, "MyInt", []*Class{IntType}, NewDict(), nil)
	v := Call(th, myInt, []Value{int64(5)}, nil)

	require.Equal(t, myInt, TypeOf(v))
	require.Equal(t, int64(7), BinaryOp(th, "+", v, int64(2)))
	require.Equal(t, int64(7), BinaryOp(th, "+", int64(2), v))
	require.Equal(t, true, RichCompare(th, "<", v, int64(6)))
	require.Equal(t, "5", Repr(th, v))
	require.Equal(t, int64(5), Hash(th, v))

	myList := NewClass(th, TypeType, "MyList", []*Class{ListType}, NewDict(), nil)
	l := Call(th, myList, []Value{Tuple{int64(1), int64(2)}}, nil)

	require.Equal(t, 2, Len(th, l))
	require.Equal(t, "[1, 2]", Repr(th, l))
	require.True(t, Contains(th, l, int64(2)))

	callMethod(th, l, "append", int64(3))
	require.Equal(t, int64(3), GetItem(th, l, int64(-1)))

	raises(t, TypeError, func() { Hash(th, l) })
	raises(t, TypeError, func() { NewClass(th, TypeType, "B", []*Class{BoolType}, NewDict(), nil) })
	raises(t, TypeError, func() {
		NewClass(th, TypeType, "Bad", []*Class{myInt, myList}, NewDict(), nil)
	})
}

func TestGenerator(t *testing.T) {
	th := NewThread()

	g := NewGenerator(Plain, "gen", "gen", nil, func(th *Thread, g *Generator) Value {
		got := g.Yield(th, int64(1))
		g.Yield(th, got)

		return "done"
	})

	v, ok := g.Next(th)
	require.True(t, ok)
	require.Equal(t, int64(1), v)

	v, ok = g.Send(th, "x")
	require.True(t, ok)
	require.Equal(t, "x", v)

	v, ok = g.Send(th, None)
	require.False(t, ok)
	require.Equal(t, "done", v)
	require.True(t, g.Done())

	_, ok = g.Next(th)
	require.False(t, ok)
}

func TestGeneratorIteration(t *testing.T) {
	th := NewThread()

	counter := func(n int64) *Generator {
		return NewGenerator(Plain, "count", "count", nil, func(th *Thread, g *Generator) Value {
			for i := range n {
				g.Yield(th, i)
			}

			return None
		})
	}

	require.Equal(t, ints(0, 1, 2), ToSlice(th, counter(3)))

	outer := NewGenerator(Plain, "outer", "outer", nil, func(th *Thread, g *Generator) Value {
		g.Yield(th, int64(-1))

		return g.YieldFrom(th, counter(2))
	})
	require.Equal(t, ints(-1, 0, 1), ToSlice(th, outer))
}

func TestGeneratorClose(t *testing.T) {
	th := NewThread()

	cleaned := false
	g := NewGenerator(Plain, "gen", "gen", nil, func(th *Thread, g *Generator) Value {
		defer func() {
			cleaned = true
		}()

		for {
			g.Yield(th, None)
		}
	})

	_, ok := g.Next(th)
	require.True(t, ok)

	g.Close(th)
	require.True(t, cleaned)
	require.True(t, g.Done())

	stubborn := NewGenerator(Plain, "stubborn", "stubborn", nil, func(th *Thread, g *Generator) Value {
		for {
			func() {
				defer func() {
					if r := recover(); r != nil {
						if _, ok := r.(*Exception); !ok {
							panic(r)
						}
					}
				}()

				g.Yield(th, None)
			}()
		}
	})

	_, ok = stubborn.Next(th)
	require.True(t, ok)

	e := raises(t, RuntimeError, func() { stubborn.Close(th) })
	require.Equal(t, "generator ignored GeneratorExit", e.Text(th))

	th.Close()
}

func TestGeneratorStates(t *testing.T) {
	th := NewThread()

	body := func(th *Thread, g *Generator) Value {
		g.Yield(th, int64(1))

		return None
	}

	g := NewGenerator(Plain, "gen", "gen", nil, body)
	require.Equal(t, created, g.state)

	_, ok := g.Next(th)
	require.True(t, ok)
	require.Equal(t, suspended, g.state)

	v, _ := generatorAttr(g, "gi_suspended")
	require.Equal(t, true, v)

	g.Close(th)
	require.Equal(t, closed, g.state)
	require.True(t, g.Done())

	v, _ = generatorAttr(g, "gi_frame")
	require.Equal(t, None, v)

	v, _ = generatorAttr(g, "gi_suspended")
	require.Equal(t, false, v)

	g.Close(th)
	require.Equal(t, closed, g.state)

	_, ok = g.Next(th)
	require.False(t, ok)

	unstarted := NewGenerator(Plain, "gen", "gen", nil, body)
	unstarted.Close(th)
	require.Equal(t, closed, unstarted.state)

	finished := NewGenerator(Plain, "gen", "gen", nil, body)
	require.Equal(t, ints(1), ToSlice(th, finished))
	require.Equal(t, completed, finished.state)

	finished.Close(th)
	require.Equal(t, closed, finished.state)

	th.Close()
}

func TestGeneratorStopIteration(t *testing.T) {
	th := NewThread()

	g := NewGenerator(Plain, "gen", "gen", nil, func(th *Thread, g *Generator) Value {
		panic(NewException(StopIteration))
	})

	e := raises(t, RuntimeError, func() { g.Next(th) })
	require.Equal(t, "generator raised StopIteration", e.Text(th))

	fresh := NewGenerator(Plain, "gen", "gen", nil, func(th *Thread, g *Generator) Value {
		return None
	})
	raises(t, TypeError, func() { fresh.Send(th, int64(1)) })
}

func TestCoroutineDrive(t *testing.T) {
	th := NewThread()

	inner := NewGenerator(Coroutine, "inner", "inner", nil, func(th *Thread, g *Generator) Value {
		return int64(41)
	})

	outer := NewGenerator(Coroutine, "outer", "outer", nil, func(th *Thread, g *Generator) Value {
		v := g.Await(th, inner)

		return BinaryOp(th, "+", v, int64(1))
	})

	require.Equal(t, int64(42), Drive(th, outer))

	e := raises(t, RuntimeError, func() { Drive(th, outer) })
	require.Equal(t, "cannot reuse already awaited coroutine", e.Text(th))
}

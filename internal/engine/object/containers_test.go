// Released under an MIT license. See LICENSE.

package object

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func callMethod(th *Thread, recv Value, name string, args ...Value) Value {
	return Call(th, GetAttr(th, recv, name), args, nil)
}

func ints(vs ...int64) []Value {
	r := make([]Value, len(vs))
	for i, v := range vs {
		r[i] = v
	}

	return r
}

func TestListMethods(t *testing.T) {
	th := NewThread()
	l := NewList(ints(3, 1, 2)...)

	callMethod(th, l, "append", int64(5))
	callMethod(th, l, "insert", int64(-1), int64(9))
	require.Equal(t, ints(3, 1, 2, 9, 5), l.Items)

	require.Equal(t, int64(5), callMethod(th, l, "pop"))
	require.Equal(t, int64(3), callMethod(th, l, "pop", int64(0)))
	require.Equal(t, int64(1), callMethod(th, l, "index", int64(2)))
	require.Equal(t, int64(1), callMethod(th, l, "count", int64(9)))

	callMethod(th, l, "remove", int64(9))
	require.Equal(t, ints(1, 2), l.Items)

	raises(t, ValueError, func() { callMethod(th, l, "remove", int64(7)) })
	raises(t, IndexError, func() { callMethod(th, NewList(), "pop") })

	callMethod(th, l, "extend", Tuple{int64(0), int64(4)})
	callMethod(th, l, "sort")
	require.Equal(t, ints(0, 1, 2, 4), l.Items)

	Call(th, GetAttr(th, l, "sort"), nil, []Keyword{{Name: "reverse", Value: true}})
	require.Equal(t, ints(4, 2, 1, 0), l.Items)

	callMethod(th, l, "reverse")
	require.Equal(t, ints(0, 1, 2, 4), l.Items)

	c := callMethod(th, l, "copy").(*List) //nolint:forcetypeassert
	callMethod(th, l, "clear")
	require.Empty(t, l.Items)
	require.Len(t, c.Items, 4)
}

func TestSortIsStable(t *testing.T) {
	th := NewThread()

	items := []Value{Tuple{int64(1), "b"}, Tuple{int64(0), "x"}, Tuple{int64(1), "a"}}
	key := NewBuiltin("first", func(th *Thread, args []Value, kw []Keyword) Value {
		return args[0].(Tuple)[0] //nolint:forcetypeassert
	})

	Sort(th, items, key, false)
	require.Equal(t, []Value{Tuple{int64(0), "x"}, Tuple{int64(1), "b"}, Tuple{int64(1), "a"}}, items)

	Sort(th, items, key, true)
	require.Equal(t, []Value{Tuple{int64(1), "b"}, Tuple{int64(1), "a"}, Tuple{int64(0), "x"}}, items)

	raises(t, TypeError, func() { Sort(th, []Value{int64(1), "a"}, nil, false) })
}

func TestDictMethods(t *testing.T) {
	th := NewThread()
	d := NewDict()

	require.Equal(t, int64(1), callMethod(th, d, "setdefault", "a", int64(1)))
	require.Equal(t, int64(1), callMethod(th, d, "setdefault", "a", int64(2)))
	require.Equal(t, None, callMethod(th, d, "get", "b"))
	require.Equal(t, int64(0), callMethod(th, d, "get", "b", int64(0)))

	callMethod(th, d, "update", Tuple{Tuple{"b", int64(2)}, Tuple{"c", int64(3)}})
	require.Equal(t, []Value{"a", "b", "c"}, d.Keys())

	require.Equal(t, Tuple{"c", int64(3)}, callMethod(th, d, "popitem"))
	require.Equal(t, int64(2), callMethod(th, d, "pop", "b"))
	require.Equal(t, "gone", callMethod(th, d, "pop", "b", "gone"))
	raises(t, KeyError, func() { callMethod(th, d, "pop", "b") })

	require.Equal(t, []Value{"a"}, ToSlice(th, callMethod(th, d, "keys")))
	require.Equal(t, []Value{int64(1)}, ToSlice(th, callMethod(th, d, "values")))
	require.Equal(t, []Value{Tuple{"a", int64(1)}}, ToSlice(th, callMethod(th, d, "items")))

	f := callMethod(th, DictType, "fromkeys", Tuple{"x", "y"}, int64(0)).(*Dict) //nolint:forcetypeassert
	require.Equal(t, 2, f.Len())

	callMethod(th, d, "clear")
	raises(t, KeyError, func() { callMethod(th, d, "popitem") })
}

func TestDictChangedDuringIteration(t *testing.T) {
	th := NewThread()
	d := NewDict()
	d.SetStr("a", int64(1))

	e := raises(t, RuntimeError, func() {
		Each(th, d, func(Value) bool {
			d.SetStr("b", int64(2))

			return true
		})
	})
	require.Equal(t, "dictionary changed size during iteration", e.Text(th))
}

func TestSetMethods(t *testing.T) {
	th := NewThread()
	s := SetOf(th, false, ints(1, 2, 3)...)

	u := callMethod(th, s, "union", NewList(ints(3, 4)...)).(*Set) //nolint:forcetypeassert
	require.Equal(t, 4, u.Len())
	require.False(t, u.Frozen)

	i := callMethod(th, s, "intersection", Tuple{int64(2), int64(3), int64(9)}).(*Set) //nolint:forcetypeassert
	require.Equal(t, ints(2, 3), i.Items())

	require.Equal(t, true, callMethod(th, i, "issubset", s))
	require.Equal(t, true, callMethod(th, s, "issuperset", i))
	require.Equal(t, true, callMethod(th, s, "isdisjoint", Tuple{int64(7)}))

	callMethod(th, s, "difference_update", Tuple{int64(1)})
	require.Equal(t, ints(2, 3), s.Items())

	callMethod(th, s, "discard", int64(42))
	raises(t, KeyError, func() { callMethod(th, s, "remove", int64(42)) })

	f := Call(th, FrozenSetType, []Value{Tuple{int64(1)}}, nil).(*Set) //nolint:forcetypeassert
	require.True(t, f.Frozen)
	raises(t, AttributeError, func() { GetAttr(th, f, "add") })
}

func TestRangeAndSlice(t *testing.T) {
	th := NewThread()

	r := Call(th, RangeType, ints(0, 10, 3), nil)
	require.Equal(t, ints(0, 3, 6, 9), ToSlice(th, r))
	require.Equal(t, int64(2), callMethod(th, r, "index", int64(6)))
	require.Equal(t, int64(0), callMethod(th, r, "count", int64(7)))
	require.Equal(t, ints(9, 6, 3, 0), ToSlice(th, Reversed(th, r)))
	require.Equal(t, ints(3, 6), ToSlice(th, GetItem(th, r, &Slice{Start: int64(1), Stop: int64(3), Step: None})))

	e := raises(t, ValueError, func() { Call(th, RangeType, ints(0, 1, 0), nil) })
	require.Equal(t, "range() arg 3 must not be zero", e.Text(th))

	s := Call(th, SliceType, []Value{None, None, int64(-1)}, nil)
	require.Equal(t, Tuple{int64(4), int64(-1), int64(-1)}, callMethod(th, s, "indices", int64(5)))

	require.Equal(t, ints(3, 2, 1), ToSlice(th, Reversed(th, NewList(ints(1, 2, 3)...))))
	raises(t, TypeError, func() { Reversed(th, SetOf(th, false)) })
}

func TestTupleMethods(t *testing.T) {
	th := NewThread()
	tup := Tuple(ints(1, 2, 1))

	require.Equal(t, int64(2), callMethod(th, tup, "count", int64(1)))
	require.Equal(t, int64(1), callMethod(th, tup, "index", int64(2)))
	raises(t, ValueError, func() { callMethod(th, tup, "index", int64(5)) })
	require.Equal(t, Tuple{"a", "b"}, Call(th, TupleType, []Value{"ab"}, nil))
}

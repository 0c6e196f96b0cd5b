// Released under an MIT license. See LICENSE.

package builtins

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/michaelmacinnis/enclave/internal/engine/object"
)

func setup(t *testing.T, names ...string) (*object.Thread, *object.Dict, *bytes.Buffer) {
	t.Helper()

	if len(names) == 0 {
		names = Default
	}

	d, err := New(names)
	require.NoError(t, err)

	out := &bytes.Buffer{}

	th := object.NewThread()
	th.Stdout = out
	th.Builtins = d

	return th, d, out
}

func call(t *testing.T, th *object.Thread, d *object.Dict, name string, args []object.Value, kw ...object.Keyword) object.Value {
	t.Helper()

	f, ok := d.GetStr(name)
	require.True(t, ok, name)

	return object.Call(th, f, args, kw)
}

func raises(t *testing.T, c *object.Class, f func()) *object.Exception {
	t.Helper()

	var e *object.Exception

	func() {
		defer func() {
			r := recover()
			require.NotNil(t, r)

			var ok bool

			e, ok = r.(*object.Exception)
			require.True(t, ok, "%v", r)
		}()

		f()
	}()

	require.True(t, e.Matches(c), "got %s", e.Class.Name)

	return e
}

func TestNewRejectsUnknownNames(t *testing.T) {
	_, err := New([]string{"print", "open"})
	require.Error(t, err)
	require.Equal(t, "unknown builtin: open", err.Error())
}

func TestEmptySetStillHasExceptions(t *testing.T) {
	d, err := New(nil)
	require.NoError(t, err)

	_, ok := d.GetStr("print")
	require.False(t, ok)

	v, ok := d.GetStr("AttributeBlocked")
	require.True(t, ok)
	require.Same(t, object.AttributeBlocked, v)
}

func TestEveryDefaultExists(t *testing.T) {
	names := map[string]bool{}
	for _, n := range Names() {
		names[n] = true
	}

	for _, n := range Default {
		require.True(t, names[n], n)
	}
}

func TestPrint(t *testing.T) {
	th, d, out := setup(t)

	call(t, th, d, "print", []object.Value{"a", int64(1), object.None})
	call(t, th, d, "print", []object.Value{"x", "y"},
		object.Keyword{Name: "sep", Value: "-"},
		object.Keyword{Name: "end", Value: "!\n"})

	require.Equal(t, "a 1 None\nx-y!\n", out.String())
}

func TestNumeric(t *testing.T) {
	th, d, _ := setup(t)

	require.Equal(t, int64(5), call(t, th, d, "abs", []object.Value{int64(-5)}))
	require.Equal(t, 2.5, call(t, th, d, "abs", []object.Value{-2.5}))
	require.Equal(t, "0b101", call(t, th, d, "bin", []object.Value{int64(5)}))
	require.Equal(t, "-0x1f", call(t, th, d, "hex", []object.Value{int64(-31)}))
	require.Equal(t, "0o17", call(t, th, d, "oct", []object.Value{int64(15)}))
	require.Equal(t, object.Tuple{int64(-4), int64(1)}, call(t, th, d, "divmod", []object.Value{int64(-7), int64(2)}))
	require.Equal(t, int64(4), call(t, th, d, "pow", []object.Value{int64(2), int64(10), int64(10)}))
	require.Equal(t, int64(2), call(t, th, d, "round", []object.Value{2.5}))
	require.Equal(t, int64(4), call(t, th, d, "round", []object.Value{3.5}))
	require.Equal(t, int64(6), call(t, th, d, "sum", []object.Value{object.Tuple{int64(1), int64(2), int64(3)}}))

	raises(t, object.TypeError, func() {
		call(t, th, d, "sum", []object.Value{object.Tuple{}, ""})
	})
}

func TestMinMax(t *testing.T) {
	th, d, _ := setup(t)

	require.Equal(t, int64(3), call(t, th, d, "max", []object.Value{int64(1), int64(3), int64(2)}))
	require.Equal(t, int64(1), call(t, th, d, "min", []object.Value{object.NewList(int64(3), int64(1))}))
	require.Equal(t, "dflt", call(t, th, d, "max", []object.Value{object.Tuple{}}, object.Keyword{Name: "default", Value: "dflt"}))

	raises(t, object.ValueError, func() {
		call(t, th, d, "min", []object.Value{object.Tuple{}})
	})
}

func TestIterators(t *testing.T) {
	th, d, _ := setup(t)

	items := object.NewList("a", "b")

	e := call(t, th, d, "enumerate", []object.Value{items}, object.Keyword{Name: "start", Value: int64(1)})
	require.Equal(t, []object.Value{object.Tuple{int64(1), "a"}, object.Tuple{int64(2), "b"}}, object.ToSlice(th, e))

	z := call(t, th, d, "zip", []object.Value{items, object.Tuple{int64(1), int64(2), int64(3)}})
	require.Len(t, object.ToSlice(th, z), 2)

	raises(t, object.ValueError, func() {
		z := call(t, th, d, "zip", []object.Value{items, object.Tuple{int64(1)}}, object.Keyword{Name: "strict", Value: true})
		object.ToSlice(th, z)
	})

	it := call(t, th, d, "iter", []object.Value{items})
	require.Equal(t, "a", call(t, th, d, "next", []object.Value{it}))
	require.Equal(t, "b", call(t, th, d, "next", []object.Value{it}))
	require.Equal(t, "done", call(t, th, d, "next", []object.Value{it, "done"}))

	raises(t, object.StopIteration, func() {
		call(t, th, d, "next", []object.Value{it})
	})
}

func TestSorted(t *testing.T) {
	th, d, _ := setup(t)

	l := object.NewList(int64(3), int64(1), int64(2))
	s := call(t, th, d, "sorted", []object.Value{l}, object.Keyword{Name: "reverse", Value: true})

	require.Equal(t, []object.Value{int64(3), int64(2), int64(1)}, s.(*object.List).Items)
	require.Equal(t, []object.Value{int64(3), int64(1), int64(2)}, l.Items)
}

func TestGuardedAttributeBuiltins(t *testing.T) {
	th, d, _ := setup(t)

	f, _ := d.GetStr("len")

	for _, form := range []func() object.Value{
		func() object.Value {
			return call(t, th, d, "getattr", []object.Value{f, "__self__"})
		},
		func() object.Value {
			return call(t, th, d, "getattr", []object.Value{f}, object.Keyword{Name: "name", Value: "__self__"})
		},
		func() object.Value {
			return call(t, th, d, "getattr", []object.Value{f, "__self__", "fallback"})
		},
		func() object.Value {
			return call(t, th, d, "hasattr", []object.Value{f, "__self__"})
		},
	} {
		e := raises(t, object.AttributeBlocked, func() { form() })

		name, _ := e.Dict.GetStr("name")
		require.Equal(t, "__self__", name)
	}

	require.Equal(t, "fallback", call(t, th, d, "getattr", []object.Value{f, "missing", "fallback"}))
	require.Equal(t, false, call(t, th, d, "hasattr", []object.Value{f, "missing"}))
}

func TestDirIsFiltered(t *testing.T) {
	th, d, _ := setup(t)

	m := object.NewModule("m")
	m.Dict.SetStr("visible", int64(1))

	names := object.ToSlice(th, call(t, th, d, "dir", []object.Value{m}))
	require.Contains(t, names, "visible")
	require.NotContains(t, names, "__dict__")
	require.NotContains(t, names, "__loader__")
}

func TestImportWithoutImporter(t *testing.T) {
	th, d, _ := setup(t)

	raises(t, object.ImportBlocked, func() {
		call(t, th, d, "__import__", []object.Value{"os"})
	})
}

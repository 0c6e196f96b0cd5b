// Released under an MIT license. See LICENSE.

package object

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// raises runs f and returns the guest exception it raised.
func raises(t *testing.T, c *Class, f func()) (e *Exception) {
	t.Helper()

	defer func() {
		r := recover()
		require.NotNil(t, r, "expected %s", c.Name)

		var ok bool

		e, ok = r.(*Exception)
		require.True(t, ok, "unexpected panic %v", r)
		require.True(t, e.Matches(c), "got %s, expected %s", e.Class.Name, c.Name)
	}()

	f()

	return nil
}

func TestFormatSpec(t *testing.T) {
	th := NewThread()

	for _, tc := range []struct {
		v    Value
		spec string
		want string
	}{
		{int64(42), "05d", "00042"},
		{int64(42), "x", "2a"},
		{int64(42), "#x", "0x2a"},
		{int64(255), "X", "FF"},
		{int64(5), "b", "101"},
		{int64(1234567), ",", "1,234,567"},
		{int64(-1234567), "_d", "-1_234_567"},
		{int64(42), "+d", "+42"},
		{int64(42), "*^7", "**42***"},
		{int64(65), "c", "A"},
		{true, "", "True"},
		{true, "d", "1"},
		{3.14159, ".2f", "3.14"},
		{12345.678, "e", "1.234568e+04"},
		{0.25, ".1%", "25.0%"},
		{1.0, ".3", "1.0"},
		{1e-5, "g", "1e-05"},
		{-1.5, "10.2f", "     -1.50"},
		{-1.5, "010.2f", "-000001.50"},
		{1234567.891, ",.2f", "1,234,567.89"},
		{2.5, "", "2.5"},
		{int64(3), ".1f", "3.0"},
		{"ab", "^6", "  ab  "},
		{"ab", "*<5", "ab***"},
		{"abcdef", ".3", "abc"},
		{"ab", ">4", "  ab"},
	} {
		require.Equal(t, tc.want, FormatSpec(th, tc.v, tc.spec), "format(%v, %q)", tc.v, tc.spec)
	}

	e := raises(t, ValueError, func() { FormatSpec(th, "abc", "d") })
	require.Equal(t, "Unknown format code 'd' for object of type 'str'", e.Text(th))

	raises(t, ValueError, func() { FormatSpec(th, int64(1), ".2d") })
	raises(t, ValueError, func() { FormatSpec(th, "x", "+") })
	raises(t, TypeError, func() { FormatSpec(th, NewList(), "5") })
}

func TestFormatString(t *testing.T) {
	th := NewThread()

	require.Equal(t, "1 + 2 = 3", FormatString(th, "{} + {} = {}", []Value{int64(1), int64(2), int64(3)}, nil))
	require.Equal(t, "aba", FormatString(th, "{0}{1}{0}", []Value{"a", "b"}, nil))
	require.Equal(t, "{}", FormatString(th, "{{}}", nil, nil))
	require.Equal(t, "2", FormatString(th, "{0[1]}", []Value{NewList(int64(1), int64(2))}, nil))
	require.Equal(t, "a  ", FormatString(th, "{:{}}", []Value{"a", int64(3)}, nil))

	d := NewDict()
	d.SetStr("name", "x")
	require.Equal(t, "   'x'", FormatString(th, "{name!r:>6}", nil, d))

	raises(t, ValueError, func() { FormatString(th, "{}{0}", []Value{"a"}, nil) })
	raises(t, ValueError, func() { FormatString(th, "}", nil, nil) })
	raises(t, IndexError, func() { FormatString(th, "{1}", []Value{"a"}, nil) })
	raises(t, KeyError, func() { FormatString(th, "{missing}", nil, NewDict()) })

	e := raises(t, AttributeBlocked, func() {
		FormatString(th, "{0.__dict__}", []Value{NewModule("m")}, nil)
	})
	require.Equal(t, "attribute access to '__dict__' is blocked in this environment", e.Text(th))
}

func TestPercentFormat(t *testing.T) {
	th := NewThread()

	require.Equal(t, "3 items", PercentFormat(th, "%d items", int64(3)))
	require.Equal(t, " 3.14|ab  |", PercentFormat(th, "%5.2f|%-4s|", Tuple{3.14159, "ab"}))
	require.Equal(t, "ff 0o10 005", PercentFormat(th, "%x %#o %.3d", Tuple{int64(255), int64(8), int64(5)}))
	require.Equal(t, "100%", PercentFormat(th, "%d%%", int64(100)))
	require.Equal(t, "A 'a'", PercentFormat(th, "%c %r", Tuple{int64(65), "a"}))

	d := NewDict()
	d.SetStr("a", "x")
	d.SetStr("b", int64(7))
	require.Equal(t, "x-007", PercentFormat(th, "%(a)s-%(b)03d", d))

	raises(t, TypeError, func() { PercentFormat(th, "%s %s", Tuple{"a"}) })
	raises(t, TypeError, func() { PercentFormat(th, "%d", Tuple{int64(1), int64(2)}) })
	raises(t, TypeError, func() { PercentFormat(th, "%d", "x") })
	raises(t, ValueError, func() { PercentFormat(th, "%y", int64(1)) })
}

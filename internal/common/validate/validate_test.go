// Released under an MIT license. See LICENSE.

package validate

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func failure(t *testing.T, f func()) string {
	t.Helper()

	var msg string

	func() {
		defer func() {
			r := recover()
			e, ok := r.(*Error)
			require.True(t, ok, "expected *Error, got %v", r)
			msg = e.Msg
		}()

		f()
	}()

	return msg
}

func TestFixed(t *testing.T) {
	require.Equal(t, []any{1, nil}, Fixed([]any{1}, 1, 2))
	require.Equal(t, []any{1, 2}, Fixed([]any{1, 2}, 2, 2))

	require.Equal(t, "expected 1 argument, got 0", failure(t, func() {
		Fixed(nil, 1, 1)
	}))
	require.Equal(t, "expected 2 arguments, got 3", failure(t, func() {
		Fixed([]any{1, 2, 3}, 2, 2)
	}))
	require.Equal(t, "expected at most 2 arguments, got 3", failure(t, func() {
		Fixed([]any{1, 2, 3}, 1, 2)
	}))
}

func TestVariadic(t *testing.T) {
	expected, rest := Variadic([]any{1, 2, 3}, 1, 1)
	require.Equal(t, []any{1}, expected)
	require.Equal(t, []any{2, 3}, rest)

	require.Equal(t, "expected at least 2 arguments, got 1", failure(t, func() {
		Variadic([]any{1}, 2, 3)
	}))
}

func TestCount(t *testing.T) {
	require.Equal(t, "1 argument", Count(1, "argument", "s"))
	require.Equal(t, "0 arguments", Count(0, "argument", "s"))
}

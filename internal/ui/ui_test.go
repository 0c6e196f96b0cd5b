// Released under an MIT license. See LICENSE.

package ui

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestComplete(t *testing.T) {
	names := []string{"print", "printer", "len", "_private", "pr2"}

	for _, tc := range []struct {
		line, head, tail string
		pos              int
		cs               []string
	}{
		{"pri", "", "", 3, []string{"print", "printer"}},
		{"x = len(pr", "x = len(", "", 10, []string{"pr2", "print", "printer"}},
		{"pr)", "", ")", 2, []string{"pr2", "print", "printer"}},
		{"_p", "", "", 2, []string{"_private"}},
		{"x = ", "x = ", "", 4, nil},
		{"zzz", "", "", 3, nil},
	} {
		head, cs, tail := complete(names, tc.line, tc.pos)

		require.Equal(t, tc.head, head, tc.line)
		require.Equal(t, tc.cs, cs, tc.line)
		require.Equal(t, tc.tail, tail, tc.line)
	}
}

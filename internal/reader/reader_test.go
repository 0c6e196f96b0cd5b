// Released under an MIT license. See LICENSE.

package reader

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/michaelmacinnis/enclave/internal/reader/parser"
	"github.com/michaelmacinnis/enclave/internal/reader/symtab"
)

func TestParseIsCached(t *testing.T) {
	a, err := Parse("cached", "x = 1\n")
	require.NoError(t, err)

	b, err := Parse("cached", "x = 1\n")
	require.NoError(t, err)
	require.Same(t, a, b)

	c, err := Parse("other", "x = 1\n")
	require.NoError(t, err)
	require.NotSame(t, a, c)
}

func TestParseErrors(t *testing.T) {
	_, err := Parse("errors", "x = = 1\n")
	require.IsType(t, &parser.Error{}, err)

	_, err = Parse("errors", "def f():\n    nonlocal q\n")
	require.IsType(t, &symtab.Error{}, err)
}

func TestScanSimpleStatement(t *testing.T) {
	r := New("scan")

	m, err := r.Scan("x = 1")
	require.NoError(t, err)
	require.NotNil(t, m)
	require.False(t, r.Pending())
	require.Equal(t, "x = 1\n", r.Text())
}

func TestScanBlockNeedsBlankLine(t *testing.T) {
	r := New("scan")

	for _, line := range []string{"def f():", "    return 1"} {
		m, err := r.Scan(line)
		require.NoError(t, err)
		require.Nil(t, m)
		require.True(t, r.Pending())
	}

	m, err := r.Scan("")
	require.NoError(t, err)
	require.NotNil(t, m)
	require.Len(t, m.Body, 1)
	require.False(t, r.Pending())
}

func TestScanBrackets(t *testing.T) {
	r := New("scan")

	m, err := r.Scan("xs = [1,")
	require.NoError(t, err)
	require.Nil(t, m)

	m, err = r.Scan("2]")
	require.NoError(t, err)
	require.NotNil(t, m)
	require.Equal(t, "xs = [1,\n2]\n", r.Text())
}

func TestScanErrorResets(t *testing.T) {
	r := New("scan")

	_, err := r.Scan("x = )")
	require.Error(t, err)
	require.False(t, r.Pending())
}

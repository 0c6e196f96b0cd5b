// Released under an MIT license. See LICENSE.

package cache

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDigestSeparatesParts(t *testing.T) {
	require.NotEqual(t, Digest("ab", "c"), Digest("a", "bc"))
	require.Equal(t, Digest("a", "bc"), Digest("a", "bc"))
}

func TestStoreAndLookup(t *testing.T) {
	Purge()

	k := Digest("key")

	_, ok := Lookup(k)
	require.False(t, ok)

	Store(k, 42)

	v, ok := Lookup(k)
	require.True(t, ok)
	require.Equal(t, 42, v)
}

func TestEviction(t *testing.T) {
	Purge()

	first := Digest("0")

	for i := 0; i <= Capacity; i++ {
		Store(Digest(strconv.Itoa(i)), i)
	}

	_, ok := Lookup(first)
	require.False(t, ok)

	v, ok := Lookup(Digest(strconv.Itoa(Capacity)))
	require.True(t, ok)
	require.Equal(t, Capacity, v)
}

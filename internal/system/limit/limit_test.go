// Released under an MIT license. See LICENSE.

//go:build linux || darwin

package limit

import (
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func TestCPU(t *testing.T) {
	var before unix.Rlimit

	require.NoError(t, unix.Getrlimit(unix.RLIMIT_CPU, &before))

	// Far above what the test binary uses.
	require.NoError(t, CPU(3600))

	var after unix.Rlimit

	require.NoError(t, unix.Getrlimit(unix.RLIMIT_CPU, &after))
	require.LessOrEqual(t, after.Cur, uint64(3600))

	if before.Max == unix.RLIM_INFINITY {
		require.Equal(t, uint64(3601), after.Max)
	}
}

// Released under an MIT license. See LICENSE.

//go:build linux || darwin

// Package limit applies operating system resource limits to the enclave
// process itself.
package limit

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// CPU limits the process to seconds of CPU time. The soft limit raises
// SIGXCPU; the hard limit, one second later, kills the process. A limit
// is never raised above the current hard limit.
func CPU(seconds uint64) error {
	var cur unix.Rlimit

	err := unix.Getrlimit(unix.RLIMIT_CPU, &cur)
	if err != nil {
		return fmt.Errorf("reading CPU limit: %w", err)
	}

	next := unix.Rlimit{Cur: seconds, Max: seconds + 1}
	if cur.Max != unix.RLIM_INFINITY && next.Max > cur.Max {
		next.Max = cur.Max
		next.Cur = min(next.Cur, cur.Max)
	}

	err = unix.Setrlimit(unix.RLIMIT_CPU, &next)
	if err != nil {
		return fmt.Errorf("setting CPU limit: %w", err)
	}

	return nil
}

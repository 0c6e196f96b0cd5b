// Released under an MIT license. See LICENSE.

//go:build !linux && !darwin

// Package limit applies operating system resource limits to the enclave
// process itself.
package limit

import "errors"

// ErrUnsupported is returned where resource limits are not available.
var ErrUnsupported = errors.New("resource limits are not supported on this platform")

// CPU is not supported on this platform.
func CPU(_ uint64) error {
	return ErrUnsupported
}

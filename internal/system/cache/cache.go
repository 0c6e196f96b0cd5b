// Released under an MIT license. See LICENSE.

// Package cache remembers the results of expensive, deterministic work
// (parsing and analyzing source text) keyed by a digest of the input.
//
// All access is serialized through a single service goroutine.
package cache

import (
	"github.com/zeebo/blake3"
)

// Key is a content digest.
type Key [32]byte

// Digest returns the key for the concatenation of parts. Each part is
// length-prefixed so that ("ab", "c") and ("a", "bc") differ.
func Digest(parts ...string) Key {
	h := blake3.New()

	var n [8]byte

	for _, p := range parts {
		l := uint64(len(p))
		for i := range n {
			n[i] = byte(l >> (8 * i))
		}

		_, _ = h.Write(n[:])
		_, _ = h.Write([]byte(p))
	}

	var k Key

	copy(k[:], h.Sum(nil))

	return k
}

// Capacity is the maximum number of entries kept. The oldest entry is
// evicted first.
const Capacity = 256

// Lookup returns the value stored for k, if any.
func Lookup(k Key) (any, bool) {
	type result struct {
		v  any
		ok bool
	}

	resultq := make(chan result)

	requestq <- func() {
		v, ok := entries[k]
		resultq <- result{v, ok}
		close(resultq)
	}

	r := <-resultq

	return r.v, r.ok
}

// Purge removes every entry.
func Purge() {
	done := make(chan struct{})

	requestq <- func() {
		entries = map[Key]any{}
		order = nil

		close(done)
	}

	<-done
}

// Store records v for k.
func Store(k Key, v any) {
	requestq <- func() {
		if _, ok := entries[k]; !ok {
			order = append(order, k)
		}

		entries[k] = v

		for len(order) > Capacity {
			delete(entries, order[0])
			order = order[1:]
		}
	}
}

//nolint:gochecknoglobals
var (
	entries  = map[Key]any{}
	order    []Key
	requestq chan func()
)

//nolint:gochecknoinits
func init() {
	requestq = make(chan func(), 1)

	go service()
}

func service() {
	for {
		(<-requestq)()
	}
}

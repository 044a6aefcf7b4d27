// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package rawalloc provides raw, non-garbage-collected memory allocators
// for [code.hybscloud.com/offheap].
//
// Every allocator exposes the same two-call contract:
//
//	Obtain(size, align int) (uintptr, error)
//	Release(p uintptr) error
//
// Memory returned by Obtain is invisible to the Go garbage collector. It must
// never hold Go pointers, and it stays valid until the matching Release.
//
// # Allocators
//
//   - [Heap]: malloc-style allocator on top of [modernc.org/memory].
//   - [Pages]: one anonymous memory mapping per block via [golang.org/x/sys/unix].
//   - [Locked]: mutex wrapper for sharing an allocator between goroutines.
//   - [Counting]: instrumentation wrapper counting obtains and releases.
//
// None of the allocators are safe for concurrent use unless wrapped by [Locked].
package rawalloc

import "errors"

// Allocator is the raw allocation contract implemented by this package.
// It is structurally identical to offheap.Allocator.
type Allocator interface {
	Obtain(size, align int) (uintptr, error)
	Release(p uintptr) error
}

var (
	// ErrAlignment reports an alignment that is not a power of two or
	// exceeds what the allocator can provide.
	ErrAlignment = errors.New("rawalloc: unsupported alignment")
	// ErrUnknownBlock reports a Release of an address the allocator never returned.
	ErrUnknownBlock = errors.New("rawalloc: unknown block")
	// ErrLimit reports an Obtain refused by a [Counting] obtain limit.
	ErrLimit = errors.New("rawalloc: obtain limit reached")
	// ErrUnsupported reports an allocator unavailable on this platform.
	ErrUnsupported = errors.New("rawalloc: unsupported on this platform")
)

// validAlign reports whether align is a positive power of two.
func validAlign(align int) bool {
	return align > 0 && align&(align-1) == 0
}

func roundup(n, m int) int { return (n + m - 1) &^ (m - 1) }

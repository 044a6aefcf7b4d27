// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package offheap

import (
	"sync"
	"sync/atomic"

	"code.hybscloud.com/offheap/rawalloc"
)

// Allocator is the raw allocator a scope obtains storage from.
//
// Obtain returns the address of size bytes aligned to align, outside the Go
// heap. Release returns a block previously obtained from the same allocator.
// The implementations in [code.hybscloud.com/offheap/rawalloc] satisfy it.
type Allocator interface {
	Obtain(size, align int) (uintptr, error)
	Release(p uintptr) error
}

// defaultAllocator is shared by every scope opened without WithAllocator,
// possibly on different goroutines, hence the lock.
var defaultAllocator = sync.OnceValue(func() Allocator {
	return rawalloc.NewLocked(rawalloc.NewHeap())
})

// Block headers name their allocator by index into this append-only table,
// so a box can be released long after the scope that created it is gone.
var (
	allocMu    sync.Mutex
	allocTable atomic.Pointer[[]Allocator]
)

// allocatorID returns the table index of a, registering it on first use.
func allocatorID(a Allocator) uint32 {
	if t := allocTable.Load(); t != nil {
		for i, x := range *t {
			if x == a {
				return uint32(i)
			}
		}
	}
	allocMu.Lock()
	defer allocMu.Unlock()
	var cur []Allocator
	if t := allocTable.Load(); t != nil {
		cur = *t
	}
	for i, x := range cur {
		if x == a {
			return uint32(i)
		}
	}
	next := make([]Allocator, len(cur)+1)
	copy(next, cur)
	next[len(cur)] = a
	allocTable.Store(&next)
	return uint32(len(cur))
}

// allocatorAt returns the allocator registered under id.
func allocatorAt(id uint32) Allocator {
	return (*allocTable.Load())[id]
}

// obtain calls a.Obtain and raises exhaustion as a panic.
func obtain(a Allocator, size, align int) uintptr {
	p, err := a.Obtain(size, align)
	if err != nil {
		panic(&ExhaustedError{Size: size, Align: align, Err: err})
	}
	return p
}

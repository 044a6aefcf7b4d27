// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package rawalloc

import (
	"fmt"
	"unsafe"

	"modernc.org/memory"
)

// HeapAlign is the alignment every [Heap] block has without padding.
const HeapAlign = int(2 * unsafe.Sizeof(uintptr(0)))

// Heap is a malloc-style allocator backed by [memory.Allocator], which
// carves blocks out of mmap'ed pages outside the Go heap.
//
// Alignments up to [HeapAlign] are served directly. Larger alignments
// over-allocate and remember the original address for Release.
// Not safe for concurrent use.
type Heap struct {
	mem  memory.Allocator
	wide map[uintptr]uintptr
}

// NewHeap returns an empty Heap.
func NewHeap() *Heap {
	return &Heap{wide: make(map[uintptr]uintptr)}
}

// Obtain returns size bytes aligned to align. A zero size is served as one
// byte so every successful Obtain yields a distinct address.
func (h *Heap) Obtain(size, align int) (uintptr, error) {
	if !validAlign(align) {
		return 0, fmt.Errorf("%w: %d", ErrAlignment, align)
	}
	if size < 1 {
		size = 1
	}
	if align <= HeapAlign {
		p, err := h.mem.UintptrMalloc(size)
		if err != nil {
			return 0, fmt.Errorf("rawalloc: heap obtain %d bytes: %w", size, err)
		}
		return p, nil
	}
	raw, err := h.mem.UintptrMalloc(size + align)
	if err != nil {
		return 0, fmt.Errorf("rawalloc: heap obtain %d bytes: %w", size+align, err)
	}
	p := uintptr(roundup(int(raw), align))
	if h.wide == nil {
		h.wide = make(map[uintptr]uintptr)
	}
	h.wide[p] = raw
	return p, nil
}

// Release returns a block obtained from h.
func (h *Heap) Release(p uintptr) error {
	if p == 0 {
		return ErrUnknownBlock
	}
	if raw, ok := h.wide[p]; ok {
		delete(h.wide, p)
		p = raw
	}
	if err := h.mem.UintptrFree(p); err != nil {
		return fmt.Errorf("rawalloc: heap release %#x: %w", p, err)
	}
	return nil
}

// Close unmaps every page held by h, including blocks never released.
// h is empty and reusable afterwards.
func (h *Heap) Close() error {
	clear(h.wide)
	return h.mem.Close()
}

// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

//go:build unix

package rawalloc

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/unix"
)

// Pages maps one private anonymous region per block. Each block is page
// aligned and occupies whole pages, so it suits large values and makes
// out-of-bounds access past a block fault instead of corrupting a neighbour.
// Not safe for concurrent use.
type Pages struct {
	maps     map[uintptr][]byte
	pageSize int
}

// NewPages returns an empty page allocator.
func NewPages() *Pages {
	return &Pages{maps: make(map[uintptr][]byte), pageSize: unix.Getpagesize()}
}

// PageSize reports the mapping granularity.
func (a *Pages) PageSize() int { return a.pageSize }

// Obtain maps size bytes rounded up to whole pages. Alignments above the
// page size are refused.
func (a *Pages) Obtain(size, align int) (uintptr, error) {
	if !validAlign(align) || align > a.pageSize {
		return 0, fmt.Errorf("%w: %d", ErrAlignment, align)
	}
	n := roundup(max(size, 1), a.pageSize)
	b, err := unix.Mmap(-1, 0, n, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE)
	if err != nil {
		return 0, fmt.Errorf("rawalloc: mmap %d bytes: %w", n, err)
	}
	p := uintptr(unsafe.Pointer(&b[0]))
	a.maps[p] = b
	return p, nil
}

// Release unmaps the block at p.
func (a *Pages) Release(p uintptr) error {
	b, ok := a.maps[p]
	if !ok {
		return fmt.Errorf("%w: %#x", ErrUnknownBlock, p)
	}
	delete(a.maps, p)
	if err := unix.Munmap(b); err != nil {
		return fmt.Errorf("rawalloc: munmap %#x: %w", p, err)
	}
	return nil
}

// Mapped reports the number of live mappings.
func (a *Pages) Mapped() int { return len(a.maps) }

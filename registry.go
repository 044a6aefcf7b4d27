// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package offheap

import (
	"errors"
	"runtime"
	"unsafe"

	"go.uber.org/zap"
)

// header precedes every payload in raw storage. It holds no Go pointers:
// owner is the address of a pinned registry, or 0 once detached.
type header struct {
	prev  uintptr
	next  uintptr
	owner uintptr
	base  uintptr
	alloc uint32
	magic uint32
}

const (
	headerAlign = 16
	headerSize  = (unsafe.Sizeof(header{}) + headerAlign - 1) &^ (headerAlign - 1)
	liveMagic   = 0x6f666862
)

// headerOf returns the header in front of the payload at addr.
func headerOf(addr uintptr) *header {
	return (*header)(unsafe.Pointer(addr - headerSize))
}

func (h *header) addr() uintptr {
	return uintptr(unsafe.Pointer(h))
}

// registry is the flat per-scope list of outstanding allocations, threaded
// through the block headers. Registries of different scopes never share
// blocks, so teardown of one never touches another.
type registry struct {
	head    uintptr
	count   int
	tokens  int
	serial  Serial
	allocID uint32
	open    bool
	alloc   Allocator
	log     *zap.Logger
	pin     runtime.Pinner
}

func newRegistry(o options) *registry {
	r := &registry{
		serial:  nextSerial(),
		allocID: allocatorID(o.alloc),
		open:    true,
		alloc:   o.alloc,
		log:     o.log,
	}
	// Headers refer to r by address until the scope closes.
	r.pin.Pin(r)
	r.log.Debug("offheap: scope opened", r.serial.field())
	return r
}

func (r *registry) addr() uintptr {
	return uintptr(unsafe.Pointer(r))
}

// registryOf returns the registry h is linked into, or nil.
func registryOf(h *header) *registry {
	if h.owner == 0 {
		return nil
	}
	return (*registry)(unsafe.Pointer(h.owner))
}

// link pushes h at the head of the list.
func (r *registry) link(h *header) {
	h.owner = r.addr()
	h.prev = 0
	h.next = r.head
	if r.head != 0 {
		(*header)(unsafe.Pointer(r.head)).prev = h.addr()
	}
	r.head = h.addr()
	r.count++
}

// unlink removes h from the list and marks it detached.
func (r *registry) unlink(h *header) {
	if h.prev != 0 {
		(*header)(unsafe.Pointer(h.prev)).next = h.next
	} else {
		r.head = h.next
	}
	if h.next != 0 {
		(*header)(unsafe.Pointer(h.next)).prev = h.prev
	}
	h.prev, h.next, h.owner = 0, 0, 0
	r.count--
}

// move registers h to r, unlinking it from its current registry.
func (r *registry) move(h *header) {
	cur := registryOf(h)
	if cur == r {
		return
	}
	if cur != nil {
		cur.unlink(h)
	}
	r.link(h)
}

// finish closes the scope on the normal path. Outstanding blocks are
// detached, not released: their boxes stay valid.
func (r *registry) finish() {
	if r.tokens != 0 {
		panic("offheap: scope returned with undiscarded pool capabilities")
	}
	detached := r.count
	for a := r.head; a != 0; {
		h := (*header)(unsafe.Pointer(a))
		a = h.next
		h.prev, h.next, h.owner = 0, 0, 0
	}
	r.head, r.count = 0, 0
	r.close()
	r.log.Debug("offheap: scope closed",
		r.serial.field(),
		zap.Int("detached", detached))
}

// teardown is the interrupt path: every registered block is released.
// Walk order is list order, which callers must not rely on.
func (r *registry) teardown(reason string) {
	var (
		released int
		errs     []error
	)
	for a := r.head; a != 0; {
		h := (*header)(unsafe.Pointer(a))
		a = h.next
		h.prev, h.next, h.owner = 0, 0, 0
		h.magic = 0
		if err := allocatorAt(h.alloc).Release(h.base); err != nil {
			errs = append(errs, err)
			continue
		}
		released++
	}
	r.head, r.count, r.tokens = 0, 0, 0
	r.close()
	r.log.Debug("offheap: scope torn down",
		r.serial.field(),
		zap.String("reason", reason),
		zap.Int("released", released))
	if err := errors.Join(errs...); err != nil {
		r.log.Error("offheap: teardown release failed",
			r.serial.field(),
			zap.Error(err))
	}
}

func (r *registry) close() {
	r.open = false
	r.pin.Unpin()
}

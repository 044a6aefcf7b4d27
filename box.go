// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package offheap

import (
	"encoding/binary"
	"slices"
	"sync"
	"unsafe"
)

// Box is a uniquely owned handle to one value of type T in raw storage.
//
// A *Box is an ownership certificate: its contents are reachable only by
// consuming it with [Deconstruct]. Consuming operations clear the handle,
// so any later use of the same *Box panics.
type Box[T any] struct {
	addr uintptr
}

// BoxSize is the number of bytes [PutBox] writes.
const BoxSize = 8

// layoutOf returns the size and alignment declared by T.
func layoutOf[T any, PT Decoder[T]]() (size, align int) {
	var zero T
	s := PT(&zero)
	size, align = s.StoreSize(), s.StoreAlign()
	if size < 0 {
		panic("offheap: negative store size")
	}
	if align <= 0 || align&(align-1) != 0 || align > MaxAlign {
		panic("offheap: store alignment is not a power of two up to MaxAlign")
	}
	return size, align
}

// bytesAt views n bytes of raw storage at addr.
func bytesAt(addr uintptr, n int) []byte {
	if n == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(addr)), n)
}

// Alloc stores v in fresh raw storage obtained through p's scope and returns
// the owning handle. p is borrowed and stays usable.
//
// The storage is registered to p's scope before v is encoded, so a panic in
// Encode is covered by the scope's interrupt path. Allocator exhaustion
// panics with an [*ExhaustedError].
func Alloc[T any, PT Decoder[T]](p *Pool, v T) *Box[T] {
	p.check()
	size, align := layoutOf[T, PT]()
	reg := p.reg
	off := (int(headerSize) + align - 1) &^ (align - 1)
	base := obtain(reg.alloc, off+size, max(align, headerAlign))
	payload := base + uintptr(off)
	h := headerOf(payload)
	*h = header{base: base, alloc: reg.allocID, magic: liveMagic}
	reg.link(h)
	if size >= BoxSize {
		beginEncode(payload, size, reg)
		defer endEncode(payload)
	}
	PT(&v).Encode(bytesAt(payload, size))
	return &Box[T]{addr: payload}
}

// encodings tracks payloads that Alloc is encoding, with the registry of
// each, so PutBox can register an embedded box where its holder lives.
// Payloads in flight are live blocks, so their ranges never overlap.
var encodings struct {
	mu     sync.Mutex
	active []encoding
}

type encoding struct {
	lo, hi uintptr
	reg    *registry
}

func beginEncode(payload uintptr, size int, reg *registry) {
	encodings.mu.Lock()
	encodings.active = append(encodings.active, encoding{lo: payload, hi: payload + uintptr(size), reg: reg})
	encodings.mu.Unlock()
}

func endEncode(payload uintptr) {
	encodings.mu.Lock()
	defer encodings.mu.Unlock()
	for i, e := range encodings.active {
		if e.lo == payload {
			encodings.active = slices.Delete(encodings.active, i, i+1)
			return
		}
	}
}

// enclosing returns the registry of the allocation being encoded at addr,
// or nil when addr is not inside one.
func enclosing(addr uintptr) *registry {
	encodings.mu.Lock()
	defer encodings.mu.Unlock()
	for _, e := range encodings.active {
		if addr >= e.lo && addr < e.hi {
			return e.reg
		}
	}
	return nil
}

// Deconstruct consumes b, decodes its value and releases its storage.
// It is valid inside or after the scope that allocated b.
//
// If the allocator refuses the release, Deconstruct panics and b is left
// unconsumed and registered where it was.
func Deconstruct[T any, PT Decoder[T]](b *Box[T]) T {
	if b == nil || b.addr == 0 {
		panic("offheap: deconstruct of consumed box")
	}
	h := headerOf(b.addr)
	if h.magic != liveMagic {
		panic("offheap: deconstruct of released storage")
	}
	size, _ := layoutOf[T, PT]()
	var v T
	PT(&v).Decode(bytesAt(b.addr, size))
	reg := registryOf(h)
	if reg != nil {
		reg.unlink(h)
	}
	h.magic = 0
	if err := allocatorAt(h.alloc).Release(h.base); err != nil {
		h.magic = liveMagic
		if reg != nil {
			reg.link(h)
		}
		panic("offheap: release failed: " + err.Error())
	}
	b.addr = 0
	return v
}

// PutBox moves b into dst, which must hold at least [BoxSize] bytes.
// b is consumed; a nil b encodes the empty reference.
// Use it from [Storable.Encode] to embed boxes in other boxes.
//
// Inside [Alloc], b is registered to the scope of the allocation being
// encoded, so it is released together with its holder on interrupt and
// no longer depends on the scope it came from.
func PutBox[T any](dst []byte, b *Box[T]) {
	dst = dst[:BoxSize]
	var a uintptr
	if b != nil {
		if b.addr == 0 {
			panic("offheap: store of consumed box")
		}
		h := headerOf(b.addr)
		if h.magic != liveMagic {
			panic("offheap: store of released storage")
		}
		if reg := enclosing(uintptr(unsafe.Pointer(&dst[0]))); reg != nil {
			reg.move(h)
		}
		a, b.addr = b.addr, 0
	}
	binary.NativeEndian.PutUint64(dst, uint64(a))
}

// GetBox returns a fresh handle for the reference in src, or nil for the
// empty reference. The caller owns the result. Use it from Decode, which
// runs once per stored value.
func GetBox[T any](src []byte) *Box[T] {
	a := uintptr(binary.NativeEndian.Uint64(src[:BoxSize]))
	if a == 0 {
		return nil
	}
	return &Box[T]{addr: a}
}

// Adopt registers b to p's scope, moving it out of any other registry.
// After Adopt, an interrupt of p's scope releases b. p and b are borrowed.
func Adopt[T any](p *Pool, b *Box[T]) {
	p.check()
	if b == nil || b.addr == 0 {
		panic("offheap: adopt of consumed box")
	}
	h := headerOf(b.addr)
	if h.magic != liveMagic {
		panic("offheap: adopt of released storage")
	}
	p.reg.move(h)
}

// detach unlinks the block at addr from its registry, if any.
func detach(addr uintptr) {
	h := headerOf(addr)
	if reg := registryOf(h); reg != nil {
		reg.unlink(h)
	}
}

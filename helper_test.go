// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package offheap_test

import (
	"encoding/binary"
	"fmt"
	"strings"
	"testing"

	"code.hybscloud.com/offheap"
	"code.hybscloud.com/offheap/rawalloc"
)

// counting returns a counting allocator over a private heap that is
// unmapped when the test ends.
func counting(tb testing.TB) *rawalloc.Counting {
	tb.Helper()
	h := rawalloc.NewHeap()
	tb.Cleanup(func() { h.Close() })
	return rawalloc.NewCounting(h)
}

// sharedCounting is counting for allocators used from several goroutines.
func sharedCounting(tb testing.TB) *rawalloc.Counting {
	tb.Helper()
	h := rawalloc.NewHeap()
	tb.Cleanup(func() { h.Close() })
	return rawalloc.NewCounting(rawalloc.NewLocked(h))
}

// checkStats fails unless c saw exactly obtains and releases.
func checkStats(tb testing.TB, c *rawalloc.Counting, obtains, releases uint64) {
	tb.Helper()
	st := c.Stats()
	if st.Obtains != obtains || st.Releases != releases {
		tb.Fatalf("allocator saw %d obtains / %d releases, want %d / %d",
			st.Obtains, st.Releases, obtains, releases)
	}
}

// panicValue runs f and returns what it panicked with, or nil.
func panicValue(f func()) (v any) {
	defer func() { v = recover() }()
	f()
	return nil
}

// mustPanic fails unless f panics with a message containing want.
func mustPanic(tb testing.TB, want string, f func()) {
	tb.Helper()
	v := panicValue(f)
	if v == nil {
		tb.Fatalf("expected panic containing %q", want)
	}
	if msg := fmt.Sprint(v); !strings.Contains(msg, want) {
		tb.Fatalf("panic %q does not contain %q", msg, want)
	}
}

// gated obtains through c and refuses releases while refuse is set.
type gated struct {
	c      *rawalloc.Counting
	refuse bool
}

func (g *gated) Obtain(size, align int) (uintptr, error) { return g.c.Obtain(size, align) }

func (g *gated) Release(p uintptr) error {
	if g.refuse {
		return errInterrupt
	}
	return g.c.Release(p)
}

// node is a singly linked list cell whose tail lives in another box.
type node struct {
	value int64
	next  *offheap.Box[node]
}

func (node) StoreSize() int { return 8 + offheap.BoxSize }
func (node) StoreAlign() int { return 8 }

func (n node) Encode(dst []byte) {
	binary.NativeEndian.PutUint64(dst, uint64(n.value))
	offheap.PutBox(dst[8:], n.next)
}

func (n *node) Decode(src []byte) {
	n.value = int64(binary.NativeEndian.Uint64(src))
	n.next = offheap.GetBox[node](src[8:])
}

// pushAll prepends values onto head, one allocation per value.
func pushAll(p *offheap.Pool, head *offheap.Box[node], values []int64) *offheap.Box[node] {
	for _, v := range values {
		head = offheap.Alloc(p, node{value: v, next: head})
	}
	return head
}

// drain consumes a list and returns its values head first.
// Plain iteration: releasing a long list needs no continuation.
func drain(head *offheap.Box[node]) []int64 {
	var out []int64
	for head != nil {
		n := offheap.Deconstruct(head)
		out = append(out, n.value)
		head = n.next
	}
	return out
}

// link holds a reference into a box allocated by some other pool.
type link struct {
	tag    uint32
	target *offheap.Box[offheap.Int64]
}

func (link) StoreSize() int { return 8 + offheap.BoxSize }
func (link) StoreAlign() int { return 8 }

func (l link) Encode(dst []byte) {
	binary.NativeEndian.PutUint32(dst, l.tag)
	offheap.PutBox(dst[8:], l.target)
}

func (l *link) Decode(src []byte) {
	l.tag = binary.NativeEndian.Uint32(src)
	l.target = offheap.GetBox[offheap.Int64](src[8:])
}

// cacheLine requests an alignment larger than the raw heap provides.
type cacheLine [64]byte

func (cacheLine) StoreSize() int { return 64 }
func (cacheLine) StoreAlign() int { return 64 }
func (c cacheLine) Encode(dst []byte) { copy(dst, c[:]) }
func (c *cacheLine) Decode(src []byte) { copy(c[:], src) }

// empty occupies no payload bytes.
type empty struct{}

func (empty) StoreSize() int { return 0 }
func (empty) StoreAlign() int { return 1 }
func (empty) Encode([]byte) {}
func (*empty) Decode([]byte) {}

// faulty panics while being encoded.
type faulty struct{}

func (faulty) StoreSize() int { return 8 }
func (faulty) StoreAlign() int { return 8 }
func (faulty) Encode([]byte) { panic("faulty: encode") }
func (*faulty) Decode([]byte) {}

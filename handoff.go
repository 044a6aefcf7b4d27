// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package offheap

import (
	"code.hybscloud.com/iox"
	"code.hybscloud.com/lfq"
)

// Handoff transfers box ownership from one goroutine to another over a
// bounded lock-free SPSC queue from lfq.
//
// Exactly one goroutine may send and exactly one may receive. Send detaches
// the box from its scope's registry on the sending goroutine, which must be
// the goroutine that owns that scope. Received boxes belong to no scope:
// the receiver deconstructs them or registers them with [Adopt].
type Handoff[T any] struct {
	q    lfq.SPSC[uintptr]
	slot uintptr
}

// NewHandoff creates a Handoff for at least capacity boxes in flight.
// The queue holds at least two slots and rounds capacity up to a power
// of two.
func NewHandoff[T any](capacity int) *Handoff[T] {
	h := &Handoff[T]{}
	h.q.Init(max(capacity, 2))
	return h
}

// Send consumes b and enqueues it for the receiver.
// Waits with adaptive backoff (iox.Backoff) while the queue is full.
func (h *Handoff[T]) Send(b *Box[T]) {
	if b == nil || b.addr == 0 {
		panic("offheap: send of consumed box")
	}
	detach(b.addr)
	h.slot, b.addr = b.addr, 0
	var bo iox.Backoff
	for h.q.Enqueue(&h.slot) != nil {
		bo.Wait()
	}
}

// TryRecv dequeues the next box without waiting.
// Returns iox.ErrWouldBlock when nothing is in flight.
func (h *Handoff[T]) TryRecv() (*Box[T], error) {
	a, err := h.q.Dequeue()
	if err != nil {
		return nil, err
	}
	return &Box[T]{addr: a}, nil
}

// Recv dequeues the next box, waiting with adaptive backoff until one arrives.
func (h *Handoff[T]) Recv() *Box[T] {
	var bo iox.Backoff
	for {
		b, err := h.TryRecv()
		if err == nil {
			return b
		}
		bo.Wait()
	}
}

// Cap returns the number of boxes the queue holds in flight.
func (h *Handoff[T]) Cap() int {
	return h.q.Cap()
}

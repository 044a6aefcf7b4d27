package a

import (
	"errors"

	"code.hybscloud.com/offheap"
)

type node struct {
	value int64
	next  *offheap.Box[node]
}

func (node) StoreSize() int { return 8 + offheap.BoxSize }
func (node) StoreAlign() int { return 8 }
func (n node) Encode(dst []byte) { offheap.PutBox(dst[8:], n.next) }
func (n *node) Decode(src []byte) { n.next = offheap.GetBox[node](src[8:]) }

func balanced() offheap.Int64 {
	return offheap.With(func(p *offheap.Pool) offheap.Int64 {
		b := offheap.Alloc(p, offheap.Int64(1))
		p.Discard()
		return offheap.Deconstruct(b)
	})
}

func double(b *offheap.Box[offheap.Int64]) {
	offheap.Deconstruct(b)
	offheap.Deconstruct(b) // want `use of consumed box b`
}

func afterDiscard() {
	offheap.With(func(p *offheap.Pool) int {
		p.Discard()
		offheap.Alloc(p, offheap.Int64(1)) // want `use of discarded pool capability p` `box returned by call is discarded`
		return 0
	})
}

func blank() {
	offheap.With(func(p *offheap.Pool) int {
		b := offheap.Alloc(p, offheap.Int64(1))
		_ = b // want `box is discarded by assignment to _`
		p.Discard()
		return 0
	})
}

func dropped(p *offheap.Pool) {
	offheap.Alloc(p, offheap.Int64(1)) // want `box returned by call is discarded`
}

func leakReturn(p *offheap.Pool) int {
	b := offheap.Alloc(p, offheap.Int64(1))
	if b == nil {
		return 0
	}
	return 1 // want `box b is not consumed before return`
}

func leakSomePaths(p *offheap.Pool, ok bool) int {
	b := offheap.Alloc(p, offheap.Int64(1))
	if ok {
		offheap.Deconstruct(b)
	}
	return 0 // want `box b is not consumed before return on some paths`
}

func overwrite(p *offheap.Pool) offheap.Int64 {
	b := offheap.Alloc(p, offheap.Int64(1))
	b = offheap.Alloc(p, offheap.Int64(2)) // want `box b is overwritten while still owned`
	return offheap.Deconstruct(b)
}

func consumedInLoop(p *offheap.Pool, n int) {
	b := offheap.Alloc(p, offheap.Int64(1))
	for i := 0; i < n; i++ {
		offheap.Deconstruct(b) // want `box b is consumed inside a loop`
	}
}

func drain(head *offheap.Box[node]) int64 {
	var sum int64
	for head != nil {
		n := offheap.Deconstruct(head)
		sum += n.value
		head = n.next
	}
	return sum
}

func build(p *offheap.Pool, values []int64) *offheap.Box[node] {
	var head *offheap.Box[node]
	for _, v := range values {
		head = offheap.Alloc(p, node{value: v, next: head})
	}
	return head
}

func sum(boxes []*offheap.Box[offheap.Int64]) offheap.Int64 {
	var s offheap.Int64
	for _, b := range boxes {
		s += offheap.Deconstruct(b)
	}
	return s
}

func leakInLoop(p *offheap.Pool, values []int64) {
	for _, v := range values {
		b := offheap.Alloc(p, offheap.Int64(v))
		if v > 0 {
			offheap.Deconstruct(b)
		}
	}
} // want `box b is not consumed before return on some paths`

func undiscarded() {
	offheap.With(func(p *offheap.Pool) int {
		return 0 // want `pool capability p is not discarded before return`
	})
}

func dupForgets() {
	offheap.With(func(p *offheap.Pool) int {
		a, b := p.Dup()
		a.Discard()
		_ = b.Serial()
		return 0 // want `pool capability b is not discarded before return`
	})
}

func dupThenUse() {
	offheap.With(func(p *offheap.Pool) int {
		a, b := p.Dup()
		p.Discard() // want `use of discarded pool capability p`
		a.Discard()
		b.Discard()
		return 0
	})
}

func discardInLoop(n int) {
	offheap.With(func(p *offheap.Pool) int {
		for range n {
			p.Discard() // want `pool capability p is discarded inside a loop`
		}
		return 0
	})
}

func tryError(fail bool) {
	_, _ = offheap.Try(func(p *offheap.Pool) (int, error) {
		b := offheap.Alloc(p, offheap.Int64(1))
		if fail {
			return 0, errors.New("fail")
		}
		p.Discard()
		return int(offheap.Deconstruct(b)), nil
	})
}

func tryLeak() {
	_, _ = offheap.Try(func(p *offheap.Pool) (int, error) {
		b := offheap.Alloc(p, offheap.Int64(1))
		offheap.Adopt(p, b)
		p.Discard()
		return 0, nil // want `box b is not consumed before return`
	})
}

func adopt(p *offheap.Pool, b *offheap.Box[offheap.Int64]) offheap.Int64 {
	offheap.Adopt(p, b)
	return offheap.Deconstruct(b)
}

func captured(b *offheap.Box[offheap.Int64]) func() offheap.Int64 {
	f := func() offheap.Int64 { return offheap.Deconstruct(b) }
	offheap.Deconstruct(b) // want `use of consumed box b`
	return f
}

func stored(p *offheap.Pool, tail *offheap.Box[node]) *offheap.Box[node] {
	head := offheap.Alloc(p, node{value: 1, next: tail})
	offheap.Deconstruct(tail) // want `use of consumed box tail`
	return head
}

func sent(h *offheap.Handoff[offheap.Int64], p *offheap.Pool) {
	b := offheap.Alloc(p, offheap.Int64(1))
	h.Send(b)
	h.Send(b) // want `use of consumed box b`
}

func switchAll(p *offheap.Pool, k int) {
	b := offheap.Alloc(p, offheap.Int64(1))
	switch k {
	case 0:
		offheap.Deconstruct(b)
	case 1:
		offheap.Adopt(p, b)
		offheap.Deconstruct(b)
	default:
		offheap.Deconstruct(b)
	}
}

func switchSome(p *offheap.Pool, k int) {
	b := offheap.Alloc(p, offheap.Int64(1))
	switch k {
	case 0:
		offheap.Deconstruct(b)
	}
} // want `box b is not consumed before return on some paths`

func maybeConsumed(p *offheap.Pool, ok bool) offheap.Int64 {
	b := offheap.Alloc(p, offheap.Int64(1))
	if ok {
		offheap.Deconstruct(b)
	}
	return offheap.Deconstruct(b) // want `box b may have been consumed`
}

func panics(p *offheap.Pool) {
	b := offheap.Alloc(p, offheap.Int64(1))
	if b != nil {
		panic("unreachable")
	}
}

func channel(ch chan *offheap.Box[offheap.Int64], p *offheap.Pool) {
	b := offheap.Alloc(p, offheap.Int64(1))
	ch <- b
	ch <- b // want `use of consumed box b`
}

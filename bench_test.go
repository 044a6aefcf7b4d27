// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package offheap_test

import (
	"testing"

	"code.hybscloud.com/offheap"
	"code.hybscloud.com/offheap/rawalloc"
)

// BenchmarkAllocDeconstruct measures one allocate/deconstruct round-trip.
func BenchmarkAllocDeconstruct(b *testing.B) {
	h := rawalloc.NewHeap()
	defer h.Close()
	b.ReportAllocs()
	offheap.With(func(p *offheap.Pool) struct{} {
		for b.Loop() {
			offheap.Deconstruct(offheap.Alloc(p, offheap.Int64(42)))
		}
		p.Discard()
		return struct{}{}
	}, offheap.WithAllocator(h))
}

// BenchmarkScope measures opening and closing an empty scope.
func BenchmarkScope(b *testing.B) {
	b.ReportAllocs()
	for b.Loop() {
		offheap.With(func(p *offheap.Pool) struct{} {
			p.Discard()
			return struct{}{}
		})
	}
}

// BenchmarkTeardown measures interrupting a scope holding 64 boxes.
func BenchmarkTeardown(b *testing.B) {
	h := rawalloc.NewHeap()
	defer h.Close()
	b.ReportAllocs()
	for b.Loop() {
		_, _ = offheap.Try(func(p *offheap.Pool) (struct{}, error) {
			for i := range 64 {
				offheap.Alloc(p, offheap.Int64(i))
			}
			return struct{}{}, errInterrupt
		}, offheap.WithAllocator(h))
	}
}

// BenchmarkList measures building and draining a 64-cell list.
func BenchmarkList(b *testing.B) {
	h := rawalloc.NewHeap()
	defer h.Close()
	values := make([]int64, 64)
	b.ReportAllocs()
	offheap.With(func(p *offheap.Pool) struct{} {
		for b.Loop() {
			drain(pushAll(p, nil, values))
		}
		p.Discard()
		return struct{}{}
	}, offheap.WithAllocator(h))
}

// BenchmarkRun measures the effect-world two-box sum.
func BenchmarkRun(b *testing.B) {
	skipRace(b)
	h := rawalloc.NewHeap()
	defer h.Close()
	b.ReportAllocs()
	for b.Loop() {
		offheap.Run(sumProtocol(1, 2), offheap.WithAllocator(h))
	}
}

// BenchmarkExprRun measures the Expr-world two-box sum.
func BenchmarkExprRun(b *testing.B) {
	skipRace(b)
	h := rawalloc.NewHeap()
	defer h.Close()
	b.ReportAllocs()
	for b.Loop() {
		offheap.RunExpr(exprSumProtocol(1, 2), offheap.WithAllocator(h))
	}
}

// BenchmarkPagesAlloc measures allocation straight from anonymous mappings.
func BenchmarkPagesAlloc(b *testing.B) {
	pg := rawalloc.NewPages()
	if pg.PageSize() == 0 {
		b.Skip("anonymous mappings unsupported on this platform")
	}
	b.ReportAllocs()
	offheap.With(func(p *offheap.Pool) struct{} {
		for b.Loop() {
			offheap.Deconstruct(offheap.Alloc(p, cacheLine{}))
		}
		p.Discard()
		return struct{}{}
	}, offheap.WithAllocator(pg))
}

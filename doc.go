// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package offheap provides manually managed values stored outside the Go heap,
// under an ownership discipline where every allocation is released exactly once.
//
// A [Pool] is a scope-bound allocation capability. A [Box] is a uniquely owned
// handle to one value serialized into raw storage obtained through a pool.
//
// # Architecture
//
//   - Scope: [With] and [Try] open a scope and hand the body a fresh [*Pool]
//     token. [Pool.Dup] splits a token in two, [Pool.Discard] consumes it.
//     Every token must be discarded before the body returns.
//   - Allocation: [Alloc] borrows a token, obtains raw storage from the scope's
//     [Allocator], registers it in the pool's registry and encodes the value.
//   - Release: [Deconstruct] consumes a box, decodes the value and releases the
//     storage. It is the only normal-path release, valid inside or after the scope.
//   - Interrupt: a panic, [runtime.Goexit] or a [Try] error leaving an open scope
//     releases every allocation still registered to that pool.
//   - Values: types implement [Storable] (fixed size and alignment, byte
//     encoding) and [Decoder]. [PutBox] and [GetBox] embed boxes in other boxes,
//     across pools and in cycles.
//
// # Ownership
//
// Consuming operations invalidate the handle they receive: a second
// [Deconstruct] of the same handle, or use of a discarded token, panics.
// The boxcheck analyzer (code.hybscloud.com/offheap/passes/boxcheck) rejects
// those programs before they run, together with leaked boxes and undiscarded
// tokens.
//
// # Effects
//
// [Allocate] and [Release] are [code.hybscloud.com/kont] effect operations.
// [Run], [RunExpr], [RunError] and [RunErrorExpr] interpret them in a fresh
// scope; [Exec] and [Step]/[Advance] interpret them on a given token.
// A [kont.ThrowError] inside [RunError] is an interrupt.
//
// # Example
//
//	sum := offheap.With(func(p *offheap.Pool) int64 {
//		b1 := offheap.Alloc(p, offheap.Int64(42))
//		b2 := offheap.Alloc(p, offheap.Int64(7))
//		p.Discard()
//		return int64(offheap.Deconstruct(b1) + offheap.Deconstruct(b2))
//	})
package offheap

// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package offheap

import (
	"code.hybscloud.com/kont"
)

// Step evaluates a pool protocol until the first effect suspension.
// Returns (result, nil) on completion, or (zero, suspension) if pending.
func Step[R any](protocol kont.Expr[R]) (R, *kont.Suspension[R]) {
	return kont.StepExpr(protocol)
}

// Advance dispatches the suspended pool operation on p and resumes the
// protocol to its next effect or completion. The suspension is consumed.
// Pool operations never block, so unlike a transport there is no retry path.
func Advance[R any](p *Pool, susp *kont.Suspension[R]) (R, *kont.Suspension[R]) {
	pop, ok := susp.Op().(poolDispatcher)
	if !ok {
		panic("offheap: unhandled effect in Advance")
	}
	return susp.Resume(pop.DispatchPool(p))
}

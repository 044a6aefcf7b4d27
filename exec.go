// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package offheap

import (
	"code.hybscloud.com/kont"
)

// poolHandler implements kont.Handler for pool effects.
// Value type: passed to evalFrames on the stack, avoiding heap allocation.
type poolHandler[R any] struct {
	p *Pool
}

// Dispatch implements kont.Handler via structural interface assertion.
func (h poolHandler[R]) Dispatch(op kont.Operation) (kont.Resumed, bool) {
	pop, ok := op.(poolDispatcher)
	if !ok {
		panic("offheap: unhandled effect in poolHandler")
	}
	return pop.DispatchPool(h.p), true
}

// Exec runs a Cont-world pool protocol on a borrowed token.
// p stays live; the caller still owns and must discard it.
func Exec[R any](p *Pool, protocol kont.Eff[R]) R {
	p.check()
	h := poolHandler[R]{p: p}
	return kont.Handle(protocol, h)
}

// ExecExpr runs an Expr-world pool protocol on a borrowed token.
func ExecExpr[R any](p *Pool, protocol kont.Expr[R]) R {
	p.check()
	h := poolHandler[R]{p: p}
	return kont.HandleExpr(protocol, h)
}

// Run opens a scope, runs a Cont-world pool protocol in it and closes the
// scope. A panic inside the protocol tears the scope down as [With] does.
func Run[R any](protocol kont.Eff[R], opts ...Option) R {
	return With(func(p *Pool) R {
		r := Exec(p, protocol)
		p.Discard()
		return r
	}, opts...)
}

// RunExpr opens a scope, runs an Expr-world pool protocol in it and closes
// the scope.
func RunExpr[R any](protocol kont.Expr[R], opts ...Option) R {
	return With(func(p *Pool) R {
		r := ExecExpr(p, protocol)
		p.Discard()
		return r
	}, opts...)
}

// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package offheap

import (
	"code.hybscloud.com/kont"
)

// poolErrorHandler handles both pool and error effects.
// Pool ops run on the token. Error ops short-circuit on Throw.
// Value type: passed to evalFrames on the stack, avoiding heap allocation.
type poolErrorHandler[E, A any] struct {
	p      *Pool
	errCtx *kont.ErrorContext[E]
}

// Dispatch implements kont.Handler for the composed Pool+Error handler.
// Dispatch order: Pool → Error.
func (h poolErrorHandler[E, A]) Dispatch(op kont.Operation) (kont.Resumed, bool) {
	if pop, ok := op.(poolDispatcher); ok {
		return pop.DispatchPool(h.p), true
	}
	if eop, ok := op.(interface {
		DispatchError(ctx *kont.ErrorContext[E]) (kont.Resumed, bool)
	}); ok {
		v, _ := eop.DispatchError(h.errCtx)
		if h.errCtx.HasErr {
			return kont.Left[E, A](h.errCtx.Err), false
		}
		return v, true
	}
	panic("offheap: unhandled effect in poolErrorHandler")
}

// ExecError runs a pool protocol with error handling on a borrowed token.
// Returns Either[E, R]: Right on success, Left on Throw. Boxes allocated
// before the Throw stay registered; what happens to them is up to the
// scope that owns p.
func ExecError[E, R any](p *Pool, protocol kont.Eff[R]) kont.Either[E, R] {
	p.check()
	wrapped := kont.Map[kont.Resumed, R, kont.Either[E, R]](protocol, func(r R) kont.Either[E, R] {
		return kont.Right[E, R](r)
	})
	var errCtx kont.ErrorContext[E]
	h := poolErrorHandler[E, R]{p: p, errCtx: &errCtx}
	return kont.Handle(wrapped, h)
}

// ExecErrorExpr runs an Expr pool protocol with error handling on a
// borrowed token. Returns Either[E, R]: Right on success, Left on Throw.
func ExecErrorExpr[E, R any](p *Pool, protocol kont.Expr[R]) kont.Either[E, R] {
	p.check()
	wrapped := kont.ExprMap(protocol, func(r R) kont.Either[E, R] {
		return kont.Right[E, R](r)
	})
	var errCtx kont.ErrorContext[E]
	h := poolErrorHandler[E, R]{p: p, errCtx: &errCtx}
	return kont.HandleExpr(wrapped, h)
}

// RunError opens a scope and runs a Cont-world pool protocol with error
// handling. A Throw is an interrupt: every allocation still registered to
// the scope is released before Left is returned.
func RunError[E, R any](protocol kont.Eff[R], opts ...Option) kont.Either[E, R] {
	var out kont.Either[E, R]
	_, _ = Try(func(p *Pool) (struct{}, error) {
		out = ExecError[E](p, protocol)
		if out.IsLeft() {
			return struct{}{}, errThrown
		}
		p.Discard()
		return struct{}{}, nil
	}, opts...)
	return out
}

// RunErrorExpr is [RunError] for Expr-world protocols.
func RunErrorExpr[E, R any](protocol kont.Expr[R], opts ...Option) kont.Either[E, R] {
	var out kont.Either[E, R]
	_, _ = Try(func(p *Pool) (struct{}, error) {
		out = ExecErrorExpr[E](p, protocol)
		if out.IsLeft() {
			return struct{}{}, errThrown
		}
		p.Discard()
		return struct{}{}, nil
	}, opts...)
	return out
}

// StepError evaluates a pool protocol with error support until the first
// effect suspension. Returns (Either[E, R], nil) on completion or error,
// or (zero, suspension) if pending.
func StepError[E, R any](protocol kont.Expr[R]) (kont.Either[E, R], *kont.Suspension[kont.Either[E, R]]) {
	wrapped := kont.ExprMap(protocol, func(r R) kont.Either[E, R] {
		return kont.Right[E, R](r)
	})
	return kont.StepExpr(wrapped)
}

// AdvanceError dispatches the suspended operation on p.
// Pool ops run to completion. Error ops are eager: Throw discards the
// suspension and returns Left; the caller decides whether that interrupts
// the scope (return an error from a [Try] body to release its allocations).
func AdvanceError[E, R any](p *Pool, susp *kont.Suspension[kont.Either[E, R]]) (kont.Either[E, R], *kont.Suspension[kont.Either[E, R]]) {
	if pop, ok := susp.Op().(poolDispatcher); ok {
		return susp.Resume(pop.DispatchPool(p))
	}
	if eop, ok := susp.Op().(interface {
		DispatchError(ctx *kont.ErrorContext[E]) (kont.Resumed, bool)
	}); ok {
		var ctx kont.ErrorContext[E]
		v, _ := eop.DispatchError(&ctx)
		if ctx.HasErr {
			susp.Discard()
			return kont.Left[E, R](ctx.Err), nil
		}
		return susp.Resume(v)
	}
	panic("offheap: unhandled effect in AdvanceError")
}

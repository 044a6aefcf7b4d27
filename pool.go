// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package offheap

// Teardown reasons reported to the scope logger.
const (
	reasonInterrupt = "interrupt"
	reasonError     = "error"
)

// Pool is an allocation capability token for one open scope.
//
// Tokens are used through *Pool and compared by identity. [Alloc] borrows a
// token; [Pool.Discard] and [Pool.Dup] consume it. Every token of a scope
// refers to the same registry, and every one of them must be consumed
// before the scope body returns.
//
// A Pool is not safe for concurrent use, including through duplicated
// tokens, unless the caller synchronizes externally.
type Pool struct {
	reg  *registry
	live bool
}

// open creates a scope registry holding one live token.
func open(opts []Option) *Pool {
	reg := newRegistry(buildOptions(opts))
	reg.tokens = 1
	return &Pool{reg: reg, live: true}
}

// With opens a scope, runs body with a fresh capability and returns its result.
//
// body must discard every token it holds before returning. If body panics or
// exits through runtime.Goexit, every allocation still registered to the pool
// is released and the panic continues to unwind; no result is produced.
// Boxes still registered when body returns normally are left alive and must
// be deconstructed by their owners.
func With[R any](body func(p *Pool) R, opts ...Option) R {
	p := open(opts)
	reg := p.reg
	done := false
	defer func() {
		if !done {
			reg.teardown(reasonInterrupt)
		}
	}()
	r := body(p)
	reg.finish()
	done = true
	return r
}

// Try is [With] for bodies that report interrupts as errors.
//
// A non-nil error from body releases every allocation still registered to
// the pool and is returned with the zero R. Tokens need not be discarded on
// that path. A nil error requires every token to be discarded.
func Try[R any](body func(p *Pool) (R, error), opts ...Option) (R, error) {
	p := open(opts)
	reg := p.reg
	done := false
	defer func() {
		if !done {
			reg.teardown(reasonInterrupt)
		}
	}()
	r, err := body(p)
	if err != nil {
		done = true
		reg.teardown(reasonError)
		var zero R
		return zero, err
	}
	reg.finish()
	done = true
	return r, nil
}

// check panics unless p is a live token of an open scope.
func (p *Pool) check() {
	if p == nil || !p.live {
		panic("offheap: use of discarded pool capability")
	}
	if !p.reg.open {
		panic("offheap: use of pool capability after its scope closed")
	}
}

// Dup consumes p and returns two tokens of the same scope.
// It allocates no storage.
func (p *Pool) Dup() (*Pool, *Pool) {
	p.check()
	p.live = false
	p.reg.tokens++
	return &Pool{reg: p.reg, live: true}, &Pool{reg: p.reg, live: true}
}

// Discard consumes p. It releases nothing: boxes allocated through p stay
// alive, and the scope's interrupt path still covers them until it closes.
func (p *Pool) Discard() {
	p.check()
	p.live = false
	p.reg.tokens--
}

// Serial returns the serial number of p's scope.
func (p *Pool) Serial() Serial {
	return p.reg.serial
}

// Outstanding reports how many allocations are registered to p's scope:
// allocated or adopted, and not yet deconstructed or handed off.
func (p *Pool) Outstanding() int {
	return p.reg.count
}

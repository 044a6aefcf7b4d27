// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

//go:build !unix

package rawalloc

// Pages is unavailable on this platform; every Obtain fails with
// [ErrUnsupported].
type Pages struct{}

// NewPages returns a Pages that refuses every request.
func NewPages() *Pages { return &Pages{} }

// PageSize reports 0.
func (a *Pages) PageSize() int { return 0 }

// Obtain always fails with ErrUnsupported.
func (a *Pages) Obtain(size, align int) (uintptr, error) { return 0, ErrUnsupported }

// Release always fails with ErrUnknownBlock.
func (a *Pages) Release(p uintptr) error { return ErrUnknownBlock }

// Mapped reports 0.
func (a *Pages) Mapped() int { return 0 }

// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package offheap

import (
	"code.hybscloud.com/kont"
)

// poolDispatcher is the structural interface for pool operations.
// DispatchPool runs synchronously on the token held by the handler.
type poolDispatcher interface {
	DispatchPool(p *Pool) kont.Resumed
}

// Allocate is the effect operation for allocating a box.
// Perform(Allocate[T, PT]{Value: v}) resumes with the *Box[T] holding v.
type Allocate[T any, PT Decoder[T]] struct {
	kont.Phantom[*Box[T]]
	Value T
}

// DispatchPool handles Allocate by calling [Alloc] with the handler's token.
func (o Allocate[T, PT]) DispatchPool(p *Pool) kont.Resumed {
	return Alloc[T, PT](p, o.Value)
}

// Release is the effect operation for deconstructing a box.
// Perform(Release[T, PT]{Box: b}) consumes b and resumes with its value.
type Release[T any, PT Decoder[T]] struct {
	kont.Phantom[T]
	Box *Box[T]
}

// DispatchPool handles Release by calling [Deconstruct]. The token is unused:
// releasing storage needs no capability.
func (o Release[T, PT]) DispatchPool(_ *Pool) kont.Resumed {
	return Deconstruct[T, PT](o.Box)
}

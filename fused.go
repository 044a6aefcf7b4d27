// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package offheap

import (
	"code.hybscloud.com/kont"
)

// AllocBind allocates a box holding v and passes it to f.
// Fuses Perform(Allocate[T, PT]{Value: v}) + Bind.
func AllocBind[T any, PT Decoder[T], B any](v T, f func(*Box[T]) kont.Eff[B]) kont.Eff[B] {
	return kont.Bind(kont.Perform(Allocate[T, PT]{Value: v}), f)
}

// DeconstructBind consumes b and passes its value to f.
// Fuses Perform(Release[T, PT]{Box: b}) + Bind.
func DeconstructBind[T any, PT Decoder[T], B any](b *Box[T], f func(T) kont.Eff[B]) kont.Eff[B] {
	return kont.Bind(kont.Perform(Release[T, PT]{Box: b}), f)
}

// DeconstructThen consumes b, discards its value and continues with next.
// Fuses Perform(Release[T, PT]{Box: b}) + Then.
func DeconstructThen[T any, PT Decoder[T], B any](b *Box[T], next kont.Eff[B]) kont.Eff[B] {
	return kont.Then(kont.Perform(Release[T, PT]{Box: b}), next)
}

// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package offheap

import (
	"code.hybscloud.com/kont"
)

// exprReturnFrame is pre-boxed to avoid a heap escape per constructor.
var exprReturnFrame kont.Frame = kont.ReturnFrame{}

// identityResume is the identity resume function for EffectFrame construction.
// Named function produces a static function value, consistent with kont convention.
func identityResume(v kont.Erased) kont.Erased { return v }

func allocBindUnwind[T, B any](data, _, _ kont.Erased, current kont.Erased) (kont.Erased, kont.Frame) {
	f := data.(func(*Box[T]) kont.Expr[B])
	result := f(current.(*Box[T]))
	return kont.Erased(result.Value), result.Frame
}

// ExprAllocBind allocates a box holding v and passes it to f.
// Fuses ExprPerform(Allocate[T, PT]{Value: v}) + ExprBind.
func ExprAllocBind[T any, PT Decoder[T], B any](v T, f func(*Box[T]) kont.Expr[B]) kont.Expr[B] {
	bf := kont.AcquireUnwindFrame()
	bf.Data1 = f
	bf.Unwind = allocBindUnwind[T, B]
	ef := kont.AcquireEffectFrame()
	ef.Operation = Allocate[T, PT]{Value: v}
	ef.Resume = identityResume
	ef.Next = bf
	return kont.ExprSuspend[B](ef)
}

func deconstructBindUnwind[T, B any](data, _, _ kont.Erased, current kont.Erased) (kont.Erased, kont.Frame) {
	f := data.(func(T) kont.Expr[B])
	result := f(current.(T))
	return kont.Erased(result.Value), result.Frame
}

// ExprDeconstructBind consumes b and passes its value to f.
// Fuses ExprPerform(Release[T, PT]{Box: b}) + ExprBind.
func ExprDeconstructBind[T any, PT Decoder[T], B any](b *Box[T], f func(T) kont.Expr[B]) kont.Expr[B] {
	bf := kont.AcquireUnwindFrame()
	bf.Data1 = f
	bf.Unwind = deconstructBindUnwind[T, B]
	ef := kont.AcquireEffectFrame()
	ef.Operation = Release[T, PT]{Box: b}
	ef.Resume = identityResume
	ef.Next = bf
	return kont.ExprSuspend[B](ef)
}

// ExprDeconstructThen consumes b, discards its value and continues with next.
// Fuses ExprPerform(Release[T, PT]{Box: b}) + ExprThen.
func ExprDeconstructThen[T any, PT Decoder[T], B any](b *Box[T], next kont.Expr[B]) kont.Expr[B] {
	tf := kont.AcquireThenFrame()
	tf.Second = kont.Expr[kont.Erased]{Value: kont.Erased(next.Value), Frame: next.Frame}
	tf.Next = exprReturnFrame
	ef := kont.AcquireEffectFrame()
	ef.Operation = Release[T, PT]{Box: b}
	ef.Resume = identityResume
	ef.Next = tf
	return kont.ExprSuspend[B](ef)
}

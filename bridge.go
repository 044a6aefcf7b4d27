// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package offheap

import (
	"code.hybscloud.com/kont"
)

// Reify converts a Cont-world pool protocol to Expr-world, for [ExecExpr],
// [RunExpr] or stepping with [Step] and [Advance]. The Allocate and Release
// operations keep their order, so the converted protocol registers and
// releases the same boxes in the same scope.
func Reify[A any](m kont.Eff[A]) kont.Expr[A] {
	return kont.Reify(m)
}

// Reflect converts an Expr-world pool protocol to Cont-world, for [Exec]
// or [Run]. Protocols built with [ExprAllocBind] and [ExprDeconstructBind] run
// unchanged under the Cont-world handlers.
func Reflect[A any](m kont.Expr[A]) kont.Eff[A] {
	return kont.Reflect(m)
}

// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package offheap

import (
	"errors"
	"fmt"
)

// ErrExhausted is matched by every [ExhaustedError].
var ErrExhausted = errors.New("offheap: raw allocator exhausted")

// errThrown interrupts the scope of RunError after a Throw.
var errThrown = errors.New("offheap: effect thrown")

// ExhaustedError is the panic value raised when the raw allocator cannot
// satisfy a request. Exhaustion is not a recoverable result: inside a scope
// the panic is an interrupt and tears the pool down.
type ExhaustedError struct {
	Err   error
	Size  int
	Align int
}

// Error implements the error interface.
func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("offheap: obtain %d bytes aligned to %d: %v", e.Size, e.Align, e.Err)
}

// Unwrap exposes both [ErrExhausted] and the allocator's error to errors.Is.
func (e *ExhaustedError) Unwrap() []error {
	return []error{ErrExhausted, e.Err}
}

// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package rawalloc

import "sync"

// Locked serializes every call into the wrapped allocator with a mutex.
// Pools opened on different goroutines may share one Locked allocator.
type Locked struct {
	mu sync.Mutex
	a  Allocator
}

// NewLocked wraps a.
func NewLocked(a Allocator) *Locked {
	return &Locked{a: a}
}

// Obtain calls the wrapped Obtain under the lock.
func (l *Locked) Obtain(size, align int) (uintptr, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.a.Obtain(size, align)
}

// Release calls the wrapped Release under the lock.
func (l *Locked) Release(p uintptr) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.a.Release(p)
}

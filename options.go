// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package offheap

import "go.uber.org/zap"

// Option configures a scope opened by [With], [Try] or the effect runners.
type Option func(*options)

type options struct {
	alloc Allocator
	log   *zap.Logger
}

// WithAllocator makes the scope obtain storage from a instead of the
// process-wide default. a must be comparable (typically a pointer) and is
// retained for as long as the process runs, since boxes outlive scopes.
func WithAllocator(a Allocator) Option {
	return func(o *options) {
		if a != nil {
			o.alloc = a
		}
	}
}

// WithLogger sets the logger for scope lifecycle events.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.log = l
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{alloc: defaultAllocator(), log: Logger()}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package rawalloc

import (
	"code.hybscloud.com/atomix"
)

// Counting wraps an allocator and counts calls into it.
// Counters are atomic; the wrapped allocator keeps its own concurrency rules.
type Counting struct {
	a        Allocator
	obtains  atomix.Uint64
	releases atomix.Uint64
	failures atomix.Uint64
	bytes    atomix.Uint64
	limit    atomix.Uint64
}

// NewCounting wraps a.
func NewCounting(a Allocator) *Counting {
	return &Counting{a: a}
}

// Limit caps the number of successful obtains. Once reached, Obtain fails
// with [ErrLimit] without calling the wrapped allocator. Zero removes the cap.
func (c *Counting) Limit(n uint64) {
	c.limit.Store(n)
}

// Obtain counts and forwards the request.
func (c *Counting) Obtain(size, align int) (uintptr, error) {
	if n := c.limit.Load(); n != 0 && c.obtains.Load() >= n {
		c.failures.Add(1)
		return 0, ErrLimit
	}
	p, err := c.a.Obtain(size, align)
	if err != nil {
		c.failures.Add(1)
		return 0, err
	}
	c.obtains.Add(1)
	c.bytes.Add(uint64(size))
	return p, nil
}

// Release counts and forwards the release. Failed releases are not counted.
func (c *Counting) Release(p uintptr) error {
	if err := c.a.Release(p); err != nil {
		return err
	}
	c.releases.Add(1)
	return nil
}

// Stats returns a snapshot of the counters.
func (c *Counting) Stats() Stats {
	obtains := c.obtains.Load()
	releases := c.releases.Load()
	return Stats{
		Obtains:  obtains,
		Releases: releases,
		Failures: c.failures.Load(),
		Bytes:    c.bytes.Load(),
		Live:     int64(obtains) - int64(releases),
	}
}

// Stats contains allocator call counts.
type Stats struct {
	Obtains  uint64 // successful Obtain calls
	Releases uint64 // successful Release calls
	Failures uint64 // failed Obtain calls
	Bytes    uint64 // bytes requested by successful Obtain calls
	Live     int64  // Obtains - Releases
}

// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

//go:build race

package offheap_test

import "testing"

// skipRace skips tests that hand boxes between goroutines over lfq or run
// kont protocols. The detector cannot see the SPSC queue's acquire/release
// ordering between its slot and index words and reports false races.
func skipRace(tb testing.TB) {
	tb.Helper()
	tb.Skip("skip: lfq SPSC ordering is invisible to the race detector")
}

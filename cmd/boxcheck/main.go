// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Command boxcheck reports ownership violations of offheap boxes and pool
// capabilities.
//
// Usage:
//
//	boxcheck ./...
//	go vet -vettool=$(which boxcheck) ./...
package main

import (
	"code.hybscloud.com/offheap/passes/boxcheck"
	"golang.org/x/tools/go/analysis/singlechecker"
)

func main() {
	singlechecker.Main(boxcheck.Analyzer)
}

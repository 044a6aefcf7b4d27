// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package offheap

import (
	"code.hybscloud.com/atomix"
	"go.uber.org/zap"
)

// Serial identifies a scope. Serials grow in the order scopes are opened,
// process-wide, and every token of one scope reports the same serial.
type Serial uint32

// scopes counts opened scopes.
var scopes atomix.Uint32

func nextSerial() Serial {
	return Serial(scopes.Add(1))
}

// field is the log field for s.
func (s Serial) field() zap.Field {
	return zap.Uint32("serial", uint32(s))
}

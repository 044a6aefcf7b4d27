// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package offheap

import (
	"encoding/binary"
	"math"
)

// Storable is implemented by values that can live in raw storage.
//
// StoreSize and StoreAlign describe the type, not the receiver: they must
// return the same values for every value of the type, including the zero
// value. StoreAlign must be a power of two no larger than [MaxAlign].
// Encode writes the value into dst, which is exactly StoreSize bytes.
//
// The encoding must not carry Go pointers; raw storage is invisible to the
// garbage collector. Embed other boxes with [PutBox] instead.
// The layout is private to the type and carries no ABI guarantee.
type Storable interface {
	StoreSize() int
	StoreAlign() int
	Encode(dst []byte)
}

// Decoder is satisfied by *T when T is [Storable] and *T can decode itself
// from the bytes written by Encode.
type Decoder[T any] interface {
	*T
	Storable
	Decode(src []byte)
}

// MaxAlign is the largest alignment a [Storable] may request.
const MaxAlign = 4096

// Int64 is a storable int64.
type Int64 int64

func (Int64) StoreSize() int { return 8 }
func (Int64) StoreAlign() int { return 8 }
func (v Int64) Encode(dst []byte) { binary.NativeEndian.PutUint64(dst, uint64(v)) }
func (v *Int64) Decode(src []byte) { *v = Int64(binary.NativeEndian.Uint64(src)) }

// Uint64 is a storable uint64.
type Uint64 uint64

func (Uint64) StoreSize() int { return 8 }
func (Uint64) StoreAlign() int { return 8 }
func (v Uint64) Encode(dst []byte) { binary.NativeEndian.PutUint64(dst, uint64(v)) }
func (v *Uint64) Decode(src []byte) { *v = Uint64(binary.NativeEndian.Uint64(src)) }

// Int32 is a storable int32.
type Int32 int32

func (Int32) StoreSize() int { return 4 }
func (Int32) StoreAlign() int { return 4 }
func (v Int32) Encode(dst []byte) { binary.NativeEndian.PutUint32(dst, uint32(v)) }
func (v *Int32) Decode(src []byte) { *v = Int32(binary.NativeEndian.Uint32(src)) }

// Uint32 is a storable uint32.
type Uint32 uint32

func (Uint32) StoreSize() int { return 4 }
func (Uint32) StoreAlign() int { return 4 }
func (v Uint32) Encode(dst []byte) { binary.NativeEndian.PutUint32(dst, uint32(v)) }
func (v *Uint32) Decode(src []byte) { *v = Uint32(binary.NativeEndian.Uint32(src)) }

// Float64 is a storable float64. NaN payloads are preserved bit for bit.
type Float64 float64

func (Float64) StoreSize() int { return 8 }
func (Float64) StoreAlign() int { return 8 }
func (v Float64) Encode(dst []byte) { binary.NativeEndian.PutUint64(dst, math.Float64bits(float64(v))) }
func (v *Float64) Decode(src []byte) { *v = Float64(math.Float64frombits(binary.NativeEndian.Uint64(src))) }

// Bool is a storable bool.
type Bool bool

func (Bool) StoreSize() int { return 1 }
func (Bool) StoreAlign() int { return 1 }

func (v Bool) Encode(dst []byte) {
	if v {
		dst[0] = 1
	} else {
		dst[0] = 0
	}
}

func (v *Bool) Decode(src []byte) { *v = src[0] != 0 }

// Package offheap is a minimal stand-in exposing the API boxcheck inspects.
package offheap

type Pool struct{ serial uint32 }

func (p *Pool) Dup() (*Pool, *Pool) { return &Pool{p.serial}, &Pool{p.serial} }
func (p *Pool) Discard() {}
func (p *Pool) Serial() uint32 { return p.serial }
func (p *Pool) Outstanding() int { return 0 }

type Box[T any] struct{ v T }

const BoxSize = 8

type Storable interface {
	StoreSize() int
	StoreAlign() int
	Encode(dst []byte)
}

type Decoder[T any] interface {
	*T
	Storable
	Decode(src []byte)
}

type Option func()

func With[R any](body func(p *Pool) R, opts ...Option) R { return body(&Pool{}) }

func Try[R any](body func(p *Pool) (R, error), opts ...Option) (R, error) { return body(&Pool{}) }

func Alloc[T any, PT Decoder[T]](p *Pool, v T) *Box[T] { return &Box[T]{v} }

func Deconstruct[T any, PT Decoder[T]](b *Box[T]) T { return b.v }

func Adopt[T any](p *Pool, b *Box[T]) {}

func PutBox[T any](dst []byte, b *Box[T]) {}

func GetBox[T any](src []byte) *Box[T] { return nil }

type Handoff[T any] struct{}

func (h *Handoff[T]) Send(b *Box[T]) {}
func (h *Handoff[T]) Recv() *Box[T] { return nil }

type Int64 int64

func (Int64) StoreSize() int { return 8 }
func (Int64) StoreAlign() int { return 8 }
func (Int64) Encode([]byte) {}
func (v *Int64) Decode(src []byte) {}

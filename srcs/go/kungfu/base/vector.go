package base

import (
	"unsafe"

	"github.com/pkg/errors"
)

// Vector is a typed view over a byte buffer in host byte order.
type Vector struct {
	Data  []byte
	Count int
	Type  DataType
}

func NewVector(count int, dtype DataType) *Vector {
	return &Vector{
		Data:  make([]byte, count*dtype.Size()),
		Count: count,
		Type:  dtype,
	}
}

// Slice returns a new Vector that points to [begin, end) of the original Vector.
func (b *Vector) Slice(begin, end int) *Vector {
	return &Vector{
		Data:  b.Data[begin*b.Type.Size() : end*b.Type.Size()],
		Count: end - begin,
		Type:  b.Type,
	}
}

func (b *Vector) CopyFrom(c *Vector) error {
	if b.Count != c.Count {
		return errors.Errorf("inconsistent count: %d vs %d", b.Count, c.Count)
	}
	if b.Type != c.Type {
		return errors.Errorf("inconsistent type: %s vs %s", b.Type, c.Type)
	}
	copy(b.Data, c.Data)
	return nil
}

func view[T any](b *Vector, t DataType) []T {
	if b.Type != t {
		panic(errors.Errorf("vector of %s viewed as %s", b.Type, t))
	}
	if b.Count == 0 {
		return nil
	}
	return unsafe.Slice((*T)(unsafe.Pointer(&b.Data[0])), b.Count)
}

func (b *Vector) AsU8() []uint8    { return view[uint8](b, U8) }
func (b *Vector) AsI32() []int32   { return view[int32](b, I32) }
func (b *Vector) AsI64() []int64   { return view[int64](b, I64) }
func (b *Vector) AsF32() []float32 { return view[float32](b, F32) }
func (b *Vector) AsF64() []float64 { return view[float64](b, F64) }

// F32Vector wraps xs without copying.
func F32Vector(xs []float32) *Vector {
	v := &Vector{Count: len(xs), Type: F32}
	if len(xs) > 0 {
		v.Data = unsafe.Slice((*byte)(unsafe.Pointer(&xs[0])), len(xs)*4)
	}
	return v
}

package nn

import (
	"fmt"

	"github.com/pkg/errors"
)

// Tensor is a dense row-major float32 array.
type Tensor struct {
	Shape []int
	Data  []float32
}

func numElements(shape []int) int {
	n := 1
	for _, d := range shape {
		n *= d
	}
	return n
}

func NewTensor(shape ...int) *Tensor {
	return &Tensor{
		Shape: append([]int(nil), shape...),
		Data:  make([]float32, numElements(shape)),
	}
}

// FromData wraps data without copying.
func FromData(data []float32, shape ...int) (*Tensor, error) {
	if n := numElements(shape); n != len(data) {
		return nil, errors.Errorf("shape %v needs %d elements, got %d", shape, n, len(data))
	}
	return &Tensor{Shape: append([]int(nil), shape...), Data: data}, nil
}

func (t *Tensor) Len() int { return len(t.Data) }

// Rows and Cols view a tensor of rank >= 1 as a matrix [Shape[0], rest].
func (t *Tensor) Rows() int {
	if len(t.Shape) == 0 {
		return 1
	}
	return t.Shape[0]
}

func (t *Tensor) Cols() int {
	if t.Rows() == 0 {
		return numElements(t.Shape[1:])
	}
	return len(t.Data) / t.Rows()
}

func (t *Tensor) Row(i int) []float32 {
	c := t.Cols()
	return t.Data[i*c : (i+1)*c]
}

func (t *Tensor) Clone() *Tensor {
	return &Tensor{
		Shape: append([]int(nil), t.Shape...),
		Data:  append([]float32(nil), t.Data...),
	}
}

func (t *Tensor) CopyFrom(s *Tensor) error {
	if !SameShape(t, s) {
		return errors.Errorf("copy %v into %v", s.Shape, t.Shape)
	}
	copy(t.Data, s.Data)
	return nil
}

func (t *Tensor) Zero() {
	clear(t.Data)
}

// Resize keeps the storage when it is large enough.
func (t *Tensor) Resize(shape ...int) {
	n := numElements(shape)
	if cap(t.Data) < n {
		t.Data = make([]float32, n)
	}
	t.Data = t.Data[:n]
	t.Shape = append(t.Shape[:0], shape...)
}

func (t *Tensor) String() string {
	return fmt.Sprintf("f32%v", t.Shape)
}

func SameShape(a, b *Tensor) bool {
	if len(a.Shape) != len(b.Shape) {
		return false
	}
	for i := range a.Shape {
		if a.Shape[i] != b.Shape[i] {
			return false
		}
	}
	return true
}

// Parameter is a trainable tensor and its gradient.
type Parameter struct {
	Name  string
	Value *Tensor
	Grad  *Tensor
}

func newParameter(name string, shape ...int) *Parameter {
	return &Parameter{
		Name:  name,
		Value: NewTensor(shape...),
		Grad:  NewTensor(shape...),
	}
}

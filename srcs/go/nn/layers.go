package nn

import (
	"math"
	"math/rand"
)

// Layer is one differentiable stage of a Sequential model.
// Backward must follow the Forward whose input it differentiates.
type Layer interface {
	Forward(x *Tensor) *Tensor
	Backward(dy *Tensor) *Tensor
	Parameters() []*Parameter
}

// Linear computes y = xW + b with W of shape [in, out].
type Linear struct {
	In, Out int
	W, B    *Parameter

	x     *Tensor
	y, dx Tensor
}

func NewLinear(name string, in, out int, rng *rand.Rand) *Linear {
	l := &Linear{
		In:  in,
		Out: out,
		W:   newParameter(name+".weight", in, out),
		B:   newParameter(name+".bias", out),
	}
	// He uniform for ReLU networks.
	wBound := math.Sqrt(6 / float64(in))
	for i := range l.W.Value.Data {
		l.W.Value.Data[i] = float32((2*rng.Float64() - 1) * wBound)
	}
	bBound := 1 / math.Sqrt(float64(in))
	for i := range l.B.Value.Data {
		l.B.Value.Data[i] = float32((2*rng.Float64() - 1) * bBound)
	}
	return l
}

func (l *Linear) Forward(x *Tensor) *Tensor {
	n := x.Rows()
	l.x = x
	l.y.Resize(n, l.Out)
	if n == 0 {
		return &l.y
	}
	matMul(false, false, 1, general(x, n, l.In), general(l.W.Value, l.In, l.Out), 0, general(&l.y, n, l.Out))
	addRowVector(&l.y, l.B.Value.Data)
	return &l.y
}

// Backward accumulates into W.Grad and B.Grad and returns dL/dx.
func (l *Linear) Backward(dy *Tensor) *Tensor {
	n := dy.Rows()
	l.dx.Resize(n, l.In)
	if n == 0 {
		return &l.dx
	}
	matMul(true, false, 1, general(l.x, n, l.In), general(dy, n, l.Out), 1, general(l.W.Grad, l.In, l.Out))
	sumRows(l.B.Grad.Data, dy)
	matMul(false, true, 1, general(dy, n, l.Out), general(l.W.Value, l.In, l.Out), 0, general(&l.dx, n, l.In))
	return &l.dx
}

func (l *Linear) Parameters() []*Parameter {
	return []*Parameter{l.W, l.B}
}

type ReLU struct {
	y, dx Tensor
}

func (r *ReLU) Forward(x *Tensor) *Tensor {
	r.y.Resize(x.Shape...)
	for i, v := range x.Data {
		r.y.Data[i] = max(v, 0)
	}
	return &r.y
}

func (r *ReLU) Backward(dy *Tensor) *Tensor {
	r.dx.Resize(dy.Shape...)
	for i, g := range dy.Data {
		if r.y.Data[i] > 0 {
			r.dx.Data[i] = g
		} else {
			r.dx.Data[i] = 0
		}
	}
	return &r.dx
}

func (r *ReLU) Parameters() []*Parameter { return nil }

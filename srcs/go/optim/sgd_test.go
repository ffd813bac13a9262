package optim

import (
	"testing"

	"github.com/lsds/kungfu-ddp/srcs/go/nn"
	"github.com/stretchr/testify/assert"
)

func param(v, g float32) *nn.Parameter {
	return &nn.Parameter{
		Name:  "p",
		Value: &nn.Tensor{Shape: []int{1}, Data: []float32{v}},
		Grad:  &nn.Tensor{Shape: []int{1}, Data: []float32{g}},
	}
}

func TestNesterovMatchesReference(t *testing.T) {
	p := param(1, 0.5)
	o := NewSGD([]*nn.Parameter{p}, 0.1, 0.9, 0.01, true)

	// step 1: g = 0.5 + 0.01*1 = 0.51; buf = 0.51; g = 0.51 + 0.9*0.51 = 0.969
	o.Step()
	assert.InDelta(t, 1-0.1*0.969, p.Value.Data[0], 1e-6)

	// step 2
	v := 1 - 0.1*0.969
	g := 0.5 + 0.01*v
	buf := 0.9*0.51 + g
	g = g + 0.9*buf
	o.Step()
	assert.InDelta(t, v-0.1*g, p.Value.Data[0], 1e-6)
}

func TestPlainMomentumAndVanilla(t *testing.T) {
	p := param(1, 1)
	o := NewSGD([]*nn.Parameter{p}, 0.5, 0.9, 0, false)
	o.Step()
	o.Step()
	// buf1 = 1, p = 0.5; buf2 = 1.9, p = 0.5 - 0.95
	assert.InDelta(t, -0.45, p.Value.Data[0], 1e-6)

	q := param(1, 1)
	NewSGD([]*nn.Parameter{q}, 0.5, 0, 0, false).Step()
	assert.InDelta(t, 0.5, q.Value.Data[0], 1e-6)
}

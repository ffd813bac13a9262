package nn

import (
	"fmt"
	"math/rand"

	"github.com/pkg/errors"
)

// Model is what the training loop and the replication wrapper need from a network.
type Model interface {
	// Parameters returns the trainable tensors in a stable order.
	Parameters() []*Parameter
	Forward(x *Tensor) *Tensor
	// Backward accumulates gradients of the last Forward into Parameters.
	Backward(dLogits *Tensor)
	ZeroGrad()
}

// Sequential chains layers.
type Sequential struct {
	Layers []Layer
}

func (s *Sequential) Forward(x *Tensor) *Tensor {
	for _, l := range s.Layers {
		x = l.Forward(x)
	}
	return x
}

func (s *Sequential) Backward(dy *Tensor) {
	for i := len(s.Layers) - 1; i >= 0; i-- {
		dy = s.Layers[i].Backward(dy)
	}
}

func (s *Sequential) Parameters() []*Parameter {
	var ps []*Parameter
	for _, l := range s.Layers {
		ps = append(ps, l.Parameters()...)
	}
	return ps
}

func (s *Sequential) ZeroGrad() {
	for _, p := range s.Parameters() {
		p.Grad.Zero()
	}
}

// DefaultHidden are the hidden widths of the CIFAR-10 classifier.
var DefaultHidden = []int{512, 256}

// NewMLP builds Linear-ReLU blocks through hidden widths and a final Linear to classes.
func NewMLP(in int, hidden []int, classes int, seed int64) *Sequential {
	rng := rand.New(rand.NewSource(seed))
	s := &Sequential{}
	width := in
	for i, h := range hidden {
		s.Layers = append(s.Layers, NewLinear(fmt.Sprintf("fc%d", i), width, h, rng), &ReLU{})
		width = h
	}
	s.Layers = append(s.Layers, NewLinear(fmt.Sprintf("fc%d", len(hidden)), width, classes, rng))
	return s
}

// StateDict maps parameter names to copies of their values.
func StateDict(m Model) map[string]*Tensor {
	state := make(map[string]*Tensor)
	for _, p := range m.Parameters() {
		state[p.Name] = p.Value.Clone()
	}
	return state
}

// LoadStateDict copies state into the parameters of m. Every parameter must be present with its shape.
func LoadStateDict(m Model, state map[string]*Tensor) error {
	ps := m.Parameters()
	if len(ps) != len(state) {
		return errors.Errorf("state has %d tensors, model has %d parameters", len(state), len(ps))
	}
	for _, p := range ps {
		t, ok := state[p.Name]
		if !ok {
			return errors.Errorf("missing %s", p.Name)
		}
		if err := p.Value.CopyFrom(t); err != nil {
			return errors.WithMessage(err, p.Name)
		}
	}
	return nil
}

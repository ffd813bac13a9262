// Package optim updates model parameters from their gradients.
package optim

import "github.com/lsds/kungfu-ddp/srcs/go/nn"

// SGD is stochastic gradient descent with momentum, Nesterov and L2 weight decay.
type SGD struct {
	LR          float32
	Momentum    float32
	WeightDecay float32
	Nesterov    bool

	params []*nn.Parameter
	bufs   [][]float32
}

func NewSGD(params []*nn.Parameter, lr, momentum, weightDecay float32, nesterov bool) *SGD {
	return &SGD{
		LR:          lr,
		Momentum:    momentum,
		WeightDecay: weightDecay,
		Nesterov:    nesterov,
		params:      params,
		bufs:        make([][]float32, len(params)),
	}
}

// Step applies one update:
//
//	g = grad + wd*p
//	buf = g on the first step, momentum*buf + g afterwards
//	g = g + momentum*buf if nesterov, buf otherwise
//	p = p - lr*g
func (o *SGD) Step() {
	for i, p := range o.params {
		value, grad := p.Value.Data, p.Grad.Data
		if o.Momentum != 0 && o.bufs[i] == nil {
			o.bufs[i] = make([]float32, len(value))
			for j := range value {
				o.bufs[i][j] = grad[j] + o.WeightDecay*value[j]
			}
			o.update(value, grad, o.bufs[i])
			continue
		}
		if o.Momentum != 0 {
			buf := o.bufs[i]
			for j := range value {
				buf[j] = o.Momentum*buf[j] + grad[j] + o.WeightDecay*value[j]
			}
		}
		o.update(value, grad, o.bufs[i])
	}
}

func (o *SGD) update(value, grad, buf []float32) {
	for j := range value {
		g := grad[j] + o.WeightDecay*value[j]
		switch {
		case buf == nil:
		case o.Nesterov:
			g += o.Momentum * buf[j]
		default:
			g = buf[j]
		}
		value[j] -= o.LR * g
	}
}

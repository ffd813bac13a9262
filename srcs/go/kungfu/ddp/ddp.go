// Package ddp replicates a model across the process group for data-parallel training.
package ddp

import (
	"context"
	"fmt"
	"strings"

	kb "github.com/lsds/kungfu-ddp/srcs/go/kungfu/base"
	"github.com/lsds/kungfu-ddp/srcs/go/kungfu/device"
	"github.com/lsds/kungfu-ddp/srcs/go/log"
	"github.com/lsds/kungfu-ddp/srcs/go/nn"
	"github.com/pkg/errors"
)

// Collective is the subset of a session DDP uses.
type Collective interface {
	Rank() int
	Size() int
	BroadcastContext(ctx context.Context, w kb.Workspace) error
	AllReduceContext(ctx context.Context, w kb.Workspace) error
	BytesConsensus(ctx context.Context, bs []byte, name string) (bool, error)
}

// DDP wraps a model whose gradients are averaged over all workers by SyncGradients.
type DDP struct {
	module nn.Model
	sess   Collective
	device *device.Device

	count *kb.Vector
	sum   *kb.Vector
}

var ErrModelMismatch = errors.New("replicas disagree on model structure")

// New checks that all workers built the same model and copies the parameters of rank 0 to every worker.
func New(ctx context.Context, model nn.Model, sess Collective, dev *device.Device) (*DDP, error) {
	ok, err := sess.BytesConsensus(ctx, []byte(signature(model)), "ddp::signature")
	if err != nil {
		return nil, errors.Wrap(err, "check model signature")
	}
	if !ok {
		return nil, ErrModelMismatch
	}
	for _, p := range model.Parameters() {
		v := kb.F32Vector(p.Value.Data)
		w := kb.Workspace{SendBuf: v, RecvBuf: v, OP: kb.SUM, Name: "ddp::bcast::" + p.Name}
		if err := sess.BroadcastContext(ctx, w); err != nil {
			return nil, errors.Wrapf(err, "broadcast %s", p.Name)
		}
	}
	log.Debugf("replicated %d parameters from rank 0 on %s", len(model.Parameters()), dev)
	return &DDP{
		module: model,
		sess:   sess,
		device: dev,
		count:  kb.NewVector(1, kb.F64),
		sum:    kb.NewVector(1, kb.F64),
	}, nil
}

func signature(m nn.Model) string {
	var b strings.Builder
	for _, p := range m.Parameters() {
		fmt.Fprintf(&b, "%s%v;", p.Name, p.Value.Shape)
	}
	return b.String()
}

func (d *DDP) Parameters() []*nn.Parameter { return d.module.Parameters() }

func (d *DDP) Forward(x *nn.Tensor) *nn.Tensor { return d.module.Forward(x) }

func (d *DDP) Backward(dLogits *nn.Tensor) { d.module.Backward(dLogits) }

func (d *DDP) ZeroGrad() { d.module.ZeroGrad() }

// Module returns the wrapped model.
func (d *DDP) Module() nn.Model { return d.module }

func (d *DDP) Device() *device.Device { return d.device }

// SyncGradients replaces every local gradient, computed as a mean over
// localCount samples, by the mean over all samples of all workers. It returns
// the global sample count. When no worker had samples the gradients are zero.
func (d *DDP) SyncGradients(ctx context.Context, localCount int) (int, error) {
	d.count.AsF64()[0] = float64(localCount)
	if err := d.sess.AllReduceContext(ctx, kb.Workspace{SendBuf: d.count, RecvBuf: d.sum, OP: kb.SUM, Name: "ddp::count"}); err != nil {
		return 0, errors.Wrap(err, "all-reduce sample count")
	}
	total := d.sum.AsF64()[0]
	for _, p := range d.module.Parameters() {
		g := p.Grad.Data
		for i := range g {
			g[i] *= float32(localCount)
		}
		v := kb.F32Vector(g)
		w := kb.Workspace{SendBuf: v, RecvBuf: v, OP: kb.SUM, Name: "ddp::grad::" + p.Name}
		if err := d.sess.AllReduceContext(ctx, w); err != nil {
			return 0, errors.Wrapf(err, "all-reduce %s", p.Name)
		}
		if total > 0 {
			scale := float32(1 / total)
			for i := range g {
				g[i] *= scale
			}
		}
	}
	return int(total), nil
}

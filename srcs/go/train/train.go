// Package train runs the data-parallel training loop.
package train

import (
	"context"
	"fmt"
	"io"
	"math"
	"time"

	"github.com/lsds/kungfu-ddp/srcs/go/dataset/loader"
	"github.com/lsds/kungfu-ddp/srcs/go/dataset/sampler"
	"github.com/lsds/kungfu-ddp/srcs/go/kungfu/ddp"
	"github.com/lsds/kungfu-ddp/srcs/go/kungfu/env"
	"github.com/lsds/kungfu-ddp/srcs/go/log"
	"github.com/lsds/kungfu-ddp/srcs/go/nn"
	"github.com/lsds/kungfu-ddp/srcs/go/optim"
	"github.com/pkg/errors"
)

type Options struct {
	Epochs       int
	BatchSize    int
	LearningRate float32
	Momentum     float32
	WeightDecay  float32
	Nesterov     bool
	LogEvery     int
	// Seed drives the per-epoch shuffle; all workers must agree on it.
	Seed     int64
	Prefetch int
}

var DefaultOptions = Options{
	Epochs:       5,
	BatchSize:    256,
	LearningRate: 0.02,
	Momentum:     0.9,
	WeightDecay:  1e-4,
	Nesterov:     true,
	LogEvery:     25,
	Prefetch:     2,
}

var ErrNonFiniteLoss = errors.New("non-finite loss")

type Trainer struct {
	opts    Options
	config  *env.Config
	model   *ddp.DDP
	sampler *sampler.Sampler
	loader  *loader.Loader
	sgd     *optim.SGD
	out     io.Writer

	// Metrics of the epoch in progress, or of the last epoch after Run.
	Metrics Metrics
	Elapsed time.Duration
}

// New prepares training of model on ds. Progress goes to out on the coordinator only.
func New(cfg *env.Config, model *ddp.DDP, ds loader.Dataset, opts Options, out io.Writer) (*Trainer, error) {
	if opts.Epochs < 0 || opts.LogEvery < 1 {
		return nil, errors.Errorf("invalid options %+v", opts)
	}
	s, err := sampler.New(ds.Len(), cfg.WorldSize, cfg.Rank, sampler.Options{Shuffle: true, Seed: opts.Seed})
	if err != nil {
		return nil, err
	}
	l, err := loader.New(ds, opts.BatchSize, loader.Options{Workers: model.Device().Threads, Prefetch: opts.Prefetch})
	if err != nil {
		return nil, err
	}
	return &Trainer{
		opts:    opts,
		config:  cfg,
		model:   model,
		sampler: s,
		loader:  l,
		sgd:     optim.NewSGD(model.Parameters(), opts.LearningRate, opts.Momentum, opts.WeightDecay, opts.Nesterov),
		out:     out,
	}, nil
}

func (t *Trainer) printf(format string, v ...interface{}) {
	if t.config.IsCoordinator() {
		fmt.Fprintf(t.out, format, v...)
	}
}

// Run trains for opts.Epochs epochs, numbered from 1.
func (t *Trainer) Run(ctx context.Context) error {
	t.printf(" =======  Training  ======= \n\n")
	t0 := time.Now()
	for ep := 1; ep <= t.opts.Epochs; ep++ {
		if err := t.runEpoch(ctx, ep); err != nil {
			return errors.WithMessagef(err, "epoch %d", ep)
		}
	}
	t.Elapsed = time.Since(t0)
	t.printf("\n=======  Training Finished  ======= \n\n")
	t.printf("%f\n", t.Elapsed.Seconds())
	return nil
}

func (t *Trainer) runEpoch(ctx context.Context, ep int) error {
	shard := t.sampler.ForEpoch(ep)
	it := t.loader.Epoch(ctx, shard)
	defer it.Close()
	t.Metrics.Reset()
	n := it.Len()
	log.Debugf("epoch %d: %d samples in %d batches", ep, len(shard.Indices), n)
	for b, ok := it.Next(); ok; b, ok = it.Next() {
		if err := t.step(ctx, b); err != nil {
			return errors.WithMessagef(err, "step %d", b.Index+1)
		}
		if idx := b.Index + 1; idx%t.opts.LogEvery == 0 || idx == n {
			t.printf(progressFormat, idx, n, ep, t.opts.Epochs, t.Metrics.MeanLoss(), 100*t.Metrics.Accuracy())
		}
	}
	return it.Err()
}

const progressFormat = "   == step: [%3d/%d] [%d/%d] | loss: %.3f | acc: %6.3f%%\n"

func (t *Trainer) step(ctx context.Context, b *loader.Batch) error {
	x := t.model.Device().Put("inputs", b.Inputs)
	logits := t.model.Forward(x)
	loss, dLogits, err := nn.CrossEntropy(logits, b.Labels)
	if err != nil {
		return err
	}
	if math.IsNaN(float64(loss)) || math.IsInf(float64(loss), 0) {
		return errors.Wrapf(ErrNonFiniteLoss, "%f", loss)
	}
	t.model.ZeroGrad()
	t.model.Backward(dLogits)
	if _, err := t.model.SyncGradients(ctx, b.Len()); err != nil {
		return err
	}
	t.sgd.Step()
	t.Metrics.Add(loss, nn.CountCorrect(logits, b.Labels), b.Len())
	return nil
}

// Announce prints the startup line of a worker.
func Announce(w io.Writer, cfg *env.Config) {
	fmt.Fprintf(w, "[init] == local rank: %d, global rank: %d ==\n", cfg.LocalRank, cfg.Rank)
}

// Package loader assembles batches of a dataset shard in the background.
package loader

import (
	"context"
	"sync"

	"github.com/lsds/kungfu-ddp/srcs/go/dataset/sampler"
	"github.com/lsds/kungfu-ddp/srcs/go/nn"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

// Dataset is a random-access source of fixed-size examples.
type Dataset interface {
	Len() int
	Dim() int
	// Example writes example i, as transformed for the given epoch, into dst and returns its label.
	Example(epoch, i int, dst []float32) (int, error)
}

type Options struct {
	// Workers is the number of goroutines assembling batches.
	Workers int
	// Prefetch bounds how many batches may be ready ahead of the consumer.
	Prefetch int
}

var DefaultOptions = Options{Workers: 4, Prefetch: 2}

type Loader struct {
	ds        Dataset
	batchSize int
	opts      Options
}

func New(ds Dataset, batchSize int, opts Options) (*Loader, error) {
	if batchSize < 1 {
		return nil, errors.Errorf("invalid batch size %d", batchSize)
	}
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if opts.Prefetch < 1 {
		opts.Prefetch = 1
	}
	return &Loader{ds: ds, batchSize: batchSize, opts: opts}, nil
}

func (l *Loader) BatchSize() int { return l.batchSize }

// Batch is one step's worth of examples.
type Batch struct {
	Index  int
	Inputs *nn.Tensor // [n, dim]
	Labels []int
}

func (b *Batch) Len() int { return len(b.Labels) }

func (l *Loader) load(shard sampler.Shard, i int) (*Batch, error) {
	indices := shard.Batch(i, l.batchSize)
	dim := l.ds.Dim()
	b := &Batch{
		Index:  i,
		Inputs: nn.NewTensor(len(indices), dim),
		Labels: make([]int, len(indices)),
	}
	for j, idx := range indices {
		label, err := l.ds.Example(shard.Epoch, idx, b.Inputs.Data[j*dim:(j+1)*dim])
		if err != nil {
			return nil, errors.WithMessagef(err, "batch %d of epoch %d", i, shard.Epoch)
		}
		b.Labels[j] = label
	}
	return b, nil
}

// Iterator yields the batches of one epoch in order.
type Iterator struct {
	n       int
	next    int
	results []chan *Batch
	tokens  chan struct{}

	cancel context.CancelFunc
	done   chan struct{}
	err    error
	once   sync.Once
}

// Epoch starts loading the batches of shard. Every worker of a job gets the
// same number of batches, see sampler.Shard.NumBatches.
func (l *Loader) Epoch(ctx context.Context, shard sampler.Shard) *Iterator {
	n := shard.NumBatches(l.batchSize)
	ctx, cancel := context.WithCancel(ctx)
	it := &Iterator{
		n:       n,
		results: make([]chan *Batch, n),
		tokens:  make(chan struct{}, l.opts.Prefetch),
		cancel:  cancel,
		done:    make(chan struct{}),
	}
	for i := range it.results {
		it.results[i] = make(chan *Batch, 1)
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(l.opts.Workers)
	go func() {
		defer close(it.done)
		for i := 0; i < n; i++ {
			select {
			case it.tokens <- struct{}{}:
			case <-gctx.Done():
				it.err = errors.Wrap(g.Wait(), "loader")
				if it.err == nil {
					it.err = gctx.Err()
				}
				return
			}
			i := i
			g.Go(func() error {
				b, err := l.load(shard, i)
				if err != nil {
					return err
				}
				it.results[i] <- b
				return nil
			})
		}
		it.err = g.Wait()
	}()
	return it
}

// Len is the number of batches of the epoch.
func (it *Iterator) Len() int { return it.n }

// Next blocks until the next batch is ready. It returns false at the end of
// the epoch or on failure, see Err.
func (it *Iterator) Next() (*Batch, bool) {
	if it.next >= it.n {
		return nil, false
	}
	var b *Batch
	select {
	case b = <-it.results[it.next]:
	case <-it.done:
		select {
		case b = <-it.results[it.next]:
		default:
			if it.err == nil {
				it.err = errors.Errorf("batch %d was not loaded", it.next)
			}
			return nil, false
		}
	}
	<-it.tokens
	it.next++
	return b, true
}

// Err returns the first error that stopped the iteration.
func (it *Iterator) Err() error {
	select {
	case <-it.done:
		return it.err
	default:
		return nil
	}
}

// Close stops background loading and waits for it.
func (it *Iterator) Close() {
	it.once.Do(func() {
		it.cancel()
		<-it.done
	})
}

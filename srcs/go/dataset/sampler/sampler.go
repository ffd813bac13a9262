// Package sampler partitions dataset indices among the workers of a job.
package sampler

import (
	"math/rand"

	"github.com/lsds/kungfu-ddp/srcs/go/plan"
	"github.com/pkg/errors"
)

type Options struct {
	Shuffle bool
	Seed    int64
}

// Sampler assigns each of Replicas workers a disjoint part of [0, N) per epoch.
type Sampler struct {
	n        int
	replicas int
	rank     int
	opts     Options
}

func New(n, replicas, rank int, opts Options) (*Sampler, error) {
	if n < 0 {
		return nil, errors.Errorf("invalid dataset size %d", n)
	}
	if replicas < 1 {
		return nil, errors.Errorf("invalid number of replicas %d", replicas)
	}
	if rank < 0 || rank >= replicas {
		return nil, errors.Errorf("rank %d out of range [0, %d)", rank, replicas)
	}
	return &Sampler{n: n, replicas: replicas, rank: rank, opts: opts}, nil
}

// Shard is the part of the dataset one worker visits in one epoch.
type Shard struct {
	Epoch   int
	Indices []int
	// MaxLen is the length of the longest shard of this epoch over all workers.
	MaxLen int
}

// ForEpoch returns the shard of this worker for the given epoch.
// Workers using the same seed agree on the permutation.
func (s *Sampler) ForEpoch(epoch int) Shard {
	var perm []int
	if s.opts.Shuffle {
		perm = rand.New(rand.NewSource(s.opts.Seed + int64(epoch))).Perm(s.n)
	} else {
		perm = make([]int, s.n)
		for i := range perm {
			perm[i] = i
		}
	}
	parts := plan.EvenPartition(plan.Interval{Begin: 0, End: s.n}, s.replicas)
	part := parts[s.rank]
	return Shard{
		Epoch:   epoch,
		Indices: perm[part.Begin:part.End],
		MaxLen:  parts[0].Len(),
	}
}

func (s *Sampler) Len() int { return s.n }

// NumBatches is the number of batches every worker steps through, including a
// final partial one.
func (s Shard) NumBatches(batchSize int) int {
	return plan.CeilDiv(s.MaxLen, batchSize)
}

// Batch returns the indices of the i-th batch. It may be shorter than
// batchSize, or empty on a worker whose shard is one shorter than MaxLen.
func (s Shard) Batch(i, batchSize int) []int {
	begin := min(i*batchSize, len(s.Indices))
	end := min(begin+batchSize, len(s.Indices))
	return s.Indices[begin:end]
}

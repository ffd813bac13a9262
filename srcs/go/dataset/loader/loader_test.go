package loader

import (
	"context"
	"testing"

	"github.com/lsds/kungfu-ddp/srcs/go/dataset/sampler"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDataset struct {
	n, dim int
	fail   int
}

func (d *fakeDataset) Len() int { return d.n }
func (d *fakeDataset) Dim() int { return d.dim }

func (d *fakeDataset) Example(epoch, i int, dst []float32) (int, error) {
	if i == d.fail {
		return 0, errors.Errorf("broken example %d", i)
	}
	for j := range dst {
		dst[j] = float32(i)
	}
	return i % 10, nil
}

func shard(t *testing.T, n, replicas, rank int) sampler.Shard {
	s, err := sampler.New(n, replicas, rank, sampler.Options{Shuffle: true, Seed: 1})
	require.NoError(t, err)
	return s.ForEpoch(1)
}

func TestEpochInOrder(t *testing.T) {
	ds := &fakeDataset{n: 103, dim: 3, fail: -1}
	for _, opts := range []Options{{Workers: 1, Prefetch: 1}, {Workers: 4, Prefetch: 2}, {Workers: 8, Prefetch: 16}} {
		l, err := New(ds, 10, opts)
		require.NoError(t, err)
		sh := shard(t, ds.n, 1, 0)
		it := l.Epoch(context.Background(), sh)
		assert.Equal(t, 11, it.Len())
		var seen []int
		for b, ok := it.Next(); ok; b, ok = it.Next() {
			assert.Equal(t, len(seen)/10, b.Index)
			assert.Equal(t, []int{b.Len(), 3}, b.Inputs.Shape)
			for j := 0; j < b.Len(); j++ {
				idx := int(b.Inputs.Row(j)[0])
				assert.Equal(t, idx%10, b.Labels[j])
				seen = append(seen, idx)
			}
		}
		require.NoError(t, it.Err())
		assert.Equal(t, sh.Indices, seen)
		it.Close()
	}
}

func TestShortShardYieldsEmptyBatch(t *testing.T) {
	ds := &fakeDataset{n: 9, dim: 2, fail: -1}
	l, err := New(ds, 4, DefaultOptions)
	require.NoError(t, err)
	it := l.Epoch(context.Background(), shard(t, ds.n, 2, 1))
	defer it.Close()
	var sizes []int
	for b, ok := it.Next(); ok; b, ok = it.Next() {
		sizes = append(sizes, b.Len())
	}
	require.NoError(t, it.Err())
	assert.Equal(t, []int{4, 0}, sizes)
}

func TestExampleError(t *testing.T) {
	ds := &fakeDataset{n: 50, dim: 1}
	l, err := New(ds, 5, Options{Workers: 2, Prefetch: 2})
	require.NoError(t, err)
	sh := sampler.Shard{Epoch: 0, Indices: []int{1, 2, 3, 4, 5, 6, 0, 7}, MaxLen: 8}
	it := l.Epoch(context.Background(), sh)
	defer it.Close()
	b, ok := it.Next()
	require.True(t, ok)
	assert.Equal(t, 5, b.Len())
	_, ok = it.Next()
	assert.False(t, ok)
	assert.ErrorContains(t, it.Err(), "broken example 0")
}

func TestCancel(t *testing.T) {
	ds := &fakeDataset{n: 1000, dim: 1, fail: -1}
	l, err := New(ds, 1, Options{Workers: 2, Prefetch: 1})
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	it := l.Epoch(ctx, shard(t, ds.n, 1, 0))
	_, ok := it.Next()
	require.True(t, ok)
	cancel()
	for _, ok := it.Next(); ok; _, ok = it.Next() {
	}
	assert.ErrorIs(t, it.Err(), context.Canceled)
	it.Close()
}

func TestInvalidBatchSize(t *testing.T) {
	_, err := New(&fakeDataset{}, 0, DefaultOptions)
	assert.Error(t, err)
}

package ddp

import (
	"context"
	"testing"
	"time"

	"github.com/lsds/kungfu-ddp/srcs/go/kungfu/base"
	"github.com/lsds/kungfu-ddp/srcs/go/kungfu/device"
	"github.com/lsds/kungfu-ddp/srcs/go/kungfu/env"
	"github.com/lsds/kungfu-ddp/srcs/go/kungfu/peer"
	"github.com/lsds/kungfu-ddp/srcs/go/nn"
	"github.com/lsds/kungfu-ddp/srcs/go/optim"
	"github.com/lsds/kungfu-ddp/srcs/go/plan"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

func startPeers(t *testing.T, np int, begin uint16) []*peer.Peer {
	pr := plan.PortRange{Begin: begin, End: begin + uint16(np) - 1}
	peers := make([]*peer.Peer, np)
	var g errgroup.Group
	for i := 0; i < np; i++ {
		cfg, err := env.SingleMachineEnv(i, np, pr)
		require.NoError(t, err)
		cfg.Strategy = base.BinaryTreeStar
		cfg.JoinTimeout = 10 * time.Second
		p := peer.New(cfg)
		t.Cleanup(func() { p.Close() })
		peers[i] = p
		g.Go(func() error { return p.Start(context.Background()) })
	}
	require.NoError(t, g.Wait())
	return peers
}

func TestReplicasStayIdentical(t *testing.T) {
	const np = 3
	peers := startPeers(t, np, 32300)
	ctx := context.Background()
	models := make([]*DDP, np)
	counts := []int{4, 2, 0}
	totals := make([]int, np)
	var g errgroup.Group
	for r, p := range peers {
		r, p := r, p
		g.Go(func() error {
			sess := p.CurrentSession()
			m := nn.NewMLP(8, []int{6}, 3, int64(100+r))
			d, err := New(ctx, m, sess, device.Select(r, 0, np))
			if err != nil {
				return err
			}
			models[r] = d
			opt := optim.NewSGD(d.Parameters(), 0.1, 0.9, 1e-4, true)
			d.ZeroGrad()
			if n := counts[r]; n > 0 {
				x := nn.NewTensor(n, 8)
				labels := make([]int, n)
				for i := range x.Data {
					x.Data[i] = float32((i*7+r)%11) / 11
				}
				for i := range labels {
					labels[i] = (i + r) % 3
				}
				_, dLogits, err := nn.CrossEntropy(d.Forward(x), labels)
				if err != nil {
					return err
				}
				d.Backward(dLogits)
			}
			total, err := d.SyncGradients(ctx, counts[r])
			if err != nil {
				return err
			}
			totals[r] = total
			opt.Step()
			return nil
		})
	}
	require.NoError(t, g.Wait())
	assert.Equal(t, []int{6, 6, 6}, totals)
	ref := nn.StateDict(models[0].Module())
	for r := 1; r < np; r++ {
		for name, v := range nn.StateDict(models[r].Module()) {
			assert.Equal(t, ref[name].Data, v.Data, "rank %d: %s", r, name)
		}
	}
}

func TestModelMismatch(t *testing.T) {
	const np = 2
	peers := startPeers(t, np, 32310)
	ctx := context.Background()
	errs := make([]error, np)
	var g errgroup.Group
	for r, p := range peers {
		r, p := r, p
		g.Go(func() error {
			m := nn.NewMLP(8, []int{4 + r}, 3, 1)
			_, errs[r] = New(ctx, m, p.CurrentSession(), device.Select(r, 0, np))
			return nil
		})
	}
	require.NoError(t, g.Wait())
	for _, err := range errs {
		assert.ErrorIs(t, err, ErrModelMismatch)
	}
}

type single struct{}

func (single) Rank() int { return 0 }
func (single) Size() int { return 1 }

func (single) BroadcastContext(ctx context.Context, w base.Workspace) error { return w.Forward() }
func (single) AllReduceContext(ctx context.Context, w base.Workspace) error { return w.Forward() }

func (single) BytesConsensus(ctx context.Context, bs []byte, name string) (bool, error) {
	return true, nil
}

func TestSingleWorkerKeepsMeanGradient(t *testing.T) {
	m := nn.NewMLP(2, nil, 2, 1)
	d, err := New(context.Background(), m, single{}, device.Select(0, 0, 1))
	require.NoError(t, err)
	p := d.Parameters()[0]
	for i := range p.Grad.Data {
		p.Grad.Data[i] = 0.5
	}
	total, err := d.SyncGradients(context.Background(), 5)
	require.NoError(t, err)
	assert.Equal(t, 5, total)
	for _, g := range p.Grad.Data {
		assert.InDelta(t, 0.5, g, 1e-6)
	}
}

package train

import (
	"bytes"
	"context"
	"fmt"
	"math"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/lsds/kungfu-ddp/srcs/go/kungfu/ddp"
	"github.com/lsds/kungfu-ddp/srcs/go/kungfu/device"
	"github.com/lsds/kungfu-ddp/srcs/go/kungfu/env"
	"github.com/lsds/kungfu-ddp/srcs/go/kungfu/peer"
	"github.com/lsds/kungfu-ddp/srcs/go/nn"
	"github.com/lsds/kungfu-ddp/srcs/go/plan"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

// blobs has two classes: the sign of the first feature decides the label.
type blobs struct {
	n   int
	nan bool
}

func (d *blobs) Len() int { return d.n }
func (d *blobs) Dim() int { return 4 }

func (d *blobs) Example(epoch, i int, dst []float32) (int, error) {
	label := i % 2
	sign := float32(2*label - 1)
	dst[0] = sign * (1 + float32(i%7)/7)
	dst[1] = float32(i%5) / 5
	dst[2] = -sign * 0.5
	dst[3] = float32(i%3) / 3
	if d.nan {
		dst[0] = float32(math.NaN())
	}
	return label, nil
}

func testOptions() Options {
	opts := DefaultOptions
	opts.Epochs = 3
	opts.BatchSize = 16
	opts.LearningRate = 0.05
	opts.LogEvery = 5
	return opts
}

func newTrainer(t *testing.T, cfg *env.Config, sess ddp.Collective, ds *blobs, opts Options, out *bytes.Buffer) *Trainer {
	m := nn.NewMLP(ds.Dim(), []int{8}, 2, 5)
	d, err := ddp.New(context.Background(), m, sess, device.Select(cfg.Rank, 1, cfg.WorldSize))
	require.NoError(t, err)
	tr, err := New(cfg, d, ds, opts, out)
	require.NoError(t, err)
	return tr
}

func startSingle(t *testing.T) (*env.Config, *peer.Peer) {
	cfg, err := env.SingleMachineEnv(0, 1, plan.DefaultPortRange)
	require.NoError(t, err)
	p := peer.New(cfg)
	t.Cleanup(func() { p.Close() })
	require.NoError(t, p.Start(context.Background()))
	return cfg, p
}

var progressLine = regexp.MustCompile(`^   == step: \[ *\d+/\d+\] \[\d+/\d+\] \| loss: \d+\.\d{3} \| acc: +\d{1,3}\.\d{3}%$`)

func TestSingleWorker(t *testing.T) {
	cfg, p := startSingle(t)
	var out bytes.Buffer
	tr := newTrainer(t, cfg, p.CurrentSession(), &blobs{n: 200}, testOptions(), &out)
	require.NoError(t, tr.Run(context.Background()))

	lines := strings.Split(out.String(), "\n")
	assert.Equal(t, " =======  Training  ======= ", lines[0])
	var steps []string
	for _, l := range lines {
		if strings.HasPrefix(l, "   == step:") {
			assert.Regexp(t, progressLine, l)
			steps = append(steps, l)
		}
	}
	// 13 batches per epoch: logged at 5, 10 and 13.
	require.Len(t, steps, 9)
	assert.True(t, strings.HasPrefix(steps[2], "   == step: [ 13/13] [1/3]"), steps[2])
	assert.True(t, strings.HasPrefix(steps[8], "   == step: [ 13/13] [3/3]"), steps[8])
	assert.Contains(t, out.String(), "\n=======  Training Finished  ======= \n")

	assert.Equal(t, 200, tr.Metrics.Total)
	assert.Equal(t, 13, tr.Metrics.Steps)
	assert.Greater(t, tr.Metrics.Accuracy(), 0.75)
	assert.Greater(t, tr.Elapsed, time.Duration(0))
}

func TestNonFiniteLoss(t *testing.T) {
	cfg, p := startSingle(t)
	var out bytes.Buffer
	tr := newTrainer(t, cfg, p.CurrentSession(), &blobs{n: 32, nan: true}, testOptions(), &out)
	err := tr.Run(context.Background())
	assert.ErrorIs(t, err, ErrNonFiniteLoss)
	assert.NotContains(t, out.String(), "Training Finished")
}

func TestReplicasAgree(t *testing.T) {
	const np = 2
	pr := plan.PortRange{Begin: 32330, End: 32330 + np - 1}
	trainers := make([]*Trainer, np)
	outs := make([]bytes.Buffer, np)
	var g errgroup.Group
	for r := 0; r < np; r++ {
		cfg, err := env.SingleMachineEnv(r, np, pr)
		require.NoError(t, err)
		cfg.JoinTimeout = 10 * time.Second
		p := peer.New(cfg)
		t.Cleanup(func() { p.Close() })
		r := r
		g.Go(func() error {
			if err := p.Start(context.Background()); err != nil {
				return err
			}
			// 101 samples: shards of 51 and 50.
			tr := newTrainer(t, cfg, p.CurrentSession(), &blobs{n: 101}, testOptions(), &outs[r])
			trainers[r] = tr
			return tr.Run(context.Background())
		})
	}
	require.NoError(t, g.Wait())
	assert.Empty(t, outs[1].String())
	assert.Contains(t, outs[0].String(), "[  4/4] [3/3]")
	assert.Equal(t, 51, trainers[0].Metrics.Total)
	assert.Equal(t, 50, trainers[1].Metrics.Total)

	a := nn.StateDict(trainers[0].model.Module())
	b := nn.StateDict(trainers[1].model.Module())
	for name := range a {
		assert.Equal(t, a[name].Data, b[name].Data, name)
	}
}

func TestMetrics(t *testing.T) {
	var m Metrics
	assert.Equal(t, 0.0, m.Accuracy())
	assert.Equal(t, 0.0, m.MeanLoss())
	m.Add(2, 3, 4)
	m.Add(1, 4, 4)
	assert.InDelta(t, 0.875, m.Accuracy(), 1e-9)
	assert.InDelta(t, 1.5, m.MeanLoss(), 1e-9)
	assert.GreaterOrEqual(t, m.Accuracy(), 0.0)
	assert.LessOrEqual(t, m.Accuracy(), 1.0)
	m.Reset()
	assert.Equal(t, Metrics{}, m)
}

func TestAnnounce(t *testing.T) {
	var b bytes.Buffer
	Announce(&b, &env.Config{Rank: 3, LocalRank: 1})
	assert.Equal(t, "[init] == local rank: 1, global rank: 3 ==\n", b.String())
}

func TestProgressLineFormat(t *testing.T) {
	for _, acc := range []float64{0.475, 0.075, 1} {
		line := fmt.Sprintf(progressFormat, 5, 13, 1, 3, 0.665, 100*acc)
		assert.Regexp(t, progressLine, strings.TrimSuffix(line, "\n"))
	}
}

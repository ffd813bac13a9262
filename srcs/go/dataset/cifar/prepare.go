package cifar

import (
	"context"
	"time"

	"github.com/lsds/kungfu-ddp/srcs/go/kungfu/env"
	"github.com/lsds/kungfu-ddp/srcs/go/log"
	"github.com/lsds/kungfu-ddp/srcs/go/utils"
	"github.com/pkg/errors"
)

const stallPeriod = 30 * time.Second

// State of the dataset on one worker.
type State int

const (
	AwaitingDownload State = iota
	Ready
)

func (s State) String() string {
	switch s {
	case AwaitingDownload:
		return "AWAITING_DOWNLOAD"
	case Ready:
		return "READY"
	}
	return "UNKNOWN"
}

type Barrier interface {
	BarrierContext(ctx context.Context) error
}

var ErrDatasetTimeout = errors.New("dataset barrier timed out")

// Prepare makes the dataset available under dir on every worker. Only the
// coordinator downloads; the others wait for it at a barrier bounded by
// cfg.DatasetTimeout.
func Prepare(ctx context.Context, cfg *env.Config, b Barrier, dir string) (State, error) {
	state := AwaitingDownload
	if cfg.IsCoordinator() {
		if err := Download(ctx, dir); err != nil {
			return state, errors.WithMessage(err, "prepare dataset")
		}
	}
	sd := utils.InstallStallDetector("waiting for dataset", stallPeriod)
	bctx, cancel := context.WithTimeout(ctx, cfg.DatasetTimeout)
	defer cancel()
	err := b.BarrierContext(bctx)
	took := sd.Stop()
	if err != nil {
		if errors.Is(bctx.Err(), context.DeadlineExceeded) {
			return state, errors.Wrapf(ErrDatasetTimeout, "after %s: %v", took, err)
		}
		return state, errors.Wrap(err, "dataset barrier")
	}
	state = Ready
	log.Debugf("dataset %s after %s", state, took)
	return state, nil
}

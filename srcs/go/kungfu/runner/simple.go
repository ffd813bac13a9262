package runner

import (
	"context"

	"github.com/lsds/kungfu-ddp/srcs/go/kungfu/job"
	"github.com/lsds/kungfu-ddp/srcs/go/log"
	"github.com/lsds/kungfu-ddp/srcs/go/plan"
	"github.com/lsds/kungfu-ddp/srcs/go/utils"
	"github.com/lsds/kungfu-ddp/srcs/go/utils/runner/local"
	"github.com/lsds/kungfu-ddp/srcs/go/utils/runner/remote"
)

// SimpleRun runs the peers of pl that live on selfIPv4.
func SimpleRun(ctx context.Context, selfIPv4 uint32, pl plan.PeerList, j job.Job, verboseLog bool) error {
	procs, err := j.CreateProcs(pl, selfIPv4)
	if err != nil {
		return err
	}
	log.Infof("will parallel run %d instances of %s with %q", len(procs), j.Prog, j.Args)
	d, err := utils.Measure(func() error { return local.RunAll(ctx, procs, verboseLog) })
	log.Infof("all %d/%d local peers finished, took %s", len(procs), len(pl), d)
	return err
}

// RemoteRun runs every peer of pl over ssh.
func RemoteRun(ctx context.Context, user string, pl plan.PeerList, j job.Job, verboseLog bool) error {
	procs, err := j.CreateAllProcs(pl)
	if err != nil {
		return err
	}
	log.Infof("will run %d instances of %s on %d hosts", len(procs), j.Prog, pl.HostCount())
	d, err := utils.Measure(func() error { return remote.RemoteRunAll(ctx, user, procs, verboseLog, j.LogDir) })
	log.Infof("all %d peers finished, took %s", len(pl), d)
	return err
}

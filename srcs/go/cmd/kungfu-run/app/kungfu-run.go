package app

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/lsds/kungfu-ddp/srcs/go/kungfu/job"
	"github.com/lsds/kungfu-ddp/srcs/go/kungfu/runner"
	"github.com/lsds/kungfu-ddp/srcs/go/log"
	"github.com/lsds/kungfu-ddp/srcs/go/plan"
	"github.com/lsds/kungfu-ddp/srcs/go/utils"
)

func Main(args []string) {
	var f runner.FlagSet
	runner.Init(&f, args)
	if logfile := f.Logfile; len(logfile) > 0 {
		if len(f.LogDir) > 0 {
			logfile = filepath.Join(f.LogDir, logfile)
		}
		dir := filepath.Dir(logfile)
		if err := os.MkdirAll(dir, os.ModePerm); err != nil {
			log.Warnf("failed to create log dir %s: %v", dir, err)
		}
		lf, err := os.Create(logfile)
		if err != nil {
			utils.ExitErr(err)
		}
		defer lf.Close()
		log.SetOutput(lf)
	}
	t0 := time.Now()
	defer func(prog string) { log.Debugf("%s finished, took %s", prog, time.Since(t0)) }(utils.ProgName())
	localhostIPv4, err := runner.InferSelfIPv4(f.Self, f.NIC)
	if err != nil {
		utils.ExitErr(err)
	}
	log.Debugf("Using self=%s", plan.FormatIPv4(localhostIPv4))
	if _, ok := f.HostList.Lookup(localhostIPv4); !ok && !f.Remote {
		log.Exitf("%s not in %s", plan.FormatIPv4(localhostIPv4), f.HostList)
	}
	peers, err := f.HostList.GenPeerList(f.ClusterSize, f.PortRange)
	if err != nil {
		log.Exitf("failed to create peers: %v", err)
	}
	j := job.Job{
		RunID:     uuid.NewString(),
		Strategy:  f.Strategy,
		HostList:  f.HostList,
		PortRange: f.PortRange,
		Prog:      f.Prog,
		Args:      f.Args,
		LogDir:    f.LogDir,
	}
	log.Infof("run %s: %d peers on %s", j.RunID, len(peers), utils.Pluralize(peers.HostCount(), "host", "hosts"))
	log.Debugf("%s", j.DebugString())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	trap(cancel)
	if f.Timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, f.Timeout)
		defer cancel()
	}
	if f.Remote {
		err = runner.RemoteRun(ctx, f.User, peers, j, f.VerboseLog)
	} else {
		err = runner.SimpleRun(ctx, localhostIPv4, peers, j, f.VerboseLog)
	}
	if err != nil {
		utils.ExitErr(err)
	}
}

func trap(cancel context.CancelFunc) {
	utils.Trap(func(sig os.Signal) {
		log.Warnf("%s trapped", sig)
		cancel()
		log.Debugf("cancelled")
	})
}

// kungfu-train-cifar trains a CIFAR-10 classifier on every worker started by kungfu-run.
// The model is a 3072-512-256-10 MLP on the CPU, so expect MLP-level accuracy, not that of a ResNet.
package main

import (
	"context"
	"os"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/lsds/kungfu-ddp/srcs/go/checkpoint"
	"github.com/lsds/kungfu-ddp/srcs/go/dataset/cifar"
	"github.com/lsds/kungfu-ddp/srcs/go/kungfu/ddp"
	"github.com/lsds/kungfu-ddp/srcs/go/kungfu/device"
	"github.com/lsds/kungfu-ddp/srcs/go/kungfu/env"
	"github.com/lsds/kungfu-ddp/srcs/go/kungfu/peer"
	"github.com/lsds/kungfu-ddp/srcs/go/log"
	"github.com/lsds/kungfu-ddp/srcs/go/monitor"
	"github.com/lsds/kungfu-ddp/srcs/go/nn"
	"github.com/lsds/kungfu-ddp/srcs/go/train"
	"github.com/lsds/kungfu-ddp/srcs/go/utils"
)

const (
	dataDir        = "./data"
	checkpointPath = "./ckpt.safetensors"
	modelSeed      = 0
	augmentSeed    = 0
)

func main() {
	defer log.Flush()
	cfg, err := env.ParseConfigFromEnv()
	if err != nil {
		utils.ExitErr(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	utils.Trap(func(s os.Signal) {
		log.Warnf("%s received, stopping", s)
		cancel()
	})

	p := peer.New(cfg)
	defer p.Close()
	if err := p.Start(ctx); err != nil {
		utils.ExitErr(err)
	}
	sess := p.CurrentSession()
	dev := device.Select(cfg.Rank, cfg.DeviceCount, sess.LocalSize())
	train.Announce(os.Stdout, cfg)

	model := nn.NewMLP(cifar.ImageSize, nn.DefaultHidden, cifar.NumClasses, modelSeed)
	net, err := ddp.New(ctx, model, sess, dev)
	if err != nil {
		utils.ExitErr(err)
	}

	if _, err := cifar.Prepare(ctx, cfg, sess, dataDir); err != nil {
		utils.ExitErr(err)
	}
	trainset, err := cifar.Open(dataDir, true, cifar.TrainTransform(augmentSeed))
	if err != nil {
		utils.ExitErr(err)
	}

	t, err := train.New(cfg, net, trainset, train.DefaultOptions, os.Stdout)
	if err != nil {
		utils.ExitErr(err)
	}
	if err := t.Run(ctx); err != nil {
		utils.ExitErr(err)
	}
	logTraffic(cfg.Rank, monitor.GetMonitor())
	if cfg.IsCoordinator() {
		state := dev.ToHost(nn.StateDict(net.Module()))
		if err := checkpoint.Save(checkpointPath, state); err != nil {
			utils.ExitErr(err)
		}
	}
}

func logTraffic(rank int, m monitor.Monitor) {
	egress, ingress := m.Totals()
	log.Infof("rank %d sent %s, received %s", rank, humanize.Bytes(uint64(egress)), humanize.Bytes(uint64(ingress)))
	var b strings.Builder
	m.WriteTo(&b)
	log.Debugf("traffic by peer:\n%s", b.String())
}

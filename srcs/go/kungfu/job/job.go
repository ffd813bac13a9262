package job

import (
	"fmt"
	"os"
	"strconv"

	"github.com/lsds/kungfu-ddp/srcs/go/kungfu/base"
	"github.com/lsds/kungfu-ddp/srcs/go/kungfu/config"
	"github.com/lsds/kungfu-ddp/srcs/go/kungfu/env"
	"github.com/lsds/kungfu-ddp/srcs/go/plan"
	"github.com/lsds/kungfu-ddp/srcs/go/proc"
	"github.com/pkg/errors"
)

// Job describes W copies of one program forming a single process group.
type Job struct {
	RunID     string
	Strategy  base.Strategy
	HostList  plan.HostList
	PortRange plan.PortRange
	Prog      string
	Args      []string
	LogDir    string
}

// forwardedEnvKeys are passed from the launcher to every worker when set.
var forwardedEnvKeys = append([]string{
	env.DeviceCountEnvKey,
	env.JoinTimeoutEnvKey,
	env.DatasetTimeoutEnvKey,
}, config.ConfigEnvKeys...)

var lookupEnv = os.LookupEnv

func (j Job) NewProc(peer plan.PeerID, pl plan.PeerList) (proc.Proc, error) {
	rank, ok := pl.Rank(peer)
	if !ok {
		return proc.Proc{}, errors.Errorf("%s not in %s", peer, pl)
	}
	localRank, _ := pl.LocalRank(peer)
	envs := proc.Envs{
		env.RankEnvKey:              strconv.Itoa(rank),
		env.LocalRankEnvKey:         strconv.Itoa(localRank),
		env.WorldSizeEnvKey:         strconv.Itoa(len(pl)),
		env.SelfSpecEnvKey:          peer.String(),
		env.PeerListEnvKey:          pl.String(),
		env.AllReduceStrategyEnvKey: j.Strategy.String(),
		env.PortRangeEnvKey:         j.PortRange.String(),
	}
	if len(j.RunID) > 0 {
		envs[env.RunIDEnvKey] = j.RunID
	}
	allEnvs := proc.Merge(getConfigEnvs(), envs)
	var pubAddr string
	if h, ok := j.HostList.Lookup(peer.IPv4); ok {
		pubAddr = h.PublicAddr
	}
	return proc.Proc{
		Name:     fmt.Sprintf("%s.%d", plan.FormatIPv4(peer.IPv4), peer.Port),
		Prog:     j.Prog,
		Args:     j.Args,
		Envs:     allEnvs,
		Hostname: pubAddr,
		LogDir:   j.LogDir,
	}, nil
}

// CreateProcs returns the processes of pl that run on host.
func (j Job) CreateProcs(pl plan.PeerList, host uint32) ([]proc.Proc, error) {
	var ps []proc.Proc
	for _, self := range pl.On(host) {
		p, err := j.NewProc(self, pl)
		if err != nil {
			return nil, err
		}
		ps = append(ps, p)
	}
	return ps, nil
}

// CreateAllProcs returns one process per peer of pl.
func (j Job) CreateAllProcs(pl plan.PeerList) ([]proc.Proc, error) {
	var ps []proc.Proc
	for _, self := range pl {
		p, err := j.NewProc(self, pl)
		if err != nil {
			return nil, err
		}
		ps = append(ps, p)
	}
	return ps, nil
}

func (j Job) ProgAndArgs() []string {
	a := []string{j.Prog}
	a = append(a, j.Args...)
	return a
}

func getConfigEnvs() proc.Envs {
	envs := make(proc.Envs)
	for _, k := range forwardedEnvKeys {
		if val, ok := lookupEnv(k); ok && len(val) > 0 {
			envs[k] = val
		}
	}
	return envs
}

func (j Job) DebugString() string {
	return fmt.Sprintf("job{run=%s, cmd=%q}", j.RunID, j.ProgAndArgs())
}

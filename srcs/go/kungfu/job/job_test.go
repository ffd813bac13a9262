package job

import (
	"testing"

	"github.com/lsds/kungfu-ddp/srcs/go/kungfu/base"
	"github.com/lsds/kungfu-ddp/srcs/go/kungfu/config"
	"github.com/lsds/kungfu-ddp/srcs/go/kungfu/env"
	"github.com/lsds/kungfu-ddp/srcs/go/plan"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fakeEnv(t *testing.T, kvs map[string]string) {
	old := lookupEnv
	lookupEnv = func(k string) (string, bool) {
		v, ok := kvs[k]
		return v, ok
	}
	t.Cleanup(func() { lookupEnv = old })
}

func TestCreateProcs(t *testing.T) {
	fakeEnv(t, map[string]string{
		config.LogLevelEnvKey:    "DEBUG",
		env.JoinTimeoutEnvKey:    "30s",
		"KUNGFU_NOT_FORWARDED":   "1",
		env.DatasetTimeoutEnvKey: "",
	})
	hl, err := plan.ParseHostList("192.168.1.11:2,192.168.1.12:2:node2")
	require.NoError(t, err)
	pr := plan.PortRange{Begin: 10000, End: 10010}
	pl, err := hl.GenPeerList(4, pr)
	require.NoError(t, err)
	j := Job{RunID: "run-1", Strategy: base.Ring, HostList: hl, PortRange: pr, Prog: "train", Args: []string{"-v"}}

	ps, err := j.CreateProcs(pl, plan.MustParseIPv4("192.168.1.12"))
	require.NoError(t, err)
	require.Len(t, ps, 2)
	p := ps[1]
	assert.Equal(t, "192.168.1.12.10001", p.Name)
	assert.Equal(t, "node2", p.Hostname)
	assert.Equal(t, "3", p.Envs[env.RankEnvKey])
	assert.Equal(t, "1", p.Envs[env.LocalRankEnvKey])
	assert.Equal(t, "4", p.Envs[env.WorldSizeEnvKey])
	assert.Equal(t, pl.String(), p.Envs[env.PeerListEnvKey])
	assert.Equal(t, "192.168.1.12:10001", p.Envs[env.SelfSpecEnvKey])
	assert.Equal(t, "RING", p.Envs[env.AllReduceStrategyEnvKey])
	assert.Equal(t, "run-1", p.Envs[env.RunIDEnvKey])
	assert.Equal(t, "DEBUG", p.Envs[config.LogLevelEnvKey])
	assert.Equal(t, "30s", p.Envs[env.JoinTimeoutEnvKey])
	assert.NotContains(t, p.Envs, "KUNGFU_NOT_FORWARDED")
	assert.NotContains(t, p.Envs, env.DatasetTimeoutEnvKey)

	all, err := j.CreateAllProcs(pl)
	require.NoError(t, err)
	assert.Len(t, all, 4)
	for i, p := range all {
		cfg, err := env.ParseConfigFromLookup(func(k string) (string, bool) {
			v, ok := p.Envs[k]
			return v, ok
		})
		require.NoError(t, err)
		assert.Equal(t, i, cfg.Rank)
		assert.Equal(t, pl[i], cfg.Self)
		assert.Equal(t, base.Ring, cfg.Strategy)
	}
}

func TestNewProcUnknownPeer(t *testing.T) {
	pl := plan.PeerList{{IPv4: plan.MustParseIPv4("127.0.0.1"), Port: 10000}}
	_, err := Job{}.NewProc(plan.PeerID{IPv4: plan.MustParseIPv4("127.0.0.1"), Port: 10001}, pl)
	assert.Error(t, err)
}

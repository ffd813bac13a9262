package env

import (
	"runtime"
	"testing"
	"time"

	kb "github.com/lsds/kungfu-ddp/srcs/go/kungfu/base"
	"github.com/lsds/kungfu-ddp/srcs/go/plan"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseConfigFromEnv(t *testing.T) {
	t.Setenv(RankEnvKey, "1")
	t.Setenv(LocalRankEnvKey, "1")
	t.Setenv(WorldSizeEnvKey, "2")
	t.Setenv(PeerListEnvKey, "127.0.0.1:20000,127.0.0.1:20001")
	t.Setenv(SelfSpecEnvKey, "127.0.0.1:20001")
	t.Setenv(AllReduceStrategyEnvKey, "RING")
	t.Setenv(JoinTimeoutEnvKey, "5s")
	t.Setenv(DeviceCountEnvKey, "2")

	cfg, err := ParseConfigFromEnv()
	require.NoError(t, err)
	assert.Equal(t, 1, cfg.Rank)
	assert.Equal(t, 2, cfg.WorldSize)
	assert.False(t, cfg.IsCoordinator())
	assert.Equal(t, "127.0.0.1:20001", cfg.Self.String())
	assert.Equal(t, kb.Ring, cfg.Strategy)
	assert.Equal(t, 5*time.Second, cfg.JoinTimeout)
	assert.Equal(t, DefaultDatasetTimeout, cfg.DatasetTimeout)
	assert.Equal(t, 2, cfg.DeviceCount)
}

func TestDefaults(t *testing.T) {
	t.Setenv(RankEnvKey, "0")
	t.Setenv(LocalRankEnvKey, "0")
	cfg, err := ParseConfigFromEnv()
	require.NoError(t, err)
	assert.True(t, cfg.IsCoordinator())
	assert.True(t, cfg.Single())
	assert.Equal(t, kb.DefaultStrategy, cfg.Strategy)
	assert.Equal(t, "127.0.0.1:10000", cfg.Self.String())
	assert.Equal(t, DefaultJoinTimeout, cfg.JoinTimeout)
}

func TestInvalidEnv(t *testing.T) {
	for _, tc := range []struct {
		name string
		env  map[string]string
		want string
	}{
		{"missing rank", map[string]string{LocalRankEnvKey: "0"}, RankEnvKey},
		{"missing local rank", map[string]string{RankEnvKey: "0"}, LocalRankEnvKey},
		{"non integer", map[string]string{RankEnvKey: "x", LocalRankEnvKey: "0"}, RankEnvKey},
		{"negative", map[string]string{RankEnvKey: "0", LocalRankEnvKey: "-1"}, LocalRankEnvKey},
		{"rank out of range", map[string]string{RankEnvKey: "2", LocalRankEnvKey: "0", WorldSizeEnvKey: "2"}, WorldSizeEnvKey},
		{"peer count", map[string]string{RankEnvKey: "0", LocalRankEnvKey: "0", WorldSizeEnvKey: "2", PeerListEnvKey: "127.0.0.1:1"}, PeerListEnvKey},
		{"strategy", map[string]string{RankEnvKey: "0", LocalRankEnvKey: "0", AllReduceStrategyEnvKey: "FOO"}, AllReduceStrategyEnvKey},
		{"timeout", map[string]string{RankEnvKey: "0", LocalRankEnvKey: "0", JoinTimeoutEnvKey: "-1s"}, JoinTimeoutEnvKey},
	} {
		t.Run(tc.name, func(t *testing.T) {
			lookup := func(k string) (string, bool) {
				v, ok := tc.env[k]
				return v, ok
			}
			_, err := parseConfig(lookup)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestToken(t *testing.T) {
	a, err := SingleMachineEnv(0, 2, plan.DefaultPortRange)
	require.NoError(t, err)
	b, err := SingleMachineEnv(1, 2, plan.DefaultPortRange)
	require.NoError(t, err)
	assert.Equal(t, a.Token(), b.Token())
	b.RunID = "other"
	assert.NotEqual(t, a.Token(), b.Token())
}

func TestSingleMachineEnvBeyondCPUCount(t *testing.T) {
	size := runtime.NumCPU() + 3
	cfg, err := SingleMachineEnv(size-1, size, plan.DefaultPortRange)
	require.NoError(t, err)
	assert.Len(t, cfg.InitPeers, size)
	assert.Equal(t, cfg.InitPeers[size-1], cfg.Self)
	assert.Equal(t, "127.0.0.1", plan.FormatIPv4(cfg.Self.IPv4))
}

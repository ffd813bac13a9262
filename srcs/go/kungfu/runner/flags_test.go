package runner

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/lsds/kungfu-ddp/srcs/go/kungfu/base"
	"github.com/lsds/kungfu-ddp/srcs/go/plan"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDefaults(t *testing.T) {
	var f FlagSet
	require.NoError(t, f.Parse([]string{"kungfu-run", "-np", "4", "./kungfu-train-cifar", "-x"}))
	assert.Equal(t, 4, f.ClusterSize)
	assert.Equal(t, plan.DefaultHostList, f.HostList)
	assert.Equal(t, plan.DefaultPortRange, f.PortRange)
	assert.Equal(t, base.DefaultStrategy, f.Strategy)
	assert.Equal(t, "./kungfu-train-cifar", f.Prog)
	assert.Equal(t, []string{"-x"}, f.Args)
	assert.False(t, f.Remote)
}

func TestParseFlags(t *testing.T) {
	var f FlagSet
	args := []string{"kungfu-run",
		"-np", "3",
		"-H", "10.0.0.1:2,10.0.0.2:2",
		"-port-range", "20000-20010",
		"-strategy", "RING",
		"-timeout", "1m",
		"-remote", "-u", "alice",
		"-logdir", "logs",
		"prog"}
	require.NoError(t, f.Parse(args))
	assert.Len(t, f.HostList, 2)
	assert.Equal(t, plan.PortRange{Begin: 20000, End: 20010}, f.PortRange)
	assert.Equal(t, base.Ring, f.Strategy)
	assert.Equal(t, time.Minute, f.Timeout)
	assert.True(t, f.Remote)
	assert.Equal(t, "alice", f.User)
	assert.Equal(t, "logs", f.LogDir)
}

func TestParseHostfile(t *testing.T) {
	name := filepath.Join(t.TempDir(), "hosts")
	require.NoError(t, os.WriteFile(name, []byte("10.0.0.1 slots=4\n10.0.0.2 slots=4\n"), 0644))
	var f FlagSet
	require.NoError(t, f.Parse([]string{"kungfu-run", "-hostfile", name, "-H", "127.0.0.1:1", "prog"}))
	assert.Equal(t, 8, f.HostList.Cap())
}

func TestParseErrors(t *testing.T) {
	for _, args := range [][]string{
		{"kungfu-run"},
		{"kungfu-run", "-np", "0", "prog"},
		{"kungfu-run", "-strategy", "NOPE", "prog"},
		{"kungfu-run", "-port-range", "x", "prog"},
		{"kungfu-run", "-H", "nohost", "prog"},
	} {
		var f FlagSet
		assert.Error(t, f.Parse(args), "%q", args)
	}
}

func TestInferSelfIPv4(t *testing.T) {
	ip, err := InferSelfIPv4("", "")
	require.NoError(t, err)
	assert.Equal(t, plan.MustParseIPv4("127.0.0.1"), ip)
	ip, err = InferSelfIPv4("10.1.2.3", "")
	require.NoError(t, err)
	assert.Equal(t, "10.1.2.3", plan.FormatIPv4(ip))
	_, err = InferSelfIPv4("", "no-such-nic0")
	assert.Error(t, err)
}

func TestInferSelfIPv4Resolves(t *testing.T) {
	ip, err := InferSelfIPv4("localhost", "")
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1", plan.FormatIPv4(ip))
}

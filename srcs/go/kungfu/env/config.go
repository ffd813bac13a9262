package env

import (
	"hash/fnv"
	"os"
	"runtime"
	"strconv"
	"time"

	kb "github.com/lsds/kungfu-ddp/srcs/go/kungfu/base"
	"github.com/lsds/kungfu-ddp/srcs/go/plan"
	"github.com/pkg/errors"
)

const (
	DefaultJoinTimeout    = 2 * time.Minute
	DefaultDatasetTimeout = 30 * time.Minute
)

// Config is the worker configuration, read once at process entry.
type Config struct {
	Rank      int
	LocalRank int
	WorldSize int

	Self      plan.PeerID
	InitPeers plan.PeerList
	Strategy  kb.Strategy

	DeviceCount    int
	JoinTimeout    time.Duration
	DatasetTimeout time.Duration
	RunID          string

	isCoordinator bool
}

// IsCoordinator reports whether this worker is global rank 0.
func (c *Config) IsCoordinator() bool {
	return c.isCoordinator
}

// Single reports whether the job has only this worker.
func (c *Config) Single() bool {
	return c.WorldSize == 1
}

// Token identifies the run on every collective connection, so that workers of
// different runs sharing a port range reject each other.
func (c *Config) Token() uint32 {
	h := fnv.New32a()
	h.Write([]byte(c.RunID))
	h.Write([]byte(c.InitPeers.String()))
	return h.Sum32()
}

var (
	errMissingEnv = errors.New("missing environment variable")
	errInvalidEnv = errors.New("invalid environment variable")
)

func ParseConfigFromEnv() (*Config, error) {
	return parseConfig(os.LookupEnv)
}

type lookupFunc func(string) (string, bool)

// ParseConfigFromLookup is ParseConfigFromEnv reading from lookup instead of the process environment.
func ParseConfigFromLookup(lookup func(string) (string, bool)) (*Config, error) {
	return parseConfig(lookup)
}

func parseConfig(lookup lookupFunc) (*Config, error) {
	rank, err := requireNonNegative(lookup, RankEnvKey)
	if err != nil {
		return nil, err
	}
	localRank, err := requireNonNegative(lookup, LocalRankEnvKey)
	if err != nil {
		return nil, err
	}
	worldSize := 1
	if val, ok := lookup(WorldSizeEnvKey); ok {
		if worldSize, err = parseInt(WorldSizeEnvKey, val); err != nil {
			return nil, err
		}
		if worldSize < 1 {
			return nil, errors.Wrapf(errInvalidEnv, "%s=%d, must be positive", WorldSizeEnvKey, worldSize)
		}
	}
	if rank >= worldSize {
		return nil, errors.Wrapf(errInvalidEnv, "%s=%d out of range for %s=%d", RankEnvKey, rank, WorldSizeEnvKey, worldSize)
	}
	initPeers, err := getInitPeers(lookup, worldSize)
	if err != nil {
		return nil, err
	}
	self := initPeers[rank]
	if val, ok := lookup(SelfSpecEnvKey); ok {
		id, err := plan.ParsePeerID(val)
		if err != nil {
			return nil, errors.Wrapf(errInvalidEnv, "%s=%q: %v", SelfSpecEnvKey, val, err)
		}
		if *id != self {
			return nil, errors.Wrapf(errInvalidEnv, "%s=%s disagrees with %s[%d]=%s", SelfSpecEnvKey, id, PeerListEnvKey, rank, self)
		}
	}
	strategy := kb.DefaultStrategy
	if val, ok := lookup(AllReduceStrategyEnvKey); ok && len(val) > 0 {
		s, err := kb.ParseStrategy(val)
		if err != nil {
			return nil, errors.Wrapf(errInvalidEnv, "%s: %v", AllReduceStrategyEnvKey, err)
		}
		strategy = *s
	}
	deviceCount := runtime.NumCPU()
	if val, ok := lookup(DeviceCountEnvKey); ok {
		if deviceCount, err = parseInt(DeviceCountEnvKey, val); err != nil {
			return nil, err
		}
	}
	joinTimeout, err := getDuration(lookup, JoinTimeoutEnvKey, DefaultJoinTimeout)
	if err != nil {
		return nil, err
	}
	datasetTimeout, err := getDuration(lookup, DatasetTimeoutEnvKey, DefaultDatasetTimeout)
	if err != nil {
		return nil, err
	}
	runID, _ := lookup(RunIDEnvKey)
	return &Config{
		Rank:           rank,
		LocalRank:      localRank,
		WorldSize:      worldSize,
		Self:           self,
		InitPeers:      initPeers,
		Strategy:       strategy,
		DeviceCount:    deviceCount,
		JoinTimeout:    joinTimeout,
		DatasetTimeout: datasetTimeout,
		RunID:          runID,
		isCoordinator:  rank == 0,
	}, nil
}

// SingleMachineEnv returns the configuration of worker rank out of size on 127.0.0.1.
func SingleMachineEnv(rank, size int, pr plan.PortRange) (*Config, error) {
	pl, err := localHostList(size).GenPeerList(size, pr)
	if err != nil {
		return nil, err
	}
	return &Config{
		Rank:           rank,
		LocalRank:      rank,
		WorldSize:      size,
		Self:           pl[rank],
		InitPeers:      pl,
		Strategy:       kb.DefaultStrategy,
		DeviceCount:    runtime.NumCPU(),
		JoinTimeout:    DefaultJoinTimeout,
		DatasetTimeout: DefaultDatasetTimeout,
		isCoordinator:  rank == 0,
	}, nil
}

func getInitPeers(lookup lookupFunc, worldSize int) (plan.PeerList, error) {
	if val, ok := lookup(PeerListEnvKey); ok {
		pl, err := plan.ParsePeerList(val)
		if err != nil {
			return nil, errors.Wrapf(errInvalidEnv, "%s: %v", PeerListEnvKey, err)
		}
		if len(pl) != worldSize {
			return nil, errors.Wrapf(errInvalidEnv, "%s has %d peers, %s=%d", PeerListEnvKey, len(pl), WorldSizeEnvKey, worldSize)
		}
		return pl, nil
	}
	pr := plan.DefaultPortRange
	if val, ok := lookup(PortRangeEnvKey); ok {
		if err := pr.Set(val); err != nil {
			return nil, errors.Wrapf(errInvalidEnv, "%s: %v", PortRangeEnvKey, err)
		}
	}
	return localHostList(worldSize).GenPeerList(worldSize, pr)
}

// localHostList has one slot per worker on 127.0.0.1, whatever the CPU count.
func localHostList(size int) plan.HostList {
	return plan.HostList{{IPv4: plan.MustParseIPv4(`127.0.0.1`), Slots: size, PublicAddr: `127.0.0.1`}}
}

func requireNonNegative(lookup lookupFunc, key string) (int, error) {
	val, ok := lookup(key)
	if !ok {
		return 0, errors.Wrapf(errMissingEnv, "%s", key)
	}
	n, err := parseInt(key, val)
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, errors.Wrapf(errInvalidEnv, "%s=%d, must be non-negative", key, n)
	}
	return n, nil
}

func parseInt(key, val string) (int, error) {
	n, err := strconv.Atoi(val)
	if err != nil {
		return 0, errors.Wrapf(errInvalidEnv, "%s=%q is not an integer", key, val)
	}
	return n, nil
}

func getDuration(lookup lookupFunc, key string, def time.Duration) (time.Duration, error) {
	val, ok := lookup(key)
	if !ok || len(val) == 0 {
		return def, nil
	}
	d, err := time.ParseDuration(val)
	if err != nil || d <= 0 {
		return 0, errors.Wrapf(errInvalidEnv, "%s=%q is not a positive duration", key, val)
	}
	return d, nil
}

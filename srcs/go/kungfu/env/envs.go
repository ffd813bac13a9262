package env

// Worker identity, set by kungfu-run or any launcher with the same contract.
const (
	RankEnvKey      = `RANK`
	LocalRankEnvKey = `LOCAL_RANK`
	WorldSizeEnvKey = `WORLD_SIZE`
)

// Internal environment variables set by kungfu-run, users should not set them.
const (
	PeerListEnvKey          = `KUNGFU_INIT_PEERS`
	SelfSpecEnvKey          = `KUNGFU_SELF_SPEC` // self spec should never change during the life of a process
	AllReduceStrategyEnvKey = `KUNGFU_ALLREDUCE_STRATEGY`
	PortRangeEnvKey         = `KUNGFU_PORT_RANGE`
	RunIDEnvKey             = `KUNGFU_RUN_ID`
)

// Tunables with defaults.
const (
	DeviceCountEnvKey    = `KUNGFU_DEVICE_COUNT`
	JoinTimeoutEnvKey    = `KUNGFU_JOIN_TIMEOUT`
	DatasetTimeoutEnvKey = `KUNGFU_DATASET_TIMEOUT`
)

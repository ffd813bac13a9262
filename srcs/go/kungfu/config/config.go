package config

import (
	"os"
	"strings"
	"time"
)

const (
	ConnRetryCount  = 500
	ConnRetryPeriod = 200 * time.Millisecond
)

const (
	EnableStallDetectionEnvKey = `KUNGFU_CONFIG_ENABLE_STALL_DETECTION`
	LogLevelEnvKey             = `KUNGFU_CONFIG_LOG_LEVEL`
	StrategyHashMethodEnvKey   = `KUNGFU_CONFIG_STRATEGY_HASH_METHOD`
	EnableMonitoringEnvKey     = `KUNGFU_CONFIG_ENABLE_MONITORING`
	MonitoringPeriodEnvKey     = `KUNGFU_CONFIG_MONITORING_PERIOD`
)

// ConfigEnvKeys are forwarded by kungfu-run to every worker.
var ConfigEnvKeys = []string{
	EnableStallDetectionEnvKey,
	LogLevelEnvKey,
	StrategyHashMethodEnvKey,
	EnableMonitoringEnvKey,
	MonitoringPeriodEnvKey,
}

var (
	EnableStallDetection = false
	LogLevel             = `INFO`
	StrategyHashMethod   = `NAME`
	EnableMonitoring     = true
	MonitoringPeriod     = 1 * time.Second
)

func init() {
	if val := os.Getenv(EnableStallDetectionEnvKey); len(val) > 0 {
		EnableStallDetection = isTrue(val)
	}
	if val := os.Getenv(LogLevelEnvKey); len(val) > 0 {
		LogLevel = strings.ToUpper(val)
	}
	if val := os.Getenv(StrategyHashMethodEnvKey); len(val) > 0 {
		StrategyHashMethod = strings.ToUpper(val)
	}
	if val := os.Getenv(EnableMonitoringEnvKey); len(val) > 0 {
		EnableMonitoring = isTrue(val)
	}
	if val := os.Getenv(MonitoringPeriodEnvKey); len(val) > 0 {
		if d, err := time.ParseDuration(val); err == nil {
			MonitoringPeriod = d
		}
	}
}

func isTrue(val string) bool {
	return val == "true" || val == "1"
}

package utils

import (
	"context"
	"fmt"
	"os"
	"path"
	"sort"
	"strings"
	"time"
)

func ProgName() string {
	return path.Base(os.Args[0])
}

func LogArgs() {
	for i, a := range os.Args {
		fmt.Printf("[arg] [%d]=%s\n", i, a)
	}
}

func LogEnvWithPrefix(prefix string, logPrefix string) {
	envs := os.Environ()
	sort.Strings(envs)
	for _, kv := range envs {
		if strings.HasPrefix(kv, prefix) {
			fmt.Printf("[%s]: %s\n", logPrefix, kv)
		}
	}
}

func LogKungfuEnv() {
	LogEnvWithPrefix(`KUNGFU_`, `kf-env`)
}

func Measure(f func() error) (time.Duration, error) {
	t0 := time.Now()
	err := f()
	return time.Since(t0), err
}

// Poll calls f until it returns true or ctx is done. It returns the number of failed calls.
func Poll(ctx context.Context, f func() bool) (int, bool) {
	for i := 0; ; i++ {
		if f() {
			return i, true
		}
		select {
		case <-ctx.Done():
			return i + 1, false
		default:
		}
	}
}

func pluralize(n int, singular, plural string) string {
	if n > 1 {
		return plural
	}
	return singular
}

func Pluralize(n int, singular, plural string) string {
	return fmt.Sprintf("%d %s", n, pluralize(n, singular, plural))
}

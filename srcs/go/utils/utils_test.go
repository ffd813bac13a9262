package utils

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestStallDetector(t *testing.T) {
	sd := InstallStallDetector("test", 5*time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	assert.GreaterOrEqual(t, sd.Stop(), 20*time.Millisecond)
}

func TestPoll(t *testing.T) {
	var calls int
	n, ok := Poll(context.Background(), func() bool {
		calls++
		return calls == 3
	})
	assert.True(t, ok)
	assert.Equal(t, 2, n)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, ok = Poll(ctx, func() bool { return false })
	assert.False(t, ok)
}

func TestMergeErrors(t *testing.T) {
	assert.NoError(t, MergeErrors([]error{nil, nil}, "join"))
	err := MergeErrors([]error{nil, errors.New("a"), errors.New("b")}, "join")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "join")
}

func TestPluralize(t *testing.T) {
	assert.Equal(t, "1 host", Pluralize(1, "host", "hosts"))
	assert.Equal(t, "3 hosts", Pluralize(3, "host", "hosts"))
}

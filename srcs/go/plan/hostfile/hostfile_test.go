package hostfile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	text := `
	# ...
	192.168.1.11 slots=4 # ...
	# ...
	192.168.1.12 slots=8 public_addr=node-2
	`
	hl, err := Parse(text)
	require.NoError(t, err)
	require.Len(t, hl, 2)
	assert.Equal(t, 4, hl[0].Slots)
	assert.Equal(t, "192.168.1.11", hl[0].PublicAddr)
	assert.Equal(t, 8, hl[1].Slots)
	assert.Equal(t, "node-2", hl[1].PublicAddr)
	assert.Equal(t, 12, hl.Cap())
}

func TestParseInvalid(t *testing.T) {
	for _, text := range []string{
		"localhost slots=1",
		"127.0.0.1 slots=x",
		"127.0.0.1 gpus=4",
	} {
		_, err := Parse(text)
		assert.Error(t, err, text)
	}
}

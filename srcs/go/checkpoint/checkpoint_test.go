package checkpoint

import (
	"encoding/binary"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/lsds/kungfu-ddp/srcs/go/nn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReloadReproducesInference(t *testing.T) {
	m := nn.NewMLP(6, []int{5}, 3, 11)
	x := nn.NewTensor(4, 6)
	for i := range x.Data {
		x.Data[i] = float32(i%9) - 4
	}
	want := m.Forward(x).Clone()

	path := filepath.Join(t.TempDir(), "ckpt.safetensors")
	require.NoError(t, Save(path, nn.StateDict(m)))
	state, err := Load(path)
	require.NoError(t, err)

	fresh := nn.NewMLP(6, []int{5}, 3, 12)
	assert.NotEqual(t, want.Data, fresh.Forward(x).Data)
	require.NoError(t, nn.LoadStateDict(fresh, state))
	assert.Equal(t, want.Data, fresh.Forward(x).Data)
}

func TestLayout(t *testing.T) {
	state := map[string]*nn.Tensor{
		"b": {Shape: []int{2}, Data: []float32{3, 4}},
		"a": {Shape: []int{1, 2}, Data: []float32{1, 2}},
	}
	bs, err := Encode(state)
	require.NoError(t, err)
	n := binary.LittleEndian.Uint64(bs)
	assert.Zero(t, (8+n)%8)
	header := string(bs[8 : 8+n])
	assert.Less(t, strings.Index(header, `"a"`), strings.Index(header, `"b"`))

	var raw map[string]tensorInfo
	require.NoError(t, json.Unmarshal([]byte(strings.Replace(header, `"__metadata__":{"format":"pt"},`, "", 1)), &raw))
	assert.Equal(t, [2]int64{0, 8}, raw["a"].DataOffsets)
	assert.Equal(t, [2]int64{8, 16}, raw["b"].DataOffsets)
	assert.Equal(t, "F32", raw["a"].DType)
	assert.Len(t, bs, int(8+n+16))
}

func TestSaveOverwrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ckpt.safetensors")
	require.NoError(t, os.WriteFile(path, []byte("garbage that is longer than the checkpoint itself, by quite a lot of bytes, really"), 0644))
	require.NoError(t, Save(path, map[string]*nn.Tensor{"w": {Shape: []int{1}, Data: []float32{7}}}))
	state, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, []float32{7}, state["w"].Data)
}

func TestDecodeErrors(t *testing.T) {
	good, err := Encode(map[string]*nn.Tensor{"w": {Shape: []int{2}, Data: []float32{1, 2}}})
	require.NoError(t, err)
	for name, bs := range map[string][]byte{
		"short":     good[:4],
		"header":    good[:12],
		"truncated": good[:len(good)-4],
	} {
		_, err := Decode(bs)
		assert.Error(t, err, name)
	}
	_, err = Load(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}

package base

import (
	"testing"

	"github.com/lsds/kungfu-ddp/srcs/go/plan"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransform2(t *testing.T) {
	x := F32Vector([]float32{1, 5, -2})
	y := F32Vector([]float32{3, 2, -4})
	for _, tc := range []struct {
		op   OP
		want []float32
	}{
		{SUM, []float32{4, 7, -6}},
		{MIN, []float32{1, 2, -4}},
		{MAX, []float32{3, 5, -2}},
		{PROD, []float32{3, 10, 8}},
	} {
		z := NewVector(3, F32)
		Transform2(z, x, y, tc.op)
		assert.Equal(t, tc.want, z.AsF32(), tc.op.String())
	}

	a := NewVector(2, U8)
	copy(a.Data, []byte{1, 0})
	b := NewVector(2, U8)
	copy(b.Data, []byte{1, 1})
	Transform(a, b, SUM)
	assert.Equal(t, []uint8{2, 1}, a.AsU8())
}

func TestVectorView(t *testing.T) {
	xs := []float32{1, 2, 3, 4}
	v := F32Vector(xs)
	assert.Equal(t, 16, len(v.Data))
	v.Slice(1, 3).AsF32()[0] = 9
	assert.Equal(t, float32(9), xs[1])
	assert.Panics(t, func() { v.AsF64() })

	w := NewVector(4, F32)
	require.NoError(t, w.CopyFrom(v))
	assert.Equal(t, xs, w.AsF32())
	assert.Error(t, w.CopyFrom(NewVector(3, F32)))
	assert.Error(t, w.CopyFrom(NewVector(4, I32)))
}

func TestWorkspaceSplit(t *testing.T) {
	v := NewVector(10, F64)
	w := Workspace{SendBuf: v, RecvBuf: v, OP: SUM, Name: "w"}
	assert.True(t, w.IsInplace())
	parts := w.Split(plan.EvenPartition, 3)
	require.Len(t, parts, 3)
	assert.Equal(t, 4, parts[0].SendBuf.Count)
	assert.Equal(t, "part::w[7:10]", parts[2].Name)
}

func TestParseStrategy(t *testing.T) {
	var s Strategy
	require.NoError(t, s.Set("RING"))
	assert.Equal(t, Ring, s)
	assert.Error(t, s.Set("FOO"))
	assert.Equal(t, "BINARY_TREE_STAR", DefaultStrategy.String())
}

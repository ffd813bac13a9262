package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReverse(t *testing.T) {
	g := New(3)
	g.AddEdge(0, 1)
	g.AddEdge(0, 2)
	g.AddEdge(1, 1)
	r := g.Reverse()
	assert.Equal(t, []int{0}, r.Nexts(1))
	assert.Equal(t, []int{0}, r.Nexts(2))
	assert.Equal(t, []int{1, 2}, r.Prevs(0))
	assert.False(t, r.IsSelfLoop(1))
	assert.Equal(t, "[3]{(1)(0->1)(0->2)}", g.DebugString())
}

func TestTreeRoot(t *testing.T) {
	chain := New(3)
	chain.AddEdge(2, 0)
	chain.AddEdge(0, 1)
	chain.AddEdge(1, 1)
	root, ok := chain.TreeRoot()
	assert.True(t, ok)
	assert.Equal(t, 2, root)

	single := New(1)
	root, ok = single.TreeRoot()
	assert.True(t, ok)
	assert.Equal(t, 0, root)

	forest := New(3)
	forest.AddEdge(0, 1)
	_, ok = forest.TreeRoot()
	assert.False(t, ok, "rank 2 unreachable")

	diamond := New(4)
	diamond.AddEdge(0, 1)
	diamond.AddEdge(0, 2)
	diamond.AddEdge(1, 3)
	diamond.AddEdge(2, 3)
	_, ok = diamond.TreeRoot()
	assert.False(t, ok, "rank 3 has two parents")

	cycle := New(2)
	cycle.AddEdge(0, 1)
	cycle.AddEdge(1, 0)
	_, ok = cycle.TreeRoot()
	assert.False(t, ok)
}

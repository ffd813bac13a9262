// Package graph holds the directed graphs that collectives are routed on.
package graph

import (
	"fmt"
	"strings"
)

type node struct {
	selfLoop bool
	prevs    []int
	nexts    []int
}

// Graph is a directed graph over the ranks 0..n-1. A self loop marks a rank
// that contributes its own buffer to a reduction.
type Graph struct {
	nodes []node
}

func New(n int) *Graph {
	return &Graph{nodes: make([]node, n)}
}

func (g *Graph) AddEdge(i, j int) {
	if i == j {
		g.nodes[i].selfLoop = true
		return
	}
	g.nodes[i].nexts = append(g.nodes[i].nexts, j)
	g.nodes[j].prevs = append(g.nodes[j].prevs, i)
}

func (g *Graph) Len() int { return len(g.nodes) }

func (g *Graph) IsSelfLoop(i int) bool { return g.nodes[i].selfLoop }

func (g *Graph) IsIsolated(i int) bool {
	return len(g.nodes[i].prevs) == 0 && len(g.nodes[i].nexts) == 0
}

func (g *Graph) Prevs(i int) []int { return g.nodes[i].prevs }

func (g *Graph) Nexts(i int) []int { return g.nodes[i].nexts }

// Reverse flips every edge. Self loops are dropped.
func (g *Graph) Reverse() *Graph {
	r := New(len(g.nodes))
	for i, n := range g.nodes {
		for _, j := range n.nexts {
			r.AddEdge(j, i)
		}
	}
	return r
}

// TreeRoot returns the root when the graph, self loops aside, is a tree
// reaching every rank.
func (g *Graph) TreeRoot() (int, bool) {
	root := -1
	for i, n := range g.nodes {
		switch len(n.prevs) {
		case 0:
			if root >= 0 {
				return 0, false
			}
			root = i
		case 1:
		default:
			return 0, false
		}
	}
	if root < 0 {
		return 0, false
	}
	seen := make([]bool, len(g.nodes))
	seen[root] = true
	reached := 1
	for stack := []int{root}; len(stack) > 0; {
		i := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, j := range g.nodes[i].nexts {
			if !seen[j] {
				seen[j] = true
				reached++
				stack = append(stack, j)
			}
		}
	}
	return root, reached == len(g.nodes)
}

// DebugString lists self loops first, then edges: [3]{(1)(0->1)(0->2)}.
func (g *Graph) DebugString() string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%d]{", len(g.nodes))
	for i, n := range g.nodes {
		if n.selfLoop {
			fmt.Fprintf(&b, "(%d)", i)
		}
	}
	for i, n := range g.nodes {
		for _, j := range n.nexts {
			fmt.Fprintf(&b, "(%d->%d)", i, j)
		}
	}
	b.WriteString("}")
	return b.String()
}

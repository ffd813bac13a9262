package plan

import "github.com/lsds/kungfu-ddp/srcs/go/plan/graph"

// hostGroups indexes ranks by host. masters holds the lowest rank of each
// host, in order of first appearance in the peer list.
type hostGroups struct {
	masters  []int
	masterOf map[uint32]int
}

func groupByHost(peers PeerList) hostGroups {
	h := hostGroups{masterOf: make(map[uint32]int)}
	for rank, p := range peers {
		if _, ok := h.masterOf[p.IPv4]; !ok {
			h.masterOf[p.IPv4] = rank
			h.masters = append(h.masters, rank)
		}
	}
	return h
}

// addHeapTree links k nodes as a binary heap, node i being the parent of
// 2i+1 and 2i+2, with rank(i) naming the rank of node i.
func addHeapTree(g *graph.Graph, k int, rank func(int) int) {
	for i := 0; i < k; i++ {
		for _, j := range []int{2*i + 1, 2*i + 2} {
			if j < k {
				g.AddEdge(rank(i), rank(j))
			}
		}
	}
}

func identity(i int) int { return i }

// GenDefaultReduceGraph turns a broadcast tree into the matching reduce
// graph: every edge reversed and every rank contributing its own data.
func GenDefaultReduceGraph(bcast *graph.Graph) *graph.Graph {
	g := bcast.Reverse()
	for i := 0; i < g.Len(); i++ {
		g.AddEdge(i, i)
	}
	return g
}

func GenBinaryTree(k int) *graph.Graph {
	g := graph.New(k)
	addHeapTree(g, k, identity)
	return g
}

// genBinaryTreeStar roots the host-level tree at the shift-th host.
func genBinaryTreeStar(peers PeerList, h hostGroups, shift int) *graph.Graph {
	g := graph.New(len(peers))
	for rank, p := range peers {
		if m := h.masterOf[p.IPv4]; m != rank {
			g.AddEdge(m, rank)
		}
	}
	k := len(h.masters)
	addHeapTree(g, k, func(i int) int { return h.masters[(i+shift)%k] })
	return g
}

// GenBinaryTreeStar links the ranks of a host in a star around its master and
// the masters in a binary tree, so only one stream per host crosses the network.
func GenBinaryTreeStar(peers PeerList) *graph.Graph {
	return genBinaryTreeStar(peers, groupByHost(peers), 0)
}

// GenMultiBinaryTreeStar returns one binary-tree-star per host, each rooted at a different host.
func GenMultiBinaryTreeStar(peers PeerList) []*graph.Graph {
	h := groupByHost(peers)
	gs := make([]*graph.Graph, len(h.masters))
	for i := range gs {
		gs[i] = genBinaryTreeStar(peers, h, i)
	}
	return gs
}

// GenStarBcastGraph links root to every other of the k ranks.
func GenStarBcastGraph(k, root int) *graph.Graph {
	g := graph.New(k)
	for i := 0; i < k; i++ {
		if i != root {
			g.AddEdge(root, i)
		}
	}
	return g
}

// GenCircularGraphPair returns a ring that reduces towards root, ending at
// it, and the chain that broadcasts from root around the same ring.
func GenCircularGraphPair(k, root int) (reduce *graph.Graph, bcast *graph.Graph) {
	reduce, bcast = graph.New(k), graph.New(k)
	next := func(i int) int { return (root + i) % k }
	for i := 0; i < k; i++ {
		reduce.AddEdge(i, i)
	}
	for i := 1; i < k; i++ {
		reduce.AddEdge(next(i), next(i+1))
		bcast.AddEdge(next(i-1), next(i))
	}
	return reduce, bcast
}

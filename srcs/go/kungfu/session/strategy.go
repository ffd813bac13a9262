package session

import (
	kb "github.com/lsds/kungfu-ddp/srcs/go/kungfu/base"
	"github.com/lsds/kungfu-ddp/srcs/go/kungfu/config"
	"github.com/lsds/kungfu-ddp/srcs/go/log"
	"github.com/lsds/kungfu-ddp/srcs/go/plan"
	"github.com/lsds/kungfu-ddp/srcs/go/plan/graph"
)

// strategy is a pair of graphs: reduce towards a root, then broadcast from it.
type strategy struct {
	reduceGraph *graph.Graph
	bcastGraph  *graph.Graph
}

type partitionStrategy func(plan.PeerList) []strategy

type strategyList []strategy

func (sl strategyList) choose(i int) strategy {
	return sl[i%len(sl)]
}

var partitionStrategies = map[kb.Strategy]partitionStrategy{
	kb.Star:                createStarStrategies,
	kb.Ring:                createRingStrategies,
	kb.BinaryTree:          createBinaryTreeStrategies,
	kb.BinaryTreeStar:      createBinaryTreeStarStrategies,
	kb.MultiBinaryTreeStar: createMultiBinaryTreeStarStrategies,
}

func fromBcastGraph(bcastGraph *graph.Graph) strategy {
	return strategy{
		reduceGraph: plan.GenDefaultReduceGraph(bcastGraph),
		bcastGraph:  bcastGraph,
	}
}

func createStarStrategies(peers plan.PeerList) []strategy {
	return []strategy{fromBcastGraph(plan.GenStarBcastGraph(len(peers), defaultRoot))}
}

func createBinaryTreeStrategies(peers plan.PeerList) []strategy {
	return []strategy{fromBcastGraph(plan.GenBinaryTree(len(peers)))}
}

func createBinaryTreeStarStrategies(peers plan.PeerList) []strategy {
	return []strategy{fromBcastGraph(plan.GenBinaryTreeStar(peers))}
}

func createMultiBinaryTreeStarStrategies(peers plan.PeerList) []strategy {
	var ss []strategy
	for _, g := range plan.GenMultiBinaryTreeStar(peers) {
		ss = append(ss, fromBcastGraph(g))
	}
	return ss
}

func createRingStrategies(peers plan.PeerList) []strategy {
	k := len(peers)
	var ss []strategy
	for r := 0; r < k; r++ {
		reduceGraph, bcastGraph := plan.GenCircularGraphPair(k, r)
		ss = append(ss, strategy{
			reduceGraph: reduceGraph,
			bcastGraph:  bcastGraph,
		})
	}
	return ss
}

func autoSelect(peers plan.PeerList) kb.Strategy {
	if peers.HostCount() == 1 {
		return kb.Star
	}
	return kb.BinaryTreeStar
}

type strategyHashFunc func(int, string) uint64

func simpleHash(i int, name string) uint64 {
	return uint64(i)
}

func nameBasedHash(i int, name string) uint64 {
	var h uint64
	for _, c := range name {
		h += uint64(c) * uint64(c)
	}
	return h
}

func getStrategyHash() strategyHashFunc {
	if config.StrategyHashMethod == `NAME` {
		log.Debugf("using name based hash")
		return nameBasedHash
	}
	return simpleHash
}

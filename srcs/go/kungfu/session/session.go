package session

import (
	"context"
	"sync"

	kb "github.com/lsds/kungfu-ddp/srcs/go/kungfu/base"
	"github.com/lsds/kungfu-ddp/srcs/go/kungfu/execution"
	"github.com/lsds/kungfu-ddp/srcs/go/log"
	"github.com/lsds/kungfu-ddp/srcs/go/plan"
	"github.com/lsds/kungfu-ddp/srcs/go/plan/graph"
	"github.com/lsds/kungfu-ddp/srcs/go/rchannel/client"
	"github.com/lsds/kungfu-ddp/srcs/go/rchannel/connection"
	"github.com/lsds/kungfu-ddp/srcs/go/rchannel/handler"
	"github.com/lsds/kungfu-ddp/srcs/go/utils"
	"github.com/pkg/errors"
)

const defaultRoot = 0

// Session contains the immutable peer list of a training run.
type Session struct {
	barrierMu sync.Mutex

	strategies        strategyList
	self              plan.PeerID
	peers             plan.PeerList
	rank              int
	localRank         int
	localSize         int
	hostCount         int
	client            *client.Client
	collectiveHandler *handler.CollectiveEndpoint
	strategyHash      strategyHashFunc
}

var errSelfNotInPeers = errors.New("self not in peer list")

func New(strategy kb.Strategy, self plan.PeerID, pl plan.PeerList, client *client.Client, collectiveHandler *handler.CollectiveEndpoint) (*Session, error) {
	rank, ok := pl.Rank(self)
	if !ok {
		return nil, errors.Wrapf(errSelfNotInPeers, "%s not in %s", self, pl)
	}
	localRank, _ := pl.LocalRank(self)
	if strategy == kb.Auto {
		strategy = autoSelect(pl)
	}
	create, ok := partitionStrategies[strategy]
	if !ok {
		return nil, errors.Errorf("unsupported strategy %s", strategy)
	}
	strategies := create(pl)
	for i, s := range strategies {
		root, ok := s.bcastGraph.TreeRoot()
		if !ok {
			return nil, errors.Errorf("%s: broadcast graph %d does not reach all %d peers", strategy, i, len(pl))
		}
		// Broadcast runs on the first graph and must start from rank 0.
		if i == 0 && root != defaultRoot {
			return nil, errors.Errorf("%s: first broadcast graph rooted at %d", strategy, root)
		}
	}
	log.Debugf("new session of %d peers using %s with %d graph pairs", len(pl), strategy, len(strategies))
	return &Session{
		strategies:        strategies,
		self:              self,
		peers:             pl,
		rank:              rank,
		localRank:         localRank,
		localSize:         pl.LocalSize(self),
		hostCount:         pl.HostCount(),
		client:            client,
		collectiveHandler: collectiveHandler,
		strategyHash:      getStrategyHash(),
	}, nil
}

func (sess *Session) Size() int {
	return len(sess.peers)
}

func (sess *Session) Rank() int {
	return sess.rank
}

func (sess *Session) LocalRank() int {
	return sess.localRank
}

func (sess *Session) LocalSize() int {
	return sess.localSize
}

func (sess *Session) HostCount() int {
	return sess.hostCount
}

func (sess *Session) Peer(rank int) plan.PeerID {
	return sess.peers[rank]
}

// Barrier blocks until every peer has called Barrier.
func (sess *Session) Barrier() error {
	return sess.BarrierContext(context.Background())
}

// BarrierContext is Barrier bounded by ctx.
func (sess *Session) BarrierContext(ctx context.Context) error {
	sess.barrierMu.Lock()
	defer sess.barrierMu.Unlock()
	k := len(sess.peers)
	w := kb.Workspace{
		SendBuf: kb.NewVector(k, kb.U8),
		RecvBuf: kb.NewVector(k, kb.U8),
		OP:      kb.SUM,
		Name:    "kungfu::barrier",
	}
	return sess.runStrategies(ctx, w, plan.EvenPartition, sess.strategies)
}

func (sess *Session) AllReduce(w kb.Workspace) error {
	return sess.AllReduceContext(context.Background(), w)
}

// AllReduceContext reduces w.SendBuf of all peers with w.OP into w.RecvBuf of every peer.
func (sess *Session) AllReduceContext(ctx context.Context, w kb.Workspace) error {
	return sess.runStrategies(ctx, w, plan.EvenPartition, sess.strategies)
}

func (sess *Session) Broadcast(w kb.Workspace) error {
	return sess.BroadcastContext(context.Background(), w)
}

// BroadcastContext copies w.SendBuf of rank 0 into w.RecvBuf of every peer.
func (sess *Session) BroadcastContext(ctx context.Context, w kb.Workspace) error {
	strategy := sess.strategies[0]
	return sess.runGraphs(ctx, w, strategy.bcastGraph)
}

// BytesConsensus reports whether every peer passed the same bs.
func (sess *Session) BytesConsensus(ctx context.Context, bs []byte, name string) (bool, error) {
	n := len(bs)
	x := kb.NewVector(1, kb.I32)
	x.AsI32()[0] = int32(n)
	if ok, err := sess.minMaxEq(ctx, x, ":consensus:len:"+name); !ok || err != nil {
		return false, err
	}
	if n == 0 {
		return true, nil
	}
	return sess.minMaxEq(ctx, &kb.Vector{Data: bs, Count: n, Type: kb.U8}, ":consensus:"+name)
}

func (sess *Session) minMaxEq(ctx context.Context, x *kb.Vector, name string) (bool, error) {
	y := kb.NewVector(x.Count, x.Type)
	z := kb.NewVector(x.Count, x.Type)
	if err := sess.AllReduceContext(ctx, kb.Workspace{SendBuf: x, RecvBuf: y, OP: kb.MIN, Name: name + ":min"}); err != nil {
		return false, err
	}
	if err := sess.AllReduceContext(ctx, kb.Workspace{SendBuf: x, RecvBuf: z, OP: kb.MAX, Name: name + ":max"}); err != nil {
		return false, err
	}
	return string(y.Data) == string(z.Data), nil
}

func asMessage(b *kb.Vector) connection.Message {
	return connection.Message{
		Length: uint32(len(b.Data)),
		Data:   b.Data,
	}
}

func isIsolated(rank int, graphs ...*graph.Graph) bool {
	for _, g := range graphs {
		if !g.IsIsolated(rank) {
			return false
		}
	}
	return true
}

func (sess *Session) runGraphs(ctx context.Context, w kb.Workspace, graphs ...*graph.Graph) error {
	if w.IsEmpty() {
		return nil
	}
	if isIsolated(sess.rank, graphs...) {
		return w.Forward()
	}

	var recvCount int
	effectiveBuffer := func() *kb.Vector {
		if recvCount > 0 || w.IsInplace() {
			return w.RecvBuf
		}
		return w.SendBuf
	}
	var send execution.PeerFunc = func(peer plan.PeerID) error {
		return sess.client.Send(peer.WithName(w.Name), effectiveBuffer().Data, connection.ConnCollective, connection.NoFlag)
	}

	var lock sync.Mutex
	var recvOnto execution.PeerFunc = func(peer plan.PeerID) error {
		m, err := sess.collectiveHandler.RecvContext(ctx, peer.WithName(w.Name))
		if err != nil {
			return err
		}
		defer connection.PutBuf(m.Data)
		if int(m.Length) != len(w.SendBuf.Data) {
			return errors.Errorf("%s from #<%s>: got %d bytes, want %d", w.Name, peer, m.Length, len(w.SendBuf.Data))
		}
		b := &kb.Vector{Data: m.Data[:m.Length], Count: w.SendBuf.Count, Type: w.SendBuf.Type}
		lock.Lock()
		defer lock.Unlock()
		kb.Transform2(w.RecvBuf, effectiveBuffer(), b, w.OP)
		recvCount++
		return nil
	}

	var recvInto execution.PeerFunc = func(peer plan.PeerID) error {
		if err := sess.collectiveHandler.RecvInto(ctx, peer.WithName(w.Name), asMessage(w.RecvBuf)); err != nil {
			return err
		}
		recvCount++
		return nil
	}

	for _, g := range graphs {
		prevs := sess.peers.Select(g.Prevs(sess.rank))
		nexts := sess.peers.Select(g.Nexts(sess.rank))
		if g.IsSelfLoop(sess.rank) {
			if err := recvOnto.Par(prevs); err != nil {
				return err
			}
			if err := send.Par(nexts); err != nil {
				return err
			}
		} else {
			if len(prevs) > 1 {
				log.Errorf("more than once recvInto detected at node %d", sess.rank)
			}
			if len(prevs) == 0 && recvCount == 0 {
				if err := w.Forward(); err != nil {
					return err
				}
			} else {
				if err := recvInto.Seq(prevs); err != nil {
					return err
				}
			}
			if err := send.Par(nexts); err != nil {
				return err
			}
		}
	}
	return nil
}

const (
	Mi        = 1 << 20
	chunkSize = 1 * Mi
)

func (sess *Session) runStrategiesWithHash(ctx context.Context, w kb.Workspace, p kb.PartitionFunc, strategies strategyList, strategyHash strategyHashFunc) error {
	k := plan.CeilDiv(w.RecvBuf.Count*w.RecvBuf.Type.Size(), chunkSize)
	if k == 0 {
		return nil
	}
	errs := make([]error, k)
	var wg sync.WaitGroup
	for i, w := range w.Split(p, k) {
		wg.Add(1)
		go func(i int, w kb.Workspace, s strategy) {
			errs[i] = sess.runGraphs(ctx, w, s.reduceGraph, s.bcastGraph)
			wg.Done()
		}(i, w, strategies.choose(int(strategyHash(i, w.Name))))
	}
	wg.Wait()
	return utils.MergeErrors(errs, "runStrategies")
}

func (sess *Session) runStrategies(ctx context.Context, w kb.Workspace, p kb.PartitionFunc, strategies strategyList) error {
	return sess.runStrategiesWithHash(ctx, w, p, strategies, sess.strategyHash)
}

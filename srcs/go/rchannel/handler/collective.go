package handler

import (
	"context"

	"github.com/lsds/kungfu-ddp/srcs/go/monitor"
	"github.com/lsds/kungfu-ddp/srcs/go/plan"
	"github.com/lsds/kungfu-ddp/srcs/go/rchannel/connection"
	"github.com/pkg/errors"
)

// CollectiveEndpoint queues incoming collective messages by (source peer, name).
type CollectiveEndpoint struct {
	recvQ   *bufferPool
	monitor monitor.Monitor
}

func NewCollectiveEndpoint() *CollectiveEndpoint {
	return &CollectiveEndpoint{
		recvQ:   newBufferPool(1),
		monitor: monitor.GetMonitor(),
	}
}

// Handle implements connection.Handler
func (e *CollectiveEndpoint) Handle(conn connection.Connection) (int, error) {
	return connection.Stream(conn, e.handle)
}

func (e *CollectiveEndpoint) handle(name string, msg *connection.Message, conn connection.Connection) {
	a := conn.Src().WithName(name)
	e.monitor.Ingress(int64(msg.Length), a.NetAddr())
	e.recvQ.require(a) <- msg
}

// RecvContext blocks until a message arrives on a or ctx is done. The caller owns the returned buffer.
func (e *CollectiveEndpoint) RecvContext(ctx context.Context, a plan.Addr) (*connection.Message, error) {
	select {
	case m := <-e.recvQ.require(a):
		return m, nil
	case <-ctx.Done():
		return nil, errors.Wrapf(ctx.Err(), "recv %s", a)
	}
}

var errUnexpectedLength = errors.New("unexpected message length")

// RecvInto waits for a message on a and copies it into m.Data.
func (e *CollectiveEndpoint) RecvInto(ctx context.Context, a plan.Addr, m connection.Message) error {
	pm, err := e.RecvContext(ctx, a)
	if err != nil {
		return err
	}
	defer connection.PutBuf(pm.Data)
	if pm.Length != m.Length {
		return errors.Wrapf(errUnexpectedLength, "from %s: %d, want %d", a, pm.Length, m.Length)
	}
	copy(m.Data, pm.Data)
	return nil
}

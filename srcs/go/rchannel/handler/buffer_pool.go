package handler

import (
	"sync"

	"github.com/lsds/kungfu-ddp/srcs/go/plan"
	"github.com/lsds/kungfu-ddp/srcs/go/rchannel/connection"
)

// bufferPool holds one bounded queue per named channel.
type bufferPool struct {
	sync.Mutex
	qSize   int
	buffers map[plan.Addr]chan *connection.Message
}

func newBufferPool(qSize int) *bufferPool {
	return &bufferPool{
		qSize:   qSize,
		buffers: make(map[plan.Addr]chan *connection.Message),
	}
}

func (p *bufferPool) require(a plan.Addr) chan *connection.Message {
	p.Lock()
	defer p.Unlock()
	m, ok := p.buffers[a]
	if !ok {
		m = make(chan *connection.Message, p.qSize)
		p.buffers[a] = m
	}
	return m
}

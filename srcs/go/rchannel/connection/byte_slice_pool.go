package connection

import "sync"

// byteSlicePool reuses byte slices by capacity.
type byteSlicePool struct {
	sync.Mutex
	buffers map[uint32]*sync.Pool
}

// Slices smaller than this are not worth pooling.
const minBufSize uint32 = 512

var (
	defaultPool = &byteSlicePool{buffers: make(map[uint32]*sync.Pool)}
	GetBuf      = defaultPool.get
	PutBuf      = defaultPool.put
)

func (p *byteSlicePool) put(buf []byte) {
	size := uint32(cap(buf))
	if size < minBufSize {
		return
	}
	p.Lock()
	c := p.buffers[size]
	p.Unlock()
	if c != nil {
		c.Put(buf[:size])
	}
}

func (p *byteSlicePool) get(size uint32) []byte {
	if size < minBufSize {
		return make([]byte, size)
	}
	p.Lock()
	c, ok := p.buffers[size]
	if !ok {
		c = new(sync.Pool)
		p.buffers[size] = c
	}
	p.Unlock()
	if v := c.Get(); v != nil {
		return v.([]byte)
	}
	return make([]byte, size)
}

package connection

import (
	"bufio"
	"io"
	"net"
	"sync"
	"time"

	"github.com/lsds/kungfu-ddp/srcs/go/kungfu/config"
	"github.com/lsds/kungfu-ddp/srcs/go/log"
	"github.com/lsds/kungfu-ddp/srcs/go/plan"
	"github.com/pkg/errors"
)

// Connection is a simplex logical connection from one peer to another
type Connection interface {
	io.Closer

	Type() ConnType
	Src() plan.PeerID
	Send(name string, m Message, flags uint32) error
	Read(name string, m Message) error
	Reader() io.Reader
	Writer() io.Writer
}

// UpgradeFrom performs the server side handshake on an accepted net.Conn.
func UpgradeFrom(conn net.Conn, self plan.PeerID, token uint32) (Connection, error) {
	var ch connectionHeader
	if err := ch.ReadFrom(conn); err != nil {
		return nil, err
	}
	if err := (connectionACK{Token: token}).WriteTo(conn); err != nil {
		return nil, err
	}
	return &tcpConnection{
		src:      plan.PeerID{IPv4: ch.SrcIPv4, Port: ch.SrcPort},
		dest:     self,
		connType: ConnType(ch.Type),
		conn:     conn,
		r:        bufio.NewReader(conn),
	}, nil
}

var (
	errInvalidToken            = errors.New("invalid token")
	errCantEstablishConnection = errors.New("can't establish connection")
)

// Open dials remote immediately without retry.
func Open(remote, local plan.PeerID, t ConnType, token uint32) (*tcpConnection, error) {
	conn := New(remote, local, t, token)
	conn.initRetry = 0
	if err := conn.initOnce(); err != nil {
		return nil, err
	}
	return conn, nil
}

// New returns a connection that dials remote on first use.
func New(remote, local plan.PeerID, t ConnType, token uint32) *tcpConnection {
	init := func() (net.Conn, error) {
		conn, err := net.Dial("tcp", remote.String())
		if err != nil {
			return nil, err
		}
		h := connectionHeader{
			Type:    uint16(t),
			SrcIPv4: local.IPv4,
			SrcPort: local.Port,
		}
		if err := h.WriteTo(conn); err != nil {
			conn.Close()
			return nil, err
		}
		var ack connectionACK
		if err := ack.ReadFrom(conn); err != nil {
			conn.Close()
			return nil, err
		}
		if t == ConnCollective && ack.Token != token {
			conn.Close()
			return nil, errors.Wrapf(errInvalidToken, "from #<%s>: %d, want %d", remote, ack.Token, token)
		}
		return conn, nil
	}
	var initRetry int
	if t == ConnCollective {
		initRetry = config.ConnRetryCount
	}
	return &tcpConnection{
		init:      init,
		src:       local,
		dest:      remote,
		initRetry: initRetry,
		connType:  t,
	}
}

type tcpConnection struct {
	sync.Mutex
	src, dest plan.PeerID
	init      func() (net.Conn, error)
	conn      net.Conn
	r         io.Reader
	initRetry int
	connType  ConnType
}

func (c *tcpConnection) Type() ConnType {
	return c.connType
}

func (c *tcpConnection) Src() plan.PeerID {
	return c.src
}

func (c *tcpConnection) Reader() io.Reader {
	return c.r
}

func (c *tcpConnection) Writer() io.Writer {
	return c.conn
}

func (c *tcpConnection) initOnce() error {
	c.Lock()
	defer c.Unlock()
	if c.conn != nil {
		return nil
	}
	t0 := time.Now()
	var err error
	for i := 0; i <= c.initRetry; i++ {
		if c.conn, err = c.init(); err == nil {
			c.r = bufio.NewReader(c.conn)
			log.Debugf("%s connection to #<%s> established after %d trials, took %s", c.connType, c.dest, i+1, time.Since(t0))
			return nil
		}
		if errors.Is(err, errInvalidToken) {
			return err
		}
		log.Debugf("failed to establish connection to #<%s> for %d times: %v", c.dest, i+1, err)
		if i < c.initRetry {
			time.Sleep(config.ConnRetryPeriod)
		}
	}
	return errors.Wrapf(errCantEstablishConnection, "to #<%s>: %v", c.dest, err)
}

func (c *tcpConnection) Send(name string, m Message, flags uint32) error {
	if err := c.initOnce(); err != nil {
		return err
	}
	c.Lock()
	defer c.Unlock()
	bs := []byte(name)
	mh := MessageHeader{
		NameLength: uint32(len(bs)),
		Name:       bs,
		Flags:      flags,
	}
	w := bufio.NewWriter(c.conn)
	if err := mh.WriteTo(w); err != nil {
		return err
	}
	if err := m.WriteTo(w); err != nil {
		return err
	}
	return w.Flush()
}

func (c *tcpConnection) Read(name string, m Message) error {
	if err := c.initOnce(); err != nil {
		return err
	}
	c.Lock()
	defer c.Unlock()
	var mh MessageHeader
	if err := mh.Expect(c.r, name); err != nil {
		return err
	}
	return m.ReadInto(c.r)
}

func (c *tcpConnection) Close() error {
	c.Lock()
	defer c.Unlock()
	if c.conn == nil {
		return nil
	}
	return c.conn.Close()
}

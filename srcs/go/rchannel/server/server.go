package server

import (
	"errors"
	"net"
	"sync"

	"github.com/lsds/kungfu-ddp/srcs/go/log"
	"github.com/lsds/kungfu-ddp/srcs/go/plan"
	"github.com/lsds/kungfu-ddp/srcs/go/rchannel/connection"
)

// Server receives messages from remote endpoints
type Server struct {
	self     plan.PeerID
	handler  connection.Handler
	token    uint32
	listener net.Listener

	mu    sync.Mutex
	conns map[net.Conn]struct{}
	wg    sync.WaitGroup
}

// New creates a Server. token is returned to every connecting client.
func New(self plan.PeerID, handler connection.Handler, token uint32) *Server {
	return &Server{
		self:    self,
		handler: handler,
		token:   token,
		conns:   make(map[net.Conn]struct{}),
	}
}

func (s *Server) Listen() error {
	listenAddr := s.self.ListenAddr(false)
	log.Debugf("listening: %s", listenAddr)
	l, err := net.Listen("tcp", listenAddr.String())
	if err != nil {
		return err
	}
	s.listener = l
	return nil
}

// Start listens and serves in the background.
func (s *Server) Start() error {
	if err := s.Listen(); err != nil {
		return err
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.Serve()
	}()
	return nil
}

func (s *Server) Serve() {
	for {
		tcpConn, err := s.listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}
			log.Infof("Accept failed: %v", err)
			continue
		}
		s.track(tcpConn, true)
		go func() {
			defer s.track(tcpConn, false)
			s.handle(tcpConn)
		}()
	}
}

func (s *Server) track(c net.Conn, add bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if add {
		s.conns[c] = struct{}{}
	} else {
		delete(s.conns, c)
	}
}

func (s *Server) handle(tcpConn net.Conn) {
	conn, err := connection.UpgradeFrom(tcpConn, s.self, s.token)
	if err != nil {
		log.Debugf("upgrade connection from %s failed: %v", tcpConn.RemoteAddr(), err)
		tcpConn.Close()
		return
	}
	defer conn.Close()
	if n, err := s.handler.Handle(conn); err != nil {
		log.Debugf("handle %s conn from #<%s> err: %v after handled %d messages", conn.Type(), conn.Src(), err, n)
	}
}

// Close stops accepting and closes live connections.
func (s *Server) Close() {
	if s.listener == nil {
		return
	}
	s.listener.Close()
	s.mu.Lock()
	for c := range s.conns {
		c.Close()
	}
	s.mu.Unlock()
	s.wg.Wait()
	log.Debugf("Server Closed")
}

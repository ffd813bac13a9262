package handler

import (
	"github.com/lsds/kungfu-ddp/srcs/go/rchannel/connection"
)

// Router dispatches accepted connections by their type.
type Router struct {
	Collective *CollectiveEndpoint
	Ping       *PingHandler
}

func NewRouter() *Router {
	return &Router{
		Collective: NewCollectiveEndpoint(),
		Ping:       &PingHandler{},
	}
}

// Handle implements connection.Handler
func (r *Router) Handle(conn connection.Connection) (int, error) {
	switch t := conn.Type(); t {
	case connection.ConnCollective:
		return r.Collective.Handle(conn)
	case connection.ConnPing:
		return r.Ping.Handle(conn)
	default:
		return 0, connection.ErrInvalidConnectionType
	}
}

package handler

import (
	"github.com/lsds/kungfu-ddp/srcs/go/rchannel/connection"
)

// PingHandler echoes one empty message back to the sender.
type PingHandler struct{}

func (h *PingHandler) Handle(conn connection.Connection) (int, error) {
	var mh connection.MessageHeader
	if err := mh.ReadFrom(conn.Reader()); err != nil {
		return 0, err
	}
	var empty connection.Message
	if err := empty.ReadFrom(conn.Reader()); err != nil {
		return 0, err
	}
	if err := mh.WriteTo(conn.Writer()); err != nil {
		return 0, err
	}
	return 1, empty.WriteTo(conn.Writer())
}

package connection

import (
	"io"

	"github.com/pkg/errors"
)

type Handler interface {
	Handle(conn Connection) (int, error)
}

type HandlerFunc func(Connection) (int, error)

func (f HandlerFunc) Handle(c Connection) (int, error) { return f(c) }

type MsgHandleFunc func(name string, msg *Message, conn Connection)

// Accept reads one message from conn.
func Accept(conn Connection) (string, *Message, error) {
	var mh MessageHeader
	if err := mh.ReadFrom(conn.Reader()); err != nil {
		return "", nil, err
	}
	var msg Message
	if err := msg.ReadFrom(conn.Reader()); err != nil {
		return "", nil, err
	}
	return string(mh.Name), &msg, nil
}

// Stream handles messages from conn until the remote side closes it.
func Stream(conn Connection, handle MsgHandleFunc) (int, error) {
	for i := 0; ; i++ {
		name, msg, err := Accept(conn)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return i, nil
			}
			return i, err
		}
		handle(name, msg, conn)
	}
}

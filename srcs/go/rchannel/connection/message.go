package connection

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/pkg/errors"
)

type ConnType uint16

const (
	ConnPing ConnType = iota
	ConnCollective
)

var ErrInvalidConnectionType = errors.New("invalid connection type")

func (t ConnType) String() string {
	switch t {
	case ConnPing:
		return "Ping"
	case ConnCollective:
		return "Collective"
	default:
		return fmt.Sprintf("ConnType(%d)", uint16(t))
	}
}

var endian = binary.LittleEndian

type connectionHeader struct {
	Type    uint16
	SrcPort uint16
	SrcIPv4 uint32
}

func (h connectionHeader) WriteTo(w io.Writer) error {
	return binary.Write(w, endian, &h)
}

func (h *connectionHeader) ReadFrom(r io.Reader) error {
	return binary.Read(r, endian, h)
}

type connectionACK struct {
	Token uint32
}

func (a connectionACK) WriteTo(w io.Writer) error {
	return binary.Write(w, endian, &a)
}

func (a *connectionACK) ReadFrom(r io.Reader) error {
	return binary.Read(r, endian, a)
}

const NoFlag uint32 = 0

// MaxNameLength and MaxMessageLength bound what a reader allocates for one frame.
const (
	MaxNameLength    = 1 << 12
	MaxMessageLength = 1 << 30
)

type MessageHeader struct {
	NameLength uint32
	Name       []byte
	Flags      uint32
}

func (h *MessageHeader) HasFlag(flag uint32) bool {
	return h.Flags&flag == flag
}

func (h *MessageHeader) WriteTo(w io.Writer) error {
	if err := binary.Write(w, endian, h.NameLength); err != nil {
		return err
	}
	if _, err := w.Write(h.Name); err != nil {
		return err
	}
	return binary.Write(w, endian, h.Flags)
}

// ReadFrom reads the header into a new buffer.
func (h *MessageHeader) ReadFrom(r io.Reader) error {
	if err := binary.Read(r, endian, &h.NameLength); err != nil {
		return err
	}
	if h.NameLength > MaxNameLength {
		return errors.Errorf("name length %d exceeds %d", h.NameLength, MaxNameLength)
	}
	h.Name = make([]byte, h.NameLength)
	if _, err := io.ReadFull(r, h.Name); err != nil {
		return err
	}
	return binary.Read(r, endian, &h.Flags)
}

// Expect reads the header and checks it against name.
func (h *MessageHeader) Expect(r io.Reader, name string) error {
	if err := h.ReadFrom(r); err != nil {
		return err
	}
	if string(h.Name) != name {
		return errors.Errorf("unexpected name %q, want %q", h.Name, name)
	}
	return nil
}

func (h MessageHeader) String() string {
	return fmt.Sprintf("messageHeader{length=%d,name=%s}", h.NameLength, string(h.Name))
}

// Message is the data transferred via channel
type Message struct {
	Length uint32
	Data   []byte
}

func (m Message) WriteTo(w io.Writer) error {
	if err := binary.Write(w, endian, m.Length); err != nil {
		return err
	}
	_, err := w.Write(m.Data)
	return err
}

// ReadFrom reads the message into a buffer taken from the pool.
func (m *Message) ReadFrom(r io.Reader) error {
	if err := binary.Read(r, endian, &m.Length); err != nil {
		return err
	}
	if m.Length > MaxMessageLength {
		return errors.Errorf("message length %d exceeds %d", m.Length, MaxMessageLength)
	}
	m.Data = GetBuf(m.Length)
	_, err := io.ReadFull(r, m.Data)
	return err
}

var errUnexpectedMessageLength = errors.New("unexpected message length")

// ReadInto reads the message into the existing buffer of m.
func (m *Message) ReadInto(r io.Reader) error {
	var length uint32
	if err := binary.Read(r, endian, &length); err != nil {
		return err
	}
	if length != m.Length {
		return errors.Wrapf(errUnexpectedMessageLength, "%d, want %d", length, m.Length)
	}
	_, err := io.ReadFull(r, m.Data)
	return err
}

func (m Message) String() string {
	return fmt.Sprintf("message{length=%d}", m.Length)
}

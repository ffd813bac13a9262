package plan

import (
	"fmt"
	"net"
	"strconv"
)

// PeerID is the unique identifier of a peer.
type PeerID NetAddr

func (p PeerID) String() string {
	return NetAddr(p).String()
}

func (p PeerID) ColocatedWith(q PeerID) bool {
	return NetAddr(p).ColocatedWith(NetAddr(q))
}

func (p PeerID) WithName(name string) Addr {
	return NetAddr(p).WithName(name)
}

// ListenAddr is the address the peer's server binds to.
func (p PeerID) ListenAddr(strict bool) NetAddr {
	if strict {
		return NetAddr(p)
	}
	return NetAddr{IPv4: 0, Port: p.Port}
}

// ParsePeerID parses <ipv4>:<port>.
func ParsePeerID(val string) (*PeerID, error) {
	host, p, err := net.SplitHostPort(val)
	if err != nil {
		return nil, err
	}
	ipv4, err := ParseIPv4(host)
	if err != nil {
		return nil, fmt.Errorf("%v: %q", err, host)
	}
	port, err := strconv.Atoi(p)
	if err != nil {
		return nil, err
	}
	if port <= 0 || int(uint16(port)) != port {
		return nil, errInvalidPort
	}
	return &PeerID{
		IPv4: ipv4,
		Port: uint16(port),
	}, nil
}

package plan

import (
	"errors"
	"fmt"
	"strings"
)

// PeerList is the ordered list of peers; the index of a peer is its rank.
type PeerList []PeerID

var errDuplicatedPeer = errors.New("duplicated peer")

func (pl PeerList) String() string {
	var parts []string
	for _, p := range pl {
		parts = append(parts, p.String())
	}
	return strings.Join(parts, ",")
}

func (pl PeerList) Rank(q PeerID) (int, bool) {
	for i, p := range pl {
		if p == q {
			return i, true
		}
	}
	return -1, false
}

// LocalRank is the rank of q among the peers on the same host.
func (pl PeerList) LocalRank(q PeerID) (int, bool) {
	var i int
	for _, p := range pl {
		if p == q {
			return i, true
		}
		if q.ColocatedWith(p) {
			i++
		}
	}
	return -1, false
}

func (pl PeerList) LocalSize(q PeerID) int {
	return len(pl.On(q.IPv4))
}

func (pl PeerList) On(host uint32) PeerList {
	var ql PeerList
	for _, p := range pl {
		if p.IPv4 == host {
			ql = append(ql, p)
		}
	}
	return ql
}

func (pl PeerList) HostCount() int {
	hosts := make(map[uint32]struct{})
	for _, p := range pl {
		hosts[p.IPv4] = struct{}{}
	}
	return len(hosts)
}

func (pl PeerList) Eq(ql PeerList) bool {
	if len(pl) != len(ql) {
		return false
	}
	for i, p := range pl {
		if p != ql[i] {
			return false
		}
	}
	return true
}

// ParsePeerList parses a comma separated list of <ipv4>:<port>.
func ParsePeerList(val string) (PeerList, error) {
	var pl PeerList
	seen := make(map[PeerID]struct{})
	for _, p := range strings.Split(val, ",") {
		id, err := ParsePeerID(strings.TrimSpace(p))
		if err != nil {
			return nil, err
		}
		if _, ok := seen[*id]; ok {
			return nil, fmt.Errorf("%v: %s", errDuplicatedPeer, id)
		}
		seen[*id] = struct{}{}
		pl = append(pl, *id)
	}
	return pl, nil
}

func (pl PeerList) Set() map[PeerID]struct{} {
	s := make(map[PeerID]struct{})
	for _, p := range pl {
		s[p] = struct{}{}
	}
	return s
}

// Select returns the peers at the given ranks.
func (pl PeerList) Select(ranks []int) PeerList {
	var ql PeerList
	for _, r := range ranks {
		ql = append(ql, pl[r])
	}
	return ql
}

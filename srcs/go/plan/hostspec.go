package plan

import (
	"errors"
	"fmt"
	"runtime"
	"strconv"
	"strings"
)

var errInvalidHostSpec = errors.New("invalid HostSpec")

// HostSpec is <ipv4>[:<slots>[:<public addr>]].
type HostSpec struct {
	IPv4       uint32
	Slots      int
	PublicAddr string
}

func (h HostSpec) String() string {
	return fmt.Sprintf("%s:%d:%s", FormatIPv4(h.IPv4), h.Slots, h.PublicAddr)
}

func ParseHostSpec(spec string) (*HostSpec, error) {
	parts := strings.Split(spec, ":")
	ipv4, err := ParseIPv4(parts[0])
	if err != nil {
		return nil, fmt.Errorf("%v: %q", err, parts[0])
	}
	h := HostSpec{IPv4: ipv4, Slots: 1, PublicAddr: parts[0]}
	switch len(parts) {
	case 1:
	case 3:
		h.PublicAddr = parts[2]
		fallthrough
	case 2:
		slots, err := strconv.Atoi(parts[1])
		if err != nil || slots <= 0 {
			return nil, errInvalidHostSpec
		}
		h.Slots = slots
	default:
		return nil, errInvalidHostSpec
	}
	return &h, nil
}

type HostList []HostSpec

var DefaultHostList = HostList{
	{
		IPv4:       MustParseIPv4(`127.0.0.1`),
		Slots:      runtime.NumCPU(),
		PublicAddr: `127.0.0.1`,
	},
}

func (hl HostList) String() string {
	var ss []string
	for _, h := range hl {
		ss = append(ss, h.String())
	}
	return strings.Join(ss, ",")
}

// Set implements flag.Value
func (hl *HostList) Set(val string) error {
	value, err := ParseHostList(val)
	if err != nil {
		return err
	}
	*hl = value
	return nil
}

func ParseHostList(val string) (HostList, error) {
	var hl HostList
	for _, h := range strings.Split(val, ",") {
		spec, err := ParseHostSpec(strings.TrimSpace(h))
		if err != nil {
			return nil, err
		}
		hl = append(hl, *spec)
	}
	return hl, nil
}

func (hl HostList) Cap() int {
	var cap int
	for _, h := range hl {
		cap += h.Slots
	}
	return cap
}

func (hl HostList) Lookup(ipv4 uint32) (HostSpec, bool) {
	for _, h := range hl {
		if h.IPv4 == ipv4 {
			return h, true
		}
	}
	return HostSpec{}, false
}

// PortRange is the inclusive range [Begin, End].
type PortRange struct {
	Begin uint16
	End   uint16
}

var DefaultPortRange = PortRange{
	Begin: 10000,
	End:   11000,
}

var errInvalidPortRange = errors.New("invalid port range")

func ParsePortRange(val string) (*PortRange, error) {
	var begin, end uint16
	if _, err := fmt.Sscanf(val, "%d-%d", &begin, &end); err != nil {
		return nil, fmt.Errorf("%v: %q", errInvalidPortRange, val)
	}
	if end < begin || begin == 0 {
		return nil, errInvalidPortRange
	}
	return &PortRange{Begin: begin, End: end}, nil
}

func (pr PortRange) Cap() int {
	return int(pr.End) - int(pr.Begin) + 1
}

func (pr PortRange) String() string {
	return fmt.Sprintf("%d-%d", pr.Begin, pr.End)
}

// Set implements flag.Value
func (pr *PortRange) Set(val string) error {
	value, err := ParsePortRange(val)
	if err != nil {
		return err
	}
	*pr = *value
	return nil
}

var errNoEnoughCapacity = errors.New("no enough capacity")

// GenPeerList fills the slots of each host in order with consecutive ports.
func (hl HostList) GenPeerList(np int, pr PortRange) (PeerList, error) {
	if hl.Cap() < np {
		return nil, fmt.Errorf("%v: %d slots for %d peers", errNoEnoughCapacity, hl.Cap(), np)
	}
	for _, h := range hl {
		if pr.Cap() < h.Slots {
			return nil, fmt.Errorf("%v: %d ports for %d slots", errNoEnoughCapacity, pr.Cap(), h.Slots)
		}
	}
	var pl PeerList
	for _, host := range hl {
		for j := 0; j < host.Slots && len(pl) < np; j++ {
			pl = append(pl, PeerID{
				IPv4: host.IPv4,
				Port: pr.Begin + uint16(j),
			})
		}
	}
	return pl, nil
}

// Package hostfile parses an MPI style hostfile, one host per line:
//
//	<ipv4> [slots=<n>] [public_addr=<addr>] # comment
package hostfile

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/lsds/kungfu-ddp/srcs/go/plan"
)

func ParseFile(filename string) (plan.HostList, error) {
	bs, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	return Parse(string(bs))
}

func Parse(text string) (plan.HostList, error) {
	var hl plan.HostList
	for i, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(strings.SplitN(line, "#", 2)[0])
		if len(line) == 0 {
			continue
		}
		h, err := parseLine(line)
		if err != nil {
			return nil, fmt.Errorf("line %d: %v", i+1, err)
		}
		hl = append(hl, *h)
	}
	return hl, nil
}

var errInvalidHostfile = errors.New("invalid hostfile")

func parseLine(line string) (*plan.HostSpec, error) {
	parts := strings.Fields(line)
	ipv4, err := plan.ParseIPv4(parts[0])
	if err != nil {
		return nil, fmt.Errorf("%v: %q", err, parts[0])
	}
	h := plan.HostSpec{IPv4: ipv4, Slots: 1, PublicAddr: parts[0]}
	for _, kv := range parts[1:] {
		k, v, ok := strings.Cut(kv, "=")
		if !ok {
			return nil, errInvalidHostfile
		}
		switch k {
		case `slots`:
			n, err := strconv.Atoi(v)
			if err != nil || n <= 0 {
				return nil, errInvalidHostfile
			}
			h.Slots = n
		case `public_addr`:
			h.PublicAddr = v
		default:
			return nil, fmt.Errorf("%v: unknown key %q", errInvalidHostfile, k)
		}
	}
	return &h, nil
}

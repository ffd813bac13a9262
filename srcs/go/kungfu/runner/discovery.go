package runner

import (
	"net"

	"github.com/lsds/kungfu-ddp/srcs/go/plan"
	"github.com/pkg/errors"
)

var errNoIPv4Found = errors.New("no ipv4 found")

// InferSelfIPv4 decides which entry of the host list is this machine. The
// -self value wins and may be an address or a resolvable name; otherwise the
// first IPv4 of the -nic interface is used, and 127.0.0.1 when neither is set.
func InferSelfIPv4(self string, nic string) (uint32, error) {
	switch {
	case len(self) > 0:
		if ipv4, err := plan.ParseIPv4(self); err == nil {
			return ipv4, nil
		}
		return resolveIPv4(self)
	case len(nic) > 0:
		return nicIPv4(nic)
	}
	return plan.MustParseIPv4(`127.0.0.1`), nil
}

func resolveIPv4(host string) (uint32, error) {
	ips, err := net.LookupIP(host)
	if err != nil {
		return 0, errors.Wrapf(err, "resolve -self %q", host)
	}
	if ip := firstIPv4(ips); ip != nil {
		return plan.PackIPv4(ip), nil
	}
	return 0, errors.Wrapf(errNoIPv4Found, "host %s", host)
}

func nicIPv4(nic string) (uint32, error) {
	iface, err := net.InterfaceByName(nic)
	if err != nil {
		return 0, errors.Wrapf(err, "nic %s", nic)
	}
	addrs, err := iface.Addrs()
	if err != nil {
		return 0, errors.Wrapf(err, "nic %s", nic)
	}
	var ips []net.IP
	for _, addr := range addrs {
		switch v := addr.(type) {
		case *net.IPNet:
			ips = append(ips, v.IP)
		case *net.IPAddr:
			ips = append(ips, v.IP)
		}
	}
	if ip := firstIPv4(ips); ip != nil {
		return plan.PackIPv4(ip), nil
	}
	return 0, errors.Wrapf(errNoIPv4Found, "nic %s", nic)
}

func firstIPv4(ips []net.IP) net.IP {
	for _, ip := range ips {
		if v4 := ip.To4(); v4 != nil {
			return v4
		}
	}
	return nil
}

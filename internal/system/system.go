package system

import (
	"context"
	"errors"
	"net"
	"os"
	"strings"
)

// NetInfo reports how the device can be reached.
type NetInfo interface {
	Hostname() (string, error)
	IP(ctx context.Context) (string, error)
}

var ErrNoAddress = errors.New("no usable IPv4 address")

// HostNetInfo reads the local hostname and the first up, non-loopback IPv4
// interface address.
type HostNetInfo struct {
	// Interfaces overrides net.Interfaces, mainly for tests.
	Interfaces func() ([]net.Interface, error)
	// Addrs overrides (*net.Interface).Addrs, mainly for tests.
	Addrs func(net.Interface) ([]net.Addr, error)
}

func (HostNetInfo) Hostname() (string, error) {
	name, err := os.Hostname()
	if err != nil {
		return "", err
	}
	return strings.TrimSuffix(name, ".local"), nil
}

func (h HostNetInfo) IP(ctx context.Context) (string, error) {
	list := h.Interfaces
	if list == nil {
		list = net.Interfaces
	}
	addrs := h.Addrs
	if addrs == nil {
		addrs = func(iface net.Interface) ([]net.Addr, error) { return iface.Addrs() }
	}

	ifaces, err := list()
	if err != nil {
		return "", err
	}
	for _, iface := range ifaces {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}
		as, err := addrs(iface)
		if err != nil {
			continue
		}
		for _, a := range as {
			var ip net.IP
			switch v := a.(type) {
			case *net.IPNet:
				ip = v.IP
			case *net.IPAddr:
				ip = v.IP
			}
			if ip4 := ip.To4(); ip4 != nil && !ip4.IsLoopback() && !ip4.IsLinkLocalUnicast() {
				return ip4.String(), nil
			}
		}
	}
	return "", ErrNoAddress
}

// StaticNetInfo returns fixed values. The simulator uses it.
type StaticNetInfo struct {
	Host    string
	Address string
}

func (s StaticNetInfo) Hostname() (string, error) { return s.Host, nil }

func (s StaticNetInfo) IP(ctx context.Context) (string, error) {
	if s.Address == "" {
		return "", ErrNoAddress
	}
	return s.Address, nil
}

package supervisor

import (
	"strings"

	"github.com/shirou/gopsutil/v3/net"
	"k8s.io/klog/v2"
)

// Link reports whether the network path to the broker is usable. Association
// itself is owned by the OS network stack.
type Link interface {
	Associate() error
	Up() (bool, string)
}

var _ Link = (*InterfaceLink)(nil)
var _ Link = StaticLink{}

// InterfaceLink watches one named interface: it is up when the kernel flags
// it up and it carries at least one address.
type InterfaceLink struct {
	Name       string
	interfaces func() (net.InterfaceStatList, error)
}

func NewInterfaceLink(name string) *InterfaceLink {
	return &InterfaceLink{Name: name, interfaces: net.Interfaces}
}

func (l *InterfaceLink) Associate() error {
	if _, err := l.lookup(); err != nil {
		return err
	}
	return nil
}

func (l *InterfaceLink) Up() (bool, string) {
	iface, err := l.lookup()
	if err != nil {
		klog.V(4).InfoS("Failed to inspect interface", "interface", l.Name, "error", err)
		return false, ""
	}
	up := false
	for _, flag := range iface.Flags {
		if flag == "up" {
			up = true
			break
		}
	}
	if !up || len(iface.Addrs) == 0 {
		return false, ""
	}
	for _, addr := range iface.Addrs {
		// prefer an IPv4 address for the log line
		if !strings.Contains(addr.Addr, ":") {
			return true, addr.Addr
		}
	}
	return true, iface.Addrs[0].Addr
}

func (l *InterfaceLink) lookup() (*net.InterfaceStat, error) {
	list, err := l.interfaces()
	if err != nil {
		return nil, err
	}
	for i := range list {
		if list[i].Name == l.Name {
			return &list[i], nil
		}
	}
	return nil, ErrNoInterface
}

// StaticLink is used when no interface is configured; the link is assumed up.
type StaticLink struct{}

func (StaticLink) Associate() error { return nil }

func (StaticLink) Up() (bool, string) { return true, "" }

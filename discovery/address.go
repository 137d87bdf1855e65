package discovery

import (
	"net"
	"strconv"

	"github.com/pkg/errors"
)

// Family tags the IP version of a peer address.
type Family uint8

const (
	FamilyIPv4 Family = 4
	FamilyIPv6 Family = 6
)

func (f Family) String() string {
	switch f {
	case FamilyIPv4:
		return "ipv4"
	case FamilyIPv6:
		return "ipv6"
	}
	return "Family(" + strconv.Itoa(int(f)) + ")"
}

// PeerAddress is a resolved candidate peer. Treat it as immutable.
type PeerAddress struct {
	IP     net.IP
	Port   uint16
	Family Family
}

// NewPeerAddress copies ip and tags it with its family. IPv4-mapped IPv6
// addresses are treated as IPv4.
func NewPeerAddress(ip net.IP, port uint16) PeerAddress {
	if v4 := ip.To4(); v4 != nil {
		return PeerAddress{IP: append(net.IP(nil), v4...), Port: port, Family: FamilyIPv4}
	}
	return PeerAddress{IP: append(net.IP(nil), ip.To16()...), Port: port, Family: FamilyIPv6}
}

// ParsePeerAddress accepts "ip", "ip:port" or "[ipv6]:port". defaultPort is
// used when no port is given.
func ParsePeerAddress(s string, defaultPort uint16) (PeerAddress, error) {
	if ip := net.ParseIP(s); ip != nil {
		return NewPeerAddress(ip, defaultPort), nil
	}
	host, portStr, err := net.SplitHostPort(s)
	if err != nil {
		return PeerAddress{}, errors.Wrapf(err, "parse peer address %q", s)
	}
	ip := net.ParseIP(host)
	if ip == nil {
		return PeerAddress{}, errors.Errorf("parse peer address %q: %q is not an IP", s, host)
	}
	port, err := strconv.ParseUint(portStr, 10, 16)
	if err != nil {
		return PeerAddress{}, errors.Wrapf(err, "parse peer address %q", s)
	}
	return NewPeerAddress(ip, uint16(port)), nil
}

func (a PeerAddress) String() string {
	return net.JoinHostPort(a.IP.String(), strconv.Itoa(int(a.Port)))
}

// Key identifies the address in maps and reports.
func (a PeerAddress) Key() string {
	return a.String()
}

// Network is the dial network matching the address family.
func (a PeerAddress) Network() string {
	if a.Family == FamilyIPv4 {
		return "tcp4"
	}
	return "tcp6"
}

func (a PeerAddress) TCPAddr() *net.TCPAddr {
	return &net.TCPAddr{IP: a.IP, Port: int(a.Port)}
}

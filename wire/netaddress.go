package wire

import (
	"encoding/binary"
	"net"
)

// netAddressSize is services(8) + ip(16) + port(2).
const netAddressSize = 26

// NetAddress is a peer address as embedded in a version message. The port
// is big-endian on the wire, unlike every other integer in the protocol.
type NetAddress struct {
	Services ServiceFlag
	IP       net.IP // always 16 bytes, IPv4 stored v4-mapped
	Port     uint16
}

// NewNetAddress normalises ip to its 16-byte form. A nil ip becomes the
// unspecified IPv6 address.
func NewNetAddress(ip net.IP, port uint16, services ServiceFlag) NetAddress {
	ip16 := make(net.IP, net.IPv6len)
	if v := ip.To16(); v != nil {
		copy(ip16, v)
	}
	return NetAddress{Services: services, IP: ip16, Port: port}
}

// NetAddressFromAddr builds a NetAddress from a connection endpoint. Non-TCP
// endpoints (in-memory pipes) map to the unspecified address.
func NetAddressFromAddr(addr net.Addr, services ServiceFlag) NetAddress {
	if tcp, ok := addr.(*net.TCPAddr); ok {
		return NewNetAddress(tcp.IP, uint16(tcp.Port), services)
	}
	return NewNetAddress(nil, 0, services)
}

func (na NetAddress) appendTo(dst []byte) []byte {
	dst = binary.LittleEndian.AppendUint64(dst, uint64(na.Services))
	var ip [net.IPv6len]byte
	if v := na.IP.To16(); v != nil {
		copy(ip[:], v)
	}
	dst = append(dst, ip[:]...)
	return binary.BigEndian.AppendUint16(dst, na.Port)
}

func (r *payloadReader) netAddress() NetAddress {
	b := r.next(netAddressSize, "net address")
	if b == nil {
		return NetAddress{}
	}
	ip := make(net.IP, net.IPv6len)
	copy(ip, b[8:24])
	return NetAddress{
		Services: ServiceFlag(binary.LittleEndian.Uint64(b[0:8])),
		IP:       ip,
		Port:     binary.BigEndian.Uint16(b[24:26]),
	}
}

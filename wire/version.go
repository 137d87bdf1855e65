package wire

import "encoding/binary"

const (
	// ProtocolVersion is the latest protocol version this package speaks.
	ProtocolVersion int32 = 70016

	// MinAcceptableProtocolVersion is the oldest version that carries every
	// field of the version payload (relay was added in 70001).
	MinAcceptableProtocolVersion int32 = 70001

	DefaultUserAgent = "/EPeer:0.1.0/"
)

// MsgVersion is the first message each side sends on a new connection.
type MsgVersion struct {
	ProtocolVersion int32
	Services        ServiceFlag
	Timestamp       int64 // unix seconds
	AddrRecv        NetAddress
	AddrFrom        NetAddress
	Nonce           uint64
	UserAgent       string
	StartHeight     int32
	Relay           bool
}

func (msg *MsgVersion) Command() string {
	return VERSION_MSG
}

// Encode serialises the payload in wire order. The user agent is written as
// opaque bytes behind a CompactSize length.
func (msg *MsgVersion) Encode() []byte {
	buf := make([]byte, 0, 4+8+8+2*netAddressSize+8+CompactSizeLen(uint64(len(msg.UserAgent)))+len(msg.UserAgent)+4+1)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(msg.ProtocolVersion))
	buf = binary.LittleEndian.AppendUint64(buf, uint64(msg.Services))
	buf = binary.LittleEndian.AppendUint64(buf, uint64(msg.Timestamp))
	buf = msg.AddrRecv.appendTo(buf)
	buf = msg.AddrFrom.appendTo(buf)
	buf = binary.LittleEndian.AppendUint64(buf, msg.Nonce)
	buf = AppendCompactSize(buf, uint64(len(msg.UserAgent)))
	buf = append(buf, msg.UserAgent...)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(msg.StartHeight))
	if msg.Relay {
		buf = append(buf, 1)
	} else {
		buf = append(buf, 0)
	}
	return buf
}

// DecodeVersion parses a version payload. Every field must be present in
// full; bytes after the relay flag are ignored so newer peers that append
// fields still decode.
func DecodeVersion(b []byte) (*MsgVersion, error) {
	r := newPayloadReader("DecodeVersion", b)
	msg := &MsgVersion{
		ProtocolVersion: int32(r.u32("protocol version")),
		Services:        ServiceFlag(r.u64("services")),
		Timestamp:       int64(r.u64("timestamp")),
		AddrRecv:        r.netAddress(),
		AddrFrom:        r.netAddress(),
		Nonce:           r.u64("nonce"),
		UserAgent:       string(r.varBytes("user agent")),
		StartHeight:     int32(r.u32("start height")),
		Relay:           r.u8("relay") != 0,
	}
	if r.err != nil {
		return nil, r.err
	}
	return msg, nil
}

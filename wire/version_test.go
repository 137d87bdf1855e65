package wire

import (
	"bytes"
	"encoding/binary"
	"net"
	"testing"

	"github.com/davecgh/go-spew/spew"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleVersion() *MsgVersion {
	return &MsgVersion{
		ProtocolVersion: ProtocolVersion,
		Services:        SFNodeNetwork | SFNodeWitness,
		Timestamp:       1700000000,
		AddrRecv:        NewNetAddress(net.ParseIP("203.0.113.7"), 8333, SFNodeNetwork),
		AddrFrom:        NewNetAddress(net.ParseIP("2001:db8::1"), 18444, 0),
		Nonce:           0x0123456789abcdef,
		UserAgent:       DefaultUserAgent,
		StartHeight:     840000,
		Relay:           true,
	}
}

func TestVersionRoundTrip(t *testing.T) {
	long := sampleVersion()
	long.UserAgent = string(bytes.Repeat([]byte{'a'}, 300))
	long.Relay = false

	negative := sampleVersion()
	negative.StartHeight = -1
	negative.Timestamp = -5

	tests := []struct {
		name string
		msg  *MsgVersion
	}{
		{"typical", sampleVersion()},
		{"empty user agent", &MsgVersion{AddrRecv: NewNetAddress(nil, 0, 0), AddrFrom: NewNetAddress(nil, 0, 0)}},
		{"long user agent", long},
		{"negative fields", negative},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			got, err := DecodeVersion(test.msg.Encode())
			require.NoError(t, err)
			assert.Equal(t, test.msg, got, spew.Sdump(got))
		})
	}
}

func TestVersionWireLayout(t *testing.T) {
	msg := sampleVersion()
	b := msg.Encode()
	require.Len(t, b, 4+8+8+26+26+8+1+len(DefaultUserAgent)+4+1)

	assert.Equal(t, uint32(ProtocolVersion), binary.LittleEndian.Uint32(b[0:4]))

	// addr_recv starts at 20: services(8) ip(16) port(2, big-endian).
	recv := b[20:46]
	assert.Equal(t, []byte{0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0xff, 0xff, 203, 0, 113, 7}, recv[8:24])
	assert.Equal(t, []byte{0x20, 0x8d}, recv[24:26]) // 8333

	ua := b[80:]
	assert.Equal(t, byte(len(DefaultUserAgent)), ua[0])
	assert.Equal(t, DefaultUserAgent, string(ua[1:1+len(DefaultUserAgent)]))
	assert.Equal(t, byte(1), b[len(b)-1])
}

func TestDecodeVersionTruncated(t *testing.T) {
	b := sampleVersion().Encode()
	for n := 0; n < len(b); n++ {
		_, err := DecodeVersion(b[:n])
		assert.ErrorIs(t, err, ErrMalformedPayload, "prefix of %d bytes", n)
	}
}

func TestDecodeVersionIgnoresTrailingBytes(t *testing.T) {
	b := append(sampleVersion().Encode(), 0xde, 0xad)
	got, err := DecodeVersion(b)
	require.NoError(t, err)
	assert.Equal(t, sampleVersion(), got)
}

func TestDecodeVersionUserAgentOverrun(t *testing.T) {
	b := sampleVersion().Encode()
	// Claim a user agent far longer than the payload.
	b[80] = 0xfd
	b = append(b[:81], append([]byte{0xff, 0xff}, b[81:]...)...)
	_, err := DecodeVersion(b)
	assert.ErrorIs(t, err, ErrMalformedPayload)
}

func TestDecodeVerAck(t *testing.T) {
	_, err := DecodeVerAck(nil)
	assert.NoError(t, err)

	_, err = DecodeVerAck([]byte{0})
	assert.ErrorIs(t, err, ErrMalformedPayload)
}

func TestDecodePing(t *testing.T) {
	got, err := DecodePing((&MsgPing{Nonce: 42}).Encode())
	require.NoError(t, err)
	assert.Equal(t, uint64(42), got.Nonce)

	_, err = DecodePong([]byte{1, 2, 3})
	assert.ErrorIs(t, err, ErrMalformedPayload)
}

func TestDecodePayloadUnknownCommand(t *testing.T) {
	p, err := DecodePayload("getheaders", nil)
	assert.Nil(t, p)
	assert.ErrorIs(t, err, ErrInvalidCommand)

	p, err = DecodePayload(VERACK_MSG, []byte{1})
	assert.Nil(t, p)
	assert.ErrorIs(t, err, ErrMalformedPayload)
}

func TestNetAddressFromAddr(t *testing.T) {
	na := NetAddressFromAddr(&net.TCPAddr{IP: net.IPv4(10, 0, 0, 1), Port: 18333}, SFNodeBloom)
	assert.Equal(t, uint16(18333), na.Port)
	assert.Len(t, na.IP, net.IPv6len)
	assert.True(t, na.IP.Equal(net.IPv4(10, 0, 0, 1)))

	pipe, _ := net.Pipe()
	defer pipe.Close()
	na = NetAddressFromAddr(pipe.RemoteAddr(), 0)
	assert.True(t, na.IP.IsUnspecified())
	assert.Zero(t, na.Port)
}

package network

import (
	"EPeer/discovery"
	"EPeer/wire"

	"net"
	"time"

	"github.com/pkg/errors"
)

const peerNonce = 0x5eed

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Network = wire.RegTest
	cfg.StepTimeout = time.Second
	cfg.AttemptTimeout = 2 * time.Second
	return cfg
}

func remoteVersion(nonce uint64, version int32) *wire.MsgVersion {
	return &wire.MsgVersion{
		ProtocolVersion: version,
		Services:        wire.SFNodeNetwork | wire.SFNodeWitness,
		Timestamp:       1700000000,
		AddrRecv:        wire.NewNetAddress(nil, 0, 0),
		AddrFrom:        wire.NewNetAddress(nil, 0, 0),
		Nonce:           nonce,
		UserAgent:       "/Satoshi:25.0.0/",
		StartHeight:     812345,
		Relay:           true,
	}
}

func testPeer(s string) discovery.PeerAddress {
	addr, err := discovery.ParsePeerAddress(s, wire.RegTest.DefaultPort)
	if err != nil {
		panic(err)
	}
	return addr
}

// remote is the far end of a scripted connection.
type remote struct {
	conn net.Conn
}

func (r remote) read() (*wire.Message, error) {
	return wire.ReadMessage(r.conn, wire.RegTest.Magic, wire.DefaultMaxPayload)
}

// expect reads one message and checks its command.
func (r remote) expect(command string) (*wire.Message, error) {
	msg, err := r.read()
	if err != nil {
		return nil, err
	}
	if msg.Command != command {
		return nil, errors.Errorf("remote got %s, want %s", msg.Command, command)
	}
	return msg, nil
}

func (r remote) write(p wire.Payload) error {
	return wire.WriteMessage(r.conn, wire.RegTest.Magic, p)
}

// script is the behaviour of a simulated peer.
type script func(r remote) error

// honest completes the responder side of a handshake.
func honest(r remote) error {
	if _, err := r.expect(wire.VERSION_MSG); err != nil {
		return err
	}
	if err := r.write(remoteVersion(peerNonce, 70015)); err != nil {
		return err
	}
	if _, err := r.expect(wire.VERACK_MSG); err != nil {
		return err
	}
	return r.write(&wire.MsgVerAck{})
}

// silent reads the version and then waits until the connection is closed.
func silent(r remote) error {
	if _, err := r.expect(wire.VERSION_MSG); err != nil {
		return err
	}
	_, err := r.read()
	return err
}

// startScript runs s against one end of an in-memory connection and returns
// the other end. The script's result is sent on the returned channel once
// the script ends and its end is closed.
func startScript(s script) (net.Conn, <-chan error) {
	local, far := net.Pipe()
	done := make(chan error, 1)
	go func() {
		err := s(remote{far})
		far.Close()
		done <- err
	}()
	return local, done
}

package network

import (
	"EPeer/discovery"

	"context"
	"crypto/rand"
	"encoding/binary"
	"net"
	"sync"
	"time"

	"github.com/pkg/errors"
)

// aLongTimeAgo is a deadline that has always passed; setting it makes any
// blocked Read or Write on the connection return immediately.
var aLongTimeAgo = time.Unix(1, 0)

// interruptOnDone clears the connection deadline and arranges for the
// pending I/O to be unblocked when ctx is done. The returned stop function
// must be called once the I/O has returned.
func interruptOnDone(ctx context.Context, conn net.Conn) (stop func()) {
	_ = conn.SetDeadline(time.Time{})

	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		select {
		case <-ctx.Done():
			_ = conn.SetDeadline(aLongTimeAgo)
		case <-done:
		}
	}()
	return func() {
		close(done)
		wg.Wait()
	}
}

func randomNonce() (uint64, error) {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		return 0, errors.Wrap(err, "read random nonce")
	}
	return binary.LittleEndian.Uint64(b[:]), nil
}

// nonceSet holds the nonces of outbound sessions in flight, so an inbound
// version carrying one of them is recognised as a connection to ourselves.
type nonceSet struct {
	mu     sync.Mutex
	nonces map[uint64]struct{}
}

func newNonceSet() *nonceSet {
	return &nonceSet{nonces: make(map[uint64]struct{})}
}

func (s *nonceSet) add(n uint64) {
	s.mu.Lock()
	s.nonces[n] = struct{}{}
	s.mu.Unlock()
}

func (s *nonceSet) remove(n uint64) {
	s.mu.Lock()
	delete(s.nonces, n)
	s.mu.Unlock()
}

func (s *nonceSet) contains(n uint64) bool {
	if s == nil {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.nonces[n]
	return ok
}

// peerFromAddr describes the remote end of an accepted connection.
func peerFromAddr(addr net.Addr) discovery.PeerAddress {
	if tcp, ok := addr.(*net.TCPAddr); ok {
		return discovery.NewPeerAddress(tcp.IP, uint16(tcp.Port))
	}
	return discovery.PeerAddress{}
}

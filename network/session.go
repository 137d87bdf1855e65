package network

import (
	"EPeer/discovery"
	"EPeer/wire"

	"context"
	"net"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Session drives the version/verack exchange over one connection. It is
// owned by a single goroutine and is not safe for concurrent use.
type Session struct {
	conn     net.Conn
	peer     discovery.PeerAddress
	cfg      Config
	clock    clock.Clock
	log      *zap.Logger
	id       string
	outbound *nonceSet

	localNonce  uint64
	state       State
	failure     *Failure
	version     int32
	services    wire.ServiceFlag
	peerVersion *wire.MsgVersion
	started     time.Time
	finished    time.Time
}

// NewSession prepares a session in StateInit. It does not touch conn.
func NewSession(conn net.Conn, peer discovery.PeerAddress, cfg Config, opts ...Option) (*Session, error) {
	o := buildOptions(opts)
	nonce := o.nonce
	if nonce == nil {
		nonce = randomNonce
	}
	localNonce, err := nonce()
	if err != nil {
		return nil, err
	}
	return &Session{
		conn:       conn,
		peer:       peer,
		cfg:        cfg,
		clock:      o.clock,
		log:        o.log.With(zap.Stringer("peer", peer)),
		id:         o.attemptID,
		outbound:   o.outbound,
		localNonce: localNonce,
		state:      StateInit,
	}, nil
}

// Handshake runs the initiator side: send version, wait for the peer's
// version, acknowledge it, wait for the peer's acknowledgement. It returns
// nil once established and the *Failure otherwise. Calling it on a finished
// session returns the recorded result without any I/O.
func (s *Session) Handshake(ctx context.Context) error {
	return s.run(ctx, s.initiatorStep)
}

// Respond runs the responder side: wait for the peer's version, answer with
// version and verack, wait for the peer's acknowledgement.
func (s *Session) Respond(ctx context.Context) error {
	return s.run(ctx, s.responderStep)
}

func (s *Session) run(ctx context.Context, step func(context.Context) (State, error)) error {
	if s.started.IsZero() {
		s.started = s.clock.Now()
	}
	for !s.state.Terminal() {
		next, err := step(ctx)
		if err != nil {
			s.fail(err)
			break
		}
		s.transition(next)
	}
	if s.finished.IsZero() {
		s.finished = s.clock.Now()
	}
	if s.failure != nil {
		return s.failure
	}
	return nil
}

func (s *Session) initiatorStep(ctx context.Context) (State, error) {
	switch s.state {
	case StateInit:
		return StateVersionSent, s.send(ctx, s.versionMessage())
	case StateVersionSent:
		return StateVersionReceived, s.awaitVersion(ctx)
	case StateVersionReceived:
		return StateAckSent, s.send(ctx, &wire.MsgVerAck{})
	case StateAckSent:
		return StateAckReceived, s.awaitVerAck(ctx)
	case StateAckReceived:
		return StateEstablished, nil
	case StateEstablished, StateFailed:
	}
	return s.state, errors.Errorf("no initiator transition from %s", s.state)
}

func (s *Session) responderStep(ctx context.Context) (State, error) {
	switch s.state {
	case StateInit:
		return StateVersionReceived, s.awaitVersion(ctx)
	case StateVersionReceived:
		return StateVersionSent, s.send(ctx, s.versionMessage())
	case StateVersionSent:
		return StateAckSent, s.send(ctx, &wire.MsgVerAck{})
	case StateAckSent:
		return StateAckReceived, s.awaitVerAck(ctx)
	case StateAckReceived:
		return StateEstablished, nil
	case StateEstablished, StateFailed:
	}
	return s.state, errors.Errorf("no responder transition from %s", s.state)
}

func (s *Session) transition(next State) {
	s.log.Debug("state transition", zap.Stringer("from", s.state), zap.Stringer("to", next))
	s.state = next
}

func (s *Session) fail(err error) {
	var f *Failure
	if !errors.As(err, &f) {
		f = newFailure(ReasonConnection, s.state, err)
	}
	s.log.Debug("state transition", zap.Stringer("from", s.state), zap.Stringer("to", StateFailed),
		zap.Stringer("reason", f.Reason), zap.Error(f.Err))
	s.failure = f
	s.state = StateFailed
}

// ======= Accessors =======

func (s *Session) State() State {
	return s.state
}

// Failure is nil unless the session is in StateFailed.
func (s *Session) Failure() *Failure {
	return s.failure
}

func (s *Session) Peer() discovery.PeerAddress {
	return s.peer
}

func (s *Session) LocalNonce() uint64 {
	return s.localNonce
}

// NegotiatedVersion is the lower of both sides' protocol versions, or zero
// before the peer's version was accepted.
func (s *Session) NegotiatedVersion() int32 {
	return s.version
}

func (s *Session) Services() wire.ServiceFlag {
	return s.services
}

// PeerVersion is the peer's accepted version message, or nil.
func (s *Session) PeerVersion() *wire.MsgVersion {
	return s.peerVersion
}

// Outcome summarises the session for a report.
func (s *Session) Outcome() Outcome {
	out := Outcome{
		Peer:      s.peer,
		AttemptID: s.id,
		State:     s.state,
		Version:   s.version,
		Services:  s.services,
		Failure:   s.failure,
	}
	if s.peerVersion != nil {
		out.UserAgent = s.peerVersion.UserAgent
		out.StartHeight = s.peerVersion.StartHeight
	}
	if !s.finished.IsZero() {
		out.Duration = s.finished.Sub(s.started)
	}
	return out
}

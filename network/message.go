package network

import (
	"EPeer/wire"

	"context"

	"github.com/davecgh/go-spew/spew"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

func (s *Session) versionMessage() *wire.MsgVersion {
	return &wire.MsgVersion{
		ProtocolVersion: s.cfg.ProtocolVersion,
		Services:        s.cfg.Services,
		Timestamp:       s.clock.Now().Unix(),
		AddrRecv:        wire.NetAddressFromAddr(s.conn.RemoteAddr(), 0),
		AddrFrom:        wire.NetAddressFromAddr(s.conn.LocalAddr(), s.cfg.Services),
		Nonce:           s.localNonce,
		UserAgent:       s.cfg.UserAgent,
		StartHeight:     s.cfg.StartHeight,
		Relay:           s.cfg.Relay,
	}
}

// send writes one framed message within the step timeout.
func (s *Session) send(ctx context.Context, p wire.Payload) error {
	if err := ctx.Err(); err != nil {
		return classify(ctx, ctx, s.state, err)
	}
	stepCtx, cancel := s.clock.WithTimeout(ctx, s.cfg.StepTimeout)
	defer cancel()
	stop := interruptOnDone(stepCtx, s.conn)
	defer stop()

	s.log.Debug("send", zap.String("command", p.Command()))
	if err := wire.WriteMessage(s.conn, s.cfg.Network.Magic, p); err != nil {
		return classify(ctx, stepCtx, s.state, errors.Wrapf(err, "send %s", p.Command()))
	}
	return nil
}

// receive reads the next framed message within the step timeout.
func (s *Session) receive(ctx context.Context) (*wire.Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, classify(ctx, ctx, s.state, err)
	}
	stepCtx, cancel := s.clock.WithTimeout(ctx, s.cfg.StepTimeout)
	defer cancel()
	stop := interruptOnDone(stepCtx, s.conn)
	defer stop()

	msg, err := wire.ReadMessage(s.conn, s.cfg.Network.Magic, s.cfg.MaxPayload)
	if err != nil {
		return nil, classify(ctx, stepCtx, s.state, err)
	}
	s.log.Debug("receive", zap.String("command", msg.Command), zap.Int("bytes", len(msg.Payload)))
	return msg, nil
}

// awaitVersion reads the peer's version and negotiates with it. The self
// connection check runs before any other validation.
func (s *Session) awaitVersion(ctx context.Context) error {
	msg, err := s.receive(ctx)
	if err != nil {
		return err
	}
	if msg.Command != wire.VERSION_MSG {
		return newFailure(ReasonUnexpectedMessage, s.state,
			errors.Wrapf(ErrUnexpectedMessage, "got %s, want %s", msg.Command, wire.VERSION_MSG))
	}
	version, err := wire.DecodeVersion(msg.Payload)
	if err != nil {
		return newFailure(ReasonProtocol, s.state, err)
	}
	if ce := s.log.Check(zap.DebugLevel, "peer version"); ce != nil {
		ce.Write(zap.String("payload", spew.Sdump(version)))
	}

	if version.Nonce == s.localNonce || s.outbound.contains(version.Nonce) {
		return newFailure(ReasonSelfConnection, s.state,
			errors.Wrapf(ErrSelfConnection, "nonce %#016x", version.Nonce))
	}
	if version.ProtocolVersion < s.cfg.MinProtocolVersion {
		return newFailure(ReasonVersionIncompatible, s.state,
			errors.Wrapf(ErrVersionIncompatible, "peer speaks %d, minimum is %d",
				version.ProtocolVersion, s.cfg.MinProtocolVersion))
	}

	s.peerVersion = version
	s.version = min(version.ProtocolVersion, s.cfg.ProtocolVersion)
	s.services = version.Services
	return nil
}

// awaitVerAck reads the peer's acknowledgement. A second version, or any
// other command, is out of order.
func (s *Session) awaitVerAck(ctx context.Context) error {
	msg, err := s.receive(ctx)
	if err != nil {
		return err
	}
	if msg.Command != wire.VERACK_MSG {
		return newFailure(ReasonUnexpectedMessage, s.state,
			errors.Wrapf(ErrUnexpectedMessage, "got %s, want %s", msg.Command, wire.VERACK_MSG))
	}
	if _, err := wire.DecodeVerAck(msg.Payload); err != nil {
		return newFailure(ReasonProtocol, s.state, err)
	}
	return nil
}

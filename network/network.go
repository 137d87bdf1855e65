package network

import (
	"EPeer/discovery"

	"context"
	"net"
	"sync"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// Dialer opens outbound connections. *net.Dialer satisfies it.
type Dialer interface {
	DialContext(ctx context.Context, network, address string) (net.Conn, error)
}

// Manager discovers peers and handshakes with many of them at once.
type Manager struct {
	cfg        Config
	discoverer *discovery.Discoverer
	dialer     Dialer
	clock      clock.Clock
	log        *zap.Logger
	metrics    *Metrics
	nonce      func() (uint64, error)
	outbound   *nonceSet
}

func NewManager(cfg Config, opts ...Option) (*Manager, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "network config")
	}
	o := buildOptions(opts)
	m := &Manager{
		cfg:        cfg,
		discoverer: o.discoverer,
		dialer:     o.dialer,
		clock:      o.clock,
		log:        o.log.Named("network"),
		metrics:    NewMetrics(o.registerer),
		nonce:      o.nonce,
		outbound:   newNonceSet(),
	}
	if m.dialer == nil {
		m.dialer = &net.Dialer{}
	}
	if m.nonce == nil {
		m.nonce = randomNonce
	}
	if m.discoverer == nil {
		d, err := discovery.New(discovery.DefaultConfig(), discovery.WithLogger(o.log), discovery.WithClock(o.clock))
		if err != nil {
			return nil, err
		}
		m.discoverer = d
	}
	return m, nil
}

// DiscoverAndHandshake resolves seeds, or the network's own seeds when none
// are given, and handshakes with every address found. The error is non-nil
// only when discovery found no candidate at all.
func (m *Manager) DiscoverAndHandshake(ctx context.Context, seeds []string) (*Report, error) {
	if len(seeds) == 0 {
		seeds = m.cfg.Network.Seeds
	}
	res, err := m.discoverer.Resolve(ctx, seeds, m.cfg.port())
	if err != nil {
		return &Report{Outcomes: map[string]Outcome{}, Discovery: res}, errors.Wrap(err, "discover peers")
	}
	for seed, serr := range res.Errors {
		m.log.Info("seed skipped", zap.String("seed", seed), zap.Error(serr))
	}

	report := m.HandshakeAll(ctx, res.Addresses)
	report.Discovery = res
	return report, nil
}

// HandshakeAll attempts every address with at most MaxConcurrency attempts
// in flight. One peer's failure never affects another. Once
// TargetEstablished peers are established no new attempt starts, while
// running attempts finish. When ctx is cancelled running attempts are
// interrupted and HandshakeAll returns after all of them released their
// connection. Every address appears in the report.
func (m *Manager) HandshakeAll(ctx context.Context, addrs []discovery.PeerAddress) *Report {
	addrs = uniqueAddresses(addrs)
	results := newCollector()
	sem := semaphore.NewWeighted(int64(m.cfg.MaxConcurrency))
	var g errgroup.Group

	for i, addr := range addrs {
		err := sem.Acquire(ctx, 1)
		if err == nil && ctx.Err() != nil {
			sem.Release(1)
			err = ctx.Err()
		}
		if err != nil {
			m.skip(results, addrs[i:], ReasonCancelled, err)
			break
		}
		if target := m.cfg.TargetEstablished; target > 0 && results.establishedCount() >= target {
			sem.Release(1)
			m.skip(results, addrs[i:], ReasonSkipped, errors.Wrapf(ErrSkipped, "%d peers already established", target))
			break
		}

		addr := addr
		g.Go(func() error {
			defer sem.Release(1)
			results.record(m.Handshake(ctx, addr))
			return nil
		})
	}
	_ = g.Wait()

	report := results.report()
	counts := report.Counts()
	m.log.Info("handshake batch finished",
		zap.Int("candidates", len(addrs)),
		zap.Int("established", counts[ReasonNone]),
		zap.Int("failed", len(addrs)-counts[ReasonNone]))
	return report
}

func (m *Manager) skip(results *collector, addrs []discovery.PeerAddress, reason Reason, err error) {
	for _, addr := range addrs {
		o := Outcome{Peer: addr, State: StateFailed, Failure: newFailure(reason, StateInit, err)}
		m.metrics.notLaunched(o)
		results.record(o)
	}
}

// Handshake dials addr and runs the initiator handshake within
// AttemptTimeout. The connection is closed before it returns.
func (m *Manager) Handshake(ctx context.Context, addr discovery.PeerAddress) Outcome {
	id := uuid.NewString()
	log := m.log.With(zap.String("attempt", id))
	start := m.clock.Now()
	m.metrics.inFlight.Inc()
	defer m.metrics.inFlight.Dec()

	actx, cancel := m.clock.WithTimeout(ctx, m.cfg.AttemptTimeout)
	defer cancel()

	out := m.attempt(ctx, actx, addr, id, log)
	out.AttemptID = id
	out.Duration = m.clock.Since(start)
	m.metrics.observe(out)

	if out.Established() {
		log.Info("peer established", zap.Stringer("peer", addr),
			zap.Int32("version", out.Version), zap.Stringer("services", out.Services),
			zap.String("user_agent", out.UserAgent), zap.Duration("took", out.Duration))
	} else {
		log.Info("peer failed", zap.Stringer("peer", addr),
			zap.Stringer("reason", out.Reason()), zap.Stringer("state", out.Failure.State),
			zap.Error(out.Failure.Err), zap.Duration("took", out.Duration))
	}
	return out
}

func (m *Manager) attempt(ctx, actx context.Context, addr discovery.PeerAddress, id string, log *zap.Logger) Outcome {
	conn, err := m.dialer.DialContext(actx, addr.Network(), addr.String())
	if err != nil {
		return Outcome{Peer: addr, State: StateFailed,
			Failure: classify(ctx, actx, StateInit, errors.Wrap(err, "dial"))}
	}
	defer conn.Close()

	s, err := NewSession(conn, addr, m.cfg,
		WithClock(m.clock), WithLogger(log), WithNonceSource(m.nonce), WithAttemptID(id))
	if err != nil {
		return Outcome{Peer: addr, State: StateFailed,
			Failure: newFailure(ReasonConnection, StateInit, err)}
	}
	m.outbound.add(s.LocalNonce())
	defer m.outbound.remove(s.LocalNonce())

	_ = s.Handshake(actx)
	return s.Outcome()
}

// Serve accepts inbound connections on ln and answers each with the
// responder handshake. handle, when not nil, receives every outcome. Serve
// returns nil after ctx is done and every inbound session has finished.
func (m *Manager) Serve(ctx context.Context, ln net.Listener, handle func(Outcome)) error {
	stop := context.AfterFunc(ctx, func() {
		ln.Close()
	})
	defer stop()

	var wg sync.WaitGroup
	defer wg.Wait()

	m.log.Info("listening", zap.Stringer("addr", ln.Addr()))
	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return errors.Wrap(err, "accept")
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			out := m.respond(ctx, conn)
			if handle != nil {
				handle(out)
			}
		}()
	}
}

func (m *Manager) respond(ctx context.Context, conn net.Conn) Outcome {
	defer conn.Close()
	peer := peerFromAddr(conn.RemoteAddr())
	id := uuid.NewString()
	log := m.log.With(zap.String("attempt", id), zap.String("direction", "inbound"))

	actx, cancel := m.clock.WithTimeout(ctx, m.cfg.AttemptTimeout)
	defer cancel()

	s, err := NewSession(conn, peer, m.cfg, WithClock(m.clock), WithLogger(log),
		WithNonceSource(m.nonce), WithAttemptID(id), withOutboundNonces(m.outbound))
	if err != nil {
		return Outcome{Peer: peer, AttemptID: id, State: StateFailed,
			Failure: newFailure(ReasonConnection, StateInit, err)}
	}
	if err := s.Respond(actx); err != nil {
		log.Info("inbound peer failed", zap.Stringer("peer", peer), zap.Error(err))
	} else {
		log.Info("inbound peer established", zap.Stringer("peer", peer),
			zap.Int32("version", s.NegotiatedVersion()))
	}
	return s.Outcome()
}

func uniqueAddresses(addrs []discovery.PeerAddress) []discovery.PeerAddress {
	seen := make(map[string]struct{}, len(addrs))
	out := make([]discovery.PeerAddress, 0, len(addrs))
	for _, addr := range addrs {
		if _, ok := seen[addr.Key()]; ok {
			continue
		}
		seen[addr.Key()] = struct{}{}
		out = append(out, addr)
	}
	return out
}

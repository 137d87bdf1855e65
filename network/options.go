package network

import (
	"EPeer/discovery"

	"github.com/benbjohnson/clock"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// Option configures a Manager or a Session. Options that do not apply to
// the value being built are ignored.
type Option func(*options)

type options struct {
	clock      clock.Clock
	log        *zap.Logger
	nonce      func() (uint64, error)
	attemptID  string
	outbound   *nonceSet
	dialer     Dialer
	discoverer *discovery.Discoverer
	registerer prometheus.Registerer
}

func buildOptions(opts []Option) options {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if o.clock == nil {
		o.clock = clock.New()
	}
	if o.log == nil {
		o.log = zap.NewNop()
	}
	return o
}

// WithClock sets the time source for timestamps and timeouts.
func WithClock(c clock.Clock) Option {
	return func(o *options) {
		o.clock = c
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		o.log = l
	}
}

// WithNonceSource replaces the random source of local nonces.
func WithNonceSource(f func() (uint64, error)) Option {
	return func(o *options) {
		o.nonce = f
	}
}

// WithNonce fixes the local nonce of a session.
func WithNonce(n uint64) Option {
	return WithNonceSource(func() (uint64, error) {
		return n, nil
	})
}

// WithAttemptID tags a session's outcome with a correlation id.
func WithAttemptID(id string) Option {
	return func(o *options) {
		o.attemptID = id
	}
}

func withOutboundNonces(s *nonceSet) Option {
	return func(o *options) {
		o.outbound = s
	}
}

// WithDialer replaces the dialer used by a Manager.
func WithDialer(d Dialer) Option {
	return func(o *options) {
		o.dialer = d
	}
}

// WithDiscoverer sets the Discoverer used by Manager.DiscoverAndHandshake.
func WithDiscoverer(d *discovery.Discoverer) Option {
	return func(o *options) {
		o.discoverer = d
	}
}

// WithRegisterer registers the Manager's metrics on r.
func WithRegisterer(r prometheus.Registerer) Option {
	return func(o *options) {
		o.registerer = r
	}
}

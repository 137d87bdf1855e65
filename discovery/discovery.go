package discovery

import (
	"context"
	"net"
	"strings"
	"sync"

	"github.com/benbjohnson/clock"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/exp/slices"
	"golang.org/x/sync/errgroup"
)

// Result holds the deduplicated addresses of one Resolve call, ordered by
// Key, and the failure of every seed that produced none.
type Result struct {
	Addresses []PeerAddress
	Errors    map[string]error // seed -> *ResolutionError
}

// Err combines the per-seed errors in seed order, or returns nil.
func (r *Result) Err() error {
	seeds := make([]string, 0, len(r.Errors))
	for seed := range r.Errors {
		seeds = append(seeds, seed)
	}
	slices.Sort(seeds)

	var err error
	for _, seed := range seeds {
		err = multierr.Append(err, r.Errors[seed])
	}
	return err
}

type Discoverer struct {
	cfg      Config
	resolver Resolver
	cache    *expirable.LRU[string, []net.IP]
	clock    clock.Clock
	log      *zap.Logger
}

type Option func(*Discoverer)

func WithResolver(r Resolver) Option {
	return func(d *Discoverer) {
		d.resolver = r
	}
}

// WithClock sets the clock that runs lookup timeouts.
func WithClock(c clock.Clock) Option {
	return func(d *Discoverer) {
		d.clock = c
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(d *Discoverer) {
		d.log = l
	}
}

// New builds a Discoverer. Without WithResolver it queries cfg.Nameserver
// directly when set and the system resolver otherwise.
func New(cfg Config, opts ...Option) (*Discoverer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "discovery config")
	}
	d := &Discoverer{cfg: cfg}
	for _, opt := range opts {
		opt(d)
	}
	if d.clock == nil {
		d.clock = clock.New()
	}
	if d.log == nil {
		d.log = zap.NewNop()
	}
	d.log = d.log.Named("discovery")
	if d.resolver == nil {
		if cfg.Nameserver != "" {
			d.resolver = NewDNSResolver(cfg.Nameserver, cfg.LookupTimeout)
		} else {
			d.resolver = NewSystemResolver("", cfg.LookupTimeout)
		}
	}
	if cfg.CacheTTL > 0 {
		d.cache = expirable.NewLRU[string, []net.IP](cfg.CacheSize, nil, cfg.CacheTTL)
	}
	return d, nil
}

// Resolve looks up every seed concurrently and pairs each address with port.
// A failing seed is recorded in Result.Errors and never affects the others.
// The returned error is non-nil only when no seed produced an address; it
// matches ErrNoCandidates and every per-seed error.
func (d *Discoverer) Resolve(ctx context.Context, seeds []string, port uint16) (*Result, error) {
	seeds = uniqueSeeds(seeds)
	res := &Result{Errors: make(map[string]error)}

	var (
		mu    sync.Mutex
		found = make(map[string]PeerAddress)
		g     errgroup.Group
	)
	g.SetLimit(d.cfg.MaxConcurrentLookups)
	for _, seed := range seeds {
		seed := seed
		g.Go(func() error {
			ips, err := d.lookup(ctx, seed)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				d.log.Warn("seed lookup failed", zap.String("seed", seed), zap.Error(err))
				res.Errors[seed] = &ResolutionError{Seed: seed, Err: err}
				return nil
			}
			d.log.Debug("seed resolved", zap.String("seed", seed), zap.Int("addresses", len(ips)))
			for _, ip := range ips {
				addr := NewPeerAddress(ip, port)
				found[addr.Key()] = addr
			}
			return nil
		})
	}
	_ = g.Wait()

	keys := make([]string, 0, len(found))
	for key := range found {
		keys = append(keys, key)
	}
	slices.Sort(keys)
	for _, key := range keys {
		res.Addresses = append(res.Addresses, found[key])
	}

	if len(res.Addresses) == 0 {
		return res, multierr.Combine(ErrNoCandidates, res.Err())
	}
	return res, nil
}

// lookup resolves one seed within the lookup timeout. IP literals are
// returned as they are.
func (d *Discoverer) lookup(ctx context.Context, seed string) ([]net.IP, error) {
	if seed == "" {
		return nil, ErrEmptySeed
	}
	if ip := net.ParseIP(seed); ip != nil {
		return []net.IP{ip}, nil
	}
	if d.cache != nil {
		if ips, ok := d.cache.Get(seed); ok {
			return ips, nil
		}
	}

	lctx, cancel := d.clock.WithTimeout(ctx, d.cfg.LookupTimeout)
	defer cancel()

	type answer struct {
		ips []net.IP
		err error
	}
	done := make(chan answer, 1)
	go func() {
		ips, err := d.resolver.LookupIP(lctx, seed)
		done <- answer{ips, err}
	}()

	select {
	case a := <-done:
		if a.err != nil {
			if lctx.Err() != nil {
				return nil, d.expired(ctx)
			}
			return nil, a.err
		}
		if len(a.ips) == 0 {
			return nil, ErrNoRecords
		}
		if d.cache != nil {
			d.cache.Add(seed, a.ips)
		}
		return a.ips, nil
	case <-lctx.Done():
		return nil, d.expired(ctx)
	}
}

// expired reports why a lookup context ended: the caller's own cancellation
// or the lookup timeout.
func (d *Discoverer) expired(parent context.Context) error {
	if err := parent.Err(); err != nil {
		return err
	}
	return errors.Wrapf(ErrLookupTimeout, "after %v", d.cfg.LookupTimeout)
}

func uniqueSeeds(seeds []string) []string {
	out := make([]string, 0, len(seeds))
	for _, seed := range seeds {
		out = append(out, strings.TrimSpace(seed))
	}
	slices.Sort(out)
	return slices.Compact(out)
}

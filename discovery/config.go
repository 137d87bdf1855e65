package discovery

import (
	"net"
	"time"

	"github.com/pkg/errors"
)

// ======= Config =======

type Config struct {
	// LookupTimeout bounds the resolution of a single seed.
	LookupTimeout time.Duration

	// MaxConcurrentLookups bounds how many seeds resolve at once.
	MaxConcurrentLookups int

	// Nameserver ("ip:port") switches lookups to direct DNS queries against
	// that server. Empty uses the system resolver.
	Nameserver string

	// CacheTTL keeps per-seed answers for this long. Zero disables the cache.
	CacheTTL time.Duration

	// CacheSize caps the number of cached seeds.
	CacheSize int
}

func DefaultConfig() Config {
	return Config{
		LookupTimeout:        3 * time.Second,
		MaxConcurrentLookups: 8,
		CacheTTL:             5 * time.Minute,
		CacheSize:            256,
	}
}

func (c *Config) Validate() error {
	if c.LookupTimeout <= 0 {
		return errors.New("lookup timeout must be positive")
	}
	if c.MaxConcurrentLookups <= 0 {
		return errors.New("max concurrent lookups must be positive")
	}
	if c.CacheTTL < 0 {
		return errors.New("cache TTL must be non-negative")
	}
	if c.CacheTTL > 0 && c.CacheSize <= 0 {
		return errors.New("cache size must be positive when the cache is enabled")
	}
	if c.Nameserver != "" {
		if _, _, err := net.SplitHostPort(c.Nameserver); err != nil {
			return errors.Wrapf(err, "nameserver %q", c.Nameserver)
		}
	}
	return nil
}

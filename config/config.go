package config

import (
	"EPeer/discovery"
	"EPeer/logger"
	"EPeer/network"
	"EPeer/wire"

	"time"

	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"
)

// Duration reads values such as "5s" or "1m30s" from TOML.
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return errors.Wrapf(err, "duration %q", text)
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// ======= Sections =======

type NetworkSection struct {
	Name               string   `toml:"name"`
	Port               uint16   `toml:"port"`
	Seeds              []string `toml:"seeds"`
	ProtocolVersion    int32    `toml:"protocol_version"`
	MinProtocolVersion int32    `toml:"min_protocol_version"`
	Services           uint64   `toml:"services"`
	UserAgent          string   `toml:"user_agent"`
	StartHeight        int32    `toml:"start_height"`
	Relay              bool     `toml:"relay"`
}

type DialSection struct {
	StepTimeout       Duration `toml:"step_timeout"`
	AttemptTimeout    Duration `toml:"attempt_timeout"`
	MaxConcurrency    int      `toml:"max_concurrency"`
	TargetEstablished int      `toml:"target_established"`
	MaxPayload        uint32   `toml:"max_payload"`
}

type DiscoverySection struct {
	LookupTimeout        Duration `toml:"lookup_timeout"`
	MaxConcurrentLookups int      `toml:"max_concurrent_lookups"`
	Nameserver           string   `toml:"nameserver"`
	CacheTTL             Duration `toml:"cache_ttl"`
	CacheSize            int      `toml:"cache_size"`
}

type LogSection struct {
	Level      string `toml:"level"`
	Format     string `toml:"format"`
	File       string `toml:"file"`
	MaxSizeMB  int    `toml:"max_size_mb"`
	MaxBackups int    `toml:"max_backups"`
	MaxAgeDays int    `toml:"max_age_days"`
	Compress   bool   `toml:"compress"`
}

type Config struct {
	Network   NetworkSection   `toml:"network"`
	Dial      DialSection      `toml:"dial"`
	Discovery DiscoverySection `toml:"discovery"`
	Log       LogSection       `toml:"log"`
}

// Default mirrors the defaults of the network, discovery and logger
// packages.
func Default() *Config {
	n := network.DefaultConfig()
	d := discovery.DefaultConfig()
	l := logger.DefaultConfig()
	return &Config{
		Network: NetworkSection{
			Name:               n.Network.Name,
			ProtocolVersion:    n.ProtocolVersion,
			MinProtocolVersion: n.MinProtocolVersion,
			Services:           uint64(n.Services),
			UserAgent:          n.UserAgent,
			StartHeight:        n.StartHeight,
			Relay:              n.Relay,
		},
		Dial: DialSection{
			StepTimeout:       Duration{n.StepTimeout},
			AttemptTimeout:    Duration{n.AttemptTimeout},
			MaxConcurrency:    n.MaxConcurrency,
			TargetEstablished: n.TargetEstablished,
			MaxPayload:        n.MaxPayload,
		},
		Discovery: DiscoverySection{
			LookupTimeout:        Duration{d.LookupTimeout},
			MaxConcurrentLookups: d.MaxConcurrentLookups,
			Nameserver:           d.Nameserver,
			CacheTTL:             Duration{d.CacheTTL},
			CacheSize:            d.CacheSize,
		},
		Log: LogSection{
			Level:      l.Level,
			Format:     l.Format,
			File:       l.File,
			MaxSizeMB:  l.MaxSizeMB,
			MaxBackups: l.MaxBackups,
			MaxAgeDays: l.MaxAgeDays,
			Compress:   l.Compress,
		},
	}
}

// Load decodes the TOML file at path over the defaults. Keys the file sets
// but Config does not know are an error. An empty path returns the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, errors.Wrapf(err, "load config %s", path)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, errors.Errorf("load config %s: unknown keys %v", path, undecoded)
	}
	return cfg, nil
}

// Validate checks every section by converting it.
func (c *Config) Validate() error {
	n, err := c.NetworkConfig()
	if err != nil {
		return err
	}
	if err := n.Validate(); err != nil {
		return errors.Wrap(err, "[network]/[dial]")
	}
	d := c.DiscoveryConfig()
	if err := d.Validate(); err != nil {
		return errors.Wrap(err, "[discovery]")
	}
	if _, err := logger.New(c.LoggerConfig()); err != nil {
		return errors.Wrap(err, "[log]")
	}
	return nil
}

// NetworkConfig builds the handshake configuration. Configured seeds replace
// the preset's DNS seeds.
func (c *Config) NetworkConfig() (network.Config, error) {
	preset, err := wire.NetworkByName(c.Network.Name)
	if err != nil {
		return network.Config{}, errors.Wrap(err, "[network]")
	}
	if len(c.Network.Seeds) > 0 {
		preset.Seeds = append([]string(nil), c.Network.Seeds...)
	}
	return network.Config{
		Network:            preset,
		Port:               c.Network.Port,
		ProtocolVersion:    c.Network.ProtocolVersion,
		MinProtocolVersion: c.Network.MinProtocolVersion,
		Services:           wire.ServiceFlag(c.Network.Services),
		UserAgent:          c.Network.UserAgent,
		StartHeight:        c.Network.StartHeight,
		Relay:              c.Network.Relay,
		StepTimeout:        c.Dial.StepTimeout.Duration,
		AttemptTimeout:     c.Dial.AttemptTimeout.Duration,
		MaxConcurrency:     c.Dial.MaxConcurrency,
		TargetEstablished:  c.Dial.TargetEstablished,
		MaxPayload:         c.Dial.MaxPayload,
	}, nil
}

func (c *Config) DiscoveryConfig() discovery.Config {
	return discovery.Config{
		LookupTimeout:        c.Discovery.LookupTimeout.Duration,
		MaxConcurrentLookups: c.Discovery.MaxConcurrentLookups,
		Nameserver:           c.Discovery.Nameserver,
		CacheTTL:             c.Discovery.CacheTTL.Duration,
		CacheSize:            c.Discovery.CacheSize,
	}
}

func (c *Config) LoggerConfig() logger.Config {
	return logger.Config{
		Level:      c.Log.Level,
		Format:     c.Log.Format,
		File:       c.Log.File,
		MaxSizeMB:  c.Log.MaxSizeMB,
		MaxBackups: c.Log.MaxBackups,
		MaxAgeDays: c.Log.MaxAgeDays,
		Compress:   c.Log.Compress,
	}
}

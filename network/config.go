package network

import (
	"EPeer/wire"

	"time"

	"github.com/pkg/errors"
)

// maxUserAgentLen is the longest user agent peers accept.
const maxUserAgentLen = 256

// ======= Config =======

type Config struct {
	Network wire.Network
	// Port dialed on discovered addresses. Zero uses Network.DefaultPort.
	Port uint16

	ProtocolVersion    int32
	MinProtocolVersion int32
	Services           wire.ServiceFlag
	UserAgent          string
	StartHeight        int32
	Relay              bool

	// StepTimeout bounds every single read or write of the handshake.
	StepTimeout time.Duration
	// AttemptTimeout bounds dial plus the whole handshake of one peer.
	AttemptTimeout time.Duration
	// MaxConcurrency is the number of attempts in flight at once.
	MaxConcurrency int
	// TargetEstablished stops launching new attempts once this many peers
	// are established. Zero means no target.
	TargetEstablished int
	MaxPayload        uint32
}

func DefaultConfig() Config {
	return Config{
		Network:            wire.MainNet,
		ProtocolVersion:    wire.ProtocolVersion,
		MinProtocolVersion: wire.MinAcceptableProtocolVersion,
		UserAgent:          wire.DefaultUserAgent,
		StepTimeout:        5 * time.Second,
		AttemptTimeout:     15 * time.Second,
		MaxConcurrency:     8,
		MaxPayload:         wire.DefaultMaxPayload,
	}
}

func (c *Config) Validate() error {
	if c.Network.Magic == 0 {
		return errors.New("network magic must be set")
	}
	if c.StepTimeout <= 0 {
		return errors.New("step timeout must be positive")
	}
	if c.AttemptTimeout <= 0 {
		return errors.New("attempt timeout must be positive")
	}
	if c.MaxConcurrency <= 0 {
		return errors.New("max concurrency must be positive")
	}
	if c.TargetEstablished < 0 {
		return errors.New("target established must be non-negative")
	}
	if c.MinProtocolVersion > c.ProtocolVersion {
		return errors.Errorf("minimum protocol version %d above local version %d",
			c.MinProtocolVersion, c.ProtocolVersion)
	}
	if len(c.UserAgent) > maxUserAgentLen {
		return errors.Errorf("user agent longer than %d bytes", maxUserAgentLen)
	}
	if c.MaxPayload == 0 {
		return errors.New("max payload must be positive")
	}
	return nil
}

// port is the port dialed on discovered addresses.
func (c *Config) port() uint16 {
	if c.Port != 0 {
		return c.Port
	}
	return c.Network.DefaultPort
}

package config

import (
	"EPeer/wire"

	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestDefaultIsValid(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	n, err := cfg.NetworkConfig()
	require.NoError(t, err)
	assert.Equal(t, wire.MainNet.Magic, n.Network.Magic)
	assert.Equal(t, wire.MainNet.Seeds, n.Network.Seeds)
	assert.Equal(t, 5*time.Second, n.StepTimeout)
}

func TestLoad(t *testing.T) {
	path := writeFile(t, "epeer.toml", `
[network]
name = "regtest"
seeds = ["127.0.0.1", "seed.example"]
services = 9
user_agent = "/test:1.0/"

[dial]
step_timeout = "250ms"
attempt_timeout = "2s"
max_concurrency = 3
target_established = 2

[discovery]
lookup_timeout = "1s"
nameserver = "127.0.0.1:5353"
cache_ttl = "0s"

[log]
level = "debug"
format = "json"
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	n, err := cfg.NetworkConfig()
	require.NoError(t, err)
	assert.Equal(t, wire.RegTest.Magic, n.Network.Magic)
	assert.Equal(t, []string{"127.0.0.1", "seed.example"}, n.Network.Seeds)
	assert.Equal(t, wire.SFNodeNetwork|wire.SFNodeWitness, n.Services)
	assert.Equal(t, "/test:1.0/", n.UserAgent)
	assert.Equal(t, 250*time.Millisecond, n.StepTimeout)
	assert.Equal(t, 3, n.MaxConcurrency)
	assert.Equal(t, 2, n.TargetEstablished)
	// Keys the file leaves out keep their defaults.
	assert.Equal(t, wire.ProtocolVersion, n.ProtocolVersion)
	assert.Equal(t, wire.DefaultMaxPayload, n.MaxPayload)

	d := cfg.DiscoveryConfig()
	assert.Equal(t, time.Second, d.LookupTimeout)
	assert.Equal(t, "127.0.0.1:5353", d.Nameserver)
	assert.Zero(t, d.CacheTTL)

	assert.Equal(t, "json", cfg.LoggerConfig().Format)
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	path := writeFile(t, "epeer.toml", "[dial]\nmax_conncurrency = 3\n")
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "max_conncurrency")
}

func TestLoadRejectsBadDuration(t *testing.T) {
	path := writeFile(t, "epeer.toml", "[dial]\nstep_timeout = \"soon\"\n")
	_, err := Load(path)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown network", func(c *Config) { c.Network.Name = "signet" }},
		{"zero concurrency", func(c *Config) { c.Dial.MaxConcurrency = 0 }},
		{"zero step timeout", func(c *Config) { c.Dial.StepTimeout = Duration{} }},
		{"minimum above local", func(c *Config) { c.Network.MinProtocolVersion = c.Network.ProtocolVersion + 1 }},
		{"zero lookup timeout", func(c *Config) { c.Discovery.LookupTimeout = Duration{} }},
		{"bad log level", func(c *Config) { c.Log.Level = "chatty" }},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			cfg := Default()
			test.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("EPEER_NETWORK", "testnet3")
	t.Setenv("EPEER_SEEDS", "10.0.0.1, 10.0.0.2,,")
	t.Setenv("EPEER_PORT", "18555")
	t.Setenv("EPEER_STEP_TIMEOUT", "750ms")
	t.Setenv("EPEER_TARGET_ESTABLISHED", "4")
	t.Setenv("EPEER_LOG_LEVEL", "")

	cfg := Default()
	require.NoError(t, cfg.ApplyEnv())

	assert.Equal(t, "testnet3", cfg.Network.Name)
	assert.Equal(t, []string{"10.0.0.1", "10.0.0.2"}, cfg.Network.Seeds)
	assert.Equal(t, uint16(18555), cfg.Network.Port)
	assert.Equal(t, 750*time.Millisecond, cfg.Dial.StepTimeout.Duration)
	assert.Equal(t, 4, cfg.Dial.TargetEstablished)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestApplyEnvRejectsBadValue(t *testing.T) {
	t.Setenv("EPEER_MAX_CONCURRENCY", "many")
	cfg := Default()
	err := cfg.ApplyEnv()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "EPEER_MAX_CONCURRENCY")
}

func TestApplyEnvFile(t *testing.T) {
	// The process environment wins over the file.
	t.Setenv("EPEER_LOG_LEVEL", "warn")
	require.NoError(t, os.Unsetenv("EPEER_NAMESERVER"))
	t.Cleanup(func() { os.Unsetenv("EPEER_NAMESERVER") })

	env := writeFile(t, ".env", "EPEER_NAMESERVER=127.0.0.1:53\nEPEER_LOG_LEVEL=debug\n")
	cfg := Default()
	require.NoError(t, cfg.ApplyEnv(env, filepath.Join(t.TempDir(), "missing.env")))

	assert.Equal(t, "127.0.0.1:53", cfg.Discovery.Nameserver)
	assert.Equal(t, "warn", cfg.Log.Level)
}

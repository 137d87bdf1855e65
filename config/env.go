package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
)

const envPrefix = "EPEER_"

// envOverrides maps variable names, without the prefix, to setters.
var envOverrides = map[string]func(c *Config, v string) error{
	"NETWORK": func(c *Config, v string) error {
		c.Network.Name = v
		return nil
	},
	"SEEDS": func(c *Config, v string) error {
		c.Network.Seeds = splitList(v)
		return nil
	},
	"PORT": func(c *Config, v string) error {
		port, err := strconv.ParseUint(v, 10, 16)
		c.Network.Port = uint16(port)
		return err
	},
	"USER_AGENT": func(c *Config, v string) error {
		c.Network.UserAgent = v
		return nil
	},
	"STEP_TIMEOUT": func(c *Config, v string) error {
		return c.Dial.StepTimeout.UnmarshalText([]byte(v))
	},
	"ATTEMPT_TIMEOUT": func(c *Config, v string) error {
		return c.Dial.AttemptTimeout.UnmarshalText([]byte(v))
	},
	"MAX_CONCURRENCY": func(c *Config, v string) (err error) {
		c.Dial.MaxConcurrency, err = strconv.Atoi(v)
		return err
	},
	"TARGET_ESTABLISHED": func(c *Config, v string) (err error) {
		c.Dial.TargetEstablished, err = strconv.Atoi(v)
		return err
	},
	"LOOKUP_TIMEOUT": func(c *Config, v string) error {
		return c.Discovery.LookupTimeout.UnmarshalText([]byte(v))
	},
	"NAMESERVER": func(c *Config, v string) error {
		c.Discovery.Nameserver = v
		return nil
	},
	"LOG_LEVEL": func(c *Config, v string) error {
		c.Log.Level = v
		return nil
	},
	"LOG_FORMAT": func(c *Config, v string) error {
		c.Log.Format = v
		return nil
	},
	"LOG_FILE": func(c *Config, v string) error {
		c.Log.File = v
		return nil
	},
}

// ApplyEnv loads the given .env files, skipping ones that do not exist, and
// then applies every non-empty EPEER_* variable. Variables already set in
// the environment win over the files.
func (c *Config) ApplyEnv(files ...string) error {
	for _, file := range files {
		if err := godotenv.Load(file); err != nil && !os.IsNotExist(err) {
			return errors.Wrapf(err, "load %s", file)
		}
	}
	for name, set := range envOverrides {
		v := strings.TrimSpace(os.Getenv(envPrefix + name))
		if v == "" {
			continue
		}
		if err := set(c, v); err != nil {
			return errors.Wrapf(err, "%s%s", envPrefix, name)
		}
	}
	return nil
}

func splitList(v string) []string {
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

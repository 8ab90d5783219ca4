package nimbus

import (
	"fmt"

	"github.com/caarlos0/env/v11"
	"github.com/kardianos/nimbus/ncache"
	"github.com/kardianos/nimbus/nlog"
	"github.com/kardianos/nimbus/nsecret"
	"github.com/kardianos/nimbus/nstore"
)

// Config configures a Session.
type Config struct {
	// Home is the directory holding the cache. Defaults to the user's home directory.
	Home string

	// CacheBackend is "file" (default) or "bolt".
	CacheBackend string

	// CacheCodec is "cbor" (default) or "msgpack".
	CacheCodec string

	// SecretBackend names a creatable nstore backend. Defaults to "keyring".
	SecretBackend string

	// SecretPath overrides the secret backend's default location.
	SecretPath string

	// ServiceID addresses nimbus entries in the OS keyring.
	ServiceID string

	// SecretPrefix is prepended to every secret key.
	SecretPrefix string

	// SecretStore, if set, is used instead of opening SecretBackend.
	SecretStore nstore.DataStore

	// Backends lists the secret backends. Defaults to nstore.DefaultRegistry().
	Backends *nstore.Registry

	// Log names the logger the nimbus command builds: "none", "zap" or
	// "logrus". Open does not read it; it logs to Logger.
	Log string

	Logger nlog.Logger
}

type envConfig struct {
	Home          string `env:"NIMBUS_HOME"`
	CacheBackend  string `env:"NIMBUS_CACHE_BACKEND" envDefault:"file"`
	CacheCodec    string `env:"NIMBUS_CACHE_CODEC" envDefault:"cbor"`
	SecretBackend string `env:"NIMBUS_SECRET_BACKEND" envDefault:"keyring"`
	SecretPath    string `env:"NIMBUS_SECRET_PATH"`
	ServiceID     string `env:"NIMBUS_SERVICE_ID" envDefault:"NimbusTool"`
	SecretPrefix  string `env:"NIMBUS_SECRET_PREFIX" envDefault:"nimbus"`
	Log           string `env:"NIMBUS_LOG" envDefault:"none"`
}

// ConfigFromEnv reads the NIMBUS_* environment variables.
func ConfigFromEnv() (Config, error) {
	var raw envConfig
	if err := env.Parse(&raw); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return Config{
		Home:          raw.Home,
		CacheBackend:  raw.CacheBackend,
		CacheCodec:    raw.CacheCodec,
		SecretBackend: raw.SecretBackend,
		SecretPath:    raw.SecretPath,
		ServiceID:     raw.ServiceID,
		SecretPrefix:  raw.SecretPrefix,
		Log:           raw.Log,
	}, nil
}

func (c *Config) setDefaults() {
	if c.CacheBackend == "" {
		c.CacheBackend = ncache.BackendFile
	}
	if c.CacheCodec == "" {
		c.CacheCodec = "cbor"
	}
	if c.SecretBackend == "" {
		c.SecretBackend = "keyring"
	}
	if c.ServiceID == "" {
		c.ServiceID = nstore.DefaultServiceID
	}
	if c.SecretPrefix == "" {
		c.SecretPrefix = nsecret.DefaultPrefix
	}
	if c.Backends == nil {
		c.Backends = nstore.DefaultRegistry()
	}
	c.Logger = nlog.OrNop(c.Logger)
}

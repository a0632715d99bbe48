package config

// loader.go - configuration loading from .env files and environment
// variables.
//
// Precedence order (highest wins):
//   1. CLI flags  (handled by cmd/root.go)
//   2. Environment variables  (this file)
//   3. .env file  (this file; never overrides the real environment)
//   4. Defaults   (defaults.go)

import (
	"errors"
	"io/fs"
	"os"
	"time"

	"github.com/caarlos0/env/v9"
	"github.com/joho/godotenv"

	tnerr "thumbnailer/internal/errors"
)

// ── Environment variable mapping ─────────────────────────────────────
//
// Every supported env var uses the THUMBNAILER_ prefix.  Booleans
// accept anything strconv.ParseBool does; durations use Go syntax
// ("10s").  Empty variables are ignored.

type envConfig struct {
	Address    string        `env:"ADDRESS"`
	Width      uint          `env:"WIDTH"`
	Height     uint          `env:"HEIGHT"`
	Crop       bool          `env:"CROP"`
	MaxSize    string        `env:"MAX_SIZE"`
	Timeout    time.Duration `env:"TIMEOUT"`
	Tunnel     string        `env:"TUNNEL"`
	SSHKey     string        `env:"SSH_KEY"`
	SSHAgent   bool          `env:"SSH_AGENT"`
	StrictHost bool          `env:"STRICT_HOSTKEY"`
	KnownHosts string        `env:"KNOWN_HOSTS"`
	Verbose    int           `env:"VERBOSE"`
}

// Load reads envFile (if it exists) into the process environment and
// then overlays the environment onto cfg.  Call it BEFORE CLI flag
// parsing so that flags take precedence.
func Load(cfg *Config, envFile string) error {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return &tnerr.ConfigError{
				Field:   "env-file",
				Value:   envFile,
				Message: err.Error(),
			}
		}
	}
	return LoadFromEnv(cfg)
}

// LoadFromEnv overlays environment variables onto cfg.  Only non-empty
// env vars override the existing value.
func LoadFromEnv(cfg *Config) error {
	e := envConfig{
		Address:    cfg.Address,
		Width:      cfg.Width,
		Height:     cfg.Height,
		Crop:       cfg.Crop,
		Timeout:    cfg.Timeout,
		Tunnel:     cfg.TunnelSpec,
		SSHKey:     cfg.SSHKeyPath,
		SSHAgent:   cfg.UseSSHAgent,
		StrictHost: cfg.StrictHostKey,
		KnownHosts: cfg.KnownHostsPath,
		Verbose:    cfg.Verbose,
	}
	if err := env.ParseWithOptions(&e, env.Options{Prefix: EnvPrefix}); err != nil {
		return &tnerr.ConfigError{Field: "env", Message: err.Error()}
	}

	cfg.Address = e.Address
	cfg.Width = e.Width
	cfg.Height = e.Height
	if v, ok := os.LookupEnv(EnvPrefix + "HEIGHT"); ok && v != "" {
		cfg.HeightSet = true
	}
	cfg.Crop = e.Crop
	cfg.Timeout = e.Timeout
	cfg.TunnelSpec = e.Tunnel
	cfg.SSHKeyPath = e.SSHKey
	cfg.UseSSHAgent = e.SSHAgent
	cfg.StrictHostKey = e.StrictHost
	cfg.KnownHostsPath = e.KnownHosts
	cfg.Verbose = e.Verbose

	if e.MaxSize != "" {
		n, err := ParseSize(e.MaxSize)
		if err != nil {
			return &tnerr.ConfigError{
				Field:   "max-size",
				Value:   e.MaxSize,
				Message: err.Error(),
				Hint:    "set " + EnvPrefix + "MAX_SIZE to a value such as 32MB or 64MiB",
			}
		}
		cfg.MaxPayload = n
	}
	return nil
}

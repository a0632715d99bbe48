// Package config defines the runtime configuration for thumbnailer and
// provides helpers for resolving thumbnail dimensions and parsing
// tunnel specifications and byte sizes.
package config

import (
	"fmt"
	"regexp"
	"strconv"
	"time"

	"github.com/jpillora/sizestr"

	"thumbnailer/internal/capability"
	tnerr "thumbnailer/internal/errors"
)

// Mode names the way a single invocation moves image bytes.
type Mode string

const (
	ModeFile   Mode = "file"   // -i IMAGE -t THUMBNAIL
	ModeListen Mode = "listen" // -a ADDR
	ModeSend   Mode = "send"   // -s -a ADDR -i IMAGE [-t THUMBNAIL]
)

// Config holds every tuneable for a single thumbnailer invocation.
type Config struct {
	// ── Paths ────────────────────────────────────────────────────────
	ImagePath     string // -i: source image
	ThumbnailPath string // -t: destination (stdout in send mode when empty)

	// ── Network ──────────────────────────────────────────────────────
	Address    string // -a: host:port to listen on, or to send to with -s
	Send       bool   // -s: act as the client of a listening service
	MaxPayload int64  // largest announced length accepted before allocating
	Timeout    time.Duration

	// ── Thumbnail ────────────────────────────────────────────────────
	Width     uint
	Height    uint
	HeightSet bool // false → height follows width
	Crop      bool

	// ── SSH tunnel (send mode) ───────────────────────────────────────
	TunnelSpec     string // raw user@host[:port] from -T
	TunnelEnabled  bool
	TunnelUser     string
	TunnelHost     string
	TunnelPort     int
	SSHKeyPath     string
	SSHPassword    bool // true → prompt interactively
	UseSSHAgent    bool
	StrictHostKey  bool
	KnownHostsPath string

	// ── Output ───────────────────────────────────────────────────────
	Verbose int
	DryRun  bool
}

// Default returns a Config populated from defaults.go.
func Default() *Config {
	return &Config{
		Width:      DefaultWidth,
		MaxPayload: DefaultMaxPayload,
		Timeout:    DefaultConnTimeout,
	}
}

// Mode reports which mode the configuration selects.
func (c *Config) Mode() Mode {
	switch {
	case c.Send:
		return ModeSend
	case c.Address != "":
		return ModeListen
	default:
		return ModeFile
	}
}

// Dimensions resolves the thumbnail parameters for one session.  An
// unset height takes the width.
func (c *Config) Dimensions() capability.Params {
	h := c.Height
	if !c.HeightSet {
		h = c.Width
	}
	return capability.Params{Width: c.Width, Height: h, Crop: c.Crop}
}

// ── Byte sizes ───────────────────────────────────────────────────────

// ParseSize accepts "1048576", "32MB" or "64MiB".
func ParseSize(s string) (int64, error) {
	n, err := sizestr.Parse(s)
	if err != nil {
		return 0, fmt.Errorf("invalid size %q: %w", s, err)
	}
	return n, nil
}

// FormatSize renders n bytes for humans, e.g. "1.2MB".
func FormatSize(n int64) string {
	return sizestr.ToString(n)
}

// ── Tunnel-spec parser ───────────────────────────────────────────────

// tunnelRe matches [user@]host[:port].
var tunnelRe = regexp.MustCompile(`^(?:([^@]+)@)?([^:]+)(?::(\d+))?$`)

// ParseTunnelSpec extracts user, host, and port from a string such as
// "admin@bastion.example.com:2222".  Port defaults to 22.
func ParseTunnelSpec(spec string) (user, host string, port int, err error) {
	m := tunnelRe.FindStringSubmatch(spec)
	if m == nil {
		return "", "", 0, fmt.Errorf("invalid tunnel spec %q – expected [user@]host[:port]", spec)
	}
	user = m[1]
	host = m[2]
	port = DefaultSSHPort
	if m[3] != "" {
		port, err = strconv.Atoi(m[3])
		if err != nil || port < 1 || port > 65535 {
			return "", "", 0, fmt.Errorf("invalid tunnel port %q", m[3])
		}
	}
	return user, host, port, nil
}

// ── Validation ───────────────────────────────────────────────────────

// Validate checks that the configuration is internally consistent.
// Every failure is a *tnerr.ConfigError.
func (c *Config) Validate() error {
	switch c.Mode() {
	case ModeSend:
		if c.Address == "" {
			return &tnerr.ConfigError{
				Field:   "address",
				Message: "required with --send",
				Hint:    "point -a at the host:port the service listens on",
			}
		}
		if c.ImagePath == "" {
			return &tnerr.ConfigError{Field: "image", Message: "required with --send"}
		}
	case ModeListen:
		if c.ImagePath != "" || c.ThumbnailPath != "" {
			return &tnerr.ConfigError{
				Field:   "address",
				Value:   c.Address,
				Message: "--address and --image/--thumbnail are mutually exclusive",
				Hint:    "add --send to upload --image to a remote service",
			}
		}
	case ModeFile:
		if c.ImagePath == "" && c.ThumbnailPath == "" {
			return &tnerr.ConfigError{
				Field:   "image",
				Message: "one of --image/--thumbnail or --address is required",
				Hint:    "use --help for usage",
			}
		}
		if c.ImagePath == "" {
			return &tnerr.ConfigError{Field: "image", Message: "required with --thumbnail"}
		}
		if c.ThumbnailPath == "" {
			return &tnerr.ConfigError{Field: "thumbnail", Message: "required with --image"}
		}
	}

	if c.MaxPayload <= 0 {
		return &tnerr.ConfigError{
			Field:   "max-size",
			Value:   c.MaxPayload,
			Message: "must be greater than zero",
			Hint:    "use a value such as 32MB or 64MiB",
		}
	}

	if c.TunnelEnabled {
		if !c.Send {
			return &tnerr.ConfigError{
				Field:   "tunnel",
				Value:   c.TunnelSpec,
				Message: "only supported with --send",
			}
		}
		if c.TunnelHost == "" {
			return &tnerr.ConfigError{Field: "tunnel", Message: "tunnel host is required"}
		}
	}

	return nil
}

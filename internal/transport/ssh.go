package transport

import (
	"context"
	"fmt"
	"net"
	"sync"

	"thumbnailer/tunnel"
	"thumbnailer/util"
)

// SSHDialer routes connections through an SSH tunnel.  The tunnel is
// connected lazily on the first Dial, re-established once if the
// gateway dropped it between dials, and torn down on Close.
type SSHDialer struct {
	tunnel     tunnel.Tunnel
	config     *tunnel.SSHConfig
	logger     *util.Logger
	mu         sync.Mutex
	connected  bool
	reconnects int
}

// NewSSHDialer creates a dialer that forwards connections through an
// SSH tunnel.  The tunnel is not connected until the first Dial.
func NewSSHDialer(cfg *tunnel.SSHConfig, logger *util.Logger) *SSHDialer {
	if logger == nil {
		logger = util.Discard()
	}
	return &SSHDialer{
		tunnel: tunnel.NewSSHTunnel(cfg, logger),
		config: cfg,
		logger: logger,
	}
}

func (d *SSHDialer) gateway() string {
	return d.config.User + "@" + util.FormatAddr(d.config.Host, d.config.Port)
}

// ensure connects the tunnel, or reconnects it when the gateway closed
// it since the last Dial.
func (d *SSHDialer) ensure(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.connected {
		if d.tunnel.IsAlive() {
			return nil
		}
		d.logger.Warn("SSH tunnel to %s lost; reconnecting", d.gateway())
		d.tunnel.Close() //nolint:errcheck
		d.connected = false
		d.reconnects++
	} else {
		d.logger.Verbose("establishing SSH tunnel to %s", d.gateway())
	}

	if err := d.tunnel.Connect(ctx); err != nil {
		return fmt.Errorf("tunnel: %w", err)
	}
	d.connected = true
	d.logger.Verbose("SSH tunnel established")
	return nil
}

// Reconnects reports how many times a lost tunnel was re-established.
func (d *SSHDialer) Reconnects() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.reconnects
}

// Dial connects to address through the SSH tunnel.
func (d *SSHDialer) Dial(ctx context.Context, network, address string) (net.Conn, error) {
	if err := d.ensure(ctx); err != nil {
		return nil, err
	}
	return d.tunnel.Dial(ctx, network, address)
}

// Close tears down the underlying SSH tunnel.
func (d *SSHDialer) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.connected {
		return nil
	}
	d.connected = false
	return d.tunnel.Close()
}

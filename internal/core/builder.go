package core

import (
	"fmt"

	"thumbnailer/config"
	"thumbnailer/internal/capability"
	"thumbnailer/internal/imaging"
	"thumbnailer/internal/metrics"
	"thumbnailer/internal/retry"
	"thumbnailer/internal/transport"
	"thumbnailer/tunnel"
	"thumbnailer/util"
)

// Build constructs the Mode selected by cfg.  cfg is expected to have
// passed Validate.
func Build(cfg *config.Config, logger *util.Logger) (Mode, error) {
	if logger == nil {
		logger = util.Discard()
	}
	m := metrics.New()

	switch cfg.Mode() {
	case config.ModeSend:
		return buildSend(cfg, logger, m), nil
	case config.ModeListen:
		return buildListen(cfg, logger, m), nil
	case config.ModeFile:
		return buildFile(cfg, logger, m), nil
	default:
		return nil, fmt.Errorf("unknown mode %q", cfg.Mode())
	}
}

// ── mode builders ────────────────────────────────────────────────────

func buildListen(cfg *config.Config, logger *util.Logger, m *metrics.Collector) Mode {
	return &ListenMode{
		Address:     cfg.Address,
		Transformer: buildTransformer(),
		Params:      cfg.Dimensions(),
		MaxPayload:  cfg.MaxPayload,
		Timeout:     cfg.Timeout,
		Logger:      logger,
		Metrics:     m,
	}
}

func buildFile(cfg *config.Config, logger *util.Logger, m *metrics.Collector) Mode {
	return &FileMode{
		ImagePath:     cfg.ImagePath,
		ThumbnailPath: cfg.ThumbnailPath,
		Transformer:   buildTransformer(),
		Params:        cfg.Dimensions(),
		Logger:        logger,
		Metrics:       m,
	}
}

func buildSend(cfg *config.Config, logger *util.Logger, m *metrics.Collector) Mode {
	if cfg.Width != config.DefaultWidth || cfg.HeightSet || cfg.Crop {
		logger.Warn("thumbnail size is chosen by the service; --width/--height/--crop are ignored with --send")
	}
	return &SendMode{
		Address:    cfg.Address,
		ImagePath:  cfg.ImagePath,
		OutputPath: cfg.ThumbnailPath,
		Dialer:     buildDialer(cfg, logger),
		Retry:      retry.DefaultBackoff(config.DefaultDialAttempts),
		Timeout:    cfg.Timeout,
		Logger:     logger,
		Metrics:    m,
	}
}

// ── shared helpers ───────────────────────────────────────────────────

// buildDialer creates the right transport.Dialer for the given config.
func buildDialer(cfg *config.Config, logger *util.Logger) transport.Dialer {
	if cfg.TunnelEnabled {
		return transport.NewSSHDialer(&tunnel.SSHConfig{
			User:          cfg.TunnelUser,
			Host:          cfg.TunnelHost,
			Port:          cfg.TunnelPort,
			KeyPath:       cfg.SSHKeyPath,
			PromptPass:    cfg.SSHPassword,
			UseAgent:      cfg.UseSSHAgent,
			StrictHostKey: cfg.StrictHostKey,
			KnownHosts:    cfg.KnownHostsPath,
			ConnTimeout:   cfg.Timeout,
		}, logger)
	}
	return &transport.TCPDialer{Timeout: cfg.Timeout}
}

// buildTransformer selects the image codec behind the capability.
func buildTransformer() capability.Transformer {
	return imaging.New()
}

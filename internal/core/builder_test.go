package core

import (
	"testing"

	"thumbnailer/config"
	"thumbnailer/internal/capability"
	"thumbnailer/internal/transport"
	"thumbnailer/util"
)

func TestBuild_File(t *testing.T) {
	cfg := config.Default()
	cfg.ImagePath, cfg.ThumbnailPath = "in.png", "out.png"

	mode, err := Build(cfg, util.Discard())
	if err != nil {
		t.Fatal(err)
	}
	fm, ok := mode.(*FileMode)
	if !ok {
		t.Fatalf("expected *FileMode, got %T", mode)
	}
	if fm.Params != (capability.Params{Width: 150, Height: 150}) {
		t.Errorf("params = %+v, want 150x150", fm.Params)
	}
}

func TestBuild_Listen(t *testing.T) {
	cfg := config.Default()
	cfg.Address = "localhost:12345"
	cfg.Width, cfg.Height, cfg.HeightSet, cfg.Crop = 64, 32, true, true

	mode, err := Build(cfg, util.Discard())
	if err != nil {
		t.Fatal(err)
	}
	lm, ok := mode.(*ListenMode)
	if !ok {
		t.Fatalf("expected *ListenMode, got %T", mode)
	}
	if lm.Params != (capability.Params{Width: 64, Height: 32, Crop: true}) {
		t.Errorf("params = %+v", lm.Params)
	}
	if lm.MaxPayload != config.DefaultMaxPayload || lm.Timeout != config.DefaultConnTimeout {
		t.Errorf("limits = %d / %v", lm.MaxPayload, lm.Timeout)
	}
	if lm.Transformer == nil || lm.Metrics == nil {
		t.Error("transformer and metrics should be wired")
	}
}

func TestBuild_Send(t *testing.T) {
	cfg := config.Default()
	cfg.Send, cfg.Address, cfg.ImagePath = true, "localhost:12345", "in.png"

	mode, err := Build(cfg, util.Discard())
	if err != nil {
		t.Fatal(err)
	}
	sm, ok := mode.(*SendMode)
	if !ok {
		t.Fatalf("expected *SendMode, got %T", mode)
	}
	if _, ok := sm.Dialer.(*transport.TCPDialer); !ok {
		t.Errorf("expected *TCPDialer, got %T", sm.Dialer)
	}
	if sm.Retry == nil || sm.Retry.MaxAttempts != config.DefaultDialAttempts {
		t.Errorf("retry = %+v", sm.Retry)
	}
}

func TestBuild_SendThroughTunnel(t *testing.T) {
	cfg := config.Default()
	cfg.Send, cfg.Address, cfg.ImagePath = true, "10.0.0.5:12345", "in.png"
	cfg.TunnelEnabled, cfg.TunnelUser, cfg.TunnelHost, cfg.TunnelPort = true, "admin", "bastion", 22

	mode, err := Build(cfg, util.Discard())
	if err != nil {
		t.Fatal(err)
	}
	sm := mode.(*SendMode)
	if _, ok := sm.Dialer.(*transport.SSHDialer); !ok {
		t.Errorf("expected *SSHDialer, got %T", sm.Dialer)
	}
}

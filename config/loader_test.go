package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	tnerr "thumbnailer/internal/errors"
)

func TestLoadFromEnv_Address(t *testing.T) {
	t.Setenv("THUMBNAILER_ADDRESS", "localhost:12345")
	cfg := Default()
	if err := LoadFromEnv(cfg); err != nil {
		t.Fatal(err)
	}
	if cfg.Address != "localhost:12345" {
		t.Errorf("Address = %q", cfg.Address)
	}
}

func TestLoadFromEnv_Dimensions(t *testing.T) {
	t.Setenv("THUMBNAILER_WIDTH", "200")
	t.Setenv("THUMBNAILER_CROP", "true")
	cfg := Default()
	if err := LoadFromEnv(cfg); err != nil {
		t.Fatal(err)
	}
	if cfg.HeightSet {
		t.Error("HeightSet should be false without THUMBNAILER_HEIGHT")
	}
	p := cfg.Dimensions()
	if p.Width != 200 || p.Height != 200 || !p.Crop {
		t.Errorf("Dimensions() = %+v", p)
	}

	t.Setenv("THUMBNAILER_HEIGHT", "80")
	if err := LoadFromEnv(cfg); err != nil {
		t.Fatal(err)
	}
	if !cfg.HeightSet || cfg.Dimensions().Height != 80 {
		t.Errorf("height = %d (set=%v), want 80", cfg.Height, cfg.HeightSet)
	}
}

func TestLoadFromEnv_MaxSizeAndTimeout(t *testing.T) {
	t.Setenv("THUMBNAILER_MAX_SIZE", "8MiB")
	t.Setenv("THUMBNAILER_TIMEOUT", "10s")
	cfg := Default()
	if err := LoadFromEnv(cfg); err != nil {
		t.Fatal(err)
	}
	if cfg.MaxPayload != 8<<20 {
		t.Errorf("MaxPayload = %d", cfg.MaxPayload)
	}
	if cfg.Timeout != 10*time.Second {
		t.Errorf("Timeout = %v", cfg.Timeout)
	}
}

func TestLoadFromEnv_SSHFields(t *testing.T) {
	t.Setenv("THUMBNAILER_TUNNEL", "admin@bastion:2222")
	t.Setenv("THUMBNAILER_SSH_KEY", "/home/user/.ssh/id_rsa")
	t.Setenv("THUMBNAILER_SSH_AGENT", "1")
	t.Setenv("THUMBNAILER_STRICT_HOSTKEY", "true")
	t.Setenv("THUMBNAILER_KNOWN_HOSTS", "/custom/known_hosts")

	cfg := Default()
	if err := LoadFromEnv(cfg); err != nil {
		t.Fatal(err)
	}

	if cfg.TunnelSpec != "admin@bastion:2222" {
		t.Errorf("TunnelSpec = %q", cfg.TunnelSpec)
	}
	if cfg.SSHKeyPath != "/home/user/.ssh/id_rsa" {
		t.Errorf("SSHKeyPath = %q", cfg.SSHKeyPath)
	}
	if !cfg.UseSSHAgent {
		t.Error("UseSSHAgent should be true")
	}
	if !cfg.StrictHostKey {
		t.Error("StrictHostKey should be true")
	}
	if cfg.KnownHostsPath != "/custom/known_hosts" {
		t.Errorf("KnownHostsPath = %q", cfg.KnownHostsPath)
	}
}

func TestLoadFromEnv_NoOverrideWhenEmpty(t *testing.T) {
	t.Setenv("THUMBNAILER_ADDRESS", "")
	t.Setenv("THUMBNAILER_WIDTH", "")

	cfg := &Config{Address: "original:1", Width: 99, MaxPayload: 1234}
	if err := LoadFromEnv(cfg); err != nil {
		t.Fatal(err)
	}

	if cfg.Address != "original:1" {
		t.Errorf("Address was overridden: %q", cfg.Address)
	}
	if cfg.Width != 99 {
		t.Errorf("Width was overridden: %d", cfg.Width)
	}
	if cfg.MaxPayload != 1234 {
		t.Errorf("MaxPayload was overridden: %d", cfg.MaxPayload)
	}
}

func TestLoadFromEnv_InvalidValues(t *testing.T) {
	tests := []struct {
		key, value string
	}{
		{"THUMBNAILER_WIDTH", "wide"},
		{"THUMBNAILER_WIDTH", "-5"},
		{"THUMBNAILER_MAX_SIZE", "lots"},
		{"THUMBNAILER_TIMEOUT", "soon"},
	}
	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			err := LoadFromEnv(Default())
			if err == nil {
				t.Fatal("expected error")
			}
			if !tnerr.IsUsage(err) {
				t.Errorf("error %T should be a ConfigError", err)
			}
		})
	}
}

func TestLoad_DotEnv(t *testing.T) {
	const key = "THUMBNAILER_WIDTH"
	if _, ok := os.LookupEnv(key); ok {
		t.Skipf("%s already set in the environment", key)
	}
	t.Cleanup(func() { os.Unsetenv(key) })

	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte(key+"=320\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg := Default()
	if err := Load(cfg, path); err != nil {
		t.Fatal(err)
	}
	if cfg.Width != 320 {
		t.Errorf("Width = %d, want 320", cfg.Width)
	}
}

func TestLoad_MissingDotEnvIgnored(t *testing.T) {
	cfg := Default()
	if err := Load(cfg, filepath.Join(t.TempDir(), "missing.env")); err != nil {
		t.Fatalf("missing .env should be ignored: %v", err)
	}
	if cfg.Width != DefaultWidth {
		t.Errorf("Width = %d", cfg.Width)
	}
}

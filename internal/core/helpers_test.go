package core

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"net"
	"testing"
	"time"

	"thumbnailer/internal/capability"
	"thumbnailer/internal/metrics"
	"thumbnailer/util"
)

// encodePNG returns a w×h opaque red PNG.
func encodePNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: 0xff, A: 0xff})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func pngSize(t *testing.T, data []byte) (int, int) {
	t.Helper()
	cfg, err := png.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("not a PNG: %v", err)
	}
	return cfg.Width, cfg.Height
}

// startListen runs m on an ephemeral loopback port and returns the bound
// address and a channel that yields Run's result.
func startListen(t *testing.T, ctx context.Context, m *ListenMode) (string, <-chan error) {
	t.Helper()
	if m.Address == "" {
		m.Address = "127.0.0.1:0"
	}
	if m.Transformer == nil {
		m.Transformer = capability.Identity{}
	}
	if m.Params == (capability.Params{}) {
		m.Params = capability.Params{Width: 150, Height: 150}
	}
	if m.Logger == nil {
		m.Logger = util.Discard()
	}
	if m.Metrics == nil {
		m.Metrics = metrics.New()
	}
	if m.Timeout == 0 {
		m.Timeout = 5 * time.Second
	}

	bound := make(chan net.Addr, 1)
	m.Bound = func(a net.Addr) { bound <- a }

	done := make(chan error, 1)
	go func() { done <- m.Run(ctx) }()

	select {
	case a := <-bound:
		return a.String(), done
	case err := <-done:
		t.Fatalf("listen mode exited before binding: %v", err)
	case <-time.After(5 * time.Second):
		t.Fatal("listen mode did not bind")
	}
	return "", nil
}

// wait returns the next result from done or fails the test.
func wait(t *testing.T, done <-chan error) error {
	t.Helper()
	select {
	case err := <-done:
		return err
	case <-time.After(10 * time.Second):
		t.Fatal("mode did not finish")
		return nil
	}
}

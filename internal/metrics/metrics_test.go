package metrics

import (
	"encoding/json"
	"sync"
	"testing"
	"time"
)

func TestCollector_Sessions(t *testing.T) {
	c := New()

	c.SessionStarted()
	c.SessionStarted()
	if c.TotalSessions() != 2 {
		t.Errorf("sessions = %d, want 2", c.TotalSessions())
	}
}

func TestCollector_Bytes(t *testing.T) {
	c := New()

	c.BytesReceived(1024)
	c.BytesSent(512)
	c.BytesReceived(100)

	if c.TotalBytesIn() != 1124 {
		t.Errorf("bytes in = %d, want 1124", c.TotalBytesIn())
	}
	if c.TotalBytesOut() != 512 {
		t.Errorf("bytes out = %d, want 512", c.TotalBytesOut())
	}
}

func TestCollector_Transforms(t *testing.T) {
	c := New()

	c.TransformDone(10 * time.Millisecond)
	c.TransformDone(5 * time.Millisecond)

	if c.Transforms() != 2 {
		t.Errorf("transforms = %d, want 2", c.Transforms())
	}
	if c.TransformTime() != 15*time.Millisecond {
		t.Errorf("transform time = %v, want 15ms", c.TransformTime())
	}
}

func TestCollector_Errors(t *testing.T) {
	c := New()

	c.RecordError("short read", "first error")
	c.RecordError("parse error", "second error")

	if c.ErrorCount() != 2 {
		t.Errorf("errors = %d, want 2", c.ErrorCount())
	}
	if got := c.Snapshot().LastErrorMessage; got != "second error" {
		t.Errorf("last error = %q", got)
	}
}

func TestCollector_Snapshot(t *testing.T) {
	c := New()
	c.SessionStarted()
	c.BytesReceived(1500)
	c.BytesSent(50)
	c.RecordError("timeout", "test")

	snap := c.Snapshot()
	if snap.SessionsTotal != 1 {
		t.Errorf("snap sessions = %d", snap.SessionsTotal)
	}
	if snap.BytesIn != 1500 {
		t.Errorf("snap bytes in = %d", snap.BytesIn)
	}
	if snap.Received != "1.5KB" {
		t.Errorf("snap received = %q", snap.Received)
	}
	if snap.ErrorsTotal != 1 {
		t.Errorf("snap errors = %d", snap.ErrorsTotal)
	}
	if snap.LastError == "" {
		t.Error("expected last error timestamp")
	}
}

func TestCollector_JSON(t *testing.T) {
	c := New()
	c.SessionStarted()
	c.BytesSent(42)

	raw := c.JSON()
	var snap Snapshot
	if err := json.Unmarshal([]byte(raw), &snap); err != nil {
		t.Fatalf("JSON parse error: %v", err)
	}
	if snap.SessionsTotal != 1 {
		t.Errorf("JSON sessions = %d", snap.SessionsTotal)
	}
	if snap.BytesOut != 42 {
		t.Errorf("JSON bytes out = %d", snap.BytesOut)
	}
}

func TestCollector_Concurrent(t *testing.T) {
	c := New()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.BytesReceived(2)
			c.RecordError("read error", "x")
		}()
	}
	wg.Wait()

	if c.TotalBytesIn() != 100 {
		t.Errorf("bytes in = %d, want 100", c.TotalBytesIn())
	}
	if c.ErrorCount() != 50 {
		t.Errorf("errors = %d, want 50", c.ErrorCount())
	}
}

func TestNilCollector_NoOps(t *testing.T) {
	var c *Collector

	// None of these should panic.
	c.SessionStarted()
	c.BytesReceived(100)
	c.BytesSent(100)
	c.TransformDone(time.Second)
	c.RecordError("timeout", "test")

	if c.TotalSessions() != 0 {
		t.Error("nil collector should return 0")
	}
	if c.TotalBytesIn() != 0 {
		t.Error("nil collector should return 0")
	}
	if c.ErrorCount() != 0 {
		t.Error("nil collector should return 0")
	}

	if snap := c.Snapshot(); snap.SessionsTotal != 0 {
		t.Error("nil snapshot should be zero")
	}
	if c.JSON() == "" {
		t.Error("nil JSON should return valid JSON")
	}
}

// Package metrics provides lightweight, lock-free counters for tracking
// the work done by thumbnail sessions.
//
// All methods are safe for concurrent use.  A nil *Collector is a
// valid no-op receiver, so callers never need to nil-check.  Every
// counter is mirrored into an OpenTelemetry Int64Counter obtained from
// a meter provider: the global one for New, which is a no-op unless the
// embedding program installs one, or an explicit one for
// NewWithProvider.
package metrics

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jpillora/sizestr"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// MeterName is the instrumentation scope of the OTel instruments.
const MeterName = "thumbnailer"

// Collector tracks runtime metrics for thumbnail sessions.
// A nil Collector is safe to use; all methods become no-ops.
type Collector struct {
	sessionsTotal  atomic.Int64
	bytesIn        atomic.Int64
	bytesOut       atomic.Int64
	transforms     atomic.Int64
	transformNanos atomic.Int64
	errorsTotal    atomic.Int64

	otelSessions   metric.Int64Counter
	otelBytesIn    metric.Int64Counter
	otelBytesOut   metric.Int64Counter
	otelTransforms metric.Int64Counter
	otelErrors     metric.Int64Counter

	mu           sync.RWMutex
	startTime    time.Time
	lastError    time.Time
	lastErrorMsg string
}

// New creates a metrics collector whose instruments come from the
// global meter provider.
func New() *Collector {
	return NewWithProvider(otel.GetMeterProvider())
}

// NewWithProvider creates a metrics collector mirroring into mp.
func NewWithProvider(mp metric.MeterProvider) *Collector {
	m := mp.Meter(MeterName)
	c := &Collector{startTime: time.Now()}
	// Instrument creation only fails on invalid names; a nil
	// instrument is skipped by add.
	c.otelSessions, _ = m.Int64Counter("thumbnailer.sessions",
		metric.WithDescription("Thumbnail sessions started"))
	c.otelBytesIn, _ = m.Int64Counter("thumbnailer.bytes_in",
		metric.WithDescription("Image bytes received"), metric.WithUnit("By"))
	c.otelBytesOut, _ = m.Int64Counter("thumbnailer.bytes_out",
		metric.WithDescription("Thumbnail bytes sent"), metric.WithUnit("By"))
	c.otelTransforms, _ = m.Int64Counter("thumbnailer.transforms",
		metric.WithDescription("Successful thumbnail transforms"))
	c.otelErrors, _ = m.Int64Counter("thumbnailer.errors",
		metric.WithDescription("Failed sessions by error kind"))
	return c
}

func add(ctr metric.Int64Counter, n int64, opts ...metric.AddOption) {
	if ctr != nil {
		ctr.Add(context.Background(), n, opts...)
	}
}

// ── Session metrics ──────────────────────────────────────────────────

// SessionStarted increments the session counter.
func (c *Collector) SessionStarted() {
	if c == nil {
		return
	}
	c.sessionsTotal.Add(1)
	add(c.otelSessions, 1)
}

// TotalSessions returns the lifetime session count.
func (c *Collector) TotalSessions() int64 {
	if c == nil {
		return 0
	}
	return c.sessionsTotal.Load()
}

// ── I/O metrics ──────────────────────────────────────────────────────

// BytesReceived records n image bytes read from the network or disk.
func (c *Collector) BytesReceived(n int64) {
	if c == nil {
		return
	}
	c.bytesIn.Add(n)
	add(c.otelBytesIn, n)
}

// BytesSent records n thumbnail bytes written.
func (c *Collector) BytesSent(n int64) {
	if c == nil {
		return
	}
	c.bytesOut.Add(n)
	add(c.otelBytesOut, n)
}

// TotalBytesIn returns total bytes received.
func (c *Collector) TotalBytesIn() int64 {
	if c == nil {
		return 0
	}
	return c.bytesIn.Load()
}

// TotalBytesOut returns total bytes sent.
func (c *Collector) TotalBytesOut() int64 {
	if c == nil {
		return 0
	}
	return c.bytesOut.Load()
}

// ── Transform metrics ────────────────────────────────────────────────

// TransformDone records one successful transform and its duration.
func (c *Collector) TransformDone(d time.Duration) {
	if c == nil {
		return
	}
	c.transforms.Add(1)
	c.transformNanos.Add(int64(d))
	add(c.otelTransforms, 1)
}

// Transforms returns the number of successful transforms.
func (c *Collector) Transforms() int64 {
	if c == nil {
		return 0
	}
	return c.transforms.Load()
}

// TransformTime returns the cumulative time spent transforming.
func (c *Collector) TransformTime() time.Duration {
	if c == nil {
		return 0
	}
	return time.Duration(c.transformNanos.Load())
}

// ── Error metrics ────────────────────────────────────────────────────

// RecordError increments the error counter, tagged with kind, and
// stores the message.
func (c *Collector) RecordError(kind, msg string) {
	if c == nil {
		return
	}
	c.errorsTotal.Add(1)
	add(c.otelErrors, 1, metric.WithAttributes(attribute.String("kind", kind)))
	c.mu.Lock()
	c.lastError = time.Now()
	c.lastErrorMsg = msg
	c.mu.Unlock()
}

// ErrorCount returns the total number of errors recorded.
func (c *Collector) ErrorCount() int64 {
	if c == nil {
		return 0
	}
	return c.errorsTotal.Load()
}

// ── Snapshot ─────────────────────────────────────────────────────────

// Snapshot is a point-in-time view of all metrics.
type Snapshot struct {
	Uptime           string `json:"uptime"`
	SessionsTotal    int64  `json:"sessions_total"`
	BytesIn          int64  `json:"bytes_in"`
	BytesOut         int64  `json:"bytes_out"`
	Received         string `json:"received"`
	Sent             string `json:"sent"`
	Transforms       int64  `json:"transforms"`
	TransformTime    string `json:"transform_time"`
	ErrorsTotal      int64  `json:"errors_total"`
	LastError        string `json:"last_error,omitempty"`
	LastErrorMessage string `json:"last_error_message,omitempty"`
}

// Snapshot returns a copy of all current metrics.
func (c *Collector) Snapshot() Snapshot {
	if c == nil {
		return Snapshot{}
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	s := Snapshot{
		Uptime:        time.Since(c.startTime).Truncate(time.Millisecond).String(),
		SessionsTotal: c.sessionsTotal.Load(),
		BytesIn:       c.bytesIn.Load(),
		BytesOut:      c.bytesOut.Load(),
		Transforms:    c.transforms.Load(),
		TransformTime: time.Duration(c.transformNanos.Load()).String(),
		ErrorsTotal:   c.errorsTotal.Load(),
	}
	s.Received = sizestr.ToString(s.BytesIn)
	s.Sent = sizestr.ToString(s.BytesOut)
	if !c.lastError.IsZero() {
		s.LastError = c.lastError.Format(time.RFC3339)
		s.LastErrorMessage = c.lastErrorMsg
	}
	return s
}

// JSON returns the snapshot as an indented JSON string.
func (c *Collector) JSON() string {
	s := c.Snapshot()
	data, _ := json.MarshalIndent(s, "", "  ")
	return string(data)
}

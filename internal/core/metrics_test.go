package core

import (
	"context"
	"net"
	"testing"

	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	tnerr "thumbnailer/internal/errors"
	"thumbnailer/internal/metrics"
)

// collect returns the int64 sum for name and kind ("" for no kind).
func collect(t *testing.T, reader *sdkmetric.ManualReader, name, kind string) int64 {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatal(err)
	}
	var total int64
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			sum, ok := m.Data.(metricdata.Sum[int64])
			if m.Name != name || !ok {
				continue
			}
			for _, dp := range sum.DataPoints {
				if v, _ := dp.Attributes.Value(attribute.Key("kind")); v.AsString() == kind {
					total += dp.Value
				}
			}
		}
	}
	return total
}

func TestListenMode_ExportsSessionMetrics(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer mp.Shutdown(context.Background()) //nolint:errcheck

	m := &ListenMode{Metrics: metrics.NewWithProvider(mp)}
	addr, done := startListen(t, context.Background(), m)
	client(t, addr, "5", []byte("hello"))
	if err := wait(t, done); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if v := collect(t, reader, "thumbnailer.sessions", ""); v != 1 {
		t.Errorf("sessions = %d, want 1", v)
	}
	if v := collect(t, reader, "thumbnailer.bytes_in", ""); v != 5 {
		t.Errorf("bytes_in = %d, want 5", v)
	}
	if v := collect(t, reader, "thumbnailer.bytes_out", ""); v != 5 {
		t.Errorf("bytes_out = %d, want 5", v)
	}

	// A second service on the same collector fails on a bad length.
	m2 := &ListenMode{Metrics: m.Metrics}
	addr, done = startListen(t, context.Background(), m2)
	a, err := net.Dial("tcp", addr)
	if err != nil {
		t.Fatal(err)
	}
	a.Write([]byte("12a")) //nolint:errcheck
	a.Close()
	if err := wait(t, done); tnerr.KindOf(err) != tnerr.KindParse {
		t.Fatalf("err = %v, want parse error", err)
	}

	if v := collect(t, reader, "thumbnailer.errors", tnerr.KindParse.String()); v != 1 {
		t.Errorf("errors{kind=parse error} = %d, want 1", v)
	}
	if v := collect(t, reader, "thumbnailer.sessions", ""); v != 2 {
		t.Errorf("sessions = %d, want 2", v)
	}
}

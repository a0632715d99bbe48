package session

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"

	"thumbnailer/internal/capability"
	"thumbnailer/internal/metrics"
	"thumbnailer/util"
)

func TestNew(t *testing.T) {
	var buf bytes.Buffer
	logger := util.NewLogger(1)
	logger.SetOutput(&buf)
	logger.SetTimestamps(false)
	m := metrics.New()

	p := capability.Params{Width: 64, Height: 32}
	s := New(p, logger, m)

	if _, err := uuid.Parse(s.ID); err != nil {
		t.Errorf("ID %q is not a UUID: %v", s.ID, err)
	}
	if s.Params != p {
		t.Errorf("Params = %+v", s.Params)
	}
	if m.TotalSessions() != 1 {
		t.Errorf("sessions = %d, want 1", m.TotalSessions())
	}

	s.Logger.Info("hello")
	want := "[INF] session " + s.ID[:8] + ": hello"
	if got := strings.TrimSpace(buf.String()); got != want {
		t.Errorf("log line = %q, want %q", got, want)
	}
}

func TestNew_UniqueIDs(t *testing.T) {
	a := New(capability.Params{}, nil, nil)
	b := New(capability.Params{}, nil, nil)
	if a.ID == b.ID {
		t.Error("session IDs should differ")
	}
}

func TestShortID(t *testing.T) {
	tests := []struct{ in, want string }{
		{"3f2a9c1e-0000-4000-8000-000000000000", "3f2a9c1e"},
		{"abc", "abc"},
	}
	for _, tt := range tests {
		if got := ShortID(tt.in); got != tt.want {
			t.Errorf("ShortID(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFail(t *testing.T) {
	var buf bytes.Buffer
	logger := util.NewLogger(0)
	logger.SetOutput(&buf)
	m := metrics.New()

	s := New(capability.Params{}, logger, m)
	s.Fail("short read", errors.New("peer went away"))

	if !strings.Contains(buf.String(), "[ERR]") || !strings.Contains(buf.String(), "peer went away") {
		t.Errorf("log = %q", buf.String())
	}
	if m.ErrorCount() != 1 {
		t.Errorf("errors = %d, want 1", m.ErrorCount())
	}
}

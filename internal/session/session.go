// Package session represents one thumbnail exchange: the announced
// length on the first connection, the payload and reply on the second.
//
// A Session carries everything the exchange needs explicitly, so the
// protocol code never reaches for package-level defaults.
package session

import (
	"time"

	"github.com/google/uuid"

	"thumbnailer/internal/capability"
	"thumbnailer/internal/metrics"
	"thumbnailer/util"
)

// Session encapsulates the runtime context for a single exchange.
type Session struct {
	ID      string
	Params  capability.Params
	Logger  *util.Logger // tagged with the short session ID
	Metrics *metrics.Collector
	Started time.Time
}

// New creates a Session with a fresh ID and records it in m.
func New(p capability.Params, logger *util.Logger, m *metrics.Collector) *Session {
	id := uuid.NewString()
	if logger == nil {
		logger = util.Discard()
	}
	m.SessionStarted()
	return &Session{
		ID:      id,
		Params:  p,
		Logger:  logger.With("session " + ShortID(id) + ":"),
		Metrics: m,
		Started: time.Now(),
	}
}

// ShortID returns the first block of a UUID, enough to tell sessions
// apart in a log.
func ShortID(id string) string {
	if len(id) >= 8 {
		return id[:8]
	}
	return id
}

// Elapsed returns the time since the session started.
func (s *Session) Elapsed() time.Duration {
	return time.Since(s.Started)
}

// Fail logs err and records it against the session's metrics.
func (s *Session) Fail(kind string, err error) {
	s.Logger.Error("%v", err)
	s.Metrics.RecordError(kind, err.Error())
}

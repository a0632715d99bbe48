// Package errors provides domain-specific error types for thumbnailer.
//
// Every failure of a thumbnail session is reported as a *SessionError
// whose Kind says which stage of the two-connection exchange broke.
// Callers use the Kind to pick an exit status and operators use the
// Op/Addr/Input context to diagnose without re-running.
package errors

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
)

// ── Sentinel errors ──────────────────────────────────────────────────

var (
	ErrNotConnected = errors.New("not connected")
	ErrShortRead    = errors.New("connection closed before the announced length was received")
	ErrOversize     = errors.New("announced length exceeds the maximum payload size")
)

// ── Kinds ────────────────────────────────────────────────────────────

// Kind classifies the stage of a session that failed.
type Kind int

const (
	KindUnknown Kind = iota
	KindBind
	KindAccept
	KindConnect
	KindRead
	KindShortRead
	KindEncoding
	KindParse
	KindOversize
	KindTimeout
	KindTransform
	KindWrite
)

func (k Kind) String() string {
	switch k {
	case KindBind:
		return "bind error"
	case KindAccept:
		return "accept error"
	case KindConnect:
		return "connect error"
	case KindRead:
		return "read error"
	case KindShortRead:
		return "short read"
	case KindEncoding:
		return "encoding error"
	case KindParse:
		return "parse error"
	case KindOversize:
		return "oversize payload"
	case KindTimeout:
		return "timeout"
	case KindTransform:
		return "transform error"
	case KindWrite:
		return "write error"
	default:
		return "error"
	}
}

// ── Structured error types ───────────────────────────────────────────

// SessionError represents a terminal failure of one thumbnail session.
type SessionError struct {
	Kind  Kind
	Op    string // "bind", "accept", "dial", "read length", "read payload", "transform", "write", "flush"
	Addr  string // network address or file path involved (optional)
	Input string // offending text, set for parse errors
	Err   error  // underlying cause
}

func (e *SessionError) Error() string {
	s := e.Kind.String() + ": " + e.Op
	if e.Addr != "" {
		s += " " + e.Addr
	}
	if e.Input != "" || e.Kind == KindParse {
		s += fmt.Sprintf(" %q", e.Input)
	}
	if e.Err != nil {
		s += ": " + e.Err.Error()
	}
	return s
}

func (e *SessionError) Unwrap() error { return e.Err }

// SSHError represents an SSH-specific failure with host context.
type SSHError struct {
	Op   string // "handshake", "auth", "hostkey", "dial"
	Host string
	Port int
	Err  error
}

func (e *SSHError) Error() string {
	return fmt.Sprintf("ssh %s %s:%d: %v", e.Op, e.Host, e.Port, e.Err)
}

func (e *SSHError) Unwrap() error { return e.Err }

// ConfigError represents an invalid configuration value.  It is the
// only error type that maps to a usage exit status.
type ConfigError struct {
	Field   string      // config field name
	Value   interface{} // the invalid value (nil if missing)
	Message string      // human-readable explanation
	Hint    string      // suggestion for the user (optional)
}

func (e *ConfigError) Error() string {
	msg := fmt.Sprintf("config: --%s", e.Field)
	if e.Value != nil {
		msg += fmt.Sprintf("=%v", e.Value)
	}
	msg += ": " + e.Message
	if e.Hint != "" {
		msg += "\n  hint: " + e.Hint
	}
	return msg
}

// ── Constructors ─────────────────────────────────────────────────────

// New creates a SessionError of the given kind.
func New(kind Kind, op string, err error) *SessionError {
	return &SessionError{Kind: kind, Op: op, Err: err}
}

// Wrap creates a SessionError for a network operation, promoting the
// kind to KindTimeout when the underlying error is a deadline expiry.
func Wrap(kind Kind, op, addr string, err error) *SessionError {
	if isTimeout(err) {
		kind = KindTimeout
	}
	return &SessionError{Kind: kind, Op: op, Addr: addr, Err: err}
}

// WrapSSH creates an SSHError.
func WrapSSH(op, host string, port int, err error) *SSHError {
	return &SSHError{Op: op, Host: host, Port: port, Err: err}
}

// ── Classification helpers ───────────────────────────────────────────

// KindOf returns the Kind of the first SessionError in err's chain, or
// KindUnknown.
func KindOf(err error) Kind {
	var se *SessionError
	if errors.As(err, &se) {
		return se.Kind
	}
	return KindUnknown
}

// IsKind reports whether err carries the given kind.  A short read is
// also a read error.
func IsKind(err error, kind Kind) bool {
	k := KindOf(err)
	if k == kind {
		return true
	}
	return kind == KindRead && k == KindShortRead
}

// IsUsage reports whether err stems from invalid configuration.
func IsUsage(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce)
}

// ClassifyRead maps an error returned while filling a fixed-size
// buffer to its session kind.
func ClassifyRead(err error) Kind {
	switch {
	case isTimeout(err):
		return KindTimeout
	case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
		return KindShortRead
	default:
		return KindRead
	}
}

// isTimeout inspects standard library error types for deadline expiry.
func isTimeout(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	if errors.As(err, &ne) {
		return ne.Timeout()
	}
	return false
}

// As is [errors.As], so callers holding the tnerr import need not also
// import the standard package.
func As(err error, target interface{}) bool { return errors.As(err, target) }

package util

import (
	"context"
	"errors"
	"io"
	"net"
	"time"
)

// closeWriter is implemented by *net.TCPConn, *net.UnixConn and the
// net.Conn returned by an SSH client's Dial.
type closeWriter interface {
	CloseWrite() error
}

// CloseWrite half-closes conn so the peer reads EOF while this side can
// still read.  Connections without half-close support are fully closed.
func CloseWrite(conn net.Conn) error {
	if cw, ok := conn.(closeWriter); ok {
		return cw.CloseWrite()
	}
	return conn.Close()
}

// DeadlineReader arms a fresh read deadline before every Read, so a
// peer that stalls mid-transfer is noticed even when the transfer as a
// whole takes longer than Timeout.  A zero Timeout disables deadlines.
// Connections that do not support deadlines (SSH channels) are read
// without one.
//
// Once Ctx is done no further deadline is armed and Read returns
// Ctx.Err(), so a past deadline set by UnblockOnDone is never undone.
type DeadlineReader struct {
	Ctx     context.Context
	Conn    net.Conn
	Timeout time.Duration
}

func (r *DeadlineReader) Read(p []byte) (int, error) {
	if err := arm(r.Ctx, r.Conn.SetReadDeadline, r.Timeout); err != nil {
		return 0, err
	}
	return r.Conn.Read(p)
}

// DeadlineWriter is the write-side counterpart of DeadlineReader.
type DeadlineWriter struct {
	Ctx     context.Context
	Conn    net.Conn
	Timeout time.Duration
}

func (w *DeadlineWriter) Write(p []byte) (int, error) {
	if err := arm(w.Ctx, w.Conn.SetWriteDeadline, w.Timeout); err != nil {
		return 0, err
	}
	return w.Conn.Write(p)
}

// arm sets a deadline timeout from now unless ctx is already done.  ctx
// is checked again after arming: if it ended in between, the deadline
// is pushed back into the past.
func arm(ctx context.Context, set func(time.Time) error, timeout time.Duration) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if timeout <= 0 {
		return nil
	}
	set(time.Now().Add(timeout)) //nolint:errcheck
	if err := ctx.Err(); err != nil {
		set(time.Unix(1, 0)) //nolint:errcheck
		return err
	}
	return nil
}

// UnblockOnDone forces pending reads and writes on conn to fail once
// ctx is done, closing conn if it cannot take a deadline.  Call the
// returned stop function when the I/O is over.
func UnblockOnDone(ctx context.Context, conn net.Conn) (stop func() bool) {
	return context.AfterFunc(ctx, func() {
		if err := conn.SetDeadline(time.Unix(1, 0)); err != nil {
			conn.Close()
		}
	})
}

// IsHarmless returns true for errors that are expected during shutdown.
func IsHarmless(err error) bool {
	if err == nil {
		return true
	}
	if errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) || errors.Is(err, io.ErrClosedPipe) {
		return true
	}
	// net.OpError wrapping "use of closed network connection"
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return errors.Is(opErr.Err, net.ErrClosed)
	}
	return false
}

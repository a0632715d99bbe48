package core

import (
	"context"
	"net"
	"time"

	"thumbnailer/internal/capability"
	tnerr "thumbnailer/internal/errors"
	"thumbnailer/internal/metrics"
	"thumbnailer/internal/protocol"
	"thumbnailer/internal/session"
	"thumbnailer/util"
)

// ListenMode binds once, serves exactly one two-connection session and
// returns.  Connection A must be fully resolved before connection B is
// accepted.
type ListenMode struct {
	Address     string // host:port
	Transformer capability.Transformer
	Params      capability.Params
	MaxPayload  int64
	Timeout     time.Duration // per read/write; zero disables
	Logger      *util.Logger
	Metrics     *metrics.Collector

	// Bound, if set, is called with the listening address once the
	// listener is up.
	Bound func(net.Addr)
}

// Run binds the listener and serves one session.  Cancelling ctx closes
// the listener and interrupts any pending read or write.
func (m *ListenMode) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", m.Address)
	if err != nil {
		return tnerr.Wrap(tnerr.KindBind, "bind", m.Address, err)
	}
	defer ln.Close()

	stop := context.AfterFunc(ctx, func() { ln.Close() })
	defer stop()

	m.Logger.Info("listening on %s", ln.Addr())
	if m.Bound != nil {
		m.Bound(ln.Addr())
	}

	connA, err := accept(ctx, ln, "accept length connection")
	if err != nil {
		return err
	}
	sess := session.New(m.Params, m.Logger, m.Metrics)
	sess.Logger.Verbose("length connection from %s", connA.RemoteAddr())

	length, err := receiveLength(ctx, connA, m.Timeout)
	connA.Close()
	if err != nil {
		sess.Fail(tnerr.KindOf(err).String(), err)
		return err
	}
	sess.Logger.Info("announced length: %d bytes", length)

	connB, err := accept(ctx, ln, "accept payload connection")
	if err != nil {
		sess.Fail(tnerr.KindOf(err).String(), err)
		return err
	}
	defer connB.Close()
	sess.Logger.Verbose("payload connection from %s", connB.RemoteAddr())

	relay := &protocol.PayloadRelay{
		Transformer: m.Transformer,
		MaxPayload:  m.MaxPayload,
		Timeout:     m.Timeout,
	}
	if err := relay.Relay(ctx, sess, connB, length); err != nil {
		sess.Fail(tnerr.KindOf(err).String(), err)
		return err
	}

	sess.Logger.Info("thumbnail %s sent in %s", sess.Params, sess.Elapsed().Round(time.Millisecond))
	sess.Logger.Debug("metrics: %s", m.Metrics.JSON())
	return nil
}

// accept waits for the next connection, reporting a closed listener as
// the context's error when ctx ended.
func accept(ctx context.Context, ln net.Listener, op string) (net.Conn, error) {
	conn, err := ln.Accept()
	if err != nil {
		if cerr := ctx.Err(); cerr != nil {
			return nil, &tnerr.SessionError{Kind: tnerr.KindAccept, Op: op, Addr: ln.Addr().String(), Err: cerr}
		}
		return nil, tnerr.Wrap(tnerr.KindAccept, op, ln.Addr().String(), err)
	}
	return conn, nil
}

// receiveLength reads the announced length from conn under the session
// deadline and ctx, tagging failures with the peer address.
func receiveLength(ctx context.Context, conn net.Conn, timeout time.Duration) (uint, error) {
	stop := util.UnblockOnDone(ctx, conn)
	defer stop()

	addr := conn.RemoteAddr().String()
	n, err := protocol.ReceiveLength(&util.DeadlineReader{Ctx: ctx, Conn: conn, Timeout: timeout})
	if err == nil {
		return n, nil
	}
	if cerr := ctx.Err(); cerr != nil {
		kind := tnerr.KindRead
		if cerr == context.DeadlineExceeded {
			kind = tnerr.KindTimeout
		}
		return 0, &tnerr.SessionError{Kind: kind, Op: "read length", Addr: addr, Err: cerr}
	}
	var se *tnerr.SessionError
	if tnerr.As(err, &se) && se.Addr == "" {
		se.Addr = addr
	}
	return 0, err
}

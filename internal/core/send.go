package core

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"time"

	"github.com/jpillora/sizestr"
	"golang.org/x/sync/errgroup"
	"golang.org/x/term"

	"thumbnailer/internal/capability"
	tnerr "thumbnailer/internal/errors"
	"thumbnailer/internal/metrics"
	"thumbnailer/internal/protocol"
	"thumbnailer/internal/retry"
	"thumbnailer/internal/session"
	"thumbnailer/internal/transport"
	"thumbnailer/util"
)

// errNoReply is reported when the service closes connection B without
// sending any thumbnail bytes.
var errNoReply = errors.New("service closed the connection without a thumbnail")

// SendMode is the client side of a listening thumbnailer: it announces
// the image length on one connection, uploads the image on a second and
// collects the thumbnail from the reply.
type SendMode struct {
	Address    string
	ImagePath  string
	OutputPath string // "" writes to Stdout
	Dialer     transport.Dialer
	// Retry governs dialing connection A only, while the service may
	// still be starting.  Nil means a single attempt.
	Retry   *retry.Backoff
	Timeout time.Duration
	Logger  *util.Logger
	Metrics *metrics.Collector

	// Stdout defaults to os.Stdout when nil.
	Stdout io.Writer
}

func (m *SendMode) stdout() io.Writer {
	if m.Stdout != nil {
		return m.Stdout
	}
	return os.Stdout
}

// Run performs one exchange with the service.
func (m *SendMode) Run(ctx context.Context) error {
	defer m.Dialer.Close()

	if m.OutputPath == "" {
		if f, ok := m.stdout().(*os.File); ok && term.IsTerminal(int(f.Fd())) {
			return &tnerr.ConfigError{
				Field:   "thumbnail",
				Message: "refusing to write a binary thumbnail to a terminal",
				Hint:    "pass -t PATH or redirect stdout",
			}
		}
	}

	img, err := os.Open(m.ImagePath)
	if err != nil {
		return &tnerr.SessionError{Kind: tnerr.KindRead, Op: "open image", Addr: m.ImagePath, Err: err}
	}
	defer img.Close()
	st, err := img.Stat()
	if err != nil {
		return &tnerr.SessionError{Kind: tnerr.KindRead, Op: "stat image", Addr: m.ImagePath, Err: err}
	}
	if !st.Mode().IsRegular() {
		return &tnerr.SessionError{Kind: tnerr.KindRead, Op: "open image", Addr: m.ImagePath,
			Err: fmt.Errorf("not a regular file")}
	}
	size := st.Size()

	sess := session.New(capability.Params{}, m.Logger, m.Metrics)

	if err := m.announce(ctx, sess, size); err != nil {
		sess.Fail(tnerr.KindOf(err).String(), err)
		return err
	}

	reply, err := m.upload(ctx, sess, img, size)
	if err != nil {
		sess.Fail(tnerr.KindOf(err).String(), err)
		return err
	}

	if err := m.deliver(reply); err != nil {
		sess.Fail(tnerr.KindWrite.String(), err)
		return err
	}
	sess.Logger.Info("received %s thumbnail in %s", sizestr.ToString(int64(len(reply))),
		sess.Elapsed().Round(time.Millisecond))
	return nil
}

// announce dials connection A, retrying while the service is not yet
// listening, writes the decimal length and closes it.
func (m *SendMode) announce(ctx context.Context, sess *session.Session, size int64) error {
	b := retry.Backoff{MaxAttempts: 1}
	if m.Retry != nil {
		b = *m.Retry
	}
	if b.OnRetry == nil {
		b.OnRetry = func(attempt int, err error, wait time.Duration) {
			sess.Logger.Verbose("dial %s (attempt %d): %v; retrying in %s", m.Address, attempt, err, wait.Round(time.Millisecond))
		}
	}

	var conn net.Conn
	err := b.Do(ctx, func(int) error {
		c, err := m.Dialer.Dial(ctx, "tcp", m.Address)
		if err != nil {
			if ctx.Err() != nil {
				return retry.Permanent(err)
			}
			return err
		}
		conn = c
		return nil
	})
	if err != nil {
		return tnerr.Wrap(tnerr.KindConnect, "dial length connection", m.Address, err)
	}
	defer conn.Close()

	w := &util.DeadlineWriter{Ctx: ctx, Conn: conn, Timeout: m.Timeout}
	if err := protocol.SendLength(w, size); err != nil {
		return err
	}
	sess.Logger.Verbose("announced %d bytes to %s", size, m.Address)
	return nil
}

// upload dials connection B, streams the image while reading the reply
// and returns the reply once the service closes its side.
func (m *SendMode) upload(ctx context.Context, sess *session.Session, img io.Reader, size int64) ([]byte, error) {
	conn, err := m.Dialer.Dial(ctx, "tcp", m.Address)
	if err != nil {
		return nil, tnerr.Wrap(tnerr.KindConnect, "dial payload connection", m.Address, err)
	}
	defer conn.Close()

	g, gctx := errgroup.WithContext(ctx)
	stop := util.UnblockOnDone(gctx, conn)
	defer stop()

	g.Go(func() error {
		w := &util.DeadlineWriter{Ctx: gctx, Conn: conn, Timeout: m.Timeout}
		if err := protocol.SendPayload(w, img, size); err != nil {
			return err
		}
		sess.Metrics.BytesSent(size)
		return util.CloseWrite(conn)
	})

	var reply bytes.Buffer
	g.Go(func() error {
		r := &util.DeadlineReader{Ctx: gctx, Conn: conn, Timeout: m.Timeout}
		if _, err := io.Copy(&reply, r); err != nil {
			return tnerr.Wrap(tnerr.KindRead, "read thumbnail", m.Address, err)
		}
		return nil
	})

	err = g.Wait()
	sess.Metrics.BytesReceived(int64(reply.Len()))
	if reply.Len() == 0 {
		// The service aborts without a reply on any failure.
		cause := errNoReply
		if err != nil {
			cause = fmt.Errorf("%w (%v)", errNoReply, err)
		}
		return nil, &tnerr.SessionError{Kind: tnerr.KindRead, Op: "read thumbnail", Addr: m.Address, Err: cause}
	}
	if err != nil {
		return nil, err
	}
	return reply.Bytes(), nil
}

func (m *SendMode) deliver(reply []byte) error {
	if m.OutputPath == "" {
		if _, err := m.stdout().Write(reply); err != nil {
			return &tnerr.SessionError{Kind: tnerr.KindWrite, Op: "write thumbnail", Addr: "stdout", Err: err}
		}
		return nil
	}
	if err := os.WriteFile(m.OutputPath, reply, 0o644); err != nil {
		return &tnerr.SessionError{Kind: tnerr.KindWrite, Op: "write thumbnail", Addr: m.OutputPath, Err: err}
	}
	return nil
}

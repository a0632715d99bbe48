package protocol

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"net"
	"time"

	"github.com/jpillora/sizestr"

	"thumbnailer/internal/capability"
	tnerr "thumbnailer/internal/errors"
	"thumbnailer/internal/session"
	"thumbnailer/util"
)

// writeBufSize is the bufio buffer in front of connection B.
const writeBufSize = 32 * 1024

// PayloadRelay reads the image announced on connection A from
// connection B, transforms it once and writes the thumbnail back.
type PayloadRelay struct {
	Transformer capability.Transformer
	// MaxPayload rejects larger announced lengths before any buffer is
	// allocated.  Zero or negative means no limit.
	MaxPayload int64
	// Timeout is armed before every read and write.  Zero disables it.
	Timeout time.Duration
}

// Relay runs the payload half of sess on conn.  On any failure no
// thumbnail byte is written and the caller is expected to close conn.
// On success the write side of conn has been half-closed.
func (p *PayloadRelay) Relay(ctx context.Context, sess *session.Session, conn net.Conn, length uint) error {
	addr := conn.RemoteAddr().String()
	log := sess.Logger

	if err := p.checkLength(length); err != nil {
		return tnerr.New(tnerr.KindOversize, "read payload", err)
	}

	stop := util.UnblockOnDone(ctx, conn)
	defer stop()

	buf := make([]byte, length)
	n, err := io.ReadFull(&util.DeadlineReader{Ctx: ctx, Conn: conn, Timeout: p.Timeout}, buf)
	sess.Metrics.BytesReceived(int64(n))
	if err != nil {
		if ctx.Err() != nil {
			return ioError(ctx, tnerr.KindRead, "read payload", addr, err)
		}
		kind := tnerr.ClassifyRead(err)
		if kind == tnerr.KindShortRead {
			err = fmt.Errorf("%w (%d of %d bytes): %w", tnerr.ErrShortRead, n, length, err)
		}
		return ioError(ctx, kind, "read payload", addr, err)
	}
	log.Verbose("received %s from %s", sizestr.ToString(int64(n)), addr)

	start := time.Now()
	out, err := p.Transformer.Thumbnail(ctx, buf, sess.Params)
	buf = nil
	if err != nil {
		return tnerr.New(tnerr.KindTransform, "transform", err)
	}
	took := time.Since(start)
	sess.Metrics.TransformDone(took)
	log.Verbose("thumbnail %s is %s (took %s)", sess.Params, sizestr.ToString(int64(len(out))), took.Round(time.Millisecond))

	w := bufio.NewWriterSize(&util.DeadlineWriter{Ctx: ctx, Conn: conn, Timeout: p.Timeout}, writeBufSize)
	if _, err := w.Write(out); err != nil {
		return ioError(ctx, tnerr.KindWrite, "write", addr, err)
	}
	if err := w.Flush(); err != nil {
		return ioError(ctx, tnerr.KindWrite, "flush", addr, err)
	}
	sess.Metrics.BytesSent(int64(len(out)))

	if err := util.CloseWrite(conn); err != nil && !util.IsHarmless(err) {
		return ioError(ctx, tnerr.KindWrite, "close", addr, err)
	}
	log.Debug("sent %d bytes to %s", len(out), addr)
	return nil
}

func (p *PayloadRelay) checkLength(length uint) error {
	if uint64(length) > math.MaxInt {
		return fmt.Errorf("%w: %d bytes cannot be buffered", tnerr.ErrOversize, length)
	}
	if p.MaxPayload > 0 && uint64(length) > uint64(p.MaxPayload) {
		return fmt.Errorf("%w: %s announced, limit is %s", tnerr.ErrOversize,
			sizestr.ToString(int64(length)), sizestr.ToString(p.MaxPayload))
	}
	return nil
}

// ioError attributes a failed read or write to the context when the
// context is what interrupted it.
func ioError(ctx context.Context, kind tnerr.Kind, op, addr string, err error) error {
	if cerr := ctx.Err(); cerr != nil {
		if errors.Is(cerr, context.DeadlineExceeded) {
			kind = tnerr.KindTimeout
		}
		return &tnerr.SessionError{Kind: kind, Op: op, Addr: addr, Err: cerr}
	}
	return tnerr.Wrap(kind, op, addr, err)
}

// SendPayload copies exactly n bytes from r to w.  A source that ends
// early is reported as a short read.
func SendPayload(w io.Writer, r io.Reader, n int64) error {
	written, err := io.CopyN(w, r, n)
	if err == nil {
		return nil
	}
	if errors.Is(err, io.EOF) {
		return tnerr.New(tnerr.KindShortRead, "send payload",
			fmt.Errorf("%w (%d of %d bytes)", tnerr.ErrShortRead, written, n))
	}
	return tnerr.Wrap(tnerr.KindWrite, "send payload", "", err)
}

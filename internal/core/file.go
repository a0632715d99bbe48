package core

import (
	"context"
	"os"
	"time"

	"github.com/jpillora/sizestr"

	"thumbnailer/internal/capability"
	tnerr "thumbnailer/internal/errors"
	"thumbnailer/internal/metrics"
	"thumbnailer/internal/session"
	"thumbnailer/util"
)

// FileMode reads a source image from disk and writes its thumbnail to
// another path.
type FileMode struct {
	ImagePath     string
	ThumbnailPath string
	Transformer   capability.Transformer
	Params        capability.Params
	Logger        *util.Logger
	Metrics       *metrics.Collector
}

// Run performs the conversion.  The output file is only created once
// the thumbnail has been generated.
func (m *FileMode) Run(ctx context.Context) error {
	sess := session.New(m.Params, m.Logger, m.Metrics)

	data, err := os.ReadFile(m.ImagePath)
	if err != nil {
		err = &tnerr.SessionError{Kind: tnerr.KindRead, Op: "read image", Addr: m.ImagePath, Err: err}
		sess.Fail(tnerr.KindRead.String(), err)
		return err
	}
	sess.Metrics.BytesReceived(int64(len(data)))
	sess.Logger.Verbose("read %s from %s", sizestr.ToString(int64(len(data))), m.ImagePath)

	start := time.Now()
	out, err := m.Transformer.Thumbnail(ctx, data, sess.Params)
	if err != nil {
		err = &tnerr.SessionError{Kind: tnerr.KindTransform, Op: "transform", Addr: m.ImagePath, Err: err}
		sess.Fail(tnerr.KindTransform.String(), err)
		return err
	}
	sess.Metrics.TransformDone(time.Since(start))

	if err := os.WriteFile(m.ThumbnailPath, out, 0o644); err != nil {
		err = &tnerr.SessionError{Kind: tnerr.KindWrite, Op: "write thumbnail", Addr: m.ThumbnailPath, Err: err}
		sess.Fail(tnerr.KindWrite.String(), err)
		return err
	}
	sess.Metrics.BytesSent(int64(len(out)))

	sess.Logger.Info("wrote %s thumbnail to %s (%s)", sess.Params, m.ThumbnailPath, sizestr.ToString(int64(len(out))))
	return nil
}

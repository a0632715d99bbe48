// Package imaging implements capability.Transformer with real image
// codecs.  Sources may be PNG, JPEG, GIF or WebP; thumbnails are always
// encoded as PNG and are exactly the requested size.
package imaging

import (
	"bytes"
	"context"
	"image"
	_ "image/gif"  // register decoder
	_ "image/jpeg" // register decoder
	"image/png"

	"github.com/pkg/errors"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp" // register decoder

	"thumbnailer/internal/capability"
)

// MaxDimension bounds the thumbnail canvas along either axis.
const MaxDimension = 16384

// Interface compliance check
var _ capability.Transformer = (*PNG)(nil)

// PNG scales images into a PNG thumbnail.
type PNG struct {
	// Scaler is the resampling kernel (default draw.CatmullRom).
	Scaler draw.Scaler
	// Compression is the PNG compression level (default png.DefaultCompression).
	Compression png.CompressionLevel
}

// New returns a PNG transformer with default settings.
func New() *PNG {
	return &PNG{Scaler: draw.CatmullRom}
}

// Thumbnail decodes data, scales it to p.Width x p.Height and encodes
// the result.  Without p.Crop the whole source is fitted inside the
// canvas and the remainder is left transparent; with p.Crop the source
// is scaled to cover the canvas and the overflow is cut off evenly.
func (t *PNG) Thumbnail(ctx context.Context, data []byte, p capability.Params) ([]byte, error) {
	if p.Width == 0 || p.Height == 0 {
		return nil, errors.Errorf("invalid thumbnail size %s", p)
	}
	if p.Width > MaxDimension || p.Height > MaxDimension {
		return nil, errors.Errorf("thumbnail size %s exceeds %dpx", p, MaxDimension)
	}
	if len(data) == 0 {
		return nil, errors.New("empty image data")
	}

	src, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, errors.Wrap(err, "decode image")
	}
	sb := src.Bounds()
	if sb.Empty() {
		return nil, errors.Errorf("decoded %s image has no pixels", format)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	w, h := int(p.Width), int(p.Height)
	dst := image.NewNRGBA(image.Rect(0, 0, w, h))
	if p.Crop {
		t.scaler().Scale(dst, dst.Bounds(), src, CropRect(sb, w, h), draw.Src, nil)
	} else {
		t.scaler().Scale(dst, FitRect(sb.Dx(), sb.Dy(), w, h), src, sb, draw.Src, nil)
	}

	var buf bytes.Buffer
	enc := png.Encoder{CompressionLevel: t.Compression}
	if err := enc.Encode(&buf, dst); err != nil {
		return nil, errors.Wrap(err, "encode png")
	}
	return buf.Bytes(), nil
}

func (t *PNG) scaler() draw.Scaler {
	if t == nil || t.Scaler == nil {
		return draw.CatmullRom
	}
	return t.Scaler
}

// Package capability defines what the service does with an image once
// the payload has been received.  The transform sits behind a single
// interface so the wire protocol can be exercised with stub
// implementations, independent of any real image codec.
package capability

import (
	"context"
	"fmt"
)

// Params are the per-session thumbnail settings.  They are resolved
// once from configuration and passed down explicitly.
type Params struct {
	Width  uint // target width in pixels
	Height uint // target height in pixels
	Crop   bool // fill the target exactly, cropping overflow
}

// String renders the params as "150x150" or "150x150 crop".
func (p Params) String() string {
	s := fmt.Sprintf("%dx%d", p.Width, p.Height)
	if p.Crop {
		s += " crop"
	}
	return s
}

// Transformer turns encoded source image bytes into encoded thumbnail
// bytes.  Implementations must fail (never return partial output) on
// zero dimensions or data that does not decode.
type Transformer interface {
	Thumbnail(ctx context.Context, data []byte, p Params) ([]byte, error)
}

// Func adapts an ordinary function to the Transformer interface.
type Func func(ctx context.Context, data []byte, p Params) ([]byte, error)

// Thumbnail calls f.
func (f Func) Thumbnail(ctx context.Context, data []byte, p Params) ([]byte, error) {
	return f(ctx, data, p)
}

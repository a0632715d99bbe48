package imaging

import "image"

// FitRect returns the largest rectangle with the source aspect ratio
// that fits inside a w x h canvas, centred on it.
func FitRect(srcW, srcH, w, h int) image.Rectangle {
	sw, sh := int64(srcW), int64(srcH)
	fw, fh := int64(w), int64(h)

	// Compare sw/sh against w/h without floating point.
	if sw*fh > sh*fw {
		fh = max(1, (sh*fw+sw/2)/sw)
	} else {
		fw = max(1, (sw*fh+sh/2)/sh)
	}

	x0 := (int64(w) - fw) / 2
	y0 := (int64(h) - fh) / 2
	return image.Rect(int(x0), int(y0), int(x0+fw), int(y0+fh))
}

// CropRect returns the centred sub-rectangle of src that has the
// aspect ratio of a w x h canvas.
func CropRect(src image.Rectangle, w, h int) image.Rectangle {
	sw, sh := int64(src.Dx()), int64(src.Dy())
	fw, fh := int64(w), int64(h)

	cw, ch := sw, sh
	if sw*fh > sh*fw {
		cw = max(1, sh*fw/fh)
	} else {
		ch = max(1, sw*fh/fw)
	}

	x0 := int64(src.Min.X) + (sw-cw)/2
	y0 := int64(src.Min.Y) + (sh-ch)/2
	return image.Rect(int(x0), int(y0), int(x0+cw), int(y0+ch))
}

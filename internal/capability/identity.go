package capability

import "context"

// Identity returns its input unchanged.  It is useful for exercising
// the transfer protocol end to end without decoding images.
type Identity struct{}

// Thumbnail returns a copy of data.
func (Identity) Thumbnail(ctx context.Context, data []byte, _ Params) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

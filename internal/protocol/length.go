// Package protocol implements both halves of the two-connection
// thumbnail exchange.
//
// Connection A carries the payload length as decimal ASCII text, sent
// in a single write.  Connection B carries exactly that many raw image
// bytes; the reply on the same connection is the encoded thumbnail with
// no framing, terminated by the server closing its write side.
package protocol

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode/utf8"

	"thumbnailer/config"
	tnerr "thumbnailer/internal/errors"
)

// ReceiveLength performs a single read of at most config.LengthChunkSize
// bytes from r and parses them as the announced payload length.  It
// never loops and never closes r.
func ReceiveLength(r io.Reader) (uint, error) {
	buf := make([]byte, config.LengthChunkSize)
	n, err := r.Read(buf)
	if err != nil && n == 0 && !errors.Is(err, io.EOF) {
		return 0, tnerr.Wrap(tnerr.KindRead, "read length", "", err)
	}

	raw := buf[:n]
	if !utf8.Valid(raw) {
		return 0, tnerr.New(tnerr.KindEncoding, "read length",
			fmt.Errorf("%d bytes are not valid UTF-8 text", n))
	}

	text := strings.TrimSpace(string(raw))
	// A single leading '+' is accepted, as in "+42".
	v, err := strconv.ParseUint(strings.TrimPrefix(text, "+"), 10, strconv.IntSize)
	if err != nil {
		var ne *strconv.NumError
		if errors.As(err, &ne) {
			err = ne.Err
		}
		return 0, &tnerr.SessionError{Kind: tnerr.KindParse, Op: "read length", Input: text, Err: err}
	}
	return uint(v), nil
}

// SendLength writes n as a decimal line in a single write, the way
// `du -b FILE | cut -f1` would produce it.
func SendLength(w io.Writer, n int64) error {
	if n < 0 {
		return fmt.Errorf("negative length %d", n)
	}
	line := strconv.FormatInt(n, 10) + "\n"
	if _, err := io.WriteString(w, line); err != nil {
		return tnerr.Wrap(tnerr.KindWrite, "write length", "", err)
	}
	return nil
}

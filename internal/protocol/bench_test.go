package protocol

import (
	"bytes"
	"context"
	"io"
	"net"
	"strings"
	"testing"

	"github.com/jpillora/sizestr"

	"thumbnailer/internal/capability"
)

// BenchmarkReceiveLength measures parsing of a typical length line.
func BenchmarkReceiveLength(b *testing.B) {
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		if _, err := ReceiveLength(strings.NewReader("  1048576\n")); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkRelay_Identity measures one full payload exchange over an
// in-memory pipe with a transformer that echoes its input.
func BenchmarkRelay_Identity(b *testing.B) {
	for _, size := range []int{4 << 10, 256 << 10, 4 << 20} {
		b.Run(sizestr.ToString(int64(size)), func(b *testing.B) {
			payload := bytes.Repeat([]byte("X"), size)
			r := &PayloadRelay{Transformer: capability.Identity{}}
			ctx := context.Background()

			b.SetBytes(int64(size))
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				client, server := net.Pipe()
				go func() {
					client.Write(payload)       //nolint:errcheck
					io.Copy(io.Discard, client) //nolint:errcheck
					client.Close()
				}()
				if err := r.Relay(ctx, newSession(), server, uint(size)); err != nil {
					b.Fatal(err)
				}
				server.Close()
			}
		})
	}
}

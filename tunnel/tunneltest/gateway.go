// Package tunneltest provides an in-process SSH gateway that forwards
// "direct-tcpip" channels, for testing code that dials through
// [tunnel.SSHTunnel].
package tunneltest

import (
	"bytes"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/pem"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"

	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"
)

// Gateway is a minimal SSH server accepting one client key.
type Gateway struct {
	Addr    string
	Host    string
	Port    int
	HostKey ssh.PublicKey

	ln        net.Listener
	cfg       *ssh.ServerConfig
	forwarded atomic.Int64
	wg        sync.WaitGroup
}

// NewGateway starts a gateway on 127.0.0.1 that authenticates
// authorized and is shut down when the test ends.
func NewGateway(t testing.TB, authorized ssh.PublicKey) *Gateway {
	t.Helper()

	_, hostPriv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatal(err)
	}
	hostSigner, err := ssh.NewSignerFromKey(hostPriv)
	if err != nil {
		t.Fatal(err)
	}

	cfg := &ssh.ServerConfig{
		PublicKeyCallback: func(_ ssh.ConnMetadata, key ssh.PublicKey) (*ssh.Permissions, error) {
			if bytes.Equal(key.Marshal(), authorized.Marshal()) {
				return nil, nil
			}
			return nil, errors.New("unknown public key")
		},
	}
	cfg.AddHostKey(hostSigner)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	tcp := ln.Addr().(*net.TCPAddr)
	g := &Gateway{
		Addr:    ln.Addr().String(),
		Host:    tcp.IP.String(),
		Port:    tcp.Port,
		HostKey: hostSigner.PublicKey(),
		ln:      ln,
		cfg:     cfg,
	}

	g.wg.Add(1)
	go g.serve()
	t.Cleanup(func() {
		ln.Close()
		g.wg.Wait()
	})
	return g
}

// Forwarded returns how many channels the gateway has forwarded.
func (g *Gateway) Forwarded() int64 { return g.forwarded.Load() }

// KnownHosts writes a known_hosts file trusting the gateway and returns
// its path.
func (g *Gateway) KnownHosts(t testing.TB) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "known_hosts")
	line := knownhosts.Line([]string{g.Addr}, g.HostKey) + "\n"
	if err := os.WriteFile(path, []byte(line), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func (g *Gateway) serve() {
	defer g.wg.Done()
	for {
		c, err := g.ln.Accept()
		if err != nil {
			return
		}
		go g.handle(c)
	}
}

type directTCPIP struct {
	Host     string
	Port     uint32
	OrigHost string
	OrigPort uint32
}

func (g *Gateway) handle(c net.Conn) {
	sconn, chans, reqs, err := ssh.NewServerConn(c, g.cfg)
	if err != nil {
		c.Close()
		return
	}
	defer sconn.Close()
	go ssh.DiscardRequests(reqs)

	for nc := range chans {
		if nc.ChannelType() != "direct-tcpip" {
			nc.Reject(ssh.UnknownChannelType, "only direct-tcpip is supported") //nolint:errcheck
			continue
		}
		var req directTCPIP
		if err := ssh.Unmarshal(nc.ExtraData(), &req); err != nil {
			nc.Reject(ssh.ConnectionFailed, err.Error()) //nolint:errcheck
			continue
		}
		target, err := net.Dial("tcp", net.JoinHostPort(req.Host, strconv.Itoa(int(req.Port))))
		if err != nil {
			nc.Reject(ssh.ConnectionFailed, fmt.Sprintf("dial: %v", err)) //nolint:errcheck
			continue
		}
		ch, creqs, err := nc.Accept()
		if err != nil {
			target.Close()
			continue
		}
		go ssh.DiscardRequests(creqs)
		g.forwarded.Add(1)
		go pipe(ch, target)
	}
}

// pipe copies both ways, propagating half-closes.
func pipe(ch ssh.Channel, target net.Conn) {
	done := make(chan struct{})
	go func() {
		io.Copy(target, ch) //nolint:errcheck
		if tc, ok := target.(*net.TCPConn); ok {
			tc.CloseWrite() //nolint:errcheck
		}
		close(done)
	}()
	io.Copy(ch, target) //nolint:errcheck
	ch.CloseWrite()     //nolint:errcheck
	<-done
	ch.Close()
	target.Close()
}

// WriteKey generates an ed25519 client key, writes it to a temp file in
// OpenSSH format (encrypted when passphrase is non-empty) and returns
// the path and public key.
func WriteKey(t testing.TB, passphrase string) (string, ssh.PublicKey) {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatal(err)
	}

	var block *pem.Block
	if passphrase == "" {
		block, err = ssh.MarshalPrivateKey(priv, "thumbnailer-test")
	} else {
		block, err = ssh.MarshalPrivateKeyWithPassphrase(priv, "thumbnailer-test", []byte(passphrase))
	}
	if err != nil {
		t.Fatal(err)
	}

	path := filepath.Join(t.TempDir(), "id_ed25519")
	if err := os.WriteFile(path, pem.EncodeToMemory(block), 0o600); err != nil {
		t.Fatal(err)
	}
	sshPub, err := ssh.NewPublicKey(pub)
	if err != nil {
		t.Fatal(err)
	}
	return path, sshPub
}

// Echo starts a TCP server on 127.0.0.1 that sends back whatever it
// reads once the client half-closes, and returns its address.
func Echo(t testing.TB) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { ln.Close() })
	go func() {
		for {
			c, err := ln.Accept()
			if err != nil {
				return
			}
			go func() {
				defer c.Close()
				data, _ := io.ReadAll(c)
				c.Write(data) //nolint:errcheck
			}()
		}
	}()
	return ln.Addr().String()
}

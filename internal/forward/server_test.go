package forward

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/die-net/socks5c/internal/dialer"
	"github.com/die-net/socks5c/internal/socks5"
	"github.com/die-net/socks5c/internal/testutil"
)

func TestServerForwardsThroughSOCKS5(t *testing.T) {
	tests := []struct {
		name     string
		scheme   string
		auth     *socks5.Auth
		userinfo string
	}{
		{name: "socks5", scheme: "socks5"},
		{name: "socks5h_with_auth", scheme: "socks5h", auth: &socks5.Auth{Username: "user", Password: "pass"}, userinfo: "user:pass@"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()

			echoLn := testutil.StartEchoTCPServer(t, ctx)
			defer echoLn.Close()

			proxy := testutil.StartSOCKS5Proxy(t, ctx, tt.auth)

			d, err := dialer.New(dialer.Config{DialTimeout: time.Second}, tt.scheme+"://"+tt.userinfo+proxy.Addr().String())
			if err != nil {
				t.Fatal(err)
			}

			ln, err := ListenTCP(ctx, "tcp", "127.0.0.1:0", net.KeepAliveConfig{Enable: false})
			if err != nil {
				t.Fatal(err)
			}
			defer ln.Close()

			srv := NewServer(ctx, d, echoLn.Addr().String(), true)
			go func() { _ = srv.Serve(ln) }()

			nd := net.Dialer{}
			c, err := nd.DialContext(ctx, "tcp", ln.Addr().String())
			if err != nil {
				t.Fatal(err)
			}
			defer c.Close()

			testutil.AssertEcho(t, c, c, []byte("hello"))

			if got := <-proxy.Requests; got.String() != echoLn.Addr().String() {
				t.Fatalf("proxy saw %s want %s", got, echoLn.Addr())
			}
		})
	}
}

func TestServerLiteral(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	echoLn := testutil.StartEchoTCPServer(t, ctx)
	defer echoLn.Close()

	ln, err := ListenTCP(ctx, "tcp", "127.0.0.1:0", net.KeepAliveConfig{Enable: false})
	if err != nil {
		t.Fatal(err)
	}
	defer ln.Close()

	srv := &Server{
		Dialer: dialer.NewDirectDialer(dialer.Config{DialTimeout: time.Second}),
		Target: echoLn.Addr().String(),
	}
	go func() { _ = srv.Serve(ln) }()

	nd := net.Dialer{}
	c, err := nd.DialContext(ctx, "tcp", ln.Addr().String())
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	testutil.AssertEcho(t, c, c, []byte("hello"))
}

func TestServerClosesClientOnDialFailure(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	proxy := testutil.StartSOCKS5Proxy(t, ctx, &socks5.Auth{Username: "user", Password: "pass"})

	// No credentials configured, so every handshake is rejected.
	d, err := dialer.New(dialer.Config{}, "socks5://"+proxy.Addr().String())
	if err != nil {
		t.Fatal(err)
	}

	ln, err := ListenTCP(ctx, "tcp", "127.0.0.1:0", net.KeepAliveConfig{Enable: false})
	if err != nil {
		t.Fatal(err)
	}
	defer ln.Close()

	srv := NewServer(ctx, d, "127.0.0.1:1", false)
	go func() { _ = srv.Serve(ln) }()

	nd := net.Dialer{}
	c, err := nd.DialContext(ctx, "tcp", ln.Addr().String())
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	_ = c.SetDeadline(time.Now().Add(time.Second))
	buf := make([]byte, 1)
	if _, err := c.Read(buf); err == nil {
		t.Fatal("expected the forwarder to close the connection")
	}
}

func TestCopyBidirectionalContextCancel(t *testing.T) {
	leftA, leftB := net.Pipe()
	rightA, rightB := net.Pipe()
	defer leftB.Close()
	defer rightB.Close()

	ctx, cancel := context.WithCancel(context.Background())

	errc := make(chan error, 1)
	go func() { errc <- CopyBidirectional(ctx, leftA, rightA) }()

	cancel()

	select {
	case err := <-errc:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("got %v want %v", err, context.Canceled)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("copy did not stop on cancel")
	}
}

func TestCopyBidirectionalEOF(t *testing.T) {
	leftA, leftB := net.Pipe()
	rightA, rightB := net.Pipe()
	defer rightB.Close()

	errc := make(chan error, 1)
	go func() { errc <- CopyBidirectional(context.Background(), leftA, rightA) }()

	go func() {
		_, _ = leftB.Write([]byte("ping"))
		_ = leftB.Close()
	}()

	buf := make([]byte, 4)
	if _, err := rightB.Read(buf); err != nil {
		t.Fatal(err)
	}
	if string(buf) != "ping" {
		t.Fatalf("got %q", buf)
	}

	select {
	case err := <-errc:
		if err != nil {
			t.Fatal(err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("copy did not finish after EOF")
	}
}

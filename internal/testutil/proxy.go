package testutil

import (
	"context"
	"io"
	"net"
	"testing"

	"github.com/die-net/socks5c/internal/socks5"
)

// SOCKS5Proxy is an in-process CONNECT-only SOCKS5 proxy on loopback.
type SOCKS5Proxy struct {
	net.Listener

	// Requests receives the target of every CONNECT request, in order.
	Requests chan socks5.Addr
}

// StartSOCKS5Proxy starts a proxy that requires auth when it is non-nil. It
// is closed when the test ends.
func StartSOCKS5Proxy(t *testing.T, ctx context.Context, auth *socks5.Auth) *SOCKS5Proxy {
	t.Helper()

	lc := net.ListenConfig{}
	ln, err := lc.Listen(ctx, "tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = ln.Close() })

	p := &SOCKS5Proxy{Listener: ln, Requests: make(chan socks5.Addr, 16)}

	go func() {
		for {
			c, err := ln.Accept()
			if err != nil {
				return
			}
			go p.handle(ctx, c, auth)
		}
	}()

	return p
}

func (p *SOCKS5Proxy) handle(ctx context.Context, c net.Conn, auth *socks5.Auth) {
	defer c.Close()

	if err := socks5.ServerNegotiate(c, auth); err != nil {
		return
	}

	cmd, addr, err := socks5.ServerReadRequest(c)
	if err != nil {
		return
	}
	select {
	case p.Requests <- addr:
	default:
	}

	if cmd != socks5.CmdConnect {
		socks5.WriteFailureReply(c, socks5.RepCommandNotSupported, socks5.ATYPIPv4)
		return
	}

	d := net.Dialer{}
	dst, err := d.DialContext(ctx, "tcp", addr.String())
	if err != nil {
		socks5.WriteFailureReply(c, socks5.RepConnectionRefused, socks5.ATYPIPv4)
		return
	}
	defer dst.Close()

	if err := socks5.WriteSuccessReply(c, dst.LocalAddr()); err != nil {
		return
	}

	go func() {
		_, _ = io.Copy(dst, c)
		_ = dst.Close()
	}()
	_, _ = io.Copy(c, dst)
}

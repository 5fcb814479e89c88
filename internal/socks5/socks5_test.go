package socks5

import (
	"errors"
	"fmt"
	"net"
	"net/netip"
	"testing"

	"golang.org/x/sync/errgroup"
)

func TestClientDialToServer(t *testing.T) {
	tests := []struct {
		name   string
		auth   *Auth
		target string
	}{
		{name: "no_auth", target: "127.0.0.1:80"},
		{name: "user_pass", auth: &Auth{Username: "user", Password: "pass"}, target: "127.0.0.1:80"},
		{name: "ipv6", target: "[2001:db8::1]:443"},
		{name: "domain", auth: &Auth{Username: "user", Password: "pass"}, target: "icanhazip.com:80"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clientConn, serverConn := net.Pipe()
			defer clientConn.Close()
			defer serverConn.Close()

			target, err := ParseAddr(tt.target)
			if err != nil {
				t.Fatal(err)
			}

			g := errgroup.Group{}
			g.Go(func() error {
				if err := ServerNegotiate(serverConn, tt.auth); err != nil {
					return err
				}

				cmd, addr, err := ServerReadRequest(serverConn)
				if err != nil {
					return err
				}
				if cmd != CmdConnect {
					return fmt.Errorf("unexpected command: %d", cmd)
				}
				if addr != target {
					return fmt.Errorf("server saw %s want %s", addr, target)
				}

				return WriteSuccessReply(serverConn, &net.TCPAddr{IP: net.ParseIP("2001:db8::2"), Port: 12345})
			})

			rep, err := ClientDial(clientConn, tt.auth, target)
			if err != nil {
				t.Fatal(err)
			}
			if err := g.Wait(); err != nil {
				t.Fatal(err)
			}
			if rep.Bound.IP != netip.MustParseAddr("2001:db8::2") || rep.Bound.Port != 12345 {
				t.Fatalf("bound %s", rep.Bound)
			}
		})
	}
}

func TestClientDialWrongPassword(t *testing.T) {
	clientConn, serverConn := net.Pipe()
	defer clientConn.Close()
	defer serverConn.Close()

	g := errgroup.Group{}
	g.Go(func() error {
		return ServerNegotiate(serverConn, &Auth{Username: "user", Password: "pass"})
	})

	target := AddrFromAddrPort(netip.MustParseAddrPort("127.0.0.1:80"))
	_, err := ClientDial(clientConn, &Auth{Username: "user", Password: "wrong"}, target)
	if !errors.Is(err, ErrAuthenticationFailed) {
		t.Fatalf("got %v want %v", err, ErrAuthenticationFailed)
	}
	if err := g.Wait(); err == nil {
		t.Fatal("server accepted a wrong password")
	}
}

func TestClientDialServerRequiresAuth(t *testing.T) {
	clientConn, serverConn := net.Pipe()
	defer clientConn.Close()
	defer serverConn.Close()

	g := errgroup.Group{}
	g.Go(func() error {
		return ServerNegotiate(serverConn, &Auth{Username: "user", Password: "pass"})
	})

	target := AddrFromAddrPort(netip.MustParseAddrPort("127.0.0.1:80"))
	_, err := ClientDial(clientConn, nil, target)
	if !errors.Is(err, ErrHandshakeFailed) {
		t.Fatalf("got %v want %v", err, ErrHandshakeFailed)
	}
	_ = g.Wait()
}

package socks5

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/netip"
	"time"

	txsocks5 "github.com/txthinking/socks5"
)

// ContextDialer opens the transport connection to the proxy.
type ContextDialer interface {
	DialContext(ctx context.Context, network, address string) (net.Conn, error)
}

// Client connects to targets through a SOCKS5 proxy. The zero value dials
// the proxy with a plain net.Dialer.
type Client struct {
	Dialer ContextDialer
}

// Connect opens a connection to target through the proxy at proxyAddr. The
// target is sent as a raw IPv4 or IPv6 address.
func Connect(ctx context.Context, proxyAddr string, target netip.AddrPort, auth *Auth) (net.Conn, error) {
	var c Client
	return c.Connect(ctx, proxyAddr, target, auth)
}

// ConnectWithDomain opens a connection to domain:port through the proxy at
// proxyAddr. The proxy resolves domain.
func ConnectWithDomain(ctx context.Context, proxyAddr, domain string, port uint16, auth *Auth) (net.Conn, error) {
	var c Client
	return c.ConnectWithDomain(ctx, proxyAddr, domain, port, auth)
}

func (c *Client) Connect(ctx context.Context, proxyAddr string, target netip.AddrPort, auth *Auth) (net.Conn, error) {
	if !target.Addr().IsValid() {
		return nil, fmt.Errorf("%w: invalid target address", ErrUnsupportedAddressType)
	}
	return c.DialAddr(ctx, proxyAddr, AddrFromAddrPort(target), auth)
}

func (c *Client) ConnectWithDomain(ctx context.Context, proxyAddr, domain string, port uint16, auth *Auth) (net.Conn, error) {
	addr, err := DomainAddr(domain, port)
	if err != nil {
		return nil, err
	}
	return c.DialAddr(ctx, proxyAddr, addr, auth)
}

// DialAddr opens a transport to proxyAddr and runs the full handshake for
// addr on it. The returned connection belongs to the caller. On error the
// transport has already been closed.
//
// The target and credentials are validated before the proxy is dialed.
func (c *Client) DialAddr(ctx context.Context, proxyAddr string, addr Addr, auth *Auth) (net.Conn, error) {
	if _, err := NewConnectRequest(addr); err != nil {
		return nil, err
	}
	if auth != nil {
		if err := auth.Validate(); err != nil {
			return nil, err
		}
	}

	d := c.Dialer
	if d == nil {
		d = &net.Dialer{}
	}

	conn, err := d.DialContext(ctx, "tcp", proxyAddr)
	if err != nil {
		return nil, transportError("dial proxy "+proxyAddr, err)
	}

	if _, err := Handshake(ctx, conn, auth, addr); err != nil {
		_ = conn.Close()
		return nil, err
	}
	return conn, nil
}

var aLongTimeAgo = time.Unix(1, 0)

// Handshake runs ClientDial on conn while honoring ctx.
//
// A deadline on ctx is applied to conn for the duration of the handshake, and
// canceling ctx interrupts any blocked read or write. Without either, the
// handshake blocks for as long as the proxy does.
func Handshake(ctx context.Context, conn net.Conn, auth *Auth, addr Addr) (*Reply, error) {
	deadline, hasDeadline := ctx.Deadline()
	if hasDeadline {
		_ = conn.SetDeadline(deadline)
	}

	stop := context.AfterFunc(ctx, func() {
		_ = conn.SetDeadline(aLongTimeAgo)
	})

	rep, err := ClientDial(conn, auth, addr)

	if !stop() {
		// The context fired; the conn deadline is no longer ours to clear.
		return nil, transportError("handshake", context.Cause(ctx))
	}
	if err != nil {
		return nil, err
	}
	if hasDeadline {
		_ = conn.SetDeadline(time.Time{})
	}
	return rep, nil
}

// ClientDial runs negotiation, optional authentication and CONNECT for addr
// on an already open transport.
func ClientDial(rw io.ReadWriter, auth *Auth, addr Addr) (*Reply, error) {
	req, err := NewConnectRequest(addr)
	if err != nil {
		return nil, err
	}
	if err := ClientNegotiate(rw, auth); err != nil {
		return nil, err
	}

	if _, err := req.WriteTo(rw); err != nil {
		return nil, transportError("write request", err)
	}
	return ReadReply(rw)
}

// ClientNegotiate sends the method greeting and handles the server's choice,
// running username/password authentication if the server selects it.
//
// Without auth only "no authentication" is offered; with auth
// username/password is offered as well.
func ClientNegotiate(rw io.ReadWriter, auth *Auth) error {
	methods := []byte{MethodNone}
	if auth != nil {
		if err := auth.Validate(); err != nil {
			return err
		}
		methods = append(methods, MethodUsernamePassword)
	}

	if _, err := txsocks5.NewNegotiationRequest(methods).WriteTo(rw); err != nil {
		return transportError("write greeting", err)
	}

	rep, err := txsocks5.NewNegotiationReplyFrom(rw)
	if errors.Is(err, txsocks5.ErrVersion) {
		return fmt.Errorf("%w: greeting reply: %w", ErrUnexpectedResponse, err)
	}
	if err != nil {
		return transportError("read greeting reply", err)
	}

	switch rep.Method {
	case MethodNone:
		return nil
	case MethodUsernamePassword:
		if auth == nil {
			return fmt.Errorf("%w: server requires username/password", ErrAuthenticationFailed)
		}
		return ClientAuthenticate(rw, auth)
	default:
		return fmt.Errorf("%w: server selected method %#04x", ErrHandshakeFailed, rep.Method)
	}
}

// ClientAuthenticate performs RFC 1929 username/password subnegotiation.
func ClientAuthenticate(rw io.ReadWriter, auth *Auth) error {
	if auth == nil {
		return fmt.Errorf("%w: no credentials configured", ErrAuthenticationFailed)
	}
	if err := auth.Validate(); err != nil {
		return err
	}

	if _, err := txsocks5.NewUserPassNegotiationRequest([]byte(auth.Username), []byte(auth.Password)).WriteTo(rw); err != nil {
		return transportError("write userpass", err)
	}

	// Some servers echo 0x05 instead of 0x01 here, so only the status counts.
	rep, err := readPair(rw, "read userpass reply")
	if err != nil {
		return err
	}
	if rep[1] != txsocks5.UserPassStatusSuccess {
		return fmt.Errorf("%w: status %#04x", ErrAuthenticationFailed, rep[1])
	}
	return nil
}

// ClientConnect sends a CONNECT request for addr and reads the reply.
func ClientConnect(rw io.ReadWriter, addr Addr) (*Reply, error) {
	req, err := NewConnectRequest(addr)
	if err != nil {
		return nil, err
	}
	if _, err := req.WriteTo(rw); err != nil {
		return nil, transportError("write request", err)
	}
	return ReadReply(rw)
}

// NewConnectRequest builds a CONNECT request for addr. Targets that can't be
// encoded fail with ErrUnsupportedAddressType.
func NewConnectRequest(addr Addr) (*txsocks5.Request, error) {
	atyp, host, port, err := addr.fields()
	if err != nil {
		return nil, err
	}
	return txsocks5.NewRequest(CmdConnect, atyp, host, port), nil
}

func readPair(r io.Reader, op string) ([2]byte, error) {
	var b [2]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return b, transportError(op, err)
	}
	return b, nil
}

package socks5

import (
	"fmt"
	"io"
	"net"
	"net/netip"
	"slices"

	txsocks5 "github.com/txthinking/socks5"
)

// The server half of the handshake. It is used by the in-process proxies
// that exercise the client in tests, and only implements what a CONNECT-only
// server needs.

// ServerNegotiate reads the greeting and, if auth is non-nil, requires and
// checks username/password credentials.
func ServerNegotiate(rw io.ReadWriter, auth *Auth) error {
	neg, err := txsocks5.NewNegotiationRequestFrom(rw)
	if err != nil {
		return fmt.Errorf("negotiation request: %w", err)
	}

	if auth != nil {
		if !slices.Contains(neg.Methods, MethodUsernamePassword) {
			writeNoAcceptableMethods(rw)
			return fmt.Errorf("client does not support username/password")
		}
		if _, err := txsocks5.NewNegotiationReply(MethodUsernamePassword).WriteTo(rw); err != nil {
			return fmt.Errorf("negotiation reply: %w", err)
		}

		urq, err := txsocks5.NewUserPassNegotiationRequestFrom(rw)
		if err != nil {
			return fmt.Errorf("read userpass: %w", err)
		}
		if string(urq.Uname) != auth.Username || string(urq.Passwd) != auth.Password {
			_, _ = txsocks5.NewUserPassNegotiationReply(txsocks5.UserPassStatusFailure).WriteTo(rw)
			return fmt.Errorf("auth failed for %q", urq.Uname)
		}
		if _, err := txsocks5.NewUserPassNegotiationReply(txsocks5.UserPassStatusSuccess).WriteTo(rw); err != nil {
			return fmt.Errorf("write userpass: %w", err)
		}
		return nil
	}

	if !slices.Contains(neg.Methods, MethodNone) {
		writeNoAcceptableMethods(rw)
		return fmt.Errorf("client does not support no-auth")
	}
	if _, err := txsocks5.NewNegotiationReply(MethodNone).WriteTo(rw); err != nil {
		return fmt.Errorf("negotiation reply: %w", err)
	}
	return nil
}

// ServerReadRequest reads a request and returns its command and target.
func ServerReadRequest(r io.Reader) (byte, Addr, error) {
	req, err := txsocks5.NewRequestFrom(r)
	if err != nil {
		return 0, Addr{}, fmt.Errorf("request: %w", err)
	}
	addr, err := ParseAddr(req.Address())
	if err != nil {
		return 0, Addr{}, fmt.Errorf("request: %w", err)
	}
	return req.Cmd, addr, nil
}

// WriteReply writes a reply with the given code and bound address.
func WriteReply(w io.Writer, code byte, bound Addr) error {
	atyp, host, port, err := bound.fields()
	if err != nil {
		return err
	}
	if _, err := txsocks5.NewReply(code, atyp, host, port).WriteTo(w); err != nil {
		return fmt.Errorf("write reply: %w", err)
	}
	return nil
}

// WriteSuccessReply writes a success reply using localAddr as the bound
// address.
func WriteSuccessReply(w io.Writer, localAddr net.Addr) error {
	bound, err := ParseAddr(localAddr.String())
	if err != nil {
		return fmt.Errorf("parse local address %q: %w", localAddr.String(), err)
	}
	return WriteReply(w, RepSuccess, bound)
}

// WriteFailureReply writes a reply with a nonzero code and a zero bound
// address of the same family as atyp.
func WriteFailureReply(w io.Writer, code, atyp byte) {
	_ = WriteReply(w, code, zeroAddr(atyp))
}

func zeroAddr(atyp byte) Addr {
	if atyp == ATYPIPv6 {
		return Addr{Type: ATYPIPv6, IP: netip.IPv6Unspecified()}
	}
	return Addr{Type: ATYPIPv4, IP: netip.IPv4Unspecified()}
}

func writeNoAcceptableMethods(w io.Writer) {
	_, _ = txsocks5.NewNegotiationReply(MethodNoAcceptable).WriteTo(w)
}

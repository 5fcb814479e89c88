package dialer

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/netip"

	"github.com/die-net/socks5c/internal/socks5"
)

// SOCKS5ProxyDialer dials outbound TCP connections through a SOCKS5 proxy
// using the CONNECT command.
//
// With remoteDNS set, hostnames are sent to the proxy as-is and resolved
// there. Otherwise they are resolved locally and the proxy only ever sees IP
// addresses.
type SOCKS5ProxyDialer struct {
	cfg       Config
	proxyAddr string
	auth      *socks5.Auth
	remoteDNS bool
	direct    Dialer
	resolver  *net.Resolver
}

// NewSOCKS5ProxyDialer constructs a SOCKS5 dialer for the proxy at proxyAddr.
// A non-nil auth enables username/password authentication.
func NewSOCKS5ProxyDialer(cfg Config, proxyAddr string, auth *socks5.Auth, remoteDNS bool) (Dialer, error) {
	if proxyAddr == "" {
		return nil, errors.New("socks5 proxy dialer: missing proxy address")
	}
	if auth != nil {
		if err := auth.Validate(); err != nil {
			return nil, fmt.Errorf("socks5 proxy dialer: %w", err)
		}
	}

	return &SOCKS5ProxyDialer{
		cfg:       cfg,
		proxyAddr: proxyAddr,
		auth:      auth,
		remoteDNS: remoteDNS,
		direct:    NewDirectDialer(cfg),
		resolver:  net.DefaultResolver,
	}, nil
}

// ProxyAddr returns the proxy host:port.
func (f *SOCKS5ProxyDialer) ProxyAddr() string {
	return f.proxyAddr
}

// DialContext establishes a TCP connection to address via the configured
// SOCKS5 proxy.
//
// The handshake is performed synchronously before returning. If
// NegotiationTimeout is set, it bounds the handshake; canceling ctx aborts
// it either way.
func (f *SOCKS5ProxyDialer) DialContext(ctx context.Context, network, address string) (net.Conn, error) {
	switch network {
	case "tcp", "tcp4", "tcp6":
	default:
		return nil, fmt.Errorf("socks5 proxy dial %s %s: unsupported network", network, address)
	}

	target, err := socks5.ParseAddr(address)
	if err != nil {
		return nil, fmt.Errorf("socks5 proxy dial %s %s: %w", network, address, err)
	}
	if target.Type == socks5.ATYPDomain && !f.remoteDNS {
		target, err = f.resolve(ctx, network, target)
		if err != nil {
			return nil, fmt.Errorf("socks5 proxy dial %s %s: %w", network, address, err)
		}
	}

	c, err := f.direct.DialContext(ctx, "tcp", f.proxyAddr)
	if err != nil {
		return nil, fmt.Errorf("socks5 proxy: %w", err)
	}

	hctx := ctx
	if f.cfg.NegotiationTimeout > 0 {
		var cancel context.CancelFunc
		hctx, cancel = context.WithTimeout(ctx, f.cfg.NegotiationTimeout)
		defer cancel()
	}

	if _, err := socks5.Handshake(hctx, c, f.auth, target); err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("socks5 proxy dial %s %s: %w", network, address, err)
	}
	return c, nil
}

func (f *SOCKS5ProxyDialer) resolve(ctx context.Context, network string, target socks5.Addr) (socks5.Addr, error) {
	if f.cfg.DialTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.cfg.DialTimeout)
		defer cancel()
	}

	ipNet := "ip"
	switch network {
	case "tcp4":
		ipNet = "ip4"
	case "tcp6":
		ipNet = "ip6"
	}

	ips, err := f.resolver.LookupNetIP(ctx, ipNet, target.Domain)
	if err != nil {
		return socks5.Addr{}, fmt.Errorf("lookup %s: %w", target.Domain, err)
	}
	if len(ips) == 0 {
		return socks5.Addr{}, fmt.Errorf("lookup %s: no addresses", target.Domain)
	}
	return socks5.AddrFromAddrPort(netip.AddrPortFrom(ips[0], target.Port)), nil
}

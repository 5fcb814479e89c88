package dialer

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"

	"github.com/die-net/socks5c/internal/socks5"
)

// Dialer mirrors the net.Dialer interface.
type Dialer interface {
	DialContext(ctx context.Context, network, address string) (net.Conn, error)
}

// New parses upstream and constructs the appropriate outbound Dialer.
//
// Supported schemes:
//   - direct://
//   - socks5://[user:pass@]host:port (target hostnames resolved locally)
//   - socks5h://[user:pass@]host:port (target hostnames resolved by the proxy)
//
// A missing port defaults to 1080.
func New(cfg Config, upstream string) (Dialer, error) {
	u, err := url.Parse(upstream)
	if err != nil {
		return nil, fmt.Errorf("invalid url: %w", err)
	}

	u.Scheme = strings.ToLower(u.Scheme)

	if u.Path != "" && u.Path != "/" {
		return nil, errors.New("invalid URL: path should be empty")
	}

	switch u.Scheme {
	case "":
		return nil, errors.New("invalid url: missing scheme")
	case "direct":
		return NewDirectDialer(cfg), nil
	case "socks5", "socks5h":
		host := u.Hostname()
		if host == "" {
			return nil, errors.New("invalid url: missing host")
		}
		if u.Port() == "" {
			u.Host = net.JoinHostPort(host, "1080")
		}

		var auth *socks5.Auth
		if u.User != nil {
			auth = &socks5.Auth{Username: u.User.Username()}
			auth.Password, _ = u.User.Password()
		}

		return NewSOCKS5ProxyDialer(cfg, u.Host, auth, u.Scheme == "socks5h")
	default:
		return nil, fmt.Errorf("invalid url scheme: %q", u.Scheme)
	}
}

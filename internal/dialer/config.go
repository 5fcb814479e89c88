package dialer

import (
	"net"
	"time"
)

type Config struct {
	// DialTimeout bounds DNS lookup and TCP connect to the proxy or target.
	DialTimeout time.Duration

	// NegotiationTimeout bounds the SOCKS5 handshake once the proxy
	// connection is open. Zero means no limit.
	NegotiationTimeout time.Duration

	KeepAlive net.KeepAliveConfig
}

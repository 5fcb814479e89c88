// Package socks5 implements the client side of the SOCKS5 handshake
// (RFC 1928) with optional username/password authentication (RFC 1929).
//
// Connect sends the target as a raw IPv4 or IPv6 address; ConnectWithDomain
// sends a domain name and lets the proxy resolve it. Both return the proxy
// connection once the proxy reports success, ready to carry the target's
// byte stream.
//
// Failures are classified by the sentinel errors in this package
// (ErrHandshakeFailed, ErrAuthenticationFailed, ErrConnectionFailed,
// ErrUnsupportedAddressType, ErrUnexpectedResponse) and by *TransportError for
// I/O failures. Nothing is retried.
//
// Protocol constants and the greeting and userpass encoders come from
// github.com/txthinking/socks5. CONNECT replies are parsed here so that
// IPv6 and domain bound addresses are read at their real length.
package socks5

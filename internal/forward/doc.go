// Package forward relays local TCP connections to a fixed target through a
// dialer, in the manner of ssh -L.
//
// Each accepted connection gets its own outbound connection, so a SOCKS5
// dialer runs one full handshake per client.
package forward

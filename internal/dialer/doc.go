// Package dialer provides outbound dialing implementations used by socks5c.
//
// Dialers implement a small interface (DialContext) and either connect
// directly or through an upstream SOCKS5 proxy, resolving target hostnames
// locally (socks5://) or on the proxy (socks5h://).
package dialer

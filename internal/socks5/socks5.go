package socks5

import (
	"fmt"

	txsocks5 "github.com/txthinking/socks5"
)

const (
	// Version is the SOCKS protocol version byte.
	Version byte = 0x05

	// UserPassVersion is the RFC 1929 subnegotiation version byte.
	UserPassVersion byte = 0x01
)

// Authentication methods.
const (
	MethodNone                  = txsocks5.MethodNone
	MethodUsernamePassword      = txsocks5.MethodUsernamePassword
	MethodNoAcceptable     byte = 0xff
)

// CmdConnect is the SOCKS5 CONNECT command value.
const CmdConnect = txsocks5.CmdConnect

// Address types.
const (
	ATYPIPv4   = txsocks5.ATYPIPv4
	ATYPDomain = txsocks5.ATYPDomain
	ATYPIPv6   = txsocks5.ATYPIPv6
)

// Reply codes, RFC 1928 section 6.
const (
	RepSuccess                  = txsocks5.RepSuccess
	RepServerFailure       byte = 0x01
	RepNotAllowed          byte = 0x02
	RepNetworkUnreachable  byte = 0x03
	RepHostUnreachable          = txsocks5.RepHostUnreachable
	RepConnectionRefused        = txsocks5.RepConnectionRefused
	RepTTLExpired          byte = 0x06
	RepCommandNotSupported      = txsocks5.RepCommandNotSupported
	RepAddressNotSupported byte = 0x08
)

// Auth configures optional username/password authentication for SOCKS5
// negotiation. A nil *Auth means no credentials are offered.
type Auth struct {
	Username string
	Password string
}

// Validate reports whether both fields fit the one-byte RFC 1929 length
// prefix. Fields that don't can't be encoded and fail with
// ErrUnsupportedAddressType.
func (a *Auth) Validate() error {
	if len(a.Username) > 255 {
		return fmt.Errorf("%w: username is %d bytes, max 255", ErrUnsupportedAddressType, len(a.Username))
	}
	if len(a.Password) > 255 {
		return fmt.Errorf("%w: password is %d bytes, max 255", ErrUnsupportedAddressType, len(a.Password))
	}
	return nil
}

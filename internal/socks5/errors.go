package socks5

import (
	"errors"
	"fmt"
)

var (
	// ErrHandshakeFailed means the server selected a method other than the
	// ones offered, including "no acceptable methods" (0xFF).
	ErrHandshakeFailed = errors.New("socks5: handshake failed")

	// ErrAuthenticationFailed means username/password subnegotiation was
	// rejected, or the server demanded it without credentials configured.
	ErrAuthenticationFailed = errors.New("socks5: authentication failed")

	// ErrConnectionFailed means the server answered CONNECT with a nonzero
	// reply code. The concrete error is a *ReplyError.
	ErrConnectionFailed = errors.New("socks5: connection failed")

	// ErrUnsupportedAddressType means a target or credential can't be encoded
	// on the wire, e.g. a domain name or username longer than 255 bytes.
	ErrUnsupportedAddressType = errors.New("socks5: unsupported address type")

	// ErrUnexpectedResponse means the server sent bytes that don't form a
	// valid reply: bad version, unknown address type, or a truncated reply.
	ErrUnexpectedResponse = errors.New("socks5: unexpected response")
)

// TransportError wraps an I/O failure on the underlying connection.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return "socks5: " + e.Op + ": " + e.Err.Error()
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// ReplyError is returned when the server rejects a CONNECT request.
// errors.Is(err, ErrConnectionFailed) reports true for it.
type ReplyError struct {
	Code byte
}

func (e *ReplyError) Error() string {
	return fmt.Sprintf("socks5: connection failed: %s", replyText(e.Code))
}

func (e *ReplyError) Is(target error) bool {
	return target == ErrConnectionFailed
}

// replyText returns the RFC 1928 description of a reply code.
func replyText(code byte) string {
	switch code {
	case RepSuccess:
		return "succeeded"
	case RepServerFailure:
		return "general SOCKS server failure"
	case RepNotAllowed:
		return "connection not allowed by ruleset"
	case RepNetworkUnreachable:
		return "network unreachable"
	case RepHostUnreachable:
		return "host unreachable"
	case RepConnectionRefused:
		return "connection refused"
	case RepTTLExpired:
		return "TTL expired"
	case RepCommandNotSupported:
		return "command not supported"
	case RepAddressNotSupported:
		return "address type not supported"
	default:
		return fmt.Sprintf("unknown reply code %#04x", code)
	}
}

func transportError(op string, err error) error {
	return &TransportError{Op: op, Err: err}
}

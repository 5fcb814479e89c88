package socks5

import (
	"errors"
	"fmt"
	"io"

	txsocks5 "github.com/txthinking/socks5"
)

// Reply is a parsed CONNECT reply.
type Reply struct {
	Code  byte
	Bound Addr
}

// ReadReply reads one CONNECT reply from r.
//
// The fixed header (VER REP RSV ATYP) is read first, then exactly as many
// address bytes as ATYP calls for, then the port. The whole reply is consumed
// before a nonzero REP is turned into a *ReplyError.
func ReadReply(r io.Reader) (*Reply, error) {
	rep, err := txsocks5.NewReplyFrom(r)
	if err != nil {
		return nil, replyReadError("read reply", err)
	}
	if rep.Rep != RepSuccess {
		return nil, &ReplyError{Code: rep.Rep}
	}

	bound, err := addrFromWire(rep.Atyp, rep.BndAddr, rep.BndPort)
	if err != nil {
		return nil, err
	}
	return &Reply{Code: rep.Rep, Bound: bound}, nil
}

// A reply that is cut short or doesn't parse is malformed rather than a
// transport failure.
func replyReadError(op string, err error) error {
	switch {
	case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
		return fmt.Errorf("%w: %s: truncated: %w", ErrUnexpectedResponse, op, err)
	case errors.Is(err, txsocks5.ErrVersion), errors.Is(err, txsocks5.ErrBadReply):
		return fmt.Errorf("%w: %s: %w", ErrUnexpectedResponse, op, err)
	}
	return transportError(op, err)
}

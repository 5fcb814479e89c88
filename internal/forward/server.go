package forward

import (
	"context"
	"fmt"
	"log"
	"net"

	"github.com/die-net/socks5c/internal/dialer"
)

// Server forwards every accepted connection to Target through Dialer.
// Connections are tied to the context given to NewServer, or to
// context.Background for a Server built as a literal.
type Server struct {
	ctx     context.Context
	Dialer  dialer.Dialer
	Target  string
	Verbose bool
}

func NewServer(ctx context.Context, d dialer.Dialer, target string, verbose bool) *Server {
	if ctx == nil {
		ctx = context.Background()
	}
	return &Server{ctx: ctx, Dialer: d, Target: target, Verbose: verbose}
}

// Serve accepts connections on ln until it fails, typically because ln was
// closed.
func (s *Server) Serve(ln net.Listener) error {
	for {
		c, err := ln.Accept()
		if err != nil {
			return fmt.Errorf("accept: %w", err)
		}
		go func() {
			if err := s.handle(c); err != nil {
				if s.Verbose {
					log.Printf("forward %s: connection error: %v", c.RemoteAddr(), err)
				}
			}
		}()
	}
}

func (s *Server) handle(conn net.Conn) error {
	defer conn.Close()

	parent := s.ctx
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	up, err := s.Dialer.DialContext(ctx, "tcp", s.Target)
	if err != nil {
		return err
	}
	defer up.Close()

	if err := CopyBidirectional(ctx, conn, up); err != nil {
		return fmt.Errorf("copy: %w", err)
	}
	return nil
}

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"github.com/die-net/socks5c/internal/dialer"
	"github.com/die-net/socks5c/internal/forward"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	var (
		upstream = pflag.String("proxy", defaultUpstream(), "Proxy URL: socks5://[user:pass@]host:port (resolve locally) | socks5h://[user:pass@]host:port (resolve on proxy) | direct://")
		listen   = pflag.String("listen", "", "Forward connections accepted on this address (e.g. 127.0.0.1:8080) to the target. Empty relays stdin/stdout instead.")

		dialTimeout        = pflag.Duration("dial-timeout", 10*time.Second, "Timeout for DNS lookup and TCP connect")
		negotiationTimeout = pflag.Duration("negotiation-timeout", 0, "Timeout for the SOCKS5 handshake. Zero waits indefinitely.")
		tcpKeepAlive       = pflag.String("tcp-keepalive", "45:45:3", "TCP keepalive: on|off|keepidle:keepintvl:keepcnt")
		verbose            = pflag.Bool("verbose", false, "Enable per-connection error logging")
	)

	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [flags] host:port\n", os.Args[0])
		pflag.PrintDefaults()
	}
	pflag.CommandLine.SortFlags = false
	pflag.Parse()

	if pflag.NArg() != 1 {
		pflag.Usage()
		return errors.New("expected exactly one target host:port")
	}
	target := pflag.Arg(0)
	if _, _, err := net.SplitHostPort(target); err != nil {
		return fmt.Errorf("invalid target: %w", err)
	}

	ka, err := parseTCPKeepAlive(*tcpKeepAlive)
	if err != nil {
		return fmt.Errorf("invalid --tcp-keepalive: %w", err)
	}

	d, err := dialer.New(dialer.Config{
		DialTimeout:        *dialTimeout,
		NegotiationTimeout: *negotiationTimeout,
		KeepAlive:          ka,
	}, *upstream)
	if err != nil {
		return fmt.Errorf("invalid --proxy: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *listen == "" {
		return relayStdio(ctx, d, target)
	}

	g, ctx := errgroup.WithContext(ctx)

	ln, err := forward.ListenTCP(ctx, "tcp", *listen, ka)
	if err != nil {
		return fmt.Errorf("forward listen: %w", err)
	}
	srv := forward.NewServer(ctx, d, target, *verbose)
	context.AfterFunc(ctx, func() {
		_ = ln.Close()
	})

	g.Go(func() error {
		if err := srv.Serve(ln); err != nil && ctx.Err() == nil {
			return fmt.Errorf("forward serve: %w", err)
		}
		return nil
	})
	log.Printf("forwarding %s to %s", ln.Addr(), target)

	err = g.Wait()

	log.Print("shutting down")
	return err
}

// relayStdio connects to target and copies stdin to it and its output to
// stdout, until the target closes its side.
func relayStdio(ctx context.Context, d dialer.Dialer, target string) error {
	conn, err := d.DialContext(ctx, "tcp", target)
	if err != nil {
		return err
	}
	defer conn.Close()

	context.AfterFunc(ctx, func() {
		_ = conn.Close()
	})

	// Stdin may block forever, so its copy isn't waited for.
	go func() {
		if _, err := io.Copy(conn, os.Stdin); err == nil {
			if cw, ok := conn.(interface{ CloseWrite() error }); ok {
				_ = cw.CloseWrite()
			}
		}
	}()

	if _, err := io.Copy(os.Stdout, conn); err != nil && ctx.Err() == nil {
		return fmt.Errorf("relay: %w", err)
	}
	return nil
}

func parseTCPKeepAlive(s string) (net.KeepAliveConfig, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	if s == "" {
		return net.KeepAliveConfig{}, errors.New("empty")
	}
	if s == "on" {
		return net.KeepAliveConfig{Enable: true}, nil
	}
	if s == "off" {
		return net.KeepAliveConfig{Enable: false}, nil
	}

	parts := strings.Split(s, ":")
	if len(parts) != 3 {
		return net.KeepAliveConfig{}, errors.New("expected on|off|keepidle:keepintvl:keepcnt")
	}
	keepIdle, err := parsePositiveSeconds(parts[0])
	if err != nil {
		return net.KeepAliveConfig{}, fmt.Errorf("keepidle: %w", err)
	}
	keepIntvl, err := parsePositiveSeconds(parts[1])
	if err != nil {
		return net.KeepAliveConfig{}, fmt.Errorf("keepintvl: %w", err)
	}
	keepCnt, err := parsePositiveInt(parts[2])
	if err != nil {
		return net.KeepAliveConfig{}, fmt.Errorf("keepcnt: %w", err)
	}

	return net.KeepAliveConfig{
		Enable:   true,
		Idle:     keepIdle,
		Interval: keepIntvl,
		Count:    keepCnt,
	}, nil
}

func parsePositiveSeconds(s string) (time.Duration, error) {
	n, err := parsePositiveInt(s)
	if err != nil {
		return 0, err
	}
	return time.Duration(n) * time.Second, nil
}

func parsePositiveInt(s string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, err
	}
	if n <= 0 {
		return 0, errors.New("must be > 0")
	}
	return n, nil
}

func defaultUpstream() string {
	if p := os.Getenv("ALL_PROXY"); p != "" {
		return p
	}

	if p := os.Getenv("all_proxy"); p != "" {
		return p
	}

	return "socks5h://127.0.0.1:1080"
}

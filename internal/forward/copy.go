package forward

import (
	"context"
	"errors"
	"io"
	"net"
	"sync"

	"golang.org/x/sync/errgroup"
)

// CopyBidirectional copies between left and right until both directions
// finish, either side fails, or ctx is canceled. Both connections are closed
// on return.
//
// EOF in one direction half-closes the other side when it supports
// CloseWrite, and closes both sides when it doesn't.
func CopyBidirectional(ctx context.Context, left, right net.Conn) error {
	g, gctx := errgroup.WithContext(ctx)

	var closeOnce sync.Once
	closeBoth := func() {
		closeOnce.Do(func() {
			_ = left.Close()
			_ = right.Close()
		})
	}
	defer closeBoth()

	// If the context is canceled or one direction fails, close both sides to
	// unblock the other Copy.
	stop := context.AfterFunc(gctx, closeBoth)
	defer stop()

	copyHalf := func(dst, src net.Conn) error {
		if _, err := io.Copy(dst, src); err != nil {
			return err
		}
		if cw, ok := dst.(interface{ CloseWrite() error }); ok {
			_ = cw.CloseWrite()
		} else {
			closeBoth()
		}
		return nil
	}

	g.Go(func() error {
		return copyHalf(left, right)
	})

	g.Go(func() error {
		return copyHalf(right, left)
	})

	err := g.Wait()
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if errors.Is(err, net.ErrClosed) || errors.Is(err, io.ErrClosedPipe) {
		return nil
	}
	return err
}

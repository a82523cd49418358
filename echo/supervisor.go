package echo

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/NetPo4ki/go-echo/scope"
)

const minAcceptBackoff = 5 * time.Millisecond

// Supervisor drives a Listener and runs a Handler for every connection in a
// scope with the Supervisor policy. Handler errors and panics stay inside
// their own task; the accept loop only stops when the listener is closed.
type Supervisor struct {
	l    *Listener
	h    *Handler
	opts options
	log  *zap.Logger
}

func NewSupervisor(l *Listener, optFns ...Option) *Supervisor {
	o := buildOptions(optFns)
	return &Supervisor{l: l, h: newHandler(o), opts: o, log: o.logger}
}

// Serve accepts until the listener is closed or ctx is cancelled, then waits
// for the handlers still running. Cancelling ctx also closes every in-flight
// connection; closing the listener alone lets them finish.
func (s *Supervisor) Serve(ctx context.Context) error {
	sc := scope.New(ctx, scope.Supervisor,
		scope.WithObserver(s.opts.observer),
		scope.WithMaxConcurrency(s.opts.maxConns),
	)
	stop := context.AfterFunc(ctx, func() { _ = s.l.Close() })
	defer stop()

	var delay time.Duration
	for {
		conn, err := s.l.Accept()
		if err != nil {
			if errors.Is(err, ErrListenerClosed) {
				break
			}
			s.log.Warn(fmt.Sprintf("accept err %v", acceptDetail(err)), zap.Error(err))
			s.opts.recorder.AcceptFailed(err)
			delay = s.backoff(ctx, delay)
			continue
		}
		delay = 0
		s.dispatch(sc, conn)
	}

	// Handler failures are already logged and recorded per connection.
	_ = sc.Wait()
	sc.Cancel(nil)
	return nil
}

func (s *Supervisor) dispatch(sc *scope.Scope, conn net.Conn) {
	id := uuid.New()
	peer := peerOf(conn)
	s.log.Info("Accepted connection from "+peer, zap.String("peer", peer), zap.Stringer("conn_id", id))
	s.opts.recorder.ConnectionAccepted()

	// Covers connections whose task never starts because the scope was
	// cancelled while it waited for a slot.
	release := context.AfterFunc(sc.Context(), func() { _ = conn.Close() })
	sc.Go(func(ctx context.Context) error {
		defer release()
		return s.h.Run(ContextWithConnID(ctx, id), conn).Err
	})
}

func (s *Supervisor) backoff(ctx context.Context, prev time.Duration) time.Duration {
	if s.opts.acceptBackoff <= 0 {
		return 0
	}
	next := prev * 2
	if next < minAcceptBackoff {
		next = minAcceptBackoff
	}
	if next > s.opts.acceptBackoff {
		next = s.opts.acceptBackoff
	}
	t := time.NewTimer(next)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
	return next
}

func acceptDetail(err error) error {
	var ae *AcceptError
	if errors.As(err, &ae) {
		return ae.Err
	}
	return err
}

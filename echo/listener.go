package echo

import (
	"context"
	"errors"
	"net"
	"sync"
	"sync/atomic"
)

// Listener owns a bound socket and hands out the connections it accepts.
// Each accepted connection is returned exactly once.
type Listener struct {
	ln     net.Listener
	closed atomic.Bool
	once   sync.Once
	err    error
}

// Bind validates address as host:port and starts listening on it over TCP.
func Bind(ctx context.Context, address string) (*Listener, error) {
	if _, _, err := net.SplitHostPort(address); err != nil {
		return nil, &BindError{Addr: address, Err: err}
	}
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", address)
	if err != nil {
		return nil, &BindError{Addr: address, Err: err}
	}
	return NewListener(ln), nil
}

// NewListener wraps an already bound net.Listener.
func NewListener(ln net.Listener) *Listener {
	return &Listener{ln: ln}
}

// Accept blocks until a peer connects. A failure of the underlying transport
// is returned as *AcceptError and the next call proceeds normally; after
// Close, Accept returns ErrListenerClosed.
func (l *Listener) Accept() (net.Conn, error) {
	conn, err := l.ln.Accept()
	if err == nil {
		return conn, nil
	}
	if l.closed.Load() || errors.Is(err, net.ErrClosed) {
		return nil, ErrListenerClosed
	}
	return nil, &AcceptError{Err: err}
}

func (l *Listener) Addr() net.Addr { return l.ln.Addr() }

// Close stops the listener. Connections already accepted are unaffected.
func (l *Listener) Close() error {
	l.once.Do(func() {
		l.closed.Store(true)
		l.err = l.ln.Close()
	})
	return l.err
}

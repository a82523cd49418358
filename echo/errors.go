package echo

import (
	"errors"
	"fmt"
	"net"
)

// ErrListenerClosed is returned by Listener.Accept once the listener has been
// closed. It is the only condition that ends the accept sequence.
var ErrListenerClosed = fmt.Errorf("echo: listener closed: %w", net.ErrClosed)

// BindError reports that the listen address was malformed or could not be
// bound. It is fatal to startup.
type BindError struct {
	Addr string
	Err  error
}

func (e *BindError) Error() string { return fmt.Sprintf("bind %s: %v", e.Addr, e.Err) }

func (e *BindError) Unwrap() error { return e.Err }

// AcceptError is a transient accept failure. The listener stays usable.
type AcceptError struct {
	Err error
}

func (e *AcceptError) Error() string { return fmt.Sprintf("accept: %v", e.Err) }

func (e *AcceptError) Unwrap() error { return e.Err }

// IsBindError reports whether err, or any error it wraps, is a *BindError.
func IsBindError(err error) bool {
	var be *BindError
	return errors.As(err, &be)
}

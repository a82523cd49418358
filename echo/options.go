package echo

import (
	"time"

	"go.uber.org/zap"

	"github.com/NetPo4ki/go-echo/scope"
)

// DefaultBufferSize is the largest chunk a handler reads before echoing it.
const DefaultBufferSize = 4096

type Option func(*options)

type options struct {
	logger        *zap.Logger
	recorder      Recorder
	observer      scope.Observer
	maxConns      int
	bufferSize    int
	acceptBackoff time.Duration
}

func defaultOptions() options {
	return options{
		logger:     zap.NewNop(),
		recorder:   nopRecorder{},
		bufferSize: DefaultBufferSize,
	}
}

func buildOptions(optFns []Option) options {
	o := defaultOptions()
	for _, fn := range optFns {
		fn(&o)
	}
	return o
}

func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

func WithRecorder(r Recorder) Option {
	return func(o *options) {
		if r != nil {
			o.recorder = r
		}
	}
}

// WithObserver attaches a scope observer to the supervisor's handler scope.
func WithObserver(obs scope.Observer) Option { return func(o *options) { o.observer = obs } }

// WithMaxConnections caps the number of handlers relaying at once. Accepted
// connections beyond the cap wait for a free slot. Zero means unbounded.
func WithMaxConnections(n int) Option { return func(o *options) { o.maxConns = n } }

func WithBufferSize(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.bufferSize = n
		}
	}
}

// WithAcceptBackoff enables an exponential delay between consecutive accept
// failures, starting at 5ms and capped at max. Zero disables it.
func WithAcceptBackoff(max time.Duration) Option {
	return func(o *options) { o.acceptBackoff = max }
}

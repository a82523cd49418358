package scope

// Policy decides what a Scope does when one of its tasks fails.
type Policy int

const (
	// FailFast cancels the scope, and with it every sibling, on the first error.
	FailFast Policy = iota
	// Supervisor records the first error but lets the remaining tasks run.
	Supervisor
)

func (p Policy) String() string {
	switch p {
	case FailFast:
		return "fail-fast"
	case Supervisor:
		return "supervisor"
	default:
		return "unknown"
	}
}

type Option func(*Options)

type Options struct {
	PanicAsError   bool
	Observer       Observer
	MaxConcurrency int
}

func defaultOptions() Options { return Options{PanicAsError: true} }

// WithPanicAsError controls whether a panicking task is recovered and
// reported as an error (the default) or re-panicked.
func WithPanicAsError(v bool) Option { return func(o *Options) { o.PanicAsError = v } }

func WithObserver(obs Observer) Option { return func(o *Options) { o.Observer = obs } }

// WithMaxConcurrency bounds the number of tasks running at once. Zero or a
// negative value means unbounded.
func WithMaxConcurrency(n int) Option { return func(o *Options) { o.MaxConcurrency = n } }

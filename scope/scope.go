package scope

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"time"
)

// PanicError is the error a task's panic is converted into when the scope
// runs with PanicAsError.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string { return fmt.Sprintf("panic: %v", e.Value) }

// Scope owns a group of tasks. Tasks share the scope's context, which is
// cancelled by Cancel, by the parent context, or by the first failure when
// the policy is FailFast.
type Scope struct {
	ctx      context.Context
	cancel   context.CancelFunc
	policy   Policy
	wg       sync.WaitGroup
	mu       sync.Mutex
	firstErr error
	canceled bool

	opts Options
	obs  Observer
	lim  Limiter
}

func New(parent context.Context, policy Policy, optFns ...Option) *Scope {
	if parent == nil {
		parent = context.Background()
	}
	opts := defaultOptions()
	for _, fn := range optFns {
		fn(&opts)
	}
	return newScope(parent, policy, opts)
}

func newScope(parent context.Context, policy Policy, opts Options) *Scope {
	ctx, cancel := context.WithCancel(parent)
	s := &Scope{ctx: ctx, cancel: cancel, policy: policy, opts: opts, obs: opts.Observer}
	if opts.MaxConcurrency > 0 {
		s.lim = newSemaphoreLimiter(opts.MaxConcurrency)
	}
	if s.obs != nil {
		s.obs.ScopeCreated(ctx)
	}
	return s
}

func (s *Scope) Context() context.Context { return s.ctx }

func (s *Scope) Policy() Policy { return s.policy }

// Go starts fn in its own goroutine. The scope does not wait for the
// limiter before returning, so Go never blocks the caller.
func (s *Scope) Go(fn func(ctx context.Context) error) {
	if fn == nil {
		return
	}
	s.wg.Add(1)
	go s.run(fn)
}

func (s *Scope) run(fn func(ctx context.Context) error) {
	defer s.wg.Done()
	if s.lim != nil {
		if err := s.lim.Acquire(s.ctx); err != nil {
			s.fail(err)
			return
		}
		defer s.lim.Release()
	}

	start := time.Now()
	if s.obs != nil {
		s.obs.TaskStarted(s.ctx)
	}
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		if !s.opts.PanicAsError {
			s.finished(start, nil, true)
			panic(r)
		}
		err := &PanicError{Value: r, Stack: debug.Stack()}
		s.fail(err)
		s.finished(start, err, true)
	}()

	err := fn(s.ctx)
	if err != nil {
		s.fail(err)
	}
	s.finished(start, err, false)
}

func (s *Scope) finished(start time.Time, err error, panicked bool) {
	if s.obs != nil {
		s.obs.TaskFinished(s.ctx, time.Since(start), err, panicked)
	}
}

// Cancel cancels the scope's context. The first non-nil err passed to Cancel
// or produced by a task becomes the result of Wait. Cancel is idempotent.
func (s *Scope) Cancel(err error) {
	s.mu.Lock()
	wasCanceled := s.canceled
	s.canceled = true
	if s.firstErr == nil && err != nil {
		s.firstErr = err
	}
	cause := s.firstErr
	s.mu.Unlock()

	s.cancel()
	if !wasCanceled && s.obs != nil {
		s.obs.ScopeCancelled(s.ctx, cause)
	}
}

// Wait blocks until every task started with Go has returned and reports the
// first error. It may be called more than once.
func (s *Scope) Wait() error {
	start := time.Now()
	s.wg.Wait()
	if s.obs != nil {
		s.obs.ScopeJoined(s.ctx, time.Since(start))
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.firstErr
}

// Err returns the first recorded error without waiting.
func (s *Scope) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.firstErr
}

func (s *Scope) fail(err error) {
	if err == nil {
		return
	}
	s.mu.Lock()
	if s.firstErr == nil {
		s.firstErr = err
	}
	shouldCancel := s.policy == FailFast
	cause := s.firstErr
	s.mu.Unlock()
	if shouldCancel {
		s.Cancel(cause)
	}
}

// Child returns a scope whose context derives from s. Options not overridden
// by optFns are inherited; the child gets its own limiter.
func (s *Scope) Child(policy Policy, optFns ...Option) *Scope {
	childOpts := s.opts
	for _, fn := range optFns {
		fn(&childOpts)
	}
	return newScope(s.ctx, policy, childOpts)
}

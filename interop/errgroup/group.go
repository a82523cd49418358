// Package errgroup offers the golang.org/x/sync/errgroup calling convention
// on top of a FailFast scope, so long-running services (the echo listener,
// the metrics endpoint) can be started together and stopped together while
// still reporting through the scope observers.
package errgroup

import (
	"context"

	"github.com/NetPo4ki/go-echo/scope"
)

// Group is an errgroup-like wrapper over scope.Scope (FailFast).
type Group struct {
	s *scope.Scope
}

// WithContext creates a Group bound to ctx. The returned context is cancelled
// when any function passed to Go returns a non-nil error, or when the parent
// is cancelled.
func WithContext(ctx context.Context, opts ...scope.Option) (*Group, context.Context) {
	s := scope.New(ctx, scope.FailFast, opts...)
	return &Group{s: s}, s.Context()
}

// Go starts a function. It should return a non-nil error to signal failure.
func (g *Group) Go(f func() error) {
	if f == nil {
		return
	}
	g.s.Go(func(context.Context) error {
		return f()
	})
}

// Wait blocks until all functions have returned and returns the first
// non-nil error. The group's context is cancelled once Wait returns.
func (g *Group) Wait() error {
	err := g.s.Wait()
	g.s.Cancel(nil)
	return err
}

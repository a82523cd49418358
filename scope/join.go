package scope

import "context"

// Join runs fa and fb concurrently and returns once both have finished.
// Neither unit is cancelled when the other fails; the first error observed
// is returned alongside whatever values the units produced.
func Join[A, B any](ctx context.Context, fa func(context.Context) (A, error), fb func(context.Context) (B, error), optFns ...Option) (A, B, error) {
	var (
		a A
		b B
	)
	s := New(ctx, Supervisor, optFns...)
	s.Go(func(ctx context.Context) error {
		v, err := fa(ctx)
		a = v
		return err
	})
	s.Go(func(ctx context.Context) error {
		v, err := fb(ctx)
		b = v
		return err
	})
	err := s.Wait()
	s.cancel()
	return a, b, err
}

// JoinAll is the n-ary form of Join for units that produce no value.
func JoinAll(ctx context.Context, fns ...func(context.Context) error) error {
	s := New(ctx, Supervisor)
	for _, fn := range fns {
		s.Go(fn)
	}
	err := s.Wait()
	s.cancel()
	return err
}

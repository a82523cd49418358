package errgroup

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/goleak"
	xerrgroup "golang.org/x/sync/errgroup"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestWithContextHappy(t *testing.T) {
	t.Parallel()
	g, gctx := WithContext(context.Background())
	g.Go(func() error { return nil })
	g.Go(func() error { time.Sleep(10 * time.Millisecond); return nil })
	g.Go(nil)
	if err := g.Wait(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gctx.Err() == nil {
		t.Fatal("group context should be cancelled after Wait")
	}
}

func TestWithContextErrorCancels(t *testing.T) {
	t.Parallel()
	g, gctx := WithContext(context.Background())
	boom := errors.New("boom")
	g.Go(func() error { return boom })
	g.Go(func() error {
		select {
		case <-gctx.Done():
			return nil
		case <-time.After(2 * time.Second):
			return errors.New("expected cancel propagation")
		}
	})
	if err := g.Wait(); !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
}

func TestWithContextParentDeadline(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	g, gctx := WithContext(ctx)
	g.Go(func() error {
		<-gctx.Done()
		return gctx.Err()
	})
	if err := g.Wait(); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected DeadlineExceeded, got %v", err)
	}
}

// The adapter must agree with x/sync/errgroup on which error Wait reports
// and on cancelling the derived context.
func TestParityWithXSyncErrgroup(t *testing.T) {
	t.Parallel()
	first := errors.New("first")
	run := func(goFn func(func() error), gctx context.Context, wait func() error) (error, bool) {
		goFn(func() error { return first })
		goFn(func() error {
			<-gctx.Done()
			return errors.New("second")
		})
		err := wait()
		return err, gctx.Err() != nil
	}

	ours, octx := WithContext(context.Background())
	oursErr, oursCancelled := run(ours.Go, octx, ours.Wait)

	theirs, tctx := xerrgroup.WithContext(context.Background())
	theirsErr, theirsCancelled := run(theirs.Go, tctx, theirs.Wait)

	if !errors.Is(oursErr, first) || !errors.Is(theirsErr, first) {
		t.Fatalf("wait errors differ: ours=%v theirs=%v", oursErr, theirsErr)
	}
	if oursCancelled != theirsCancelled {
		t.Fatalf("context cancellation differs: ours=%v theirs=%v", oursCancelled, theirsCancelled)
	}
}

package scope

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

// trackPeak records the highest value cur reaches.
func trackPeak(cur, peak *atomic.Int64) func() {
	c := cur.Add(1)
	for {
		m := peak.Load()
		if c <= m || peak.CompareAndSwap(m, c) {
			break
		}
	}
	return func() { cur.Add(-1) }
}

func TestMaxConcurrencyBound(t *testing.T) {
	t.Parallel()
	const limit = 4
	const tasks = 40
	s := New(context.Background(), Supervisor, WithMaxConcurrency(limit))
	var cur, peak atomic.Int64
	for i := 0; i < tasks; i++ {
		s.Go(func(ctx context.Context) error {
			defer trackPeak(&cur, &peak)()
			time.Sleep(2 * time.Millisecond)
			return nil
		})
	}
	if err := s.Wait(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if observed := peak.Load(); observed > limit {
		t.Fatalf("observed concurrency %d exceeds limit %d", observed, limit)
	}
}

func TestUnboundedByDefault(t *testing.T) {
	t.Parallel()
	const tasks = 16
	s := New(context.Background(), Supervisor)
	release := make(chan struct{})
	var running atomic.Int64
	for i := 0; i < tasks; i++ {
		s.Go(func(_ context.Context) error {
			running.Add(1)
			<-release
			return nil
		})
	}
	deadline := time.Now().Add(2 * time.Second)
	for running.Load() < tasks && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	close(release)
	_ = s.Wait()
	if got := running.Load(); got != tasks {
		t.Fatalf("expected all %d tasks to run concurrently, got %d", tasks, got)
	}
}

func TestLimiterAcquireRespectsCancel(t *testing.T) {
	t.Parallel()
	s := New(context.Background(), Supervisor, WithMaxConcurrency(1))
	block := make(chan struct{})
	s.Go(func(_ context.Context) error {
		<-block
		return nil
	})
	var ran atomic.Bool
	s.Go(func(_ context.Context) error {
		ran.Store(true)
		return nil
	})
	time.Sleep(10 * time.Millisecond)
	start := time.Now()
	s.Cancel(nil)
	close(block)
	err := s.Wait()
	if elapsed := time.Since(start); elapsed > 300*time.Millisecond {
		t.Fatalf("expected quick abort on cancel, got %v", elapsed)
	}
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected the blocked acquire to fail with context.Canceled, got %v", err)
	}
	if ran.Load() {
		t.Fatal("queued task should not run after cancellation")
	}
}

func TestChildMaxConcurrencyBound(t *testing.T) {
	t.Parallel()
	parent := New(context.Background(), Supervisor)
	child := parent.Child(Supervisor, WithMaxConcurrency(1))
	var cur, peak atomic.Int64
	for i := 0; i < 5; i++ {
		child.Go(func(_ context.Context) error {
			defer trackPeak(&cur, &peak)()
			time.Sleep(3 * time.Millisecond)
			return nil
		})
	}
	_ = child.Wait()
	_ = parent.Wait()
	if observed := peak.Load(); observed > 1 {
		t.Fatalf("child observed concurrency %d exceeds limit 1", observed)
	}
}

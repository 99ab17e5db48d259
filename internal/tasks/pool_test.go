package tasks

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/desertthunder/tunesync/internal/shared"
)

func TestPool(t *testing.T) {
	t.Run("runs every submitted task", func(t *testing.T) {
		pool := NewPool(3, 2, time.Millisecond)
		var ran atomic.Int32

		for range 20 {
			if err := pool.Submit(context.Background(), func(context.Context) { ran.Add(1) }); err != nil {
				t.Fatalf("Submit() error = %v", err)
			}
		}
		if err := pool.Shutdown(context.Background(), time.Second); err != nil {
			t.Fatalf("Shutdown() error = %v", err)
		}
		if got := ran.Load(); got != 20 {
			t.Errorf("ran %d tasks, want 20", got)
		}
	})

	t.Run("shutdown before first submit", func(t *testing.T) {
		pool := NewPool(2, 2, time.Millisecond)
		if err := pool.Shutdown(context.Background(), time.Second); err != nil {
			t.Fatalf("Shutdown() error = %v", err)
		}
		err := pool.Submit(context.Background(), func(context.Context) {})
		if !errors.Is(err, ErrPoolClosed) {
			t.Errorf("Submit() after Shutdown error = %v, want ErrPoolClosed", err)
		}
	})

	t.Run("submit blocks while the queue is full", func(t *testing.T) {
		pool := NewPool(1, 1, 5*time.Millisecond)
		started := make(chan struct{})
		release := make(chan struct{})
		var ran atomic.Int32

		blocking := func(context.Context) {
			close(started)
			<-release
			ran.Add(1)
		}
		counting := func(context.Context) { ran.Add(1) }

		if err := pool.Submit(context.Background(), blocking); err != nil {
			t.Fatalf("Submit() error = %v", err)
		}
		<-started
		if err := pool.Submit(context.Background(), counting); err != nil {
			t.Fatalf("Submit() error = %v", err)
		}

		done := make(chan error, 1)
		go func() { done <- pool.Submit(context.Background(), counting) }()

		select {
		case err := <-done:
			t.Fatalf("Submit() returned %v while the queue was full", err)
		case <-time.After(50 * time.Millisecond):
		}

		close(release)
		select {
		case err := <-done:
			if err != nil {
				t.Fatalf("Submit() error = %v", err)
			}
		case <-time.After(time.Second):
			t.Fatal("Submit() still blocked after the queue drained")
		}

		if err := pool.Shutdown(context.Background(), time.Second); err != nil {
			t.Fatalf("Shutdown() error = %v", err)
		}
		if got := ran.Load(); got != 3 {
			t.Errorf("ran %d tasks, want 3", got)
		}
	})

	t.Run("blocked submit gives up on cancellation", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		pool := NewPool(1, 1, 5*time.Millisecond)
		started := make(chan struct{})
		release := make(chan struct{})

		pool.Submit(ctx, func(context.Context) {
			close(started)
			<-release
		})
		<-started
		pool.Submit(ctx, func(context.Context) {})

		done := make(chan error, 1)
		go func() { done <- pool.Submit(ctx, func(context.Context) {}) }()
		time.Sleep(20 * time.Millisecond)
		cancel()

		select {
		case err := <-done:
			if !errors.Is(err, shared.ErrCancelled) {
				t.Errorf("Submit() error = %v, want ErrCancelled", err)
			}
		case <-time.After(time.Second):
			t.Fatal("Submit() ignored cancellation")
		}

		close(release)
		pool.Shutdown(context.Background(), time.Second)
	})

	t.Run("drain timeout forces running tasks down", func(t *testing.T) {
		pool := NewPool(1, 1, time.Millisecond)
		var sawCancel atomic.Bool

		pool.Submit(context.Background(), func(ctx context.Context) {
			<-ctx.Done()
			sawCancel.Store(true)
		})

		err := pool.Shutdown(context.Background(), 20*time.Millisecond)
		if !errors.Is(err, shared.ErrTimeout) {
			t.Errorf("Shutdown() error = %v, want ErrTimeout", err)
		}
		if !sawCancel.Load() {
			t.Error("running task was not cancelled")
		}
	})

	t.Run("cancelled context skips the drain", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		pool := NewPool(1, 1, time.Millisecond)

		pool.Submit(ctx, func(ctx context.Context) { <-ctx.Done() })
		cancel()

		start := time.Now()
		err := pool.Shutdown(ctx, time.Minute)
		if !errors.Is(err, shared.ErrCancelled) {
			t.Errorf("Shutdown() error = %v, want ErrCancelled", err)
		}
		if elapsed := time.Since(start); elapsed > time.Second {
			t.Errorf("Shutdown() took %s after cancellation", elapsed)
		}
	})

	t.Run("second shutdown is a no-op", func(t *testing.T) {
		pool := NewPool(1, 1, time.Millisecond)
		pool.Submit(context.Background(), func(context.Context) {})
		if err := pool.Shutdown(context.Background(), time.Second); err != nil {
			t.Fatalf("Shutdown() error = %v", err)
		}
		if err := pool.Shutdown(context.Background(), time.Second); err != nil {
			t.Errorf("second Shutdown() error = %v", err)
		}
	})
}

package library

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestPacer(t *testing.T) {
	t.Run("N calls take at least (N-1) intervals", func(t *testing.T) {
		const (
			n        = 4
			interval = 50 * time.Millisecond
		)
		p := NewPacer(interval)
		ctx := context.Background()

		start := time.Now()
		for i := 0; i < n; i++ {
			if err := p.Wait(ctx); err != nil {
				t.Fatalf("Wait() error = %v", err)
			}
		}
		if elapsed := time.Since(start); elapsed < (n-1)*interval-5*time.Millisecond {
			t.Errorf("expected at least %v, took %v", (n-1)*interval, elapsed)
		}
	})

	t.Run("concurrent callers share one clock", func(t *testing.T) {
		const interval = 30 * time.Millisecond
		p := NewPacer(interval)

		var wg sync.WaitGroup
		start := time.Now()
		for i := 0; i < 4; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_ = p.Wait(context.Background())
			}()
		}
		wg.Wait()

		if elapsed := time.Since(start); elapsed < 3*interval-5*time.Millisecond {
			t.Errorf("expected callers to serialize, took %v", elapsed)
		}
	})

	t.Run("zero interval never blocks", func(t *testing.T) {
		p := NewPacer(0)
		start := time.Now()
		for i := 0; i < 100; i++ {
			_ = p.Wait(context.Background())
		}
		if time.Since(start) > 50*time.Millisecond {
			t.Error("zero interval pacer blocked")
		}
	})

	t.Run("cancelled context", func(t *testing.T) {
		p := NewPacer(time.Hour)
		_ = p.Wait(context.Background())

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		if err := p.Wait(ctx); err == nil {
			t.Error("expected error from cancelled context")
		}
	})
}

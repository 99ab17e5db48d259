package tasks

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/desertthunder/tunesync/internal/shared"
)

// ErrPoolClosed is returned by [Pool.Submit] after [Pool.Shutdown].
var ErrPoolClosed = errors.New("worker pool closed")

// Task is a unit of work run by a [Pool]. The context is cancelled when the pool is forced down.
type Task func(ctx context.Context)

// Pool runs tasks on a fixed number of workers fed from a bounded queue.
//
// Workers start on the first [Pool.Submit]. A full queue makes Submit sleep and retry rather than
// drop the task or grow the queue. A pool serves a single target and is not reused after Shutdown.
type Pool struct {
	workers int
	backoff time.Duration
	queue   chan Task

	mu      sync.RWMutex
	started bool
	closed  bool

	wg     sync.WaitGroup
	runCtx context.Context
	cancel context.CancelFunc
}

// NewPool creates a pool of workers goroutines with room for queueSize pending tasks.
func NewPool(workers, queueSize int, backoff time.Duration) *Pool {
	if workers <= 0 {
		workers = 1
	}
	if queueSize <= 0 {
		queueSize = workers
	}
	if backoff <= 0 {
		backoff = 50 * time.Millisecond
	}
	return &Pool{workers: workers, backoff: backoff, queue: make(chan Task, queueSize)}
}

// start launches the workers under a context derived from ctx. Callers hold mu.
func (p *Pool) start(ctx context.Context) {
	p.runCtx, p.cancel = context.WithCancel(ctx)
	for range p.workers {
		p.wg.Add(1)
		go p.work()
	}
	p.started = true
}

func (p *Pool) work() {
	defer p.wg.Done()
	for task := range p.queue {
		task(p.runCtx)
	}
}

// Submit enqueues task, blocking in backoff steps while the queue is full.
// It fails with [shared.ErrCancelled] when ctx is done and with [ErrPoolClosed] after Shutdown.
func (p *Pool) Submit(ctx context.Context, task Task) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return ErrPoolClosed
	}
	if !p.started {
		p.start(ctx)
	}
	p.mu.Unlock()

	for {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("%w: %w", shared.ErrCancelled, err)
		}
		if ok, err := p.trySubmit(task); ok || err != nil {
			return err
		}

		timer := time.NewTimer(p.backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("%w: %w", shared.ErrCancelled, ctx.Err())
		case <-timer.C:
		}
	}
}

func (p *Pool) trySubmit(task Task) (bool, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return false, ErrPoolClosed
	}
	select {
	case p.queue <- task:
		return true, nil
	default:
		return false, nil
	}
}

// Shutdown stops accepting tasks and waits up to timeout for queued and running tasks to finish.
// On timeout, or at once when ctx is already done, running tasks are cancelled and Shutdown waits for
// them to return. An interrupted wait yields [shared.ErrCancelled], an expired one [shared.ErrTimeout].
func (p *Pool) Shutdown(ctx context.Context, timeout time.Duration) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	close(p.queue)
	started := p.started
	p.mu.Unlock()

	if !started {
		return nil
	}

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	force := func() {
		p.cancel()
		<-done
	}

	if err := ctx.Err(); err != nil {
		force()
		return fmt.Errorf("%w: %w", shared.ErrCancelled, err)
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-done:
		p.cancel()
		return nil
	case <-ctx.Done():
		force()
		return fmt.Errorf("%w: %w", shared.ErrCancelled, ctx.Err())
	case <-timer.C:
		force()
		return fmt.Errorf("%w: pool did not drain within %s", shared.ErrTimeout, timeout)
	}
}

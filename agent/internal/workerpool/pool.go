// Package workerpool runs fire-and-forget work on a bounded set of goroutines
// that can be drained on shutdown.
package workerpool

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"command-agent/agent/internal/logger"

	"golang.org/x/sync/semaphore"
)

var ErrPoolClosed = errors.New("worker pool closed")

type Pool struct {
	sem *semaphore.Weighted

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup

	// base is handed to every task and cancelled when a drain deadline passes.
	base   context.Context
	cancel context.CancelFunc
}

func New(size int) *Pool {
	if size <= 0 {
		size = 1
	}
	base, cancel := context.WithCancel(context.Background())
	return &Pool{sem: semaphore.NewWeighted(int64(size)), base: base, cancel: cancel}
}

// Go waits for a free slot (or ctx end) and runs fn on its own goroutine.
// A slot that is free right away is used even if ctx is already done.
// fn receives the pool context, not ctx, so callers may return before fn finishes.
func (p *Pool) Go(ctx context.Context, name string, fn func(ctx context.Context)) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return ErrPoolClosed
	}
	p.wg.Add(1)
	p.mu.Unlock()

	// a free slot is taken even when ctx is already done
	if !p.sem.TryAcquire(1) {
		if err := p.sem.Acquire(ctx, 1); err != nil {
			p.wg.Done()
			return fmt.Errorf("acquire slot for %s: %w", name, err)
		}
	}
	go func() {
		defer p.wg.Done()
		defer p.sem.Release(1)
		defer func() {
			if r := recover(); r != nil {
				logger.Errorf("task %s panicked: %v", name, r)
			}
		}()
		fn(p.base)
	}()
	return nil
}

// Close refuses new work and waits for running tasks. If ctx ends first the
// tasks' context is cancelled and ctx.Err() is returned.
func (p *Pool) Close(ctx context.Context) error {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		p.cancel()
		return nil
	case <-ctx.Done():
		p.cancel()
		return ctx.Err()
	}
}

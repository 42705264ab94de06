// Package workerpool runs fire-and-forget tasks with bounded concurrency
// and a bounded backlog. The server uses it for QR archive uploads so a
// slow object store never holds up a customer's confirmation page; when
// the backlog is full Submit fails fast and the upload is skipped.
//
//	pool := workerpool.New("qr-archive", 4)
//	defer pool.Shutdown()
//	err := pool.Submit(func(ctx context.Context) { upload(ctx) })
package workerpool

import (
	"context"
	"errors"
	"sync"

	"golang.org/x/sync/semaphore"

	"github.com/shashiranjanraj/canteen/pkg/logger"
)

var (
	ErrPoolFull   = errors.New("workerpool: pool is full")
	ErrPoolClosed = errors.New("workerpool: pool is closed")
)

// Task gets a context that is cancelled if Shutdown gives up waiting.
type Task func(ctx context.Context)

type Pool struct {
	name string

	// admit bounds running plus waiting tasks; run bounds running ones.
	admit *semaphore.Weighted
	run   *semaphore.Weighted

	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

// New allows size tasks to run at once and twice that many to wait.
func New(name string, size int) *Pool {
	size = max(size, 1)
	ctx, cancel := context.WithCancel(context.Background())
	return &Pool{
		name:   name,
		admit:  semaphore.NewWeighted(int64(size * 3)),
		run:    semaphore.NewWeighted(int64(size)),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Submit never blocks.
func (p *Pool) Submit(task Task) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrPoolClosed
	}
	if !p.admit.TryAcquire(1) {
		return ErrPoolFull
	}

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		defer p.admit.Release(1)

		if err := p.run.Acquire(p.ctx, 1); err != nil {
			logger.Warn("workerpool: task dropped at shutdown", "pool", p.name)
			return
		}
		defer p.run.Release(1)
		p.exec(task)
	}()
	return nil
}

func (p *Pool) exec(task Task) {
	defer func() {
		if v := recover(); v != nil {
			logger.Error("workerpool: task panicked", "pool", p.name, "panic", v)
		}
	}()
	task(p.ctx)
}

// Shutdown refuses new tasks and waits for every admitted one.
func (p *Pool) Shutdown() { p.ShutdownContext(context.Background()) }

// ShutdownContext is Shutdown that, once ctx ends, cancels running tasks
// and drops waiting ones.
func (p *Pool) ShutdownContext(ctx context.Context) {
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
	case <-ctx.Done():
		p.cancel()
		<-done
	}
	p.cancel()
}

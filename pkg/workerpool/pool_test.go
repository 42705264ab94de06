package workerpool_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shashiranjanraj/canteen/pkg/workerpool"
)

// submit waits out ErrPoolFull so a test can push more tasks than fit.
func submit(t *testing.T, pool *workerpool.Pool, task workerpool.Task) {
	t.Helper()
	require.Eventually(t, func() bool {
		err := pool.Submit(task)
		if err != nil && !errors.Is(err, workerpool.ErrPoolFull) {
			t.Errorf("submit: %v", err)
			return true
		}
		return err == nil
	}, 2*time.Second, time.Millisecond)
}

func TestPool_RunsEveryTask(t *testing.T) {
	pool := workerpool.New("test", 4)
	defer pool.Shutdown()

	var wg sync.WaitGroup
	var ran atomic.Int64
	wg.Add(50)
	for range 50 {
		submit(t, pool, func(context.Context) {
			defer wg.Done()
			ran.Add(1)
		})
	}
	wg.Wait()
	assert.Equal(t, int64(50), ran.Load())
}

func TestPool_BoundsConcurrency(t *testing.T) {
	pool := workerpool.New("test", 2)

	var now, peak atomic.Int32
	for range 6 {
		submit(t, pool, func(context.Context) {
			n := now.Add(1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			now.Add(-1)
		})
	}
	pool.Shutdown()
	assert.LessOrEqual(t, peak.Load(), int32(2))
}

func TestPool_FullBacklog(t *testing.T) {
	pool := workerpool.New("test", 1)
	release := make(chan struct{})
	defer func() {
		close(release)
		pool.Shutdown()
	}()

	block := func(context.Context) { <-release }
	// One running and two waiting fill a pool of size 1.
	for range 3 {
		require.NoError(t, pool.Submit(block))
	}
	assert.ErrorIs(t, pool.Submit(block), workerpool.ErrPoolFull)
}

func TestPool_ClosedAfterShutdown(t *testing.T) {
	pool := workerpool.New("test", 2)
	pool.Shutdown()
	assert.ErrorIs(t, pool.Submit(func(context.Context) {}), workerpool.ErrPoolClosed)
}

func TestPool_SurvivesPanics(t *testing.T) {
	pool := workerpool.New("test", 1)
	defer pool.Shutdown()

	submit(t, pool, func(context.Context) { panic("boom") })

	ok := make(chan struct{})
	submit(t, pool, func(context.Context) { close(ok) })
	select {
	case <-ok:
	case <-time.After(2 * time.Second):
		t.Fatal("pool stopped after a panic")
	}
}

func TestPool_ShutdownWaitsForBacklog(t *testing.T) {
	pool := workerpool.New("test", 2)

	var ran atomic.Int64
	for range 4 {
		submit(t, pool, func(context.Context) {
			time.Sleep(time.Millisecond)
			ran.Add(1)
		})
	}
	pool.Shutdown()
	assert.Equal(t, int64(4), ran.Load())
}

func TestPool_ShutdownContextCancelsRunning(t *testing.T) {
	pool := workerpool.New("test", 1)

	started := make(chan struct{})
	submit(t, pool, func(ctx context.Context) {
		close(started)
		<-ctx.Done()
	})
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	done := make(chan struct{})
	go func() {
		pool.ShutdownContext(ctx)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("running task was not cancelled")
	}
}

// Package queue runs background jobs for the canteen server. Order
// notifications go through it so a slow webhook never holds up the
// composer or the scanner.
//
//	q := queue.New(queue.NewMemoryDriver(), queue.WithFailedStore(queue.FailedTable(db)))
//	q.Register(func() queue.Job { return &NotifyOrderJob{sender: s} })
//	q.Start(ctx, 2)
//
//	q.Dispatch(ctx, &NotifyOrderJob{Notice: n})
//
// A failed job goes back on the queue with its attempt count raised, so
// retries survive on shared drivers (redis, rabbitmq) the same way they do
// in memory.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/shashiranjanraj/canteen/pkg/logger"
	"github.com/shashiranjanraj/canteen/pkg/metrics"
)

// Job is one unit of background work. Exported fields travel through the
// driver as JSON; anything else is injected by the factory given to
// Register.
type Job interface {
	Handle(ctx context.Context) error
}

// Driver moves encoded messages. Pop returns (nil, nil) when nothing arrived
// within the driver's own wait.
type Driver interface {
	Push(ctx context.Context, payload []byte) error
	Pop(ctx context.Context) ([]byte, error)
}

// message is what a driver carries.
type message struct {
	Kind    string          `json:"kind"`
	Attempt int             `json:"attempt"`
	Body    json.RawMessage `json:"body"`
}

// FailedJob is a job that used up its attempts.
type FailedJob struct {
	Kind     string
	Body     json.RawMessage
	Err      error
	Attempts int
	FailedAt time.Time
}

// FailedStore keeps failed jobs beyond the process lifetime.
type FailedStore interface {
	Record(ctx context.Context, f FailedJob) error
}

type Manager struct {
	driver Driver

	maxAttempts int
	backoff     func(attempt int) time.Duration
	store       FailedStore

	mu     sync.RWMutex
	kinds  map[string]func() Job
	failed []FailedJob

	wg sync.WaitGroup
}

type Option func(*Manager)

// WithMaxRetry sets the number of attempts per job, 3 by default.
func WithMaxRetry(n int) Option {
	return func(m *Manager) {
		if n > 0 {
			m.maxAttempts = n
		}
	}
}

// WithBackoff sets the pause before a failed attempt is requeued.
func WithBackoff(fn func(attempt int) time.Duration) Option {
	return func(m *Manager) { m.backoff = fn }
}

func WithFailedStore(s FailedStore) Option {
	return func(m *Manager) { m.store = s }
}

func New(d Driver, opts ...Option) *Manager {
	m := &Manager{
		driver:      d,
		maxAttempts: 3,
		backoff:     func(attempt int) time.Duration { return time.Duration(attempt) * time.Second },
		kinds:       make(map[string]func() Job),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Kind names a job by its Go type, e.g. "*services.NotifyOrderJob".
func Kind(j Job) string { return fmt.Sprintf("%T", j) }

// Register makes the kind returned by factory runnable by workers.
func (m *Manager) Register(factory func() Job) {
	m.mu.Lock()
	m.kinds[Kind(factory())] = factory
	m.mu.Unlock()
}

// Dispatch queues the first attempt of j.
func (m *Manager) Dispatch(ctx context.Context, j Job) error {
	body, err := json.Marshal(j)
	if err != nil {
		return fmt.Errorf("queue: encode %s: %w", Kind(j), err)
	}
	return m.push(ctx, message{Kind: Kind(j), Attempt: 1, Body: body})
}

func (m *Manager) push(ctx context.Context, msg message) error {
	raw, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("queue: encode message: %w", err)
	}
	if err := m.driver.Push(ctx, raw); err != nil {
		return fmt.Errorf("queue: push %s: %w", msg.Kind, err)
	}
	return nil
}

// Start runs n workers until ctx is cancelled. Wait blocks until they have
// all returned.
func (m *Manager) Start(ctx context.Context, n int) {
	n = max(n, 1)
	m.wg.Add(n)
	for range n {
		go func() {
			defer m.wg.Done()
			m.work(ctx)
		}()
	}
	logger.Info("queue: workers started", "count", n)
}

func (m *Manager) Wait() { m.wg.Wait() }

// Failed lists the jobs that failed since boot, oldest first.
func (m *Manager) Failed() []FailedJob {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]FailedJob(nil), m.failed...)
}

func (m *Manager) work(ctx context.Context) {
	for ctx.Err() == nil {
		raw, err := m.driver.Pop(ctx)
		switch {
		case err != nil && ctx.Err() != nil:
			return
		case err != nil:
			logger.Warn("queue: pop failed", "error", err)
			pause(ctx, 500*time.Millisecond)
		case raw != nil:
			m.handle(ctx, raw)
		}
	}
}

func (m *Manager) handle(ctx context.Context, raw []byte) {
	var msg message
	if err := json.Unmarshal(raw, &msg); err != nil {
		logger.Error("queue: undecodable message dropped", "error", err)
		return
	}

	m.mu.RLock()
	factory := m.kinds[msg.Kind]
	m.mu.RUnlock()
	if factory == nil {
		logger.Warn("queue: no handler registered, message dropped", "kind", msg.Kind)
		return
	}

	j := factory()
	if err := json.Unmarshal(msg.Body, j); err != nil {
		logger.Error("queue: undecodable job dropped", "kind", msg.Kind, "error", err)
		return
	}

	start := time.Now()
	err := j.Handle(ctx)
	if err == nil {
		metrics.RecordQueueJob(msg.Kind, "success", start)
		logger.Debug("queue: job done", "kind", msg.Kind, "attempt", msg.Attempt)
		return
	}
	metrics.RecordQueueJob(msg.Kind, "error", start)
	logger.Warn("queue: job failed", "kind", msg.Kind, "attempt", msg.Attempt, "error", err)

	if msg.Attempt < m.maxAttempts && pause(ctx, m.backoff(msg.Attempt)) {
		next := msg
		next.Attempt++
		perr := m.push(ctx, next)
		if perr == nil {
			return
		}
		err = fmt.Errorf("%w (requeue: %v)", err, perr)
	}
	m.fail(ctx, msg, err)
}

func (m *Manager) fail(ctx context.Context, msg message, err error) {
	f := FailedJob{Kind: msg.Kind, Body: msg.Body, Err: err, Attempts: msg.Attempt, FailedAt: time.Now()}
	metrics.QueueJobsProcessed.WithLabelValues("failed").Inc()
	logger.Error("queue: job gave up", "kind", f.Kind, "attempts", f.Attempts, "error", err)

	m.mu.Lock()
	m.failed = append(m.failed, f)
	m.mu.Unlock()

	if m.store == nil {
		return
	}
	if serr := m.store.Record(context.WithoutCancel(ctx), f); serr != nil {
		logger.Error("queue: record failed job", "kind", f.Kind, "error", serr)
	}
}

// pause sleeps for d and reports false if ctx ended first.
func pause(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}

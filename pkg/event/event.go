// Package event is the in-process dispatcher for order lifecycle events.
// The composer and scanner fire; notifications and the staff live feed
// listen.
package event

import (
	"context"
	"sync"
	"time"

	"github.com/shashiranjanraj/canteen/app/models"
	"github.com/shashiranjanraj/canteen/pkg/logger"
)

type Name string

const (
	OrderPlaced    Name = "order.placed"
	OrderFulfilled Name = "order.fulfilled"
)

// Event carries a snapshot of the order at the moment it changed.
type Event struct {
	Name  Name         `json:"event"`
	Order models.Order `json:"order"`
	At    time.Time    `json:"at"`
}

type Handler func(ctx context.Context, e Event)

// Bus fans events out to registered handlers. The zero value is not
// usable; a nil *Bus silently drops events.
type Bus struct {
	mu       sync.RWMutex
	handlers map[Name][]Handler
	wg       sync.WaitGroup
}

func NewBus() *Bus {
	return &Bus{handlers: map[Name][]Handler{}}
}

// Listen registers handler for name.
func (b *Bus) Listen(name Name, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[name] = append(b.handlers[name], handler)
}

func (b *Bus) snapshot(name Name) []Handler {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]Handler(nil), b.handlers[name]...)
}

// Fire runs every handler for e.Name synchronously.
func (b *Bus) Fire(ctx context.Context, e Event) {
	if b == nil {
		return
	}
	for _, h := range b.snapshot(e.Name) {
		b.run(ctx, h, e)
	}
}

// FireAsync runs handlers in their own goroutines and returns immediately.
// The handlers see a context that outlives the request that fired them.
func (b *Bus) FireAsync(ctx context.Context, e Event) {
	if b == nil {
		return
	}
	detached := context.WithoutCancel(ctx)
	for _, h := range b.snapshot(e.Name) {
		b.wg.Add(1)
		go func(h Handler) {
			defer b.wg.Done()
			b.run(detached, h, e)
		}(h)
	}
}

// Wait blocks until every handler started by FireAsync has returned.
func (b *Bus) Wait() {
	if b != nil {
		b.wg.Wait()
	}
}

func (b *Bus) run(ctx context.Context, h Handler, e Event) {
	defer func() {
		if rec := recover(); rec != nil {
			logger.WithCtx(ctx).Error("event: handler panicked", "event", e.Name, "panic", rec)
		}
	}()
	h(ctx, e)
}

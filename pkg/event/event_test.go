package event_test

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/shashiranjanraj/canteen/app/models"
	"github.com/shashiranjanraj/canteen/pkg/event"
)

func TestBus_FireDispatchesByName(t *testing.T) {
	bus := event.NewBus()

	var placed, fulfilled int32
	bus.Listen(event.OrderPlaced, func(_ context.Context, e event.Event) {
		assert.Equal(t, "ORD-1", e.Order.QRCode)
		atomic.AddInt32(&placed, 1)
	})
	bus.Listen(event.OrderFulfilled, func(context.Context, event.Event) {
		atomic.AddInt32(&fulfilled, 1)
	})

	bus.Fire(context.Background(), event.Event{Name: event.OrderPlaced, Order: models.Order{QRCode: "ORD-1"}})

	assert.Equal(t, int32(1), atomic.LoadInt32(&placed))
	assert.Equal(t, int32(0), atomic.LoadInt32(&fulfilled))
}

func TestBus_FireAsyncSurvivesCancelAndPanics(t *testing.T) {
	bus := event.NewBus()

	var ran int32
	bus.Listen(event.OrderFulfilled, func(context.Context, event.Event) { panic("boom") })
	bus.Listen(event.OrderFulfilled, func(ctx context.Context, _ event.Event) {
		if ctx.Err() == nil {
			atomic.AddInt32(&ran, 1)
		}
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	bus.FireAsync(ctx, event.Event{Name: event.OrderFulfilled})
	bus.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&ran))
}

func TestBus_NilIsNoop(t *testing.T) {
	var bus *event.Bus
	assert.NotPanics(t, func() {
		bus.Fire(context.Background(), event.Event{Name: event.OrderPlaced})
		bus.FireAsync(context.Background(), event.Event{Name: event.OrderPlaced})
		bus.Wait()
	})
}

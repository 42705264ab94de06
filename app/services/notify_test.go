package services_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shashiranjanraj/canteen/app/services"
	"github.com/shashiranjanraj/canteen/pkg/datastore"
	"github.com/shashiranjanraj/canteen/pkg/event"
	"github.com/shashiranjanraj/canteen/pkg/notification"
	"github.com/shashiranjanraj/canteen/pkg/queue"
)

func TestPlaceAndFulfill_QueueWebhookNotifications(t *testing.T) {
	events := make(chan notification.OrderNotice, 2)
	hook := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var n notification.OrderNotice
		b, _ := io.ReadAll(r.Body)
		if json.Unmarshal(b, &n) == nil {
			events <- n
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer hook.Close()

	bus := event.NewBus()
	q := queue.New(queue.NewMemoryDriver())
	services.ListenForNotifications(bus, q, notification.NewSender("", hook.URL))

	ctx, cancel := context.WithCancel(context.Background())
	q.Start(ctx, 1)
	defer func() {
		cancel()
		q.Wait()
	}()

	store := datastore.NewMemory()
	c := newComposer(store, services.WithComposerEvents(bus))
	s := services.NewScanner(store, services.WithScannerClock(clock), services.WithScannerEvents(bus))

	cst := services.NewComposerState()
	require.NoError(t, c.AddItem(cst, "Tea", 10))
	require.NoError(t, c.PlaceOrder(context.Background(), cst, "Asha", "S100"))

	first := waitNotice(t, events)
	assert.Equal(t, "order.placed", first.Event)
	assert.Equal(t, cst.Confirmation.QRCode, first.Order.QRCode)

	sst := services.NewScannerState()
	require.NoError(t, s.Scan(context.Background(), sst, cst.Confirmation.QRCode))
	require.NoError(t, s.Fulfill(context.Background(), sst, "Ravi"))

	second := waitNotice(t, events)
	assert.Equal(t, "order.fulfilled", second.Event)
	assert.Equal(t, "Ravi", second.Order.FulfilledByLabel())
}

func TestListenForNotifications_DisabledSenderRegistersNothing(t *testing.T) {
	bus := event.NewBus()
	q := queue.New(queue.NewMemoryDriver())
	services.ListenForNotifications(bus, q, notification.NewSender("", ""))

	require.NoError(t, q.Dispatch(context.Background(), &services.NotifyOrderJob{}))
	bus.Fire(context.Background(), event.Event{Name: event.OrderPlaced})
	assert.Empty(t, q.Failed())
}

func waitNotice(t *testing.T, ch <-chan notification.OrderNotice) notification.OrderNotice {
	t.Helper()
	select {
	case n := <-ch:
		return n
	case <-time.After(3 * time.Second):
		t.Fatal("no notification delivered")
		return notification.OrderNotice{}
	}
}

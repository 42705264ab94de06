package services

import (
	"context"

	"github.com/shashiranjanraj/canteen/pkg/event"
	"github.com/shashiranjanraj/canteen/pkg/logger"
	"github.com/shashiranjanraj/canteen/pkg/notification"
	"github.com/shashiranjanraj/canteen/pkg/queue"
)

// NotifyOrderJob delivers one order notice. The sender is injected by the
// factory registered in ListenForNotifications.
type NotifyOrderJob struct {
	Notice notification.OrderNotice `json:"notice"`

	sender *notification.Sender
}

func (j *NotifyOrderJob) Handle(ctx context.Context) error {
	return j.sender.Send(ctx, &j.Notice)
}

// ListenForNotifications queues a NotifyOrderJob for every placed and
// fulfilled order. It does nothing when the sender has no destination.
func ListenForNotifications(bus *event.Bus, q *queue.Manager, sender *notification.Sender) {
	if !sender.Enabled() {
		return
	}
	q.Register(func() queue.Job { return &NotifyOrderJob{sender: sender} })

	enqueue := func(ctx context.Context, e event.Event) {
		job := &NotifyOrderJob{Notice: notification.OrderNotice{Event: string(e.Name), Order: e.Order, At: e.At}}
		if err := q.Dispatch(ctx, job); err != nil {
			logger.WithCtx(ctx).Error("notify: dispatch failed", "event", e.Name, "qr_code", e.Order.QRCode, "error", err)
		}
	}
	bus.Listen(event.OrderPlaced, enqueue)
	bus.Listen(event.OrderFulfilled, enqueue)
}

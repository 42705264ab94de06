package notification

import (
	"fmt"
	"strings"
	"time"

	"github.com/shashiranjanraj/canteen/app/models"
)

// OrderNotice announces that an order was placed or fulfilled.
type OrderNotice struct {
	Event string       `json:"event"`
	Order models.Order `json:"order"`
	At    time.Time    `json:"at"`
}

func (n *OrderNotice) Slack() SlackMessage {
	o := n.Order
	text := fmt.Sprintf("Order %s placed by %s (%s)", o.QRCode, o.StudentName, o.StudentID)
	color := "warning"
	if o.IsFulfilled() {
		text = fmt.Sprintf("Order %s for %s fulfilled by %s", o.QRCode, o.StudentName, o.FulfilledByLabel())
		color = "good"
	}

	var lines strings.Builder
	for _, it := range o.Items {
		fmt.Fprintf(&lines, "%s  %s\n", it.Name, models.FormatAmount(it.Price))
	}

	return SlackMessage{
		Text: text,
		Attachments: []SlackAttachment{{
			Color:  color,
			Title:  "Total " + models.FormatAmount(o.TotalAmount),
			Text:   lines.String(),
			Footer: o.OrderDate,
		}},
	}
}

// Webhook sends the notice itself as the payload.
func (n *OrderNotice) Webhook() WebhookMessage {
	return WebhookMessage{Event: n.Event, Payload: n}
}

// Package notification tells the outside world about orders: a Slack
// incoming webhook for the kitchen channel and a plain JSON webhook for
// anything else. Either destination may be left unset.
//
//	s := notification.NewSender(config.SlackWebhookURL(), config.NotifyWebhookURL())
//	err := s.Send(ctx, &notification.OrderNotice{Event: "order.placed", Order: o})
package notification

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shashiranjanraj/canteen/pkg/http"
	"github.com/shashiranjanraj/canteen/pkg/logger"
)

// EventHeader names the event on webhook deliveries.
const EventHeader = "X-Canteen-Event"

// Notice renders itself for each destination.
type Notice interface {
	Slack() SlackMessage
	Webhook() WebhookMessage
}

type SlackMessage struct {
	Text        string            `json:"text,omitempty"`
	Attachments []SlackAttachment `json:"attachments,omitempty"`
}

type SlackAttachment struct {
	Color  string `json:"color,omitempty"` // good, warning or danger
	Title  string `json:"title,omitempty"`
	Text   string `json:"text,omitempty"`
	Footer string `json:"footer,omitempty"`
}

type WebhookMessage struct {
	Event   string
	Payload any
}

// Sender posts notices. A nil or zero Sender sends nothing.
type Sender struct {
	slackURL   string
	webhookURL string
	timeout    time.Duration
}

type Option func(*Sender)

// WithTimeout bounds each POST, 10s by default.
func WithTimeout(d time.Duration) Option {
	return func(s *Sender) {
		if d > 0 {
			s.timeout = d
		}
	}
}

func NewSender(slackURL, webhookURL string, opts ...Option) *Sender {
	s := &Sender{slackURL: slackURL, webhookURL: webhookURL, timeout: 10 * time.Second}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Sender) Enabled() bool {
	return s != nil && (s.slackURL != "" || s.webhookURL != "")
}

// Send posts n to every configured destination and joins the failures.
func (s *Sender) Send(ctx context.Context, n Notice) error {
	if !s.Enabled() {
		return nil
	}
	var errs []error
	if s.slackURL != "" {
		errs = append(errs, s.post(ctx, "slack", s.slackURL, n.Slack(), ""))
	}
	if s.webhookURL != "" {
		w := n.Webhook()
		errs = append(errs, s.post(ctx, "webhook", s.webhookURL, w.Payload, w.Event))
	}
	return errors.Join(errs...)
}

func (s *Sender) post(ctx context.Context, dest, url string, body any, event string) error {
	req := http.Post(url).Body(body).Timeout(s.timeout).WithContext(ctx)
	if event != "" {
		req.Header(EventHeader, event)
	}

	resp, err := req.Send()
	if err == nil {
		err = resp.Throw()
	}
	if err != nil {
		logger.WithCtx(ctx).Warn("notification: delivery failed", "destination", dest, "event", event, "error", err)
		return fmt.Errorf("notification: %s: %w", dest, err)
	}
	return nil
}

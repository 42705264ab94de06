package services

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/shashiranjanraj/canteen/app/models"
	"github.com/shashiranjanraj/canteen/pkg/datastore"
	"github.com/shashiranjanraj/canteen/pkg/event"
	"github.com/shashiranjanraj/canteen/pkg/logger"
	"github.com/shashiranjanraj/canteen/pkg/metrics"
	"github.com/shashiranjanraj/canteen/pkg/qr"
)

type ComposerView string

const (
	ViewCompose      ComposerView = "compose"
	ViewConfirmation ComposerView = "confirmation"
)

// ComposerState is one customer's order-in-progress. It is owned by a
// session and passed explicitly into every Composer operation.
type ComposerState struct {
	View         ComposerView       `json:"view"`
	Items        []models.OrderItem `json:"items"`
	Total        float64            `json:"total"`
	StudentName  string             `json:"student_name"`
	StudentID    string             `json:"student_id"`
	Confirmation *Confirmation      `json:"confirmation,omitempty"`
	Error        string             `json:"error,omitempty"`
}

// Confirmation is what the customer sees after a successful submission.
type Confirmation struct {
	OrderID     string             `json:"order_id"`
	QRCode      string             `json:"qr_code"`
	StudentName string             `json:"student_name"`
	StudentID   string             `json:"student_id"`
	Items       []models.OrderItem `json:"items"`
	Total       float64            `json:"total"`
	OrderDate   string             `json:"order_date"`
	QRImage     string             `json:"qr_image,omitempty"`
	QRError     string             `json:"qr_error,omitempty"`
	ArchiveURL  string             `json:"archive_url,omitempty"`
}

func NewComposerState() *ComposerState {
	return &ComposerState{View: ViewCompose, Items: []models.OrderItem{}}
}

func (st *ComposerState) recompute() {
	st.Total = models.SumPrices(st.Items)
}

// Archiver keeps a copy of a rendered QR image and reports the URL it will
// be served from.
type Archiver interface {
	Archive(ctx context.Context, order *models.Order, png []byte) (string, error)
}

// Composer implements the order-composing screen.
type Composer struct {
	orders   datastore.Orders
	renderer qr.Renderer
	tokens   func(time.Time) string
	clock    func() time.Time
	loc      *time.Location
	events   *event.Bus
	archiver Archiver
}

type ComposerOption func(*Composer)

func WithComposerClock(now func() time.Time) ComposerOption {
	return func(c *Composer) { c.clock = now }
}

func WithComposerLocation(loc *time.Location) ComposerOption {
	return func(c *Composer) { c.loc = loc }
}

func WithTokens(gen func(time.Time) string) ComposerOption {
	return func(c *Composer) { c.tokens = gen }
}

func WithRenderer(r qr.Renderer) ComposerOption {
	return func(c *Composer) { c.renderer = r }
}

func WithComposerEvents(b *event.Bus) ComposerOption {
	return func(c *Composer) { c.events = b }
}

func WithArchiver(a Archiver) ComposerOption {
	return func(c *Composer) { c.archiver = a }
}

func NewComposer(orders datastore.Orders, opts ...ComposerOption) *Composer {
	c := &Composer{
		orders:   orders,
		renderer: qr.NewPNGRenderer(256),
		tokens:   qr.NewToken,
		clock:    time.Now,
		loc:      time.UTC,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// AddItem appends a line item. Invalid input leaves the list untouched.
func (c *Composer) AddItem(st *ComposerState, name string, price float64) error {
	if st.View != ViewCompose {
		st.Error = MsgWrongView
		return ErrWrongView
	}

	name = strings.TrimSpace(name)
	if name == "" || !models.ValidPrice(price) {
		st.Error = MsgInvalidItem
		return invalid("item", MsgInvalidItem)
	}

	st.Items = append(st.Items, models.OrderItem{Name: name, Price: price})
	st.recompute()
	st.Error = ""
	return nil
}

// RemoveItem drops the item at index.
func (c *Composer) RemoveItem(st *ComposerState, index int) error {
	if st.View != ViewCompose {
		st.Error = MsgWrongView
		return ErrWrongView
	}
	if index < 0 || index >= len(st.Items) {
		err := &IndexError{Index: index, Len: len(st.Items)}
		st.Error = err.Error()
		return err
	}

	st.Items = slices.Delete(st.Items, index, index+1)
	st.recompute()
	st.Error = ""
	return nil
}

// PlaceOrder validates the form, submits a pending order dated today and
// switches to the confirmation view. On any failure the state stays in
// compose with the items kept.
func (c *Composer) PlaceOrder(ctx context.Context, st *ComposerState, studentName, studentID string) error {
	if st.View != ViewCompose {
		st.Error = MsgWrongView
		return ErrWrongView
	}

	st.StudentName = strings.TrimSpace(studentName)
	st.StudentID = strings.TrimSpace(studentID)

	if st.StudentName == "" || st.StudentID == "" {
		st.Error = MsgMissingIdentity
		return invalid("student", MsgMissingIdentity)
	}
	if len(st.Items) == 0 {
		st.Error = MsgNoItems
		return invalid("items", MsgNoItems)
	}

	now := c.clock()
	order := &models.Order{
		StudentName: st.StudentName,
		StudentID:   st.StudentID,
		Items:       slices.Clone(st.Items),
		TotalAmount: st.Total,
		QRCode:      c.tokens(now),
		OrderDate:   now.In(c.loc).Format(time.DateOnly),
		Status:      models.StatusPending,
	}

	log := logger.WithCtx(ctx)

	saved, err := c.orders.Create(ctx, order)
	if err != nil {
		st.Error = Message(err)
		if st.Error == "" {
			st.Error = MsgPlaceFailed
		}
		log.Error("composer: place order failed", "student_id", order.StudentID, "error", err)
		return fmt.Errorf("services: place order: %w", err)
	}

	conf := &Confirmation{
		OrderID:     qr.ShortID(saved.QRCode),
		QRCode:      saved.QRCode,
		StudentName: saved.StudentName,
		StudentID:   saved.StudentID,
		Items:       slices.Clone(st.Items),
		Total:       st.Total,
		OrderDate:   saved.OrderDate,
	}

	png, err := c.renderer.PNG(saved.QRCode)
	if err != nil {
		conf.QRError = MsgQRFailed
		log.Warn("composer: qr render failed", "qr_code", saved.QRCode, "error", err)
	} else {
		conf.QRImage = qr.DataURI(png)
		if c.archiver != nil {
			if url, err := c.archiver.Archive(ctx, saved, png); err != nil {
				log.Warn("composer: qr archive rejected", "qr_code", saved.QRCode, "error", err)
			} else {
				conf.ArchiveURL = url
			}
		}
	}

	st.View = ViewConfirmation
	st.Confirmation = conf
	st.Error = ""

	metrics.OrdersPlaced.Inc()
	log.Info("composer: order placed", "order_id", saved.ID, "qr_code", saved.QRCode, "total", saved.TotalAmount)
	c.events.FireAsync(ctx, event.Event{Name: event.OrderPlaced, Order: *saved, At: now})

	return nil
}

// ResetForm clears everything and returns to the compose view.
func (c *Composer) ResetForm(st *ComposerState) {
	*st = *NewComposerState()
}

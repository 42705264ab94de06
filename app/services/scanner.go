package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shashiranjanraj/canteen/app/models"
	"github.com/shashiranjanraj/canteen/pkg/datastore"
	"github.com/shashiranjanraj/canteen/pkg/event"
	"github.com/shashiranjanraj/canteen/pkg/logger"
	"github.com/shashiranjanraj/canteen/pkg/metrics"
)

type ScannerView string

const (
	ViewScan    ScannerView = "scan"
	ViewDetails ScannerView = "details"
)

// ScannerState is one staff member's scanning session.
type ScannerState struct {
	View         ScannerView   `json:"view"`
	Code         string        `json:"code,omitempty"`
	CurrentOrder *models.Order `json:"current_order,omitempty"`
	Error        string        `json:"error,omitempty"`
	Notice       string        `json:"notice,omitempty"`
}

func NewScannerState() *ScannerState {
	return &ScannerState{View: ViewScan}
}

// Scanner implements the fulfillment screen.
type Scanner struct {
	orders datastore.Orders
	clock  func() time.Time
	loc    *time.Location
	events *event.Bus
}

type ScannerOption func(*Scanner)

func WithScannerClock(now func() time.Time) ScannerOption {
	return func(s *Scanner) { s.clock = now }
}

func WithScannerLocation(loc *time.Location) ScannerOption {
	return func(s *Scanner) { s.loc = loc }
}

func WithScannerEvents(b *event.Bus) ScannerOption {
	return func(s *Scanner) { s.events = b }
}

func NewScanner(orders datastore.Orders, opts ...ScannerOption) *Scanner {
	s := &Scanner{orders: orders, clock: time.Now, loc: time.UTC}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Scanner) today() string {
	return s.clock().In(s.loc).Format(time.DateOnly)
}

// Scan looks up today's order for code. Any previously shown order is
// dropped first, so only a hit ends in the details view; a miss or a backend
// failure leaves the scan view with the error.
func (s *Scanner) Scan(ctx context.Context, st *ScannerState, code string) error {
	s.ResetScanner(st)
	code = strings.TrimSpace(code)
	st.Code = code

	if code == "" {
		metrics.Scans.WithLabelValues("invalid").Inc()
		st.Error = MsgMissingCode
		return invalid("qr_code", MsgMissingCode)
	}

	log := logger.WithCtx(ctx)

	order, err := s.orders.FindOne(ctx, datastore.Filter{"qr_code": code, "order_date": s.today()})
	if err != nil {
		metrics.Scans.WithLabelValues("error").Inc()
		st.Error = Message(err)
		if st.Error == "" {
			st.Error = MsgScanFailed
		}
		log.Error("scanner: lookup failed", "qr_code", code, "error", err)
		return fmt.Errorf("services: scan: %w", err)
	}
	if order == nil {
		metrics.Scans.WithLabelValues("not_found").Inc()
		st.Error = MsgNotFound
		return ErrNotFound
	}

	metrics.Scans.WithLabelValues("found").Inc()
	st.CurrentOrder = order
	st.View = ViewDetails
	st.Error = ""
	log.Info("scanner: order found", "order_id", order.ID, "status", order.Status)
	return nil
}

// Fulfill marks the current order fulfilled by staffName. The update is
// guarded on status still being pending, so two staff members racing on
// the same order cannot both succeed.
func (s *Scanner) Fulfill(ctx context.Context, st *ScannerState, staffName string) error {
	st.Notice = ""

	if st.View != ViewDetails || st.CurrentOrder == nil {
		st.Error = MsgNoOrder
		return ErrNoOrder
	}
	if st.CurrentOrder.IsFulfilled() {
		st.Error = MsgAlreadyFulfilled
		return ErrAlreadyFulfilled
	}

	staffName = strings.TrimSpace(staffName)
	if staffName == "" {
		st.Error = MsgMissingStaff
		return invalid("staff_name", MsgMissingStaff)
	}

	log := logger.WithCtx(ctx)
	order := st.CurrentOrder
	at := s.clock().UTC()

	err := s.orders.Update(ctx, order.ID,
		datastore.Patch{"status": models.StatusFulfilled, "fulfilled_by": staffName, "fulfilled_at": at},
		datastore.Filter{"status": models.StatusPending},
	)
	switch {
	case errors.Is(err, datastore.ErrConflict):
		err = ErrConflict
	case errors.Is(err, datastore.ErrNotFound):
		err = ErrNotFound
	}
	if err != nil {
		st.Error = MsgFulfillFailed + Message(err)
		log.Error("scanner: fulfill failed", "order_id", order.ID, "error", err)
		return fmt.Errorf("services: fulfill: %w", err)
	}

	order.Status = models.StatusFulfilled
	order.FulfilledBy = &staffName
	order.FulfilledAt = &at

	st.Error = ""
	st.Notice = MsgFulfilled

	metrics.OrdersFulfilled.Inc()
	log.Info("scanner: order fulfilled", "order_id", order.ID, "fulfilled_by", staffName)
	s.events.FireAsync(ctx, event.Event{Name: event.OrderFulfilled, Order: *order, At: at})

	return nil
}

// ResetScanner clears the current order and input and returns to scan.
func (s *Scanner) ResetScanner(st *ScannerState) {
	*st = *NewScannerState()
}

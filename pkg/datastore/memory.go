package datastore

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/shashiranjanraj/canteen/app/models"
)

var errDuplicateQR = errors.New("duplicate qr_code")

// Memory keeps orders in process memory. It is the default backend for
// local runs and the one the service and controller tests use.
type Memory struct {
	mu    sync.RWMutex
	byID  map[string]*models.Order
	order []string
	now   func() time.Time
}

func NewMemory() *Memory {
	return &Memory{byID: make(map[string]*models.Order), now: time.Now}
}

func (m *Memory) Create(_ context.Context, o *models.Order) (*models.Order, error) {
	rec := cloneOrder(o)
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = m.now().UTC()
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.byID {
		if existing.QRCode == rec.QRCode {
			return nil, backendErr("create", errDuplicateQR)
		}
	}
	m.byID[rec.ID] = rec
	m.order = append(m.order, rec.ID)
	return cloneOrder(rec), nil
}

func (m *Memory) FindOne(_ context.Context, f Filter) (*models.Order, error) {
	f, err := f.Validate()
	if err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, id := range m.order {
		if o := m.byID[id]; matches(o, f) {
			return cloneOrder(o), nil
		}
	}
	return nil, nil
}

func (m *Memory) Update(_ context.Context, id string, p Patch, guard Filter) error {
	p, err := p.Validate()
	if err != nil {
		return err
	}
	guard, err = guard.Validate()
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	o, ok := m.byID[id]
	if !ok {
		return ErrNotFound
	}
	if !matches(o, guard) {
		return ErrConflict
	}
	applyPatch(o, p)
	return nil
}

// Len reports how many orders are stored.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.byID)
}

func matches(o *models.Order, f Filter) bool {
	for k, want := range f {
		if column(o, k) != want {
			return false
		}
	}
	return true
}

func column(o *models.Order, name string) string {
	switch name {
	case "id":
		return o.ID
	case "student_name":
		return o.StudentName
	case "student_id":
		return o.StudentID
	case "qr_code":
		return o.QRCode
	case "order_date":
		return o.OrderDate
	case "status":
		return string(o.Status)
	case "fulfilled_by":
		if o.FulfilledBy == nil {
			return ""
		}
		return *o.FulfilledBy
	}
	return ""
}

func applyPatch(o *models.Order, p Patch) {
	for k, v := range p {
		switch k {
		case "status":
			o.Status = models.Status(stringValue(v))
		case "fulfilled_by":
			s := stringValue(v)
			o.FulfilledBy = &s
		case "fulfilled_at":
			if t, ok := v.(time.Time); ok {
				o.FulfilledAt = &t
			}
		}
	}
}

func cloneOrder(o *models.Order) *models.Order {
	c := *o
	c.Items = append([]models.OrderItem(nil), o.Items...)
	if o.FulfilledBy != nil {
		s := *o.FulfilledBy
		c.FulfilledBy = &s
	}
	if o.FulfilledAt != nil {
		t := *o.FulfilledAt
		c.FulfilledAt = &t
	}
	return &c
}

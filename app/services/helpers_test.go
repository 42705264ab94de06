package services_test

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/shashiranjanraj/canteen/app/models"
	"github.com/shashiranjanraj/canteen/pkg/datastore"
)

var fixedNow = time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC)

func clock() time.Time { return fixedNow }

// spyStore counts calls and can be told to fail.
type spyStore struct {
	next      datastore.Orders
	creates   atomic.Int32
	finds     atomic.Int32
	updates   atomic.Int32
	failWith  error
	lastOrder *models.Order
}

func newSpy() *spyStore { return &spyStore{next: datastore.NewMemory()} }

func (s *spyStore) Create(ctx context.Context, o *models.Order) (*models.Order, error) {
	s.creates.Add(1)
	c := *o
	s.lastOrder = &c
	if s.failWith != nil {
		return nil, s.failWith
	}
	return s.next.Create(ctx, o)
}

func (s *spyStore) FindOne(ctx context.Context, f datastore.Filter) (*models.Order, error) {
	s.finds.Add(1)
	if s.failWith != nil {
		return nil, s.failWith
	}
	return s.next.FindOne(ctx, f)
}

func (s *spyStore) Update(ctx context.Context, id string, p datastore.Patch, guard datastore.Filter) error {
	s.updates.Add(1)
	if s.failWith != nil {
		return s.failWith
	}
	return s.next.Update(ctx, id, p, guard)
}

func backendDown() error {
	return &datastore.BackendError{Op: "create", Err: errors.New("database is down")}
}

type failingRenderer struct{}

func (failingRenderer) PNG(string) ([]byte, error) { return nil, errors.New("encoder exploded") }

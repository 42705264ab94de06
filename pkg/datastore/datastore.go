// Package datastore is the orders Data Client: create, find-one and
// guarded update against the "orders" collection of whichever backend is
// configured (hosted REST, SQL through gorm, MongoDB or process memory).
package datastore

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"time"

	"github.com/shashiranjanraj/canteen/app/models"
	"github.com/shashiranjanraj/canteen/pkg/metrics"
)

// Orders is the contract every backend satisfies.
type Orders interface {
	// Create inserts a new order and returns the stored record, including
	// the backend-assigned id.
	Create(ctx context.Context, o *models.Order) (*models.Order, error)

	// FindOne returns the first order matching every predicate, or
	// (nil, nil) when nothing matches.
	FindOne(ctx context.Context, f Filter) (*models.Order, error)

	// Update applies patch to the order with the given id, but only if
	// the order also matches guard. It returns ErrNotFound when no order
	// has that id and ErrConflict when the guard does not hold.
	Update(ctx context.Context, id string, patch Patch, guard Filter) error
}

var (
	ErrNotFound      = errors.New("datastore: order not found")
	ErrConflict      = errors.New("datastore: order changed concurrently")
	ErrUnknownColumn = errors.New("datastore: unknown column")
)

// BackendError wraps any failure reported by the backend or the transport.
type BackendError struct {
	Op  string
	Err error
}

func (e *BackendError) Error() string { return e.Op + ": " + e.Err.Error() }
func (e *BackendError) Unwrap() error { return e.Err }

func backendErr(op string, err error) error {
	if err == nil {
		return nil
	}
	return &BackendError{Op: op, Err: err}
}

// Columns that may appear in a Filter or a Patch.
var (
	filterColumns = map[string]bool{
		"id": true, "student_name": true, "student_id": true, "qr_code": true,
		"order_date": true, "status": true, "fulfilled_by": true,
	}
	patchColumns = map[string]bool{
		"status": true, "fulfilled_by": true, "fulfilled_at": true,
	}
)

// Filter is a set of equality predicates, ANDed together.
type Filter map[string]any

// Patch is a partial update.
type Patch map[string]any

// Validate rejects unknown columns and normalises values to strings.
func (f Filter) Validate() (Filter, error) {
	out := make(Filter, len(f))
	for k, v := range f {
		if !filterColumns[k] {
			return nil, fmt.Errorf("%w: filter on %q", ErrUnknownColumn, k)
		}
		out[k] = stringValue(v)
	}
	return out, nil
}

// Keys returns the filter columns in a stable order.
func (f Filter) Keys() []string { return slices.Sorted(maps.Keys(f)) }

// Validate rejects unknown columns and normalises status and time values.
func (p Patch) Validate() (Patch, error) {
	if len(p) == 0 {
		return nil, errors.New("datastore: empty patch")
	}
	out := make(Patch, len(p))
	for k, v := range p {
		if !patchColumns[k] {
			return nil, fmt.Errorf("%w: patch of %q", ErrUnknownColumn, k)
		}
		switch tv := v.(type) {
		case models.Status:
			out[k] = string(tv)
		case time.Time:
			out[k] = tv.UTC()
		default:
			out[k] = v
		}
	}
	return out, nil
}

// Keys returns the patch columns in a stable order.
func (p Patch) Keys() []string { return slices.Sorted(maps.Keys(p)) }

func stringValue(v any) string {
	switch tv := v.(type) {
	case string:
		return tv
	case models.Status:
		return string(tv)
	case fmt.Stringer:
		return tv.String()
	default:
		return fmt.Sprint(v)
	}
}

// Instrument wraps an Orders backend so every call is timed in the
// canteen_datastore_op_duration_seconds histogram.
func Instrument(backend string, o Orders) Orders {
	return &instrumented{backend: backend, next: o}
}

type instrumented struct {
	backend string
	next    Orders
}

func (i *instrumented) Create(ctx context.Context, o *models.Order) (out *models.Order, err error) {
	defer metrics.ObserveDatastore(i.backend, "create", time.Now(), &err)
	return i.next.Create(ctx, o)
}

func (i *instrumented) FindOne(ctx context.Context, f Filter) (out *models.Order, err error) {
	defer metrics.ObserveDatastore(i.backend, "find_one", time.Now(), &err)
	return i.next.FindOne(ctx, f)
}

func (i *instrumented) Update(ctx context.Context, id string, p Patch, guard Filter) (err error) {
	defer metrics.ObserveDatastore(i.backend, "update", time.Now(), &err)
	return i.next.Update(ctx, id, p, guard)
}

package datastore_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shashiranjanraj/canteen/app/models"
	"github.com/shashiranjanraj/canteen/pkg/datastore"
)

func sampleOrder(code string) *models.Order {
	return &models.Order{
		StudentName: "Asha",
		StudentID:   "S100",
		Items:       []models.OrderItem{{Name: "Sandwich", Price: 50}, {Name: "Juice", Price: 20}},
		TotalAmount: 70,
		QRCode:      code,
		OrderDate:   "2026-10-16",
		Status:      models.StatusPending,
	}
}

// exerciseContract runs the same behaviour checks against any backend.
func exerciseContract(t *testing.T, store datastore.Orders) {
	t.Helper()
	ctx := context.Background()

	created, err := store.Create(ctx, sampleOrder("ORD-1-abc"))
	require.NoError(t, err)
	require.NotEmpty(t, created.ID)
	assert.Equal(t, models.StatusPending, created.Status)
	assert.Len(t, created.Items, 2)

	t.Run("find by code and date", func(t *testing.T) {
		got, err := store.FindOne(ctx, datastore.Filter{"qr_code": "ORD-1-abc", "order_date": "2026-10-16"})
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, created.ID, got.ID)
		assert.Equal(t, 70.0, got.TotalAmount)
	})

	t.Run("other day finds nothing", func(t *testing.T) {
		got, err := store.FindOne(ctx, datastore.Filter{"qr_code": "ORD-1-abc", "order_date": "2026-10-15"})
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("unknown column rejected", func(t *testing.T) {
		_, err := store.FindOne(ctx, datastore.Filter{"total_amount; drop": "x"})
		assert.ErrorIs(t, err, datastore.ErrUnknownColumn)
	})

	t.Run("guarded update fulfils once", func(t *testing.T) {
		at := time.Date(2026, 10, 16, 9, 30, 0, 0, time.UTC)
		patch := datastore.Patch{"status": models.StatusFulfilled, "fulfilled_by": "Ravi", "fulfilled_at": at}
		guard := datastore.Filter{"status": models.StatusPending}

		require.NoError(t, store.Update(ctx, created.ID, patch, guard))

		got, err := store.FindOne(ctx, datastore.Filter{"id": created.ID})
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, models.StatusFulfilled, got.Status)
		require.NotNil(t, got.FulfilledBy)
		assert.Equal(t, "Ravi", *got.FulfilledBy)
		require.NotNil(t, got.FulfilledAt)
		assert.True(t, at.Equal(*got.FulfilledAt))

		err = store.Update(ctx, created.ID, datastore.Patch{"fulfilled_by": "Mina"}, guard)
		assert.ErrorIs(t, err, datastore.ErrConflict)
	})

	t.Run("missing id", func(t *testing.T) {
		err := store.Update(ctx, "does-not-exist", datastore.Patch{"status": models.StatusFulfilled}, nil)
		assert.ErrorIs(t, err, datastore.ErrNotFound)
	})
}

func TestMemory_Contract(t *testing.T) {
	exerciseContract(t, datastore.NewMemory())
}

func TestMemory_ReturnsCopies(t *testing.T) {
	store := datastore.NewMemory()
	ctx := context.Background()

	created, err := store.Create(ctx, sampleOrder("ORD-2-abc"))
	require.NoError(t, err)
	created.Items[0].Name = "mutated"

	got, err := store.FindOne(ctx, datastore.Filter{"id": created.ID})
	require.NoError(t, err)
	assert.Equal(t, "Sandwich", got.Items[0].Name)
}

func TestMemory_DuplicateCodeIsBackendError(t *testing.T) {
	store := datastore.NewMemory()
	ctx := context.Background()

	_, err := store.Create(ctx, sampleOrder("ORD-3-abc"))
	require.NoError(t, err)

	_, err = store.Create(ctx, sampleOrder("ORD-3-abc"))
	var be *datastore.BackendError
	require.True(t, errors.As(err, &be))
	assert.Equal(t, "create", be.Op)
	assert.Equal(t, 1, store.Len())
}

func TestInstrument_PassesThrough(t *testing.T) {
	store := datastore.Instrument("memory", datastore.NewMemory())
	exerciseContract(t, store)
}

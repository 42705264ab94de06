package seeders_test

import (
	"bytes"
	"context"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shashiranjanraj/canteen/app/models"
	"github.com/shashiranjanraj/canteen/database/seeders"
	"github.com/shashiranjanraj/canteen/pkg/datastore"
)

func TestRunAll_SeedsScannableOrders(t *testing.T) {
	store := datastore.NewMemory()
	var out bytes.Buffer

	require.NoError(t, seeders.RunAll(context.Background(), store, &out))
	assert.Equal(t, 3, store.Len())
	assert.Contains(t, out.String(), "Running seeder: orders")

	codes := regexp.MustCompile(`ORD-\d+-[0-9a-f]{10}`).FindAllString(out.String(), -1)
	require.Len(t, codes, 3)

	var fulfilled int
	for _, code := range codes {
		o, err := store.FindOne(context.Background(), datastore.Filter{"qr_code": code})
		require.NoError(t, err)
		require.NotNil(t, o)
		assert.Equal(t, models.SumPrices(o.Items), o.TotalAmount)
		if o.IsFulfilled() {
			fulfilled++
			assert.Equal(t, "Ravi", o.FulfilledByLabel())
		}
	}
	assert.Equal(t, 1, fulfilled)
}

package models_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/shashiranjanraj/canteen/app/models"
)

func TestSumPrices(t *testing.T) {
	assert.Equal(t, 0.0, models.SumPrices(nil))
	assert.Equal(t, 70.0, models.SumPrices([]models.OrderItem{{Name: "Sandwich", Price: 50}, {Name: "Juice", Price: 20}}))
	assert.Equal(t, 0.3, models.SumPrices([]models.OrderItem{{Name: "a", Price: 0.1}, {Name: "b", Price: 0.2}}))
}

func TestValidPrice(t *testing.T) {
	assert.True(t, models.ValidPrice(0.01))
	assert.True(t, models.ValidPrice(12.5))
	assert.True(t, models.ValidPrice(99.99))
	assert.False(t, models.ValidPrice(0.333))
	assert.False(t, models.ValidPrice(0.001))
	assert.False(t, models.ValidPrice(1e-9))
	assert.False(t, models.ValidPrice(0))
	assert.False(t, models.ValidPrice(-5))
	assert.False(t, models.ValidPrice(math.NaN()))
	assert.False(t, models.ValidPrice(math.Inf(1)))
}

func TestFormatAmount(t *testing.T) {
	assert.Equal(t, "₹70.00", models.FormatAmount(70))
	assert.Equal(t, "₹12.50", models.FormatAmount(12.5))
}

func TestFulfilledByLabel(t *testing.T) {
	o := &models.Order{}
	assert.Equal(t, "Staff", o.FulfilledByLabel())

	name := "Ravi"
	o.FulfilledBy = &name
	assert.Equal(t, "Ravi", o.FulfilledByLabel())
}

package models

import (
	"math"
	"time"

	"github.com/shopspring/decimal"
)

// Status is the fulfillment state of an order. It only ever moves from
// pending to fulfilled.
type Status string

const (
	StatusPending   Status = "pending"
	StatusFulfilled Status = "fulfilled"
)

// OrderItem is one line of an order.
type OrderItem struct {
	Name  string  `json:"name"  bson:"name"`
	Price float64 `json:"price" bson:"price"`
}

// Order is the persisted record shared by the composer and the scanner.
type Order struct {
	ID          string      `gorm:"primaryKey;size:64"                 json:"id"                     bson:"_id"`
	StudentName string      `gorm:"size:255;not null"                  json:"student_name"           bson:"student_name"`
	StudentID   string      `gorm:"size:100;not null;index"            json:"student_id"             bson:"student_id"`
	Items       []OrderItem `gorm:"serializer:json;type:text;not null" json:"items"                  bson:"items"`
	TotalAmount float64     `gorm:"not null;default:0"                 json:"total_amount"           bson:"total_amount"`
	QRCode      string      `gorm:"size:100;uniqueIndex;not null"      json:"qr_code"                bson:"qr_code"`
	OrderDate   string      `gorm:"size:10;index;not null"             json:"order_date"             bson:"order_date"`
	Status      Status      `gorm:"size:20;not null;default:pending"   json:"status"                 bson:"status"`
	FulfilledBy *string     `gorm:"size:255"                           json:"fulfilled_by,omitempty" bson:"fulfilled_by,omitempty"`
	FulfilledAt *time.Time  `                                          json:"fulfilled_at,omitempty" bson:"fulfilled_at,omitempty"`
	CreatedAt   time.Time   `gorm:"autoCreateTime"                     json:"created_at"             bson:"created_at"`
}

// IsFulfilled reports whether the order has already been handed over.
func (o *Order) IsFulfilled() bool { return o.Status == StatusFulfilled }

// FulfilledByLabel is the staff name shown on a fulfilled order.
func (o *Order) FulfilledByLabel() string {
	if o.FulfilledBy == nil || *o.FulfilledBy == "" {
		return "Staff"
	}
	return *o.FulfilledBy
}

// SumPrices adds item prices in decimal arithmetic, so 0.1 + 0.2 totals 0.3
// rather than 0.30000000000000004. The sum is exact for prices that pass
// ValidPrice.
func SumPrices(items []OrderItem) float64 {
	sum := decimal.Zero
	for _, it := range items {
		sum = sum.Add(decimal.NewFromFloat(it.Price))
	}
	f, _ := sum.Float64()
	return f
}

// ValidPrice reports whether p can be charged: finite, strictly positive and
// in whole paise.
func ValidPrice(p float64) bool {
	if math.IsNaN(p) || math.IsInf(p, 0) || p <= 0 {
		return false
	}
	return decimal.NewFromFloat(p).Exponent() >= -2
}

// FormatAmount renders an amount the way both screens display money.
func FormatAmount(amount float64) string {
	return "₹" + decimal.NewFromFloat(amount).StringFixed(2)
}

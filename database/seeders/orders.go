package seeders

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/shashiranjanraj/canteen/app/models"
	"github.com/shashiranjanraj/canteen/config"
	"github.com/shashiranjanraj/canteen/pkg/datastore"
	"github.com/shashiranjanraj/canteen/pkg/qr"
)

var demoOrders = []struct {
	student, id string
	items       []models.OrderItem
	fulfilledBy string
}{
	{"Asha Rao", "S100", []models.OrderItem{{Name: "Sandwich", Price: 50}, {Name: "Juice", Price: 20}}, ""},
	{"Vikram Shah", "S101", []models.OrderItem{{Name: "Masala Dosa", Price: 45}, {Name: "Filter Coffee", Price: 15}}, ""},
	{"Meera Iyer", "S102", []models.OrderItem{{Name: "Veg Thali", Price: 80}}, "Ravi"},
}

// SeedOrders places a handful of today's orders, one already fulfilled,
// and prints their QR tokens so they can be typed into the scanner.
func SeedOrders(ctx context.Context, store datastore.Orders, out io.Writer) error {
	now := time.Now()
	today := now.In(config.AppLocation()).Format(time.DateOnly)

	for i, d := range demoOrders {
		o := &models.Order{
			StudentName: d.student,
			StudentID:   d.id,
			Items:       d.items,
			TotalAmount: models.SumPrices(d.items),
			QRCode:      qr.NewToken(now.Add(time.Duration(i) * time.Millisecond)),
			OrderDate:   today,
			Status:      models.StatusPending,
		}
		if d.fulfilledBy != "" {
			staff, at := d.fulfilledBy, now
			o.Status = models.StatusFulfilled
			o.FulfilledBy = &staff
			o.FulfilledAt = &at
		}

		saved, err := store.Create(ctx, o)
		if err != nil {
			return fmt.Errorf("create order for %s: %w", d.id, err)
		}
		fmt.Fprintf(out, "\n      %s  %-12s %s %s", saved.QRCode, d.student, models.FormatAmount(saved.TotalAmount), saved.Status)
	}
	fmt.Fprint(out, "\n    ")
	return nil
}

// Package seeders places demo orders for today through whichever Data
// Client is configured, so `canteen seed` works against every backend.
package seeders

import (
	"context"
	"fmt"
	"io"

	"github.com/shashiranjanraj/canteen/pkg/datastore"
)

// Seeder writes demo data and reports what it did to out.
type Seeder func(ctx context.Context, store datastore.Orders, out io.Writer) error

// all runs in order.
var all = []struct {
	name string
	run  Seeder
}{
	{"orders", SeedOrders},
}

// RunAll runs every seeder and stops at the first failure.
func RunAll(ctx context.Context, store datastore.Orders, out io.Writer) error {
	for _, s := range all {
		fmt.Fprintf(out, "Running seeder: %s\n", s.name)
		if err := s.run(ctx, store, out); err != nil {
			return fmt.Errorf("seeders: %s: %w", s.name, err)
		}
	}
	fmt.Fprintln(out, "Seeding complete.")
	return nil
}

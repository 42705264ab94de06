package app

// Operations behind the canteen CLI. Each writes its human-readable output
// to out so the commands can be tested without a terminal.

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"gorm.io/gorm"

	"github.com/shashiranjanraj/canteen/app/services"
	"github.com/shashiranjanraj/canteen/app/views"
	"github.com/shashiranjanraj/canteen/config"
	"github.com/shashiranjanraj/canteen/pkg/auth"
	"github.com/shashiranjanraj/canteen/pkg/clientconfig"
	"github.com/shashiranjanraj/canteen/pkg/database"
	"github.com/shashiranjanraj/canteen/pkg/datastore"
	"github.com/shashiranjanraj/canteen/pkg/migration"
	"github.com/shashiranjanraj/canteen/pkg/router"
)

// withDB opens DB_DRIVER/DATABASE_DSN for the duration of fn.
func withDB(fn func(db *gorm.DB) error) error {
	if err := config.Load(); err != nil {
		return fmt.Errorf("app: load config: %w", err)
	}
	db, err := database.Connect()
	if err != nil {
		return err
	}
	defer database.Close(db)
	return fn(db)
}

// Migrate runs every pending migration as one batch.
func Migrate(out io.Writer) error {
	return withDB(func(db *gorm.DB) error {
		return migration.New(db, migration.WithOutput(out)).Run()
	})
}

// Rollback reverses the most recent batch.
func Rollback(out io.Writer) error {
	return withDB(func(db *gorm.DB) error {
		return migration.New(db, migration.WithOutput(out)).Rollback()
	})
}

func MigrationStatus(out io.Writer) error {
	return withDB(func(db *gorm.DB) error {
		return migration.New(db, migration.WithOutput(out)).Status()
	})
}

// PrintRoutes writes the route table as aligned columns.
func PrintRoutes(out io.Writer, routes []router.Route) error {
	if len(routes) == 0 {
		fmt.Fprintln(out, "No named routes registered.")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "METHOD\tPATH\tNAME")
	fmt.Fprintln(w, "------\t----\t----")
	for _, ri := range routes {
		fmt.Fprintf(w, "%s\t%s\t%s\n", ri.Method, ri.Path, ri.Name)
	}
	return w.Flush()
}

// RemoteOrders builds a REST Data Client from the parameters a running
// canteen server publishes on /api/config.
func RemoteOrders(ctx context.Context, server string) (datastore.Orders, error) {
	endpoint := strings.TrimRight(server, "/") + "/api/config"
	cfg, err := clientconfig.Load(ctx, endpoint)
	if err != nil {
		return nil, err
	}
	return datastore.NewREST(cfg.URL, cfg.AnonKey), nil
}

// ScanOrder looks code up for today and prints the order. With a non-empty
// staff name it then fulfills the order.
func ScanOrder(ctx context.Context, s *services.Scanner, loc *time.Location, code, staff string, out io.Writer) error {
	st := services.NewScannerState()
	if err := s.Scan(ctx, st, code); err != nil {
		return &userError{msg: st.Error, err: err}
	}
	printDetails(out, views.Details(st.CurrentOrder, loc))

	if staff == "" {
		return nil
	}
	if err := s.Fulfill(ctx, st, staff); err != nil {
		return &userError{msg: st.Error, err: err}
	}
	fmt.Fprintf(out, "\n✅ %s\n", st.Notice)
	return nil
}

// userError prints as the message the scanner screen would show while
// still matching the underlying error.
type userError struct {
	msg string
	err error
}

func (e *userError) Error() string { return e.msg }
func (e *userError) Unwrap() error { return e.err }

func printDetails(out io.Writer, d views.DetailsModel) {
	fmt.Fprintf(out, "%s\n", d.Heading)
	if d.Subheading != "" {
		fmt.Fprintf(out, "%s\n", d.Subheading)
	}
	fmt.Fprintln(out)

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "Student\t%s (%s)\n", d.StudentName, d.StudentID)
	fmt.Fprintf(w, "Token\t%s\n", d.QRCode)
	fmt.Fprintf(w, "Date\t%s\n", d.OrderDate)
	for _, it := range d.Items {
		fmt.Fprintf(w, "  %s\t%s\n", it.Name, it.Price)
	}
	fmt.Fprintf(w, "Total\t%s\n", d.Total)
	if d.Fulfilled {
		fmt.Fprintf(w, "Fulfilled by\t%s\n", d.FulfilledBy)
		if d.FulfilledAt != "" {
			fmt.Fprintf(w, "Fulfilled at\t%s\n", d.FulfilledAt)
		}
	}
	_ = w.Flush()
}

// IssueToken prints a bearer token for staff, signed with STAFF_SECRET.
func IssueToken(staff string, ttl time.Duration, out io.Writer) error {
	iss, err := auth.NewIssuer(config.StaffTokenSecret(), ttl)
	if err != nil {
		return err
	}
	tok, err := iss.Issue(staff)
	if err != nil {
		return err
	}
	fmt.Fprintln(out, tok)
	return nil
}

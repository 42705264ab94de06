package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/shashiranjanraj/canteen/app/services"
	"github.com/shashiranjanraj/canteen/config"
	"github.com/shashiranjanraj/canteen/pkg/app"
	"github.com/shashiranjanraj/canteen/pkg/auth"
)

// openScanner returns the fulfillment workflow over the configured backend
// or, when server is set, over the backend that canteen server publishes.
func openScanner(cmd *cobra.Command, server string) (*services.Scanner, func(), error) {
	ctx := cmd.Context()
	if server != "" {
		orders, err := app.RemoteOrders(ctx, server)
		if err != nil {
			return nil, nil, err
		}
		s := services.NewScanner(orders, services.WithScannerLocation(config.AppLocation()))
		return s, func() {}, nil
	}

	a, err := app.Boot(ctx)
	if err != nil {
		return nil, nil, err
	}
	return a.Scanner(), func() { _ = a.Close() }, nil
}

// scanRunner is shared by scan and fulfill; an empty staff name only looks.
func scanRunner(server, staff *string) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		s, done, err := openScanner(cmd, *server)
		if err != nil {
			return err
		}
		defer done()
		return app.ScanOrder(cmd.Context(), s, config.AppLocation(), args[0], *staff, cmd.OutOrStdout())
	}
}

func serverFlag(cmd *cobra.Command, dst *string) {
	cmd.Flags().StringVar(dst, "server", "", "read backend parameters from a running canteen, e.g. https://canteen.example")
}

func newScanCmd() *cobra.Command {
	var server, staff string
	cmd := &cobra.Command{
		Use:   "scan <code>",
		Short: "Show today's order for a QR token",
		Args:  cobra.ExactArgs(1),
		RunE:  scanRunner(&server, &staff),
	}
	serverFlag(cmd, &server)
	return cmd
}

func newFulfillCmd() *cobra.Command {
	var server, staff string
	cmd := &cobra.Command{
		Use:   "fulfill <code> --staff NAME",
		Short: "Hand over today's order for a QR token",
		Args:  cobra.ExactArgs(1),
		RunE:  scanRunner(&server, &staff),
	}
	serverFlag(cmd, &server)
	cmd.Flags().StringVar(&staff, "staff", "", "staff member handing the order over")
	_ = cmd.MarkFlagRequired("staff")
	return cmd
}

func newTokenIssueCmd() *cobra.Command {
	var staff string
	var ttl time.Duration
	cmd := &cobra.Command{
		Use:   "token:issue --staff NAME",
		Short: "Print a scanner API bearer token (needs STAFF_SECRET)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if ttl <= 0 {
				return fmt.Errorf("invalid --ttl %s: must be positive", ttl)
			}
			return app.IssueToken(staff, ttl, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&staff, "staff", "", "staff member the token names")
	cmd.Flags().DurationVar(&ttl, "ttl", auth.DefaultTTL, "token lifetime, e.g. 8h")
	_ = cmd.MarkFlagRequired("staff")
	return cmd
}

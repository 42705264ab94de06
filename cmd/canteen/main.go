// Command canteen runs the canteen ordering server and its maintenance
// tasks.
//
//	canteen serve               # HTTP (+ gRPC when GRPC_PORT is set)
//	canteen migrate             # sql backend schema
//	canteen seed                # demo orders for today
//	canteen scan ORD-...        # look an order up from a terminal
//	canteen fulfill ORD-... --staff Ravi
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	// Migrations register themselves from init().
	_ "github.com/shashiranjanraj/canteen/database/migrations"
)

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "canteen:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "canteen",
		Short:         "QR canteen ordering and fulfillment",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddGroup(
		&cobra.Group{ID: "server", Title: "Server:"},
		&cobra.Group{ID: "db", Title: "Database:"},
		&cobra.Group{ID: "orders", Title: "Orders:"},
	)
	add := func(group string, cmds ...*cobra.Command) {
		for _, c := range cmds {
			c.GroupID = group
			root.AddCommand(c)
		}
	}
	add("server", newServeCmd(), newRouteListCmd())
	add("db", newMigrateCmd(), newRollbackCmd(), newMigrateStatusCmd(), newSeedCmd())
	add("orders", newScanCmd(), newFulfillCmd(), newTokenIssueCmd())
	return root
}

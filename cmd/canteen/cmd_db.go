package main

import (
	"github.com/spf13/cobra"

	"github.com/shashiranjanraj/canteen/database/seeders"
	"github.com/shashiranjanraj/canteen/pkg/app"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending migrations to the sql backend",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return app.Migrate(cmd.OutOrStdout())
		},
	}
}

func newRollbackCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate:rollback",
		Short: "Undo the most recent migration batch",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return app.Rollback(cmd.OutOrStdout())
		},
	}
}

func newMigrateStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate:status",
		Short: "List migrations and the batch each ran in",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return app.MigrationStatus(cmd.OutOrStdout())
		},
	}
}

func newSeedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Place demo orders for today through the configured backend",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := app.Boot(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()
			return seeders.RunAll(cmd.Context(), a.Orders(), cmd.OutOrStdout())
		},
	}
}

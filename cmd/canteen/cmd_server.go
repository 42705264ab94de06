package main

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/shashiranjanraj/canteen/config"
	"github.com/shashiranjanraj/canteen/internal/server"
	"github.com/shashiranjanraj/canteen/pkg/app"
	"github.com/shashiranjanraj/canteen/pkg/clientconfig"
	"github.com/shashiranjanraj/canteen/pkg/logger"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "serve",
		Aliases: []string{"run"},
		Short:   "Start the HTTP server",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := app.Boot(cmd.Context())
			if err != nil {
				msg := "boot failed"
				var ce *clientconfig.ConfigError
				if errors.As(err, &ce) {
					msg = "Failed to initialize app"
				}
				logger.Error(msg, "error", err)
				return err
			}
			defer a.Close()

			return server.Run(cmd.Context(), a, server.Options{
				Port:     config.AppPort(),
				GRPCPort: config.GRPCPort(),
			})
		},
	}
}

// route:list needs no backend, so it builds the router over empty deps.
func newRouteListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "route:list",
		Short: "Print every named route",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := app.New(app.Deps{})
			if err != nil {
				return err
			}
			return app.PrintRoutes(cmd.OutOrStdout(), a.Routes())
		},
	}
}

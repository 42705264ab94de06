// Package server binds the canteen's listeners and shuts them down cleanly
// on SIGINT or SIGTERM.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/shashiranjanraj/canteen/pkg/app"
	"github.com/shashiranjanraj/canteen/pkg/grpc"
	"github.com/shashiranjanraj/canteen/pkg/logger"
)

const shutdownTimeout = 15 * time.Second

// Options picks the listen addresses. GRPCPort empty disables gRPC.
type Options struct {
	Port     string
	GRPCPort string
}

// Run serves a until ctx is cancelled or a termination signal arrives,
// then drains HTTP requests, RPCs and background workers.
func Run(ctx context.Context, a *app.App, opts Options) error {
	lis, err := net.Listen("tcp", ":"+opts.Port)
	if err != nil {
		return fmt.Errorf("server: listen on :%s: %w", opts.Port, err)
	}
	return Serve(ctx, a, lis, opts.GRPCPort)
}

// Serve is Run on an existing listener.
func Serve(ctx context.Context, a *app.App, lis net.Listener, grpcPort string) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	workers, cancelWorkers := context.WithCancel(context.Background())
	defer cancelWorkers()
	a.Start(workers)

	var rpc *grpc.Server
	if grpcPort != "" {
		rpc = grpc.New()
		if err := rpc.Listen(grpcPort); err != nil {
			return err
		}
	}

	srv := &http.Server{
		Handler:           a.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("canteen running", "addr", lis.Addr().String())
		if err := srv.Serve(lis); !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server: serve: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if rpc != nil {
			rpc.Stop()
		}
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("server: http shutdown", "error", err)
		}
		return nil
	})
	serveErr := g.Wait()

	cancelWorkers()
	a.Drain()
	logger.Info("canteen stopped")
	return serveErr
}

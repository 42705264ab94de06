// Package grpc runs the canteen's gRPC endpoint. It carries the standard
// grpc.health.v1.Health service, so load balancers and grpcurl can probe
// the server without going through HTTP.
//
//	srv := grpc.New()
//	if err := srv.Listen(config.GRPCPort()); err != nil { ... }
//	defer srv.Stop()
package grpc

import (
	"context"
	"fmt"
	"net"
	"runtime/debug"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
	"google.golang.org/grpc/status"

	"github.com/shashiranjanraj/canteen/pkg/logger"
	"github.com/shashiranjanraj/canteen/pkg/metrics"
)

// ServiceName can be asked for in health checks besides "".
const ServiceName = "canteen"

type Server struct {
	srv    *grpc.Server
	health *health.Server
}

func New() *Server {
	s := &Server{
		srv: grpc.NewServer(
			grpc.ChainUnaryInterceptor(recoverUnary, observeUnary),
			grpc.MaxRecvMsgSize(1<<20),
		),
		health: health.NewServer(),
	}
	grpc_health_v1.RegisterHealthServer(s.srv, s.health)
	reflection.Register(s.srv)
	s.SetServing(true)
	return s
}

// Listen binds :port and serves in the background.
func (s *Server) Listen(port string) error {
	lis, err := net.Listen("tcp", ":"+port)
	if err != nil {
		return fmt.Errorf("grpc: listen :%s: %w", port, err)
	}
	logger.Info("grpc: listening", "addr", lis.Addr().String())
	s.Serve(lis)
	return nil
}

// Serve accepts on lis in the background.
func (s *Server) Serve(lis net.Listener) {
	go func() {
		if err := s.srv.Serve(lis); err != nil {
			logger.Error("grpc: serve", "error", err)
		}
	}()
}

// SetServing sets the status reported for "" and ServiceName.
func (s *Server) SetServing(ok bool) {
	st := grpc_health_v1.HealthCheckResponse_NOT_SERVING
	if ok {
		st = grpc_health_v1.HealthCheckResponse_SERVING
	}
	s.health.SetServingStatus("", st)
	s.health.SetServingStatus(ServiceName, st)
}

// Stop reports NOT_SERVING, then waits for in-flight calls.
func (s *Server) Stop() {
	if s == nil {
		return
	}
	logger.Info("grpc: stopping")
	s.health.Shutdown()
	s.srv.GracefulStop()
}

func recoverUnary(ctx context.Context, req any, info *grpc.UnaryServerInfo, next grpc.UnaryHandler) (resp any, err error) {
	defer func() {
		if p := recover(); p != nil {
			logger.Error("grpc: panic recovered", "method", info.FullMethod, "panic", p, "stack", string(debug.Stack()))
			err = status.Error(codes.Internal, "internal error")
		}
	}()
	return next(ctx, req)
}

func observeUnary(ctx context.Context, req any, info *grpc.UnaryServerInfo, next grpc.UnaryHandler) (any, error) {
	start := time.Now()
	resp, err := next(ctx, req)
	code := status.Code(err).String()

	metrics.GRPCHandled.WithLabelValues(info.FullMethod, code).Inc()
	metrics.GRPCDuration.WithLabelValues(info.FullMethod).Observe(time.Since(start).Seconds())
	logger.Debug("grpc: call", "method", info.FullMethod, "code", code, "duration", time.Since(start).String())
	return resp, err
}

// Package grpcserver exposes the standard gRPC health service for the todo server.
package grpcserver

import (
	"context"
	"net"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// ServiceName is the health-check name reported alongside the overall "" status.
const ServiceName = "todos.v1.Todos"

// Server serves grpc.health.v1 and, in dev mode, reflection.
type Server struct {
	gs *grpc.Server
	hs *health.Server
}

// New constructs a health server. It reports NOT_SERVING until SetServing(true).
func New(log *zap.Logger, dev bool) *Server {
	gs := grpc.NewServer(
		grpc.ChainUnaryInterceptor(
			RecoverUnary(log),
			LoggingUnary(log),
		),
	)
	hs := health.NewServer()
	healthpb.RegisterHealthServer(gs, hs)
	if dev {
		reflection.Register(gs)
	}

	s := &Server{gs: gs, hs: hs}
	s.SetServing(false)
	return s
}

// SetServing flips both the overall and the named service status.
func (s *Server) SetServing(ok bool) {
	st := healthpb.HealthCheckResponse_NOT_SERVING
	if ok {
		st = healthpb.HealthCheckResponse_SERVING
	}
	s.hs.SetServingStatus("", st)
	s.hs.SetServingStatus(ServiceName, st)
}

// Serve blocks serving on l until Stop.
func (s *Server) Serve(l net.Listener) error {
	return s.gs.Serve(l)
}

// Stop marks every service NOT_SERVING and drains connections; when ctx ends
// first, remaining connections are closed.
func (s *Server) Stop(ctx context.Context) {
	s.hs.Shutdown()

	done := make(chan struct{})
	go func() {
		s.gs.GracefulStop()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		s.gs.Stop()
	}
}

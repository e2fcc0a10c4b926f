package server

import (
	"context"
	"fmt"
	"net"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"stablecore/internal/observability"
)

// GRPCServer exposes the gRPC health protocol for orchestrators that probe
// over gRPC rather than HTTP. Reflection is registered for grpcurl.
type GRPCServer struct {
	srv    *grpc.Server
	health *health.Server
	addr   string
}

func NewGRPCServer(addr string) *GRPCServer {
	srv := grpc.NewServer()

	healthServer := health.NewServer()
	healthpb.RegisterHealthServer(srv, healthServer)
	reflection.Register(srv)

	return &GRPCServer{srv: srv, health: healthServer, addr: addr}
}

// SetServing flips the reported health status.
func (s *GRPCServer) SetServing(serving bool) {
	status := healthpb.HealthCheckResponse_NOT_SERVING
	if serving {
		status = healthpb.HealthCheckResponse_SERVING
	}
	s.health.SetServingStatus("", status)
}

// Start serves until ctx is cancelled, then stops gracefully.
func (s *GRPCServer) Start(ctx context.Context) error {
	lis, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("grpc listen: %w", err)
	}

	go func() {
		<-ctx.Done()
		s.srv.GracefulStop()
	}()

	logger := observability.NewLogger("grpc")
	logger.Info().Str("addr", s.addr).Msg("grpc server listening")
	return s.srv.Serve(lis)
}

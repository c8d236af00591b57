// Package grpc implements the gRPC listener for voxbridge.
//
// It serves the standard grpc.health.v1.Health service so orchestrators and
// load balancers that speak gRPC health checks can probe the daemon. Status
// follows the shared readiness flag in the health package.
package grpc

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"sync"

	"google.golang.org/grpc"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/nadzzz/voxbridge/internal/health"
)

// Transport implements transport.Transport over gRPC.
type Transport struct {
	port    int
	checker *health.Checker

	mu     sync.Mutex
	server *grpc.Server
}

// New creates a gRPC transport on the given port.
func New(port int, checker *health.Checker) *Transport {
	return &Transport{port: port, checker: checker}
}

// Name returns the transport identifier.
func (t *Transport) Name() string { return "grpc" }

// Listen starts the gRPC server. It blocks until the context is cancelled.
func (t *Transport) Listen(ctx context.Context) error {
	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", t.port))
	if err != nil {
		return fmt.Errorf("grpc listen: %w", err)
	}
	return t.Serve(ctx, lis)
}

// Serve runs the gRPC server on an existing listener.
func (t *Transport) Serve(ctx context.Context, lis net.Listener) error {
	server := grpc.NewServer()
	healthpb.RegisterHealthServer(server, t.checker.GRPCServer())
	reflection.Register(server)

	t.mu.Lock()
	t.server = server
	t.mu.Unlock()

	slog.Info("grpc transport listening", "addr", lis.Addr().String())

	go func() {
		<-ctx.Done()
		slog.Info("grpc transport shutting down")
		server.GracefulStop()
	}()

	if err := server.Serve(lis); err != nil && err != grpc.ErrServerStopped {
		return fmt.Errorf("grpc serve: %w", err)
	}
	return nil
}

// Close gracefully stops the gRPC server.
func (t *Transport) Close() error {
	t.mu.Lock()
	server := t.server
	t.mu.Unlock()
	if server != nil {
		server.GracefulStop()
	}
	return nil
}

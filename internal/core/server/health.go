// Package server hosts the daemon's network surfaces and its cycle loop.
package server

import (
	"context"
	"fmt"
	"net"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
)

// HealthServer exposes the standard gRPC health service. It starts
// NOT_SERVING and is flipped by the scheduler after each cycle.
type HealthServer struct {
	server   *grpc.Server
	health   *health.Server
	addr     string
	listener net.Listener
}

// NewHealthServer creates a health-only gRPC server bound to addr on Start.
func NewHealthServer(addr string) (*HealthServer, error) {
	if addr == "" {
		return nil, fmt.Errorf("addr cannot be empty")
	}

	server := grpc.NewServer()
	healthServer := health.NewServer()
	grpc_health_v1.RegisterHealthServer(server, healthServer)
	healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_NOT_SERVING)

	return &HealthServer{
		server: server,
		health: healthServer,
		addr:   addr,
	}, nil
}

// SetServing updates the overall serving status.
func (s *HealthServer) SetServing(ok bool) {
	status := grpc_health_v1.HealthCheckResponse_NOT_SERVING
	if ok {
		status = grpc_health_v1.HealthCheckResponse_SERVING
	}
	s.health.SetServingStatus("", status)
}

// Listen binds the listener without serving, so callers can learn the
// address when addr uses port 0.
func (s *HealthServer) Listen() (net.Addr, error) {
	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return nil, fmt.Errorf("failed to bind %s: %w", s.addr, err)
	}
	s.listener = listener
	return listener.Addr(), nil
}

// Start serves gRPC requests, binding first if Listen was not called.
// It blocks until Shutdown is called.
func (s *HealthServer) Start() error {
	if s.listener == nil {
		if _, err := s.Listen(); err != nil {
			return err
		}
	}
	return s.server.Serve(s.listener)
}

// Shutdown gracefully stops server with 30-second timeout.
func (s *HealthServer) Shutdown(ctx context.Context) error {
	s.health.Shutdown()

	stopped := make(chan struct{})
	go func() {
		s.server.GracefulStop()
		close(stopped)
	}()

	select {
	case <-stopped:
		return nil
	case <-ctx.Done():
		s.server.Stop()
		return fmt.Errorf("shutdown cancelled by context: %w", ctx.Err())
	case <-time.After(30 * time.Second):
		s.server.Stop()
		return fmt.Errorf("graceful shutdown timeout, forced stop")
	}
}

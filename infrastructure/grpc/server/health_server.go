// Package server exposes the standard gRPC health service of the chat server.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"time"

	grpc3 "github.com/mama165/sdk-go/grpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// HealthServer is a supervised worker: it serves SERVING while running
// and flips to NOT_SERVING before stopping.
type HealthServer struct {
	port   int
	health *health.Server
	log    *slog.Logger
}

func NewHealthServer(port int, log *slog.Logger) *HealthServer {
	return &HealthServer{port: port, health: health.NewServer(), log: log}
}

func (s *HealthServer) Run(ctx context.Context) error {
	address := fmt.Sprintf("0.0.0.0:%d", s.port)
	listener, err := net.Listen("tcp", address)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", address, err)
	}
	return s.Serve(ctx, listener)
}

// Serve blocks until ctx is done or the server fails.
func (s *HealthServer) Serve(ctx context.Context, listener net.Listener) error {
	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(grpc3.UnaryLoggingInterceptor(s.log)))
	healthpb.RegisterHealthServer(srv, s.health)
	s.health.Resume()

	errChan := make(chan error, 1)
	go func() {
		s.log.Info("Starting gRPC health server", "address", listener.Addr().String(), "at", time.Now().UTC())
		if err := srv.Serve(listener); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			errChan <- fmt.Errorf("gRPC server error: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		s.health.Shutdown()
		srv.GracefulStop()
		s.log.Info("gRPC health server stopped")
		return nil
	case err := <-errChan:
		s.health.Shutdown()
		return err
	}
}

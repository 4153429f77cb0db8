package control

import (
	"context"
	"errors"
	"net"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// Health service names. The empty name reports the process as a whole.
const (
	ServiceProcess = ""
	ServiceEvents  = "crabshell.events"
	ServiceWorkers = "crabshell.workers"
)

// Services lists every service a Server reports, in display order.
var Services = []string{ServiceProcess, ServiceEvents, ServiceWorkers}

type Server struct {
	grpc   *grpc.Server
	health *health.Server
}

// NewServer reports the process as serving and every component as not yet
// serving.
func NewServer() *Server {
	s := &Server{
		grpc:   grpc.NewServer(),
		health: health.NewServer(),
	}
	healthpb.RegisterHealthServer(s.grpc, s.health)
	s.health.SetServingStatus(ServiceProcess, healthpb.HealthCheckResponse_SERVING)
	s.health.SetServingStatus(ServiceEvents, healthpb.HealthCheckResponse_NOT_SERVING)
	s.health.SetServingStatus(ServiceWorkers, healthpb.HealthCheckResponse_NOT_SERVING)
	return s
}

// SetServing flips one component's reported status.
func (s *Server) SetServing(service string, serving bool) {
	status := healthpb.HealthCheckResponse_NOT_SERVING
	if serving {
		status = healthpb.HealthCheckResponse_SERVING
	}
	s.health.SetServingStatus(service, status)
}

// Serve answers health checks on listener until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, listener net.Listener) error {
	stopped := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			s.health.Shutdown()
			s.grpc.GracefulStop()
		case <-stopped:
		}
	}()
	defer close(stopped)

	err := s.grpc.Serve(listener)
	if err == nil || errors.Is(err, grpc.ErrServerStopped) || ctx.Err() != nil {
		return nil
	}
	return err
}

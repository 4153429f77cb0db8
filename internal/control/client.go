package control

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/connectivity"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
)

// Report values for a missing or broken owner.
const (
	// StatusStopped is reported for every service when no owner is listening.
	StatusStopped = "STOPPED"
	// StatusUnreachable is reported for every service when something holds
	// the socket but never completes the health handshake.
	StatusUnreachable = "UNREACHABLE"
)

// UnreachableError means the control socket accepted a connection but the
// health channel never became ready.
type UnreachableError struct {
	Path  string
	State connectivity.State
	Err   error
}

func (e *UnreachableError) Error() string {
	msg := fmt.Sprintf("control socket %s unreachable (%s)", e.Path, e.State)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *UnreachableError) Unwrap() error {
	return e.Err
}

// ServiceStatus is one line of a status report.
type ServiceStatus struct {
	Service string
	Status  string
}

// Name returns the display name; the process-wide entry is "crabshell".
func (s ServiceStatus) Name() string {
	if s.Service == ServiceProcess {
		return "crabshell"
	}
	return s.Service
}

// Probe checks whether a responsive owner is currently listening on path.
// A missing socket or refused connection is a definite "no"; an owner that
// accepts but never answers is reported as an error.
func Probe(ctx context.Context, path string, timeout time.Duration) (bool, error) {
	raw, err := net.DialTimeout("unix", path, timeout)
	if err != nil {
		if isSocketGone(err) {
			return false, nil
		}
		return false, fmt.Errorf("probe socket: %w", err)
	}
	_ = raw.Close()

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if _, err := checkAll(ctx, path, []string{ServiceProcess}); err != nil {
		return false, fmt.Errorf("probe socket: %w", err)
	}
	return true, nil
}

// Status queries every known service. A missing owner reports each service
// as StatusStopped and an unresponsive one as StatusUnreachable.
func Status(ctx context.Context, path string, timeout time.Duration) ([]ServiceStatus, error) {
	alive, err := Probe(ctx, path, timeout)
	var unreachable *UnreachableError
	if errors.As(err, &unreachable) {
		return EveryService(StatusUnreachable), nil
	}
	if err != nil {
		return nil, err
	}
	if !alive {
		return EveryService(StatusStopped), nil
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return checkAll(ctx, path, Services)
}

// EveryService reports status for each of Services.
func EveryService(status string) []ServiceStatus {
	out := make([]ServiceStatus, 0, len(Services))
	for _, service := range Services {
		out = append(out, ServiceStatus{Service: service, Status: status})
	}
	return out
}

func checkAll(ctx context.Context, path string, services []string) ([]ServiceStatus, error) {
	conn, err := dialHealth(ctx, path)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	client := healthpb.NewHealthClient(conn)
	out := make([]ServiceStatus, 0, len(services))
	for _, service := range services {
		resp, err := client.Check(ctx, &healthpb.HealthCheckRequest{Service: service})
		switch {
		case status.Code(err) == codes.NotFound:
			out = append(out, ServiceStatus{Service: service, Status: healthpb.HealthCheckResponse_SERVICE_UNKNOWN.String()})
		case err != nil:
			return nil, fmt.Errorf("health check %q: %w", service, err)
		default:
			out = append(out, ServiceStatus{Service: service, Status: resp.GetStatus().String()})
		}
	}
	return out, nil
}

// dialHealth returns a Ready channel to the socket's health service. A
// channel that fails or stalls before Ready yields *UnreachableError.
func dialHealth(ctx context.Context, path string) (*grpc.ClientConn, error) {
	conn, err := grpc.NewClient(
		"unix://"+path,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		return nil, fmt.Errorf("dial control socket %q: %w", path, err)
	}

	conn.Connect()
	for {
		state := conn.GetState()
		switch state {
		case connectivity.Ready:
			return conn, nil
		case connectivity.TransientFailure, connectivity.Shutdown:
			_ = conn.Close()
			return nil, &UnreachableError{Path: path, State: state}
		}

		if !conn.WaitForStateChange(ctx, state) {
			_ = conn.Close()
			return nil, &UnreachableError{Path: path, State: state, Err: ctx.Err()}
		}
	}
}

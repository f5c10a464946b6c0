// Package handler serves the standard grpc.health.v1 Health service for the console, driven by
// readiness checks of its dependencies.
package handler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

const checkTimeout = 3 * time.Second

// Pinger checks a dependency (e.g. *sql.DB).
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Check is one named readiness check.
type Check struct {
	Name string
	Fn   func(ctx context.Context) error
}

// PingerCheck adapts a Pinger to a Check.
func PingerCheck(name string, p Pinger) Check {
	return Check{Name: name, Fn: p.PingContext}
}

// Server owns the health status of the console services. Status is updated by Refresh, not per RPC,
// so health probes never wait on dependencies.
type Server struct {
	health   *health.Server
	services []string
	checks   []Check

	mu      sync.Mutex
	lastErr error
}

// NewServer returns a Server reporting on services (the empty name is always included).
// Until the first Refresh every service reports SERVING.
func NewServer(services []string, checks ...Check) *Server {
	s := &Server{
		health:   health.NewServer(),
		services: append([]string{""}, services...),
		checks:   checks,
	}
	for _, svc := range s.services {
		s.health.SetServingStatus(svc, healthpb.HealthCheckResponse_SERVING)
	}
	return s
}

// Register registers the Health service on r.
func (s *Server) Register(r grpc.ServiceRegistrar) {
	healthpb.RegisterHealthServer(r, s.health)
}

// Refresh runs every check and sets all services SERVING or NOT_SERVING. It returns the joined
// check failures.
func (s *Server) Refresh(ctx context.Context) error {
	var errs []error
	for _, c := range s.checks {
		checkCtx, cancel := context.WithTimeout(ctx, checkTimeout)
		err := c.Fn(checkCtx)
		cancel()
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", c.Name, err))
		}
	}
	err := errors.Join(errs...)

	st := healthpb.HealthCheckResponse_SERVING
	if err != nil {
		st = healthpb.HealthCheckResponse_NOT_SERVING
	}
	for _, svc := range s.services {
		s.health.SetServingStatus(svc, st)
	}

	s.mu.Lock()
	changed := (err == nil) != (s.lastErr == nil)
	s.lastErr = err
	s.mu.Unlock()
	if changed {
		if err != nil {
			slog.Warn("readiness lost", "component", "health", "error", err)
		} else {
			slog.Info("readiness restored", "component", "health")
		}
	}
	return err
}

// Shutdown sets every service NOT_SERVING and ignores later updates.
func (s *Server) Shutdown() {
	s.health.Shutdown()
}

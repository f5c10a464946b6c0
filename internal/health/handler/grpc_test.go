package handler

import (
	"context"
	"errors"
	"testing"

	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// mockPinger implements Pinger for tests.
type mockPinger struct {
	pingErr error
}

func (m *mockPinger) PingContext(context.Context) error {
	return m.pingErr
}

func status(t *testing.T, s *Server, service string) healthpb.HealthCheckResponse_ServingStatus {
	t.Helper()
	resp, err := s.health.Check(context.Background(), &healthpb.HealthCheckRequest{Service: service})
	if err != nil {
		t.Fatalf("Check(%q): %v", service, err)
	}
	return resp.GetStatus()
}

func TestRefresh_NoChecks(t *testing.T) {
	srv := NewServer([]string{"issuance.v1.IssuanceService"})
	if err := srv.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if got := status(t, srv, ""); got != healthpb.HealthCheckResponse_SERVING {
		t.Errorf("status = %v, want SERVING", got)
	}
}

func TestRefresh_PingerFailure(t *testing.T) {
	db := &mockPinger{pingErr: errors.New("connection refused")}
	srv := NewServer([]string{"issuance.v1.IssuanceService"}, PingerCheck("postgres", db))

	err := srv.Refresh(context.Background())
	if err == nil {
		t.Fatal("Refresh: want error")
	}
	if got := status(t, srv, "issuance.v1.IssuanceService"); got != healthpb.HealthCheckResponse_NOT_SERVING {
		t.Errorf("status = %v, want NOT_SERVING", got)
	}

	db.pingErr = nil
	if err := srv.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh after recovery: %v", err)
	}
	if got := status(t, srv, ""); got != healthpb.HealthCheckResponse_SERVING {
		t.Errorf("status = %v, want SERVING", got)
	}
}

func TestRefresh_AnyCheckFailing(t *testing.T) {
	srv := NewServer(nil,
		PingerCheck("postgres", &mockPinger{}),
		Check{Name: "backend", Fn: func(context.Context) error { return errors.New("timeout") }},
	)
	err := srv.Refresh(context.Background())
	if err == nil || err.Error() != "backend: timeout" {
		t.Errorf("Refresh err = %v, want backend: timeout", err)
	}
}

func TestShutdown_NotServing(t *testing.T) {
	srv := NewServer(nil)
	srv.Shutdown()
	if got := status(t, srv, ""); got != healthpb.HealthCheckResponse_NOT_SERVING {
		t.Errorf("status = %v, want NOT_SERVING", got)
	}
}

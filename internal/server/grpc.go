// Package server assembles the console gRPC server: interceptors, IssuanceService and health.
package server

import (
	"log/slog"

	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	healthgrpc "google.golang.org/grpc/health/grpc_health_v1"

	"session-issuance-console/internal/audit"
	healthhandler "session-issuance-console/internal/health/handler"
	issuancehandler "session-issuance-console/internal/issuance/handler"
	"session-issuance-console/internal/server/interceptors"
)

// Deps holds service dependencies for the gRPC server.
type Deps struct {
	// Issuance serves IssuanceService. Required.
	Issuance issuancehandler.IssuanceServiceServer
	// Health serves grpc.health.v1.Health. If nil, the health service is not registered.
	Health *healthhandler.Server
	// Audit records RPCs. If nil, no RPCs are audited.
	Audit audit.AuditLogger
	// Logger receives the per-RPC log line. If nil, slog.Default is used.
	Logger *slog.Logger
}

// quietMethods are neither audited nor logged per call.
var quietMethods = map[string]bool{
	healthgrpc.Health_Check_FullMethodName: true,
	healthgrpc.Health_List_FullMethodName:  true,
}

// NewServer returns a gRPC server with OTel instrumentation and the console interceptor chain
// (request id, access log, audit), with every service in deps registered.
func NewServer(deps Deps, opts ...grpc.ServerOption) *grpc.Server {
	base := []grpc.ServerOption{
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.ChainUnaryInterceptor(
			interceptors.RequestIDUnary(),
			interceptors.TelemetryUnary(deps.Logger, quietMethods),
			interceptors.AuditUnary(deps.Audit, quietMethods),
		),
	}
	s := grpc.NewServer(append(base, opts...)...)
	RegisterServices(s, deps)
	return s
}

// RegisterServices registers the console services with the given registrar.
//
// Service → handler mapping:
//   - issuance.v1.IssuanceService → internal/issuance/handler
//   - grpc.health.v1.Health       → internal/health/handler
func RegisterServices(s grpc.ServiceRegistrar, deps Deps) {
	if deps.Issuance != nil {
		issuancehandler.RegisterIssuanceServiceServer(s, deps.Issuance)
	}
	if deps.Health != nil {
		deps.Health.Register(s)
	}
}

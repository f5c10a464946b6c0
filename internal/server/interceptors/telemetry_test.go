package interceptors

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestTelemetryUnary_LogsOneLinePerRPC(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	interceptor := TelemetryUnary(logger, nil)
	ctx := WithRequestID(context.Background(), "req-7")

	_, err := interceptor(ctx, nil, &grpc.UnaryServerInfo{
		FullMethod: "/issuance.v1.IssuanceService/RequestOtp",
	}, func(ctx context.Context, req interface{}) (interface{}, error) {
		return nil, status.Error(codes.Unavailable, "down")
	})
	if status.Code(err) != codes.Unavailable {
		t.Fatalf("code = %v, want Unavailable", status.Code(err))
	}

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("log line: %v (%q)", err, buf.String())
	}
	checks := map[string]string{
		"level":       "WARN",
		"component":   "grpc",
		"full_method": "/issuance.v1.IssuanceService/RequestOtp",
		"status_code": "Unavailable",
		"request_id":  "req-7",
	}
	for k, want := range checks {
		if got, _ := line[k].(string); got != want {
			t.Errorf("%s = %q, want %q", k, got, want)
		}
	}
}

func TestTelemetryUnary_SkipMethod(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	interceptor := TelemetryUnary(logger, map[string]bool{"/grpc.health.v1.Health/Check": true})

	resp, err := interceptor(context.Background(), nil, &grpc.UnaryServerInfo{
		FullMethod: "/grpc.health.v1.Health/Check",
	}, func(ctx context.Context, req interface{}) (interface{}, error) {
		return "ok", nil
	})
	if err != nil || resp != "ok" {
		t.Fatalf("interceptor = (%v, %v), want (ok, nil)", resp, err)
	}
	if buf.Len() != 0 {
		t.Errorf("log output = %q, want empty", buf.String())
	}
}

func TestLevelFor(t *testing.T) {
	tests := []struct {
		code codes.Code
		want slog.Level
	}{
		{codes.OK, slog.LevelInfo},
		{codes.InvalidArgument, slog.LevelWarn},
		{codes.FailedPrecondition, slog.LevelWarn},
		{codes.Internal, slog.LevelError},
		{codes.Unknown, slog.LevelError},
	}
	for _, tt := range tests {
		if got := levelFor(tt.code); got != tt.want {
			t.Errorf("levelFor(%v) = %v, want %v", tt.code, got, tt.want)
		}
	}
}

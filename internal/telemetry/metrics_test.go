package telemetry

import (
	"context"
	"testing"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]int64 {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect: %v", err)
	}
	totals := make(map[string]int64)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			sum, ok := m.Data.(metricdata.Sum[int64])
			if !ok {
				continue
			}
			for _, dp := range sum.DataPoints {
				totals[m.Name] += dp.Value
			}
		}
	}
	return totals
}

func TestMetrics_Counts(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	m, err := NewMetrics(provider)
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	ctx := context.Background()
	m.Operation(ctx, "request_otp", "AWAITING_OTP", "ok")
	m.Operation(ctx, "submit_otp", "AWAITING_OTP", "SERVICE_REJECTION")
	m.Finalize(ctx, "ok")

	totals := collect(t, reader)
	if totals["issuance.transitions"] != 2 {
		t.Errorf("issuance.transitions = %d, want 2", totals["issuance.transitions"])
	}
	if totals["issuance.finalize.outcomes"] != 1 {
		t.Errorf("issuance.finalize.outcomes = %d, want 1", totals["issuance.finalize.outcomes"])
	}
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	m.Operation(context.Background(), "x", "y", "ok")
	m.Finalize(context.Background(), "ok")
}

package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "session-issuance-console/issuance"

// Metrics records issuance counters. A nil *Metrics records nothing.
type Metrics struct {
	operations metric.Int64Counter
	finalize   metric.Int64Counter
}

// NewMetrics creates the counters on provider, or on the global MeterProvider when provider is nil.
func NewMetrics(provider metric.MeterProvider) (*Metrics, error) {
	if provider == nil {
		provider = otel.GetMeterProvider()
	}
	meter := provider.Meter(meterName)
	ops, err := meter.Int64Counter("issuance.transitions",
		metric.WithDescription("Issuance operations by operation, resulting stage and outcome"))
	if err != nil {
		return nil, err
	}
	fin, err := meter.Int64Counter("issuance.finalize.outcomes",
		metric.WithDescription("Inventory finalize attempts by outcome"))
	if err != nil {
		return nil, err
	}
	return &Metrics{operations: ops, finalize: fin}, nil
}

// Operation counts one completed operation. outcome is "ok" or an error kind.
func (m *Metrics) Operation(ctx context.Context, op, stage, outcome string) {
	if m == nil {
		return
	}
	m.operations.Add(ctx, 1, metric.WithAttributes(
		attribute.String("operation", op),
		attribute.String("stage", stage),
		attribute.String("outcome", outcome),
	))
}

// Finalize counts one finalize attempt.
func (m *Metrics) Finalize(ctx context.Context, outcome string) {
	if m == nil {
		return
	}
	m.finalize.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

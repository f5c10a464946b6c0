// Package producer defines the interface for streaming issuance events (e.g. to Kafka).
package producer

import (
	"context"

	"session-issuance-console/internal/telemetry/domain"
)

// Producer emits issuance events. Callers use it best-effort: log and ignore errors.
type Producer interface {
	// Emit sends a single event. Implementations may block briefly; call from a goroutine if needed.
	Emit(ctx context.Context, event *domain.IssuanceEvent) error
	// Close releases resources (e.g. Kafka writer). Safe to call if already closed.
	Close() error
}

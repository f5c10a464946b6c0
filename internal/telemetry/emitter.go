package telemetry

import (
	"context"
	"errors"

	"session-issuance-console/internal/telemetry/domain"
)

// EventEmitter emits issuance events (e.g. to OTel Logs or Kafka). Best-effort; callers log and ignore errors.
type EventEmitter interface {
	Emit(ctx context.Context, event *domain.IssuanceEvent) error
}

// Fanout sends each event to every emitter and joins their errors. Nil entries are skipped.
type Fanout []EventEmitter

// Emit implements EventEmitter.
func (f Fanout) Emit(ctx context.Context, event *domain.IssuanceEvent) error {
	var errs []error
	for _, e := range f {
		if e == nil {
			continue
		}
		if err := e.Emit(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

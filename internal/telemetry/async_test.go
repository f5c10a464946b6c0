package telemetry

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"session-issuance-console/internal/telemetry/domain"
)

// mockEventEmitter implements EventEmitter for tests.
type mockEventEmitter struct {
	mu      sync.Mutex
	events  []*domain.IssuanceEvent
	emitErr error
	delay   time.Duration
}

func (m *mockEventEmitter) Emit(ctx context.Context, event *domain.IssuanceEvent) error {
	if m.delay > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(m.delay):
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
	return m.emitErr
}

func (m *mockEventEmitter) getEvents() []*domain.IssuanceEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*domain.IssuanceEvent(nil), m.events...)
}

func waitForEvents(t *testing.T, m *mockEventEmitter, n int) []*domain.IssuanceEvent {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if ev := m.getEvents(); len(ev) >= n {
			return ev
		}
		time.Sleep(5 * time.Millisecond)
	}
	return m.getEvents()
}

func TestEmitAsync_NilEmitter(t *testing.T) {
	// Should not panic
	EmitAsync(nil, context.Background(), &domain.IssuanceEvent{Handle: "h1", EventType: "test"})
}

func TestEmitAsync_NilEvent(t *testing.T) {
	emitter := &mockEventEmitter{}
	EmitAsync(emitter, context.Background(), nil)

	time.Sleep(10 * time.Millisecond)
	if events := emitter.getEvents(); len(events) != 0 {
		t.Errorf("expected 0 events, got %d", len(events))
	}
}

func TestEmitAsync_SuccessfulEmit(t *testing.T) {
	emitter := &mockEventEmitter{}
	event := &domain.IssuanceEvent{
		Handle:    "h1",
		SessionID: "s1",
		EventType: domain.EventOtpDispatched,
		Stage:     "AWAITING_OTP",
	}

	EmitAsync(emitter, context.Background(), event)

	events := waitForEvents(t, emitter, 1)
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	if events[0].Handle != "h1" {
		t.Errorf("event handle = %q, want %q", events[0].Handle, "h1")
	}
	if events[0].EventType != domain.EventOtpDispatched {
		t.Errorf("event type = %q, want %q", events[0].EventType, domain.EventOtpDispatched)
	}
	if events[0].CreatedAt.IsZero() {
		t.Error("CreatedAt should be stamped")
	}
}

func TestEmitAsync_UsesBackgroundContext(t *testing.T) {
	emitter := &mockEventEmitter{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// Should still emit even though the caller's context is cancelled
	EmitAsync(emitter, ctx, &domain.IssuanceEvent{Handle: "h1", EventType: "test"})

	if events := waitForEvents(t, emitter, 1); len(events) != 1 {
		t.Errorf("expected 1 event (context.Background used), got %d", len(events))
	}
}

func TestEmitAsync_ErrorHandling(t *testing.T) {
	emitter := &mockEventEmitter{emitErr: context.DeadlineExceeded}

	// Should not panic on error
	EmitAsync(emitter, context.Background(), &domain.IssuanceEvent{Handle: "h1", EventType: "test"})
	waitForEvents(t, emitter, 1)
}

func TestEmitAsync_ConcurrentAccess(t *testing.T) {
	emitter := &mockEventEmitter{}

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			EmitAsync(emitter, context.Background(), &domain.IssuanceEvent{Handle: "h1", EventType: "test"})
		}()
	}
	wg.Wait()

	if events := waitForEvents(t, emitter, 10); len(events) != 10 {
		t.Errorf("expected 10 events, got %d", len(events))
	}
}

func TestFanout_EmitsToAllAndJoinsErrors(t *testing.T) {
	ok := &mockEventEmitter{}
	failing := &mockEventEmitter{emitErr: errors.New("kafka down")}
	f := Fanout{ok, nil, failing}

	err := f.Emit(context.Background(), &domain.IssuanceEvent{Handle: "h1", EventType: "test"})
	if err == nil || err.Error() != "kafka down" {
		t.Errorf("Emit err = %v, want kafka down", err)
	}
	if len(ok.getEvents()) != 1 || len(failing.getEvents()) != 1 {
		t.Errorf("events = %d/%d, want 1/1", len(ok.getEvents()), len(failing.getEvents()))
	}
}

package audit

import (
	"context"
	"errors"
	"testing"
	"time"

	"session-issuance-console/internal/audit/domain"
)

// mockAuditRepo implements the audit repository interface for tests.
type mockAuditRepo struct {
	entries   []*domain.AuditLog
	createErr error
}

func (m *mockAuditRepo) Create(ctx context.Context, entry *domain.AuditLog) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.entries = append(m.entries, entry)
	return nil
}

func (m *mockAuditRepo) ListByHandle(ctx context.Context, handle string, limit int32) ([]*domain.AuditLog, error) {
	var out []*domain.AuditLog
	for _, e := range m.entries {
		if e.Handle == handle {
			out = append(out, e)
		}
	}
	return out, nil
}

func TestLogger_LogEvent_Success(t *testing.T) {
	repo := &mockAuditRepo{}
	logger := NewLogger(repo, func(ctx context.Context) string { return "192.168.1.1" })
	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.FixedZone("IST", 5*3600+1800))
	logger.now = func() time.Time { return fixed }

	logger.LogEvent(context.Background(), Event{
		Handle:      "h-1",
		Action:      "submit_otp",
		Resource:    "issuance",
		PhoneMasked: "+91******3210",
		Metadata:    `{"code":"OK"}`,
	})

	if len(repo.entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(repo.entries))
	}
	entry := repo.entries[0]
	if entry.Handle != "h-1" {
		t.Errorf("handle = %q, want %q", entry.Handle, "h-1")
	}
	if entry.Action != "submit_otp" {
		t.Errorf("action = %q, want %q", entry.Action, "submit_otp")
	}
	if entry.Resource != "issuance" {
		t.Errorf("resource = %q, want %q", entry.Resource, "issuance")
	}
	if entry.PhoneMasked != "+91******3210" {
		t.Errorf("phone_masked = %q, want %q", entry.PhoneMasked, "+91******3210")
	}
	if entry.IP != "192.168.1.1" {
		t.Errorf("ip = %q, want %q", entry.IP, "192.168.1.1")
	}
	if entry.Metadata != `{"code":"OK"}` {
		t.Errorf("metadata = %q, want %q", entry.Metadata, `{"code":"OK"}`)
	}
	if entry.ID == "" {
		t.Error("entry ID should be set")
	}
	if !entry.CreatedAt.Equal(fixed) || entry.CreatedAt.Location() != time.UTC {
		t.Errorf("created_at = %v, want %v in UTC", entry.CreatedAt, fixed)
	}
}

func TestLogger_LogEvent_NilIPExtractor(t *testing.T) {
	repo := &mockAuditRepo{}
	NewLogger(repo, nil).LogEvent(context.Background(), Event{Action: "begin_issuance", Resource: "issuance"})

	if len(repo.entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(repo.entries))
	}
	if repo.entries[0].IP != "unknown" {
		t.Errorf("ip = %q, want %q", repo.entries[0].IP, "unknown")
	}
}

func TestLogger_LogEvent_UniqueIDs(t *testing.T) {
	repo := &mockAuditRepo{}
	logger := NewLogger(repo, nil)
	logger.LogEvent(context.Background(), Event{Handle: "h-1", Action: "request_otp"})
	logger.LogEvent(context.Background(), Event{Handle: "h-1", Action: "submit_otp"})

	got, _ := repo.ListByHandle(context.Background(), "h-1", 0)
	if len(got) != 2 {
		t.Fatalf("entries = %d, want 2", len(got))
	}
	if got[0].ID == got[1].ID {
		t.Errorf("ids should differ, both %q", got[0].ID)
	}
}

func TestLogger_LogEvent_RepositoryError(t *testing.T) {
	repo := &mockAuditRepo{createErr: errors.New("database error")}
	// Must not panic; failures are only logged.
	NewLogger(repo, nil).LogEvent(context.Background(), Event{Action: "submit_otp"})
	if len(repo.entries) != 0 {
		t.Errorf("entries = %d, want 0", len(repo.entries))
	}
}

func TestLogger_LogEvent_NilRepo(t *testing.T) {
	NewLogger(nil, nil).LogEvent(context.Background(), Event{Action: "submit_otp"})

	var l *Logger
	l.LogEvent(context.Background(), Event{Action: "submit_otp"})
}

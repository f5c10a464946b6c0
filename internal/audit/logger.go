package audit

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"session-issuance-console/internal/audit/domain"
	auditrepo "session-issuance-console/internal/audit/repository"
)

// IPExtractor returns the client IP from the request context (e.g. gRPC metadata or peer).
type IPExtractor func(context.Context) string

// Event is one auditable action. PhoneMasked must already be masked.
type Event struct {
	Handle      string
	Action      string
	Resource    string
	PhoneMasked string
	Metadata    string
}

// AuditLogger writes a single audit event. LogEvent is best-effort: failures are logged and do not
// affect the caller.
type AuditLogger interface {
	LogEvent(ctx context.Context, ev Event)
}

// Logger implements AuditLogger using the audit repository and an optional IP extractor.
type Logger struct {
	repo        auditrepo.Repository
	ipExtractor IPExtractor
	now         func() time.Time
}

// NewLogger returns an AuditLogger that persists to repo and uses ipExtractor for client IP.
// ipExtractor may be nil; then IP is recorded as "unknown".
func NewLogger(repo auditrepo.Repository, ipExtractor IPExtractor) *Logger {
	return &Logger{repo: repo, ipExtractor: ipExtractor, now: time.Now}
}

// LogEvent writes one audit log entry. No-op when the logger or its repository is nil.
func (l *Logger) LogEvent(ctx context.Context, ev Event) {
	if l == nil || l.repo == nil {
		return
	}
	ip := "unknown"
	if l.ipExtractor != nil {
		ip = l.ipExtractor(ctx)
	}
	entry := &domain.AuditLog{
		ID:          uuid.New().String(),
		Handle:      ev.Handle,
		Action:      ev.Action,
		Resource:    ev.Resource,
		PhoneMasked: ev.PhoneMasked,
		IP:          ip,
		Metadata:    ev.Metadata,
		CreatedAt:   l.now().UTC(),
	}
	if err := l.repo.Create(ctx, entry); err != nil {
		slog.Warn("audit: failed to log event", "component", "audit", "action", ev.Action, "resource", ev.Resource, "error", err)
	}
}

package repository

import (
	"context"

	"session-issuance-console/internal/audit/domain"
)

// Repository defines persistence for audit logs.
type Repository interface {
	Create(ctx context.Context, a *domain.AuditLog) error
	ListByHandle(ctx context.Context, handle string, limit int32) ([]*domain.AuditLog, error)
}

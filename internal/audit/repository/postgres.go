package repository

import (
	"context"
	"database/sql"

	"session-issuance-console/internal/audit/domain"
)

const (
	insertAuditLog = `INSERT INTO issuance_audit_logs (id, handle, action, resource, phone_masked, ip, metadata, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	listAuditLogsByHandle = `SELECT id, handle, action, resource, phone_masked, ip, metadata, created_at
FROM issuance_audit_logs
WHERE handle = $1
ORDER BY created_at DESC
LIMIT $2`
)

// DefaultListLimit is used when ListByHandle is called with a non-positive limit.
const DefaultListLimit = 50

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns an audit log repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create persists the audit log. The audit log must have ID set.
func (r *PostgresRepository) Create(ctx context.Context, a *domain.AuditLog) error {
	_, err := r.db.ExecContext(ctx, insertAuditLog,
		a.ID, nullString(a.Handle), a.Action, a.Resource, nullString(a.PhoneMasked), a.IP, nullString(a.Metadata), a.CreatedAt)
	return err
}

// ListByHandle returns the newest audit logs for handle, at most limit rows.
func (r *PostgresRepository) ListByHandle(ctx context.Context, handle string, limit int32) ([]*domain.AuditLog, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	rows, err := r.db.QueryContext(ctx, listAuditLogsByHandle, handle, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.AuditLog
	for rows.Next() {
		var (
			a              domain.AuditLog
			h, phone, meta sql.NullString
		)
		if err := rows.Scan(&a.ID, &h, &a.Action, &a.Resource, &phone, &a.IP, &meta, &a.CreatedAt); err != nil {
			return nil, err
		}
		a.Handle, a.PhoneMasked, a.Metadata = h.String, phone.String, meta.String
		out = append(out, &a)
	}
	return out, rows.Err()
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

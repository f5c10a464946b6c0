package domain

import "time"

// AuditLog is one audited console RPC.
type AuditLog struct {
	ID          string
	Handle      string
	Action      string
	Resource    string
	PhoneMasked string
	IP          string
	Metadata    string
	CreatedAt   time.Time
}

package domain

import "time"

// Event types emitted by the issuance workflow.
const (
	EventIssuanceBegun     = "issuance.begun"
	EventOtpDispatched     = "issuance.otp_dispatched"
	EventOtpVerified       = "issuance.otp_verified"
	EventTwoFactorRequired = "issuance.two_factor_required"
	EventTwoFactorVerified = "issuance.two_factor_verified"
	EventFinalized         = "issuance.finalized"
	EventFinalizeFailed    = "issuance.finalize_failed"
	EventOperationRejected = "issuance.operation_rejected"
	EventIssuanceAbandoned = "issuance.abandoned"
	EventIssuanceSweptIdle = "issuance.swept_idle"
)

// IssuanceEvent is one issuance state change. It never carries credentials, OTP codes or 2FA secrets.
type IssuanceEvent struct {
	Handle      string            `json:"handle"`
	SessionID   string            `json:"session_id,omitempty"`
	EventType   string            `json:"event_type"`
	Stage       string            `json:"stage"`
	PhoneMasked string            `json:"phone_masked,omitempty"`
	CountryID   int64             `json:"country_id,omitempty"`
	AccountID   int64             `json:"account_id,omitempty"`
	Outcome     string            `json:"outcome,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
}

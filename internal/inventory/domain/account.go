package domain

import "time"

// SaleStatus is the marketplace state of an inventory account.
type SaleStatus string

const (
	SaleStatusAvailable SaleStatus = "available"
	SaleStatusSold      SaleStatus = "sold"
)

// DefaultAccountType is the account type the backend expects for session-string accounts.
const DefaultAccountType = "ID"

// Account is a sellable account created from a verified session credential.
type Account struct {
	ID                int64
	PhoneNumber       string
	CountryID         int64
	SessionCredential string
	TwoFactorSecret   string
	SaleStatus        SaleStatus
	Type              string
	CreatedAt         time.Time
}

// CreateRequest is the single write sent to the inventory store on finalize.
type CreateRequest struct {
	CountryID         int64
	PhoneNumber       string
	SessionCredential string
	TwoFactorSecret   string
	Type              string
	SaleStatus        SaleStatus
}

// Package service links a verified session credential to a new inventory account.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	goerrors "github.com/goliatone/go-errors"

	"session-issuance-console/internal/country"
	countrydomain "session-issuance-console/internal/country/domain"
	"session-issuance-console/internal/inventory/domain"
	"session-issuance-console/internal/security"
)

// Sentinel errors for the finalizer; the issuance controller maps them to its taxonomy.
var (
	// ErrRejectedNoCountry means the phone number resolves to no catalog country. Nothing was written.
	ErrRejectedNoCountry = errors.New("inventory: could not detect country; add the country to the catalog first")
	// ErrEmptyCredential means finalize was called without a credential.
	ErrEmptyCredential = errors.New("inventory: session credential is empty")
)

// PersistenceError is returned when the inventory store refuses or fails the create.
type PersistenceError struct {
	// Message is the store's diagnostic, suitable for the operator.
	Message string
	Err     error
}

func (e *PersistenceError) Error() string {
	return "inventory: persist account: " + e.Message
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// Resolver maps a phone number to a catalog country. It returns country.ErrNotFound when unresolved.
type Resolver interface {
	Resolve(ctx context.Context, phone string) (countrydomain.Record, error)
}

// Store creates inventory accounts.
type Store interface {
	CreateInventoryAccount(ctx context.Context, req domain.CreateRequest) (int64, error)
}

// Finalizer resolves the country and issues exactly one create per call.
type Finalizer struct {
	resolver    Resolver
	store       Store
	accountType string
	nowF        func() time.Time
}

// NewFinalizer returns a Finalizer. An empty accountType selects domain.DefaultAccountType.
func NewFinalizer(resolver Resolver, store Store, accountType string) *Finalizer {
	if accountType == "" {
		accountType = domain.DefaultAccountType
	}
	return &Finalizer{
		resolver:    resolver,
		store:       store,
		accountType: accountType,
		nowF:        func() time.Time { return time.Now().UTC() },
	}
}

// Finalize creates the inventory account for phone. It returns ErrRejectedNoCountry without writing
// when the country is unresolved, and *PersistenceError when the store fails. Catalog load failures
// are returned wrapped and also skip the write.
func (f *Finalizer) Finalize(ctx context.Context, phone, credential, twoFactorSecret string) (*domain.Account, error) {
	if credential == "" {
		return nil, ErrEmptyCredential
	}
	rec, err := f.resolver.Resolve(ctx, phone)
	if err != nil {
		if errors.Is(err, country.ErrNotFound) {
			slog.Warn("finalize rejected: country not resolved", "component", "inventory",
				"phone", security.MaskPhone(phone))
			return nil, ErrRejectedNoCountry
		}
		return nil, fmt.Errorf("inventory: resolve country: %w", err)
	}

	req := domain.CreateRequest{
		CountryID:         rec.ID,
		PhoneNumber:       phone,
		SessionCredential: credential,
		TwoFactorSecret:   twoFactorSecret,
		Type:              f.accountType,
		SaleStatus:        domain.SaleStatusAvailable,
	}
	id, err := f.store.CreateInventoryAccount(ctx, req)
	if err != nil {
		return nil, &PersistenceError{Message: storeMessage(err), Err: err}
	}

	slog.Info("inventory account created", "component", "inventory",
		"account_id", id, "country_id", rec.ID, "phone", security.MaskPhone(phone),
		"credential", security.ShortFingerprint(credential), "two_factor", twoFactorSecret != "")
	return &domain.Account{
		ID:                id,
		PhoneNumber:       phone,
		CountryID:         rec.ID,
		SessionCredential: credential,
		TwoFactorSecret:   twoFactorSecret,
		SaleStatus:        domain.SaleStatusAvailable,
		Type:              f.accountType,
		CreatedAt:         f.nowF(),
	}, nil
}

func storeMessage(err error) string {
	var rich *goerrors.Error
	if goerrors.As(err, &rich) && rich.Message != "" {
		return rich.Message
	}
	return err.Error()
}

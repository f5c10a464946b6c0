package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	goerrors "github.com/goliatone/go-errors"

	"session-issuance-console/internal/country"
	countrydomain "session-issuance-console/internal/country/domain"
	"session-issuance-console/internal/inventory/domain"
)

type catalogResolver struct {
	records []countrydomain.Record
	err     error
}

func (r *catalogResolver) Resolve(ctx context.Context, phone string) (countrydomain.Record, error) {
	if r.err != nil {
		return countrydomain.Record{}, r.err
	}
	return country.Resolve(phone, r.records)
}

type memStore struct {
	mu     sync.Mutex
	calls  []domain.CreateRequest
	nextID int64
	err    error
}

func (s *memStore) CreateInventoryAccount(ctx context.Context, req domain.CreateRequest) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, req)
	if s.err != nil {
		return 0, s.err
	}
	s.nextID++
	return s.nextID, nil
}

func TestFinalize_CreatesAvailableAccount(t *testing.T) {
	resolver := &catalogResolver{records: []countrydomain.Record{
		{ID: 1, DisplayName: "India", CallingCodePrefixes: []string{"+91"}},
	}}
	store := &memStore{nextID: 99}
	f := NewFinalizer(resolver, store, "")

	acc, err := f.Finalize(context.Background(), "+919876543210", "SESSIONSTR", "")
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	if len(store.calls) != 1 {
		t.Fatalf("create calls = %d, want 1", len(store.calls))
	}
	got := store.calls[0]
	want := domain.CreateRequest{
		CountryID:         1,
		PhoneNumber:       "+919876543210",
		SessionCredential: "SESSIONSTR",
		TwoFactorSecret:   "",
		Type:              "ID",
		SaleStatus:        domain.SaleStatusAvailable,
	}
	if got != want {
		t.Errorf("create request = %+v, want %+v", got, want)
	}
	if acc.ID != 100 {
		t.Errorf("account ID = %d, want 100", acc.ID)
	}
	if acc.SaleStatus != domain.SaleStatusAvailable {
		t.Errorf("SaleStatus = %q, want %q", acc.SaleStatus, domain.SaleStatusAvailable)
	}
	if acc.CountryID != 1 {
		t.Errorf("CountryID = %d, want 1", acc.CountryID)
	}
}

func TestFinalize_CarriesTwoFactorSecretAndType(t *testing.T) {
	resolver := &catalogResolver{records: []countrydomain.Record{{ID: 5, DisplayName: "UAE"}}}
	store := &memStore{}
	f := NewFinalizer(resolver, store, "QR")

	if _, err := f.Finalize(context.Background(), "+971501234567", "SESSIONSTR2", "pw123"); err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	if len(store.calls) != 1 {
		t.Fatalf("create calls = %d, want 1", len(store.calls))
	}
	if store.calls[0].TwoFactorSecret != "pw123" {
		t.Errorf("TwoFactorSecret = %q, want %q", store.calls[0].TwoFactorSecret, "pw123")
	}
	if store.calls[0].Type != "QR" {
		t.Errorf("Type = %q, want %q", store.calls[0].Type, "QR")
	}
	if store.calls[0].CountryID != 5 {
		t.Errorf("CountryID = %d, want 5", store.calls[0].CountryID)
	}
}

func TestFinalize_UnresolvedCountryWritesNothing(t *testing.T) {
	store := &memStore{}
	f := NewFinalizer(&catalogResolver{}, store, "")

	_, err := f.Finalize(context.Background(), "+999000", "SESSIONSTR", "")
	if !errors.Is(err, ErrRejectedNoCountry) {
		t.Fatalf("Finalize err = %v, want ErrRejectedNoCountry", err)
	}
	if len(store.calls) != 0 {
		t.Errorf("create calls = %d, want 0", len(store.calls))
	}
}

func TestFinalize_CatalogUnavailableWritesNothing(t *testing.T) {
	cause := errors.New("catalog down")
	store := &memStore{}
	f := NewFinalizer(&catalogResolver{err: cause}, store, "")

	_, err := f.Finalize(context.Background(), "+919876543210", "SESSIONSTR", "")
	if !errors.Is(err, cause) {
		t.Fatalf("Finalize err = %v, want wrapped cause", err)
	}
	if errors.Is(err, ErrRejectedNoCountry) {
		t.Error("catalog failure must not be reported as ErrRejectedNoCountry")
	}
	if len(store.calls) != 0 {
		t.Errorf("create calls = %d, want 0", len(store.calls))
	}
}

func TestFinalize_StoreFailureCarriesMessage(t *testing.T) {
	resolver := &catalogResolver{records: []countrydomain.Record{{ID: 1, DisplayName: "India"}}}
	store := &memStore{err: goerrors.New("Account with this phone number already exists", goerrors.CategoryConflict).WithCode(409)}
	f := NewFinalizer(resolver, store, "")

	_, err := f.Finalize(context.Background(), "+919876543210", "SESSIONSTR", "")
	var perr *PersistenceError
	if !errors.As(err, &perr) {
		t.Fatalf("Finalize err = %v, want *PersistenceError", err)
	}
	if perr.Message != "Account with this phone number already exists" {
		t.Errorf("Message = %q, want store message", perr.Message)
	}
	if len(store.calls) != 1 {
		t.Errorf("create calls = %d, want 1", len(store.calls))
	}
}

func TestFinalize_EmptyCredential(t *testing.T) {
	store := &memStore{}
	f := NewFinalizer(&catalogResolver{}, store, "")
	if _, err := f.Finalize(context.Background(), "+919876543210", "", ""); !errors.Is(err, ErrEmptyCredential) {
		t.Errorf("Finalize err = %v, want ErrEmptyCredential", err)
	}
	if len(store.calls) != 0 {
		t.Errorf("create calls = %d, want 0", len(store.calls))
	}
}

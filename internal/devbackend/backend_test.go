package devbackend

import (
	"context"
	"errors"
	"testing"
	"time"

	"session-issuance-console/internal/devotp"
	"session-issuance-console/internal/security"
)

func newTestBackend(t *testing.T, twoFactor map[string]string) (*Backend, *devotp.MemoryStore) {
	t.Helper()
	otps := devotp.NewMemoryStore()
	b, err := New(Config{
		AdminPassword: "admin-pw",
		SigningKey:    []byte("0123456789abcdef0123456789abcdef"),
		TwoFactor:     twoFactor,
		BcryptCost:    4,
	}, otps)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return b, otps
}

func dispatch(t *testing.T, b *Backend, otps devotp.Store, phone string) (string, string) {
	t.Helper()
	id, err := b.StartSession(context.Background(), phone)
	if err != nil {
		t.Fatalf("StartSession: %v", err)
	}
	code, ok := otps.Get(context.Background(), id)
	if !ok {
		t.Fatal("dev OTP store should hold the code")
	}
	return id, code
}

func TestNew_RequiresAdminPassword(t *testing.T) {
	if _, err := New(Config{}, nil); err == nil {
		t.Fatal("New without admin password should fail")
	}
}

func TestLogin(t *testing.T) {
	b, _ := newTestBackend(t, nil)
	if _, err := b.Login("wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("Login(wrong) err = %v, want ErrInvalidCredentials", err)
	}
	token, err := b.Login("admin-pw")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if err := b.Authorize(token); err != nil {
		t.Errorf("Authorize(issued token) = %v, want nil", err)
	}
	if err := b.Authorize("not-a-token"); err == nil {
		t.Error("Authorize(garbage) should fail")
	}
}

func TestVerifyOtp_WithoutTwoFactor(t *testing.T) {
	b, otps := newTestBackend(t, nil)
	id, code := dispatch(t, b, otps, "+919876543210")

	out, err := b.VerifyOtp(context.Background(), id, "+91 98765 43210", code)
	if err != nil {
		t.Fatalf("VerifyOtp: %v", err)
	}
	if !out.Success || out.Needs2FA || out.SessionString == "" {
		t.Errorf("VerifyOtp = %+v, want success with session string", out)
	}
	if _, ok := otps.Get(context.Background(), id); ok {
		t.Error("OTP should be forgotten after verification")
	}

	again, _ := b.VerifyOtp(context.Background(), id, "+919876543210", code)
	if again.Success || again.Message != msgSessionInvalid {
		t.Errorf("reuse = %+v, want %q", again, msgSessionInvalid)
	}
}

func TestVerifyOtp_WrongCodeAndLockout(t *testing.T) {
	b, otps := newTestBackend(t, nil)
	id, code := dispatch(t, b, otps, "+919876543210")
	wrong := "000000"
	if code == wrong {
		wrong = "111111"
	}

	for i := 1; i < maxOTPAttempts; i++ {
		out, _ := b.VerifyOtp(context.Background(), id, "+919876543210", wrong)
		if out.Success || out.Message != msgInvalidOTP {
			t.Fatalf("attempt %d = %+v, want %q", i, out, msgInvalidOTP)
		}
	}
	out, _ := b.VerifyOtp(context.Background(), id, "+919876543210", wrong)
	if out.Message != msgTooManyAttempts {
		t.Errorf("final attempt message = %q, want %q", out.Message, msgTooManyAttempts)
	}
	out, _ = b.VerifyOtp(context.Background(), id, "+919876543210", code)
	if out.Success {
		t.Error("session should be dropped after too many attempts")
	}
}

func TestVerifyOtp_PhoneMismatchAndExpiry(t *testing.T) {
	b, otps := newTestBackend(t, nil)
	id, code := dispatch(t, b, otps, "+919876543210")

	out, _ := b.VerifyOtp(context.Background(), id, "+919999999999", code)
	if out.Success || out.Message != msgSessionInvalid {
		t.Errorf("phone mismatch = %+v, want %q", out, msgSessionInvalid)
	}

	b.nowF = func() time.Time { return time.Now().Add(time.Hour) }
	out, _ = b.VerifyOtp(context.Background(), id, "+919876543210", code)
	if out.Success || out.Message != msgSessionInvalid {
		t.Errorf("expired = %+v, want %q", out, msgSessionInvalid)
	}
}

func TestVerifyTwoFactor(t *testing.T) {
	b, otps := newTestBackend(t, map[string]string{"+91 98765 43210": "pw123"})
	id, code := dispatch(t, b, otps, "+919876543210")

	early, _ := b.VerifyTwoFactor(context.Background(), id, "pw123")
	if early.Success || early.Message != msgOTPNotVerified {
		t.Errorf("2FA before OTP = %+v, want %q", early, msgOTPNotVerified)
	}

	out, _ := b.VerifyOtp(context.Background(), id, "+919876543210", code)
	if !out.Success || !out.Needs2FA || out.SessionString != "" {
		t.Fatalf("VerifyOtp = %+v, want needs_2fa without credential", out)
	}

	wrong, _ := b.VerifyTwoFactor(context.Background(), id, "nope")
	if wrong.Success || wrong.Message != msgInvalid2FA {
		t.Errorf("wrong 2FA = %+v, want %q", wrong, msgInvalid2FA)
	}
	ok, err := b.VerifyTwoFactor(context.Background(), id, "pw123")
	if err != nil {
		t.Fatalf("VerifyTwoFactor: %v", err)
	}
	if !ok.Success || ok.SessionString == "" {
		t.Errorf("VerifyTwoFactor = %+v, want session string", ok)
	}
}

func TestCreateAccount(t *testing.T) {
	b, _ := newTestBackend(t, nil)
	in := NewAccount{CountryID: 1, PhoneNumber: "+919876543210", SessionData: "SESSIONSTR"}

	acc, err := b.CreateAccount(in)
	if err != nil {
		t.Fatalf("CreateAccount: %v", err)
	}
	if acc.ID != 1 || acc.Type != "ID" || acc.SaleStatus != "available" {
		t.Errorf("account = %+v, want id 1, type ID, available", acc)
	}
	if acc.sessionDigest != security.Fingerprint("SESSIONSTR") {
		t.Error("account should keep only the credential fingerprint")
	}

	if _, err := b.CreateAccount(in); !errors.Is(err, ErrDuplicatePhone) {
		t.Errorf("duplicate err = %v, want ErrDuplicatePhone", err)
	}
	if _, err := b.CreateAccount(NewAccount{CountryID: 999, PhoneNumber: "+911111111111", SessionData: "S"}); !errors.Is(err, ErrUnknownCountry) {
		t.Errorf("unknown country err = %v, want ErrUnknownCountry", err)
	}
	if _, err := b.CreateAccount(NewAccount{CountryID: 1, PhoneNumber: "+912222222222"}); !errors.Is(err, ErrSessionDataRequired) {
		t.Errorf("missing session err = %v, want ErrSessionDataRequired", err)
	}
	if b.Accounts() != 1 {
		t.Errorf("accounts = %d, want 1", b.Accounts())
	}
}

func TestSeedCountries(t *testing.T) {
	seed := SeedCountries()
	if len(seed) != len(seedCountryNames) {
		t.Fatalf("len = %d, want %d", len(seed), len(seedCountryNames))
	}
	if seed[0].ID != 1 || seed[0].Name != "India" {
		t.Errorf("first = %+v, want {1 India}", seed[0])
	}
	names := map[string]bool{}
	for _, c := range seed {
		if names[c.Name] {
			t.Errorf("duplicate country %q", c.Name)
		}
		names[c.Name] = true
	}
	for _, want := range []string{"UAE", "USA"} {
		if !names[want] {
			t.Errorf("seed should include %q", want)
		}
	}
}

// Package devbackend is an in-memory stand-in for the external verification and inventory backend.
// It speaks the same HTTP contract as the real service so the console can run end to end locally.
package devbackend

import (
	"context"
	"encoding/base64"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"session-issuance-console/internal/devotp"
	"session-issuance-console/internal/security"
)

const (
	defaultOTPTTL      = 5 * time.Minute
	maxOTPAttempts     = 5
	tokenIssuer        = "session-issuance-devbackend"
	credentialKeyBytes = 32
)

var (
	// ErrInvalidCredentials is returned by Login for a wrong admin password.
	ErrInvalidCredentials = errors.New("devbackend: invalid credentials")
	// ErrPhoneRequired is returned when a request has no phone number.
	ErrPhoneRequired = errors.New("devbackend: phone number is required")
	// ErrUnknownCountry is returned by CreateAccount for a country id not in the catalog.
	ErrUnknownCountry = errors.New("devbackend: country not found")
	// ErrDuplicatePhone is returned by CreateAccount when the phone number already has an account.
	ErrDuplicatePhone = errors.New("devbackend: phone number already has an account")
	// ErrSessionDataRequired is returned by CreateAccount without a session credential.
	ErrSessionDataRequired = errors.New("devbackend: session data is required")
)

// Rejection messages returned with success:false.
const (
	msgSessionInvalid  = "Session expired or invalid"
	msgInvalidOTP      = "Invalid OTP code"
	msgTooManyAttempts = "Too many attempts. Request a new code."
	msgInvalid2FA      = "Invalid 2FA password"
	msgOTPNotVerified  = "Verify the OTP first"
)

// Config configures a Backend.
type Config struct {
	// AdminPassword is accepted by Login. Required.
	AdminPassword string
	// SigningKey signs operator tokens. When empty a random key is generated.
	SigningKey []byte
	// TokenTTL is the operator token lifetime; <= 0 selects 12h.
	TokenTTL time.Duration
	// OTPTTL is how long a dispatched OTP stays valid; <= 0 selects 5m.
	OTPTTL time.Duration
	// TwoFactor maps phone numbers to their 2FA password. Phones not listed have no 2FA.
	TwoFactor map[string]string
	// Countries is the catalog; nil selects SeedCountries.
	Countries []Country
	// BcryptCost is the cost used for stored passwords; 0 selects bcrypt's default.
	BcryptCost int
}

// VerifyOutcome is the result of an OTP or 2FA check.
type VerifyOutcome struct {
	Success       bool
	Needs2FA      bool
	SessionString string
	Message       string
}

// Account is an inventory account created through POST /admin/accounts.
type Account struct {
	ID            int64     `json:"id"`
	CountryID     int64     `json:"country_id"`
	PhoneNumber   string    `json:"phone_number"`
	Type          string    `json:"type"`
	SaleStatus    string    `json:"sale_status"`
	HasTwoFactor  bool      `json:"has_twofa"`
	CreatedAt     time.Time `json:"created_at"`
	sessionDigest string
}

// NewAccount is the input of CreateAccount.
type NewAccount struct {
	CountryID     int64
	PhoneNumber   string
	SessionData   string
	Type          string
	TwoFAPassword string
	SaleStatus    string
}

type otpSession struct {
	phone       string
	codeHash    string
	expiresAt   time.Time
	attempts    int
	otpVerified bool
}

// Backend holds all dev backend state.
type Backend struct {
	hasher    *security.PasswordHasher
	adminHash string
	tokens    *security.OperatorTokenIssuer
	otps      devotp.Store
	otpTTL    time.Duration
	nowF      func() time.Time

	mu        sync.Mutex
	sessions  map[string]*otpSession
	twoFactor map[string]string
	countries []Country
	accounts  map[int64]*Account
	phones    map[string]int64
	nextID    int64
}

// New returns a Backend. Passwords are stored as bcrypt hashes.
func New(cfg Config, otps devotp.Store) (*Backend, error) {
	if cfg.AdminPassword == "" {
		return nil, errors.New("devbackend: admin password must be set")
	}
	if otps == nil {
		otps = devotp.NewMemoryStore()
	}
	key := cfg.SigningKey
	if len(key) == 0 {
		var err error
		if key, err = security.RandomKey(32); err != nil {
			return nil, err
		}
	}
	hasher := security.NewPasswordHasher(cfg.BcryptCost)
	adminHash, err := hasher.Hash(cfg.AdminPassword)
	if err != nil {
		return nil, err
	}
	twoFactor := make(map[string]string, len(cfg.TwoFactor))
	for phone, pw := range cfg.TwoFactor {
		h, err := hasher.Hash(pw)
		if err != nil {
			return nil, err
		}
		twoFactor[normalizePhone(phone)] = h
	}
	countries := cfg.Countries
	if countries == nil {
		countries = SeedCountries()
	}
	otpTTL := cfg.OTPTTL
	if otpTTL <= 0 {
		otpTTL = defaultOTPTTL
	}
	return &Backend{
		hasher:    hasher,
		adminHash: adminHash,
		tokens:    security.NewOperatorTokenIssuer(key, tokenIssuer, cfg.TokenTTL),
		otps:      otps,
		otpTTL:    otpTTL,
		nowF:      time.Now,
		sessions:  make(map[string]*otpSession),
		twoFactor: twoFactor,
		countries: countries,
		accounts:  make(map[int64]*Account),
		phones:    make(map[string]int64),
	}, nil
}

// Login checks the admin password and returns an operator token.
func (b *Backend) Login(password string) (string, error) {
	if !b.hasher.Verify(b.adminHash, password) {
		return "", ErrInvalidCredentials
	}
	token, _, err := b.tokens.Issue("admin")
	return token, err
}

// Authorize validates an operator token.
func (b *Backend) Authorize(token string) error {
	_, err := b.tokens.Validate(token)
	return err
}

// StartSession dispatches an OTP for phone and returns the session id. The plain code goes only to
// the dev OTP store.
func (b *Backend) StartSession(ctx context.Context, phone string) (string, error) {
	phone = normalizePhone(phone)
	if phone == "" {
		return "", ErrPhoneRequired
	}
	code, err := devotp.GenerateOTP()
	if err != nil {
		return "", err
	}
	id := uuid.NewString()
	expiresAt := b.nowF().UTC().Add(b.otpTTL)

	b.mu.Lock()
	b.sessions[id] = &otpSession{phone: phone, codeHash: devotp.HashOTP(code), expiresAt: expiresAt}
	b.mu.Unlock()

	b.otps.Put(ctx, id, code, expiresAt)
	slog.Info("otp dispatched", "component", "devbackend", "session_id", id, "phone", security.MaskPhone(phone))
	return id, nil
}

// VerifyOtp checks code for sessionID. Wrong codes count towards maxOTPAttempts, after which the
// session is dropped.
func (b *Backend) VerifyOtp(ctx context.Context, sessionID, phone, code string) (VerifyOutcome, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	sess, ok := b.liveSession(ctx, sessionID)
	if !ok || (phone != "" && normalizePhone(phone) != sess.phone) {
		return VerifyOutcome{Message: msgSessionInvalid}, nil
	}
	if sess.otpVerified {
		return VerifyOutcome{Message: msgSessionInvalid}, nil
	}
	if !devotp.OTPEqual(strings.TrimSpace(code), sess.codeHash) {
		sess.attempts++
		if sess.attempts >= maxOTPAttempts {
			b.dropSession(ctx, sessionID)
			return VerifyOutcome{Message: msgTooManyAttempts}, nil
		}
		return VerifyOutcome{Message: msgInvalidOTP}, nil
	}
	sess.otpVerified = true
	b.otps.Delete(ctx, sessionID)
	if _, has2FA := b.twoFactor[sess.phone]; has2FA {
		return VerifyOutcome{Success: true, Needs2FA: true, Message: "2FA password required"}, nil
	}
	credential, err := newSessionString()
	if err != nil {
		return VerifyOutcome{}, err
	}
	b.dropSession(ctx, sessionID)
	return VerifyOutcome{Success: true, SessionString: credential, Message: "Session created"}, nil
}

// VerifyTwoFactor checks the 2FA password for a session whose OTP was verified.
func (b *Backend) VerifyTwoFactor(ctx context.Context, sessionID, password string) (VerifyOutcome, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	sess, ok := b.liveSession(ctx, sessionID)
	if !ok {
		return VerifyOutcome{Message: msgSessionInvalid}, nil
	}
	if !sess.otpVerified {
		return VerifyOutcome{Message: msgOTPNotVerified}, nil
	}
	hash, has2FA := b.twoFactor[sess.phone]
	if !has2FA || !b.hasher.Verify(hash, password) {
		return VerifyOutcome{Message: msgInvalid2FA}, nil
	}
	credential, err := newSessionString()
	if err != nil {
		return VerifyOutcome{}, err
	}
	b.dropSession(ctx, sessionID)
	return VerifyOutcome{Success: true, SessionString: credential, Message: "Session created"}, nil
}

// Countries returns a copy of the catalog.
func (b *Backend) Countries() []Country {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Country(nil), b.countries...)
}

// CreateAccount stores a new inventory account. A phone number can hold at most one account.
func (b *Backend) CreateAccount(in NewAccount) (*Account, error) {
	phone := normalizePhone(in.PhoneNumber)
	if phone == "" {
		return nil, ErrPhoneRequired
	}
	if strings.TrimSpace(in.SessionData) == "" {
		return nil, ErrSessionDataRequired
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.hasCountry(in.CountryID) {
		return nil, ErrUnknownCountry
	}
	if _, dup := b.phones[phone]; dup {
		return nil, ErrDuplicatePhone
	}
	b.nextID++
	acc := &Account{
		ID:            b.nextID,
		CountryID:     in.CountryID,
		PhoneNumber:   phone,
		Type:          orDefault(in.Type, "ID"),
		SaleStatus:    orDefault(in.SaleStatus, "available"),
		HasTwoFactor:  in.TwoFAPassword != "",
		CreatedAt:     b.nowF().UTC(),
		sessionDigest: security.Fingerprint(in.SessionData),
	}
	b.accounts[acc.ID] = acc
	b.phones[phone] = acc.ID
	slog.Info("account created", "component", "devbackend", "account_id", acc.ID, "country_id", acc.CountryID,
		"phone", security.MaskPhone(phone), "session", security.ShortFingerprint(in.SessionData))
	copied := *acc
	return &copied, nil
}

// Accounts returns the number of stored accounts.
func (b *Backend) Accounts() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.accounts)
}

// liveSession returns the session if present and unexpired, dropping it otherwise. b.mu must be held.
func (b *Backend) liveSession(ctx context.Context, sessionID string) (*otpSession, bool) {
	sess, ok := b.sessions[sessionID]
	if !ok {
		return nil, false
	}
	if !sess.expiresAt.After(b.nowF().UTC()) {
		b.dropSession(ctx, sessionID)
		return nil, false
	}
	return sess, true
}

// dropSession forgets sessionID. b.mu must be held.
func (b *Backend) dropSession(ctx context.Context, sessionID string) {
	delete(b.sessions, sessionID)
	b.otps.Delete(ctx, sessionID)
}

func (b *Backend) hasCountry(id int64) bool {
	for _, c := range b.countries {
		if c.ID == id {
			return true
		}
	}
	return false
}

func newSessionString() (string, error) {
	raw, err := security.RandomKey(credentialKeyBytes)
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}

func normalizePhone(phone string) string {
	return strings.Join(strings.Fields(phone), "")
}

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}

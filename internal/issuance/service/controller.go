// Package service drives issuance sessions through OTP dispatch, OTP and 2FA verification and
// inventory finalize.
package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"

	"session-issuance-console/internal/backend"
	"session-issuance-console/internal/credcache"
	inventorydomain "session-issuance-console/internal/inventory/domain"
	inventoryservice "session-issuance-console/internal/inventory/service"
	"session-issuance-console/internal/issuance/domain"
	"session-issuance-console/internal/security"
	"session-issuance-console/internal/telemetry"
	telemetrydomain "session-issuance-console/internal/telemetry/domain"
)

const (
	minPhoneLength    = 10
	defaultPendingTTL = 15 * time.Minute
	defaultIdleTTL    = 30 * time.Minute
	outcomeOK         = "ok"
)

// Verifier is the verification side of the external backend.
type Verifier interface {
	DispatchOtp(ctx context.Context, phone string) (sessionID string, err error)
	VerifyOtp(ctx context.Context, sessionID, phone, code string) (domain.OtpResult, error)
	VerifyTwoFactor(ctx context.Context, sessionID, secret string) (credential string, err error)
}

// Finalizer turns a verified credential into an inventory account.
type Finalizer interface {
	Finalize(ctx context.Context, phone, credential, twoFactorSecret string) (*inventorydomain.Account, error)
}

// Deps holds the controller's collaborators.
type Deps struct {
	Verifier  Verifier
	Finalizer Finalizer
	// Pending caches verified credentials until finalize succeeds. If nil, an in-memory store is used.
	Pending credcache.Store
	// Registry holds live sessions. If nil, a new one is created.
	Registry *Registry
	// PendingTTL bounds how long a verified credential waits for a successful finalize. Defaults to 15m.
	PendingTTL time.Duration
	// IdleTTL is the inactivity after which SweepIdle discards a session. Defaults to 30m.
	IdleTTL time.Duration
	// Events receives issuance events. Optional.
	Events telemetry.EventEmitter
	// Metrics counts operations and finalize outcomes. Optional.
	Metrics *telemetry.Metrics
}

// Result is the outcome of a successful operation.
type Result struct {
	Session domain.Snapshot
	// Account is set once the session is finalized.
	Account *inventorydomain.Account
}

// Controller runs the issuance workflow. It makes at most one backend call per operation and never
// retries on its own.
type Controller struct {
	verifier   Verifier
	finalizer  Finalizer
	pending    credcache.Store
	registry   *Registry
	pendingTTL time.Duration
	idleTTL    time.Duration
	events     telemetry.EventEmitter
	metrics    *telemetry.Metrics
	nowF       func() time.Time
	newHandle  func() string
}

// NewController returns a Controller for deps.
func NewController(deps Deps) *Controller {
	c := &Controller{
		verifier:   deps.Verifier,
		finalizer:  deps.Finalizer,
		pending:    deps.Pending,
		registry:   deps.Registry,
		pendingTTL: deps.PendingTTL,
		idleTTL:    deps.IdleTTL,
		events:     deps.Events,
		metrics:    deps.Metrics,
		nowF:       func() time.Time { return time.Now().UTC() },
		newHandle:  uuid.NewString,
	}
	if c.pending == nil {
		c.pending = credcache.NewMemoryStore()
	}
	if c.registry == nil {
		c.registry = NewRegistry()
	}
	if c.pendingTTL <= 0 {
		c.pendingTTL = defaultPendingTTL
	}
	if c.idleTTL <= 0 {
		c.idleTTL = defaultIdleTTL
	}
	return c
}

// BeginIssuance validates phone and creates a session awaiting OTP dispatch. No backend call is made.
func (c *Controller) BeginIssuance(ctx context.Context, phone string) (*Result, error) {
	phone = strings.TrimSpace(phone)
	if utf8.RuneCountInString(phone) < minPhoneLength {
		err := domain.NewError(domain.KindInvalidInput, domain.OpBeginIssuance, "Please enter a valid phone number", nil)
		c.metrics.Operation(ctx, string(domain.OpBeginIssuance), "", err.Kind.String())
		return nil, err
	}
	s := domain.NewSession(c.newHandle(), phone, c.nowF())
	c.registry.Add(s)
	slog.Info("issuance begun", "component", "issuance", "handle", s.Handle(), "phone", security.MaskPhone(phone))
	c.record(ctx, s, domain.OpBeginIssuance, telemetrydomain.EventIssuanceBegun, nil)
	return &Result{Session: s.Snapshot()}, nil
}

// RequestOtp asks the backend to send the OTP. On failure the session stays awaiting dispatch.
func (c *Controller) RequestOtp(ctx context.Context, handle string) (*Result, error) {
	const op = domain.OpRequestOtp
	s, err := c.acquire(handle, op)
	if err != nil {
		return nil, err
	}
	defer s.Release(c.nowF())

	sessionID, err := c.verifier.DispatchOtp(ctx, s.PhoneNumber())
	if err != nil {
		return nil, c.fail(ctx, s, op, classify(op, err))
	}
	if err := s.Dispatched(sessionID, c.nowF()); err != nil {
		return nil, c.fail(ctx, s, op, err)
	}
	c.record(ctx, s, op, telemetrydomain.EventOtpDispatched, nil)
	return &Result{Session: s.Snapshot()}, nil
}

// SubmitOtp verifies code. Without 2FA the session is finalized in the same operation; with 2FA it
// moves to awaiting the 2FA password. A rejected code leaves the session awaiting OTP.
func (c *Controller) SubmitOtp(ctx context.Context, handle, code string) (*Result, error) {
	const op = domain.OpSubmitOtp
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, c.invalidInput(ctx, op, "Please enter the OTP")
	}
	s, err := c.acquire(handle, op)
	if err != nil {
		return nil, err
	}
	defer s.Release(c.nowF())

	res, err := c.verifier.VerifyOtp(ctx, s.SessionID(), s.PhoneNumber(), code)
	if err != nil {
		return nil, c.fail(ctx, s, op, classify(op, err))
	}
	if res.TwoFactorRequired {
		if err := s.AwaitTwoFactor(c.nowF()); err != nil {
			return nil, c.fail(ctx, s, op, err)
		}
		c.record(ctx, s, op, telemetrydomain.EventTwoFactorRequired, nil)
		return &Result{Session: s.Snapshot()}, nil
	}
	c.record(ctx, s, op, telemetrydomain.EventOtpVerified, nil)
	return c.verified(ctx, s, op, res.Credential, "")
}

// SubmitTwoFactor verifies the 2FA password and finalizes. A rejected password leaves the session
// awaiting 2FA.
func (c *Controller) SubmitTwoFactor(ctx context.Context, handle, secret string) (*Result, error) {
	const op = domain.OpSubmitTwoFactor
	if secret == "" {
		return nil, c.invalidInput(ctx, op, "Please enter the 2FA password")
	}
	s, err := c.acquire(handle, op)
	if err != nil {
		return nil, err
	}
	defer s.Release(c.nowF())

	credential, err := c.verifier.VerifyTwoFactor(ctx, s.SessionID(), secret)
	if err != nil {
		return nil, c.fail(ctx, s, op, classify(op, err))
	}
	c.record(ctx, s, op, telemetrydomain.EventTwoFactorVerified, nil)
	return c.verified(ctx, s, op, credential, secret)
}

// RetryFinalize re-runs finalize for a verified session whose previous finalize failed.
func (c *Controller) RetryFinalize(ctx context.Context, handle string) (*Result, error) {
	const op = domain.OpRetryFinalize
	s, err := c.acquire(handle, op)
	if err != nil {
		return nil, err
	}
	defer s.Release(c.nowF())

	p, ok, err := c.pending.Get(ctx, handle)
	if err != nil {
		return nil, c.fail(ctx, s, op, domain.NewError(domain.KindTransientNetwork, op, "", err))
	}
	if !ok {
		_ = s.Abort(c.nowF())
		return nil, c.fail(ctx, s, op, domain.NewError(domain.KindCredentialExpired, op, "", nil))
	}
	return c.finalize(ctx, s, op, p)
}

// Abandon aborts a non-terminal session and drops its pending credential. No backend call is made.
// It is accepted while another operation is in flight; that operation's result is then discarded.
func (c *Controller) Abandon(ctx context.Context, handle string) (*Result, error) {
	const op = domain.OpAbandon
	s := c.registry.Get(handle)
	if s == nil {
		return nil, domain.NewError(domain.KindNotFound, op, "", nil)
	}
	if err := s.Abort(c.nowF()); err != nil {
		return nil, err
	}
	c.dropPending(ctx, handle)
	slog.Info("issuance abandoned", "component", "issuance", "handle", handle)
	c.record(ctx, s, op, telemetrydomain.EventIssuanceAbandoned, nil)
	return &Result{Session: s.Snapshot()}, nil
}

// Get returns the current state of handle.
func (c *Controller) Get(handle string) (domain.Snapshot, error) {
	s := c.registry.Get(handle)
	if s == nil {
		return domain.Snapshot{}, domain.NewError(domain.KindNotFound, "", "", nil)
	}
	return s.Snapshot(), nil
}

// SweepIdle discards sessions idle for longer than the idle TTL and terminal sessions, together with
// their pending credentials. Only local state is touched. It returns the number of sessions removed.
func (c *Controller) SweepIdle(ctx context.Context) int {
	removed := c.registry.Sweep(c.nowF(), c.idleTTL)
	for _, snap := range removed {
		if snap.Stage.Terminal() {
			continue
		}
		c.dropPending(ctx, snap.Handle)
		telemetry.EmitAsync(c.events, ctx, &telemetrydomain.IssuanceEvent{
			Handle:      snap.Handle,
			SessionID:   snap.SessionID,
			EventType:   telemetrydomain.EventIssuanceSweptIdle,
			Stage:       snap.Stage.String(),
			PhoneMasked: security.MaskPhone(snap.PhoneNumber),
		})
	}
	if len(removed) > 0 {
		slog.Info("issuance sessions swept", "component", "issuance", "removed", len(removed), "live", c.registry.Len())
	}
	return len(removed)
}

func (c *Controller) acquire(handle string, op domain.Operation) (*domain.Session, error) {
	s := c.registry.Get(handle)
	if s == nil {
		return nil, domain.NewError(domain.KindNotFound, op, "", nil)
	}
	if err := s.Acquire(op, c.nowF()); err != nil {
		return nil, err
	}
	return s, nil
}

// verified caches the credential and finalizes.
func (c *Controller) verified(ctx context.Context, s *domain.Session, op domain.Operation, credential, secret string) (*Result, error) {
	now := c.nowF()
	if err := s.Verified(op, now); err != nil {
		return nil, c.fail(ctx, s, op, err)
	}
	p := credcache.Pending{
		PhoneNumber:     s.PhoneNumber(),
		Credential:      credential,
		TwoFactorSecret: secret,
		VerifiedAt:      now,
	}
	if err := c.pending.Put(ctx, s.Handle(), p, c.pendingTTL); err != nil {
		// Finalize can still run with the credential in hand; only a retry would be lost.
		slog.Warn("pending credential not cached", "component", "issuance", "handle", s.Handle(), "error", err)
	}
	return c.finalize(ctx, s, op, p)
}

func (c *Controller) finalize(ctx context.Context, s *domain.Session, op domain.Operation, p credcache.Pending) (*Result, error) {
	if s.Stage().Terminal() {
		// Abandoned while the credential was being verified or cached.
		c.dropPending(ctx, s.Handle())
		return nil, c.fail(ctx, s, op, domain.NewError(domain.KindInvalidStage, op, "Issuance session was abandoned", nil))
	}
	acc, err := c.finalizer.Finalize(ctx, p.PhoneNumber, p.Credential, p.TwoFactorSecret)
	if err != nil {
		ferr := classifyFinalize(op, err)
		c.metrics.Finalize(ctx, ferr.Kind.String())
		if ferr.Kind == domain.KindUnresolvedCountry || errors.Is(err, inventoryservice.ErrEmptyCredential) {
			_ = s.Abort(c.nowF())
		}
		if s.Stage().Terminal() {
			c.dropPending(ctx, s.Handle())
		}
		slog.Warn("finalize failed", "component", "issuance", "handle", s.Handle(),
			"phone", security.MaskPhone(p.PhoneNumber), "kind", ferr.Kind.String(), "error", err)
		c.record(ctx, s, op, telemetrydomain.EventFinalizeFailed, ferr)
		return nil, ferr
	}

	c.metrics.Finalize(ctx, outcomeOK)
	c.dropPending(ctx, s.Handle())
	if err := s.Finalized(acc.ID, c.nowF()); err != nil {
		slog.Warn("inventory account created for a session that was abandoned meanwhile", "component", "issuance",
			"handle", s.Handle(), "account_id", acc.ID)
	}
	slog.Info("issuance finalized", "component", "issuance", "handle", s.Handle(), "account_id", acc.ID,
		"country_id", acc.CountryID, "credential", security.ShortFingerprint(p.Credential))
	c.emit(ctx, s, op, telemetrydomain.EventFinalized, outcomeOK, acc)
	return &Result{Session: s.Snapshot(), Account: acc}, nil
}

func (c *Controller) dropPending(ctx context.Context, handle string) {
	if err := c.pending.Delete(ctx, handle); err != nil {
		slog.Warn("pending credential not deleted", "component", "issuance", "handle", handle, "error", err)
	}
}

func (c *Controller) invalidInput(ctx context.Context, op domain.Operation, message string) error {
	err := domain.NewError(domain.KindInvalidInput, op, message, nil)
	c.metrics.Operation(ctx, string(op), "", err.Kind.String())
	return err
}

// fail records a failed operation and returns err unchanged.
func (c *Controller) fail(ctx context.Context, s *domain.Session, op domain.Operation, err error) error {
	slog.Info("issuance operation failed", "component", "issuance", "handle", s.Handle(),
		"operation", string(op), "stage", s.Stage().String(), "error", err)
	c.record(ctx, s, op, telemetrydomain.EventOperationRejected, err)
	return err
}

func (c *Controller) record(ctx context.Context, s *domain.Session, op domain.Operation, eventType string, err error) {
	outcome := outcomeOK
	if err != nil {
		outcome = domain.KindOf(err).String()
	}
	c.emit(ctx, s, op, eventType, outcome, nil)
}

func (c *Controller) emit(ctx context.Context, s *domain.Session, op domain.Operation, eventType, outcome string, acc *inventorydomain.Account) {
	snap := s.Snapshot()
	c.metrics.Operation(ctx, string(op), snap.Stage.String(), outcome)
	event := &telemetrydomain.IssuanceEvent{
		Handle:      snap.Handle,
		SessionID:   snap.SessionID,
		EventType:   eventType,
		Stage:       snap.Stage.String(),
		PhoneMasked: security.MaskPhone(snap.PhoneNumber),
		Outcome:     outcome,
		Metadata:    map[string]string{"operation": string(op)},
	}
	if acc != nil {
		event.AccountID = acc.ID
		event.CountryID = acc.CountryID
	}
	telemetry.EmitAsync(c.events, ctx, event)
}

// classify maps a backend failure to the issuance taxonomy. The backend's message is kept verbatim.
func classify(op domain.Operation, err error) *domain.Error {
	category, message := backend.Classify(err)
	switch category {
	case goerrors.CategoryExternal, goerrors.CategoryInternal:
		return domain.NewError(domain.KindTransientNetwork, op, message, err)
	default:
		return domain.NewError(domain.KindServiceRejection, op, message, err)
	}
}

func classifyFinalize(op domain.Operation, err error) *domain.Error {
	if errors.Is(err, inventoryservice.ErrRejectedNoCountry) {
		return domain.NewError(domain.KindUnresolvedCountry, op, "", err)
	}
	var perr *inventoryservice.PersistenceError
	if errors.As(err, &perr) {
		if category, _ := backend.Classify(perr.Err); category == goerrors.CategoryExternal {
			return domain.NewError(domain.KindTransientNetwork, op, perr.Message, err)
		}
		return domain.NewError(domain.KindPersistenceConflict, op, perr.Message, err)
	}
	if errors.Is(err, inventoryservice.ErrEmptyCredential) {
		return domain.NewError(domain.KindServiceRejection, op, "Verification service returned an empty session", err)
	}
	return domain.NewError(domain.KindTransientNetwork, op, "Could not load the country catalog. Please try again.", err)
}

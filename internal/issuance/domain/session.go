// Package domain holds the issuance state machine: stages, sessions and the error taxonomy.
package domain

import (
	"sync"
	"time"
)

// Stage is the position of a session in the issuance workflow.
type Stage int

const (
	StageAwaitingDispatch Stage = iota + 1
	StageAwaitingOtp
	StageAwaitingTwoFactor
	StageFinalized
	StageAborted
)

var stageNames = map[Stage]string{
	StageAwaitingDispatch:  "AWAITING_DISPATCH",
	StageAwaitingOtp:       "AWAITING_OTP",
	StageAwaitingTwoFactor: "AWAITING_TWO_FACTOR",
	StageFinalized:         "FINALIZED",
	StageAborted:           "ABORTED",
}

// transitions lists the stages reachable from each non-terminal stage.
var transitions = map[Stage][]Stage{
	StageAwaitingDispatch:  {StageAwaitingOtp, StageAborted},
	StageAwaitingOtp:       {StageAwaitingTwoFactor, StageFinalized, StageAborted},
	StageAwaitingTwoFactor: {StageFinalized, StageAborted},
}

func (s Stage) String() string {
	if n, ok := stageNames[s]; ok {
		return n
	}
	return "UNKNOWN"
}

// Terminal reports whether no further transition is possible.
func (s Stage) Terminal() bool {
	return s == StageFinalized || s == StageAborted
}

// CanAdvanceTo reports whether next directly follows s.
func (s Stage) CanAdvanceTo(next Stage) bool {
	for _, t := range transitions[s] {
		if t == next {
			return true
		}
	}
	return false
}

// Operation names an operator action on a session.
type Operation string

const (
	OpBeginIssuance   Operation = "begin_issuance"
	OpRequestOtp      Operation = "request_otp"
	OpSubmitOtp       Operation = "submit_otp"
	OpSubmitTwoFactor Operation = "submit_two_factor"
	OpRetryFinalize   Operation = "retry_finalize"
	OpAbandon         Operation = "abandon"
)

// Session is one issuance attempt for one phone number. All mutation goes through its methods,
// which enforce forward-only transitions and the single in-flight operation rule.
type Session struct {
	handle      string
	phoneNumber string
	createdAt   time.Time

	mu                sync.Mutex
	sessionID         string
	stage             Stage
	requiresTwoFactor bool
	finalizePending   bool
	busy              bool
	accountID         int64
	updatedAt         time.Time
}

// Snapshot is a point-in-time copy of a Session.
type Snapshot struct {
	Handle            string
	PhoneNumber       string
	SessionID         string
	Stage             Stage
	RequiresTwoFactor bool
	FinalizePending   bool
	Busy              bool
	AccountID         int64
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// NewSession returns a session in StageAwaitingDispatch.
func NewSession(handle, phoneNumber string, now time.Time) *Session {
	return &Session{
		handle:      handle,
		phoneNumber: phoneNumber,
		createdAt:   now,
		stage:       StageAwaitingDispatch,
		updatedAt:   now,
	}
}

// Handle returns the local identifier of the session.
func (s *Session) Handle() string { return s.handle }

// PhoneNumber returns the phone number the session was started for.
func (s *Session) PhoneNumber() string { return s.phoneNumber }

// SessionID returns the backend session id, empty before dispatch.
func (s *Session) SessionID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessionID
}

// Stage returns the current stage.
func (s *Session) Stage() Stage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stage
}

// Snapshot returns a copy of the session state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{
		Handle:            s.handle,
		PhoneNumber:       s.phoneNumber,
		SessionID:         s.sessionID,
		Stage:             s.stage,
		RequiresTwoFactor: s.requiresTwoFactor,
		FinalizePending:   s.finalizePending,
		Busy:              s.busy,
		AccountID:         s.accountID,
		CreatedAt:         s.createdAt,
		UpdatedAt:         s.updatedAt,
	}
}

// IdleSince returns the time of the last operation.
func (s *Session) IdleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updatedAt
}

// Acquire validates op against the current stage and marks the session busy.
// Every successful Acquire must be paired with Release.
func (s *Session) Acquire(op Operation, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.busy {
		return NewError(KindBusy, op, "", nil)
	}
	if err := s.permits(op); err != nil {
		return err
	}
	s.busy = true
	s.updatedAt = now
	return nil
}

// Release clears the busy flag.
func (s *Session) Release(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.busy = false
	s.updatedAt = now
}

func (s *Session) permits(op Operation) error {
	if s.stage.Terminal() {
		return NewError(KindInvalidStage, op, "Issuance session is already "+stageWord(s.stage), nil)
	}
	ok := false
	switch op {
	case OpRequestOtp:
		ok = s.stage == StageAwaitingDispatch
	case OpSubmitOtp:
		ok = s.stage == StageAwaitingOtp && !s.finalizePending
	case OpSubmitTwoFactor:
		ok = s.stage == StageAwaitingTwoFactor && !s.finalizePending
	case OpRetryFinalize:
		ok = s.finalizePending
	case OpAbandon:
		ok = true
	}
	if !ok {
		return NewError(KindInvalidStage, op, "", nil)
	}
	return nil
}

// Dispatched records the backend session id after the OTP was sent.
func (s *Session) Dispatched(sessionID string, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.advance(OpRequestOtp, StageAwaitingOtp, now); err != nil {
		return err
	}
	s.sessionID = sessionID
	return nil
}

// AwaitTwoFactor records that the account has a 2FA password.
func (s *Session) AwaitTwoFactor(now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.advance(OpSubmitOtp, StageAwaitingTwoFactor, now); err != nil {
		return err
	}
	s.requiresTwoFactor = true
	return nil
}

// Verified records that the backend issued a credential which is not yet persisted.
func (s *Session) Verified(op Operation, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.stage.CanAdvanceTo(StageFinalized) {
		return NewError(KindInvalidStage, op, "", nil)
	}
	s.finalizePending = true
	s.updatedAt = now
	return nil
}

// Finalized records the created inventory account and ends the session.
func (s *Session) Finalized(accountID int64, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.finalizePending {
		return NewError(KindInvalidStage, OpRetryFinalize, "", nil)
	}
	if err := s.advance(OpRetryFinalize, StageFinalized, now); err != nil {
		return err
	}
	s.finalizePending = false
	s.accountID = accountID
	return nil
}

// Abort ends the session without a backend call. Aborting a terminal session is an error.
func (s *Session) Abort(now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.advance(OpAbandon, StageAborted, now); err != nil {
		return err
	}
	s.finalizePending = false
	return nil
}

func (s *Session) advance(op Operation, next Stage, now time.Time) error {
	if !s.stage.CanAdvanceTo(next) {
		return NewError(KindInvalidStage, op, "", nil)
	}
	s.stage = next
	s.updatedAt = now
	return nil
}

func stageWord(s Stage) string {
	if s == StageFinalized {
		return "finalized"
	}
	return "aborted"
}

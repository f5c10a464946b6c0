package domain

import "errors"

// Kind classifies issuance failures. Every kind is recoverable: the session either keeps its stage
// or the operator starts a new issuance.
type Kind int

const (
	// KindTransientNetwork means the backend could not be reached or failed internally; retriable, no state change.
	KindTransientNetwork Kind = iota + 1
	// KindInvalidInput means local validation failed before any backend call.
	KindInvalidInput
	// KindServiceRejection means the backend answered and refused (wrong code, wrong 2FA, expired session).
	KindServiceRejection
	// KindUnresolvedCountry means the phone number maps to no catalog country; nothing was written.
	KindUnresolvedCountry
	// KindPersistenceConflict means the inventory store refused the account.
	KindPersistenceConflict
	// KindInvalidStage means the operation is not valid for the session's stage.
	KindInvalidStage
	// KindBusy means another operation on the same session is in flight.
	KindBusy
	// KindNotFound means no session exists for the handle.
	KindNotFound
	// KindCredentialExpired means the verified credential awaiting finalize is gone.
	KindCredentialExpired
)

var kindNames = map[Kind]string{
	KindTransientNetwork:    "TRANSIENT_NETWORK",
	KindInvalidInput:        "INVALID_INPUT",
	KindServiceRejection:    "SERVICE_REJECTION",
	KindUnresolvedCountry:   "UNRESOLVED_COUNTRY",
	KindPersistenceConflict: "PERSISTENCE_CONFLICT",
	KindInvalidStage:        "INVALID_STAGE",
	KindBusy:                "BUSY",
	KindNotFound:            "NOT_FOUND",
	KindCredentialExpired:   "CREDENTIAL_EXPIRED",
}

var fallbackMessages = map[Kind]string{
	KindTransientNetwork:    "Network error. Please try again.",
	KindInvalidInput:        "Invalid input",
	KindServiceRejection:    "Request rejected by verification service",
	KindUnresolvedCountry:   "Could not detect country. Please add country first.",
	KindPersistenceConflict: "Failed to add account",
	KindInvalidStage:        "Operation not allowed at this stage",
	KindBusy:                "A request for this session is already in progress",
	KindNotFound:            "Issuance session not found",
	KindCredentialExpired:   "Verified session expired before it was saved. Please start again.",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "UNKNOWN"
}

// Error is an issuance failure with the message shown to the operator.
type Error struct {
	Kind    Kind
	Op      Operation
	Message string
	Err     error
}

// Sentinels for errors.Is; they match any *Error of the same kind.
var (
	ErrTransientNetwork    = &Error{Kind: KindTransientNetwork}
	ErrInvalidInput        = &Error{Kind: KindInvalidInput}
	ErrServiceRejection    = &Error{Kind: KindServiceRejection}
	ErrUnresolvedCountry   = &Error{Kind: KindUnresolvedCountry}
	ErrPersistenceConflict = &Error{Kind: KindPersistenceConflict}
	ErrInvalidStage        = &Error{Kind: KindInvalidStage}
	ErrBusy                = &Error{Kind: KindBusy}
	ErrNotFound            = &Error{Kind: KindNotFound}
	ErrCredentialExpired   = &Error{Kind: KindCredentialExpired}
)

// NewError returns an *Error. An empty message falls back to the kind's generic text.
func NewError(kind Kind, op Operation, message string, err error) *Error {
	return &Error{Kind: kind, Op: op, Message: message, Err: err}
}

func (e *Error) Error() string {
	msg := e.OperatorMessage()
	if e.Op != "" {
		return string(e.Op) + ": " + msg
	}
	return msg
}

// OperatorMessage returns the backend-provided message or the kind's generic fallback.
func (e *Error) OperatorMessage() string {
	if e.Message != "" {
		return e.Message
	}
	if s, ok := fallbackMessages[e.Kind]; ok {
		return s
	}
	return "Unexpected error"
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches sentinels of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Op == "" && t.Message == "" && t.Err == nil
}

// KindOf returns the Kind of the first *Error in err's chain, or 0.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

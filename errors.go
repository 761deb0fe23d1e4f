package licensing

import (
	"errors"
	"fmt"

	"github.com/xraph/licensing/access"
	"github.com/xraph/licensing/balance"
	"github.com/xraph/licensing/fee"
	"github.com/xraph/licensing/instance"
	"github.com/xraph/licensing/issuance"
	"github.com/xraph/licensing/oracle"
	"github.com/xraph/licensing/store"
)

// Engine errors. Errors raised by subpackages are re-exported below so
// callers only need this package to classify failures.
var (
	ErrInsufficientFee   = errors.New("licensing: payment below required fee")
	ErrOverpayment       = errors.New("licensing: payment exceeds required fee")
	ErrNothingToWithdraw = errors.New("licensing: nothing to withdraw")
	ErrInvalidFeeShare   = errors.New("licensing: issuer fee share above 10000 basis points")
	ErrNoRootAuthority   = errors.New("licensing: no root authority for new ledger")
)

// Re-exported sentinel errors.
var (
	ErrNotIssuer           = access.ErrNotIssuer
	ErrNotRootAuthority    = access.ErrNotRootAuthority
	ErrNotManager          = access.ErrNotManager
	ErrManagementDelegated = access.ErrManagementDelegated
	ErrNotSigned           = access.ErrNotSigned
	ErrAlreadySigned       = access.ErrAlreadySigned
	ErrDisabled            = access.ErrDisabled
	ErrManagementUnchanged = access.ErrManagementUnchanged

	ErrLedgerNotFound   = instance.ErrNotFound
	ErrIssuanceNotFound = issuance.ErrNotFound
	ErrAlreadyRevoked   = issuance.ErrAlreadyRevoked

	ErrIssuanceRevoked     = balance.ErrIssuanceRevoked
	ErrInsufficientBalance = balance.ErrInsufficientBalance
	ErrSelfRecall          = balance.ErrSelfRecall
	ErrBalanceOverflow     = balance.ErrOverflow

	ErrTierLengthMismatch = fee.ErrLengthMismatch
	ErrTierNotAscending   = fee.ErrNotAscending
	ErrTierDuplicate      = fee.ErrDuplicateMinimum
	ErrTierOutOfRange     = fee.ErrTierOutOfRange

	ErrCollaboratorFailure = oracle.ErrUnavailable
	ErrOracleNotConfigured = oracle.ErrNotConfigured

	ErrConflict      = store.ErrConflict
	ErrAlreadyExists = store.ErrAlreadyExists
)

// Kind classifies an error for callers that map failures onto transport
// status codes.
type Kind uint8

const (
	KindUnknown Kind = iota
	KindUnauthorized
	KindInvalidState
	KindInsufficientBalance
	KindInsufficientFee
	KindInvalidArgument
	KindCollaboratorFailure
	KindNotFound
	KindConflict
)

func (k Kind) String() string {
	switch k {
	case KindUnauthorized:
		return "unauthorized"
	case KindInvalidState:
		return "invalid_state"
	case KindInsufficientBalance:
		return "insufficient_balance"
	case KindInsufficientFee:
		return "insufficient_fee"
	case KindInvalidArgument:
		return "invalid_argument"
	case KindCollaboratorFailure:
		return "collaborator_failure"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	default:
		return "unknown"
	}
}

// KindOf returns the kind of err, or KindUnknown.
func KindOf(err error) Kind {
	var verr ValidationError
	switch {
	case err == nil:
		return KindUnknown
	case access.IsUnauthorized(err):
		return KindUnauthorized
	case access.IsInvalidState(err),
		errors.Is(err, ErrAlreadyRevoked),
		errors.Is(err, ErrIssuanceRevoked),
		errors.Is(err, ErrNothingToWithdraw):
		return KindInvalidState
	case errors.Is(err, ErrInsufficientBalance):
		return KindInsufficientBalance
	case errors.Is(err, ErrInsufficientFee):
		return KindInsufficientFee
	case errors.Is(err, ErrTierLengthMismatch),
		errors.Is(err, ErrTierNotAscending),
		errors.Is(err, ErrTierDuplicate),
		errors.Is(err, ErrTierOutOfRange),
		errors.Is(err, ErrSelfRecall),
		errors.Is(err, ErrBalanceOverflow),
		errors.Is(err, ErrOverpayment),
		errors.Is(err, ErrInvalidFeeShare),
		errors.Is(err, ErrNoRootAuthority),
		errors.Is(err, access.ErrUnknownOperation),
		errors.As(err, &verr):
		return KindInvalidArgument
	case errors.Is(err, ErrCollaboratorFailure), errors.Is(err, ErrOracleNotConfigured):
		return KindCollaboratorFailure
	case errors.Is(err, ErrLedgerNotFound), errors.Is(err, ErrIssuanceNotFound):
		return KindNotFound
	case errors.Is(err, ErrConflict), errors.Is(err, ErrAlreadyExists):
		return KindConflict
	default:
		return KindUnknown
	}
}

// IsUnauthorized reports a failed role gate.
func IsUnauthorized(err error) bool { return KindOf(err) == KindUnauthorized }

// IsInvalidState reports a lifecycle violation.
func IsInvalidState(err error) bool { return KindOf(err) == KindInvalidState }

// IsInsufficientBalance reports a failed balance precondition.
func IsInsufficientBalance(err error) bool { return KindOf(err) == KindInsufficientBalance }

// IsInsufficientFee reports a payment below the required fee.
func IsInsufficientFee(err error) bool { return KindOf(err) == KindInsufficientFee }

// IsInvalidArgument reports malformed input.
func IsInvalidArgument(err error) bool { return KindOf(err) == KindInvalidArgument }

// IsCollaboratorFailure reports a price service failure.
func IsCollaboratorFailure(err error) bool { return KindOf(err) == KindCollaboratorFailure }

// IsNotFound reports a missing ledger or issuance.
func IsNotFound(err error) bool { return KindOf(err) == KindNotFound }

// IsRetryable returns true if resubmitting the same operation may succeed.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrConflict) || errors.Is(err, ErrCollaboratorFailure)
}

// ValidationError represents a validation failure with details.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("licensing: validation failed for %s: %s", e.Field, e.Message)
}

// MultiError represents multiple errors that occurred.
type MultiError struct {
	Errors []error
}

func (e MultiError) Error() string {
	if len(e.Errors) == 0 {
		return "licensing: no errors"
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	return fmt.Sprintf("licensing: %d errors occurred: %v", len(e.Errors), e.Errors[0])
}

// Unwrap exposes the collected errors to errors.Is and errors.As.
func (e MultiError) Unwrap() []error {
	return e.Errors
}

// Add adds an error to the multi-error.
func (e *MultiError) Add(err error) {
	if err != nil {
		e.Errors = append(e.Errors, err)
	}
}

// HasErrors returns true if there are any errors.
func (e MultiError) HasErrors() bool {
	return len(e.Errors) > 0
}

// First returns the first error or nil.
func (e MultiError) First() error {
	if len(e.Errors) > 0 {
		return e.Errors[0]
	}
	return nil
}

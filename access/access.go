// Package access resolves which role, if any, may perform an operation on a
// ledger instance.
//
// The issuer and root authority are fixed when the ledger is created. The
// root authority may delegate management to another identity, which strips
// the issuer of revoke and disable rights until management is released.
// Issuing requires an unmanaged ledger.
package access

import (
	"errors"
	"fmt"

	"github.com/xraph/licensing/types"
)

// Role is the capacity in which a caller acts.
type Role uint8

const (
	RoleNone Role = iota
	RoleIssuer
	RoleRootAuthority
	RoleManager
)

func (r Role) String() string {
	switch r {
	case RoleIssuer:
		return "issuer"
	case RoleRootAuthority:
		return "root_authority"
	case RoleManager:
		return "manager"
	default:
		return "none"
	}
}

// Operation names a gated ledger operation.
type Operation string

const (
	OpSign                    Operation = "sign"
	OpIssue                   Operation = "issue"
	OpRevoke                  Operation = "revoke"
	OpDisable                 Operation = "disable"
	OpSetIssuanceFeeRate      Operation = "set_issuance_fee_rate"
	OpSetTransferFeeTiers     Operation = "set_transfer_fee_tiers"
	OpSetIssuerFeeShare       Operation = "set_issuer_fee_share"
	OpWithdraw                Operation = "withdraw"
	OpTakeOverManagement      Operation = "take_over_management"
	OpTransfer                Operation = "transfer"
	OpTransferWithRecallRight Operation = "transfer_with_recall_right"
	OpRecall                  Operation = "recall"
)

// Role failures.
var (
	ErrNotIssuer           = errors.New("access: caller is not the issuer")
	ErrNotRootAuthority    = errors.New("access: caller is not the root authority")
	ErrNotManager          = errors.New("access: caller is not the manager")
	ErrManagementDelegated = errors.New("access: management is delegated")
	ErrUnknownOperation    = errors.New("access: unknown operation")
)

// Lifecycle failures.
var (
	ErrNotSigned           = errors.New("access: ledger is not signed")
	ErrAlreadySigned       = errors.New("access: ledger is already signed")
	ErrDisabled            = errors.New("access: ledger is disabled")
	ErrManagementUnchanged = errors.New("access: management already in requested state")
)

// Control is the role and lifecycle state of one ledger.
type Control struct {
	Issuer        types.Address `json:"issuer"`
	RootAuthority types.Address `json:"root_authority"`
	// Manager is the null address while management is not delegated.
	Manager  types.Address `json:"manager"`
	Signed   bool          `json:"signed"`
	Disabled bool          `json:"disabled"`
}

// Managed reports whether management is delegated.
func (c Control) Managed() bool {
	return !types.IsNull(c.Manager)
}

// Authorize decides whether caller may perform op and in which role.
// Operations open to everyone return RoleNone and a nil error.
func (c Control) Authorize(op Operation, caller types.Address) (Role, error) {
	switch op {
	case OpSign:
		if caller != c.Issuer {
			return RoleNone, ErrNotIssuer
		}
		if c.Signed {
			return RoleNone, ErrAlreadySigned
		}
		return RoleIssuer, nil

	case OpIssue:
		if c.Managed() {
			return RoleNone, ErrManagementDelegated
		}
		if caller != c.Issuer {
			return RoleNone, ErrNotIssuer
		}
		if !c.Signed {
			return RoleNone, ErrNotSigned
		}
		if c.Disabled {
			return RoleNone, ErrDisabled
		}
		return RoleIssuer, nil

	case OpRevoke:
		if c.Managed() {
			if caller != c.Manager {
				return RoleNone, ErrNotManager
			}
			return RoleManager, nil
		}
		if caller != c.Issuer {
			return RoleNone, ErrNotIssuer
		}
		if c.Disabled {
			return RoleNone, ErrDisabled
		}
		return RoleIssuer, nil

	case OpDisable:
		role := RoleIssuer
		if c.Managed() {
			if caller != c.Manager {
				return RoleNone, ErrNotManager
			}
			role = RoleManager
		} else if caller != c.Issuer {
			return RoleNone, ErrNotIssuer
		}
		if c.Disabled {
			return RoleNone, ErrDisabled
		}
		return role, nil

	case OpSetIssuanceFeeRate, OpSetTransferFeeTiers, OpSetIssuerFeeShare, OpWithdraw, OpTakeOverManagement:
		if caller != c.RootAuthority {
			return RoleNone, ErrNotRootAuthority
		}
		return RoleRootAuthority, nil

	case OpTransfer, OpTransferWithRecallRight, OpRecall:
		return RoleNone, nil

	default:
		return RoleNone, fmt.Errorf("%w: %q", ErrUnknownOperation, op)
	}
}

// IsUnauthorized reports whether err is a role failure.
func IsUnauthorized(err error) bool {
	return errors.Is(err, ErrNotIssuer) ||
		errors.Is(err, ErrNotRootAuthority) ||
		errors.Is(err, ErrNotManager) ||
		errors.Is(err, ErrManagementDelegated)
}

// IsInvalidState reports whether err is a lifecycle failure.
func IsInvalidState(err error) bool {
	return errors.Is(err, ErrNotSigned) ||
		errors.Is(err, ErrAlreadySigned) ||
		errors.Is(err, ErrDisabled) ||
		errors.Is(err, ErrManagementUnchanged)
}

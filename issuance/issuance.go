// Package issuance models batches of license units.
package issuance

import (
	"errors"
	"fmt"
	"time"

	"github.com/xraph/licensing/id"
	"github.com/xraph/licensing/types"
)

var (
	ErrNotFound       = errors.New("issuance: not found")
	ErrAlreadyRevoked = errors.New("issuance: already revoked")
)

// Issuance is one batch of license units. Supply, value and audit fields
// are immutable once created; revocation is one-way.
type Issuance struct {
	types.Entity

	LedgerID id.LedgerID `json:"ledger_id"`
	// Index is the creation position inside the ledger and the issuance's
	// permanent identifier.
	Index       uint64 `json:"index"`
	Description string `json:"description"`
	Code        string `json:"code"`

	OriginalSupply uint64 `json:"original_supply"`
	// OriginalValue is the fiat value of the whole batch in minor units.
	// Transfer fees are charged on the share of it being moved.
	OriginalValue uint64 `json:"original_value"`

	AuditTime   time.Time     `json:"audit_time"`
	AuditRemark string        `json:"audit_remark"`
	Owner       types.Address `json:"owner"`

	Revoked          bool       `json:"revoked"`
	RevocationReason string     `json:"revocation_reason,omitempty"`
	RevokedAt        *time.Time `json:"revoked_at,omitempty"`
}

// Revoke marks the issuance revoked.
func (i *Issuance) Revoke(reason string, at time.Time) error {
	if i.Revoked {
		return fmt.Errorf("%w: issuance %d", ErrAlreadyRevoked, i.Index)
	}
	i.Revoked = true
	i.RevocationReason = reason
	i.RevokedAt = &at
	i.Touch(at)
	return nil
}

// Clone returns an independent copy.
func (i *Issuance) Clone() *Issuance {
	c := *i
	if i.RevokedAt != nil {
		t := *i.RevokedAt
		c.RevokedAt = &t
	}
	return &c
}

// ListOpts pages through a ledger's issuances in index order.
type ListOpts struct {
	Limit  int
	Offset int
}

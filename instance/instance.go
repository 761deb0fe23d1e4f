// Package instance models a ledger instance: its identity, roles,
// lifecycle flags, fee configuration and collected funds.
package instance

import (
	"errors"
	"time"

	"github.com/xraph/licensing/access"
	"github.com/xraph/licensing/fee"
	"github.com/xraph/licensing/id"
	"github.com/xraph/licensing/types"
)

var ErrNotFound = errors.New("instance: ledger not found")

// Treasury holds native units retained from fee overpayments until the
// root authority withdraws them.
type Treasury struct {
	Issuer uint64 `json:"issuer"`
	Root   uint64 `json:"root"`
}

// Empty reports whether nothing is waiting to be withdrawn.
func (t Treasury) Empty() bool {
	return t.Issuer == 0 && t.Root == 0
}

// Instance is one ledger.
type Instance struct {
	types.Entity

	ID                  id.LedgerID `json:"id"`
	Name                string      `json:"name"`
	LiabilityText       string      `json:"liability_text"`
	AuditRetentionYears uint16      `json:"audit_retention_years"`
	// Credential is an opaque token handed over by the registry.
	Credential string `json:"credential,omitempty"`

	access.Control

	SignedAt   *time.Time `json:"signed_at,omitempty"`
	DisabledAt *time.Time `json:"disabled_at,omitempty"`

	// IssuanceFeeRate is charged on an issuance's fiat value, in basis
	// points.
	IssuanceFeeRate uint16 `json:"issuance_fee_rate"`
	// IssuerFeeShare is the issuer's cut of retained payments, in basis
	// points.
	IssuerFeeShare uint16    `json:"issuer_fee_share"`
	FeeTiers       fee.Table `json:"fee_tiers"`

	IssuanceCount uint64   `json:"issuance_count"`
	EventSeq      uint64   `json:"event_seq"`
	Treasury      Treasury `json:"treasury"`

	// Version increases with every committed change and guards against
	// concurrent writers.
	Version uint64 `json:"version"`
}

// Clone returns an independent copy.
func (in *Instance) Clone() *Instance {
	c := *in
	c.FeeTiers = in.FeeTiers.Clone()
	if in.SignedAt != nil {
		t := *in.SignedAt
		c.SignedAt = &t
	}
	if in.DisabledAt != nil {
		t := *in.DisabledAt
		c.DisabledAt = &t
	}
	return &c
}

// NextSeq reserves the next event sequence number.
func (in *Instance) NextSeq() uint64 {
	in.EventSeq++
	return in.EventSeq
}

// Withdrawal is the outcome of emptying the treasury.
type Withdrawal struct {
	ID            id.WithdrawalID `json:"id"`
	LedgerID      id.LedgerID     `json:"ledger_id"`
	Issuer        types.Address   `json:"issuer"`
	IssuerAmount  uint64          `json:"issuer_amount"`
	RootAuthority types.Address   `json:"root_authority"`
	RootAmount    uint64          `json:"root_amount"`
	At            time.Time       `json:"at"`
}

// ListOpts pages through ledger instances in creation order.
type ListOpts struct {
	Issuer *types.Address
	Limit  int
	Offset int
}

// Package event defines the ledger's event log.
//
// Every committed operation appends one or more events with a per-ledger
// sequence number. Events are persisted with the state change that caused
// them and dispatched to plugins after commit.
package event

import (
	"time"

	"github.com/xraph/licensing/id"
	"github.com/xraph/licensing/types"
)

// Type names an event.
type Type string

const (
	TypeLedgerCreated           Type = "ledger.created"
	TypeSigned                  Type = "ledger.signed"
	TypeDisabled                Type = "ledger.disabled"
	TypeManagementTakenOver     Type = "ledger.management_taken_over"
	TypeFeeRateChanged          Type = "ledger.fee_rate_changed"
	TypeTransferFeeTiersChanged Type = "ledger.transfer_fee_tiers_changed"
	TypeIssuerFeeShareChanged   Type = "ledger.issuer_fee_share_changed"
	TypeWithdrawn               Type = "ledger.withdrawn"
	TypeIssued                  Type = "issuance.issued"
	TypeRevoked                 Type = "issuance.revoked"
	TypeTransferred             Type = "units.transferred"
	TypeRecalled                Type = "units.recalled"
)

// Types lists every event type.
var Types = []Type{
	TypeLedgerCreated, TypeSigned, TypeDisabled, TypeManagementTakenOver,
	TypeFeeRateChanged, TypeTransferFeeTiersChanged, TypeIssuerFeeShareChanged,
	TypeWithdrawn, TypeIssued, TypeRevoked, TypeTransferred, TypeRecalled,
}

// Event is one entry of a ledger's log. Only the fields meaningful for
// Type are set.
type Event struct {
	ID         id.EventID    `json:"id"`
	LedgerID   id.LedgerID   `json:"ledger_id"`
	Seq        uint64        `json:"seq"`
	Type       Type          `json:"type"`
	Actor      types.Address `json:"actor"`
	OccurredAt time.Time     `json:"occurred_at"`

	// Issuance is set for issuance and unit events.
	Issuance *uint64 `json:"issuance,omitempty"`

	From       types.Address `json:"from,omitempty"`
	To         types.Address `json:"to,omitempty"`
	Amount     uint64        `json:"amount,omitempty"`
	Recallable bool          `json:"recallable,omitempty"`
	// Fee is the native payment accepted with the operation.
	Fee uint64 `json:"fee,omitempty"`

	Reason   string        `json:"reason,omitempty"`
	Manager  types.Address `json:"manager,omitempty"`
	Rate     uint16        `json:"rate,omitempty"`
	Minimums []uint64      `json:"minimums,omitempty"`
	Rates    []uint16      `json:"rates,omitempty"`

	IssuerAmount uint64 `json:"issuer_amount,omitempty"`
	RootAmount   uint64 `json:"root_amount,omitempty"`
	// Reference links to a record created with the event, such as a
	// withdrawal ID.
	Reference string `json:"reference,omitempty"`
}

// IssuanceIndex returns the issuance index and whether one is set.
func (e *Event) IssuanceIndex() (uint64, bool) {
	if e.Issuance == nil {
		return 0, false
	}
	return *e.Issuance, true
}

// ListOpts filters a ledger's event log. Events are returned in sequence
// order.
type ListOpts struct {
	Type     Type
	Issuance *uint64
	AfterSeq uint64
	Limit    int
}

// Matches reports whether e passes the filter, ignoring Limit.
func (o ListOpts) Matches(e *Event) bool {
	if o.Type != "" && e.Type != o.Type {
		return false
	}
	if o.Issuance != nil {
		idx, ok := e.IssuanceIndex()
		if !ok || idx != *o.Issuance {
			return false
		}
	}
	return e.Seq > o.AfterSeq
}

// Index returns a pointer to i, for Event.Issuance and ListOpts.Issuance.
func Index(i uint64) *uint64 { return &i }

// Package balance keeps the per-issuance ownership ledger.
//
// Units are held under a (holder, recallRight) key. When holder equals
// recallRight the units are owned outright; otherwise recallRight may pull
// them back at any time. A per-holder cache of recallable units is kept
// alongside, together with two append-only logs: every holder an owner ever
// sent recallable units to, and every issuance a holder ever received. The
// logs may be stale, so confirm with a balance query.
package balance

import (
	"context"

	"github.com/xraph/licensing/id"
	"github.com/xraph/licensing/types"
)

// Entry is the absolute amount held by Holder under RecallRight.
type Entry struct {
	LedgerID    id.LedgerID   `json:"ledger_id"`
	Issuance    uint64        `json:"issuance"`
	Holder      types.Address `json:"holder"`
	RecallRight types.Address `json:"recall_right"`
	Amount      uint64        `json:"amount"`
}

// Proper reports whether the entry is outright ownership.
func (e Entry) Proper() bool {
	return e.Holder == e.RecallRight
}

// Temporary is a holder's total recallable units in one issuance.
type Temporary struct {
	LedgerID id.LedgerID   `json:"ledger_id"`
	Issuance uint64        `json:"issuance"`
	Holder   types.Address `json:"holder"`
	Amount   uint64        `json:"amount"`
}

// Witness records that Owner once transferred units to Holder while
// keeping the right to recall them. Seq is the event sequence of the first
// such transfer.
type Witness struct {
	LedgerID id.LedgerID   `json:"ledger_id"`
	Issuance uint64        `json:"issuance"`
	Owner    types.Address `json:"owner"`
	Holder   types.Address `json:"holder"`
	Seq      uint64        `json:"seq"`
}

// Relevance records that Holder once received units of Issuance.
type Relevance struct {
	LedgerID id.LedgerID   `json:"ledger_id"`
	Holder   types.Address `json:"holder"`
	Issuance uint64        `json:"issuance"`
}

// Reader loads committed balance state.
type Reader interface {
	Balance(ctx context.Context, ledgerID id.LedgerID, issuance uint64, holder, recallRight types.Address) (uint64, error)
	TemporaryBalance(ctx context.Context, ledgerID id.LedgerID, issuance uint64, holder types.Address) (uint64, error)
}

// Changes is everything a Sheet staged, ready to be committed.
type Changes struct {
	Balances    []Entry
	Temporaries []Temporary
	Witnesses   []Witness
	Relevance   []Relevance
}

// Empty reports whether nothing was staged.
func (c Changes) Empty() bool {
	return len(c.Balances) == 0 && len(c.Temporaries) == 0 &&
		len(c.Witnesses) == 0 && len(c.Relevance) == 0
}

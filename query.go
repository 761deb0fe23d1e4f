package licensing

import (
	"context"

	"github.com/xraph/licensing/balance"
	"github.com/xraph/licensing/event"
	"github.com/xraph/licensing/fee"
	"github.com/xraph/licensing/id"
	"github.com/xraph/licensing/instance"
	"github.com/xraph/licensing/issuance"
	"github.com/xraph/licensing/types"
)

// ──────────────────────────────────────────────────
// Queries
// ──────────────────────────────────────────────────

// GetLedger returns a ledger instance.
func (l *Ledger) GetLedger(ctx context.Context, ledgerID id.LedgerID) (*instance.Instance, error) {
	return l.store.GetLedger(ctx, ledgerID)
}

// ListLedgers lists ledger instances.
func (l *Ledger) ListLedgers(ctx context.Context, opts instance.ListOpts) ([]*instance.Instance, error) {
	return l.store.ListLedgers(ctx, opts)
}

// IssuanceCount returns the number of issuances ever created in a ledger.
// Indices run from 0 to IssuanceCount-1.
func (l *Ledger) IssuanceCount(ctx context.Context, ledgerID id.LedgerID) (uint64, error) {
	in, err := l.store.GetLedger(ctx, ledgerID)
	if err != nil {
		return 0, err
	}
	return in.IssuanceCount, nil
}

// Issuance returns one issuance by index.
func (l *Ledger) Issuance(ctx context.Context, ledgerID id.LedgerID, index uint64) (*issuance.Issuance, error) {
	return l.store.GetIssuance(ctx, ledgerID, index)
}

// ListIssuances lists issuances in index order.
func (l *Ledger) ListIssuances(ctx context.Context, ledgerID id.LedgerID, opts issuance.ListOpts) ([]*issuance.Issuance, error) {
	return l.store.ListIssuances(ctx, ledgerID, opts)
}

// TotalOwned returns the proper and recallable units holder has of an
// issuance.
func (l *Ledger) TotalOwned(ctx context.Context, ledgerID id.LedgerID, index uint64, holder types.Address) (uint64, error) {
	sheet, err := l.readSheet(ctx, ledgerID, index)
	if err != nil {
		return 0, err
	}
	return sheet.TotalOwned(holder)
}

// RecallableTotal returns the units holder holds under anyone's recall
// right.
func (l *Ledger) RecallableTotal(ctx context.Context, ledgerID id.LedgerID, index uint64, holder types.Address) (uint64, error) {
	sheet, err := l.readSheet(ctx, ledgerID, index)
	if err != nil {
		return 0, err
	}
	return sheet.Temporary(holder)
}

// RecallableFrom returns the units holder holds that recaller may recall.
func (l *Ledger) RecallableFrom(ctx context.Context, ledgerID id.LedgerID, index uint64, holder, recaller types.Address) (uint64, error) {
	sheet, err := l.readSheet(ctx, ledgerID, index)
	if err != nil {
		return 0, err
	}
	return sheet.Balance(holder, recaller)
}

// RecallWitnesses lists the addresses owner has granted recallable units
// to, in the order of the first grant.
func (l *Ledger) RecallWitnesses(ctx context.Context, ledgerID id.LedgerID, index uint64, owner types.Address) ([]types.Address, error) {
	if _, err := l.store.GetIssuance(ctx, ledgerID, index); err != nil {
		return nil, err
	}
	return l.store.RecallWitnesses(ctx, ledgerID, index, owner)
}

// HolderIssuances lists the issuances holder has ever received units of.
func (l *Ledger) HolderIssuances(ctx context.Context, ledgerID id.LedgerID, holder types.Address) ([]uint64, error) {
	if _, err := l.store.GetLedger(ctx, ledgerID); err != nil {
		return nil, err
	}
	return l.store.HolderIssuances(ctx, ledgerID, holder)
}

// Balances lists every non-empty balance cell of an issuance.
func (l *Ledger) Balances(ctx context.Context, ledgerID id.LedgerID, index uint64) ([]balance.Entry, error) {
	if _, err := l.store.GetIssuance(ctx, ledgerID, index); err != nil {
		return nil, err
	}
	return l.store.ListBalances(ctx, ledgerID, index)
}

// FeeTierCount returns the number of transfer fee tiers.
func (l *Ledger) FeeTierCount(ctx context.Context, ledgerID id.LedgerID) (int, error) {
	in, err := l.store.GetLedger(ctx, ledgerID)
	if err != nil {
		return 0, err
	}
	return in.FeeTiers.Count(), nil
}

// FeeTier returns tier i of the transfer fee table.
func (l *Ledger) FeeTier(ctx context.Context, ledgerID id.LedgerID, i int) (fee.Tier, error) {
	in, err := l.store.GetLedger(ctx, ledgerID)
	if err != nil {
		return fee.Tier{}, err
	}
	return in.FeeTiers.Tier(i)
}

// Events lists a ledger's events in sequence order.
func (l *Ledger) Events(ctx context.Context, ledgerID id.LedgerID, opts event.ListOpts) ([]*event.Event, error) {
	return l.store.ListEvents(ctx, ledgerID, opts)
}

func (l *Ledger) readSheet(ctx context.Context, ledgerID id.LedgerID, index uint64) (*balance.Sheet, error) {
	iss, err := l.store.GetIssuance(ctx, ledgerID, index)
	if err != nil {
		return nil, err
	}
	return balance.NewSheet(ctx, l.store, ledgerID, index, iss.Revoked), nil
}

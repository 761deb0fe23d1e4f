package licensing

import (
	"context"
	"fmt"

	"github.com/xraph/licensing/access"
	"github.com/xraph/licensing/event"
	"github.com/xraph/licensing/id"
	"github.com/xraph/licensing/instance"
	"github.com/xraph/licensing/types"
)

// ──────────────────────────────────────────────────
// Ledger lifecycle
// ──────────────────────────────────────────────────

// CreateLedger creates a ledger instance with the engine defaults. It is
// the registry's entry point and is not role gated.
func (l *Ledger) CreateLedger(ctx context.Context, p CreateParams) (*instance.Instance, error) {
	if err := validateStruct(p); err != nil {
		return nil, err
	}
	root := p.RootAuthority
	if types.IsNull(root) {
		root = l.registry
	}
	if types.IsNull(root) {
		return nil, ErrNoRootAuthority
	}

	now := l.clock()
	in := &instance.Instance{
		Entity:              types.NewEntityAt(now),
		ID:                  id.NewLedgerID(),
		Name:                p.Name,
		LiabilityText:       p.LiabilityText,
		AuditRetentionYears: p.AuditRetentionYears,
		Credential:          p.Credential,
		Control: access.Control{
			Issuer:        p.Issuer,
			RootAuthority: root,
		},
		IssuanceFeeRate: l.defaults.IssuanceFeeRate,
		IssuerFeeShare:  l.defaults.IssuerFeeShare,
		FeeTiers:        l.defaults.FeeTiers.Clone(),
		Version:         1,
	}

	t := &txn{l: l, ctx: ctx, ledger: in, now: now, actor: root}
	t.emit(&event.Event{
		Type:     event.TypeLedgerCreated,
		To:       p.Issuer,
		Minimums: in.FeeTiers.Minimums(),
		Rates:    in.FeeTiers.Rates(),
	})
	t.batch.Ledger = in
	t.batch.Create = true

	l.mu.Lock()
	err := l.store.Commit(ctx, &t.batch)
	l.mu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("licensing: create ledger: %w", err)
	}

	l.logger.Info("ledger created",
		"ledger", in.ID,
		"issuer", in.Issuer.Hex(),
		"root_authority", in.RootAuthority.Hex(),
	)
	for _, e := range t.batch.Events {
		l.plugins.Emit(ctx, e)
	}
	return in.Clone(), nil
}

// Sign performs the issuer's one-time signature that unlocks issuing.
func (l *Ledger) Sign(ctx context.Context, ledgerID id.LedgerID, caller types.Address) error {
	_, err := l.run(ctx, access.OpSign, ledgerID, caller, func(t *txn) error {
		if err := t.authorize(access.OpSign); err != nil {
			return err
		}
		t.ledger.Signed = true
		t.ledger.SignedAt = &t.now
		t.emit(&event.Event{Type: event.TypeSigned})
		return nil
	})
	return err
}

// Disable permanently stops new issuances.
func (l *Ledger) Disable(ctx context.Context, ledgerID id.LedgerID, caller types.Address) error {
	_, err := l.run(ctx, access.OpDisable, ledgerID, caller, func(t *txn) error {
		if err := t.authorize(access.OpDisable); err != nil {
			return err
		}
		t.ledger.Disabled = true
		t.ledger.DisabledAt = &t.now
		t.emit(&event.Event{Type: event.TypeDisabled})
		return nil
	})
	return err
}

// TakeOverManagement delegates management to manager. Passing the null
// address hands control back to the issuer.
func (l *Ledger) TakeOverManagement(ctx context.Context, ledgerID id.LedgerID, caller, manager types.Address) error {
	_, err := l.run(ctx, access.OpTakeOverManagement, ledgerID, caller, func(t *txn) error {
		if err := t.authorize(access.OpTakeOverManagement); err != nil {
			return err
		}
		if t.ledger.Manager == manager {
			return fmt.Errorf("%w: manager is %s", ErrManagementUnchanged, manager.Hex())
		}
		t.ledger.Manager = manager
		t.emit(&event.Event{Type: event.TypeManagementTakenOver, Manager: manager})
		return nil
	})
	return err
}

// ──────────────────────────────────────────────────
// Fee configuration
// ──────────────────────────────────────────────────

// SetIssuanceFeeRate sets the fee charged on new issuances, in basis
// points of their fiat value.
func (l *Ledger) SetIssuanceFeeRate(ctx context.Context, ledgerID id.LedgerID, caller types.Address, rate uint16) error {
	_, err := l.run(ctx, access.OpSetIssuanceFeeRate, ledgerID, caller, func(t *txn) error {
		if err := t.authorize(access.OpSetIssuanceFeeRate); err != nil {
			return err
		}
		t.ledger.IssuanceFeeRate = rate
		t.emit(&event.Event{Type: event.TypeFeeRateChanged, Rate: rate})
		return nil
	})
	return err
}

// SetTransferFeeTiers replaces the whole transfer fee table.
func (l *Ledger) SetTransferFeeTiers(ctx context.Context, ledgerID id.LedgerID, caller types.Address, minimums []uint64, rates []uint16) error {
	_, err := l.run(ctx, access.OpSetTransferFeeTiers, ledgerID, caller, func(t *txn) error {
		if err := t.authorize(access.OpSetTransferFeeTiers); err != nil {
			return err
		}
		tiers := t.ledger.FeeTiers.Clone()
		if err := tiers.SetTiers(minimums, rates); err != nil {
			return err
		}
		t.ledger.FeeTiers = tiers
		t.emit(&event.Event{
			Type:     event.TypeTransferFeeTiersChanged,
			Minimums: tiers.Minimums(),
			Rates:    tiers.Rates(),
		})
		return nil
	})
	return err
}

// SetIssuerFeeShare sets the issuer's cut of retained payments, in basis
// points.
func (l *Ledger) SetIssuerFeeShare(ctx context.Context, ledgerID id.LedgerID, caller types.Address, share uint16) error {
	_, err := l.run(ctx, access.OpSetIssuerFeeShare, ledgerID, caller, func(t *txn) error {
		if err := t.authorize(access.OpSetIssuerFeeShare); err != nil {
			return err
		}
		if share > types.BasisPointsDenominator {
			return fmt.Errorf("%w: %d", ErrInvalidFeeShare, share)
		}
		t.ledger.IssuerFeeShare = share
		t.emit(&event.Event{Type: event.TypeIssuerFeeShareChanged, Rate: share})
		return nil
	})
	return err
}

// Withdraw empties the treasury, paying the issuer's share to the issuer
// and the rest to the root authority.
func (l *Ledger) Withdraw(ctx context.Context, ledgerID id.LedgerID, caller types.Address) (*instance.Withdrawal, error) {
	var w *instance.Withdrawal
	_, err := l.run(ctx, access.OpWithdraw, ledgerID, caller, func(t *txn) error {
		if err := t.authorize(access.OpWithdraw); err != nil {
			return err
		}
		tr := t.ledger.Treasury
		if tr.Empty() {
			return ErrNothingToWithdraw
		}
		w = &instance.Withdrawal{
			ID:            id.NewWithdrawalID(),
			LedgerID:      t.ledger.ID,
			Issuer:        t.ledger.Issuer,
			IssuerAmount:  tr.Issuer,
			RootAuthority: t.ledger.RootAuthority,
			RootAmount:    tr.Root,
			At:            t.now,
		}
		t.ledger.Treasury = instance.Treasury{}
		t.emit(&event.Event{
			Type:         event.TypeWithdrawn,
			Reference:    w.ID.String(),
			IssuerAmount: tr.Issuer,
			RootAmount:   tr.Root,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return w, nil
}

package licensing

import (
	"context"
	"fmt"

	"github.com/xraph/licensing/access"
	"github.com/xraph/licensing/balance"
	"github.com/xraph/licensing/event"
	"github.com/xraph/licensing/id"
	"github.com/xraph/licensing/issuance"
	"github.com/xraph/licensing/types"
)

// Issue creates an issuance and assigns its whole supply to req.Owner.
// The issuance fee is IssuanceFeeRate basis points of req.Value, priced
// through the oracle. It returns the new issuance index.
func (l *Ledger) Issue(ctx context.Context, ledgerID id.LedgerID, caller types.Address, req IssueRequest) (uint64, error) {
	if err := validateStruct(req); err != nil {
		l.plugins.EmitOperationFailed(ctx, access.OpIssue, ledgerID, err)
		return 0, err
	}

	var index uint64
	_, err := l.run(ctx, access.OpIssue, ledgerID, caller, func(t *txn) error {
		if err := t.authorize(access.OpIssue); err != nil {
			return err
		}

		fiatFee := types.BasisPoints(req.Value, uint64(t.ledger.IssuanceFeeRate))
		if err := t.charge(fiatFee, req.Payment); err != nil {
			return err
		}

		index = t.ledger.IssuanceCount
		t.ledger.IssuanceCount++

		iss := &issuance.Issuance{
			Entity:         types.NewEntityAt(t.now),
			LedgerID:       t.ledger.ID,
			Index:          index,
			Description:    req.Description,
			Code:           req.Code,
			OriginalSupply: req.Supply,
			OriginalValue:  req.Value,
			AuditTime:      req.AuditTime.UTC(),
			AuditRemark:    req.AuditRemark,
			Owner:          req.Owner,
		}

		sheet := balance.NewSheet(ctx, l.store, t.ledger.ID, index, false)
		if err := sheet.Seed(req.Owner, req.Supply); err != nil {
			return err
		}

		t.batch.Issuance = iss
		t.batch.NewIssuance = true
		t.batch.Changes = sheet.Changes()

		t.emit(&event.Event{Type: event.TypeIssued, Issuance: event.Index(index), Fee: req.Payment})
		t.emit(&event.Event{
			Type:     event.TypeTransferred,
			Issuance: event.Index(index),
			From:     types.NullAddress,
			To:       req.Owner,
			Amount:   req.Supply,
		})
		return nil
	})
	if err != nil {
		return 0, err
	}

	l.logger.Info("issuance created",
		"ledger", ledgerID,
		"index", index,
		"supply", req.Supply,
		"owner", req.Owner.Hex(),
	)
	return index, nil
}

// Revoke permanently blocks all movement of an issuance's units.
func (l *Ledger) Revoke(ctx context.Context, ledgerID id.LedgerID, caller types.Address, index uint64, reason string) error {
	_, err := l.run(ctx, access.OpRevoke, ledgerID, caller, func(t *txn) error {
		if err := t.authorize(access.OpRevoke); err != nil {
			return err
		}
		iss, err := l.store.GetIssuance(ctx, ledgerID, index)
		if err != nil {
			return err
		}
		if err := iss.Revoke(reason, t.now); err != nil {
			return err
		}
		t.batch.Issuance = iss
		t.emit(&event.Event{Type: event.TypeRevoked, Issuance: event.Index(index), Reason: reason})
		return nil
	})
	if err != nil {
		return fmt.Errorf("licensing: revoke %d: %w", index, err)
	}
	return nil
}

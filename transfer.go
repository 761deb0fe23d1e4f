package licensing

import (
	"context"

	"github.com/xraph/licensing/access"
	"github.com/xraph/licensing/balance"
	"github.com/xraph/licensing/event"
	"github.com/xraph/licensing/fee"
	"github.com/xraph/licensing/id"
	"github.com/xraph/licensing/issuance"
	"github.com/xraph/licensing/types"
)

// FeeQuote is the price of moving units of an issuance.
type FeeQuote struct {
	// Value is the share of the issuance's original value being moved.
	Value uint64 `json:"value"`
	// FiatFee is the tier fee for Value.
	FiatFee uint64 `json:"fiat_fee"`
	// Required is the native payment the oracle asks for FiatFee.
	Required uint64 `json:"required"`
}

// Transfer moves req.Amount units of the caller's proper ownership to
// req.To. The transfer fee is priced from the moved share of the issuance
// value.
func (l *Ledger) Transfer(ctx context.Context, ledgerID id.LedgerID, caller types.Address, req TransferRequest) error {
	return l.transfer(ctx, access.OpTransfer, ledgerID, caller, req, false)
}

// TransferWithRecallRight moves req.Amount units to req.To while the caller
// keeps the right to recall them.
func (l *Ledger) TransferWithRecallRight(ctx context.Context, ledgerID id.LedgerID, caller types.Address, req TransferRequest) error {
	return l.transfer(ctx, access.OpTransferWithRecallRight, ledgerID, caller, req, true)
}

func (l *Ledger) transfer(ctx context.Context, op access.Operation, ledgerID id.LedgerID, caller types.Address, req TransferRequest, recallable bool) error {
	if err := validateStruct(req); err != nil {
		l.plugins.EmitOperationFailed(ctx, op, ledgerID, err)
		return err
	}

	_, err := l.run(ctx, op, ledgerID, caller, func(t *txn) error {
		if err := t.authorize(op); err != nil {
			return err
		}
		iss, err := l.store.GetIssuance(ctx, ledgerID, req.Issuance)
		if err != nil {
			return err
		}

		sheet := balance.NewSheet(ctx, l.store, ledgerID, req.Issuance, iss.Revoked)
		if recallable {
			// The witness entry is ordered by the seq of the event below.
			err = sheet.TransferWithRecallRight(caller, req.To, req.Amount, t.ledger.EventSeq+1)
		} else {
			err = sheet.Transfer(caller, req.To, req.Amount)
		}
		if err != nil {
			return err
		}

		if err := t.charge(transferFee(t.ledger.FeeTiers, iss, req.Amount), req.Payment); err != nil {
			return err
		}

		t.batch.Changes = sheet.Changes()
		t.emit(&event.Event{
			Type:       event.TypeTransferred,
			Issuance:   event.Index(req.Issuance),
			From:       caller,
			To:         req.To,
			Amount:     req.Amount,
			Recallable: recallable,
			Fee:        req.Payment,
		})
		return nil
	})
	return err
}

// Recall returns req.Amount units that req.From holds under the caller's
// recall right to the caller. Recalls carry no fee.
func (l *Ledger) Recall(ctx context.Context, ledgerID id.LedgerID, caller types.Address, req RecallRequest) error {
	if err := validateStruct(req); err != nil {
		l.plugins.EmitOperationFailed(ctx, access.OpRecall, ledgerID, err)
		return err
	}

	_, err := l.run(ctx, access.OpRecall, ledgerID, caller, func(t *txn) error {
		if err := t.authorize(access.OpRecall); err != nil {
			return err
		}
		iss, err := l.store.GetIssuance(ctx, ledgerID, req.Issuance)
		if err != nil {
			return err
		}

		sheet := balance.NewSheet(ctx, l.store, ledgerID, req.Issuance, iss.Revoked)
		if err := sheet.Recall(req.From, caller, req.Amount); err != nil {
			return err
		}

		t.batch.Changes = sheet.Changes()
		t.emit(&event.Event{
			Type:     event.TypeRecalled,
			Issuance: event.Index(req.Issuance),
			From:     req.From,
			To:       caller,
			Amount:   req.Amount,
		})
		return nil
	})
	return err
}

// QuoteTransferFee prices a transfer of amount units of an issuance
// without moving anything.
func (l *Ledger) QuoteTransferFee(ctx context.Context, ledgerID id.LedgerID, index, amount uint64) (FeeQuote, error) {
	in, err := l.store.GetLedger(ctx, ledgerID)
	if err != nil {
		return FeeQuote{}, err
	}
	iss, err := l.store.GetIssuance(ctx, ledgerID, index)
	if err != nil {
		return FeeQuote{}, err
	}

	q := FeeQuote{Value: fee.ProportionalValue(iss.OriginalValue, iss.OriginalSupply, amount)}
	q.FiatFee = in.FeeTiers.FeeFor(q.Value)
	if q.Required, err = l.gateway.RequiredPayment(ctx, q.FiatFee); err != nil {
		return FeeQuote{}, err
	}
	return q, nil
}

func transferFee(tiers fee.Table, iss *issuance.Issuance, amount uint64) uint64 {
	return tiers.FeeFor(fee.ProportionalValue(iss.OriginalValue, iss.OriginalSupply, amount))
}

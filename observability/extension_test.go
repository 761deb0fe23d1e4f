package observability

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/xraph/licensing/access"
	"github.com/xraph/licensing/event"
	"github.com/xraph/licensing/id"
	"github.com/xraph/licensing/types"
)

type fakeMetric struct {
	count    float64
	observed []float64
}

func (f *fakeMetric) Inc()              { f.count++ }
func (f *fakeMetric) Add(v float64)     { f.count += v }
func (f *fakeMetric) Observe(v float64) { f.observed = append(f.observed, v) }

type fakeFactory map[string]*fakeMetric

func (f fakeFactory) get(name string) *fakeMetric {
	m, ok := f[name]
	if !ok {
		m = &fakeMetric{}
		f[name] = m
	}
	return m
}

func (f fakeFactory) Counter(name string) Counter     { return f.get(name) }
func (f fakeFactory) Histogram(name string) Histogram { return f.get(name) }

func TestUnitMetrics(t *testing.T) {
	factory := fakeFactory{}
	m := NewMetricsExtension(factory)
	ctx := context.Background()
	holder := types.MustParseAddress("0x00000000000000000000000000000000000000a1")
	buyer := types.MustParseAddress("0x00000000000000000000000000000000000000b2")

	// Supply assignment of a new issuance.
	assert.NoError(t, m.OnTransferred(ctx, &event.Event{Type: event.TypeTransferred, To: holder, Amount: 100}))
	assert.NoError(t, m.OnTransferred(ctx, &event.Event{Type: event.TypeTransferred, From: holder, To: buyer, Amount: 40, Fee: 8}))
	assert.NoError(t, m.OnTransferred(ctx, &event.Event{Type: event.TypeTransferred, From: holder, To: buyer, Amount: 10, Recallable: true, Fee: 2}))
	assert.NoError(t, m.OnRecalled(ctx, &event.Event{Type: event.TypeRecalled, From: buyer, To: holder, Amount: 6}))

	assert.Equal(t, 2.0, factory["licensing.units.transfers"].count)
	assert.Equal(t, 1.0, factory["licensing.units.recallable_transfers"].count)
	assert.Equal(t, 10.0, factory["licensing.units.transfer_fees"].count)
	assert.Equal(t, []float64{40, 10}, factory["licensing.units.transfer_amount"].observed)
	assert.Equal(t, 1.0, factory["licensing.units.recalls"].count)
	assert.Equal(t, []float64{6}, factory["licensing.units.recall_amount"].observed)
}

func TestLedgerAndTreasuryMetrics(t *testing.T) {
	factory := fakeFactory{}
	m := NewMetricsExtension(factory)
	ctx := context.Background()

	for _, typ := range []event.Type{event.TypeLedgerCreated, event.TypeSigned, event.TypeDisabled} {
		assert.NoError(t, m.OnLedgerChanged(ctx, &event.Event{Type: typ}))
	}
	assert.NoError(t, m.OnIssued(ctx, &event.Event{Type: event.TypeIssued, Fee: 30}))
	assert.NoError(t, m.OnWithdrawn(ctx, &event.Event{Type: event.TypeWithdrawn, IssuerAmount: 5, RootAmount: 7}))

	assert.Equal(t, 1.0, factory["licensing.ledger.created"].count)
	assert.Equal(t, 1.0, factory["licensing.ledger.signed"].count)
	assert.Equal(t, 1.0, factory["licensing.ledger.disabled"].count)
	assert.Equal(t, 0.0, factory["licensing.ledger.management_taken_over"].count)
	assert.Equal(t, 30.0, factory["licensing.issuance.fees"].count)
	assert.Equal(t, 12.0, factory["licensing.treasury.withdrawn_amount"].count)
}

func TestFailureMetrics(t *testing.T) {
	factory := fakeFactory{}
	m := NewMetricsExtension(factory)
	ctx := context.Background()
	ledgerID := id.NewLedgerID()

	assert.NoError(t, m.OnOperationFailed(ctx, access.OpSign, ledgerID, fmt.Errorf("sign: %w", access.ErrNotRootAuthority)))
	assert.NoError(t, m.OnOperationFailed(ctx, access.OpIssue, ledgerID, access.ErrNotSigned))

	assert.Equal(t, 2.0, factory["licensing.operations.failed"].count)
	assert.Equal(t, 1.0, factory["licensing.operations.unauthorized"].count)
}

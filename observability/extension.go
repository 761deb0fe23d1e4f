// Package observability provides a metrics extension for the licensing
// engine that records event counts through a pluggable MetricFactory.
package observability

import (
	"context"

	"github.com/xraph/licensing/access"
	"github.com/xraph/licensing/event"
	"github.com/xraph/licensing/id"
	"github.com/xraph/licensing/plugin"
	"github.com/xraph/licensing/types"
)

// Ensure MetricsExtension implements required interfaces.
var (
	_ plugin.Plugin             = (*MetricsExtension)(nil)
	_ plugin.OnInit             = (*MetricsExtension)(nil)
	_ plugin.OnLedgerChanged    = (*MetricsExtension)(nil)
	_ plugin.OnFeeConfigChanged = (*MetricsExtension)(nil)
	_ plugin.OnIssued           = (*MetricsExtension)(nil)
	_ plugin.OnRevoked          = (*MetricsExtension)(nil)
	_ plugin.OnTransferred      = (*MetricsExtension)(nil)
	_ plugin.OnRecalled         = (*MetricsExtension)(nil)
	_ plugin.OnWithdrawn        = (*MetricsExtension)(nil)
	_ plugin.OnOperationFailed  = (*MetricsExtension)(nil)
)

// Counter interface for metric counters.
type Counter interface {
	Inc()
	Add(float64)
}

// Histogram interface for metric histograms.
type Histogram interface {
	Observe(float64)
}

// MetricFactory creates metrics.
type MetricFactory interface {
	Counter(name string) Counter
	Histogram(name string) Histogram
}

// MetricsExtension records engine-wide lifecycle metrics.
// Register it as a licensing plugin to track issuance and custody activity.
type MetricsExtension struct {
	factory MetricFactory

	// Ledger metrics
	LedgerCreated       Counter
	LedgerSigned        Counter
	LedgerDisabled      Counter
	ManagementTakenOver Counter
	FeeConfigChanged    Counter

	// Issuance metrics
	Issued       Counter
	Revoked      Counter
	IssuanceFees Counter

	// Unit metrics
	Transfers           Counter
	RecallableTransfers Counter
	TransferAmount      Histogram
	TransferFees        Counter
	Recalls             Counter
	RecallAmount        Histogram

	// Treasury metrics
	Withdrawals     Counter
	WithdrawnAmount Counter

	// Error metrics
	Unauthorized     Counter
	OperationsFailed Counter
}

// NewMetricsExtension creates a MetricsExtension with the provided MetricFactory.
// Use app.Metrics() in forge extensions.
func NewMetricsExtension(factory MetricFactory) *MetricsExtension {
	return &MetricsExtension{
		factory: factory,

		// Ledger metrics
		LedgerCreated:       factory.Counter("licensing.ledger.created"),
		LedgerSigned:        factory.Counter("licensing.ledger.signed"),
		LedgerDisabled:      factory.Counter("licensing.ledger.disabled"),
		ManagementTakenOver: factory.Counter("licensing.ledger.management_taken_over"),
		FeeConfigChanged:    factory.Counter("licensing.ledger.fee_config_changed"),

		// Issuance metrics
		Issued:       factory.Counter("licensing.issuance.issued"),
		Revoked:      factory.Counter("licensing.issuance.revoked"),
		IssuanceFees: factory.Counter("licensing.issuance.fees"),

		// Unit metrics
		Transfers:           factory.Counter("licensing.units.transfers"),
		RecallableTransfers: factory.Counter("licensing.units.recallable_transfers"),
		TransferAmount:      factory.Histogram("licensing.units.transfer_amount"),
		TransferFees:        factory.Counter("licensing.units.transfer_fees"),
		Recalls:             factory.Counter("licensing.units.recalls"),
		RecallAmount:        factory.Histogram("licensing.units.recall_amount"),

		// Treasury metrics
		Withdrawals:     factory.Counter("licensing.treasury.withdrawals"),
		WithdrawnAmount: factory.Counter("licensing.treasury.withdrawn_amount"),

		// Error metrics
		Unauthorized:     factory.Counter("licensing.operations.unauthorized"),
		OperationsFailed: factory.Counter("licensing.operations.failed"),
	}
}

// Name implements plugin.Plugin.
func (m *MetricsExtension) Name() string { return "observability-metrics" }

// OnInit implements plugin.OnInit.
func (m *MetricsExtension) OnInit(_ context.Context, _ any) error {
	return nil
}

// ──────────────────────────────────────────────────
// Ledger lifecycle hooks
// ──────────────────────────────────────────────────

// OnLedgerChanged implements plugin.OnLedgerChanged.
func (m *MetricsExtension) OnLedgerChanged(_ context.Context, e *event.Event) error {
	switch e.Type {
	case event.TypeLedgerCreated:
		m.LedgerCreated.Inc()
	case event.TypeSigned:
		m.LedgerSigned.Inc()
	case event.TypeDisabled:
		m.LedgerDisabled.Inc()
	case event.TypeManagementTakenOver:
		m.ManagementTakenOver.Inc()
	}
	return nil
}

// OnFeeConfigChanged implements plugin.OnFeeConfigChanged.
func (m *MetricsExtension) OnFeeConfigChanged(_ context.Context, _ *event.Event) error {
	m.FeeConfigChanged.Inc()
	return nil
}

// ──────────────────────────────────────────────────
// Issuance lifecycle hooks
// ──────────────────────────────────────────────────

// OnIssued implements plugin.OnIssued.
func (m *MetricsExtension) OnIssued(_ context.Context, e *event.Event) error {
	m.Issued.Inc()
	m.IssuanceFees.Add(float64(e.Fee))
	return nil
}

// OnRevoked implements plugin.OnRevoked.
func (m *MetricsExtension) OnRevoked(_ context.Context, _ *event.Event) error {
	m.Revoked.Inc()
	return nil
}

// ──────────────────────────────────────────────────
// Unit movement hooks
// ──────────────────────────────────────────────────

// OnTransferred implements plugin.OnTransferred. The assignment of a new
// issuance's supply is not a transfer between holders and is skipped.
func (m *MetricsExtension) OnTransferred(_ context.Context, e *event.Event) error {
	if types.IsNull(e.From) {
		return nil
	}
	m.Transfers.Inc()
	if e.Recallable {
		m.RecallableTransfers.Inc()
	}
	m.TransferAmount.Observe(float64(e.Amount))
	m.TransferFees.Add(float64(e.Fee))
	return nil
}

// OnRecalled implements plugin.OnRecalled.
func (m *MetricsExtension) OnRecalled(_ context.Context, e *event.Event) error {
	m.Recalls.Inc()
	m.RecallAmount.Observe(float64(e.Amount))
	return nil
}

// OnWithdrawn implements plugin.OnWithdrawn.
func (m *MetricsExtension) OnWithdrawn(_ context.Context, e *event.Event) error {
	m.Withdrawals.Inc()
	m.WithdrawnAmount.Add(float64(e.IssuerAmount) + float64(e.RootAmount))
	return nil
}

// ──────────────────────────────────────────────────
// Failure hooks
// ──────────────────────────────────────────────────

// OnOperationFailed implements plugin.OnOperationFailed.
func (m *MetricsExtension) OnOperationFailed(_ context.Context, _ access.Operation, _ id.LedgerID, err error) error {
	m.OperationsFailed.Inc()
	if access.IsUnauthorized(err) {
		m.Unauthorized.Inc()
	}
	return nil
}

// Package audithook bridges licensing ledger events to an audit trail backend.
//
// It defines a local Recorder interface so the package does not import
// Chronicle directly. Callers inject a RecorderFunc adapter that bridges
// to Chronicle at wiring time.
package audithook

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	licensing "github.com/xraph/licensing"
	"github.com/xraph/licensing/access"
	"github.com/xraph/licensing/event"
	"github.com/xraph/licensing/id"
	"github.com/xraph/licensing/plugin"
)

// Compile-time interface checks.
var (
	_ plugin.Plugin             = (*Extension)(nil)
	_ plugin.OnLedgerChanged    = (*Extension)(nil)
	_ plugin.OnFeeConfigChanged = (*Extension)(nil)
	_ plugin.OnIssued           = (*Extension)(nil)
	_ plugin.OnRevoked          = (*Extension)(nil)
	_ plugin.OnTransferred      = (*Extension)(nil)
	_ plugin.OnRecalled         = (*Extension)(nil)
	_ plugin.OnWithdrawn        = (*Extension)(nil)
	_ plugin.OnOperationFailed  = (*Extension)(nil)
)

// Recorder is the interface that audit backends must implement.
// This matches chronicle.Emitter but is defined locally so that the
// audit_hook package does not import Chronicle directly.
type Recorder interface {
	Record(ctx context.Context, event *AuditEvent) error
}

// AuditEvent is a local representation of an audit event.
// It mirrors chronicle/audit.Event but avoids a module dependency.
type AuditEvent struct {
	Action     string         `json:"action"`
	Resource   string         `json:"resource"`
	Category   string         `json:"category"`
	ResourceID string         `json:"resource_id,omitempty"`
	Actor      string         `json:"actor,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	Outcome    string         `json:"outcome"`
	Severity   string         `json:"severity"`
	Reason     string         `json:"reason,omitempty"`
}

// RecorderFunc is an adapter to use a plain function as a Recorder.
type RecorderFunc func(ctx context.Context, event *AuditEvent) error

// Record implements Recorder.
func (f RecorderFunc) Record(ctx context.Context, event *AuditEvent) error {
	return f(ctx, event)
}

// Extension bridges ledger events to an audit trail backend.
type Extension struct {
	recorder Recorder
	enabled  map[string]bool // nil = all enabled
	logger   *slog.Logger
}

// New creates an Extension that emits audit events through the provided Recorder.
func New(r Recorder, opts ...Option) *Extension {
	e := &Extension{
		recorder: r,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Name implements plugin.Plugin.
func (e *Extension) Name() string { return "audit-hook" }

// ──────────────────────────────────────────────────
// Ledger lifecycle hooks
// ──────────────────────────────────────────────────

// OnLedgerChanged implements plugin.OnLedgerChanged.
func (e *Extension) OnLedgerChanged(ctx context.Context, evt *event.Event) error {
	var (
		action   string
		severity = SeverityInfo
		kv       []any
	)
	switch evt.Type {
	case event.TypeLedgerCreated:
		action = ActionLedgerCreated
	case event.TypeSigned:
		action = ActionLedgerSigned
	case event.TypeDisabled:
		action = ActionLedgerDisabled
		severity = SeverityWarning
	case event.TypeManagementTakenOver:
		action = ActionManagementTakenOver
		severity = SeverityWarning
		kv = append(kv, "manager", evt.Manager.Hex())
	default:
		return nil
	}
	return e.recordEvent(ctx, evt, action, severity, ResourceLedger, CategoryGovernance, kv...)
}

// OnFeeConfigChanged implements plugin.OnFeeConfigChanged.
func (e *Extension) OnFeeConfigChanged(ctx context.Context, evt *event.Event) error {
	switch evt.Type {
	case event.TypeFeeRateChanged:
		return e.recordEvent(ctx, evt, ActionIssuanceFeeRateChanged, SeverityInfo,
			ResourceLedger, CategoryFees, "rate", evt.Rate)
	case event.TypeTransferFeeTiersChanged:
		return e.recordEvent(ctx, evt, ActionTransferTiersChanged, SeverityInfo,
			ResourceLedger, CategoryFees, "minimums", evt.Minimums, "rates", evt.Rates)
	case event.TypeIssuerFeeShareChanged:
		return e.recordEvent(ctx, evt, ActionIssuerFeeShareChanged, SeverityInfo,
			ResourceLedger, CategoryFees, "share", evt.Rate)
	}
	return nil
}

// ──────────────────────────────────────────────────
// Issuance lifecycle hooks
// ──────────────────────────────────────────────────

// OnIssued implements plugin.OnIssued.
func (e *Extension) OnIssued(ctx context.Context, evt *event.Event) error {
	return e.recordEvent(ctx, evt, ActionIssued, SeverityInfo,
		ResourceIssuance, CategoryIssuance,
		"fee", evt.Fee,
	)
}

// OnRevoked implements plugin.OnRevoked.
func (e *Extension) OnRevoked(ctx context.Context, evt *event.Event) error {
	return e.recordEvent(ctx, evt, ActionRevoked, SeverityWarning,
		ResourceIssuance, CategoryIssuance,
		"revocation_reason", evt.Reason,
	)
}

// ──────────────────────────────────────────────────
// Unit movement hooks
// ──────────────────────────────────────────────────

// OnTransferred implements plugin.OnTransferred.
func (e *Extension) OnTransferred(ctx context.Context, evt *event.Event) error {
	return e.recordEvent(ctx, evt, ActionTransferred, SeverityInfo,
		ResourceIssuance, CategoryCustody,
		"from", evt.From.Hex(),
		"to", evt.To.Hex(),
		"amount", evt.Amount,
		"recallable", evt.Recallable,
		"fee", evt.Fee,
	)
}

// OnRecalled implements plugin.OnRecalled.
func (e *Extension) OnRecalled(ctx context.Context, evt *event.Event) error {
	return e.recordEvent(ctx, evt, ActionRecalled, SeverityInfo,
		ResourceIssuance, CategoryCustody,
		"holder", evt.From.Hex(),
		"recaller", evt.To.Hex(),
		"amount", evt.Amount,
	)
}

// OnWithdrawn implements plugin.OnWithdrawn.
func (e *Extension) OnWithdrawn(ctx context.Context, evt *event.Event) error {
	return e.recordEvent(ctx, evt, ActionWithdrawn, SeverityInfo,
		ResourceTreasury, CategoryPayment,
		"withdrawal_id", evt.Reference,
		"issuer_amount", evt.IssuerAmount,
		"root_amount", evt.RootAmount,
	)
}

// ──────────────────────────────────────────────────
// Failure hooks
// ──────────────────────────────────────────────────

// OnOperationFailed implements plugin.OnOperationFailed. Authorization
// failures are recorded as warnings, everything else as errors.
func (e *Extension) OnOperationFailed(ctx context.Context, op access.Operation, ledgerID id.LedgerID, err error) error {
	severity := SeverityError
	if licensing.IsUnauthorized(err) {
		severity = SeverityWarning
	}
	return e.record(ctx, ActionOperationFailed, severity, OutcomeFailure,
		ResourceLedger, ledgerID.String(), CategoryAccess, "", err,
		"operation", string(op),
		"kind", licensing.KindOf(err).String(),
	)
}

// ──────────────────────────────────────────────────
// Internal helpers
// ──────────────────────────────────────────────────

// recordEvent records a successful, committed event.
func (e *Extension) recordEvent(
	ctx context.Context,
	evt *event.Event,
	action, severity, resource, category string,
	kvPairs ...any,
) error {
	resourceID := evt.LedgerID.String()
	if idx, ok := evt.IssuanceIndex(); ok {
		resourceID += "/" + strconv.FormatUint(idx, 10)
	}
	kvPairs = append(kvPairs, "seq", evt.Seq, "event_id", evt.ID.String())
	return e.record(ctx, action, severity, OutcomeSuccess,
		resource, resourceID, category, evt.Actor.Hex(), nil, kvPairs...)
}

// record builds and sends an audit event if the action is enabled.
func (e *Extension) record(
	ctx context.Context,
	action, severity, outcome string,
	resource, resourceID, category, actor string,
	err error,
	kvPairs ...any,
) error {
	if e.enabled != nil && !e.enabled[action] {
		return nil
	}

	meta := make(map[string]any, len(kvPairs)/2+1)
	for i := 0; i+1 < len(kvPairs); i += 2 {
		key, ok := kvPairs[i].(string)
		if !ok {
			key = fmt.Sprintf("%v", kvPairs[i])
		}
		meta[key] = kvPairs[i+1]
	}

	var reason string
	if err != nil {
		reason = err.Error()
		meta["error"] = err.Error()
	}

	evt := &AuditEvent{
		Action:     action,
		Resource:   resource,
		Category:   category,
		ResourceID: resourceID,
		Actor:      actor,
		Metadata:   meta,
		Outcome:    outcome,
		Severity:   severity,
		Reason:     reason,
	}

	if recErr := e.recorder.Record(ctx, evt); recErr != nil {
		e.logger.Warn("audit_hook: failed to record audit event",
			"action", action,
			"resource_id", resourceID,
			"error", recErr,
		)
	}
	return nil
}

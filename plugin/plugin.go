// Package plugin lets extensions observe the licensing engine.
//
// A plugin implements Plugin plus any of the hook interfaces below. Hooks
// run after the operation has committed, each under a timeout; a failing
// hook is logged and never affects the operation's outcome.
package plugin

import (
	"context"

	"github.com/xraph/licensing/access"
	"github.com/xraph/licensing/event"
	"github.com/xraph/licensing/id"
)

// Plugin is the base interface that all plugins must implement.
type Plugin interface {
	Name() string
}

// ──────────────────────────────────────────────────
// Lifecycle hooks
// ──────────────────────────────────────────────────

// OnInit is called when the engine starts.
type OnInit interface {
	Plugin
	OnInit(ctx context.Context, engine any) error
}

// OnShutdown is called when the engine stops.
type OnShutdown interface {
	Plugin
	OnShutdown(ctx context.Context) error
}

// ──────────────────────────────────────────────────
// Event hooks
// ──────────────────────────────────────────────────

// OnEvent receives every committed event.
type OnEvent interface {
	Plugin
	OnEvent(ctx context.Context, e *event.Event) error
}

// OnLedgerChanged receives ledger lifecycle events: creation, signing,
// disabling and management takeover.
type OnLedgerChanged interface {
	Plugin
	OnLedgerChanged(ctx context.Context, e *event.Event) error
}

// OnFeeConfigChanged receives fee rate, fee tier and fee share changes.
type OnFeeConfigChanged interface {
	Plugin
	OnFeeConfigChanged(ctx context.Context, e *event.Event) error
}

// OnIssued is called when an issuance is created.
type OnIssued interface {
	Plugin
	OnIssued(ctx context.Context, e *event.Event) error
}

// OnRevoked is called when an issuance is revoked.
type OnRevoked interface {
	Plugin
	OnRevoked(ctx context.Context, e *event.Event) error
}

// OnTransferred is called for every transfer, including the initial
// assignment of a new issuance.
type OnTransferred interface {
	Plugin
	OnTransferred(ctx context.Context, e *event.Event) error
}

// OnRecalled is called when units are recalled.
type OnRecalled interface {
	Plugin
	OnRecalled(ctx context.Context, e *event.Event) error
}

// OnWithdrawn is called when the treasury is withdrawn.
type OnWithdrawn interface {
	Plugin
	OnWithdrawn(ctx context.Context, e *event.Event) error
}

// ──────────────────────────────────────────────────
// Failure hooks
// ──────────────────────────────────────────────────

// OnOperationFailed is called when an operation is rejected. Nothing was
// committed.
type OnOperationFailed interface {
	Plugin
	OnOperationFailed(ctx context.Context, op access.Operation, ledgerID id.LedgerID, err error) error
}

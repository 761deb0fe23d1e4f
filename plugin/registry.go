package plugin

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/xraph/licensing/access"
	"github.com/xraph/licensing/event"
	"github.com/xraph/licensing/id"
)

// DefaultTimeout bounds every hook call.
const DefaultTimeout = 5 * time.Second

// Registry manages registered plugins and dispatches hooks to them.
// Hook implementations are discovered once at registration.
type Registry struct {
	mu      sync.RWMutex
	plugins []Plugin
	logger  *slog.Logger
	timeout time.Duration

	onInit             []OnInit
	onShutdown         []OnShutdown
	onEvent            []OnEvent
	onLedgerChanged    []OnLedgerChanged
	onFeeConfigChanged []OnFeeConfigChanged
	onIssued           []OnIssued
	onRevoked          []OnRevoked
	onTransferred      []OnTransferred
	onRecalled         []OnRecalled
	onWithdrawn        []OnWithdrawn
	onOperationFailed  []OnOperationFailed
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		logger:  slog.Default(),
		timeout: DefaultTimeout,
	}
}

// WithLogger sets the logger for the registry.
func (r *Registry) WithLogger(logger *slog.Logger) *Registry {
	r.logger = logger
	return r
}

// WithTimeout overrides the per-hook timeout.
func (r *Registry) WithTimeout(d time.Duration) *Registry {
	r.timeout = d
	return r
}

// Register adds a plugin and caches the hooks it implements.
func (r *Registry) Register(p Plugin) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.plugins {
		if existing.Name() == p.Name() {
			return fmt.Errorf("plugin: duplicate registration: %s", p.Name())
		}
	}
	r.plugins = append(r.plugins, p)

	var hooks []string
	if v, ok := p.(OnInit); ok {
		r.onInit = append(r.onInit, v)
		hooks = append(hooks, "OnInit")
	}
	if v, ok := p.(OnShutdown); ok {
		r.onShutdown = append(r.onShutdown, v)
		hooks = append(hooks, "OnShutdown")
	}
	if v, ok := p.(OnEvent); ok {
		r.onEvent = append(r.onEvent, v)
		hooks = append(hooks, "OnEvent")
	}
	if v, ok := p.(OnLedgerChanged); ok {
		r.onLedgerChanged = append(r.onLedgerChanged, v)
		hooks = append(hooks, "OnLedgerChanged")
	}
	if v, ok := p.(OnFeeConfigChanged); ok {
		r.onFeeConfigChanged = append(r.onFeeConfigChanged, v)
		hooks = append(hooks, "OnFeeConfigChanged")
	}
	if v, ok := p.(OnIssued); ok {
		r.onIssued = append(r.onIssued, v)
		hooks = append(hooks, "OnIssued")
	}
	if v, ok := p.(OnRevoked); ok {
		r.onRevoked = append(r.onRevoked, v)
		hooks = append(hooks, "OnRevoked")
	}
	if v, ok := p.(OnTransferred); ok {
		r.onTransferred = append(r.onTransferred, v)
		hooks = append(hooks, "OnTransferred")
	}
	if v, ok := p.(OnRecalled); ok {
		r.onRecalled = append(r.onRecalled, v)
		hooks = append(hooks, "OnRecalled")
	}
	if v, ok := p.(OnWithdrawn); ok {
		r.onWithdrawn = append(r.onWithdrawn, v)
		hooks = append(hooks, "OnWithdrawn")
	}
	if v, ok := p.(OnOperationFailed); ok {
		r.onOperationFailed = append(r.onOperationFailed, v)
		hooks = append(hooks, "OnOperationFailed")
	}

	r.logger.Info("plugin registered", "name", p.Name(), "hooks", hooks)
	return nil
}

// Get returns a plugin by name, or nil.
func (r *Registry) Get(name string) Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, p := range r.plugins {
		if p.Name() == name {
			return p
		}
	}
	return nil
}

// List returns all registered plugins.
func (r *Registry) List() []Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Plugin, len(r.plugins))
	copy(result, r.plugins)
	return result
}

// Count returns the number of registered plugins.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.plugins)
}

// ──────────────────────────────────────────────────
// Dispatch
// ──────────────────────────────────────────────────

// EmitInit calls OnInit on every plugin that implements it.
func (r *Registry) EmitInit(ctx context.Context, engine any) {
	r.mu.RLock()
	plugins := r.onInit
	r.mu.RUnlock()

	for _, p := range plugins {
		r.call(ctx, p.Name(), "OnInit", func() error { return p.OnInit(ctx, engine) })
	}
}

// EmitShutdown calls OnShutdown on every plugin that implements it.
func (r *Registry) EmitShutdown(ctx context.Context) {
	r.mu.RLock()
	plugins := r.onShutdown
	r.mu.RUnlock()

	for _, p := range plugins {
		r.call(ctx, p.Name(), "OnShutdown", func() error { return p.OnShutdown(ctx) })
	}
}

// Emit dispatches e to OnEvent hooks and to the hook matching its type.
func (r *Registry) Emit(ctx context.Context, e *event.Event) {
	r.mu.RLock()
	generic := r.onEvent
	ledger := r.onLedgerChanged
	feeCfg := r.onFeeConfigChanged
	issued := r.onIssued
	revoked := r.onRevoked
	transferred := r.onTransferred
	recalled := r.onRecalled
	withdrawn := r.onWithdrawn
	r.mu.RUnlock()

	for _, p := range generic {
		r.call(ctx, p.Name(), "OnEvent", func() error { return p.OnEvent(ctx, e) })
	}

	switch e.Type {
	case event.TypeLedgerCreated, event.TypeSigned, event.TypeDisabled, event.TypeManagementTakenOver:
		for _, p := range ledger {
			r.call(ctx, p.Name(), "OnLedgerChanged", func() error { return p.OnLedgerChanged(ctx, e) })
		}
	case event.TypeFeeRateChanged, event.TypeTransferFeeTiersChanged, event.TypeIssuerFeeShareChanged:
		for _, p := range feeCfg {
			r.call(ctx, p.Name(), "OnFeeConfigChanged", func() error { return p.OnFeeConfigChanged(ctx, e) })
		}
	case event.TypeIssued:
		for _, p := range issued {
			r.call(ctx, p.Name(), "OnIssued", func() error { return p.OnIssued(ctx, e) })
		}
	case event.TypeRevoked:
		for _, p := range revoked {
			r.call(ctx, p.Name(), "OnRevoked", func() error { return p.OnRevoked(ctx, e) })
		}
	case event.TypeTransferred:
		for _, p := range transferred {
			r.call(ctx, p.Name(), "OnTransferred", func() error { return p.OnTransferred(ctx, e) })
		}
	case event.TypeRecalled:
		for _, p := range recalled {
			r.call(ctx, p.Name(), "OnRecalled", func() error { return p.OnRecalled(ctx, e) })
		}
	case event.TypeWithdrawn:
		for _, p := range withdrawn {
			r.call(ctx, p.Name(), "OnWithdrawn", func() error { return p.OnWithdrawn(ctx, e) })
		}
	}
}

// EmitOperationFailed reports a rejected operation.
func (r *Registry) EmitOperationFailed(ctx context.Context, op access.Operation, ledgerID id.LedgerID, opErr error) {
	r.mu.RLock()
	plugins := r.onOperationFailed
	r.mu.RUnlock()

	for _, p := range plugins {
		r.call(ctx, p.Name(), "OnOperationFailed", func() error {
			return p.OnOperationFailed(ctx, op, ledgerID, opErr)
		})
	}
}

func (r *Registry) call(ctx context.Context, pluginName, hook string, fn func() error) {
	if err := r.callWithTimeout(ctx, pluginName, fn); err != nil {
		r.logger.Warn("plugin hook failed",
			"plugin", pluginName,
			"hook", hook,
			"error", err,
		)
	}
}

// callWithTimeout runs fn, giving up after the registry timeout.
func (r *Registry) callWithTimeout(ctx context.Context, pluginName string, fn func() error) error {
	done := make(chan error, 1)

	go func() {
		done <- fn()
	}()

	timer := time.NewTimer(r.timeout)
	defer timer.Stop()

	select {
	case err := <-done:
		return err
	case <-timer.C:
		return fmt.Errorf("plugin timeout: %s", pluginName)
	case <-ctx.Done():
		return ctx.Err()
	}
}

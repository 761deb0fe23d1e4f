package licensing

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/xraph/licensing/access"
	"github.com/xraph/licensing/event"
	"github.com/xraph/licensing/fee"
	"github.com/xraph/licensing/id"
	"github.com/xraph/licensing/instance"
	"github.com/xraph/licensing/oracle"
	"github.com/xraph/licensing/plugin"
	"github.com/xraph/licensing/store"
	"github.com/xraph/licensing/types"
)

// Defaults are applied to every ledger created by the engine.
type Defaults struct {
	FeeTiers        fee.Table
	IssuerFeeShare  uint16
	IssuanceFeeRate uint16
}

// Ledger is the licensing engine. It serves any number of ledger instances
// from one store and runs every mutating operation one at a time.
type Ledger struct {
	store   store.Store
	plugins *plugin.Registry
	gateway *oracle.Gateway
	logger  *slog.Logger
	clock   func() time.Time

	defaults         Defaults
	registry         types.Address
	allowOverpayment bool

	// mu serialises every mutating operation across all instances.
	mu sync.Mutex
}

// New creates a new engine over s.
func New(s store.Store, opts ...Option) *Ledger {
	l := &Ledger{
		store:            s,
		plugins:          plugin.NewRegistry(),
		gateway:          oracle.NewGateway(nil),
		logger:           slog.Default(),
		clock:            func() time.Time { return time.Now().UTC() },
		allowOverpayment: true,
	}

	for _, opt := range opts {
		opt(l)
	}

	return l
}

// Option configures a Ledger instance.
type Option func(*Ledger)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Ledger) {
		l.logger = logger
		l.plugins.WithLogger(logger)
	}
}

// WithPlugin registers a plugin.
func WithPlugin(p plugin.Plugin) Option {
	return func(l *Ledger) {
		_ = l.plugins.Register(p) //nolint:errcheck // best-effort plugin registration during init
	}
}

// WithOracle sets the price service used to convert fiat fees.
func WithOracle(o oracle.Oracle) Option {
	return func(l *Ledger) {
		l.gateway = oracle.NewGateway(o)
	}
}

// WithDefaults sets the fee configuration given to new ledgers.
func WithDefaults(d Defaults) Option {
	return func(l *Ledger) {
		d.FeeTiers = d.FeeTiers.Clone()
		l.defaults = d
	}
}

// WithRegistryIdentity sets the root authority of ledgers created without
// an explicit one.
func WithRegistryIdentity(a types.Address) Option {
	return func(l *Ledger) {
		l.registry = a
	}
}

// WithOverpayment controls whether payments above the required fee are
// accepted and retained. Enabled by default.
func WithOverpayment(allow bool) Option {
	return func(l *Ledger) {
		l.allowOverpayment = allow
	}
}

// WithClock overrides the time source.
func WithClock(clock func() time.Time) Option {
	return func(l *Ledger) {
		l.clock = clock
	}
}

// Start migrates the store and initialises plugins.
func (l *Ledger) Start(ctx context.Context) error {
	if err := l.store.Migrate(ctx); err != nil {
		return err
	}

	l.plugins.EmitInit(ctx, l)

	l.logger.Info("licensing engine started",
		"plugins", l.plugins.Count(),
		"fee_tiers", l.defaults.FeeTiers.Count(),
		"oracle", l.gateway.Oracle() != nil,
	)
	return nil
}

// Stop shuts down plugins and closes the store.
func (l *Ledger) Stop() error {
	l.plugins.EmitShutdown(context.Background())
	return l.store.Close()
}

// Store returns the underlying store.
func (l *Ledger) Store() store.Store { return l.store }

// Plugins returns the plugin registry.
func (l *Ledger) Plugins() *plugin.Registry { return l.plugins }

// ──────────────────────────────────────────────────
// Operation pipeline
// ──────────────────────────────────────────────────

// txn accumulates the writes and events of one operation.
type txn struct {
	l      *Ledger
	ctx    context.Context
	ledger *instance.Instance
	batch  store.Batch
	now    time.Time
	actor  types.Address

	fiatFee  uint64
	required uint64
}

func (t *txn) emit(e *event.Event) *event.Event {
	e.ID = id.NewEventID()
	e.LedgerID = t.ledger.ID
	e.Seq = t.ledger.NextSeq()
	e.Actor = t.actor
	e.OccurredAt = t.now
	t.batch.Events = append(t.batch.Events, e)
	return e
}

// charge prices fiatFee, checks payment against it and credits any
// overpayment to the treasury. The fee itself is forwarded at commit.
func (t *txn) charge(fiatFee, payment uint64) error {
	required, err := t.l.gateway.RequiredPayment(t.ctx, fiatFee)
	if err != nil {
		return err
	}
	if payment < required {
		return fmt.Errorf("%w: paid %d, required %d", ErrInsufficientFee, payment, required)
	}
	excess := payment - required
	if excess > 0 {
		if !t.l.allowOverpayment {
			return fmt.Errorf("%w: paid %d, required %d", ErrOverpayment, payment, required)
		}
		issuerCut, rootCut := fee.Split(excess, t.ledger.IssuerFeeShare)
		tr := t.ledger.Treasury
		if tr.Issuer, err = types.CheckedAdd(tr.Issuer, issuerCut); err != nil {
			return fmt.Errorf("%w: issuer treasury", ErrBalanceOverflow)
		}
		if tr.Root, err = types.CheckedAdd(tr.Root, rootCut); err != nil {
			return fmt.Errorf("%w: root treasury", ErrBalanceOverflow)
		}
		t.ledger.Treasury = tr
	}
	t.fiatFee = fiatFee
	t.required = required
	return nil
}

// run executes fn against a fresh copy of the ledger and commits it. Any
// fee is forwarded from inside the commit, after the store has accepted the
// writes. Plugins are notified after the lock is released.
func (l *Ledger) run(ctx context.Context, op access.Operation, ledgerID id.LedgerID, caller types.Address, fn func(t *txn) error) (*txn, error) {
	t, err := l.apply(ctx, ledgerID, caller, fn)
	if err != nil {
		l.logger.Debug("operation rejected",
			"op", op,
			"ledger", ledgerID,
			"caller", caller.Hex(),
			"error", err,
		)
		l.plugins.EmitOperationFailed(ctx, op, ledgerID, err)
		return nil, err
	}

	for _, e := range t.batch.Events {
		l.plugins.Emit(ctx, e)
	}
	return t, nil
}

func (l *Ledger) apply(ctx context.Context, ledgerID id.LedgerID, caller types.Address, fn func(t *txn) error) (*txn, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	in, err := l.store.GetLedger(ctx, ledgerID)
	if err != nil {
		return nil, err
	}

	now := l.clock()
	t := &txn{
		l:      l,
		ctx:    ctx,
		ledger: in,
		batch:  store.Batch{ExpectedVersion: in.Version},
		now:    now,
		actor:  caller,
	}
	if err := fn(t); err != nil {
		return nil, err
	}

	t.ledger.Version++
	t.ledger.Touch(now)
	t.batch.Ledger = t.ledger

	forwarded := false
	t.batch.BeforeCommit = func(ctx context.Context) error {
		if forwarded {
			return nil
		}
		if err := l.gateway.Forward(ctx, t.fiatFee, t.required); err != nil {
			return err
		}
		forwarded = true
		return nil
	}

	if err := l.store.Commit(ctx, &t.batch); err != nil {
		if forwarded && t.required > 0 {
			l.logger.Error("commit failed after fee was forwarded",
				"ledger", ledgerID,
				"forwarded", t.required,
				"error", err,
			)
		}
		return nil, fmt.Errorf("licensing: commit: %w", err)
	}
	return t, nil
}

// authorize is the first step of every gated operation.
func (t *txn) authorize(op access.Operation) error {
	_, err := t.ledger.Authorize(op, t.actor)
	return err
}

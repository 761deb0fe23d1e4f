// Package store defines the persistence contract of the licensing engine.
//
// Reads go through narrow query methods. Every write an operation makes is
// collected in one Batch and applied by Commit atomically: either all of it
// becomes visible or none of it does.
package store

import (
	"context"
	"errors"

	"github.com/xraph/licensing/balance"
	"github.com/xraph/licensing/event"
	"github.com/xraph/licensing/id"
	"github.com/xraph/licensing/instance"
	"github.com/xraph/licensing/issuance"
	"github.com/xraph/licensing/types"
)

var (
	// ErrConflict is returned by Commit when the ledger changed since it
	// was read.
	ErrConflict = errors.New("store: ledger modified concurrently")
	// ErrAlreadyExists is returned when creating a ledger whose ID is taken.
	ErrAlreadyExists = errors.New("store: already exists")
	// ErrInvalidBatch is returned for a batch that cannot be applied.
	ErrInvalidBatch = errors.New("store: invalid batch")
)

// Batch is the complete set of writes of one operation.
type Batch struct {
	// Ledger is the post-operation state of the ledger. Required.
	Ledger *instance.Instance
	// Create inserts Ledger instead of updating it.
	Create bool
	// ExpectedVersion is the Version Ledger had when it was read. Ignored
	// when Create is set.
	ExpectedVersion uint64

	// Issuance is inserted when NewIssuance is set, updated otherwise.
	Issuance    *issuance.Issuance
	NewIssuance bool

	Changes balance.Changes
	Events  []*event.Event

	// BeforeCommit, when set, runs after every write of the batch has been
	// applied inside the store's transaction and before it is made visible.
	// An error aborts the commit with nothing written. A version conflict
	// is detected before it runs. Stores that retry transactions may call
	// it more than once for the same batch. The store's locks are held while
	// it runs, so it must not write to the same store.
	BeforeCommit func(ctx context.Context) error
}

// RunBeforeCommit invokes the batch hook if one is set.
func (b *Batch) RunBeforeCommit(ctx context.Context) error {
	if b.BeforeCommit == nil {
		return nil
	}
	return b.BeforeCommit(ctx)
}

// Validate checks the batch is self-consistent.
func (b *Batch) Validate() error {
	if b == nil || b.Ledger == nil {
		return errors.Join(ErrInvalidBatch, errors.New("ledger state is required"))
	}
	if !b.Create && b.Ledger.Version != b.ExpectedVersion+1 {
		return errors.Join(ErrInvalidBatch, errors.New("ledger version must advance by one"))
	}
	if b.Issuance != nil && b.Issuance.LedgerID != b.Ledger.ID {
		return errors.Join(ErrInvalidBatch, errors.New("issuance belongs to another ledger"))
	}
	for _, e := range b.Events {
		if e.LedgerID != b.Ledger.ID {
			return errors.Join(ErrInvalidBatch, errors.New("event belongs to another ledger"))
		}
	}
	return nil
}

// Store is the unified storage interface.
type Store interface {
	// Ledger instances
	GetLedger(ctx context.Context, ledgerID id.LedgerID) (*instance.Instance, error)
	ListLedgers(ctx context.Context, opts instance.ListOpts) ([]*instance.Instance, error)

	// Issuances
	GetIssuance(ctx context.Context, ledgerID id.LedgerID, index uint64) (*issuance.Issuance, error)
	ListIssuances(ctx context.Context, ledgerID id.LedgerID, opts issuance.ListOpts) ([]*issuance.Issuance, error)

	// Balances
	Balance(ctx context.Context, ledgerID id.LedgerID, index uint64, holder, recallRight types.Address) (uint64, error)
	TemporaryBalance(ctx context.Context, ledgerID id.LedgerID, index uint64, holder types.Address) (uint64, error)
	// ListBalances returns the non-zero balance cells of an issuance.
	ListBalances(ctx context.Context, ledgerID id.LedgerID, index uint64) ([]balance.Entry, error)
	RecallWitnesses(ctx context.Context, ledgerID id.LedgerID, index uint64, owner types.Address) ([]types.Address, error)
	HolderIssuances(ctx context.Context, ledgerID id.LedgerID, holder types.Address) ([]uint64, error)

	// Events
	ListEvents(ctx context.Context, ledgerID id.LedgerID, opts event.ListOpts) ([]*event.Event, error)

	// Commit applies b atomically.
	Commit(ctx context.Context, b *Batch) error

	// Core methods
	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}

var _ balance.Reader = (Store)(nil)

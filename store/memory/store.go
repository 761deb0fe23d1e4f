// Package memory is an in-process store.Store for tests and single-process
// deployments. Commit validates the whole batch before touching any map.
package memory

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"

	"github.com/xraph/licensing/balance"
	"github.com/xraph/licensing/event"
	"github.com/xraph/licensing/id"
	"github.com/xraph/licensing/instance"
	"github.com/xraph/licensing/issuance"
	"github.com/xraph/licensing/store"
	"github.com/xraph/licensing/types"
)

var _ store.Store = (*Store)(nil)

type balanceKey struct {
	ledger      id.LedgerID
	issuance    uint64
	holder      types.Address
	recallRight types.Address
}

type holderKey struct {
	ledger   id.LedgerID
	issuance uint64
	holder   types.Address
}

type relevanceKey struct {
	ledger id.LedgerID
	holder types.Address
}

type Store struct {
	mu sync.RWMutex

	ledgers     map[id.LedgerID]*instance.Instance
	ledgerOrder []id.LedgerID

	// issuances are indexed by creation position.
	issuances map[id.LedgerID][]*issuance.Issuance

	// Sparse balance map keyed by (ledger, issuance, holder, recallRight).
	balances    map[balanceKey]uint64
	temporaries map[holderKey]uint64
	witnesses   map[holderKey][]balance.Witness
	relevance   map[relevanceKey][]uint64

	events map[id.LedgerID][]*event.Event
}

func New() *Store {
	return &Store{
		ledgers:     make(map[id.LedgerID]*instance.Instance),
		issuances:   make(map[id.LedgerID][]*issuance.Issuance),
		balances:    make(map[balanceKey]uint64),
		temporaries: make(map[holderKey]uint64),
		witnesses:   make(map[holderKey][]balance.Witness),
		relevance:   make(map[relevanceKey][]uint64),
		events:      make(map[id.LedgerID][]*event.Event),
	}
}

// ==================== Ledger instances ====================

func (s *Store) GetLedger(_ context.Context, ledgerID id.LedgerID) (*instance.Instance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if in, ok := s.ledgers[ledgerID]; ok {
		return in.Clone(), nil
	}
	return nil, fmt.Errorf("%w: %s", instance.ErrNotFound, ledgerID)
}

func (s *Store) ListLedgers(_ context.Context, opts instance.ListOpts) ([]*instance.Instance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*instance.Instance, 0, len(s.ledgerOrder))
	for _, lid := range s.ledgerOrder {
		in := s.ledgers[lid]
		if opts.Issuer != nil && in.Issuer != *opts.Issuer {
			continue
		}
		result = append(result, in.Clone())
	}
	return page(result, opts.Offset, opts.Limit), nil
}

// ==================== Issuances ====================

func (s *Store) GetIssuance(_ context.Context, ledgerID id.LedgerID, index uint64) (*issuance.Issuance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	list := s.issuances[ledgerID]
	if index >= uint64(len(list)) {
		return nil, fmt.Errorf("%w: %s/%d", issuance.ErrNotFound, ledgerID, index)
	}
	return list[index].Clone(), nil
}

func (s *Store) ListIssuances(_ context.Context, ledgerID id.LedgerID, opts issuance.ListOpts) ([]*issuance.Issuance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	list := s.issuances[ledgerID]
	result := make([]*issuance.Issuance, len(list))
	for i, iss := range list {
		result[i] = iss.Clone()
	}
	return page(result, opts.Offset, opts.Limit), nil
}

// ==================== Balances ====================

func (s *Store) Balance(_ context.Context, ledgerID id.LedgerID, index uint64, holder, recallRight types.Address) (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.balances[balanceKey{ledgerID, index, holder, recallRight}], nil
}

func (s *Store) TemporaryBalance(_ context.Context, ledgerID id.LedgerID, index uint64, holder types.Address) (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.temporaries[holderKey{ledgerID, index, holder}], nil
}

func (s *Store) ListBalances(_ context.Context, ledgerID id.LedgerID, index uint64) ([]balance.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []balance.Entry
	for k, v := range s.balances {
		if k.ledger != ledgerID || k.issuance != index || v == 0 {
			continue
		}
		result = append(result, balance.Entry{
			LedgerID:    k.ledger,
			Issuance:    k.issuance,
			Holder:      k.holder,
			RecallRight: k.recallRight,
			Amount:      v,
		})
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Holder != result[j].Holder {
			return result[i].Holder.Cmp(result[j].Holder) < 0
		}
		return result[i].RecallRight.Cmp(result[j].RecallRight) < 0
	})
	return result, nil
}

func (s *Store) RecallWitnesses(_ context.Context, ledgerID id.LedgerID, index uint64, owner types.Address) ([]types.Address, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	log := s.witnesses[holderKey{ledgerID, index, owner}]
	result := make([]types.Address, len(log))
	for i, w := range log {
		result[i] = w.Holder
	}
	return result, nil
}

func (s *Store) HolderIssuances(_ context.Context, ledgerID id.LedgerID, holder types.Address) ([]uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := append([]uint64(nil), s.relevance[relevanceKey{ledgerID, holder}]...)
	slices.Sort(result)
	return result, nil
}

// ==================== Events ====================

func (s *Store) ListEvents(_ context.Context, ledgerID id.LedgerID, opts event.ListOpts) ([]*event.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*event.Event
	for _, e := range s.events[ledgerID] {
		if !opts.Matches(e) {
			continue
		}
		cp := *e
		result = append(result, &cp)
		if opts.Limit > 0 && len(result) == opts.Limit {
			break
		}
	}
	return result, nil
}

// ==================== Commit ====================

func (s *Store) Commit(ctx context.Context, b *store.Batch) error {
	if err := b.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.check(b); err != nil {
		return err
	}
	if err := b.RunBeforeCommit(ctx); err != nil {
		return err
	}

	lid := b.Ledger.ID
	if b.Create {
		s.ledgerOrder = append(s.ledgerOrder, lid)
	}
	s.ledgers[lid] = b.Ledger.Clone()

	if b.Issuance != nil {
		if b.NewIssuance {
			s.issuances[lid] = append(s.issuances[lid], b.Issuance.Clone())
		} else {
			s.issuances[lid][b.Issuance.Index] = b.Issuance.Clone()
		}
	}

	for _, e := range b.Changes.Balances {
		s.balances[balanceKey{e.LedgerID, e.Issuance, e.Holder, e.RecallRight}] = e.Amount
	}
	for _, t := range b.Changes.Temporaries {
		s.temporaries[holderKey{t.LedgerID, t.Issuance, t.Holder}] = t.Amount
	}
	for _, w := range b.Changes.Witnesses {
		k := holderKey{w.LedgerID, w.Issuance, w.Owner}
		if !containsWitness(s.witnesses[k], w.Holder) {
			s.witnesses[k] = append(s.witnesses[k], w)
		}
	}
	for _, r := range b.Changes.Relevance {
		k := relevanceKey{r.LedgerID, r.Holder}
		if !containsIndex(s.relevance[k], r.Issuance) {
			s.relevance[k] = append(s.relevance[k], r.Issuance)
		}
	}
	for _, e := range b.Events {
		cp := *e
		s.events[lid] = append(s.events[lid], &cp)
	}
	return nil
}

// check rejects a batch that would conflict with committed state.
func (s *Store) check(b *store.Batch) error {
	lid := b.Ledger.ID
	current, exists := s.ledgers[lid]
	switch {
	case b.Create && exists:
		return fmt.Errorf("%w: ledger %s", store.ErrAlreadyExists, lid)
	case !b.Create && !exists:
		return fmt.Errorf("%w: %s", instance.ErrNotFound, lid)
	case !b.Create && current.Version != b.ExpectedVersion:
		return fmt.Errorf("%w: ledger %s at version %d, expected %d", store.ErrConflict, lid, current.Version, b.ExpectedVersion)
	}

	if b.Issuance != nil {
		n := uint64(len(s.issuances[lid]))
		if b.NewIssuance && b.Issuance.Index != n {
			return fmt.Errorf("%w: issuance index %d, next is %d", store.ErrConflict, b.Issuance.Index, n)
		}
		if !b.NewIssuance && b.Issuance.Index >= n {
			return fmt.Errorf("%w: %s/%d", issuance.ErrNotFound, lid, b.Issuance.Index)
		}
	}
	return nil
}

func containsWitness(log []balance.Witness, holder types.Address) bool {
	for _, w := range log {
		if w.Holder == holder {
			return true
		}
	}
	return false
}

func containsIndex(list []uint64, idx uint64) bool {
	for _, v := range list {
		if v == idx {
			return true
		}
	}
	return false
}

func page[T any](items []T, offset, limit int) []T {
	start := min(max(offset, 0), len(items))
	end := len(items)
	if limit > 0 && start+limit < end {
		end = start + limit
	}
	return items[start:end]
}

// ==================== Core ====================

func (s *Store) Migrate(_ context.Context) error { return nil }

func (s *Store) Ping(_ context.Context) error { return nil }

func (s *Store) Close() error { return nil }

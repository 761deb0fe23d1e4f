// Package storetest is a conformance suite for store.Store
// implementations.
package storetest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/licensing/balance"
	"github.com/xraph/licensing/event"
	"github.com/xraph/licensing/fee"
	"github.com/xraph/licensing/id"
	"github.com/xraph/licensing/instance"
	"github.com/xraph/licensing/issuance"
	"github.com/xraph/licensing/store"
	"github.com/xraph/licensing/types"
)

var (
	owner    = types.MustParseAddress("0x00000000000000000000000000000000000000a1")
	grantee = types.MustParseAddress("0x00000000000000000000000000000000000000b2")
	root     = types.MustParseAddress("0x00000000000000000000000000000000000000c3")
)

// Factory returns a migrated, empty store.
type Factory func(t *testing.T) store.Store

// Run exercises every store.Store method against stores built by newStore.
func Run(t *testing.T, newStore Factory) {
	t.Run("CommitCreatesAndUpdates", func(t *testing.T) { testCommitCreatesAndUpdates(t, newStore(t)) })
	t.Run("CommitRejectsStaleVersion", func(t *testing.T) { testCommitRejectsStaleVersion(t, newStore(t)) })
	t.Run("CommitRejectsDuplicateLedger", func(t *testing.T) { testCommitRejectsDuplicateLedger(t, newStore(t)) })
	t.Run("GetMissing", func(t *testing.T) { testGetMissing(t, newStore(t)) })
	t.Run("WitnessesAreDeduplicated", func(t *testing.T) { testWitnessesAreDeduplicated(t, newStore(t)) })
	t.Run("LargeAmountsRoundTrip", func(t *testing.T) { testLargeAmountsRoundTrip(t, newStore(t)) })
	t.Run("EventFilters", func(t *testing.T) { testEventFilters(t, newStore(t)) })
	t.Run("RevokedIssuanceUpdates", func(t *testing.T) { testRevokedIssuanceUpdates(t, newStore(t)) })
	t.Run("BeforeCommitSkippedOnConflict", func(t *testing.T) { testBeforeCommitSkippedOnConflict(t, newStore(t)) })
	t.Run("BeforeCommitErrorAborts", func(t *testing.T) { testBeforeCommitErrorAborts(t, newStore(t)) })
	t.Run("ListBalancesOmitsEmpty", func(t *testing.T) { testListBalancesOmitsEmpty(t, newStore(t)) })
}

var epoch = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func createLedger(t *testing.T, s store.Store) *instance.Instance {
	t.Helper()
	tiers, err := fee.NewTable([]uint64{0, 1000}, []uint16{100, 50})
	require.NoError(t, err)

	in := &instance.Instance{
		Entity:   types.NewEntityAt(epoch),
		ID:       id.NewLedgerID(),
		Name:     "test",
		FeeTiers: tiers,
		Version:  1,
	}
	in.Issuer = owner
	in.RootAuthority = root
	require.NoError(t, s.Commit(context.Background(), &store.Batch{Ledger: in, Create: true}))
	return in
}

// advance returns a copy of in one version ahead.
func advance(in *instance.Instance) *instance.Instance {
	next := in.Clone()
	next.Version++
	return next
}

func newIssuance(in *instance.Instance, index, supply uint64) *issuance.Issuance {
	return &issuance.Issuance{
		Entity:         types.NewEntityAt(epoch),
		LedgerID:       in.ID,
		Index:          index,
		Description:    "seats",
		Code:           "S",
		OriginalSupply: supply,
		OriginalValue:  supply * 10,
		AuditTime:      epoch,
		Owner:          owner,
	}
}

func testCommitCreatesAndUpdates(t *testing.T, s store.Store) {
	ctx := context.Background()
	in := createLedger(t, s)

	next := advance(in)
	next.IssuanceCount = 1
	next.EventSeq = 1
	next.Treasury = instance.Treasury{Issuer: 3, Root: 4}
	err := s.Commit(ctx, &store.Batch{
		Ledger:          next,
		ExpectedVersion: in.Version,
		Issuance:        newIssuance(in, 0, 10),
		NewIssuance:     true,
		Changes: balance.Changes{
			Balances:  []balance.Entry{{LedgerID: in.ID, Issuance: 0, Holder: owner, RecallRight: owner, Amount: 10}},
			Relevance: []balance.Relevance{{LedgerID: in.ID, Holder: owner, Issuance: 0}},
		},
		Events: []*event.Event{{
			ID: id.NewEventID(), LedgerID: in.ID, Seq: 1, Type: event.TypeIssued,
			Issuance: event.Index(0), OccurredAt: epoch,
		}},
	})
	require.NoError(t, err)

	got, err := s.GetLedger(ctx, in.ID)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), got.Version)
	assert.Equal(t, uint64(1), got.IssuanceCount)
	assert.Equal(t, instance.Treasury{Issuer: 3, Root: 4}, got.Treasury)
	assert.Equal(t, root, got.RootAuthority)
	assert.Equal(t, 2, got.FeeTiers.Count())

	iss, err := s.GetIssuance(ctx, in.ID, 0)
	require.NoError(t, err)
	assert.Equal(t, uint64(10), iss.OriginalSupply)
	assert.Equal(t, owner, iss.Owner)

	list, err := s.ListIssuances(ctx, in.ID, issuance.ListOpts{})
	require.NoError(t, err)
	assert.Len(t, list, 1)

	bal, err := s.Balance(ctx, in.ID, 0, owner, owner)
	require.NoError(t, err)
	assert.Equal(t, uint64(10), bal)

	entries, err := s.ListBalances(ctx, in.ID, 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, owner, entries[0].Holder)

	held, err := s.HolderIssuances(ctx, in.ID, owner)
	require.NoError(t, err)
	assert.Equal(t, []uint64{0}, held)

	events, err := s.ListEvents(ctx, in.ID, event.ListOpts{Type: event.TypeIssued})
	require.NoError(t, err)
	require.Len(t, events, 1)
	idx, ok := events[0].IssuanceIndex()
	assert.True(t, ok)
	assert.Zero(t, idx)

	ledgers, err := s.ListLedgers(ctx, instance.ListOpts{Issuer: &owner})
	require.NoError(t, err)
	assert.Len(t, ledgers, 1)
}

func testCommitRejectsStaleVersion(t *testing.T, s store.Store) {
	ctx := context.Background()
	in := createLedger(t, s)

	stale := in.Clone()
	stale.Version = 6
	err := s.Commit(ctx, &store.Batch{
		Ledger:          stale,
		ExpectedVersion: 5,
		Changes: balance.Changes{
			Balances: []balance.Entry{{LedgerID: in.ID, Holder: owner, RecallRight: owner, Amount: 99}},
		},
	})
	assert.ErrorIs(t, err, store.ErrConflict)

	bal, err := s.Balance(ctx, in.ID, 0, owner, owner)
	require.NoError(t, err)
	assert.Zero(t, bal, "rejected batch must not leave partial writes")
}

func testCommitRejectsDuplicateLedger(t *testing.T, s store.Store) {
	in := createLedger(t, s)
	err := s.Commit(context.Background(), &store.Batch{Ledger: in, Create: true})
	assert.ErrorIs(t, err, store.ErrAlreadyExists)
}

func testGetMissing(t *testing.T, s store.Store) {
	ctx := context.Background()

	_, err := s.GetLedger(ctx, id.NewLedgerID())
	assert.ErrorIs(t, err, instance.ErrNotFound)

	in := createLedger(t, s)
	_, err = s.GetIssuance(ctx, in.ID, 0)
	assert.ErrorIs(t, err, issuance.ErrNotFound)

	bal, err := s.TemporaryBalance(ctx, in.ID, 0, owner)
	require.NoError(t, err)
	assert.Zero(t, bal)
}

func testWitnessesAreDeduplicated(t *testing.T, s store.Store) {
	ctx := context.Background()
	in := createLedger(t, s)

	w := balance.Witness{LedgerID: in.ID, Issuance: 0, Owner: owner, Holder: grantee, Seq: 1}
	cur := in
	for range 2 {
		next := advance(cur)
		require.NoError(t, s.Commit(ctx, &store.Batch{
			Ledger:          next,
			ExpectedVersion: cur.Version,
			Changes:         balance.Changes{Witnesses: []balance.Witness{w}},
		}))
		cur = next
	}

	got, err := s.RecallWitnesses(ctx, in.ID, 0, owner)
	require.NoError(t, err)
	assert.Equal(t, []types.Address{grantee}, got)
}

func testLargeAmountsRoundTrip(t *testing.T, s store.Store) {
	ctx := context.Background()
	in := createLedger(t, s)

	const huge = ^uint64(0) - 7
	next := advance(in)
	require.NoError(t, s.Commit(ctx, &store.Batch{
		Ledger:          next,
		ExpectedVersion: in.Version,
		Changes: balance.Changes{
			Balances:    []balance.Entry{{LedgerID: in.ID, Issuance: 0, Holder: grantee, RecallRight: owner, Amount: huge}},
			Temporaries: []balance.Temporary{{LedgerID: in.ID, Issuance: 0, Holder: grantee, Amount: huge}},
		},
	}))

	bal, err := s.Balance(ctx, in.ID, 0, grantee, owner)
	require.NoError(t, err)
	assert.Equal(t, huge, bal)

	temp, err := s.TemporaryBalance(ctx, in.ID, 0, grantee)
	require.NoError(t, err)
	assert.Equal(t, huge, temp)
}

func testEventFilters(t *testing.T, s store.Store) {
	ctx := context.Background()
	in := createLedger(t, s)

	var events []*event.Event
	for i, typ := range []event.Type{event.TypeSigned, event.TypeIssued, event.TypeTransferred, event.TypeIssued} {
		e := &event.Event{ID: id.NewEventID(), LedgerID: in.ID, Seq: uint64(i + 1), Type: typ, OccurredAt: epoch}
		if typ != event.TypeSigned {
			e.Issuance = event.Index(uint64(i % 2))
		}
		events = append(events, e)
	}
	next := advance(in)
	next.EventSeq = 4
	require.NoError(t, s.Commit(ctx, &store.Batch{Ledger: next, ExpectedVersion: in.Version, Events: events}))

	all, err := s.ListEvents(ctx, in.ID, event.ListOpts{})
	require.NoError(t, err)
	assert.Len(t, all, 4)

	issued, err := s.ListEvents(ctx, in.ID, event.ListOpts{Type: event.TypeIssued})
	require.NoError(t, err)
	assert.Len(t, issued, 2)

	byIssuance, err := s.ListEvents(ctx, in.ID, event.ListOpts{Issuance: event.Index(0)})
	require.NoError(t, err)
	require.Len(t, byIssuance, 1)
	assert.Equal(t, event.TypeTransferred, byIssuance[0].Type)

	after, err := s.ListEvents(ctx, in.ID, event.ListOpts{AfterSeq: 2, Limit: 1})
	require.NoError(t, err)
	require.Len(t, after, 1)
	assert.Equal(t, uint64(3), after[0].Seq)
}

func testRevokedIssuanceUpdates(t *testing.T, s store.Store) {
	ctx := context.Background()
	in := createLedger(t, s)

	v2 := advance(in)
	v2.IssuanceCount = 1
	iss := newIssuance(in, 0, 5)
	require.NoError(t, s.Commit(ctx, &store.Batch{
		Ledger: v2, ExpectedVersion: in.Version, Issuance: iss, NewIssuance: true,
	}))

	require.NoError(t, iss.Revoke("fraud", epoch))
	v3 := advance(v2)
	require.NoError(t, s.Commit(ctx, &store.Batch{Ledger: v3, ExpectedVersion: v2.Version, Issuance: iss}))

	got, err := s.GetIssuance(ctx, in.ID, 0)
	require.NoError(t, err)
	assert.True(t, got.Revoked)
	assert.Equal(t, "fraud", got.RevocationReason)
	require.NotNil(t, got.RevokedAt)
}

func testBeforeCommitSkippedOnConflict(t *testing.T, s store.Store) {
	ctx := context.Background()
	in := createLedger(t, s)

	winner := advance(in)
	require.NoError(t, s.Commit(ctx, &store.Batch{Ledger: winner, ExpectedVersion: in.Version}))

	calls := 0
	loser := advance(in)
	err := s.Commit(ctx, &store.Batch{
		Ledger:          loser,
		ExpectedVersion: in.Version,
		BeforeCommit: func(context.Context) error {
			calls++
			return nil
		},
	})
	assert.ErrorIs(t, err, store.ErrConflict)
	assert.Zero(t, calls)
}

func testBeforeCommitErrorAborts(t *testing.T, s store.Store) {
	ctx := context.Background()
	in := createLedger(t, s)

	errForward := errors.New("forward failed")
	next := advance(in)
	err := s.Commit(ctx, &store.Batch{
		Ledger:          next,
		ExpectedVersion: in.Version,
		Changes: balance.Changes{
			Balances: []balance.Entry{{LedgerID: in.ID, Holder: owner, RecallRight: owner, Amount: 42}},
		},
		Events: []*event.Event{
			{ID: id.NewEventID(), LedgerID: in.ID, Seq: 1, Type: event.TypeSigned, OccurredAt: epoch},
		},
		BeforeCommit: func(context.Context) error { return errForward },
	})
	assert.ErrorIs(t, err, errForward)

	got, err := s.GetLedger(ctx, in.ID)
	require.NoError(t, err)
	assert.Equal(t, in.Version, got.Version)

	bal, err := s.Balance(ctx, in.ID, 0, owner, owner)
	require.NoError(t, err)
	assert.Zero(t, bal)

	events, err := s.ListEvents(ctx, in.ID, event.ListOpts{})
	require.NoError(t, err)
	assert.Empty(t, events)
}

func testListBalancesOmitsEmpty(t *testing.T, s store.Store) {
	ctx := context.Background()
	in := createLedger(t, s)

	v2 := advance(in)
	require.NoError(t, s.Commit(ctx, &store.Batch{
		Ledger:          v2,
		ExpectedVersion: in.Version,
		Changes: balance.Changes{
			Balances: []balance.Entry{
				{LedgerID: in.ID, Holder: owner, RecallRight: owner, Amount: 10},
				{LedgerID: in.ID, Holder: grantee, RecallRight: owner, Amount: 5},
			},
		},
	}))

	v3 := advance(v2)
	require.NoError(t, s.Commit(ctx, &store.Batch{
		Ledger:          v3,
		ExpectedVersion: v2.Version,
		Changes: balance.Changes{
			Balances: []balance.Entry{
				{LedgerID: in.ID, Holder: owner, RecallRight: owner, Amount: 15},
				{LedgerID: in.ID, Holder: grantee, RecallRight: owner, Amount: 0},
			},
		},
	}))

	entries, err := s.ListBalances(ctx, in.ID, 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, owner, entries[0].Holder)
	assert.Equal(t, uint64(15), entries[0].Amount)
}

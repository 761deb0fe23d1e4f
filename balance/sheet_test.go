package balance_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/licensing/balance"
	"github.com/xraph/licensing/id"
	"github.com/xraph/licensing/types"
)

var (
	alice = types.MustParseAddress("0xa000000000000000000000000000000000000001")
	bob   = types.MustParseAddress("0xb000000000000000000000000000000000000002")
	carol = types.MustParseAddress("0xc000000000000000000000000000000000000003")
)

// emptyReader reports no committed state.
type emptyReader struct{}

func (emptyReader) Balance(context.Context, id.LedgerID, uint64, types.Address, types.Address) (uint64, error) {
	return 0, nil
}

func (emptyReader) TemporaryBalance(context.Context, id.LedgerID, uint64, types.Address) (uint64, error) {
	return 0, nil
}

func newSheet(t *testing.T, supply uint64) *balance.Sheet {
	t.Helper()
	s := balance.NewSheet(context.Background(), emptyReader{}, id.NewLedgerID(), 0, false)
	require.NoError(t, s.Seed(alice, supply))
	return s
}

func total(t *testing.T, s *balance.Sheet, h types.Address) uint64 {
	t.Helper()
	v, err := s.TotalOwned(h)
	require.NoError(t, err)
	return v
}

func recallable(t *testing.T, s *balance.Sheet, holder, recaller types.Address) uint64 {
	t.Helper()
	v, err := s.Balance(holder, recaller)
	require.NoError(t, err)
	return v
}

func sumBalances(s *balance.Sheet) uint64 {
	var sum uint64
	for _, e := range s.Changes().Balances {
		sum += e.Amount
	}
	return sum
}

func TestPlainTransfers(t *testing.T) {
	s := newSheet(t, 70)
	assert.Equal(t, uint64(70), total(t, s, alice))

	require.NoError(t, s.Transfer(alice, bob, 20))
	assert.Equal(t, uint64(50), total(t, s, alice))
	assert.Equal(t, uint64(20), total(t, s, bob))

	require.NoError(t, s.Transfer(bob, carol, 15))
	assert.Equal(t, uint64(5), total(t, s, bob))
	assert.Equal(t, uint64(15), total(t, s, carol))

	assert.Equal(t, uint64(70), sumBalances(s))
}

func TestRecallableTransferAndPartialRecall(t *testing.T) {
	s := newSheet(t, 70)

	require.NoError(t, s.TransferWithRecallRight(alice, bob, 20, 1))
	assert.Equal(t, uint64(50), total(t, s, alice))
	assert.Equal(t, uint64(20), total(t, s, bob))

	require.NoError(t, s.Recall(bob, alice, 5))
	assert.Equal(t, uint64(15), recallable(t, s, bob, alice))
	require.NoError(t, s.Recall(bob, alice, 5))

	assert.Equal(t, uint64(60), total(t, s, alice))
	assert.Equal(t, uint64(10), total(t, s, bob))
	assert.Equal(t, uint64(10), recallable(t, s, bob, alice))

	temp, err := s.Temporary(bob)
	require.NoError(t, err)
	assert.Equal(t, uint64(10), temp)

	assert.Equal(t, uint64(70), sumBalances(s))
}

func TestRecallInverse(t *testing.T) {
	s := newSheet(t, 100)
	require.NoError(t, s.Transfer(alice, bob, 30))
	beforeA, beforeB := total(t, s, alice), total(t, s, bob)

	require.NoError(t, s.TransferWithRecallRight(alice, bob, 25, 1))
	require.NoError(t, s.Recall(bob, alice, 25))

	assert.Equal(t, beforeA, total(t, s, alice))
	assert.Equal(t, beforeB, total(t, s, bob))
	assert.Zero(t, recallable(t, s, bob, alice))
}

func TestRecalledUnitsCannotBeSpentAsProper(t *testing.T) {
	s := newSheet(t, 10)
	require.NoError(t, s.TransferWithRecallRight(alice, bob, 10, 1))

	err := s.Transfer(bob, carol, 1)
	assert.ErrorIs(t, err, balance.ErrInsufficientBalance)
}

func TestFailuresLeaveSheetUnchanged(t *testing.T) {
	s := newSheet(t, 10)
	require.NoError(t, s.TransferWithRecallRight(alice, bob, 4, 1))
	before := s.Changes()

	assert.ErrorIs(t, s.Transfer(alice, bob, 7), balance.ErrInsufficientBalance)
	assert.ErrorIs(t, s.Recall(bob, alice, 5), balance.ErrInsufficientBalance)
	assert.ErrorIs(t, s.TransferWithRecallRight(alice, alice, 1, 2), balance.ErrSelfRecall)
	assert.ErrorIs(t, s.Recall(alice, alice, 1), balance.ErrSelfRecall)

	assert.Equal(t, before, s.Changes())
}

func TestSelfAndZeroTransfers(t *testing.T) {
	s := newSheet(t, 10)
	require.NoError(t, s.Transfer(alice, alice, 10))
	require.NoError(t, s.Transfer(alice, bob, 0))
	assert.Equal(t, uint64(10), total(t, s, alice))
	assert.Zero(t, total(t, s, bob))

	assert.ErrorIs(t, s.Transfer(alice, alice, 11), balance.ErrInsufficientBalance)
}

func TestRevokedIssuanceRejectsEverything(t *testing.T) {
	s := balance.NewSheet(context.Background(), emptyReader{}, id.NewLedgerID(), 4, true)

	assert.ErrorIs(t, s.Transfer(alice, bob, 0), balance.ErrIssuanceRevoked)
	assert.ErrorIs(t, s.TransferWithRecallRight(alice, bob, 0, 1), balance.ErrIssuanceRevoked)
	assert.ErrorIs(t, s.Recall(bob, alice, 0), balance.ErrIssuanceRevoked)
	assert.True(t, s.Changes().Empty())
}

func TestWitnessAndRelevanceLogs(t *testing.T) {
	s := newSheet(t, 10)
	require.NoError(t, s.TransferWithRecallRight(alice, bob, 1, 7))
	require.NoError(t, s.TransferWithRecallRight(alice, bob, 1, 8))
	require.NoError(t, s.TransferWithRecallRight(alice, carol, 1, 9))
	require.NoError(t, s.Recall(bob, alice, 2))

	c := s.Changes()
	require.Len(t, c.Witnesses, 2)
	assert.Equal(t, bob, c.Witnesses[0].Holder)
	assert.Equal(t, uint64(7), c.Witnesses[0].Seq)
	assert.Equal(t, carol, c.Witnesses[1].Holder)

	holders := make([]types.Address, 0, len(c.Relevance))
	for _, r := range c.Relevance {
		holders = append(holders, r.Holder)
	}
	assert.Equal(t, []types.Address{alice, bob, carol}, holders)
}

func TestOverflowRejected(t *testing.T) {
	s := balance.NewSheet(context.Background(), emptyReader{}, id.NewLedgerID(), 0, false)
	require.NoError(t, s.Seed(alice, ^uint64(0)))
	assert.ErrorIs(t, s.Seed(alice, 1), balance.ErrOverflow)
}

package mongo

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/mongodriver"

	"github.com/xraph/licensing/balance"
	"github.com/xraph/licensing/fee"
	"github.com/xraph/licensing/id"
	"github.com/xraph/licensing/instance"
	"github.com/xraph/licensing/issuance"
	"github.com/xraph/licensing/store"
	"github.com/xraph/licensing/store/storetest"
	"github.com/xraph/licensing/types"
)

// TestStore runs the conformance suite against the replica set named by
// LICENSING_MONGO_URI. Each subtest gets its own database.
func TestStore(t *testing.T) {
	uri := os.Getenv("LICENSING_MONGO_URI")
	if uri == "" {
		t.Skip("LICENSING_MONGO_URI not set")
	}

	storetest.Run(t, func(t *testing.T) store.Store {
		ctx := context.Background()
		mdb := mongodriver.New()
		dbName := "licensing_test_" + id.NewLedgerID().String()
		require.NoError(t, mdb.Open(ctx, uri, mongodriver.WithDatabase(dbName)))

		db, err := grove.Open(mdb)
		require.NoError(t, err)

		s := New(db)
		require.NoError(t, s.Migrate(ctx))
		t.Cleanup(func() {
			_ = mdb.Database().Drop(ctx)
			_ = s.Close()
		})
		return s
	})
}

func TestLedgerModelKeepsUnsignedRange(t *testing.T) {
	tiers, err := fee.NewTable([]uint64{0, ^uint64(0) - 1}, []uint16{100, 10})
	require.NoError(t, err)
	signed := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	in := &instance.Instance{
		Entity:   types.NewEntityAt(signed),
		ID:       id.NewLedgerID(),
		Name:     "seats",
		FeeTiers: tiers,
		SignedAt: &signed,
		Treasury: instance.Treasury{Issuer: ^uint64(0), Root: 1},
		Version:  3,
	}
	in.Issuer = types.MustParseAddress("0x00000000000000000000000000000000000000a1")

	out, err := fromLedgerModel(toLedgerModel(in))
	require.NoError(t, err)
	assert.Equal(t, in.ID, out.ID)
	assert.Equal(t, tiers.Tiers, out.FeeTiers.Tiers)
	assert.Equal(t, ^uint64(0), out.Treasury.Issuer)
	assert.Equal(t, in.Issuer, out.Issuer)
	assert.Equal(t, uint64(3), out.Version)
	require.NotNil(t, out.SignedAt)
	assert.True(t, signed.Equal(*out.SignedAt))
}

func TestDocumentKeys(t *testing.T) {
	ledgerID := id.NewLedgerID()
	a := types.MustParseAddress("0x00000000000000000000000000000000000000a1")
	b := types.MustParseAddress("0x00000000000000000000000000000000000000b2")

	assert.NotEqual(t, balanceKey(ledgerID, 0, a, b), balanceKey(ledgerID, 0, b, a))
	assert.NotEqual(t, balanceKey(ledgerID, 1, a, b), balanceKey(ledgerID, 11, a, b))
	assert.Equal(t,
		balanceKey(ledgerID, 2, a, b),
		toBalanceModel(balance.Entry{LedgerID: ledgerID, Issuance: 2, Holder: a, RecallRight: b, Amount: 5}).ID)

	iss := toIssuanceModel(&issuance.Issuance{LedgerID: ledgerID, Index: 7})
	assert.Equal(t, ledgerID.String()+":7", iss.ID)
}

func TestMigrationIndexesCoverCollections(t *testing.T) {
	idx := migrationIndexes()
	for _, col := range []string{colLedgers, colIssuances, colBalances, colTemporaries, colWitnesses, colRelevance, colEvents} {
		assert.NotEmpty(t, idx[col], col)
	}
}

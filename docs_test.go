package licensing_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	licensing "github.com/xraph/licensing"
	"github.com/xraph/licensing/fee"
	"github.com/xraph/licensing/oracle"
	"github.com/xraph/licensing/store/memory"
	"github.com/xraph/licensing/types"
)

// TestDocumentationExamples runs the package documentation examples.
func TestDocumentationExamples(t *testing.T) {
	ctx := context.Background()
	registry := types.MustParseAddress("0x1000000000000000000000000000000000000001")
	issuer := types.MustParseAddress("0x2000000000000000000000000000000000000002")
	buyer := types.MustParseAddress("0x3000000000000000000000000000000000000003")

	t.Run("QuickStart", func(t *testing.T) {
		eng := licensing.New(memory.New(),
			licensing.WithOracle(oracle.NewFixed(1, 1, 0)),
			licensing.WithRegistryIdentity(registry),
		)
		require.NoError(t, eng.Start(ctx))
		defer func() { _ = eng.Stop() }()

		in, err := eng.CreateLedger(ctx, licensing.CreateParams{
			Issuer: issuer,
			Name:   "Acme software licenses",
		})
		require.NoError(t, err)
		require.NoError(t, eng.Sign(ctx, in.ID, issuer))

		idx, err := eng.Issue(ctx, in.ID, issuer, licensing.IssueRequest{
			Description: "Acme Studio seats",
			Code:        "ACME-STUDIO",
			Value:       10_000,
			AuditTime:   time.Now(),
			Supply:      100,
			Owner:       issuer,
		})
		require.NoError(t, err)

		owned, err := eng.TotalOwned(ctx, in.ID, idx, issuer)
		require.NoError(t, err)
		assert.Equal(t, uint64(100), owned)
	})

	t.Run("PricedTransfer", func(t *testing.T) {
		tiers, err := fee.NewTable([]uint64{0}, []uint16{100})
		require.NoError(t, err)

		eng := licensing.New(memory.New(),
			licensing.WithOracle(oracle.NewFixed(1, 1, 0)),
			licensing.WithRegistryIdentity(registry),
			licensing.WithDefaults(licensing.Defaults{FeeTiers: tiers, IssuerFeeShare: 5000}),
		)
		require.NoError(t, eng.Start(ctx))
		defer func() { _ = eng.Stop() }()

		in, err := eng.CreateLedger(ctx, licensing.CreateParams{Issuer: issuer, Name: "Acme"})
		require.NoError(t, err)
		require.NoError(t, eng.Sign(ctx, in.ID, issuer))
		idx, err := eng.Issue(ctx, in.ID, issuer, licensing.IssueRequest{
			Description: "Seats", Code: "SEATS", Value: 10_000, AuditTime: time.Now(), Supply: 100, Owner: issuer,
		})
		require.NoError(t, err)

		// 10 of 100 units carry 1000 of value; 1% of that is 10.
		q, err := eng.QuoteTransferFee(ctx, in.ID, idx, 10)
		require.NoError(t, err)
		assert.Equal(t, uint64(1000), q.Value)
		assert.Equal(t, uint64(10), q.FiatFee)
		assert.Equal(t, uint64(10), q.Required)

		require.NoError(t, eng.Transfer(ctx, in.ID, issuer, licensing.TransferRequest{
			Issuance: idx, To: buyer, Amount: 10, Payment: q.Required,
		}))
		owned, err := eng.TotalOwned(ctx, in.ID, idx, buyer)
		require.NoError(t, err)
		assert.Equal(t, uint64(10), owned)
	})
}

package oracle_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/licensing/oracle"
)

type failingOracle struct{ err error }

func (f failingOracle) Quote(context.Context, uint64) (oracle.Quote, error) {
	return oracle.Quote{}, f.err
}

func (f failingOracle) Convert(context.Context, uint64, uint64) (uint64, error) {
	return 0, f.err
}

func TestRequiredPaymentLargerGoverns(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		oracle  *oracle.Fixed
		fiatFee uint64
		want    uint64
	}{
		{"converted dominates", oracle.NewFixed(10, 1, 5), 8, 80},
		{"minimum dominates", oracle.NewFixed(1, 1, 500), 8, 500},
		{"zero fee skips oracle", oracle.NewFixed(1, 1, 500), 0, 0},
		{"truncating conversion", oracle.NewFixed(1, 3, 0), 10, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := oracle.NewGateway(tt.oracle).RequiredPayment(ctx, tt.fiatFee)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestGatewayWithoutOracle(t *testing.T) {
	ctx := context.Background()
	g := oracle.NewGateway(nil)

	got, err := g.RequiredPayment(ctx, 0)
	require.NoError(t, err)
	assert.Zero(t, got)
	require.NoError(t, g.Forward(ctx, 0, 0))

	_, err = g.RequiredPayment(ctx, 1)
	assert.ErrorIs(t, err, oracle.ErrNotConfigured)
}

func TestForwardSettlesExactAmount(t *testing.T) {
	ctx := context.Background()
	f := oracle.NewFixed(2, 1, 0)
	g := oracle.NewGateway(f)

	required, err := g.RequiredPayment(ctx, 50)
	require.NoError(t, err)
	require.NoError(t, g.Forward(ctx, 50, required))

	assert.Equal(t, uint64(100), f.Forwarded())
	assert.Equal(t, 1, f.Calls())

	require.NoError(t, g.Forward(ctx, 0, 0))
	assert.Equal(t, 1, f.Calls(), "zero forward must not reach the oracle")
}

func TestFixedRejectsBelowMinimum(t *testing.T) {
	f := oracle.NewFixed(1, 1, 100)
	_, err := f.Convert(context.Background(), 10, 99)
	assert.ErrorIs(t, err, oracle.ErrBelowMinimum)
	assert.Zero(t, f.Forwarded())
}

func TestCollaboratorFailureIsWrapped(t *testing.T) {
	boom := errors.New("boom")
	g := oracle.NewGateway(failingOracle{err: boom})

	_, err := g.RequiredPayment(context.Background(), 10)
	assert.ErrorIs(t, err, oracle.ErrUnavailable)
	assert.ErrorIs(t, err, boom)

	err = g.Forward(context.Background(), 10, 10)
	assert.ErrorIs(t, err, oracle.ErrUnavailable)
}

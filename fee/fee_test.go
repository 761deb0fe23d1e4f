package fee_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/licensing/fee"
)

func scenarioTable(t *testing.T) fee.Table {
	t.Helper()
	tbl, err := fee.NewTable([]uint64{0, 1000, 2000}, []uint16{100, 50, 40})
	require.NoError(t, err)
	return tbl
}

func TestFeeForTiers(t *testing.T) {
	tbl := scenarioTable(t)

	tests := []struct {
		value uint64
		want  uint64
	}{
		{0, 0},
		{100, 1},
		{999, 9},
		{1000, 5},
		{1200, 6},
		{2000, 8},
		{200000, 800},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, tbl.FeeFor(tt.value), "FeeFor(%d)", tt.value)
	}
}

func TestFeeForLargerValues(t *testing.T) {
	tbl := scenarioTable(t)

	assert.Equal(t, uint64(1), tbl.FeeFor(100))
	assert.Equal(t, uint64(50), tbl.FeeFor(10_000))
	assert.Equal(t, uint64(60), tbl.FeeFor(12_000))
	assert.Equal(t, uint64(800), tbl.FeeFor(200_000))
}

func TestFeeForEmptyAndBelowFirstTier(t *testing.T) {
	var empty fee.Table
	assert.Zero(t, empty.FeeFor(1_000_000))

	tbl, err := fee.NewTable([]uint64{500}, []uint16{100})
	require.NoError(t, err)
	assert.Zero(t, tbl.FeeFor(499))
	assert.Equal(t, uint64(5), tbl.FeeFor(500))
}

func TestFeeMonotonicWithinTier(t *testing.T) {
	tbl := scenarioTable(t)
	var prev uint64
	for v := uint64(0); v < 1000; v++ {
		got := tbl.FeeFor(v)
		assert.GreaterOrEqual(t, got, prev, "value %d", v)
		prev = got
	}
}

func TestSetTiersValidation(t *testing.T) {
	tests := []struct {
		name     string
		minimums []uint64
		rates    []uint16
		want     error
	}{
		{"not ascending", []uint64{0, 1000, 500}, []uint16{1, 2, 3}, fee.ErrNotAscending},
		{"duplicate", []uint64{100, 100}, []uint16{1, 2}, fee.ErrDuplicateMinimum},
		{"length mismatch", []uint64{0, 100}, []uint16{1}, fee.ErrLengthMismatch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tbl := scenarioTable(t)
			err := tbl.SetTiers(tt.minimums, tt.rates)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
			assert.Equal(t, 3, tbl.Count(), "failed replacement must leave the table untouched")
		})
	}
}

func TestSetTiersReplacesWholeTable(t *testing.T) {
	tbl := scenarioTable(t)

	require.NoError(t, tbl.SetTiers([]uint64{5000}, []uint16{10}))
	assert.Equal(t, 1, tbl.Count())
	assert.Zero(t, tbl.FeeFor(4999))

	require.NoError(t, tbl.SetTiers(nil, nil))
	assert.Zero(t, tbl.Count())
}

func TestTierAccess(t *testing.T) {
	tbl := scenarioTable(t)

	tier, err := tbl.Tier(1)
	require.NoError(t, err)
	assert.Equal(t, fee.Tier{Minimum: 1000, Rate: 50}, tier)

	_, err = tbl.Tier(3)
	assert.ErrorIs(t, err, fee.ErrTierOutOfRange)

	assert.Equal(t, []uint64{0, 1000, 2000}, tbl.Minimums())
	assert.Equal(t, []uint16{100, 50, 40}, tbl.Rates())
}

func TestProportionalValue(t *testing.T) {
	assert.Equal(t, uint64(2000), fee.ProportionalValue(7000, 70, 20))
	assert.Equal(t, uint64(0), fee.ProportionalValue(7000, 0, 20))
	assert.Equal(t, uint64(33), fee.ProportionalValue(100, 3, 1))
}

func TestSplit(t *testing.T) {
	issuer, root := fee.Split(1000, 2500)
	assert.Equal(t, uint64(250), issuer)
	assert.Equal(t, uint64(750), root)

	issuer, root = fee.Split(1000, 20_000)
	assert.Equal(t, uint64(1000), issuer)
	assert.Zero(t, root)
}

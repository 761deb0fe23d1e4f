package extension

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/sqlitedriver"

	sqlitestore "github.com/xraph/licensing/store/sqlite"
)

func TestMergeWithDefaults(t *testing.T) {
	cfg := MergeWithDefaults(Config{IssuanceFeeRate: 25})

	assert.Equal(t, []uint64{0}, cfg.FeeTierMinimums)
	assert.Equal(t, []uint16{100}, cfg.FeeTierRates)
	assert.Equal(t, uint16(5000), cfg.IssuerFeeShare)
	assert.Equal(t, uint16(25), cfg.IssuanceFeeRate)
	assert.Equal(t, 20.0, cfg.OracleRateLimit)
	assert.Equal(t, 5, cfg.OracleBurst)
}

func TestMergeConfigurations(t *testing.T) {
	yaml := Config{
		FeeTierMinimums: []uint64{0, 1000},
		FeeTierRates:    []uint16{100, 50},
		OracleURL:       "https://prices.internal",
	}
	programmatic := Config{
		DisableMigrate:    true,
		RejectOverpayment: true,
		FeeTierMinimums:   []uint64{0},
		FeeTierRates:      []uint16{300},
		OracleURL:         "https://ignored.example",
		RegistryIdentity:  "0x00000000000000000000000000000000000000aa",
		IssuerFeeShare:    2500,
	}

	cfg := mergeConfigurations(yaml, programmatic)

	assert.True(t, cfg.DisableMigrate)
	assert.True(t, cfg.RejectOverpayment)
	assert.Equal(t, []uint64{0, 1000}, cfg.FeeTierMinimums)
	assert.Equal(t, []uint16{100, 50}, cfg.FeeTierRates)
	assert.Equal(t, "https://prices.internal", cfg.OracleURL)
	assert.Equal(t, programmatic.RegistryIdentity, cfg.RegistryIdentity)
	assert.Equal(t, uint16(2500), cfg.IssuerFeeShare)
}

func TestBuildLedgerOptsRejectsBadConfig(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{"tier length mismatch", Config{FeeTierMinimums: []uint64{0, 10}, FeeTierRates: []uint16{1}}},
		{"descending tiers", Config{FeeTierMinimums: []uint64{10, 0}, FeeTierRates: []uint16{1, 2}}},
		{"bad registry identity", Config{RegistryIdentity: "not-an-address"}},
		{"relative oracle url", Config{OracleURL: "prices/v1"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := New(WithConfig(MergeWithDefaults(tt.cfg)))
			_, err := e.buildLedgerOpts()
			assert.Error(t, err)
		})
	}
}

func TestBuildLedgerOpts(t *testing.T) {
	e := New(
		WithConfig(MergeWithDefaults(Config{})),
		WithOracleURL("https://prices.internal"),
		WithRegistryIdentity("0x00000000000000000000000000000000000000aa"),
	)
	opts, err := e.buildLedgerOpts()
	require.NoError(t, err)
	// defaults, overpayment, registry, oracle
	assert.Len(t, opts, 4)
}

func TestStoreForGroveSelectsDriver(t *testing.T) {
	ctx := context.Background()
	sdb := sqlitedriver.New()
	require.NoError(t, sdb.Open(ctx, filepath.Join(t.TempDir(), "licensing.db")))
	db, err := grove.Open(sdb)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	s, err := storeForGrove(db)
	require.NoError(t, err)
	assert.IsType(t, &sqlitestore.Store{}, s)
}

func TestWithGroveDatabaseEnablesResolution(t *testing.T) {
	e := New(WithGroveDatabase(""))
	assert.True(t, e.useGrove)
	assert.Empty(t, e.config.GroveDatabase)
}

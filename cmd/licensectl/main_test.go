package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	issuerHex = "0x00000000000000000000000000000000000000a1"
	rootHex   = "0x00000000000000000000000000000000000000f0"
	buyerHex  = "0x00000000000000000000000000000000000000b2"
)

// freeConfig writes a config without transfer fees, so no price oracle
// is needed.
func freeConfig(t *testing.T) string {
	t.Helper()
	file := filepath.Join(t.TempDir(), "licensectl.yaml")
	require.NoError(t, os.WriteFile(file, []byte(`
ledger:
  fee_tier_minimums: [0]
  fee_tier_rates: [0]
`), 0o600))
	return file
}

func execute(t *testing.T, dsn string, args ...string) []byte {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--config", freeConfig(t), "--store-dsn", dsn, "--log-level", "error"}, args...))
	require.NoError(t, cmd.ExecuteContext(context.Background()), out.String())
	return out.Bytes()
}

func TestLedgerWorkflow(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "licensing.db")

	out := execute(t, dsn, "migrate")
	assert.Contains(t, string(out), "migrated sqlite store")

	var created struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}
	out = execute(t, dsn, "ledger", "create", "--issuer", issuerHex, "--root", rootHex, "--name", "Studio seats")
	require.NoError(t, json.Unmarshal(out, &created))
	require.NotEmpty(t, created.ID)
	assert.Equal(t, "Studio seats", created.Name)

	execute(t, dsn, "sign", created.ID, "--as", issuerHex)

	var issued map[string]uint64
	out = execute(t, dsn, "issue", created.ID, "--as", issuerHex,
		"--description", "Annual seats", "--code", "SEAT-2026",
		"--value", "1000", "--supply", "100", "--owner", issuerHex)
	require.NoError(t, json.Unmarshal(out, &issued))
	assert.Equal(t, uint64(0), issued["issuance"])

	execute(t, dsn, "transfer", created.ID, "--as", issuerHex,
		"--issuance", "0", "--to", buyerHex, "--amount", "10", "--recallable")

	var h holding
	out = execute(t, dsn, "balance", created.ID, "--issuance", "0", "--holder", buyerHex)
	require.NoError(t, json.Unmarshal(out, &h))
	assert.Equal(t, uint64(10), h.Owned)
	assert.Equal(t, uint64(10), h.Recallable)

	h = holding{}
	out = execute(t, dsn, "balance", created.ID, "--issuance", "0", "--holder", issuerHex)
	require.NoError(t, json.Unmarshal(out, &h))
	assert.Equal(t, uint64(90), h.Owned)
	assert.Equal(t, uint64(0), h.Recallable)
	require.Len(t, h.Witnesses, 1)
	assert.Equal(t, buyerHex, strings.ToLower(h.Witnesses[0].Hex()))

	execute(t, dsn, "recall", created.ID, "--as", issuerHex, "--issuance", "0", "--from", buyerHex, "--amount", "4")

	var events []map[string]any
	out = execute(t, dsn, "events", created.ID, "--type", "units.recalled")
	require.NoError(t, json.Unmarshal(out, &events))
	require.Len(t, events, 1)
	assert.EqualValues(t, 4, events[0]["amount"])
}

func TestRootAuthorityCommands(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "licensing.db")

	var created struct {
		ID string `json:"id"`
	}
	out := execute(t, dsn, "ledger", "create", "--issuer", issuerHex, "--root", rootHex, "--name", "Seats")
	require.NoError(t, json.Unmarshal(out, &created))
	execute(t, dsn, "sign", created.ID, "--as", issuerHex)

	execute(t, dsn, "fee-share", created.ID, "--as", rootHex, "--share", "2500")
	execute(t, dsn, "issuance-fee", created.ID, "--as", rootHex, "--rate", "150")
	execute(t, dsn, "fee-tiers", created.ID, "--as", rootHex, "--tier", "0:0", "--tier", "1000:25")
	execute(t, dsn, "manage", created.ID, "--as", rootHex, "--manager", buyerHex)
	execute(t, dsn, "disable", created.ID, "--as", buyerHex)

	var shown struct {
		IssuerFeeShare  uint16 `json:"issuer_fee_share"`
		IssuanceFeeRate uint16 `json:"issuance_fee_rate"`
		Manager         string `json:"manager"`
		Disabled        bool   `json:"disabled"`
		FeeTiers        struct {
			Tiers []struct {
				Minimum uint64 `json:"minimum"`
				Rate    uint16 `json:"rate"`
			} `json:"tiers"`
		} `json:"fee_tiers"`
	}
	out = execute(t, dsn, "ledger", "show", created.ID)
	require.NoError(t, json.Unmarshal(out, &shown))
	assert.Equal(t, uint16(2500), shown.IssuerFeeShare)
	assert.Equal(t, uint16(150), shown.IssuanceFeeRate)
	assert.True(t, strings.EqualFold(buyerHex, shown.Manager))
	assert.True(t, shown.Disabled)
	require.Len(t, shown.FeeTiers.Tiers, 2)
	assert.Equal(t, uint64(1000), shown.FeeTiers.Tiers[1].Minimum)
	assert.Equal(t, uint16(25), shown.FeeTiers.Tiers[1].Rate)
}

func TestParseTiers(t *testing.T) {
	minimums, rates, err := parseTiers([]string{"0:100", "1000:50"})
	require.NoError(t, err)
	assert.Equal(t, []uint64{0, 1000}, minimums)
	assert.Equal(t, []uint16{100, 50}, rates)

	for _, bad := range [][]string{nil, {"100"}, {"x:1"}, {"0:70000"}} {
		_, _, err := parseTiers(bad)
		assert.Error(t, err, "%v", bad)
	}
}

func TestCommandsRequireCaller(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "licensing.db")
	out := execute(t, dsn, "ledger", "create", "--issuer", issuerHex, "--root", rootHex, "--name", "Seats")
	var created struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(out, &created))

	cmd := newRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--config", freeConfig(t), "--store-dsn", dsn, "sign", created.ID})
	err := cmd.ExecuteContext(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--as is required")
}

func TestLoadConfigFromFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "licensectl.yaml")
	require.NoError(t, os.WriteFile(file, []byte(`
log:
  format: json
store:
  driver: sqlite
  dsn: /var/lib/licensing.db
ledger:
  fee_tier_minimums: [0, 1000]
  fee_tier_rates: [100, 50]
  nats:
    subject_prefix: studio.events
`), 0o600))
	t.Setenv("LICENSING_STORE_DRIVER", "postgres")

	cfg, err := loadConfig(newViper(file, ""))
	require.NoError(t, err)

	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "/var/lib/licensing.db", cfg.Store.DSN)
	assert.True(t, cfg.Store.AutoMigrate)
	assert.Equal(t, []uint64{0, 1000}, cfg.Ledger.FeeTierMinimums)
	assert.Equal(t, []uint16{100, 50}, cfg.Ledger.FeeTierRates)
	assert.Equal(t, uint16(5000), cfg.Ledger.IssuerFeeShare)
	assert.Equal(t, "studio.events", cfg.Ledger.NATS.SubjectPrefix)
}

func TestLoadEnvFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("LICENSING_LOG_LEVEL=debug\n"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env.local"), []byte("LICENSING_LOG_LEVEL=warn\n"), 0o600))
	t.Cleanup(func() { _ = os.Unsetenv("LICENSING_LOG_LEVEL") })

	cfg, err := loadConfig(newViper("", dir))
	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestNewLogger(t *testing.T) {
	_, err := newLogger(LogConfig{Level: "debug", Format: "json"})
	require.NoError(t, err)
	_, err = newLogger(LogConfig{Level: "info", Format: "xml"})
	require.Error(t, err)
	_, err = newLogger(LogConfig{Level: "loud", Format: "text"})
	require.Error(t, err)
}

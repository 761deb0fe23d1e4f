package extension

import (
	"github.com/xraph/licensing/natshook"
)

// Config holds the licensing extension configuration.
// Fields can be set programmatically via Option functions or loaded from
// YAML configuration files (under "extensions.licensing" or "licensing" keys).
type Config struct {
	// DisableMigrate prevents auto-migration on start.
	DisableMigrate bool `json:"disable_migrate" mapstructure:"disable_migrate" yaml:"disable_migrate"`

	// FeeTierMinimums and FeeTierRates are the transfer fee tiers given to
	// new ledgers. Both must have the same length.
	FeeTierMinimums []uint64 `json:"fee_tier_minimums" mapstructure:"fee_tier_minimums" yaml:"fee_tier_minimums"`
	FeeTierRates    []uint16 `json:"fee_tier_rates"    mapstructure:"fee_tier_rates"    yaml:"fee_tier_rates"`

	// IssuerFeeShare is the issuer's share of collected fees in basis
	// points (default: 5000).
	IssuerFeeShare uint16 `json:"issuer_fee_share" mapstructure:"issuer_fee_share" yaml:"issuer_fee_share"`

	// IssuanceFeeRate is charged on the value of new issuances, in basis points.
	IssuanceFeeRate uint16 `json:"issuance_fee_rate" mapstructure:"issuance_fee_rate" yaml:"issuance_fee_rate"`

	// RejectOverpayment refuses payments above the required fee instead of
	// keeping the excess in the treasury.
	RejectOverpayment bool `json:"reject_overpayment" mapstructure:"reject_overpayment" yaml:"reject_overpayment"`

	// RegistryIdentity is the hex address used as root authority for
	// ledgers created without one.
	RegistryIdentity string `json:"registry_identity" mapstructure:"registry_identity" yaml:"registry_identity"`

	// OracleURL is the base URL of the price service. Empty disables fiat
	// fee conversion.
	OracleURL string `json:"oracle_url" mapstructure:"oracle_url" yaml:"oracle_url"`

	// OracleRateLimit caps requests per second to the price service
	// (default: 20).
	OracleRateLimit float64 `json:"oracle_rate_limit" mapstructure:"oracle_rate_limit" yaml:"oracle_rate_limit"`

	// OracleBurst is the request burst allowed above OracleRateLimit
	// (default: 5).
	OracleBurst int `json:"oracle_burst" mapstructure:"oracle_burst" yaml:"oracle_burst"`

	// NATS publishes committed events to JetStream when NATS.URL is set.
	NATS natshook.Config `json:"nats" mapstructure:"nats" yaml:"nats"`

	// GroveDatabase is the name of a grove.DB registered in the DI container.
	// When set, the extension resolves this named database and auto-constructs
	// the appropriate store based on the driver type (pg/sqlite/mongo).
	// When empty and WithGroveDatabase was called, the default (unnamed) DB is used.
	GroveDatabase string `json:"grove_database" mapstructure:"grove_database" yaml:"grove_database"`

	// RequireConfig requires config to be present in YAML files.
	// If true and no config is found, Register returns an error.
	RequireConfig bool `json:"-" yaml:"-"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		FeeTierMinimums: []uint64{0},
		FeeTierRates:    []uint16{100},
		IssuerFeeShare:  5000,
		OracleRateLimit: 20,
		OracleBurst:     5,
	}
}

package extension

import (
	licensing "github.com/xraph/licensing"
	"github.com/xraph/licensing/plugin"
	"github.com/xraph/licensing/store"
)

// Option configures the licensing Forge extension.
type Option func(*Extension)

// WithStore sets the store for the licensing engine.
func WithStore(s store.Store) Option {
	return func(e *Extension) {
		e.store = s
	}
}

// WithLedgerOption passes a licensing.Option through to the underlying engine.
func WithLedgerOption(opt licensing.Option) Option {
	return func(e *Extension) {
		e.ledgerOpts = append(e.ledgerOpts, opt)
	}
}

// WithPlugin registers a licensing plugin.
func WithPlugin(p plugin.Plugin) Option {
	return func(e *Extension) {
		e.ledgerOpts = append(e.ledgerOpts, licensing.WithPlugin(p))
	}
}

// WithConfig sets the Forge extension configuration.
func WithConfig(cfg Config) Option {
	return func(e *Extension) { e.config = cfg }
}

// WithDisableMigrate prevents auto-migration on start.
func WithDisableMigrate() Option {
	return func(e *Extension) { e.config.DisableMigrate = true }
}

// WithRequireConfig requires config to be present in YAML files.
// If true and no config is found, Register returns an error.
func WithRequireConfig(require bool) Option {
	return func(e *Extension) { e.config.RequireConfig = require }
}

// WithFeeTiers sets the transfer fee tiers given to new ledgers.
func WithFeeTiers(minimums []uint64, rates []uint16) Option {
	return func(e *Extension) {
		e.config.FeeTierMinimums = minimums
		e.config.FeeTierRates = rates
	}
}

// WithOracleURL sets the price service base URL.
func WithOracleURL(url string) Option {
	return func(e *Extension) { e.config.OracleURL = url }
}

// WithRegistryIdentity sets the default root authority as a hex address.
func WithRegistryIdentity(hex string) Option {
	return func(e *Extension) { e.config.RegistryIdentity = hex }
}

// WithGroveDatabase sets the name of the grove.DB to resolve from the DI container.
// The extension will auto-construct the appropriate store backend (postgres/sqlite/mongo)
// based on the grove driver type. Pass an empty string to use the default (unnamed) grove.DB.
func WithGroveDatabase(name string) Option {
	return func(e *Extension) {
		e.config.GroveDatabase = name
		e.useGrove = true
	}
}

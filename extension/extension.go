// Package extension provides the Forge extension adapter for the licensing
// engine.
//
// It implements the forge.Extension interface to integrate licensing into a
// Forge application with automatic dependency discovery, DI registration,
// and lifecycle management.
//
// Configuration can be provided programmatically via Option functions
// or via YAML configuration files under "extensions.licensing" or
// "licensing" keys.
package extension

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/xraph/forge"
	"github.com/xraph/vessel"

	licensing "github.com/xraph/licensing"
	"github.com/xraph/licensing/fee"
	"github.com/xraph/licensing/natshook"
	"github.com/xraph/licensing/oracle/httporacle"
	"github.com/xraph/licensing/store"
	"github.com/xraph/licensing/store/memory"
	"github.com/xraph/licensing/types"
)

// ExtensionName is the name registered with Forge.
const ExtensionName = "licensing"

// ExtensionDescription is the human-readable description.
const ExtensionDescription = "License-unit ledger with tiered fees and recall rights"

// ExtensionVersion is the semantic version.
const ExtensionVersion = "0.1.0"

// Ensure Extension implements forge.Extension at compile time.
var _ forge.Extension = (*Extension)(nil)

// Extension adapts the licensing engine as a Forge extension.
type Extension struct {
	*forge.BaseExtension

	config     Config
	engine     *licensing.Ledger
	store      store.Store
	ledgerOpts []licensing.Option
	useGrove   bool
}

// New creates a new licensing Forge extension with the given options.
func New(opts ...Option) *Extension {
	e := &Extension{
		BaseExtension: forge.NewBaseExtension(ExtensionName, ExtensionVersion, ExtensionDescription),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Engine returns the underlying licensing engine.
// This is nil until Register is called.
func (e *Extension) Engine() *licensing.Ledger { return e.engine }

// Register implements [forge.Extension]. It loads configuration,
// initializes the engine, and registers it in the DI container.
func (e *Extension) Register(fapp forge.App) error {
	if err := e.BaseExtension.Register(fapp); err != nil {
		return err
	}

	if err := e.loadConfiguration(); err != nil {
		return err
	}

	if e.store == nil && (e.useGrove || e.config.GroveDatabase != "") {
		db, err := resolveGroveDB(fapp.Container(), e.config.GroveDatabase)
		if err != nil {
			return err
		}
		s, err := storeForGrove(db)
		if err != nil {
			return err
		}
		e.store = s
	}

	// Use memory store if no store was provided programmatically.
	if e.store == nil {
		e.store = memory.New()
	}

	opts, err := e.buildLedgerOpts()
	if err != nil {
		return err
	}

	e.engine = licensing.New(e.store, opts...)

	return vessel.Provide(fapp.Container(), func() (*licensing.Ledger, error) {
		return e.engine, nil
	})
}

// Start implements [forge.Extension].
func (e *Extension) Start(ctx context.Context) error {
	if e.engine == nil {
		return errors.New("licensing: extension not initialized")
	}

	if !e.config.DisableMigrate {
		if err := e.engine.Start(ctx); err != nil {
			return err
		}
	}

	e.MarkStarted()
	return nil
}

// Stop implements [forge.Extension].
func (e *Extension) Stop(_ context.Context) error {
	if e.engine != nil {
		if err := e.engine.Stop(); err != nil {
			e.MarkStopped()
			return err
		}
	}
	e.MarkStopped()
	return nil
}

// Health implements [forge.Extension].
func (e *Extension) Health(ctx context.Context) error {
	if e.store == nil {
		return errors.New("licensing: store not initialized")
	}
	return e.store.Ping(ctx)
}

// buildLedgerOpts constructs licensing.Option values from the resolved config.
func (e *Extension) buildLedgerOpts() ([]licensing.Option, error) {
	opts, err := EngineOptions(e.config)
	if err != nil {
		return nil, err
	}
	// Append any pass-through options.
	return append(opts, e.ledgerOpts...), nil
}

// EngineOptions maps cfg onto engine options: default fee settings,
// overpayment policy, registry identity, the HTTP price oracle and the
// NATS event publisher. cfg is expected to be merged with defaults.
func EngineOptions(cfg Config) ([]licensing.Option, error) {
	tiers, err := fee.NewTable(cfg.FeeTierMinimums, cfg.FeeTierRates)
	if err != nil {
		return nil, fmt.Errorf("licensing: fee tiers: %w", err)
	}
	opts := []licensing.Option{
		licensing.WithDefaults(licensing.Defaults{
			FeeTiers:        tiers,
			IssuerFeeShare:  cfg.IssuerFeeShare,
			IssuanceFeeRate: cfg.IssuanceFeeRate,
		}),
		licensing.WithOverpayment(!cfg.RejectOverpayment),
	}

	if cfg.RegistryIdentity != "" {
		addr, err := types.ParseAddress(cfg.RegistryIdentity)
		if err != nil {
			return nil, fmt.Errorf("licensing: registry identity: %w", err)
		}
		opts = append(opts, licensing.WithRegistryIdentity(addr))
	}

	if cfg.OracleURL != "" {
		client, err := httporacle.New(cfg.OracleURL,
			httporacle.WithRateLimit(cfg.OracleRateLimit, cfg.OracleBurst),
		)
		if err != nil {
			return nil, err
		}
		opts = append(opts, licensing.WithOracle(client))
	}

	if cfg.NATS.URL != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		pub, err := natshook.Connect(ctx, cfg.NATS)
		if err != nil {
			return nil, err
		}
		opts = append(opts, licensing.WithPlugin(pub))
	}

	return opts, nil
}

// --- Config Loading ---

// loadConfiguration loads config from YAML files or programmatic sources.
func (e *Extension) loadConfiguration() error {
	programmaticConfig := e.config

	// Try loading from config file.
	fileConfig, configLoaded := e.tryLoadFromConfigFile()

	if !configLoaded {
		if programmaticConfig.RequireConfig {
			return errors.New("licensing: configuration is required but not found in config files; " +
				"ensure 'extensions.licensing' or 'licensing' key exists in your config")
		}

		e.config = MergeWithDefaults(programmaticConfig)
	} else {
		e.config = mergeConfigurations(fileConfig, programmaticConfig)
	}

	e.Logger().Debug("licensing: configuration loaded",
		forge.F("disable_migrate", e.config.DisableMigrate),
		forge.F("fee_tiers", len(e.config.FeeTierMinimums)),
		forge.F("issuer_fee_share", e.config.IssuerFeeShare),
		forge.F("issuance_fee_rate", e.config.IssuanceFeeRate),
		forge.F("oracle_url", e.config.OracleURL),
		forge.F("nats_url", e.config.NATS.URL),
		forge.F("grove_database", e.config.GroveDatabase),
	)

	return nil
}

// tryLoadFromConfigFile attempts to load config from YAML files.
func (e *Extension) tryLoadFromConfigFile() (Config, bool) {
	cm := e.App().Config()
	var cfg Config

	for _, key := range []string{"extensions.licensing", "licensing"} {
		if !cm.IsSet(key) {
			continue
		}
		if err := cm.Bind(key, &cfg); err == nil {
			e.Logger().Debug("licensing: loaded config from file",
				forge.F("key", key),
			)
			return cfg, true
		}
		e.Logger().Warn("licensing: failed to bind config",
			forge.F("key", key),
			forge.F("error", "bind failed"),
		)
	}

	return Config{}, false
}

// MergeWithDefaults fills zero-valued fields with defaults.
func MergeWithDefaults(cfg Config) Config {
	defaults := DefaultConfig()
	if len(cfg.FeeTierMinimums) == 0 && len(cfg.FeeTierRates) == 0 {
		cfg.FeeTierMinimums = defaults.FeeTierMinimums
		cfg.FeeTierRates = defaults.FeeTierRates
	}
	if cfg.IssuerFeeShare == 0 {
		cfg.IssuerFeeShare = defaults.IssuerFeeShare
	}
	if cfg.OracleRateLimit == 0 {
		cfg.OracleRateLimit = defaults.OracleRateLimit
	}
	if cfg.OracleBurst == 0 {
		cfg.OracleBurst = defaults.OracleBurst
	}
	return cfg
}

// mergeConfigurations merges YAML config with programmatic options.
// YAML config takes precedence for most fields; programmatic values fill gaps.
func mergeConfigurations(yamlConfig, programmaticConfig Config) Config {
	// Programmatic bool flags override when true.
	if programmaticConfig.DisableMigrate {
		yamlConfig.DisableMigrate = true
	}
	if programmaticConfig.RejectOverpayment {
		yamlConfig.RejectOverpayment = true
	}

	// String fields: YAML takes precedence.
	if yamlConfig.RegistryIdentity == "" {
		yamlConfig.RegistryIdentity = programmaticConfig.RegistryIdentity
	}
	if yamlConfig.OracleURL == "" {
		yamlConfig.OracleURL = programmaticConfig.OracleURL
	}
	if yamlConfig.GroveDatabase == "" {
		yamlConfig.GroveDatabase = programmaticConfig.GroveDatabase
	}
	if yamlConfig.NATS.URL == "" {
		yamlConfig.NATS = programmaticConfig.NATS
	}

	// Numeric fields: YAML takes precedence, programmatic fills gaps.
	if len(yamlConfig.FeeTierMinimums) == 0 && len(yamlConfig.FeeTierRates) == 0 {
		yamlConfig.FeeTierMinimums = programmaticConfig.FeeTierMinimums
		yamlConfig.FeeTierRates = programmaticConfig.FeeTierRates
	}
	if yamlConfig.IssuerFeeShare == 0 {
		yamlConfig.IssuerFeeShare = programmaticConfig.IssuerFeeShare
	}
	if yamlConfig.IssuanceFeeRate == 0 {
		yamlConfig.IssuanceFeeRate = programmaticConfig.IssuanceFeeRate
	}
	if yamlConfig.OracleRateLimit == 0 {
		yamlConfig.OracleRateLimit = programmaticConfig.OracleRateLimit
	}
	if yamlConfig.OracleBurst == 0 {
		yamlConfig.OracleBurst = programmaticConfig.OracleBurst
	}

	// Fill remaining zeros with defaults.
	return MergeWithDefaults(yamlConfig)
}

package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/xraph/licensing/extension"
)

// Config is the licensectl configuration. It is read from config.yaml,
// .env files and LICENSING_* environment variables, in increasing order
// of precedence.
type Config struct {
	Log    LogConfig        `mapstructure:"log"`
	Store  StoreConfig      `mapstructure:"store"`
	Ledger extension.Config `mapstructure:"ledger"`
}

// LogConfig selects the slog handler.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // text or json
}

// StoreConfig selects the store backend.
type StoreConfig struct {
	Driver      string `mapstructure:"driver"` // sqlite, postgres, mongo or memory
	DSN         string `mapstructure:"dsn"`
	Database    string `mapstructure:"database"` // mongo only
	AutoMigrate bool   `mapstructure:"auto_migrate"`
}

// envKeys are bound explicitly so they apply without a config file.
var envKeys = []string{
	"log.level",
	"log.format",
	"store.driver",
	"store.dsn",
	"store.database",
	"store.auto_migrate",
	"ledger.issuer_fee_share",
	"ledger.issuance_fee_rate",
	"ledger.reject_overpayment",
	"ledger.registry_identity",
	"ledger.oracle_url",
	"ledger.oracle_rate_limit",
	"ledger.oracle_burst",
	"ledger.nats.url",
	"ledger.nats.stream_name",
	"ledger.nats.subject_prefix",
}

// newViper returns a viper instance with the config file and environment
// variables set.
func newViper(configFile, envPath string) *viper.Viper {
	v := viper.New()

	loadEnv(envPath)

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("config/")
	}

	v.SetEnvPrefix("LICENSING")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for _, key := range envKeys {
		_ = v.BindEnv(key)
	}

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.dsn", "licensing.db")
	v.SetDefault("store.database", "licensing")
	v.SetDefault("store.auto_migrate", true)
	return v
}

// loadConfig reads the configuration. A missing config file is not an
// error when none was named explicitly.
func loadConfig(v *viper.Viper) (*Config, error) {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.Ledger = extension.MergeWithDefaults(cfg.Ledger)
	return &cfg, nil
}

// loadEnv loads .env then .env.local from envPath; later files win.
func loadEnv(envPath string) {
	if envPath == "" {
		return
	}
	for _, name := range []string{".env", ".env.local"} {
		_ = godotenv.Overload(filepath.Join(envPath, name))
	}
}

// newLogger builds the slog logger described by cfg.
func newLogger(cfg LogConfig) (*slog.Logger, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		return nil, fmt.Errorf("log level %q: %w", cfg.Level, err)
	}
	opts := &slog.HandlerOptions{Level: level}

	switch cfg.Format {
	case "", "text":
		return slog.New(slog.NewTextHandler(os.Stderr, opts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(os.Stderr, opts)), nil
	default:
		return nil, fmt.Errorf("unknown log format %q", cfg.Format)
	}
}

package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	licensing "github.com/xraph/licensing"
	"github.com/xraph/licensing/extension"
	"github.com/xraph/licensing/types"
)

// app carries state shared by every subcommand for one invocation.
type app struct {
	configFile string
	envPath    string
	caller     string

	cfg    *Config
	logger *slog.Logger
	engine *licensing.Ledger
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:          "licensectl",
		Short:        "Operate license-unit ledgers",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
		PersistentPostRunE: func(*cobra.Command, []string) error {
			if a.engine == nil {
				return nil
			}
			return a.engine.Stop()
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.configFile, "config", "", "path to configuration file")
	pf.StringVar(&a.envPath, "env", "", "directory holding .env files")
	pf.StringVar(&a.caller, "as", "", "address the operation is performed as")
	pf.String("log-format", "text", "log output format (text or json)")
	pf.String("log-level", "info", "minimum log level")
	pf.String("store-driver", "sqlite", "store backend (sqlite, postgres, mongo or memory)")
	pf.String("store-dsn", "licensing.db", "store connection string")

	root.AddCommand(
		newMigrateCmd(a),
		newLedgerCmd(a),
		newSignCmd(a),
		newIssueCmd(a),
		newTransferCmd(a),
		newRecallCmd(a),
		newRevokeCmd(a),
		newQuoteCmd(a),
		newBalanceCmd(a),
		newEventsCmd(a),
		newWithdrawCmd(a),
		newDisableCmd(a),
		newManageCmd(a),
		newFeeTiersCmd(a),
		newIssuanceFeeCmd(a),
		newFeeShareCmd(a),
	)
	return root
}

// setup loads configuration and opens the engine.
func (a *app) setup(cmd *cobra.Command) error {
	v := newViper(a.configFile, a.envPath)
	if err := bindFlags(v, cmd.Root()); err != nil {
		return err
	}

	cfg, err := loadConfig(v)
	if err != nil {
		return err
	}
	a.cfg = cfg

	logger, err := newLogger(cfg.Log)
	if err != nil {
		return err
	}
	a.logger = logger

	s, err := openStore(cmd.Context(), cfg.Store)
	if err != nil {
		return err
	}

	opts, err := extension.EngineOptions(cfg.Ledger)
	if err != nil {
		_ = s.Close()
		return err
	}
	opts = append(opts, licensing.WithLogger(logger))
	a.engine = licensing.New(s, opts...)

	if cfg.Store.AutoMigrate || cmd.Name() == "migrate" {
		if err := a.engine.Start(cmd.Context()); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

func bindFlags(v *viper.Viper, root *cobra.Command) error {
	pf := root.PersistentFlags()
	for key, flag := range map[string]string{
		"log.format":   "log-format",
		"log.level":    "log-level",
		"store.driver": "store-driver",
		"store.dsn":    "store-dsn",
	} {
		f := pf.Lookup(flag)
		if !f.Changed {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return err
		}
	}
	return nil
}

// callerAddress returns the --as address.
func (a *app) callerAddress() (types.Address, error) {
	if a.caller == "" {
		return types.NullAddress, errors.New("--as is required for this command")
	}
	return types.ParseAddress(a.caller)
}

// printJSON writes v as indented JSON.
func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

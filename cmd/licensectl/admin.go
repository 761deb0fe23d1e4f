package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/xraph/licensing/id"
	"github.com/xraph/licensing/types"
)

func newDisableCmd(a *app) *cobra.Command {
	return ledgerCommand(a, "disable", "Disable a ledger permanently", func(cmd *cobra.Command, ledgerID id.LedgerID, caller types.Address) error {
		return a.engine.Disable(cmd.Context(), ledgerID, caller)
	})
}

func newManageCmd(a *app) *cobra.Command {
	var manager string
	cmd := ledgerCommand(a, "manage", "Hand management of a ledger to a manager as the root authority", func(cmd *cobra.Command, ledgerID id.LedgerID, caller types.Address) error {
		addr, err := types.ParseAddress(manager)
		if err != nil {
			return fmt.Errorf("manager: %w", err)
		}
		return a.engine.TakeOverManagement(cmd.Context(), ledgerID, caller, addr)
	})
	cmd.Flags().StringVar(&manager, "manager", "", "manager address")
	return cmd
}

func newFeeTiersCmd(a *app) *cobra.Command {
	var tiers []string
	cmd := ledgerCommand(a, "fee-tiers", "Replace the transfer fee tiers", func(cmd *cobra.Command, ledgerID id.LedgerID, caller types.Address) error {
		minimums, rates, err := parseTiers(tiers)
		if err != nil {
			return err
		}
		return a.engine.SetTransferFeeTiers(cmd.Context(), ledgerID, caller, minimums, rates)
	})
	cmd.Flags().StringArrayVar(&tiers, "tier", nil, "tier as MINIMUM:RATE, lowest minimum first (repeatable)")
	return cmd
}

func newIssuanceFeeCmd(a *app) *cobra.Command {
	var rate uint16
	cmd := ledgerCommand(a, "issuance-fee", "Set the issuance fee rate in basis points", func(cmd *cobra.Command, ledgerID id.LedgerID, caller types.Address) error {
		return a.engine.SetIssuanceFeeRate(cmd.Context(), ledgerID, caller, rate)
	})
	cmd.Flags().Uint16Var(&rate, "rate", 0, "fee rate in basis points of the issuance value")
	return cmd
}

func newFeeShareCmd(a *app) *cobra.Command {
	var share uint16
	cmd := ledgerCommand(a, "fee-share", "Set the issuer's share of retained fees in basis points", func(cmd *cobra.Command, ledgerID id.LedgerID, caller types.Address) error {
		return a.engine.SetIssuerFeeShare(cmd.Context(), ledgerID, caller, share)
	})
	cmd.Flags().Uint16Var(&share, "share", 0, "issuer share in basis points")
	return cmd
}

// parseTiers splits MINIMUM:RATE pairs.
func parseTiers(tiers []string) ([]uint64, []uint16, error) {
	if len(tiers) == 0 {
		return nil, nil, errors.New("at least one --tier is required")
	}
	minimums := make([]uint64, len(tiers))
	rates := make([]uint16, len(tiers))
	for i, t := range tiers {
		lo, hi, ok := strings.Cut(t, ":")
		if !ok {
			return nil, nil, fmt.Errorf("tier %q: want MINIMUM:RATE", t)
		}
		minimum, err := strconv.ParseUint(lo, 10, 64)
		if err != nil {
			return nil, nil, fmt.Errorf("tier %q: minimum: %w", t, err)
		}
		rate, err := strconv.ParseUint(hi, 10, 16)
		if err != nil {
			return nil, nil, fmt.Errorf("tier %q: rate: %w", t, err)
		}
		minimums[i] = minimum
		rates[i] = uint16(rate)
	}
	return minimums, rates, nil
}

package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	licensing "github.com/xraph/licensing"
	"github.com/xraph/licensing/event"
	"github.com/xraph/licensing/id"
	"github.com/xraph/licensing/instance"
	"github.com/xraph/licensing/types"
)

func newMigrateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or upgrade the store schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			fmt.Fprintf(cmd.OutOrStdout(), "migrated %s store\n", a.cfg.Store.Driver)
			return nil
		},
	}
}

func newLedgerCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ledger",
		Short: "Create and inspect ledgers",
	}

	var (
		p          licensing.CreateParams
		issuer     string
		rootAuth   string
		issuerOnly string
		limit      int
	)
	create := &cobra.Command{
		Use:   "create",
		Short: "Create a ledger instance",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			if p.Issuer, err = types.ParseAddress(issuer); err != nil {
				return err
			}
			if rootAuth != "" {
				if p.RootAuthority, err = types.ParseAddress(rootAuth); err != nil {
					return err
				}
			}
			in, err := a.engine.CreateLedger(cmd.Context(), p)
			if err != nil {
				return err
			}
			return printJSON(cmd, in)
		},
	}
	create.Flags().StringVar(&issuer, "issuer", "", "issuer address")
	create.Flags().StringVar(&rootAuth, "root", "", "root authority address (defaults to the registry identity)")
	create.Flags().StringVar(&p.Name, "name", "", "ledger name")
	create.Flags().StringVar(&p.LiabilityText, "liability", "", "liability statement")
	create.Flags().Uint16Var(&p.AuditRetentionYears, "retention", 0, "audit retention in years")
	create.Flags().StringVar(&p.Credential, "credential", "", "issuer credential reference")

	show := &cobra.Command{
		Use:   "show <ledger-id>",
		Short: "Show a ledger instance",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ledgerID, err := id.ParseLedgerID(args[0])
			if err != nil {
				return err
			}
			in, err := a.engine.GetLedger(cmd.Context(), ledgerID)
			if err != nil {
				return err
			}
			return printJSON(cmd, in)
		},
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List ledger instances",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			opts := instance.ListOpts{Limit: limit}
			if issuerOnly != "" {
				addr, err := types.ParseAddress(issuerOnly)
				if err != nil {
					return err
				}
				opts.Issuer = &addr
			}
			ledgers, err := a.engine.ListLedgers(cmd.Context(), opts)
			if err != nil {
				return err
			}
			return printJSON(cmd, ledgers)
		},
	}
	list.Flags().StringVar(&issuerOnly, "issuer", "", "only ledgers of this issuer")
	list.Flags().IntVar(&limit, "limit", 50, "maximum number of ledgers")

	cmd.AddCommand(create, show, list)
	return cmd
}

// ledgerCommand builds a command that acts on one ledger as the --as caller.
func ledgerCommand(a *app, use, short string, run func(cmd *cobra.Command, ledgerID id.LedgerID, caller types.Address) error) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <ledger-id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ledgerID, err := id.ParseLedgerID(args[0])
			if err != nil {
				return err
			}
			caller, err := a.callerAddress()
			if err != nil {
				return err
			}
			return run(cmd, ledgerID, caller)
		},
	}
}

func newSignCmd(a *app) *cobra.Command {
	return ledgerCommand(a, "sign", "Sign a ledger as its issuer", func(cmd *cobra.Command, ledgerID id.LedgerID, caller types.Address) error {
		return a.engine.Sign(cmd.Context(), ledgerID, caller)
	})
}

func newIssueCmd(a *app) *cobra.Command {
	var (
		req       licensing.IssueRequest
		owner     string
		auditTime string
	)
	cmd := ledgerCommand(a, "issue", "Create an issuance", func(cmd *cobra.Command, ledgerID id.LedgerID, caller types.Address) error {
		var err error
		if req.Owner, err = types.ParseAddress(owner); err != nil {
			return err
		}
		req.AuditTime = time.Now().UTC()
		if auditTime != "" {
			if req.AuditTime, err = time.Parse(time.RFC3339, auditTime); err != nil {
				return fmt.Errorf("audit time: %w", err)
			}
		}
		index, err := a.engine.Issue(cmd.Context(), ledgerID, caller, req)
		if err != nil {
			return err
		}
		return printJSON(cmd, map[string]uint64{"issuance": index})
	})
	f := cmd.Flags()
	f.StringVar(&req.Description, "description", "", "issuance description")
	f.StringVar(&req.Code, "code", "", "issuance code")
	f.Uint64Var(&req.Value, "value", 0, "fiat value of the whole supply")
	f.Uint64Var(&req.Supply, "supply", 0, "number of units")
	f.StringVar(&owner, "owner", "", "initial owner address")
	f.StringVar(&auditTime, "audit-time", "", "audit time (RFC 3339, defaults to now)")
	f.StringVar(&req.AuditRemark, "remark", "", "audit remark")
	f.Uint64Var(&req.Payment, "payment", 0, "native payment offered for the issuance fee")
	return cmd
}

func newTransferCmd(a *app) *cobra.Command {
	var (
		req        licensing.TransferRequest
		to         string
		recallable bool
	)
	cmd := ledgerCommand(a, "transfer", "Transfer units to another holder", func(cmd *cobra.Command, ledgerID id.LedgerID, caller types.Address) error {
		var err error
		if req.To, err = types.ParseAddress(to); err != nil {
			return err
		}
		if recallable {
			return a.engine.TransferWithRecallRight(cmd.Context(), ledgerID, caller, req)
		}
		return a.engine.Transfer(cmd.Context(), ledgerID, caller, req)
	})
	f := cmd.Flags()
	f.Uint64Var(&req.Issuance, "issuance", 0, "issuance index")
	f.StringVar(&to, "to", "", "recipient address")
	f.Uint64Var(&req.Amount, "amount", 0, "number of units")
	f.Uint64Var(&req.Payment, "payment", 0, "native payment offered for the transfer fee")
	f.BoolVar(&recallable, "recallable", false, "keep a recall right over the units")
	return cmd
}

func newRecallCmd(a *app) *cobra.Command {
	var (
		req  licensing.RecallRequest
		from string
	)
	cmd := ledgerCommand(a, "recall", "Recall units transferred with a recall right", func(cmd *cobra.Command, ledgerID id.LedgerID, caller types.Address) error {
		var err error
		if req.From, err = types.ParseAddress(from); err != nil {
			return err
		}
		return a.engine.Recall(cmd.Context(), ledgerID, caller, req)
	})
	f := cmd.Flags()
	f.Uint64Var(&req.Issuance, "issuance", 0, "issuance index")
	f.StringVar(&from, "from", "", "holder to recall from")
	f.Uint64Var(&req.Amount, "amount", 0, "number of units")
	return cmd
}

func newRevokeCmd(a *app) *cobra.Command {
	var (
		index  uint64
		reason string
	)
	cmd := ledgerCommand(a, "revoke", "Revoke an issuance", func(cmd *cobra.Command, ledgerID id.LedgerID, caller types.Address) error {
		return a.engine.Revoke(cmd.Context(), ledgerID, caller, index, reason)
	})
	cmd.Flags().Uint64Var(&index, "issuance", 0, "issuance index")
	cmd.Flags().StringVar(&reason, "reason", "", "revocation reason")
	return cmd
}

func newWithdrawCmd(a *app) *cobra.Command {
	return ledgerCommand(a, "withdraw", "Withdraw collected fees as the root authority", func(cmd *cobra.Command, ledgerID id.LedgerID, caller types.Address) error {
		w, err := a.engine.Withdraw(cmd.Context(), ledgerID, caller)
		if err != nil {
			return err
		}
		return printJSON(cmd, w)
	})
}

func newQuoteCmd(a *app) *cobra.Command {
	var index, amount uint64
	cmd := &cobra.Command{
		Use:   "quote <ledger-id>",
		Short: "Price a transfer of units",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ledgerID, err := id.ParseLedgerID(args[0])
			if err != nil {
				return err
			}
			q, err := a.engine.QuoteTransferFee(cmd.Context(), ledgerID, index, amount)
			if err != nil {
				return err
			}
			return printJSON(cmd, q)
		},
	}
	cmd.Flags().Uint64Var(&index, "issuance", 0, "issuance index")
	cmd.Flags().Uint64Var(&amount, "amount", 0, "number of units")
	return cmd
}

// holding is the balance report of one holder.
type holding struct {
	Holder     types.Address   `json:"holder"`
	Issuance   uint64          `json:"issuance"`
	Owned      uint64          `json:"owned"`
	Recallable uint64          `json:"recallable"`
	Witnesses  []types.Address `json:"recall_witnesses"`
}

func newBalanceCmd(a *app) *cobra.Command {
	var (
		index  uint64
		holder string
	)
	cmd := &cobra.Command{
		Use:   "balance <ledger-id>",
		Short: "Show a holder's units of an issuance",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ledgerID, err := id.ParseLedgerID(args[0])
			if err != nil {
				return err
			}
			h := holding{Issuance: index}
			if h.Holder, err = types.ParseAddress(holder); err != nil {
				return err
			}
			ctx := cmd.Context()
			if h.Owned, err = a.engine.TotalOwned(ctx, ledgerID, index, h.Holder); err != nil {
				return err
			}
			if h.Recallable, err = a.engine.RecallableTotal(ctx, ledgerID, index, h.Holder); err != nil {
				return err
			}
			if h.Witnesses, err = a.engine.RecallWitnesses(ctx, ledgerID, index, h.Holder); err != nil {
				return err
			}
			return printJSON(cmd, h)
		},
	}
	cmd.Flags().Uint64Var(&index, "issuance", 0, "issuance index")
	cmd.Flags().StringVar(&holder, "holder", "", "holder address")
	return cmd
}

func newEventsCmd(a *app) *cobra.Command {
	var (
		opts  event.ListOpts
		typ   string
		index int64
	)
	cmd := &cobra.Command{
		Use:   "events <ledger-id>",
		Short: "List a ledger's events in sequence order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ledgerID, err := id.ParseLedgerID(args[0])
			if err != nil {
				return err
			}
			opts.Type = event.Type(typ)
			if index >= 0 {
				opts.Issuance = event.Index(uint64(index))
			}
			events, err := a.engine.Events(cmd.Context(), ledgerID, opts)
			if err != nil {
				return err
			}
			return printJSON(cmd, events)
		},
	}
	f := cmd.Flags()
	f.Uint64Var(&opts.AfterSeq, "after", 0, "only events after this sequence number")
	f.StringVar(&typ, "type", "", "only events of this type")
	f.Int64Var(&index, "issuance", -1, "only events of this issuance")
	f.IntVar(&opts.Limit, "limit", 100, "maximum number of events")
	return cmd
}

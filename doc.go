// Package licensing provides a ledger of license units for Go applications.
//
// An issuer creates issuances, each a fixed supply of units with a
// description, a code and an original value. Units move between holders
// either as proper ownership or under a recall right that lets the sender
// take them back later. Every transfer pays a fee chosen from a tiered
// table by the moved share of the issuance value. A price oracle turns the
// fiat fee into the native payment required.
//
// # Quick Start
//
//	import (
//	    "github.com/xraph/licensing"
//	    "github.com/xraph/licensing/oracle"
//	    "github.com/xraph/licensing/store/memory"
//	)
//
//	eng := licensing.New(memory.New(),
//	    licensing.WithOracle(oracle.NewFixed(1, 1, 0)),
//	    licensing.WithRegistryIdentity(registry),
//	)
//	if err := eng.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer eng.Stop()
//
//	in, err := eng.CreateLedger(ctx, licensing.CreateParams{
//	    Issuer: issuer,
//	    Name:   "Acme software licenses",
//	})
//	_ = eng.Sign(ctx, in.ID, issuer)
//	idx, err := eng.Issue(ctx, in.ID, issuer, licensing.IssueRequest{
//	    Description: "Acme Studio seats",
//	    Code:        "ACME-STUDIO",
//	    Value:       10_000,
//	    AuditTime:   time.Now(),
//	    Supply:      100,
//	    Owner:       issuer,
//	})
//
// # Roles
//
// The issuer signs the ledger once, issues, revokes and may disable it. The
// root authority configures fees and withdraws the treasury, and may hand
// management to a manager. Once managed, revocation and disabling belong to
// the manager and the issuer can no longer issue.
//
// # Atomicity
//
// Operations on one engine run one at a time. Each stages its writes and
// events and commits them to the store in a single batch, so a failed
// operation changes nothing.
//
// # TypeID
//
// Ledger instances, events and withdrawals use TypeIDs:
//
//	lgr_01h2xcejqtf2nbrexx3vqjhp41  // Ledger ID
//	evt_01h2xcejqtf2nbrexx3vqjhp41  // Event ID
//	wdr_01h455vb4pex5vsknk084sn02q  // Withdrawal ID
//
// Issuances are addressed by their index inside a ledger.
package licensing

// Package sqlmodel holds the grove row models shared by the SQL stores.
//
// Unsigned 64-bit quantities are stored as their signed bit pattern in
// BIGINT / INTEGER columns so values above MaxInt64 survive a round trip.
package sqlmodel

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/xraph/grove"

	"github.com/xraph/licensing/access"
	"github.com/xraph/licensing/balance"
	"github.com/xraph/licensing/event"
	"github.com/xraph/licensing/fee"
	"github.com/xraph/licensing/id"
	"github.com/xraph/licensing/instance"
	"github.com/xraph/licensing/issuance"
	"github.com/xraph/licensing/types"
)

// Table names.
const (
	TableLedgers     = "licensing_ledgers"
	TableIssuances   = "licensing_issuances"
	TableBalances    = "licensing_balances"
	TableTemporaries = "licensing_temporaries"
	TableWitnesses   = "licensing_witnesses"
	TableRelevance   = "licensing_relevance"
	TableEvents      = "licensing_events"
)

// I64 stores v as its signed bit pattern.
func I64(v uint64) int64 { return int64(v) } //nolint:gosec // bit pattern round trip

// U64 reverses I64.
func U64(v int64) uint64 { return uint64(v) } //nolint:gosec // bit pattern round trip

// ==================== Ledger ====================

type LedgerModel struct {
	grove.BaseModel `grove:"table:licensing_ledgers"`

	ID                  string     `grove:"id,pk"`
	Name                string     `grove:"name"`
	LiabilityText       string     `grove:"liability_text"`
	AuditRetentionYears int        `grove:"audit_retention_years"`
	Credential          string     `grove:"credential"`
	Issuer              string     `grove:"issuer"`
	RootAuthority       string     `grove:"root_authority"`
	Manager             string     `grove:"manager"`
	Signed              bool       `grove:"signed"`
	Disabled            bool       `grove:"disabled"`
	SignedAt            *time.Time `grove:"signed_at"`
	DisabledAt          *time.Time `grove:"disabled_at"`
	IssuanceFeeRate     int        `grove:"issuance_fee_rate"`
	IssuerFeeShare      int        `grove:"issuer_fee_share"`
	FeeTiers            string     `grove:"fee_tiers"`
	IssuanceCount       int64      `grove:"issuance_count"`
	EventSeq            int64      `grove:"event_seq"`
	TreasuryIssuer      int64      `grove:"treasury_issuer"`
	TreasuryRoot        int64      `grove:"treasury_root"`
	Version             int64      `grove:"version"`
	CreatedAt           time.Time  `grove:"created_at"`
	UpdatedAt           time.Time  `grove:"updated_at"`
}

func ToLedgerModel(in *instance.Instance) (*LedgerModel, error) {
	tiers, err := json.Marshal(in.FeeTiers.Tiers)
	if err != nil {
		return nil, fmt.Errorf("encode fee tiers: %w", err)
	}
	return &LedgerModel{
		ID:                  in.ID.String(),
		Name:                in.Name,
		LiabilityText:       in.LiabilityText,
		AuditRetentionYears: int(in.AuditRetentionYears),
		Credential:          in.Credential,
		Issuer:              in.Issuer.Hex(),
		RootAuthority:       in.RootAuthority.Hex(),
		Manager:             in.Manager.Hex(),
		Signed:              in.Signed,
		Disabled:            in.Disabled,
		SignedAt:            in.SignedAt,
		DisabledAt:          in.DisabledAt,
		IssuanceFeeRate:     int(in.IssuanceFeeRate),
		IssuerFeeShare:      int(in.IssuerFeeShare),
		FeeTiers:            string(tiers),
		IssuanceCount:       I64(in.IssuanceCount),
		EventSeq:            I64(in.EventSeq),
		TreasuryIssuer:      I64(in.Treasury.Issuer),
		TreasuryRoot:        I64(in.Treasury.Root),
		Version:             I64(in.Version),
		CreatedAt:           in.CreatedAt,
		UpdatedAt:           in.UpdatedAt,
	}, nil
}

func FromLedgerModel(m *LedgerModel) (*instance.Instance, error) {
	ledgerID, err := id.ParseLedgerID(m.ID)
	if err != nil {
		return nil, err
	}
	var tiers []fee.Tier
	if m.FeeTiers != "" {
		if err := json.Unmarshal([]byte(m.FeeTiers), &tiers); err != nil {
			return nil, fmt.Errorf("decode fee tiers of %s: %w", m.ID, err)
		}
	}

	return &instance.Instance{
		Entity: types.Entity{
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		ID:                  ledgerID,
		Name:                m.Name,
		LiabilityText:       m.LiabilityText,
		AuditRetentionYears: uint16(m.AuditRetentionYears), //nolint:gosec // written from uint16
		Credential:          m.Credential,
		Control: access.Control{
			Issuer:        common.HexToAddress(m.Issuer),
			RootAuthority: common.HexToAddress(m.RootAuthority),
			Manager:       common.HexToAddress(m.Manager),
			Signed:        m.Signed,
			Disabled:      m.Disabled,
		},
		SignedAt:        m.SignedAt,
		DisabledAt:      m.DisabledAt,
		IssuanceFeeRate: uint16(m.IssuanceFeeRate), //nolint:gosec // written from uint16
		IssuerFeeShare:  uint16(m.IssuerFeeShare),  //nolint:gosec // written from uint16
		FeeTiers:        fee.Table{Tiers: tiers},
		IssuanceCount:   U64(m.IssuanceCount),
		EventSeq:        U64(m.EventSeq),
		Treasury: instance.Treasury{
			Issuer: U64(m.TreasuryIssuer),
			Root:   U64(m.TreasuryRoot),
		},
		Version: U64(m.Version),
	}, nil
}

// ==================== Issuance ====================

type IssuanceModel struct {
	grove.BaseModel `grove:"table:licensing_issuances"`

	LedgerID         string     `grove:"ledger_id,pk"`
	Idx              int64      `grove:"idx,pk"`
	Description      string     `grove:"description"`
	Code             string     `grove:"code"`
	OriginalSupply   int64      `grove:"original_supply"`
	OriginalValue    int64      `grove:"original_value"`
	AuditTime        time.Time  `grove:"audit_time"`
	AuditRemark      string     `grove:"audit_remark"`
	Owner            string     `grove:"owner"`
	Revoked          bool       `grove:"revoked"`
	RevocationReason string     `grove:"revocation_reason"`
	RevokedAt        *time.Time `grove:"revoked_at"`
	CreatedAt        time.Time  `grove:"created_at"`
	UpdatedAt        time.Time  `grove:"updated_at"`
}

func ToIssuanceModel(i *issuance.Issuance) *IssuanceModel {
	return &IssuanceModel{
		LedgerID:         i.LedgerID.String(),
		Idx:              I64(i.Index),
		Description:      i.Description,
		Code:             i.Code,
		OriginalSupply:   I64(i.OriginalSupply),
		OriginalValue:    I64(i.OriginalValue),
		AuditTime:        i.AuditTime,
		AuditRemark:      i.AuditRemark,
		Owner:            i.Owner.Hex(),
		Revoked:          i.Revoked,
		RevocationReason: i.RevocationReason,
		RevokedAt:        i.RevokedAt,
		CreatedAt:        i.CreatedAt,
		UpdatedAt:        i.UpdatedAt,
	}
}

func FromIssuanceModel(m *IssuanceModel) (*issuance.Issuance, error) {
	ledgerID, err := id.ParseLedgerID(m.LedgerID)
	if err != nil {
		return nil, err
	}
	return &issuance.Issuance{
		Entity: types.Entity{
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		LedgerID:         ledgerID,
		Index:            U64(m.Idx),
		Description:      m.Description,
		Code:             m.Code,
		OriginalSupply:   U64(m.OriginalSupply),
		OriginalValue:    U64(m.OriginalValue),
		AuditTime:        m.AuditTime,
		AuditRemark:      m.AuditRemark,
		Owner:            common.HexToAddress(m.Owner),
		Revoked:          m.Revoked,
		RevocationReason: m.RevocationReason,
		RevokedAt:        m.RevokedAt,
	}, nil
}

// ==================== Balances ====================

type BalanceModel struct {
	grove.BaseModel `grove:"table:licensing_balances"`

	LedgerID    string `grove:"ledger_id,pk"`
	Issuance    int64  `grove:"issuance,pk"`
	Holder      string `grove:"holder,pk"`
	RecallRight string `grove:"recall_right,pk"`
	Amount      int64  `grove:"amount"`
}

func ToBalanceModel(e balance.Entry) *BalanceModel {
	return &BalanceModel{
		LedgerID:    e.LedgerID.String(),
		Issuance:    I64(e.Issuance),
		Holder:      e.Holder.Hex(),
		RecallRight: e.RecallRight.Hex(),
		Amount:      I64(e.Amount),
	}
}

func FromBalanceModel(ledgerID id.LedgerID, m *BalanceModel) balance.Entry {
	return balance.Entry{
		LedgerID:    ledgerID,
		Issuance:    U64(m.Issuance),
		Holder:      common.HexToAddress(m.Holder),
		RecallRight: common.HexToAddress(m.RecallRight),
		Amount:      U64(m.Amount),
	}
}

type TemporaryModel struct {
	grove.BaseModel `grove:"table:licensing_temporaries"`

	LedgerID string `grove:"ledger_id,pk"`
	Issuance int64  `grove:"issuance,pk"`
	Holder   string `grove:"holder,pk"`
	Amount   int64  `grove:"amount"`
}

func ToTemporaryModel(t balance.Temporary) *TemporaryModel {
	return &TemporaryModel{
		LedgerID: t.LedgerID.String(),
		Issuance: I64(t.Issuance),
		Holder:   t.Holder.Hex(),
		Amount:   I64(t.Amount),
	}
}

type WitnessModel struct {
	grove.BaseModel `grove:"table:licensing_witnesses"`

	LedgerID string `grove:"ledger_id,pk"`
	Issuance int64  `grove:"issuance,pk"`
	Owner    string `grove:"owner,pk"`
	Holder   string `grove:"holder,pk"`
	Seq      int64  `grove:"seq"`
}

func ToWitnessModel(w balance.Witness) *WitnessModel {
	return &WitnessModel{
		LedgerID: w.LedgerID.String(),
		Issuance: I64(w.Issuance),
		Owner:    w.Owner.Hex(),
		Holder:   w.Holder.Hex(),
		Seq:      I64(w.Seq),
	}
}

// FromWitnessModel returns the holder a witness row records.
func FromWitnessModel(m *WitnessModel) types.Address {
	return common.HexToAddress(m.Holder)
}

type RelevanceModel struct {
	grove.BaseModel `grove:"table:licensing_relevance"`

	LedgerID string `grove:"ledger_id,pk"`
	Holder   string `grove:"holder,pk"`
	Issuance int64  `grove:"issuance,pk"`
}

func ToRelevanceModel(r balance.Relevance) *RelevanceModel {
	return &RelevanceModel{
		LedgerID: r.LedgerID.String(),
		Holder:   r.Holder.Hex(),
		Issuance: I64(r.Issuance),
	}
}

// ==================== Events ====================

// EventModel keeps the filterable columns of an event next to its full
// JSON payload.
type EventModel struct {
	grove.BaseModel `grove:"table:licensing_events"`

	ID         string    `grove:"id,pk"`
	LedgerID   string    `grove:"ledger_id"`
	Seq        int64     `grove:"seq"`
	Type       string    `grove:"type"`
	Issuance   *int64    `grove:"issuance"`
	OccurredAt time.Time `grove:"occurred_at"`
	Payload    string    `grove:"payload"`
}

func ToEventModel(e *event.Event) (*EventModel, error) {
	payload, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("encode event %s: %w", e.ID, err)
	}
	m := &EventModel{
		ID:         e.ID.String(),
		LedgerID:   e.LedgerID.String(),
		Seq:        I64(e.Seq),
		Type:       string(e.Type),
		OccurredAt: e.OccurredAt,
		Payload:    string(payload),
	}
	if idx, ok := e.IssuanceIndex(); ok {
		v := I64(idx)
		m.Issuance = &v
	}
	return m, nil
}

func FromEventModel(m *EventModel) (*event.Event, error) {
	e := new(event.Event)
	if err := json.Unmarshal([]byte(m.Payload), e); err != nil {
		return nil, fmt.Errorf("decode event %s: %w", m.ID, err)
	}
	return e, nil
}

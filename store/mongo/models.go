package mongo

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
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

// Unsigned quantities are stored as their signed bit pattern; BSON has no
// unsigned 64-bit integer.
func i64(v uint64) int64 { return int64(v) } //nolint:gosec // bit pattern round trip
func u64(v int64) uint64 { return uint64(v) } //nolint:gosec // bit pattern round trip

// docKey joins the parts of a composite key into a document _id.
func docKey(parts ...string) string { return strings.Join(parts, ":") }

func idxKey(v uint64) string { return strconv.FormatUint(v, 10) }

// ==================== Ledger models ====================

type tierModel struct {
	Minimum int64 `bson:"minimum"`
	Rate    int   `bson:"rate"`
}

type ledgerModel struct {
	grove.BaseModel `grove:"table:licensing_ledgers"`

	ID                  string      `grove:"id,pk"                 bson:"_id"`
	Name                string      `grove:"name"                  bson:"name"`
	LiabilityText       string      `grove:"liability_text"        bson:"liability_text"`
	AuditRetentionYears int         `grove:"audit_retention_years" bson:"audit_retention_years"`
	Credential          string      `grove:"credential"            bson:"credential"`
	Issuer              string      `grove:"issuer"                bson:"issuer"`
	RootAuthority       string      `grove:"root_authority"        bson:"root_authority"`
	Manager             string      `grove:"manager"               bson:"manager"`
	Signed              bool        `grove:"signed"                bson:"signed"`
	Disabled            bool        `grove:"disabled"              bson:"disabled"`
	SignedAt            *time.Time  `grove:"signed_at"             bson:"signed_at,omitempty"`
	DisabledAt          *time.Time  `grove:"disabled_at"           bson:"disabled_at,omitempty"`
	IssuanceFeeRate     int         `grove:"issuance_fee_rate"     bson:"issuance_fee_rate"`
	IssuerFeeShare      int         `grove:"issuer_fee_share"      bson:"issuer_fee_share"`
	FeeTiers            []tierModel `grove:"fee_tiers"             bson:"fee_tiers"`
	IssuanceCount       int64       `grove:"issuance_count"        bson:"issuance_count"`
	EventSeq            int64       `grove:"event_seq"             bson:"event_seq"`
	TreasuryIssuer      int64       `grove:"treasury_issuer"       bson:"treasury_issuer"`
	TreasuryRoot        int64       `grove:"treasury_root"         bson:"treasury_root"`
	Version             int64       `grove:"version"               bson:"version"`
	CreatedAt           time.Time   `grove:"created_at"            bson:"created_at"`
	UpdatedAt           time.Time   `grove:"updated_at"            bson:"updated_at"`
}

func toLedgerModel(in *instance.Instance) *ledgerModel {
	tiers := make([]tierModel, len(in.FeeTiers.Tiers))
	for i, t := range in.FeeTiers.Tiers {
		tiers[i] = tierModel{Minimum: i64(t.Minimum), Rate: int(t.Rate)}
	}
	return &ledgerModel{
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
		FeeTiers:            tiers,
		IssuanceCount:       i64(in.IssuanceCount),
		EventSeq:            i64(in.EventSeq),
		TreasuryIssuer:      i64(in.Treasury.Issuer),
		TreasuryRoot:        i64(in.Treasury.Root),
		Version:             i64(in.Version),
		CreatedAt:           in.CreatedAt,
		UpdatedAt:           in.UpdatedAt,
	}
}

func fromLedgerModel(m *ledgerModel) (*instance.Instance, error) {
	ledgerID, err := id.ParseLedgerID(m.ID)
	if err != nil {
		return nil, err
	}
	var tiers []fee.Tier
	if len(m.FeeTiers) > 0 {
		tiers = make([]fee.Tier, len(m.FeeTiers))
		for i, t := range m.FeeTiers {
			tiers[i] = fee.Tier{Minimum: u64(t.Minimum), Rate: uint16(t.Rate)} //nolint:gosec // written from uint16
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
		IssuanceCount:   u64(m.IssuanceCount),
		EventSeq:        u64(m.EventSeq),
		Treasury: instance.Treasury{
			Issuer: u64(m.TreasuryIssuer),
			Root:   u64(m.TreasuryRoot),
		},
		Version: u64(m.Version),
	}, nil
}

// ==================== Issuance models ====================

type issuanceModel struct {
	grove.BaseModel `grove:"table:licensing_issuances"`

	ID               string     `grove:"id,pk"             bson:"_id"`
	LedgerID         string     `grove:"ledger_id"         bson:"ledger_id"`
	Idx              int64      `grove:"idx"               bson:"idx"`
	Description      string     `grove:"description"       bson:"description"`
	Code             string     `grove:"code"              bson:"code"`
	OriginalSupply   int64      `grove:"original_supply"   bson:"original_supply"`
	OriginalValue    int64      `grove:"original_value"    bson:"original_value"`
	AuditTime        time.Time  `grove:"audit_time"        bson:"audit_time"`
	AuditRemark      string     `grove:"audit_remark"      bson:"audit_remark"`
	Owner            string     `grove:"owner"             bson:"owner"`
	Revoked          bool       `grove:"revoked"           bson:"revoked"`
	RevocationReason string     `grove:"revocation_reason" bson:"revocation_reason"`
	RevokedAt        *time.Time `grove:"revoked_at"        bson:"revoked_at,omitempty"`
	CreatedAt        time.Time  `grove:"created_at"        bson:"created_at"`
	UpdatedAt        time.Time  `grove:"updated_at"        bson:"updated_at"`
}

func toIssuanceModel(i *issuance.Issuance) *issuanceModel {
	return &issuanceModel{
		ID:               docKey(i.LedgerID.String(), idxKey(i.Index)),
		LedgerID:         i.LedgerID.String(),
		Idx:              i64(i.Index),
		Description:      i.Description,
		Code:             i.Code,
		OriginalSupply:   i64(i.OriginalSupply),
		OriginalValue:    i64(i.OriginalValue),
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

func fromIssuanceModel(m *issuanceModel) (*issuance.Issuance, error) {
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
		Index:            u64(m.Idx),
		Description:      m.Description,
		Code:             m.Code,
		OriginalSupply:   u64(m.OriginalSupply),
		OriginalValue:    u64(m.OriginalValue),
		AuditTime:        m.AuditTime,
		AuditRemark:      m.AuditRemark,
		Owner:            common.HexToAddress(m.Owner),
		Revoked:          m.Revoked,
		RevocationReason: m.RevocationReason,
		RevokedAt:        m.RevokedAt,
	}, nil
}

// ==================== Balance models ====================

type balanceModel struct {
	grove.BaseModel `grove:"table:licensing_balances"`

	ID          string `grove:"id,pk"        bson:"_id"`
	LedgerID    string `grove:"ledger_id"    bson:"ledger_id"`
	Issuance    int64  `grove:"issuance"     bson:"issuance"`
	Holder      string `grove:"holder"       bson:"holder"`
	RecallRight string `grove:"recall_right" bson:"recall_right"`
	Amount      int64  `grove:"amount"       bson:"amount"`
}

func balanceKey(ledgerID id.LedgerID, index uint64, holder, recallRight types.Address) string {
	return docKey(ledgerID.String(), idxKey(index), holder.Hex(), recallRight.Hex())
}

func toBalanceModel(e balance.Entry) *balanceModel {
	return &balanceModel{
		ID:          balanceKey(e.LedgerID, e.Issuance, e.Holder, e.RecallRight),
		LedgerID:    e.LedgerID.String(),
		Issuance:    i64(e.Issuance),
		Holder:      e.Holder.Hex(),
		RecallRight: e.RecallRight.Hex(),
		Amount:      i64(e.Amount),
	}
}

func fromBalanceModel(ledgerID id.LedgerID, m *balanceModel) balance.Entry {
	return balance.Entry{
		LedgerID:    ledgerID,
		Issuance:    u64(m.Issuance),
		Holder:      common.HexToAddress(m.Holder),
		RecallRight: common.HexToAddress(m.RecallRight),
		Amount:      u64(m.Amount),
	}
}

type temporaryModel struct {
	grove.BaseModel `grove:"table:licensing_temporaries"`

	ID       string `grove:"id,pk"     bson:"_id"`
	LedgerID string `grove:"ledger_id" bson:"ledger_id"`
	Issuance int64  `grove:"issuance"  bson:"issuance"`
	Holder   string `grove:"holder"    bson:"holder"`
	Amount   int64  `grove:"amount"    bson:"amount"`
}

func temporaryKey(ledgerID id.LedgerID, index uint64, holder types.Address) string {
	return docKey(ledgerID.String(), idxKey(index), holder.Hex())
}

func toTemporaryModel(t balance.Temporary) *temporaryModel {
	return &temporaryModel{
		ID:       temporaryKey(t.LedgerID, t.Issuance, t.Holder),
		LedgerID: t.LedgerID.String(),
		Issuance: i64(t.Issuance),
		Holder:   t.Holder.Hex(),
		Amount:   i64(t.Amount),
	}
}

type witnessModel struct {
	grove.BaseModel `grove:"table:licensing_witnesses"`

	ID       string `grove:"id,pk"     bson:"_id"`
	LedgerID string `grove:"ledger_id" bson:"ledger_id"`
	Issuance int64  `grove:"issuance"  bson:"issuance"`
	Owner    string `grove:"owner"     bson:"owner"`
	Holder   string `grove:"holder"    bson:"holder"`
	Seq      int64  `grove:"seq"       bson:"seq"`
}

func toWitnessModel(w balance.Witness) *witnessModel {
	return &witnessModel{
		ID:       docKey(w.LedgerID.String(), idxKey(w.Issuance), w.Owner.Hex(), w.Holder.Hex()),
		LedgerID: w.LedgerID.String(),
		Issuance: i64(w.Issuance),
		Owner:    w.Owner.Hex(),
		Holder:   w.Holder.Hex(),
		Seq:      i64(w.Seq),
	}
}

type relevanceModel struct {
	grove.BaseModel `grove:"table:licensing_relevance"`

	ID       string `grove:"id,pk"     bson:"_id"`
	LedgerID string `grove:"ledger_id" bson:"ledger_id"`
	Holder   string `grove:"holder"    bson:"holder"`
	Issuance int64  `grove:"issuance"  bson:"issuance"`
}

func toRelevanceModel(r balance.Relevance) *relevanceModel {
	return &relevanceModel{
		ID:       docKey(r.LedgerID.String(), r.Holder.Hex(), idxKey(r.Issuance)),
		LedgerID: r.LedgerID.String(),
		Holder:   r.Holder.Hex(),
		Issuance: i64(r.Issuance),
	}
}

// ==================== Event models ====================

type eventModel struct {
	grove.BaseModel `grove:"table:licensing_events"`

	ID         string    `grove:"id,pk"       bson:"_id"`
	LedgerID   string    `grove:"ledger_id"   bson:"ledger_id"`
	Seq        int64     `grove:"seq"         bson:"seq"`
	Type       string    `grove:"type"        bson:"type"`
	Issuance   *int64    `grove:"issuance"    bson:"issuance,omitempty"`
	OccurredAt time.Time `grove:"occurred_at" bson:"occurred_at"`
	Payload    string    `grove:"payload"     bson:"payload"`
}

func toEventModel(e *event.Event) (*eventModel, error) {
	payload, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("encode event %s: %w", e.ID, err)
	}
	m := &eventModel{
		ID:         e.ID.String(),
		LedgerID:   e.LedgerID.String(),
		Seq:        i64(e.Seq),
		Type:       string(e.Type),
		OccurredAt: e.OccurredAt,
		Payload:    string(payload),
	}
	if idx, ok := e.IssuanceIndex(); ok {
		v := i64(idx)
		m.Issuance = &v
	}
	return m, nil
}

func fromEventModel(m *eventModel) (*event.Event, error) {
	e := new(event.Event)
	if err := json.Unmarshal([]byte(m.Payload), e); err != nil {
		return nil, fmt.Errorf("decode event %s: %w", m.ID, err)
	}
	return e, nil
}

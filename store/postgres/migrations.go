package postgres

import (
	"context"

	"github.com/xraph/grove/migrate"
)

// Migrations is the grove migration group for the licensing store.
var Migrations = migrate.NewGroup("licensing")

func init() {
	Migrations.MustRegister(
		&migrate.Migration{
			Name:    "create_licensing_ledgers",
			Version: "20260101000001",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS licensing_ledgers (
    id                    TEXT PRIMARY KEY,
    name                  TEXT NOT NULL DEFAULT '',
    liability_text        TEXT NOT NULL DEFAULT '',
    audit_retention_years INT NOT NULL DEFAULT 0,
    credential            TEXT NOT NULL DEFAULT '',
    issuer                TEXT NOT NULL,
    root_authority        TEXT NOT NULL,
    manager               TEXT NOT NULL DEFAULT '',
    signed                BOOLEAN NOT NULL DEFAULT FALSE,
    disabled              BOOLEAN NOT NULL DEFAULT FALSE,
    signed_at             TIMESTAMPTZ,
    disabled_at           TIMESTAMPTZ,
    issuance_fee_rate     INT NOT NULL DEFAULT 0,
    issuer_fee_share      INT NOT NULL DEFAULT 0,
    fee_tiers             JSONB NOT NULL DEFAULT '[]',
    issuance_count        BIGINT NOT NULL DEFAULT 0,
    event_seq             BIGINT NOT NULL DEFAULT 0,
    treasury_issuer       BIGINT NOT NULL DEFAULT 0,
    treasury_root         BIGINT NOT NULL DEFAULT 0,
    version               BIGINT NOT NULL DEFAULT 0,
    created_at            TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at            TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_licensing_ledgers_issuer ON licensing_ledgers (issuer);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS licensing_ledgers`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_licensing_issuances",
			Version: "20260101000002",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS licensing_issuances (
    ledger_id         TEXT NOT NULL REFERENCES licensing_ledgers (id),
    idx               BIGINT NOT NULL,
    description       TEXT NOT NULL DEFAULT '',
    code              TEXT NOT NULL DEFAULT '',
    original_supply   BIGINT NOT NULL DEFAULT 0,
    original_value    BIGINT NOT NULL DEFAULT 0,
    audit_time        TIMESTAMPTZ NOT NULL,
    audit_remark      TEXT NOT NULL DEFAULT '',
    owner             TEXT NOT NULL,
    revoked           BOOLEAN NOT NULL DEFAULT FALSE,
    revocation_reason TEXT NOT NULL DEFAULT '',
    revoked_at        TIMESTAMPTZ,
    created_at        TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at        TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    PRIMARY KEY (ledger_id, idx)
);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS licensing_issuances`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_licensing_balances",
			Version: "20260101000003",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS licensing_balances (
    ledger_id    TEXT NOT NULL,
    issuance     BIGINT NOT NULL,
    holder       TEXT NOT NULL,
    recall_right TEXT NOT NULL,
    amount       BIGINT NOT NULL DEFAULT 0,
    PRIMARY KEY (ledger_id, issuance, holder, recall_right)
);

CREATE TABLE IF NOT EXISTS licensing_temporaries (
    ledger_id TEXT NOT NULL,
    issuance  BIGINT NOT NULL,
    holder    TEXT NOT NULL,
    amount    BIGINT NOT NULL DEFAULT 0,
    PRIMARY KEY (ledger_id, issuance, holder)
);

CREATE TABLE IF NOT EXISTS licensing_witnesses (
    ledger_id TEXT NOT NULL,
    issuance  BIGINT NOT NULL,
    owner     TEXT NOT NULL,
    holder    TEXT NOT NULL,
    seq       BIGINT NOT NULL,
    PRIMARY KEY (ledger_id, issuance, owner, holder)
);

CREATE TABLE IF NOT EXISTS licensing_relevance (
    ledger_id TEXT NOT NULL,
    holder    TEXT NOT NULL,
    issuance  BIGINT NOT NULL,
    PRIMARY KEY (ledger_id, holder, issuance)
);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
DROP TABLE IF EXISTS licensing_relevance;
DROP TABLE IF EXISTS licensing_witnesses;
DROP TABLE IF EXISTS licensing_temporaries;
DROP TABLE IF EXISTS licensing_balances;
`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_licensing_events",
			Version: "20260101000004",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS licensing_events (
    id          TEXT PRIMARY KEY,
    ledger_id   TEXT NOT NULL,
    seq         BIGINT NOT NULL,
    type        TEXT NOT NULL,
    issuance    BIGINT,
    occurred_at TIMESTAMPTZ NOT NULL,
    payload     JSONB NOT NULL
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_licensing_events_seq ON licensing_events (ledger_id, seq);
CREATE INDEX IF NOT EXISTS idx_licensing_events_type ON licensing_events (ledger_id, type);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS licensing_events`)
				return err
			},
		},
	)
}

package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/sqlitedriver"
	_ "github.com/xraph/grove/drivers/sqlitedriver/sqlitemigrate" // registers the "sqlite" migration executor
	"github.com/xraph/grove/migrate"

	"github.com/xraph/licensing/balance"
	"github.com/xraph/licensing/event"
	"github.com/xraph/licensing/id"
	"github.com/xraph/licensing/instance"
	"github.com/xraph/licensing/issuance"
	"github.com/xraph/licensing/store"
	"github.com/xraph/licensing/store/internal/sqlmodel"
	"github.com/xraph/licensing/types"
)

// compile-time interface check
var _ store.Store = (*Store)(nil)

// Store implements store.Store using SQLite via Grove ORM.
type Store struct {
	db *grove.DB
	sdb *sqlitedriver.SqliteDB
}

// New creates a new SQLite store backed by Grove ORM.
func New(db *grove.DB) *Store {
	return &Store{
		db: db,
		sdb: sqlitedriver.Unwrap(db),
	}
}

// DB returns the underlying grove database for direct access.
func (s *Store) DB() *grove.DB { return s.db }

// Migrate creates the required tables and indexes using the grove orchestrator.
func (s *Store) Migrate(ctx context.Context) error {
	executor, err := migrate.NewExecutorFor(s.sdb)
	if err != nil {
		return fmt.Errorf("licensing/sqlite: create migration executor: %w", err)
	}
	orch := migrate.NewOrchestrator(executor, Migrations)
	if _, err := orch.Migrate(ctx); err != nil {
		return fmt.Errorf("licensing/sqlite: migration failed: %w", err)
	}
	return nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// ==================== Ledgers ====================

func (s *Store) GetLedger(ctx context.Context, ledgerID id.LedgerID) (*instance.Instance, error) {
	m := new(sqlmodel.LedgerModel)
	err := s.sdb.NewSelect(m).
		Where("id = ?", ledgerID.String()).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, fmt.Errorf("%w: %s", instance.ErrNotFound, ledgerID)
		}
		return nil, err
	}
	return sqlmodel.FromLedgerModel(m)
}

func (s *Store) ListLedgers(ctx context.Context, opts instance.ListOpts) ([]*instance.Instance, error) {
	var models []sqlmodel.LedgerModel
	q := s.sdb.NewSelect(&models)
	if opts.Issuer != nil {
		q = q.Where("issuer = ?", opts.Issuer.Hex())
	}
	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}
	if opts.Offset > 0 {
		q = q.Offset(opts.Offset)
	}
	q = q.OrderExpr("created_at ASC, id ASC")

	if err := q.Scan(ctx); err != nil {
		return nil, err
	}

	result := make([]*instance.Instance, len(models))
	for i := range models {
		in, err := sqlmodel.FromLedgerModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = in
	}
	return result, nil
}

// ==================== Issuances ====================

func (s *Store) GetIssuance(ctx context.Context, ledgerID id.LedgerID, index uint64) (*issuance.Issuance, error) {
	m := new(sqlmodel.IssuanceModel)
	err := s.sdb.NewSelect(m).
		Where("ledger_id = ?", ledgerID.String()).
		Where("idx = ?", sqlmodel.I64(index)).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, fmt.Errorf("%w: %s/%d", issuance.ErrNotFound, ledgerID, index)
		}
		return nil, err
	}
	return sqlmodel.FromIssuanceModel(m)
}

func (s *Store) ListIssuances(ctx context.Context, ledgerID id.LedgerID, opts issuance.ListOpts) ([]*issuance.Issuance, error) {
	var models []sqlmodel.IssuanceModel
	q := s.sdb.NewSelect(&models).Where("ledger_id = ?", ledgerID.String())
	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}
	if opts.Offset > 0 {
		q = q.Offset(opts.Offset)
	}
	q = q.OrderExpr("idx ASC")

	if err := q.Scan(ctx); err != nil {
		return nil, err
	}

	result := make([]*issuance.Issuance, len(models))
	for i := range models {
		iss, err := sqlmodel.FromIssuanceModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = iss
	}
	return result, nil
}

// ==================== Balances ====================

func (s *Store) Balance(ctx context.Context, ledgerID id.LedgerID, index uint64, holder, recallRight types.Address) (uint64, error) {
	var amount int64
	err := s.sdb.NewRaw(`
		SELECT amount FROM licensing_balances
		WHERE ledger_id = ? AND issuance = ? AND holder = ? AND recall_right = ?
	`, ledgerID.String(), sqlmodel.I64(index), holder.Hex(), recallRight.Hex()).Scan(ctx, &amount)
	if err != nil {
		if isNoRows(err) {
			return 0, nil
		}
		return 0, err
	}
	return sqlmodel.U64(amount), nil
}

func (s *Store) TemporaryBalance(ctx context.Context, ledgerID id.LedgerID, index uint64, holder types.Address) (uint64, error) {
	var amount int64
	err := s.sdb.NewRaw(`
		SELECT amount FROM licensing_temporaries
		WHERE ledger_id = ? AND issuance = ? AND holder = ?
	`, ledgerID.String(), sqlmodel.I64(index), holder.Hex()).Scan(ctx, &amount)
	if err != nil {
		if isNoRows(err) {
			return 0, nil
		}
		return 0, err
	}
	return sqlmodel.U64(amount), nil
}

func (s *Store) ListBalances(ctx context.Context, ledgerID id.LedgerID, index uint64) ([]balance.Entry, error) {
	var models []sqlmodel.BalanceModel
	err := s.sdb.NewSelect(&models).
		Where("ledger_id = ?", ledgerID.String()).
		Where("issuance = ?", sqlmodel.I64(index)).
		Where("amount <> ?", int64(0)).
		OrderExpr("holder ASC, recall_right ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}

	result := make([]balance.Entry, len(models))
	for i := range models {
		result[i] = sqlmodel.FromBalanceModel(ledgerID, &models[i])
	}
	return result, nil
}

func (s *Store) RecallWitnesses(ctx context.Context, ledgerID id.LedgerID, index uint64, owner types.Address) ([]types.Address, error) {
	var models []sqlmodel.WitnessModel
	err := s.sdb.NewSelect(&models).
		Where("ledger_id = ?", ledgerID.String()).
		Where("issuance = ?", sqlmodel.I64(index)).
		Where("owner = ?", owner.Hex()).
		OrderExpr("seq ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}

	result := make([]types.Address, len(models))
	for i := range models {
		result[i] = sqlmodel.FromWitnessModel(&models[i])
	}
	return result, nil
}

func (s *Store) HolderIssuances(ctx context.Context, ledgerID id.LedgerID, holder types.Address) ([]uint64, error) {
	var models []sqlmodel.RelevanceModel
	err := s.sdb.NewSelect(&models).
		Where("ledger_id = ?", ledgerID.String()).
		Where("holder = ?", holder.Hex()).
		OrderExpr("issuance ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}

	result := make([]uint64, len(models))
	for i := range models {
		result[i] = sqlmodel.U64(models[i].Issuance)
	}
	return result, nil
}

// ==================== Events ====================

func (s *Store) ListEvents(ctx context.Context, ledgerID id.LedgerID, opts event.ListOpts) ([]*event.Event, error) {
	var models []sqlmodel.EventModel
	q := s.sdb.NewSelect(&models).
		Where("ledger_id = ?", ledgerID.String()).
		Where("seq > ?", sqlmodel.I64(opts.AfterSeq))

	if opts.Type != "" {
		q = q.Where("type = ?", string(opts.Type))
	}
	if opts.Issuance != nil {
		q = q.Where("issuance = ?", sqlmodel.I64(*opts.Issuance))
	}
	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}
	q = q.OrderExpr("seq ASC")

	if err := q.Scan(ctx); err != nil {
		return nil, err
	}

	result := make([]*event.Event, len(models))
	for i := range models {
		e, err := sqlmodel.FromEventModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = e
	}
	return result, nil
}

// ==================== Commit ====================

// Commit writes the batch inside one transaction. SQLite serialises
// writers; the ledger row update is still guarded by its version.
func (s *Store) Commit(ctx context.Context, b *store.Batch) error {
	if err := b.Validate(); err != nil {
		return err
	}

	tx, err := s.sdb.BeginTxQuery(ctx, nil)
	if err != nil {
		return fmt.Errorf("licensing/sqlite: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }() //nolint:errcheck // no-op after commit

	if err := writeLedger(ctx, tx, b); err != nil {
		return classify(err)
	}
	if err := writeIssuance(ctx, tx, b); err != nil {
		return classify(err)
	}
	if err := writeChanges(ctx, tx, b.Changes); err != nil {
		return classify(err)
	}
	if err := writeEvents(ctx, tx, b.Events); err != nil {
		return classify(err)
	}
	if err := b.RunBeforeCommit(ctx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return classify(fmt.Errorf("licensing/sqlite: commit: %w", err))
	}
	return nil
}

func writeLedger(ctx context.Context, tx *sqlitedriver.SqliteTx, b *store.Batch) error {
	m, err := sqlmodel.ToLedgerModel(b.Ledger)
	if err != nil {
		return err
	}

	if b.Create {
		var n int64
		err := tx.NewRaw(`SELECT COUNT(*) FROM licensing_ledgers WHERE id = ?`, m.ID).Scan(ctx, &n)
		if err != nil {
			return err
		}
		if n > 0 {
			return fmt.Errorf("%w: ledger %s", store.ErrAlreadyExists, m.ID)
		}
		_, err = tx.NewInsert(m).Exec(ctx)
		return err
	}

	res, err := tx.NewUpdate(m).
		Where("id = ?", m.ID).
		Where("version = ?", sqlmodel.I64(b.ExpectedVersion)).
		Exec(ctx)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return fmt.Errorf("%w: ledger %s moved past version %d", store.ErrConflict, m.ID, b.ExpectedVersion)
	}
	return nil
}

func writeIssuance(ctx context.Context, tx *sqlitedriver.SqliteTx, b *store.Batch) error {
	if b.Issuance == nil {
		return nil
	}
	m := sqlmodel.ToIssuanceModel(b.Issuance)

	if b.NewIssuance {
		_, err := tx.NewInsert(m).Exec(ctx)
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: issuance %s/%d exists", store.ErrConflict, m.LedgerID, m.Idx)
		}
		return err
	}

	res, err := tx.NewUpdate(m).
		Where("ledger_id = ?", m.LedgerID).
		Where("idx = ?", m.Idx).
		Exec(ctx)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s/%d", issuance.ErrNotFound, m.LedgerID, m.Idx)
	}
	return nil
}

func writeChanges(ctx context.Context, tx *sqlitedriver.SqliteTx, c balance.Changes) error {
	for _, e := range c.Balances {
		_, err := tx.NewInsert(sqlmodel.ToBalanceModel(e)).
			OnConflict("(ledger_id, issuance, holder, recall_right) DO UPDATE SET amount = EXCLUDED.amount").
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("licensing/sqlite: write balance: %w", err)
		}
	}
	for _, t := range c.Temporaries {
		_, err := tx.NewInsert(sqlmodel.ToTemporaryModel(t)).
			OnConflict("(ledger_id, issuance, holder) DO UPDATE SET amount = EXCLUDED.amount").
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("licensing/sqlite: write temporary balance: %w", err)
		}
	}
	for _, w := range c.Witnesses {
		_, err := tx.NewInsert(sqlmodel.ToWitnessModel(w)).
			OnConflict("(ledger_id, issuance, owner, holder) DO NOTHING").
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("licensing/sqlite: write witness: %w", err)
		}
	}
	for _, r := range c.Relevance {
		_, err := tx.NewInsert(sqlmodel.ToRelevanceModel(r)).
			OnConflict("(ledger_id, holder, issuance) DO NOTHING").
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("licensing/sqlite: write relevance: %w", err)
		}
	}
	return nil
}

func writeEvents(ctx context.Context, tx *sqlitedriver.SqliteTx, events []*event.Event) error {
	for _, e := range events {
		m, err := sqlmodel.ToEventModel(e)
		if err != nil {
			return err
		}
		if _, err := tx.NewInsert(m).Exec(ctx); err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("%w: event seq %d taken", store.ErrConflict, e.Seq)
			}
			return fmt.Errorf("licensing/sqlite: write event: %w", err)
		}
	}
	return nil
}

// ==================== Helpers ====================

func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// classify reports a busy database as store.ErrConflict so the caller can
// retry.
func classify(err error) error {
	if err == nil || errors.Is(err, store.ErrConflict) {
		return err
	}
	msg := err.Error()
	if strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked") {
		return fmt.Errorf("%w: %w", store.ErrConflict, err)
	}
	return err
}

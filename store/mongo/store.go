package mongo

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/ethereum/go-ethereum/common"
	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/mongodriver"

	"github.com/xraph/licensing/balance"
	"github.com/xraph/licensing/event"
	"github.com/xraph/licensing/id"
	"github.com/xraph/licensing/instance"
	"github.com/xraph/licensing/issuance"
	"github.com/xraph/licensing/store"
	"github.com/xraph/licensing/types"
)

// Collection name constants.
const (
	colLedgers     = "licensing_ledgers"
	colIssuances   = "licensing_issuances"
	colBalances    = "licensing_balances"
	colTemporaries = "licensing_temporaries"
	colWitnesses   = "licensing_witnesses"
	colRelevance   = "licensing_relevance"
	colEvents      = "licensing_events"
)

// compile-time interface check
var _ store.Store = (*Store)(nil)

// Store implements store.Store using MongoDB via Grove ORM.
//
// Commit needs multi-document transactions, so the server must run as a
// replica set or sharded cluster.
type Store struct {
	db  *grove.DB
	mdb *mongodriver.MongoDB
}

// New creates a new MongoDB store backed by Grove ORM.
func New(db *grove.DB) *Store {
	return &Store{
		db:  db,
		mdb: mongodriver.Unwrap(db),
	}
}

// DB returns the underlying grove database for direct access.
func (s *Store) DB() *grove.DB { return s.db }

// Migrate creates indexes for all licensing collections.
func (s *Store) Migrate(ctx context.Context) error {
	indexes := migrationIndexes()

	for col, models := range indexes {
		if len(models) == 0 {
			continue
		}
		_, err := s.mdb.Collection(col).Indexes().CreateMany(ctx, models)
		if err != nil {
			return fmt.Errorf("licensing/mongo: migrate %s indexes: %w", col, err)
		}
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
	var m ledgerModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": ledgerID.String()}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, fmt.Errorf("%w: %s", instance.ErrNotFound, ledgerID)
		}
		return nil, fmt.Errorf("licensing/mongo: get ledger: %w", err)
	}
	return fromLedgerModel(&m)
}

func (s *Store) ListLedgers(ctx context.Context, opts instance.ListOpts) ([]*instance.Instance, error) {
	var models []ledgerModel

	filter := bson.M{}
	if opts.Issuer != nil {
		filter["issuer"] = opts.Issuer.Hex()
	}

	q := s.mdb.NewFind(&models).
		Filter(filter).
		Sort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}})
	if opts.Limit > 0 {
		q = q.Limit(int64(opts.Limit))
	}
	if opts.Offset > 0 {
		q = q.Skip(int64(opts.Offset))
	}

	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("licensing/mongo: list ledgers: %w", err)
	}

	result := make([]*instance.Instance, len(models))
	for i := range models {
		in, err := fromLedgerModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = in
	}
	return result, nil
}

// ==================== Issuances ====================

func (s *Store) GetIssuance(ctx context.Context, ledgerID id.LedgerID, index uint64) (*issuance.Issuance, error) {
	var m issuanceModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"ledger_id": ledgerID.String(), "idx": i64(index)}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, fmt.Errorf("%w: %s/%d", issuance.ErrNotFound, ledgerID, index)
		}
		return nil, fmt.Errorf("licensing/mongo: get issuance: %w", err)
	}
	return fromIssuanceModel(&m)
}

func (s *Store) ListIssuances(ctx context.Context, ledgerID id.LedgerID, opts issuance.ListOpts) ([]*issuance.Issuance, error) {
	var models []issuanceModel

	q := s.mdb.NewFind(&models).
		Filter(bson.M{"ledger_id": ledgerID.String()}).
		Sort(bson.D{{Key: "idx", Value: 1}})
	if opts.Limit > 0 {
		q = q.Limit(int64(opts.Limit))
	}
	if opts.Offset > 0 {
		q = q.Skip(int64(opts.Offset))
	}

	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("licensing/mongo: list issuances: %w", err)
	}

	result := make([]*issuance.Issuance, len(models))
	for i := range models {
		iss, err := fromIssuanceModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = iss
	}
	return result, nil
}

// ==================== Balances ====================

func (s *Store) Balance(ctx context.Context, ledgerID id.LedgerID, index uint64, holder, recallRight types.Address) (uint64, error) {
	var m balanceModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": balanceKey(ledgerID, index, holder, recallRight)}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("licensing/mongo: get balance: %w", err)
	}
	return u64(m.Amount), nil
}

func (s *Store) TemporaryBalance(ctx context.Context, ledgerID id.LedgerID, index uint64, holder types.Address) (uint64, error) {
	var m temporaryModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": temporaryKey(ledgerID, index, holder)}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("licensing/mongo: get temporary balance: %w", err)
	}
	return u64(m.Amount), nil
}

func (s *Store) ListBalances(ctx context.Context, ledgerID id.LedgerID, index uint64) ([]balance.Entry, error) {
	var models []balanceModel
	err := s.mdb.NewFind(&models).
		Filter(bson.M{
			"ledger_id": ledgerID.String(),
			"issuance":  i64(index),
			"amount":    bson.M{"$ne": int64(0)},
		}).
		Sort(bson.D{{Key: "holder", Value: 1}, {Key: "recall_right", Value: 1}}).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("licensing/mongo: list balances: %w", err)
	}

	result := make([]balance.Entry, len(models))
	for i := range models {
		result[i] = fromBalanceModel(ledgerID, &models[i])
	}
	return result, nil
}

func (s *Store) RecallWitnesses(ctx context.Context, ledgerID id.LedgerID, index uint64, owner types.Address) ([]types.Address, error) {
	var models []witnessModel
	err := s.mdb.NewFind(&models).
		Filter(bson.M{"ledger_id": ledgerID.String(), "issuance": i64(index), "owner": owner.Hex()}).
		Sort(bson.D{{Key: "seq", Value: 1}}).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("licensing/mongo: list witnesses: %w", err)
	}

	result := make([]types.Address, len(models))
	for i := range models {
		result[i] = common.HexToAddress(models[i].Holder)
	}
	return result, nil
}

func (s *Store) HolderIssuances(ctx context.Context, ledgerID id.LedgerID, holder types.Address) ([]uint64, error) {
	var models []relevanceModel
	err := s.mdb.NewFind(&models).
		Filter(bson.M{"ledger_id": ledgerID.String(), "holder": holder.Hex()}).
		Sort(bson.D{{Key: "issuance", Value: 1}}).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("licensing/mongo: list holder issuances: %w", err)
	}

	result := make([]uint64, len(models))
	for i := range models {
		result[i] = u64(models[i].Issuance)
	}
	return result, nil
}

// ==================== Events ====================

func (s *Store) ListEvents(ctx context.Context, ledgerID id.LedgerID, opts event.ListOpts) ([]*event.Event, error) {
	var models []eventModel

	filter := bson.M{
		"ledger_id": ledgerID.String(),
		"seq":       bson.M{"$gt": i64(opts.AfterSeq)},
	}
	if opts.Type != "" {
		filter["type"] = string(opts.Type)
	}
	if opts.Issuance != nil {
		filter["issuance"] = i64(*opts.Issuance)
	}

	q := s.mdb.NewFind(&models).
		Filter(filter).
		Sort(bson.D{{Key: "seq", Value: 1}})
	if opts.Limit > 0 {
		q = q.Limit(int64(opts.Limit))
	}

	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("licensing/mongo: list events: %w", err)
	}

	result := make([]*event.Event, len(models))
	for i := range models {
		e, err := fromEventModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = e
	}
	return result, nil
}

// ==================== Commit ====================

// Commit writes the batch inside one multi-document transaction. The ledger
// document update is guarded by its version.
func (s *Store) Commit(ctx context.Context, b *store.Batch) error {
	if err := b.Validate(); err != nil {
		return err
	}

	session, err := s.mdb.Client().StartSession()
	if err != nil {
		return fmt.Errorf("licensing/mongo: start session: %w", err)
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(txCtx context.Context) (any, error) {
		if err := s.writeLedger(txCtx, b); err != nil {
			return nil, err
		}
		if err := s.writeIssuance(txCtx, b); err != nil {
			return nil, err
		}
		if err := s.writeChanges(txCtx, b.Changes); err != nil {
			return nil, err
		}
		if err := s.writeEvents(txCtx, b.Events); err != nil {
			return nil, err
		}
		return nil, b.RunBeforeCommit(txCtx)
	})
	return classify(err)
}

func (s *Store) writeLedger(ctx context.Context, b *store.Batch) error {
	m := toLedgerModel(b.Ledger)

	if b.Create {
		_, err := s.mdb.NewInsert(m).Exec(ctx)
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("%w: ledger %s", store.ErrAlreadyExists, m.ID)
		}
		return err
	}

	res, err := s.mdb.NewUpdate(m).
		Filter(bson.M{"_id": m.ID, "version": i64(b.ExpectedVersion)}).
		Exec(ctx)
	if err != nil {
		return err
	}
	if res.MatchedCount() == 0 {
		return fmt.Errorf("%w: ledger %s moved past version %d", store.ErrConflict, m.ID, b.ExpectedVersion)
	}
	return nil
}

func (s *Store) writeIssuance(ctx context.Context, b *store.Batch) error {
	if b.Issuance == nil {
		return nil
	}
	m := toIssuanceModel(b.Issuance)

	if b.NewIssuance {
		_, err := s.mdb.NewInsert(m).Exec(ctx)
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("%w: issuance %s exists", store.ErrConflict, m.ID)
		}
		return err
	}

	res, err := s.mdb.NewUpdate(m).
		Filter(bson.M{"_id": m.ID}).
		Exec(ctx)
	if err != nil {
		return err
	}
	if res.MatchedCount() == 0 {
		return fmt.Errorf("%w: %s", issuance.ErrNotFound, m.ID)
	}
	return nil
}

func (s *Store) writeChanges(ctx context.Context, c balance.Changes) error {
	for _, e := range c.Balances {
		m := toBalanceModel(e)
		_, err := s.mdb.NewUpdate((*balanceModel)(nil)).
			Filter(bson.M{"_id": m.ID}).
			SetUpdate(bson.M{"$set": bson.M{
				"ledger_id":    m.LedgerID,
				"issuance":     m.Issuance,
				"holder":       m.Holder,
				"recall_right": m.RecallRight,
				"amount":       m.Amount,
			}}).
			Upsert().
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("licensing/mongo: write balance: %w", err)
		}
	}
	for _, t := range c.Temporaries {
		m := toTemporaryModel(t)
		_, err := s.mdb.NewUpdate((*temporaryModel)(nil)).
			Filter(bson.M{"_id": m.ID}).
			SetUpdate(bson.M{"$set": bson.M{
				"ledger_id": m.LedgerID,
				"issuance":  m.Issuance,
				"holder":    m.Holder,
				"amount":    m.Amount,
			}}).
			Upsert().
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("licensing/mongo: write temporary balance: %w", err)
		}
	}
	// Witness and relevance records are sets: the first write wins.
	for _, w := range c.Witnesses {
		m := toWitnessModel(w)
		_, err := s.mdb.NewUpdate((*witnessModel)(nil)).
			Filter(bson.M{"_id": m.ID}).
			SetUpdate(bson.M{"$setOnInsert": bson.M{
				"ledger_id": m.LedgerID,
				"issuance":  m.Issuance,
				"owner":     m.Owner,
				"holder":    m.Holder,
				"seq":       m.Seq,
			}}).
			Upsert().
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("licensing/mongo: write witness: %w", err)
		}
	}
	for _, r := range c.Relevance {
		m := toRelevanceModel(r)
		_, err := s.mdb.NewUpdate((*relevanceModel)(nil)).
			Filter(bson.M{"_id": m.ID}).
			SetUpdate(bson.M{"$setOnInsert": bson.M{
				"ledger_id": m.LedgerID,
				"holder":    m.Holder,
				"issuance":  m.Issuance,
			}}).
			Upsert().
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("licensing/mongo: write relevance: %w", err)
		}
	}
	return nil
}

func (s *Store) writeEvents(ctx context.Context, events []*event.Event) error {
	for _, e := range events {
		m, err := toEventModel(e)
		if err != nil {
			return err
		}
		if _, err := s.mdb.NewInsert(m).Exec(ctx); err != nil {
			if mongo.IsDuplicateKeyError(err) {
				return fmt.Errorf("%w: event seq %d taken", store.ErrConflict, e.Seq)
			}
			return fmt.Errorf("licensing/mongo: write event: %w", err)
		}
	}
	return nil
}

// ==================== Helpers ====================

// isNoDocuments checks if an error wraps mongo.ErrNoDocuments.
func isNoDocuments(err error) bool {
	return errors.Is(err, mongo.ErrNoDocuments)
}

// classify reports transaction write conflicts that outlived the driver's
// retries as store.ErrConflict.
func classify(err error) error {
	if err == nil || errors.Is(err, store.ErrConflict) {
		return err
	}
	var se mongo.ServerError
	if errors.As(err, &se) && se.HasErrorLabel("TransientTransactionError") {
		return fmt.Errorf("%w: %w", store.ErrConflict, err)
	}
	return err
}

// migrationIndexes returns the index definitions for all licensing collections.
func migrationIndexes() map[string][]mongo.IndexModel {
	return map[string][]mongo.IndexModel{
		colLedgers: {
			{Keys: bson.D{{Key: "issuer", Value: 1}, {Key: "created_at", Value: 1}}},
			{Keys: bson.D{{Key: "created_at", Value: 1}}},
		},
		colIssuances: {
			{
				Keys:    bson.D{{Key: "ledger_id", Value: 1}, {Key: "idx", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
		},
		colBalances: {
			{Keys: bson.D{{Key: "ledger_id", Value: 1}, {Key: "issuance", Value: 1}, {Key: "holder", Value: 1}}},
		},
		colTemporaries: {
			{Keys: bson.D{{Key: "ledger_id", Value: 1}, {Key: "issuance", Value: 1}}},
		},
		colWitnesses: {
			{Keys: bson.D{{Key: "ledger_id", Value: 1}, {Key: "issuance", Value: 1}, {Key: "owner", Value: 1}, {Key: "seq", Value: 1}}},
		},
		colRelevance: {
			{Keys: bson.D{{Key: "ledger_id", Value: 1}, {Key: "holder", Value: 1}, {Key: "issuance", Value: 1}}},
		},
		colEvents: {
			{
				Keys:    bson.D{{Key: "ledger_id", Value: 1}, {Key: "seq", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
			{Keys: bson.D{{Key: "ledger_id", Value: 1}, {Key: "type", Value: 1}, {Key: "seq", Value: 1}}},
			{Keys: bson.D{{Key: "ledger_id", Value: 1}, {Key: "issuance", Value: 1}, {Key: "seq", Value: 1}}},
		},
	}
}

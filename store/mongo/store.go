package mongo

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/mongodriver"

	"github.com/xraph/accounting"
	"github.com/xraph/accounting/id"
	"github.com/xraph/accounting/journal"
	"github.com/xraph/accounting/reference"
	accountingstore "github.com/xraph/accounting/store"
	"github.com/xraph/accounting/transaction"
	"github.com/xraph/accounting/types"
)

// Collection name constants.
const (
	colJournals     = "accounting_journals"
	colTransactions = "accounting_transactions"
)

// errAppendRejected aborts an append whose guarded update matched nothing.
var errAppendRejected = errors.New("append rejected")

// compile-time interface check
var _ accountingstore.Store = (*Store)(nil)

// Store implements store.Store using MongoDB via Grove ORM. Appends run in
// a multi-document transaction, so the server must be a replica set or a
// sharded cluster.
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

// Migrate creates indexes for the accounting collections.
func (s *Store) Migrate(ctx context.Context) error {
	for col, models := range migrationIndexes() {
		if len(models) == 0 {
			continue
		}
		if _, err := s.mdb.Collection(col).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("accounting/mongo: migrate %s indexes: %w", col, err)
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

// ==================== Journal Store ====================

func (s *Store) CreateJournal(ctx context.Context, j *journal.Journal) error {
	if _, err := s.mdb.NewInsert(toJournalModel(j)).Exec(ctx); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return accounting.ErrJournalAlreadyExists
		}
		return fmt.Errorf("accounting/mongo: create journal: %w", err)
	}
	return nil
}

func (s *Store) GetJournal(ctx context.Context, journalID id.JournalID) (*journal.Journal, error) {
	return s.findJournal(ctx, bson.M{"_id": journalID.String()})
}

func (s *Store) GetJournalByOwner(ctx context.Context, ownerType, ownerID string) (*journal.Journal, error) {
	return s.findJournal(ctx, bson.M{"owner_type": ownerType, "owner_id": ownerID})
}

func (s *Store) findJournal(ctx context.Context, filter bson.M) (*journal.Journal, error) {
	var m journalModel
	if err := s.mdb.NewFind(&m).Filter(filter).Scan(ctx); err != nil {
		if isNoDocuments(err) {
			return nil, accounting.ErrJournalNotFound
		}
		return nil, fmt.Errorf("accounting/mongo: get journal: %w", err)
	}
	return fromJournalModel(&m)
}

func (s *Store) ListJournals(ctx context.Context, opts journal.ListOpts) ([]*journal.Journal, error) {
	var models []journalModel
	q := s.mdb.NewFind(&models).
		Filter(bson.M{}).
		Sort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}})
	q = paginate(q, opts.Limit, opts.Offset)

	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("accounting/mongo: list journals: %w", err)
	}

	result := make([]*journal.Journal, len(models))
	for i := range models {
		j, err := fromJournalModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = j
	}
	return result, nil
}

func (s *Store) SetBalance(ctx context.Context, journalID id.JournalID, balance types.Money, atSequence int64) (*journal.Journal, error) {
	res, err := s.mdb.NewUpdate((*journalModel)(nil)).
		Filter(bson.M{
			"_id":      journalID.String(),
			"currency": balance.Currency,
			"sequence": atSequence,
		}).
		Set("balance", balance.Amount).
		Set("updated_at", now()).
		Exec(ctx)
	if err != nil {
		return nil, fmt.Errorf("accounting/mongo: set balance: %w", err)
	}

	current, err := s.GetJournal(ctx, journalID)
	if err != nil {
		return nil, err
	}
	if res.MatchedCount() == 0 {
		if current.Currency != balance.Currency {
			return nil, &types.MismatchError{Want: current.Currency, Got: balance.Currency}
		}
		return nil, fmt.Errorf("%w: sequence %d, expected %d", accounting.ErrConcurrentUpdate, current.Sequence, atSequence)
	}
	return current, nil
}

// ==================== Transaction Store ====================

// AppendTransaction increments the journal's balance and sequence with
// FindOneAndUpdate and inserts the transaction inside one session
// transaction. Write conflicts between concurrent appends are transient
// and retried by WithTransaction.
func (s *Store) AppendTransaction(ctx context.Context, t *transaction.Transaction) (*journal.Journal, error) {
	sess, err := s.mdb.Client().StartSession()
	if err != nil {
		return nil, fmt.Errorf("accounting/mongo: start session: %w", err)
	}
	defer sess.EndSession(ctx)

	lo, hi := balanceBounds(t.Amount.Amount)
	filter := bson.M{
		"_id":      t.JournalID.String(),
		"currency": t.Amount.Currency,
		"balance":  bson.M{"$gte": lo, "$lte": hi},
	}
	update := bson.M{
		"$inc": bson.M{"balance": t.Amount.Amount, "sequence": int64(1)},
		"$set": bson.M{"updated_at": t.CreatedAt},
	}
	after := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var updated journalModel
	_, err = sess.WithTransaction(ctx, func(ctx context.Context) (any, error) {
		err := s.mdb.Collection(colJournals).FindOneAndUpdate(ctx, filter, update, after).Decode(&updated)
		if err != nil {
			if isNoDocuments(err) {
				return nil, errAppendRejected
			}
			return nil, err
		}

		t.Sequence = updated.Sequence
		doc, err := s.mdb.NewInsert(toTransactionModel(t)).BuildDoc()
		if err != nil {
			return nil, err
		}
		_, err = s.mdb.Collection(colTransactions).InsertOne(ctx, doc)
		return nil, err
	})
	if err != nil {
		t.Sequence = 0
		if errors.Is(err, errAppendRejected) {
			return nil, s.appendRejected(ctx, t)
		}
		return nil, fmt.Errorf("accounting/mongo: append transaction: %w", err)
	}
	return fromJournalModel(&updated)
}

// appendRejected explains why the guarded update matched no document.
func (s *Store) appendRejected(ctx context.Context, t *transaction.Transaction) error {
	j, err := s.GetJournal(ctx, t.JournalID)
	if err != nil {
		return err
	}
	if _, err := j.Balance.Add(t.Amount); err != nil {
		return err
	}
	return accounting.ErrConcurrentUpdate
}

func (s *Store) GetTransaction(ctx context.Context, txID id.TransactionID) (*transaction.Transaction, error) {
	var m transactionModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": txID.String()}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, accounting.ErrTransactionNotFound
		}
		return nil, fmt.Errorf("accounting/mongo: get transaction: %w", err)
	}
	return fromTransactionModel(&m)
}

func (s *Store) ListTransactions(ctx context.Context, journalID id.JournalID, opts transaction.ListOpts) ([]*transaction.Transaction, error) {
	if _, err := s.GetJournal(ctx, journalID); err != nil {
		return nil, err
	}

	filter := bson.M{"journal_id": journalID.String()}
	postedUntil(filter, opts)
	return s.findTransactions(ctx, filter, bson.D{{Key: "sequence", Value: 1}}, opts)
}

func (s *Store) ListTransactionsByReference(ctx context.Context, ref reference.Reference, opts transaction.ListOpts) ([]*transaction.Transaction, error) {
	filter := bson.M{"ref_type": ref.Type, "ref_id": ref.ID}
	postedUntil(filter, opts)
	return s.findTransactions(ctx, filter, bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}}, opts)
}

func (s *Store) findTransactions(ctx context.Context, filter bson.M, sort bson.D, opts transaction.ListOpts) ([]*transaction.Transaction, error) {
	var models []transactionModel
	q := s.mdb.NewFind(&models).Filter(filter).Sort(sort)
	q = paginate(q, opts.Limit, opts.Offset)

	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("accounting/mongo: list transactions: %w", err)
	}
	return fromTransactionModels(models)
}

// ==================== Helpers ====================

func postedUntil(filter bson.M, opts transaction.ListOpts) {
	if !opts.PostedUntil.IsZero() {
		filter["posted_at"] = bson.M{"$lte": opts.PostedUntil.UTC()}
	}
}

func paginate(q *mongodriver.FindQuery, limit, offset int) *mongodriver.FindQuery {
	if limit > 0 {
		q = q.Limit(int64(limit))
	}
	if offset > 0 {
		q = q.Skip(int64(offset))
	}
	return q
}

// balanceBounds returns the range a balance must lie in for adding amount
// to stay within int64.
func balanceBounds(amount int64) (lo, hi int64) {
	lo, hi = math.MinInt64, math.MaxInt64
	if amount > 0 {
		hi -= amount
	} else {
		lo -= amount
	}
	return lo, hi
}

// now returns the current UTC time.
func now() time.Time {
	return time.Now().UTC()
}

// isNoDocuments checks if an error wraps mongo.ErrNoDocuments.
func isNoDocuments(err error) bool {
	return errors.Is(err, mongo.ErrNoDocuments)
}

// migrationIndexes returns the index definitions for the accounting collections.
func migrationIndexes() map[string][]mongo.IndexModel {
	return map[string][]mongo.IndexModel{
		colJournals: {
			{
				Keys:    bson.D{{Key: "owner_type", Value: 1}, {Key: "owner_id", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
			{Keys: bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}}},
		},
		colTransactions: {
			{
				Keys:    bson.D{{Key: "journal_id", Value: 1}, {Key: "sequence", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
			{Keys: bson.D{{Key: "journal_id", Value: 1}, {Key: "posted_at", Value: 1}}},
			{Keys: bson.D{{Key: "ref_type", Value: 1}, {Key: "ref_id", Value: 1}, {Key: "created_at", Value: 1}}},
		},
	}
}

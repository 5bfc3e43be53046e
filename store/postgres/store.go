package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/pgdriver"
	_ "github.com/xraph/grove/drivers/pgdriver/pgmigrate" // registers the pg migration executor
	"github.com/xraph/grove/migrate"

	"github.com/xraph/accounting"
	"github.com/xraph/accounting/id"
	"github.com/xraph/accounting/journal"
	"github.com/xraph/accounting/reference"
	accountingstore "github.com/xraph/accounting/store"
	"github.com/xraph/accounting/transaction"
	"github.com/xraph/accounting/types"
)

// compile-time interface check
var _ accountingstore.Store = (*Store)(nil)

// Store implements store.Store using PostgreSQL via Grove ORM.
type Store struct {
	db *grove.DB
	pg *pgdriver.PgDB
}

// New creates a new PostgreSQL store backed by Grove ORM.
func New(db *grove.DB) *Store {
	return &Store{
		db: db,
		pg: pgdriver.Unwrap(db),
	}
}

// DB returns the underlying grove database for direct access.
func (s *Store) DB() *grove.DB { return s.db }

// Migrate creates the required tables and indexes using the grove orchestrator.
func (s *Store) Migrate(ctx context.Context) error {
	executor, err := migrate.NewExecutorFor(s.pg)
	if err != nil {
		return fmt.Errorf("accounting/postgres: create migration executor: %w", err)
	}
	orch := migrate.NewOrchestrator(executor, Migrations)
	if _, err := orch.Migrate(ctx); err != nil {
		return fmt.Errorf("accounting/postgres: migration failed: %w", err)
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
	res, err := s.pg.NewInsert(toJournalModel(j)).
		OnConflict("DO NOTHING").
		Exec(ctx)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return accounting.ErrJournalAlreadyExists
	}
	return nil
}

func (s *Store) GetJournal(ctx context.Context, journalID id.JournalID) (*journal.Journal, error) {
	m := new(journalModel)
	err := s.pg.NewSelect(m).
		Where("id = $1", journalID.String()).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, accounting.ErrJournalNotFound
		}
		return nil, err
	}
	return fromJournalModel(m)
}

func (s *Store) GetJournalByOwner(ctx context.Context, ownerType, ownerID string) (*journal.Journal, error) {
	m := new(journalModel)
	err := s.pg.NewSelect(m).
		Where("owner_type = $1", ownerType).
		Where("owner_id = $2", ownerID).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, accounting.ErrJournalNotFound
		}
		return nil, err
	}
	return fromJournalModel(m)
}

func (s *Store) ListJournals(ctx context.Context, opts journal.ListOpts) ([]*journal.Journal, error) {
	var models []journalModel
	q := s.pg.NewSelect(&models).OrderExpr("created_at ASC, id ASC")
	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}
	if opts.Offset > 0 {
		q = q.Offset(opts.Offset)
	}

	if err := q.Scan(ctx); err != nil {
		return nil, err
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
	res, err := s.pg.NewRaw(`
UPDATE accounting_journals
SET balance = $1, updated_at = $2
WHERE id = $3 AND currency = $4 AND sequence = $5`,
		balance.Amount, now(), journalID.String(), balance.Currency, atSequence,
	).Exec(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}

	current, err := s.GetJournal(ctx, journalID)
	if err != nil {
		return nil, err
	}
	if rows == 0 {
		if current.Currency != balance.Currency {
			return nil, &types.MismatchError{Want: current.Currency, Got: balance.Currency}
		}
		return nil, fmt.Errorf("%w: sequence %d, expected %d", accounting.ErrConcurrentUpdate, current.Sequence, atSequence)
	}
	return current, nil
}

// ==================== Transaction Store ====================

// AppendTransaction bumps the journal's balance and sequence with a single
// guarded UPDATE, then inserts the transaction in the same database
// transaction. The row lock taken by the UPDATE serializes appends to one
// journal.
func (s *Store) AppendTransaction(ctx context.Context, t *transaction.Transaction) (*journal.Journal, error) {
	tx, err := s.pg.BeginTxQuery(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	lo, hi := balanceBounds(t.Amount.Amount)
	var balance, sequence int64
	err = tx.NewRaw(`
UPDATE accounting_journals
SET balance = balance + $1, sequence = sequence + 1, updated_at = $2
WHERE id = $3 AND currency = $4 AND balance BETWEEN $5 AND $6
RETURNING balance, sequence`,
		t.Amount.Amount, t.CreatedAt, t.JournalID.String(), t.Amount.Currency, lo, hi,
	).Scan(ctx, &balance, &sequence)
	if err != nil {
		if isNoRows(err) {
			return nil, s.appendRejected(ctx, t)
		}
		return nil, err
	}

	t.Sequence = sequence
	if _, err := tx.NewInsert(toTransactionModel(t)).Exec(ctx); err != nil {
		t.Sequence = 0
		return nil, err
	}

	m := new(journalModel)
	if err := tx.NewSelect(m).Where("id = $1", t.JournalID.String()).Scan(ctx); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		t.Sequence = 0
		return nil, err
	}
	return fromJournalModel(m)
}

// appendRejected explains why the guarded UPDATE matched no row.
func (s *Store) appendRejected(ctx context.Context, t *transaction.Transaction) error {
	j, err := s.GetJournal(ctx, t.JournalID)
	if err != nil {
		return err
	}
	_, err = j.Balance.Add(t.Amount)
	if err == nil {
		// Neither currency nor overflow: the journal changed between the
		// UPDATE and this read. Surface it as a conflict.
		return accounting.ErrConcurrentUpdate
	}
	return err
}

func (s *Store) GetTransaction(ctx context.Context, txID id.TransactionID) (*transaction.Transaction, error) {
	m := new(transactionModel)
	err := s.pg.NewSelect(m).
		Where("id = $1", txID.String()).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, accounting.ErrTransactionNotFound
		}
		return nil, err
	}
	return fromTransactionModel(m)
}

func (s *Store) ListTransactions(ctx context.Context, journalID id.JournalID, opts transaction.ListOpts) ([]*transaction.Transaction, error) {
	if _, err := s.GetJournal(ctx, journalID); err != nil {
		return nil, err
	}

	var models []transactionModel
	q := s.pg.NewSelect(&models).Where("journal_id = $1", journalID.String())
	if !opts.PostedUntil.IsZero() {
		q = q.Where("posted_at <= $2", opts.PostedUntil.UTC())
	}
	q = q.OrderExpr("sequence ASC")
	q = paginate(q, opts.Limit, opts.Offset)

	if err := q.Scan(ctx); err != nil {
		return nil, err
	}
	return fromTransactionModels(models)
}

func (s *Store) ListTransactionsByReference(ctx context.Context, ref reference.Reference, opts transaction.ListOpts) ([]*transaction.Transaction, error) {
	var models []transactionModel
	q := s.pg.NewSelect(&models).
		Where("ref_type = $1", ref.Type).
		Where("ref_id = $2", ref.ID)
	if !opts.PostedUntil.IsZero() {
		q = q.Where("posted_at <= $3", opts.PostedUntil.UTC())
	}
	q = q.OrderExpr("created_at ASC, id ASC")
	q = paginate(q, opts.Limit, opts.Offset)

	if err := q.Scan(ctx); err != nil {
		return nil, err
	}
	return fromTransactionModels(models)
}

// ==================== Helpers ====================

func paginate(q *pgdriver.SelectQuery, limit, offset int) *pgdriver.SelectQuery {
	if limit > 0 {
		q = q.Limit(limit)
	}
	if offset > 0 {
		q = q.Offset(offset)
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

// isNoRows reports whether err is a no-rows result from either the pgx row
// API or database/sql.
func isNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows) || errors.Is(err, sql.ErrNoRows)
}

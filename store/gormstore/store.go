// Package gormstore implements store.Store on top of an existing *gorm.DB,
// for applications that already manage their PostgreSQL connection through
// gorm rather than grove.
package gormstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/xraph/accounting"
	"github.com/xraph/accounting/id"
	"github.com/xraph/accounting/journal"
	"github.com/xraph/accounting/reference"
	accountingstore "github.com/xraph/accounting/store"
	"github.com/xraph/accounting/transaction"
	"github.com/xraph/accounting/types"
)

var _ accountingstore.Store = (*Store)(nil)

// Store implements store.Store with gorm.
type Store struct {
	db *gorm.DB
}

// New wraps db. Open it with gorm.Config{TranslateError: true} so unique
// violations surface as gorm.ErrDuplicatedKey; raw pgconn errors are
// recognised as well.
func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Open connects to PostgreSQL through gorm with error translation on and
// SQL logging silenced.
func Open(dsn string) (*Store, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("accounting/gorm: open: %w", err)
	}
	return New(db), nil
}

// DB returns the underlying gorm handle.
func (s *Store) DB() *gorm.DB { return s.db }

// Migrate creates or updates the accounting tables with AutoMigrate.
func (s *Store) Migrate(ctx context.Context) error {
	if err := s.db.WithContext(ctx).AutoMigrate(&journalRecord{}, &transactionRecord{}); err != nil {
		return fmt.Errorf("accounting/gorm: migrate: %w", err)
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// ==================== Journal Store ====================

func (s *Store) CreateJournal(ctx context.Context, j *journal.Journal) error {
	if err := s.db.WithContext(ctx).Create(toJournalRecord(j)).Error; err != nil {
		if isDuplicate(err) {
			return accounting.ErrJournalAlreadyExists
		}
		return fmt.Errorf("accounting/gorm: create journal: %w", err)
	}
	return nil
}

func (s *Store) GetJournal(ctx context.Context, journalID id.JournalID) (*journal.Journal, error) {
	return s.takeJournal(s.db.WithContext(ctx).Where("id = ?", journalID.String()))
}

func (s *Store) GetJournalByOwner(ctx context.Context, ownerType, ownerID string) (*journal.Journal, error) {
	return s.takeJournal(s.db.WithContext(ctx).Where("owner_type = ? AND owner_id = ?", ownerType, ownerID))
}

func (s *Store) takeJournal(q *gorm.DB) (*journal.Journal, error) {
	var r journalRecord
	if err := q.Take(&r).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, accounting.ErrJournalNotFound
		}
		return nil, fmt.Errorf("accounting/gorm: get journal: %w", err)
	}
	return r.toJournal()
}

func (s *Store) ListJournals(ctx context.Context, opts journal.ListOpts) ([]*journal.Journal, error) {
	var records []journalRecord
	q := paginate(s.db.WithContext(ctx).Order("created_at ASC, id ASC"), opts.Limit, opts.Offset)
	if err := q.Find(&records).Error; err != nil {
		return nil, fmt.Errorf("accounting/gorm: list journals: %w", err)
	}

	result := make([]*journal.Journal, len(records))
	for i := range records {
		j, err := records[i].toJournal()
		if err != nil {
			return nil, err
		}
		result[i] = j
	}
	return result, nil
}

func (s *Store) SetBalance(ctx context.Context, journalID id.JournalID, balance types.Money, atSequence int64) (*journal.Journal, error) {
	res := s.db.WithContext(ctx).
		Model(&journalRecord{}).
		Where("id = ? AND currency = ? AND sequence = ?", journalID.String(), balance.Currency, atSequence).
		Updates(map[string]any{
			"balance":    balance.Amount,
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return nil, fmt.Errorf("accounting/gorm: set balance: %w", res.Error)
	}

	current, err := s.GetJournal(ctx, journalID)
	if err != nil {
		return nil, err
	}
	if res.RowsAffected == 0 {
		if current.Currency != balance.Currency {
			return nil, &types.MismatchError{Want: current.Currency, Got: balance.Currency}
		}
		return nil, fmt.Errorf("%w: sequence %d, expected %d", accounting.ErrConcurrentUpdate, current.Sequence, atSequence)
	}
	return current, nil
}

// ==================== Transaction Store ====================

// AppendTransaction locks the journal row with SELECT ... FOR UPDATE,
// applies the amount with overflow and currency checks, then writes the
// journal and the transaction before committing.
func (s *Store) AppendTransaction(ctx context.Context, t *transaction.Transaction) (*journal.Journal, error) {
	var updated journalRecord
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", t.JournalID.String()).
			Take(&updated).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return accounting.ErrJournalNotFound
			}
			return err
		}

		next, err := types.FromMinorUnits(updated.Balance, updated.Currency).Add(t.Amount)
		if err != nil {
			return err
		}
		updated.Balance = next.Amount
		updated.Sequence++
		updated.UpdatedAt = t.CreatedAt

		err = tx.Model(&journalRecord{ID: updated.ID}).Updates(map[string]any{
			"balance":    updated.Balance,
			"sequence":   updated.Sequence,
			"updated_at": updated.UpdatedAt,
		}).Error
		if err != nil {
			return err
		}

		t.Sequence = updated.Sequence
		return tx.Create(toTransactionRecord(t)).Error
	})
	if err != nil {
		t.Sequence = 0
		if errors.Is(err, accounting.ErrJournalNotFound) || errors.Is(err, types.ErrCurrencyMismatch) || errors.Is(err, types.ErrInvalidAmount) {
			return nil, err
		}
		return nil, fmt.Errorf("accounting/gorm: append transaction: %w", err)
	}
	return updated.toJournal()
}

func (s *Store) GetTransaction(ctx context.Context, txID id.TransactionID) (*transaction.Transaction, error) {
	var r transactionRecord
	if err := s.db.WithContext(ctx).Where("id = ?", txID.String()).Take(&r).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, accounting.ErrTransactionNotFound
		}
		return nil, fmt.Errorf("accounting/gorm: get transaction: %w", err)
	}
	return r.toTransaction()
}

func (s *Store) ListTransactions(ctx context.Context, journalID id.JournalID, opts transaction.ListOpts) ([]*transaction.Transaction, error) {
	if _, err := s.GetJournal(ctx, journalID); err != nil {
		return nil, err
	}
	q := s.db.WithContext(ctx).Where("journal_id = ?", journalID.String())
	return s.findTransactions(q, "sequence ASC", opts)
}

func (s *Store) ListTransactionsByReference(ctx context.Context, ref reference.Reference, opts transaction.ListOpts) ([]*transaction.Transaction, error) {
	q := s.db.WithContext(ctx).Where("ref_type = ? AND ref_id = ?", ref.Type, ref.ID)
	return s.findTransactions(q, "created_at ASC, id ASC", opts)
}

func (s *Store) findTransactions(q *gorm.DB, order string, opts transaction.ListOpts) ([]*transaction.Transaction, error) {
	if !opts.PostedUntil.IsZero() {
		q = q.Where("posted_at <= ?", opts.PostedUntil.UTC())
	}
	q = paginate(q.Order(order), opts.Limit, opts.Offset)

	var records []transactionRecord
	if err := q.Find(&records).Error; err != nil {
		return nil, fmt.Errorf("accounting/gorm: list transactions: %w", err)
	}
	return toTransactions(records)
}

// ==================== Helpers ====================

func paginate(q *gorm.DB, limit, offset int) *gorm.DB {
	if limit > 0 {
		q = q.Limit(limit)
	}
	if offset > 0 {
		q = q.Offset(offset)
	}
	return q
}

func isDuplicate(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// Package store defines the persistence contract for journals and
// transactions.
package store

import (
	"context"

	"github.com/xraph/accounting/id"
	"github.com/xraph/accounting/journal"
	"github.com/xraph/accounting/reference"
	"github.com/xraph/accounting/transaction"
	"github.com/xraph/accounting/types"
)

// Store is the unified storage interface for journals and their
// transactions. Methods are declared explicitly rather than by embedding
// journal.Store and transaction.Store so the full contract reads in one place.
type Store interface {
	// CreateJournal inserts a new journal. It returns
	// accounting.ErrJournalAlreadyExists when the owner already has one.
	CreateJournal(ctx context.Context, j *journal.Journal) error
	GetJournal(ctx context.Context, journalID id.JournalID) (*journal.Journal, error)
	GetJournalByOwner(ctx context.Context, ownerType, ownerID string) (*journal.Journal, error)
	// ListJournals pages through journals in creation order.
	ListJournals(ctx context.Context, opts journal.ListOpts) ([]*journal.Journal, error)

	// SetBalance overwrites the cached balance, but only while the journal's
	// sequence still equals atSequence. A journal that moved on in the
	// meantime yields accounting.ErrConcurrentUpdate.
	SetBalance(ctx context.Context, journalID id.JournalID, balance types.Money, atSequence int64) (*journal.Journal, error)

	// AppendTransaction is the single mutation path for a journal. In one
	// atomic step it assigns t.Sequence, inserts t and adds t.Amount to the
	// cached balance, then returns the journal as it stands afterwards.
	// A currency other than the journal's yields
	// accounting.ErrCurrencyMismatch with nothing written.
	AppendTransaction(ctx context.Context, t *transaction.Transaction) (*journal.Journal, error)
	GetTransaction(ctx context.Context, txID id.TransactionID) (*transaction.Transaction, error)
	// ListTransactions returns a journal's transactions in insertion order.
	ListTransactions(ctx context.Context, journalID id.JournalID, opts transaction.ListOpts) ([]*transaction.Transaction, error)
	// ListTransactionsByReference returns transactions from every journal
	// that point at ref, oldest first.
	ListTransactionsByReference(ctx context.Context, ref reference.Reference, opts transaction.ListOpts) ([]*transaction.Transaction, error)

	// Core methods
	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}

var (
	_ journal.Store     = (Store)(nil)
	_ transaction.Store = (Store)(nil)
)

package transaction

import (
	"context"

	"github.com/xraph/accounting/id"
	"github.com/xraph/accounting/journal"
	"github.com/xraph/accounting/reference"
)

type Store interface {
	AppendTransaction(ctx context.Context, t *Transaction) (*journal.Journal, error)
	GetTransaction(ctx context.Context, txID id.TransactionID) (*Transaction, error)
	ListTransactions(ctx context.Context, journalID id.JournalID, opts ListOpts) ([]*Transaction, error)
	ListTransactionsByReference(ctx context.Context, ref reference.Reference, opts ListOpts) ([]*Transaction, error)
}

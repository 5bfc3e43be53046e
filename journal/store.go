package journal

import (
	"context"

	"github.com/xraph/accounting/id"
	"github.com/xraph/accounting/types"
)

type Store interface {
	CreateJournal(ctx context.Context, j *Journal) error
	GetJournal(ctx context.Context, journalID id.JournalID) (*Journal, error)
	GetJournalByOwner(ctx context.Context, ownerType, ownerID string) (*Journal, error)
	ListJournals(ctx context.Context, opts ListOpts) ([]*Journal, error)
	SetBalance(ctx context.Context, journalID id.JournalID, balance types.Money, atSequence int64) (*Journal, error)
}

package transaction

import (
	"time"

	"github.com/xraph/accounting/id"
	"github.com/xraph/accounting/reference"
	"github.com/xraph/accounting/types"
)

// Transaction is one immutable, signed entry in a journal. Credits are
// positive and debits negative.
type Transaction struct {
	ID        id.TransactionID     `json:"id"`
	JournalID id.JournalID         `json:"journal_id"`
	Sequence  int64                `json:"sequence"` // 1-based insertion order within the journal
	Amount    types.Money          `json:"amount"`
	Reference *reference.Reference `json:"reference,omitempty"`
	Memo      string               `json:"memo,omitempty"`
	PostedAt  time.Time            `json:"posted_at"`
	CreatedAt time.Time            `json:"created_at"`
}

// HasReference reports whether t points at an external entity.
func (t *Transaction) HasReference() bool {
	return t.Reference != nil && !t.Reference.IsZero()
}

func (t *Transaction) IsCredit() bool { return t.Amount.Amount > 0 }

func (t *Transaction) IsDebit() bool { return t.Amount.Amount < 0 }

// ListOpts filters and pages a transaction listing. Results are always in
// insertion order.
type ListOpts struct {
	// PostedUntil, when set, keeps transactions with PostedAt <= PostedUntil.
	PostedUntil time.Time
	Limit       int
	Offset      int
}

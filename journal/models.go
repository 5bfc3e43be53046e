package journal

import (
	"github.com/xraph/accounting/id"
	"github.com/xraph/accounting/reference"
	"github.com/xraph/accounting/types"
)

// Journal accumulates the signed transactions of one owner.
//
// Balance is a cache of the sum of every transaction amount and Sequence is
// the number of transactions appended so far. Stores update both in the same
// atomic step as the append.
type Journal struct {
	types.Entity
	ID        id.JournalID `json:"id"`
	OwnerType string       `json:"owner_type"`
	OwnerID   string       `json:"owner_id"`
	Currency  string       `json:"currency"`
	Balance   types.Money  `json:"balance"`
	Sequence  int64        `json:"sequence"`
}

// Owner returns the reference to the entity that owns j.
func (j *Journal) Owner() reference.Reference {
	return reference.New(j.OwnerType, j.OwnerID)
}

type ListOpts struct {
	Limit  int
	Offset int
}

package accounting

import "github.com/xraph/accounting/id"

// ID is the identifier type of journals and transactions.
type ID = id.ID

// JournalID identifies a journal ("jrnl_" prefix).
type JournalID = id.JournalID

// TransactionID identifies a transaction ("jtx_" prefix).
type TransactionID = id.TransactionID

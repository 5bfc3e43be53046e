package gormstore

import (
	"time"

	"github.com/xraph/accounting/id"
	"github.com/xraph/accounting/journal"
	"github.com/xraph/accounting/reference"
	"github.com/xraph/accounting/transaction"
	"github.com/xraph/accounting/types"
)

type journalRecord struct {
	ID        string    `gorm:"primaryKey;type:text"`
	OwnerType string    `gorm:"type:text;not null;uniqueIndex:idx_accounting_journals_owner"`
	OwnerID   string    `gorm:"type:text;not null;uniqueIndex:idx_accounting_journals_owner"`
	Currency  string    `gorm:"type:text;not null"`
	Balance   int64     `gorm:"not null"`
	Sequence  int64     `gorm:"not null"`
	CreatedAt time.Time `gorm:"not null;index:idx_accounting_journals_created;autoCreateTime:false"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime:false"`
}

func (journalRecord) TableName() string { return "accounting_journals" }

func toJournalRecord(j *journal.Journal) *journalRecord {
	return &journalRecord{
		ID:        j.ID.String(),
		OwnerType: j.OwnerType,
		OwnerID:   j.OwnerID,
		Currency:  j.Currency,
		Balance:   j.Balance.Amount,
		Sequence:  j.Sequence,
		CreatedAt: j.CreatedAt,
		UpdatedAt: j.UpdatedAt,
	}
}

func (r *journalRecord) toJournal() (*journal.Journal, error) {
	journalID, err := id.ParseJournalID(r.ID)
	if err != nil {
		return nil, err
	}
	return &journal.Journal{
		Entity: types.Entity{
			CreatedAt: r.CreatedAt.UTC(),
			UpdatedAt: r.UpdatedAt.UTC(),
		},
		ID:        journalID,
		OwnerType: r.OwnerType,
		OwnerID:   r.OwnerID,
		Currency:  r.Currency,
		Balance:   types.FromMinorUnits(r.Balance, r.Currency),
		Sequence:  r.Sequence,
	}, nil
}

type transactionRecord struct {
	ID        string    `gorm:"primaryKey;type:text"`
	JournalID string    `gorm:"type:text;not null;uniqueIndex:idx_accounting_transactions_seq;index:idx_accounting_transactions_posted"`
	Sequence  int64     `gorm:"not null;uniqueIndex:idx_accounting_transactions_seq"`
	Amount    int64     `gorm:"not null"`
	Currency  string    `gorm:"type:text;not null"`
	RefType   string    `gorm:"type:text;not null;default:'';index:idx_accounting_transactions_ref"`
	RefID     string    `gorm:"type:text;not null;default:'';index:idx_accounting_transactions_ref"`
	Memo      string    `gorm:"type:text;not null;default:''"`
	PostedAt  time.Time `gorm:"not null;index:idx_accounting_transactions_posted"`
	CreatedAt time.Time `gorm:"not null;autoCreateTime:false"`
}

func (transactionRecord) TableName() string { return "accounting_transactions" }

func toTransactionRecord(t *transaction.Transaction) *transactionRecord {
	r := &transactionRecord{
		ID:        t.ID.String(),
		JournalID: t.JournalID.String(),
		Sequence:  t.Sequence,
		Amount:    t.Amount.Amount,
		Currency:  t.Amount.Currency,
		Memo:      t.Memo,
		PostedAt:  t.PostedAt,
		CreatedAt: t.CreatedAt,
	}
	if t.HasReference() {
		r.RefType = t.Reference.Type
		r.RefID = t.Reference.ID
	}
	return r
}

func (r *transactionRecord) toTransaction() (*transaction.Transaction, error) {
	txID, err := id.ParseTransactionID(r.ID)
	if err != nil {
		return nil, err
	}
	journalID, err := id.ParseJournalID(r.JournalID)
	if err != nil {
		return nil, err
	}
	return &transaction.Transaction{
		ID:        txID,
		JournalID: journalID,
		Sequence:  r.Sequence,
		Amount:    types.FromMinorUnits(r.Amount, r.Currency),
		Reference: reference.New(r.RefType, r.RefID).Ptr(),
		Memo:      r.Memo,
		PostedAt:  r.PostedAt.UTC(),
		CreatedAt: r.CreatedAt.UTC(),
	}, nil
}

func toTransactions(records []transactionRecord) ([]*transaction.Transaction, error) {
	result := make([]*transaction.Transaction, len(records))
	for i := range records {
		t, err := records[i].toTransaction()
		if err != nil {
			return nil, err
		}
		result[i] = t
	}
	return result, nil
}

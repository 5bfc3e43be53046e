package mongo

import (
	"time"

	"github.com/xraph/grove"

	"github.com/xraph/accounting/id"
	"github.com/xraph/accounting/journal"
	"github.com/xraph/accounting/reference"
	"github.com/xraph/accounting/transaction"
	"github.com/xraph/accounting/types"
)

// ==================== Journal models ====================

type journalModel struct {
	grove.BaseModel `grove:"table:accounting_journals"`

	ID        string    `grove:"id,pk"      bson:"_id"`
	OwnerType string    `grove:"owner_type" bson:"owner_type"`
	OwnerID   string    `grove:"owner_id"   bson:"owner_id"`
	Currency  string    `grove:"currency"   bson:"currency"`
	Balance   int64     `grove:"balance"    bson:"balance"`
	Sequence  int64     `grove:"sequence"   bson:"sequence"`
	CreatedAt time.Time `grove:"created_at" bson:"created_at"`
	UpdatedAt time.Time `grove:"updated_at" bson:"updated_at"`
}

func toJournalModel(j *journal.Journal) *journalModel {
	return &journalModel{
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

func fromJournalModel(m *journalModel) (*journal.Journal, error) {
	journalID, err := id.ParseJournalID(m.ID)
	if err != nil {
		return nil, err
	}

	return &journal.Journal{
		Entity: types.Entity{
			CreatedAt: m.CreatedAt.UTC(),
			UpdatedAt: m.UpdatedAt.UTC(),
		},
		ID:        journalID,
		OwnerType: m.OwnerType,
		OwnerID:   m.OwnerID,
		Currency:  m.Currency,
		Balance:   types.FromMinorUnits(m.Balance, m.Currency),
		Sequence:  m.Sequence,
	}, nil
}

// ==================== Transaction models ====================

type transactionModel struct {
	grove.BaseModel `grove:"table:accounting_transactions"`

	ID        string    `grove:"id,pk"      bson:"_id"`
	JournalID string    `grove:"journal_id" bson:"journal_id"`
	Sequence  int64     `grove:"sequence"   bson:"sequence"`
	Amount    int64     `grove:"amount"     bson:"amount"`
	Currency  string    `grove:"currency"   bson:"currency"`
	RefType   string    `grove:"ref_type"   bson:"ref_type"`
	RefID     string    `grove:"ref_id"     bson:"ref_id"`
	Memo      string    `grove:"memo"       bson:"memo"`
	PostedAt  time.Time `grove:"posted_at"  bson:"posted_at"`
	CreatedAt time.Time `grove:"created_at" bson:"created_at"`
}

func toTransactionModel(t *transaction.Transaction) *transactionModel {
	m := &transactionModel{
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
		m.RefType = t.Reference.Type
		m.RefID = t.Reference.ID
	}
	return m
}

func fromTransactionModel(m *transactionModel) (*transaction.Transaction, error) {
	txID, err := id.ParseTransactionID(m.ID)
	if err != nil {
		return nil, err
	}
	journalID, err := id.ParseJournalID(m.JournalID)
	if err != nil {
		return nil, err
	}

	return &transaction.Transaction{
		ID:        txID,
		JournalID: journalID,
		Sequence:  m.Sequence,
		Amount:    types.FromMinorUnits(m.Amount, m.Currency),
		Reference: reference.New(m.RefType, m.RefID).Ptr(),
		Memo:      m.Memo,
		PostedAt:  m.PostedAt.UTC(),
		CreatedAt: m.CreatedAt.UTC(),
	}, nil
}

func fromTransactionModels(models []transactionModel) ([]*transaction.Transaction, error) {
	result := make([]*transaction.Transaction, len(models))
	for i := range models {
		t, err := fromTransactionModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = t
	}
	return result, nil
}

package postgres

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

	ID        string    `grove:"id,pk"`
	OwnerType string    `grove:"owner_type"`
	OwnerID   string    `grove:"owner_id"`
	Currency  string    `grove:"currency"`
	Balance   int64     `grove:"balance"`
	Sequence  int64     `grove:"sequence"`
	CreatedAt time.Time `grove:"created_at"`
	UpdatedAt time.Time `grove:"updated_at"`
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

	ID        string    `grove:"id,pk"`
	JournalID string    `grove:"journal_id"`
	Sequence  int64     `grove:"sequence"`
	Amount    int64     `grove:"amount"`
	Currency  string    `grove:"currency"`
	RefType   string    `grove:"ref_type"`
	RefID     string    `grove:"ref_id"`
	Memo      string    `grove:"memo"`
	PostedAt  time.Time `grove:"posted_at"`
	CreatedAt time.Time `grove:"created_at"`
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
	if t.Reference != nil {
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

// Package memory provides an in-process store.Store. It is safe for
// concurrent use and is what tests and single-process tools run on.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/xraph/accounting"
	"github.com/xraph/accounting/id"
	"github.com/xraph/accounting/journal"
	"github.com/xraph/accounting/reference"
	"github.com/xraph/accounting/store"
	"github.com/xraph/accounting/transaction"
	"github.com/xraph/accounting/types"
)

var _ store.Store = (*Store)(nil)

// Store keeps journals and transactions in maps behind one RWMutex. Every
// value handed out is a copy, so callers never observe a half-applied append.
type Store struct {
	mu sync.RWMutex

	journals     map[string]*journal.Journal
	owners       map[string]string // owner key -> journal id
	journalOrder []string

	transactions map[string]*transaction.Transaction
	entries      map[string][]string // journal id -> transaction ids by sequence
	txOrder      []string
}

func New() *Store {
	return &Store{
		journals:     make(map[string]*journal.Journal),
		owners:       make(map[string]string),
		transactions: make(map[string]*transaction.Transaction),
		entries:      make(map[string][]string),
	}
}

func ownerKey(ownerType, ownerID string) string {
	return ownerType + "\x00" + ownerID
}

// Journal Store implementation

func (s *Store) CreateJournal(_ context.Context, j *journal.Journal) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := ownerKey(j.OwnerType, j.OwnerID)
	if _, exists := s.owners[key]; exists {
		return accounting.ErrJournalAlreadyExists
	}
	if _, exists := s.journals[j.ID.String()]; exists {
		return accounting.ErrJournalAlreadyExists
	}

	stored := *j
	s.journals[j.ID.String()] = &stored
	s.owners[key] = j.ID.String()
	s.journalOrder = append(s.journalOrder, j.ID.String())
	return nil
}

func (s *Store) GetJournal(_ context.Context, journalID id.JournalID) (*journal.Journal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if j, ok := s.journals[journalID.String()]; ok {
		out := *j
		return &out, nil
	}
	return nil, accounting.ErrJournalNotFound
}

func (s *Store) GetJournalByOwner(_ context.Context, ownerType, ownerID string) (*journal.Journal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if jid, ok := s.owners[ownerKey(ownerType, ownerID)]; ok {
		out := *s.journals[jid]
		return &out, nil
	}
	return nil, accounting.ErrJournalNotFound
}

func (s *Store) ListJournals(_ context.Context, opts journal.ListOpts) ([]*journal.Journal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*journal.Journal, 0, len(s.journalOrder))
	for _, jid := range page(s.journalOrder, opts.Limit, opts.Offset) {
		out := *s.journals[jid]
		result = append(result, &out)
	}
	return result, nil
}

func (s *Store) SetBalance(_ context.Context, journalID id.JournalID, balance types.Money, atSequence int64) (*journal.Journal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	j, ok := s.journals[journalID.String()]
	if !ok {
		return nil, accounting.ErrJournalNotFound
	}
	if balance.Currency != j.Currency {
		return nil, &types.MismatchError{Want: j.Currency, Got: balance.Currency}
	}
	if j.Sequence != atSequence {
		return nil, fmt.Errorf("%w: sequence %d, expected %d", accounting.ErrConcurrentUpdate, j.Sequence, atSequence)
	}

	j.Balance = balance
	j.Touch(time.Now())
	out := *j
	return &out, nil
}

// Transaction Store implementation

func (s *Store) AppendTransaction(_ context.Context, t *transaction.Transaction) (*journal.Journal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	j, ok := s.journals[t.JournalID.String()]
	if !ok {
		return nil, accounting.ErrJournalNotFound
	}
	if _, dup := s.transactions[t.ID.String()]; dup {
		return nil, fmt.Errorf("memory: duplicate transaction %s", t.ID)
	}

	balance, err := j.Balance.Add(t.Amount)
	if err != nil {
		return nil, err
	}

	t.Sequence = j.Sequence + 1
	j.Balance = balance
	j.Sequence = t.Sequence
	j.Touch(t.CreatedAt)

	s.transactions[t.ID.String()] = cloneTx(t)
	s.entries[j.ID.String()] = append(s.entries[j.ID.String()], t.ID.String())
	s.txOrder = append(s.txOrder, t.ID.String())

	out := *j
	return &out, nil
}

func (s *Store) GetTransaction(_ context.Context, txID id.TransactionID) (*transaction.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if t, ok := s.transactions[txID.String()]; ok {
		return cloneTx(t), nil
	}
	return nil, accounting.ErrTransactionNotFound
}

func (s *Store) ListTransactions(_ context.Context, journalID id.JournalID, opts transaction.ListOpts) ([]*transaction.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.journals[journalID.String()]; !ok {
		return nil, accounting.ErrJournalNotFound
	}
	return s.collect(s.entries[journalID.String()], opts, nil), nil
}

func (s *Store) ListTransactionsByReference(_ context.Context, ref reference.Reference, opts transaction.ListOpts) ([]*transaction.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.collect(s.txOrder, opts, func(t *transaction.Transaction) bool {
		return t.Reference != nil && *t.Reference == ref
	}), nil
}

// collect filters ids in order, then applies paging. Callers hold s.mu.
func (s *Store) collect(ids []string, opts transaction.ListOpts, keep func(*transaction.Transaction) bool) []*transaction.Transaction {
	matched := make([]*transaction.Transaction, 0, len(ids))
	for _, txID := range ids {
		t := s.transactions[txID]
		if !opts.PostedUntil.IsZero() && t.PostedAt.After(opts.PostedUntil) {
			continue
		}
		if keep != nil && !keep(t) {
			continue
		}
		matched = append(matched, t)
	}

	paged := page(matched, opts.Limit, opts.Offset)
	result := make([]*transaction.Transaction, len(paged))
	for i, t := range paged {
		result[i] = cloneTx(t)
	}
	return result
}

// Core methods

func (s *Store) Migrate(_ context.Context) error { return nil }

func (s *Store) Ping(_ context.Context) error { return nil }

func (s *Store) Close() error { return nil }

func cloneTx(t *transaction.Transaction) *transaction.Transaction {
	out := *t
	if t.Reference != nil {
		ref := *t.Reference
		out.Reference = &ref
	}
	return &out
}

func page[T any](items []T, limit, offset int) []T {
	start := max(offset, 0)
	if start > len(items) {
		start = len(items)
	}
	end := start + limit
	if limit <= 0 || end > len(items) {
		end = len(items)
	}
	return items[start:end]
}

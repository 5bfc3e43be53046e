// Package storetest holds the behavioural suite every store.Store
// implementation is expected to pass.
package storetest

import (
	"context"
	"errors"
	"testing"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/xraph/accounting"
	"github.com/xraph/accounting/id"
	"github.com/xraph/accounting/journal"
	"github.com/xraph/accounting/reference"
	"github.com/xraph/accounting/store"
	"github.com/xraph/accounting/transaction"
	"github.com/xraph/accounting/types"
)

// Factory returns an empty, migrated store.
type Factory func(t *testing.T) store.Store

// Options tunes the suite for slower backends.
type Options struct {
	// Writers is the number of concurrent appenders in the concurrency test.
	Writers int
	// PerWriter is the number of appends each writer performs.
	PerWriter int
}

// Run executes the suite against stores built by newStore.
func Run(t *testing.T, newStore Factory, opts Options) {
	t.Helper()
	if opts.Writers <= 0 {
		opts.Writers = 8
	}
	if opts.PerWriter <= 0 {
		opts.PerWriter = 10
	}

	t.Run("CreateAndGetJournal", func(t *testing.T) { testCreateAndGetJournal(t, newStore(t)) })
	t.Run("AppendTransaction", func(t *testing.T) { testAppendTransaction(t, newStore(t)) })
	t.Run("AppendRejected", func(t *testing.T) { testAppendRejected(t, newStore(t)) })
	t.Run("ListTransactions", func(t *testing.T) { testListTransactions(t, newStore(t)) })
	t.Run("SetBalance", func(t *testing.T) { testSetBalance(t, newStore(t)) })
	t.Run("ConcurrentAppends", func(t *testing.T) { testConcurrentAppends(t, newStore(t), opts) })
}

var base = time.Date(2026, 4, 1, 8, 0, 0, 0, time.UTC)

// NewJournal builds an unsaved zero-balance journal.
func NewJournal(ownerType, ownerID, currency string) *journal.Journal {
	return &journal.Journal{
		Entity:    types.NewEntity(base),
		ID:        id.NewJournalID(),
		OwnerType: ownerType,
		OwnerID:   ownerID,
		Currency:  currency,
		Balance:   types.Zero(currency),
	}
}

// NewTransaction builds an unsaved transaction.
func NewTransaction(journalID id.JournalID, amount types.Money, ref *reference.Reference, postedAt time.Time) *transaction.Transaction {
	return &transaction.Transaction{
		ID:        id.NewTransactionID(),
		JournalID: journalID,
		Amount:    amount,
		Reference: ref,
		PostedAt:  postedAt,
		CreatedAt: base,
	}
}

func create(t *testing.T, s store.Store, ownerType, ownerID, currency string) *journal.Journal {
	t.Helper()
	j := NewJournal(ownerType, ownerID, currency)
	if err := s.CreateJournal(context.Background(), j); err != nil {
		t.Fatal(err)
	}
	return j
}

func appendTx(t *testing.T, s store.Store, tx *transaction.Transaction) *journal.Journal {
	t.Helper()
	j, err := s.AppendTransaction(context.Background(), tx)
	if err != nil {
		t.Fatal(err)
	}
	return j
}

func testCreateAndGetJournal(t *testing.T, s store.Store) {
	ctx := context.Background()
	j := create(t, s, "user", "1", "usd")

	got, err := s.GetJournal(ctx, j.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.ID != j.ID || got.Currency != "usd" || got.Balance.Amount != 0 || got.Sequence != 0 {
		t.Errorf("GetJournal = %+v", got)
	}
	if !got.CreatedAt.Equal(base) {
		t.Errorf("CreatedAt = %v, want %v", got.CreatedAt, base)
	}

	byOwner, err := s.GetJournalByOwner(ctx, "user", "1")
	if err != nil {
		t.Fatal(err)
	}
	if byOwner.ID != j.ID {
		t.Errorf("GetJournalByOwner = %s, want %s", byOwner.ID, j.ID)
	}

	dup := NewJournal("user", "1", "usd")
	if err := s.CreateJournal(ctx, dup); !errors.Is(err, accounting.ErrJournalAlreadyExists) {
		t.Errorf("duplicate owner: got %v, want ErrJournalAlreadyExists", err)
	}

	if _, err := s.GetJournal(ctx, id.NewJournalID()); !errors.Is(err, accounting.ErrJournalNotFound) {
		t.Errorf("unknown id: got %v", err)
	}
	if _, err := s.GetJournalByOwner(ctx, "user", "2"); !errors.Is(err, accounting.ErrJournalNotFound) {
		t.Errorf("unknown owner: got %v", err)
	}

	second := create(t, s, "account", "1", "eur")
	list, err := s.ListJournals(ctx, journal.ListOpts{})
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 2 {
		t.Fatalf("ListJournals = %d journals, want 2", len(list))
	}
	paged, err := s.ListJournals(ctx, journal.ListOpts{Offset: 1})
	if err != nil {
		t.Fatal(err)
	}
	if len(paged) != 1 {
		t.Fatalf("ListJournals offset 1 = %d journals, want 1", len(paged))
	}
	ids := map[string]bool{list[0].ID.String(): true, list[1].ID.String(): true}
	if !ids[j.ID.String()] || !ids[second.ID.String()] {
		t.Errorf("ListJournals = %v", list)
	}
}

func testAppendTransaction(t *testing.T, s store.Store) {
	ctx := context.Background()
	j := create(t, s, "user", "1", "usd")
	ref := reference.New("product", "7")

	first := NewTransaction(j.ID, types.USD(10000), &ref, base)
	first.Memo = "top up"
	updated := appendTx(t, s, first)
	if first.Sequence != 1 || updated.Sequence != 1 || updated.Balance.Amount != 10000 {
		t.Errorf("after first append: tx seq %d, journal %+v", first.Sequence, updated)
	}

	second := NewTransaction(j.ID, types.USD(-10099), nil, base)
	updated = appendTx(t, s, second)
	if second.Sequence != 2 || updated.Balance.Amount != -99 {
		t.Errorf("after second append: tx seq %d, balance %d", second.Sequence, updated.Balance.Amount)
	}

	got, err := s.GetTransaction(ctx, first.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Amount != types.USD(10000) || got.Sequence != 1 || got.Memo != "top up" {
		t.Errorf("GetTransaction = %+v", got)
	}
	if got.Reference == nil || *got.Reference != ref {
		t.Errorf("Reference = %v, want %v", got.Reference, ref)
	}
	if !got.PostedAt.Equal(base) {
		t.Errorf("PostedAt = %v, want %v", got.PostedAt, base)
	}

	plain, err := s.GetTransaction(ctx, second.ID)
	if err != nil {
		t.Fatal(err)
	}
	if plain.Reference != nil {
		t.Errorf("Reference = %v, want nil", plain.Reference)
	}

	if _, err := s.GetTransaction(ctx, id.NewTransactionID()); !errors.Is(err, accounting.ErrTransactionNotFound) {
		t.Errorf("unknown transaction: got %v", err)
	}
}

func testAppendRejected(t *testing.T, s store.Store) {
	ctx := context.Background()
	j := create(t, s, "user", "1", "usd")
	appendTx(t, s, NewTransaction(j.ID, types.USD(500), nil, base))

	_, err := s.AppendTransaction(ctx, NewTransaction(j.ID, types.EUR(500), nil, base))
	if !errors.Is(err, accounting.ErrCurrencyMismatch) {
		t.Errorf("mismatch: got %v, want ErrCurrencyMismatch", err)
	}

	_, err = s.AppendTransaction(ctx, NewTransaction(id.NewJournalID(), types.USD(1), nil, base))
	if !errors.Is(err, accounting.ErrJournalNotFound) {
		t.Errorf("unknown journal: got %v, want ErrJournalNotFound", err)
	}

	near := create(t, s, "user", "max", "usd")
	appendTx(t, s, NewTransaction(near.ID, types.USD(1<<62), nil, base))
	appendTx(t, s, NewTransaction(near.ID, types.USD(1<<62-1), nil, base))
	_, err = s.AppendTransaction(ctx, NewTransaction(near.ID, types.USD(1), nil, base))
	if !errors.Is(err, accounting.ErrInvalidAmount) {
		t.Errorf("overflow: got %v, want ErrInvalidAmount", err)
	}

	after, err := s.GetJournal(ctx, j.ID)
	if err != nil {
		t.Fatal(err)
	}
	if after.Balance.Amount != 500 || after.Sequence != 1 {
		t.Errorf("rejected appends changed the journal: %+v", after)
	}
	list, err := s.ListTransactions(ctx, j.ID, transaction.ListOpts{})
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 1 {
		t.Errorf("transactions = %d, want 1", len(list))
	}
}

func testListTransactions(t *testing.T, s store.Store) {
	ctx := context.Background()
	a := create(t, s, "account", "a", "usd")
	b := create(t, s, "user", "b", "usd")
	widget := reference.New("product", "7")

	appendTx(t, s, NewTransaction(a.ID, types.USD(1), &widget, base))
	appendTx(t, s, NewTransaction(b.ID, types.USD(2), &widget, base.Add(time.Hour)))
	appendTx(t, s, NewTransaction(a.ID, types.USD(3), nil, base.Add(2*time.Hour)))
	appendTx(t, s, NewTransaction(a.ID, types.USD(4), nil, base.Add(-time.Hour)))

	check := func(name string, list []*transaction.Transaction, err error, want ...int64) {
		t.Helper()
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		if len(list) != len(want) {
			t.Fatalf("%s: got %d transactions, want %d", name, len(list), len(want))
		}
		for i, tx := range list {
			if tx.Amount.Amount != want[i] {
				t.Errorf("%s[%d] = %d, want %d", name, i, tx.Amount.Amount, want[i])
			}
		}
	}

	list, err := s.ListTransactions(ctx, a.ID, transaction.ListOpts{})
	check("all", list, err, 1, 3, 4)
	list, err = s.ListTransactions(ctx, a.ID, transaction.ListOpts{Limit: 2})
	check("limit", list, err, 1, 3)
	list, err = s.ListTransactions(ctx, a.ID, transaction.ListOpts{Offset: 1})
	check("offset", list, err, 3, 4)
	list, err = s.ListTransactions(ctx, a.ID, transaction.ListOpts{PostedUntil: base})
	check("posted until", list, err, 1, 4)

	list, err = s.ListTransactionsByReference(ctx, widget, transaction.ListOpts{})
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 2 {
		t.Fatalf("by reference: got %d transactions, want 2", len(list))
	}
	journals := map[string]bool{list[0].JournalID.String(): true, list[1].JournalID.String(): true}
	if !journals[a.ID.String()] || !journals[b.ID.String()] {
		t.Errorf("by reference spans %v", journals)
	}

	list, err = s.ListTransactionsByReference(ctx, reference.New("product", "8"), transaction.ListOpts{})
	check("unused reference", list, err)

	if _, err := s.ListTransactions(ctx, id.NewJournalID(), transaction.ListOpts{}); !errors.Is(err, accounting.ErrJournalNotFound) {
		t.Errorf("unknown journal: got %v", err)
	}
}

func testSetBalance(t *testing.T, s store.Store) {
	ctx := context.Background()
	j := create(t, s, "user", "1", "usd")
	appendTx(t, s, NewTransaction(j.ID, types.USD(10), nil, base))

	if _, err := s.SetBalance(ctx, j.ID, types.USD(3), 0); !errors.Is(err, accounting.ErrConcurrentUpdate) {
		t.Errorf("stale sequence: got %v, want ErrConcurrentUpdate", err)
	}
	if _, err := s.SetBalance(ctx, j.ID, types.EUR(3), 1); !errors.Is(err, accounting.ErrCurrencyMismatch) {
		t.Errorf("wrong currency: got %v, want ErrCurrencyMismatch", err)
	}
	if _, err := s.SetBalance(ctx, id.NewJournalID(), types.USD(3), 1); !errors.Is(err, accounting.ErrJournalNotFound) {
		t.Errorf("unknown journal: got %v", err)
	}

	updated, err := s.SetBalance(ctx, j.ID, types.USD(3), 1)
	if err != nil {
		t.Fatal(err)
	}
	if updated.Balance.Amount != 3 || updated.Sequence != 1 {
		t.Errorf("SetBalance = %+v", updated)
	}
}

func testConcurrentAppends(t *testing.T, s store.Store, opts Options) {
	ctx := context.Background()
	j := create(t, s, "user", "1", "usd")

	var g errgroup.Group
	for range opts.Writers {
		g.Go(func() error {
			for range opts.PerWriter {
				if _, err := s.AppendTransaction(ctx, NewTransaction(j.ID, types.USD(3), nil, base)); err != nil {
					return err
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatal(err)
	}

	total := int64(opts.Writers * opts.PerWriter)
	got, err := s.GetJournal(ctx, j.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Balance.Amount != 3*total || got.Sequence != total {
		t.Errorf("journal = balance %d seq %d, want %d and %d", got.Balance.Amount, got.Sequence, 3*total, total)
	}

	list, err := s.ListTransactions(ctx, j.ID, transaction.ListOpts{})
	if err != nil {
		t.Fatal(err)
	}
	for i, tx := range list {
		if tx.Sequence != int64(i+1) {
			t.Fatalf("transaction %d has sequence %d", i, tx.Sequence)
		}
	}
}

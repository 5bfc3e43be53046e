package accounting

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/shopspring/decimal"

	"github.com/xraph/accounting/id"
	"github.com/xraph/accounting/journal"
	"github.com/xraph/accounting/plugin"
	"github.com/xraph/accounting/reference"
	"github.com/xraph/accounting/store"
	"github.com/xraph/accounting/transaction"
	"github.com/xraph/accounting/types"
)

const (
	// scanPageSize is the batch size used when walking a journal's history.
	scanPageSize = 500

	repairAttempts = 3
)

// Ledger is the entry point for journal creation, credits, debits and
// balance queries. It holds no per-journal state of its own; atomicity of a
// single journal's mutation is delegated to the store.
type Ledger struct {
	store     store.Store
	plugins   *plugin.Registry
	resolvers *reference.Registry
	logger    *slog.Logger
	now       func() time.Time

	defaultCurrency  string
	strictReferences bool
	auditWorkers     int
	skipMigrate      bool

	// resolver registration failures, logged once options are applied
	optionErrs []error
}

// New creates a Ledger backed by s.
func New(s store.Store, opts ...Option) *Ledger {
	l := &Ledger{
		store:        s,
		plugins:      plugin.NewRegistry(),
		resolvers:    reference.NewRegistry(),
		logger:       slog.Default(),
		now:          time.Now,
		auditWorkers: 4,
	}

	for _, opt := range opts {
		opt(l)
	}
	for _, err := range l.optionErrs {
		l.logger.Warn("resolver registration ignored", "error", err)
	}
	l.optionErrs = nil

	return l
}

// Option configures a Ledger instance.
type Option func(*Ledger)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Ledger) {
		l.logger = logger
		l.plugins.WithLogger(logger)
	}
}

// WithPlugin registers a plugin.
func WithPlugin(p plugin.Plugin) Option {
	return func(l *Ledger) {
		_ = l.plugins.Register(p) //nolint:errcheck // best-effort plugin registration during init
	}
}

// WithPluginTimeout bounds each plugin hook call.
func WithPluginTimeout(d time.Duration) Option {
	return func(l *Ledger) { l.plugins.WithTimeout(d) }
}

// WithResolvers replaces the reference registry. Bindings made by earlier
// WithResolver options are carried over into r.
func WithResolvers(r *reference.Registry) Option {
	return func(l *Ledger) {
		if r == nil {
			return
		}
		if err := r.Merge(l.resolvers); err != nil {
			l.optionErrs = append(l.optionErrs, err)
		}
		l.resolvers = r
	}
}

// WithResolver binds a resolver for one reference type tag. A second
// binding for the same tag is ignored and logged at Warn.
func WithResolver(typeTag string, r reference.Resolver) Option {
	return func(l *Ledger) {
		if err := l.resolvers.Register(typeTag, r); err != nil {
			l.optionErrs = append(l.optionErrs, err)
		}
	}
}

// WithClock overrides the time source used for timestamps.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) { l.now = now }
}

// WithDefaultCurrency sets the currency used by Init when none is given.
func WithDefaultCurrency(code string) Option {
	return func(l *Ledger) { l.defaultCurrency = types.NormalizeCurrency(code) }
}

// WithStrictReferences makes Credit and Debit resolve a transaction's
// reference before writing it, so dangling references are refused.
func WithStrictReferences() Option {
	return func(l *Ledger) { l.strictReferences = true }
}

// WithAuditWorkers sets how many journals AuditAll checks in parallel.
func WithAuditWorkers(n int) Option {
	return func(l *Ledger) {
		if n > 0 {
			l.auditWorkers = n
		}
	}
}

// WithoutMigrate makes Start check connectivity instead of migrating the
// store, for schemas managed elsewhere.
func WithoutMigrate() Option {
	return func(l *Ledger) { l.skipMigrate = true }
}

// Start migrates the store and initializes plugins.
func (l *Ledger) Start(ctx context.Context) error {
	if l.skipMigrate {
		if err := l.store.Ping(ctx); err != nil {
			return fmt.Errorf("ping store: %w", err)
		}
	} else if err := l.store.Migrate(ctx); err != nil {
		return fmt.Errorf("migrate store: %w", err)
	}

	l.plugins.EmitInit(ctx, l)

	l.logger.Info("accounting started",
		"plugins", len(l.plugins.List()),
		"reference_types", l.resolvers.Types(),
		"default_currency", l.defaultCurrency,
	)

	return nil
}

// Stop shuts down plugins and closes the store.
func (l *Ledger) Stop() error {
	l.plugins.EmitShutdown(context.Background())
	return l.store.Close()
}

// Store returns the underlying store.
func (l *Ledger) Store() store.Store { return l.store }

// Plugins returns the plugin registry.
func (l *Ledger) Plugins() *plugin.Registry { return l.plugins }

// Resolvers returns the reference registry.
func (l *Ledger) Resolvers() *reference.Registry { return l.resolvers }

func (l *Ledger) clock() time.Time { return l.now().UTC() }

// ──────────────────────────────────────────────────
// Journals
// ──────────────────────────────────────────────────

// Init returns the journal of the given owner, creating it with a zero
// balance on first use. Calling Init again for the same owner returns the
// same journal; asking for a different currency then fails with
// ErrCurrencyMismatch. Codes outside ISO 4217 are rejected.
func (l *Ledger) Init(ctx context.Context, ownerType, ownerID, currency string) (*journal.Journal, error) {
	if ownerType == "" {
		return nil, ValidationError{Field: "owner_type", Message: "must not be empty"}
	}
	if ownerID == "" {
		return nil, ValidationError{Field: "owner_id", Message: "must not be empty"}
	}
	currency = types.NormalizeCurrency(currency)
	if currency == "" {
		currency = l.defaultCurrency
	}
	if currency == "" {
		return nil, ValidationError{Field: "currency", Message: "must not be empty"}
	}
	if !types.IsKnownCurrency(currency) {
		return nil, ValidationError{Field: "currency", Message: fmt.Sprintf("unknown ISO 4217 code %q", currency)}
	}

	existing, err := l.existingJournal(ctx, ownerType, ownerID, currency)
	if err == nil || !errors.Is(err, ErrJournalNotFound) {
		return existing, err
	}

	j := &journal.Journal{
		Entity:    types.NewEntity(l.clock()),
		ID:        id.NewJournalID(),
		OwnerType: ownerType,
		OwnerID:   ownerID,
		Currency:  currency,
		Balance:   types.Zero(currency),
	}

	if err := l.store.CreateJournal(ctx, j); err != nil {
		if errors.Is(err, ErrJournalAlreadyExists) {
			// Lost a race with a concurrent Init for the same owner.
			return l.existingJournal(ctx, ownerType, ownerID, currency)
		}
		return nil, fmt.Errorf("create journal: %w", err)
	}

	l.logger.Info("journal initialized",
		"journal_id", j.ID.String(),
		"owner", j.Owner().String(),
		"currency", currency,
	)
	l.plugins.EmitJournalCreated(ctx, copyJournal(j))

	return j, nil
}

func (l *Ledger) existingJournal(ctx context.Context, ownerType, ownerID, currency string) (*journal.Journal, error) {
	j, err := l.store.GetJournalByOwner(ctx, ownerType, ownerID)
	if err != nil {
		return nil, err
	}
	if j.Currency != currency {
		return nil, fmt.Errorf("journal %s: %w", j.ID, &types.MismatchError{Want: j.Currency, Got: currency})
	}
	return j, nil
}

// InitFor is Init for any entity exposing a ledger identity.
func (l *Ledger) InitFor(ctx context.Context, owner reference.Identifiable, currency string) (*journal.Journal, error) {
	ownerType, ownerID := owner.LedgerIdentity()
	return l.Init(ctx, ownerType, ownerID, currency)
}

// FindByOwner returns the owner's journal or ErrJournalNotFound.
func (l *Ledger) FindByOwner(ctx context.Context, ownerType, ownerID string) (*journal.Journal, error) {
	j, err := l.store.GetJournalByOwner(ctx, ownerType, ownerID)
	if err != nil {
		return nil, fmt.Errorf("find journal for %s:%s: %w", ownerType, ownerID, err)
	}
	return j, nil
}

// JournalFor is FindByOwner for any entity exposing a ledger identity.
func (l *Ledger) JournalFor(ctx context.Context, owner reference.Identifiable) (*journal.Journal, error) {
	ownerType, ownerID := owner.LedgerIdentity()
	return l.FindByOwner(ctx, ownerType, ownerID)
}

// GetJournal returns a journal by id.
func (l *Ledger) GetJournal(ctx context.Context, journalID id.JournalID) (*journal.Journal, error) {
	j, err := l.store.GetJournal(ctx, journalID)
	if err != nil {
		return nil, fmt.Errorf("get journal %s: %w", journalID, err)
	}
	return j, nil
}

// ListJournals pages through journals in creation order.
func (l *Ledger) ListJournals(ctx context.Context, opts journal.ListOpts) ([]*journal.Journal, error) {
	return l.store.ListJournals(ctx, opts)
}

// ──────────────────────────────────────────────────
// Credits and debits
// ──────────────────────────────────────────────────

// EntryOption sets optional fields on a credit or debit.
type EntryOption func(*entry)

type entry struct {
	ref      reference.Reference
	memo     string
	postedAt time.Time
}

// WithReference points the transaction at an external entity.
func WithReference(ref reference.Reference) EntryOption {
	return func(e *entry) { e.ref = ref }
}

// WithReferenceTo points the transaction at an identifiable entity.
func WithReferenceTo(target reference.Identifiable) EntryOption {
	return func(e *entry) { e.ref = reference.Of(target) }
}

// WithMemo attaches a free-text note.
func WithMemo(memo string) EntryOption {
	return func(e *entry) { e.memo = memo }
}

// WithPostedAt sets the business date of the transaction. It defaults to
// the creation time and only affects BalanceAt; insertion order is unchanged.
func WithPostedAt(t time.Time) EntryOption {
	return func(e *entry) { e.postedAt = t }
}

// Credit appends amount to the journal and returns the new transaction.
// The amount's currency must match the journal's.
func (l *Ledger) Credit(ctx context.Context, journalID id.JournalID, amount types.Money, opts ...EntryOption) (*transaction.Transaction, error) {
	t, err := l.record(ctx, journalID, amount, opts)
	if err != nil {
		return nil, fmt.Errorf("credit journal %s: %w", journalID, err)
	}
	return t, nil
}

// Debit appends the negation of amount to the journal. The balance may go
// negative.
func (l *Ledger) Debit(ctx context.Context, journalID id.JournalID, amount types.Money, opts ...EntryOption) (*transaction.Transaction, error) {
	if amount.Amount == math.MinInt64 {
		return nil, fmt.Errorf("debit journal %s: %w: cannot negate %d", journalID, ErrInvalidAmount, amount.Amount)
	}
	t, err := l.record(ctx, journalID, amount.Negate(), opts)
	if err != nil {
		return nil, fmt.Errorf("debit journal %s: %w", journalID, err)
	}
	return t, nil
}

// CreditMajorUnits credits a decimal amount in the journal's currency,
// rounded to the nearest minor unit.
func (l *Ledger) CreditMajorUnits(ctx context.Context, journalID id.JournalID, amount decimal.Decimal, opts ...EntryOption) (*transaction.Transaction, error) {
	m, err := l.majorUnits(ctx, journalID, amount)
	if err != nil {
		return nil, err
	}
	return l.Credit(ctx, journalID, m, opts...)
}

// DebitMajorUnits debits a decimal amount in the journal's currency,
// rounded to the nearest minor unit.
func (l *Ledger) DebitMajorUnits(ctx context.Context, journalID id.JournalID, amount decimal.Decimal, opts ...EntryOption) (*transaction.Transaction, error) {
	m, err := l.majorUnits(ctx, journalID, amount)
	if err != nil {
		return nil, err
	}
	return l.Debit(ctx, journalID, m, opts...)
}

func (l *Ledger) majorUnits(ctx context.Context, journalID id.JournalID, amount decimal.Decimal) (types.Money, error) {
	j, err := l.GetJournal(ctx, journalID)
	if err != nil {
		return types.Money{}, err
	}
	return types.FromMajorUnits(amount, j.Currency)
}

func (l *Ledger) record(ctx context.Context, journalID id.JournalID, amount types.Money, opts []EntryOption) (*transaction.Transaction, error) {
	var e entry
	for _, opt := range opts {
		opt(&e)
	}

	if l.strictReferences && !e.ref.IsZero() {
		if _, err := l.resolvers.Resolve(ctx, e.ref); err != nil {
			return nil, err
		}
	}

	now := l.clock()
	t := &transaction.Transaction{
		ID:        id.NewTransactionID(),
		JournalID: journalID,
		Amount:    types.FromMinorUnits(amount.Amount, amount.Currency),
		Reference: e.ref.Ptr(),
		Memo:      e.memo,
		PostedAt:  now,
		CreatedAt: now,
	}
	if !e.postedAt.IsZero() {
		t.PostedAt = e.postedAt.UTC()
	}

	j, err := l.store.AppendTransaction(ctx, t)
	if err != nil {
		return nil, err
	}

	l.logger.Debug("transaction recorded",
		"journal_id", journalID.String(),
		"transaction_id", t.ID.String(),
		"sequence", t.Sequence,
		"amount", t.Amount.String(),
		"balance", j.Balance.String(),
	)
	l.plugins.EmitTransactionRecorded(ctx, j, copyTransaction(t))

	return t, nil
}

// ──────────────────────────────────────────────────
// Balances
// ──────────────────────────────────────────────────

// GetBalance returns the cached balance.
func (l *Ledger) GetBalance(ctx context.Context, journalID id.JournalID) (types.Money, error) {
	j, err := l.GetJournal(ctx, journalID)
	if err != nil {
		return types.Money{}, err
	}
	return j.Balance, nil
}

// GetBalanceMajorUnits returns the cached balance as an exact decimal.
func (l *Ledger) GetBalanceMajorUnits(ctx context.Context, journalID id.JournalID) (decimal.Decimal, error) {
	m, err := l.GetBalance(ctx, journalID)
	if err != nil {
		return decimal.Zero, err
	}
	return m.ToMajorUnits(), nil
}

// RecomputeBalance sums the journal's transactions in insertion order. It
// does not touch the cached balance.
func (l *Ledger) RecomputeBalance(ctx context.Context, journalID id.JournalID) (types.Money, error) {
	j, err := l.GetJournal(ctx, journalID)
	if err != nil {
		return types.Money{}, err
	}
	return l.recompute(ctx, j)
}

// recompute sums transactions up to j.Sequence, so the result is comparable
// with j.Balance even while other writers append.
func (l *Ledger) recompute(ctx context.Context, j *journal.Journal) (types.Money, error) {
	total := types.Zero(j.Currency)
	err := l.scan(ctx, j.ID, transaction.ListOpts{}, func(t *transaction.Transaction) (bool, error) {
		if t.Sequence > j.Sequence {
			return false, nil
		}
		var err error
		total, err = total.Add(t.Amount)
		return err == nil, err
	})
	if err != nil {
		return types.Money{}, fmt.Errorf("recompute journal %s: %w", j.ID, err)
	}
	return total, nil
}

// RepairBalance sets the cached balance to the recomputed one and returns
// it. A journal that keeps changing underneath the repair fails with
// ErrConcurrentUpdate after a few attempts.
func (l *Ledger) RepairBalance(ctx context.Context, journalID id.JournalID) (types.Money, error) {
	var lastErr error
	for range repairAttempts {
		j, err := l.GetJournal(ctx, journalID)
		if err != nil {
			return types.Money{}, err
		}
		sum, err := l.recompute(ctx, j)
		if err != nil {
			return types.Money{}, err
		}
		if sum.Equal(j.Balance) {
			return sum, nil
		}

		repaired, err := l.store.SetBalance(ctx, j.ID, sum, j.Sequence)
		if errors.Is(err, ErrConcurrentUpdate) {
			lastErr = err
			continue
		}
		if err != nil {
			return types.Money{}, fmt.Errorf("repair journal %s: %w", journalID, err)
		}

		l.logger.Warn("balance repaired",
			"journal_id", journalID.String(),
			"previous", j.Balance.String(),
			"repaired", sum.String(),
			"sequence", j.Sequence,
		)
		l.plugins.EmitBalanceRepaired(ctx, repaired, j.Balance)
		return repaired.Balance, nil
	}
	return types.Money{}, fmt.Errorf("repair journal %s: %w", journalID, lastErr)
}

// Audit compares the cached balance with the recomputed one. A mismatch is
// returned as a *DivergenceError.
func (l *Ledger) Audit(ctx context.Context, journalID id.JournalID) error {
	j, err := l.GetJournal(ctx, journalID)
	if err != nil {
		return err
	}
	return l.audit(ctx, j)
}

func (l *Ledger) audit(ctx context.Context, j *journal.Journal) error {
	sum, err := l.recompute(ctx, j)
	if err != nil {
		return err
	}
	if sum.Equal(j.Balance) {
		return nil
	}

	l.logger.Warn("balance divergence detected",
		"journal_id", j.ID.String(),
		"cached", j.Balance.String(),
		"recomputed", sum.String(),
		"sequence", j.Sequence,
	)
	l.plugins.EmitBalanceDivergence(ctx, copyJournal(j), sum)

	return &DivergenceError{JournalID: j.ID, Cached: j.Balance, Recomputed: sum, Sequence: j.Sequence}
}

// BalanceAt sums the transactions posted at or before at.
func (l *Ledger) BalanceAt(ctx context.Context, journalID id.JournalID, at time.Time) (types.Money, error) {
	j, err := l.GetJournal(ctx, journalID)
	if err != nil {
		return types.Money{}, err
	}

	total := types.Zero(j.Currency)
	if at.IsZero() {
		// Nothing is posted before year 1; a zero PostedUntil would mean no bound.
		return total, nil
	}
	err = l.scan(ctx, journalID, transaction.ListOpts{PostedUntil: at.UTC()}, func(t *transaction.Transaction) (bool, error) {
		var err error
		total, err = total.Add(t.Amount)
		return err == nil, err
	})
	if err != nil {
		return types.Money{}, fmt.Errorf("balance of journal %s at %s: %w", journalID, at, err)
	}
	return total, nil
}

// Totals splits a journal's history into credits and debits.
type Totals struct {
	Credits types.Money `json:"credits"`
	// Debits is reported as a positive amount.
	Debits types.Money `json:"debits"`
}

// Totals returns the sum of credits and the sum of debits.
func (l *Ledger) Totals(ctx context.Context, journalID id.JournalID) (Totals, error) {
	j, err := l.GetJournal(ctx, journalID)
	if err != nil {
		return Totals{}, err
	}

	out := Totals{Credits: types.Zero(j.Currency), Debits: types.Zero(j.Currency)}
	err = l.scan(ctx, journalID, transaction.ListOpts{}, func(t *transaction.Transaction) (bool, error) {
		if t.Sequence > j.Sequence {
			return false, nil
		}
		var err error
		if t.IsDebit() {
			out.Debits, err = out.Debits.Sub(t.Amount)
		} else {
			out.Credits, err = out.Credits.Add(t.Amount)
		}
		return err == nil, err
	})
	if err != nil {
		return Totals{}, fmt.Errorf("totals of journal %s: %w", journalID, err)
	}
	return out, nil
}

// scan walks a journal's transactions in insertion order until fn returns
// false or an error.
func (l *Ledger) scan(ctx context.Context, journalID id.JournalID, opts transaction.ListOpts, fn func(*transaction.Transaction) (bool, error)) error {
	opts.Limit = scanPageSize
	for offset := 0; ; offset += scanPageSize {
		opts.Offset = offset
		batch, err := l.store.ListTransactions(ctx, journalID, opts)
		if err != nil {
			return err
		}
		for _, t := range batch {
			more, err := fn(t)
			if err != nil || !more {
				return err
			}
		}
		if len(batch) < scanPageSize {
			return nil
		}
	}
}

// ──────────────────────────────────────────────────
// Transactions and references
// ──────────────────────────────────────────────────

// GetTransaction returns a transaction by id.
func (l *Ledger) GetTransaction(ctx context.Context, txID id.TransactionID) (*transaction.Transaction, error) {
	t, err := l.store.GetTransaction(ctx, txID)
	if err != nil {
		return nil, fmt.Errorf("get transaction %s: %w", txID, err)
	}
	return t, nil
}

// Transactions lists a journal's transactions in insertion order.
func (l *Ledger) Transactions(ctx context.Context, journalID id.JournalID, opts transaction.ListOpts) ([]*transaction.Transaction, error) {
	return l.store.ListTransactions(ctx, journalID, opts)
}

// TransactionsReferencing lists transactions from every journal that point
// at ref.
func (l *Ledger) TransactionsReferencing(ctx context.Context, ref reference.Reference, opts transaction.ListOpts) ([]*transaction.Transaction, error) {
	if ref.IsZero() {
		return nil, ErrNoReferenceSet
	}
	return l.store.ListTransactionsByReference(ctx, ref, opts)
}

// ReferencedEntity resolves the entity a transaction points at. It fails
// with ErrNoReferenceSet when the transaction carries no reference.
func (l *Ledger) ReferencedEntity(ctx context.Context, t *transaction.Transaction) (reference.Identifiable, error) {
	if !t.HasReference() {
		return nil, ErrNoReferenceSet
	}
	return l.resolvers.Resolve(ctx, *t.Reference)
}

func copyJournal(j *journal.Journal) *journal.Journal {
	out := *j
	return &out
}

func copyTransaction(t *transaction.Transaction) *transaction.Transaction {
	out := *t
	if t.Reference != nil {
		ref := *t.Reference
		out.Reference = &ref
	}
	return &out
}

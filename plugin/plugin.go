// Package plugin provides lifecycle hooks for the accounting engine.
//
// A plugin implements Plugin plus any subset of the hook interfaces below.
// Hooks run after the operation they describe has been committed. A hook
// error is logged and never changes the outcome of that operation.
package plugin

import (
	"context"

	"github.com/xraph/accounting/journal"
	"github.com/xraph/accounting/transaction"
	"github.com/xraph/accounting/types"
)

// Plugin is the base interface that all plugins must implement.
type Plugin interface {
	Name() string
}

// ──────────────────────────────────────────────────
// Lifecycle hooks
// ──────────────────────────────────────────────────

// OnInit is called when the engine starts. l is the *accounting.Ledger.
type OnInit interface {
	Plugin
	OnInit(ctx context.Context, l interface{}) error
}

// OnShutdown is called when the engine stops.
type OnShutdown interface {
	Plugin
	OnShutdown(ctx context.Context) error
}

// ──────────────────────────────────────────────────
// Journal hooks
// ──────────────────────────────────────────────────

// OnJournalCreated is called once per owner, when its journal is first created.
type OnJournalCreated interface {
	Plugin
	OnJournalCreated(ctx context.Context, j *journal.Journal) error
}

// OnTransactionRecorded is called after a credit or debit. j reflects the
// balance including t.
type OnTransactionRecorded interface {
	Plugin
	OnTransactionRecorded(ctx context.Context, j *journal.Journal, t *transaction.Transaction) error
}

// OnBalanceDivergence is called when an audit finds a cached balance that
// disagrees with the journal's transactions.
type OnBalanceDivergence interface {
	Plugin
	OnBalanceDivergence(ctx context.Context, j *journal.Journal, recomputed types.Money) error
}

// OnBalanceRepaired is called after a repair changed a cached balance.
type OnBalanceRepaired interface {
	Plugin
	OnBalanceRepaired(ctx context.Context, j *journal.Journal, previous types.Money) error
}

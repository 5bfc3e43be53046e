package audithook

// Action constants for audit events.
const (
	// Journal actions
	ActionJournalCreated = "journal.created"

	// Transaction actions
	ActionTransactionCredited = "transaction.credited"
	ActionTransactionDebited  = "transaction.debited"

	// Balance integrity actions
	ActionBalanceDiverged = "balance.diverged"
	ActionBalanceRepaired = "balance.repaired"
)

// Resource constants for audit events.
const (
	ResourceJournal     = "journal"
	ResourceTransaction = "transaction"
)

// Category constants for audit events.
const (
	CategoryAccounting = "accounting"
	CategoryIntegrity  = "integrity"
)

// Severity levels for audit events.
const (
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityCritical = "critical"
)

// Outcome values for audit events.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

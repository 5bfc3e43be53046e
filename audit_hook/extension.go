// Package audithook bridges accounting lifecycle events to an audit trail backend.
//
// It defines a local Recorder interface so the package does not import
// Chronicle directly. Callers inject a RecorderFunc adapter that bridges
// to Chronicle at wiring time.
package audithook

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/xraph/accounting/journal"
	"github.com/xraph/accounting/plugin"
	"github.com/xraph/accounting/transaction"
	"github.com/xraph/accounting/types"
)

// Compile-time interface checks.
var (
	_ plugin.Plugin                = (*Extension)(nil)
	_ plugin.OnJournalCreated      = (*Extension)(nil)
	_ plugin.OnTransactionRecorded = (*Extension)(nil)
	_ plugin.OnBalanceDivergence   = (*Extension)(nil)
	_ plugin.OnBalanceRepaired     = (*Extension)(nil)
)

// Recorder is the interface that audit backends must implement.
type Recorder interface {
	Record(ctx context.Context, event *AuditEvent) error
}

// AuditEvent is a local representation of an audit event.
type AuditEvent struct {
	Action     string         `json:"action"`
	Resource   string         `json:"resource"`
	Category   string         `json:"category"`
	ResourceID string         `json:"resource_id,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	Outcome    string         `json:"outcome"`
	Severity   string         `json:"severity"`
	Reason     string         `json:"reason,omitempty"`
}

// RecorderFunc is an adapter to use a plain function as a Recorder.
type RecorderFunc func(ctx context.Context, event *AuditEvent) error

// Record implements Recorder.
func (f RecorderFunc) Record(ctx context.Context, event *AuditEvent) error {
	return f(ctx, event)
}

// Extension bridges accounting lifecycle events to an audit trail backend.
type Extension struct {
	recorder Recorder
	enabled  map[string]bool // nil = all enabled
	logger   *slog.Logger
}

// New creates an Extension that emits audit events through the provided Recorder.
func New(r Recorder, opts ...Option) *Extension {
	e := &Extension{
		recorder: r,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Name implements plugin.Plugin.
func (e *Extension) Name() string { return "audit-hook" }

// OnJournalCreated implements plugin.OnJournalCreated.
func (e *Extension) OnJournalCreated(ctx context.Context, j *journal.Journal) error {
	return e.record(ctx, ActionJournalCreated, SeverityInfo, OutcomeSuccess,
		ResourceJournal, j.ID.String(), CategoryAccounting, nil,
		"owner_type", j.OwnerType,
		"owner_id", j.OwnerID,
		"currency", j.Currency,
	)
}

// OnTransactionRecorded implements plugin.OnTransactionRecorded.
func (e *Extension) OnTransactionRecorded(ctx context.Context, j *journal.Journal, t *transaction.Transaction) error {
	action := ActionTransactionCredited
	if t.IsDebit() {
		action = ActionTransactionDebited
	}

	kv := []any{
		"journal_id", j.ID.String(),
		"owner_type", j.OwnerType,
		"owner_id", j.OwnerID,
		"amount", t.Amount.Amount,
		"currency", t.Amount.Currency,
		"sequence", t.Sequence,
		"balance", j.Balance.Amount,
	}
	if t.HasReference() {
		kv = append(kv, "reference", t.Reference.String())
	}
	if t.Memo != "" {
		kv = append(kv, "memo", t.Memo)
	}
	return e.record(ctx, action, SeverityInfo, OutcomeSuccess,
		ResourceTransaction, t.ID.String(), CategoryAccounting, nil, kv...)
}

// OnBalanceDivergence implements plugin.OnBalanceDivergence.
func (e *Extension) OnBalanceDivergence(ctx context.Context, j *journal.Journal, recomputed types.Money) error {
	return e.record(ctx, ActionBalanceDiverged, SeverityCritical, OutcomeFailure,
		ResourceJournal, j.ID.String(), CategoryIntegrity,
		fmt.Errorf("cached balance %s, transactions sum to %s", j.Balance, recomputed),
		"cached", j.Balance.Amount,
		"recomputed", recomputed.Amount,
		"currency", j.Currency,
		"sequence", j.Sequence,
	)
}

// OnBalanceRepaired implements plugin.OnBalanceRepaired.
func (e *Extension) OnBalanceRepaired(ctx context.Context, j *journal.Journal, previous types.Money) error {
	return e.record(ctx, ActionBalanceRepaired, SeverityWarning, OutcomeSuccess,
		ResourceJournal, j.ID.String(), CategoryIntegrity, nil,
		"previous", previous.Amount,
		"balance", j.Balance.Amount,
		"currency", j.Currency,
	)
}

// record builds and sends an audit event if the action is enabled.
func (e *Extension) record(
	ctx context.Context,
	action, severity, outcome string,
	resource, resourceID, category string,
	err error,
	kvPairs ...any,
) error {
	if e.enabled != nil && !e.enabled[action] {
		return nil
	}

	meta := make(map[string]any, len(kvPairs)/2+1)
	for i := 0; i+1 < len(kvPairs); i += 2 {
		key, ok := kvPairs[i].(string)
		if !ok {
			key = fmt.Sprintf("%v", kvPairs[i])
		}
		meta[key] = kvPairs[i+1]
	}

	var reason string
	if err != nil {
		reason = err.Error()
	}

	evt := &AuditEvent{
		Action:     action,
		Resource:   resource,
		Category:   category,
		ResourceID: resourceID,
		Metadata:   meta,
		Outcome:    outcome,
		Severity:   severity,
		Reason:     reason,
	}

	if recErr := e.recorder.Record(ctx, evt); recErr != nil {
		e.logger.Warn("audit_hook: failed to record audit event",
			"action", action,
			"resource_id", resourceID,
			"error", recErr,
		)
	}
	return nil
}

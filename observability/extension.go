// Package observability provides a metrics extension for the accounting
// engine that records lifecycle event counts via a MetricFactory.
package observability

import (
	"context"

	"github.com/xraph/accounting/journal"
	"github.com/xraph/accounting/plugin"
	"github.com/xraph/accounting/transaction"
	"github.com/xraph/accounting/types"
)

// Ensure MetricsExtension implements required interfaces.
var (
	_ plugin.Plugin                = (*MetricsExtension)(nil)
	_ plugin.OnJournalCreated      = (*MetricsExtension)(nil)
	_ plugin.OnTransactionRecorded = (*MetricsExtension)(nil)
	_ plugin.OnBalanceDivergence   = (*MetricsExtension)(nil)
	_ plugin.OnBalanceRepaired     = (*MetricsExtension)(nil)
)

// Counter interface for metric counters.
type Counter interface {
	Inc()
	Add(float64)
}

// Histogram interface for metric histograms.
type Histogram interface {
	Observe(float64)
}

// MetricFactory creates metrics.
type MetricFactory interface {
	Counter(name string) Counter
	Histogram(name string) Histogram
}

// MetricsExtension records system-wide lifecycle metrics. Amounts are
// observed in major units.
type MetricsExtension struct {
	// Journal metrics
	JournalsCreated Counter

	// Transaction metrics
	Credits      Counter
	Debits       Counter
	CreditAmount Histogram
	DebitAmount  Histogram

	// Integrity metrics
	Divergences     Counter
	DivergenceDrift Histogram
	Repairs         Counter
}

// NewMetricsExtension creates a MetricsExtension with the provided MetricFactory.
// Use app.Metrics() in forge extensions, or NewPrometheusFactory elsewhere.
func NewMetricsExtension(factory MetricFactory) *MetricsExtension {
	return &MetricsExtension{
		JournalsCreated: factory.Counter("accounting.journal.created"),

		Credits:      factory.Counter("accounting.transaction.credits"),
		Debits:       factory.Counter("accounting.transaction.debits"),
		CreditAmount: factory.Histogram("accounting.transaction.credit_amount"),
		DebitAmount:  factory.Histogram("accounting.transaction.debit_amount"),

		Divergences:     factory.Counter("accounting.balance.divergences"),
		DivergenceDrift: factory.Histogram("accounting.balance.divergence_drift"),
		Repairs:         factory.Counter("accounting.balance.repairs"),
	}
}

// Name implements plugin.Plugin.
func (m *MetricsExtension) Name() string { return "observability-metrics" }

// OnJournalCreated implements plugin.OnJournalCreated.
func (m *MetricsExtension) OnJournalCreated(context.Context, *journal.Journal) error {
	m.JournalsCreated.Inc()
	return nil
}

// OnTransactionRecorded implements plugin.OnTransactionRecorded.
func (m *MetricsExtension) OnTransactionRecorded(_ context.Context, _ *journal.Journal, t *transaction.Transaction) error {
	amount := majorUnits(t.Amount.Abs())
	if t.IsDebit() {
		m.Debits.Inc()
		m.DebitAmount.Observe(amount)
		return nil
	}
	m.Credits.Inc()
	m.CreditAmount.Observe(amount)
	return nil
}

// OnBalanceDivergence implements plugin.OnBalanceDivergence.
func (m *MetricsExtension) OnBalanceDivergence(_ context.Context, j *journal.Journal, recomputed types.Money) error {
	m.Divergences.Inc()
	if drift, err := j.Balance.Sub(recomputed); err == nil {
		m.DivergenceDrift.Observe(majorUnits(drift.Abs()))
	}
	return nil
}

// OnBalanceRepaired implements plugin.OnBalanceRepaired.
func (m *MetricsExtension) OnBalanceRepaired(context.Context, *journal.Journal, types.Money) error {
	m.Repairs.Inc()
	return nil
}

func majorUnits(m types.Money) float64 {
	return m.ToMajorUnits().InexactFloat64()
}

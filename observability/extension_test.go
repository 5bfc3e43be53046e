package observability_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/xraph/accounting"
	"github.com/xraph/accounting/observability"
	"github.com/xraph/accounting/store/memory"
	"github.com/xraph/accounting/types"
)

type fakeMetric struct {
	mu       sync.Mutex
	count    float64
	observed []float64
}

func (m *fakeMetric) Inc() { m.Add(1) }

func (m *fakeMetric) Add(v float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.count += v
}

func (m *fakeMetric) Observe(v float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.observed = append(m.observed, v)
}

type fakeFactory map[string]*fakeMetric

func (f fakeFactory) get(name string) *fakeMetric {
	if m, ok := f[name]; ok {
		return m
	}
	m := &fakeMetric{}
	f[name] = m
	return m
}

func (f fakeFactory) Counter(name string) observability.Counter     { return f.get(name) }
func (f fakeFactory) Histogram(name string) observability.Histogram { return f.get(name) }

func exercise(t *testing.T, ext *observability.MetricsExtension) {
	t.Helper()
	ctx := context.Background()
	s := memory.New()
	l := accounting.New(s, accounting.WithPlugin(ext))
	if err := l.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer l.Stop()

	j, err := l.Init(ctx, "user", "1", "usd")
	if err != nil {
		t.Fatal(err)
	}
	for _, cents := range []int64{1250, 300} {
		if _, err := l.Credit(ctx, j.ID, types.USD(cents)); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := l.Debit(ctx, j.ID, types.USD(99)); err != nil {
		t.Fatal(err)
	}

	if _, err := s.SetBalance(ctx, j.ID, types.USD(1500), 3); err != nil {
		t.Fatal(err)
	}
	if err := l.Audit(ctx, j.ID); !errors.Is(err, accounting.ErrBalanceDivergence) {
		t.Fatalf("Audit = %v", err)
	}
	if _, err := l.RepairBalance(ctx, j.ID); err != nil {
		t.Fatal(err)
	}
}

func TestMetricsExtension(t *testing.T) {
	f := fakeFactory{}
	exercise(t, observability.NewMetricsExtension(f))

	counts := map[string]float64{
		"accounting.journal.created":     1,
		"accounting.transaction.credits": 2,
		"accounting.transaction.debits":  1,
		"accounting.balance.divergences": 1,
		"accounting.balance.repairs":     1,
	}
	for name, want := range counts {
		if got := f[name].count; got != want {
			t.Errorf("%s = %v, want %v", name, got, want)
		}
	}

	credits := f["accounting.transaction.credit_amount"].observed
	if len(credits) != 2 || credits[0] != 12.5 || credits[1] != 3 {
		t.Errorf("credit amounts = %v", credits)
	}
	debits := f["accounting.transaction.debit_amount"].observed
	if len(debits) != 1 || debits[0] != 0.99 {
		t.Errorf("debit amounts = %v", debits)
	}
	drift := f["accounting.balance.divergence_drift"].observed
	if len(drift) != 1 || drift[0] != 0.49 {
		t.Errorf("drift = %v", drift)
	}
}

func TestPrometheusFactory(t *testing.T) {
	reg := prometheus.NewRegistry()
	exercise(t, observability.NewMetricsExtension(observability.NewPrometheusFactory(reg)))

	// A second factory on the same registry reuses the registered collectors.
	again := observability.NewPrometheusFactory(reg).Counter("accounting.journal.created")
	again.Inc()

	families, err := reg.Gather()
	if err != nil {
		t.Fatal(err)
	}
	byName := make(map[string]float64)
	samples := make(map[string]uint64)
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			if c := m.GetCounter(); c != nil {
				byName[mf.GetName()] = c.GetValue()
			}
			if h := m.GetHistogram(); h != nil {
				samples[mf.GetName()] = h.GetSampleCount()
			}
		}
	}

	if got := byName["accounting_journal_created_total"]; got != 2 {
		t.Errorf("journal created = %v, want 2", got)
	}
	if got := byName["accounting_transaction_credits_total"]; got != 2 {
		t.Errorf("credits = %v, want 2", got)
	}
	if got := samples["accounting_transaction_credit_amount"]; got != 2 {
		t.Errorf("credit amount samples = %v, want 2", got)
	}
	if got := byName["accounting_balance_repairs_total"]; got != 1 {
		t.Errorf("repairs = %v, want 1", got)
	}
}

package accounting

import (
	"context"
	"errors"
	"maps"
	"slices"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/xraph/accounting/journal"
)

// auditPageSize is how many journals AuditAll loads per batch.
const auditPageSize = 100

// AuditAll audits every journal and returns the divergent ones in journal
// creation order. Any error other than a divergence aborts the run.
func (l *Ledger) AuditAll(ctx context.Context) ([]*DivergenceError, error) {
	var (
		mu        sync.Mutex
		divergent = make(map[int]*DivergenceError)
	)

	for offset := 0; ; offset += auditPageSize {
		batch, err := l.store.ListJournals(ctx, journal.ListOpts{Limit: auditPageSize, Offset: offset})
		if err != nil {
			return nil, err
		}

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(l.auditWorkers)
		for i, j := range batch {
			pos := offset + i
			g.Go(func() error {
				err := l.audit(gctx, j)
				var div *DivergenceError
				if errors.As(err, &div) {
					mu.Lock()
					divergent[pos] = div
					mu.Unlock()
					return nil
				}
				return err
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}

		if len(batch) < auditPageSize {
			break
		}
	}

	out := make([]*DivergenceError, 0, len(divergent))
	for _, pos := range slices.Sorted(maps.Keys(divergent)) {
		out = append(out, divergent[pos])
	}

	l.logger.Info("audit completed", "divergent", len(out))
	return out, nil
}
